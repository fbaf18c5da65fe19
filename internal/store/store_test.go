package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eventret/internal/domain"
)

func sampleBars() []domain.Bar {
	return []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
	}
}

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", "us", 2024)

	wantBarPath := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if bp != wantBarPath {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, wantBarPath)
	}
	if !strings.Contains(bp, "2024.parquet") {
		t.Errorf("barPath should contain year file '2024.parquet': %s", bp)
	}
}

// testBarStore runs the same behavioural checks against any BarStore.
func testBarStore(t *testing.T, s BarStore) {
	t.Helper()
	ctx := context.Background()

	if err := s.WriteBars(ctx, "us", sampleBars()); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := s.ReadBars(ctx, "AAPL", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 || got[1].Close != 186.0 {
		t.Errorf("closes = %v, %v, want 185.5, 186.0", got[0].Close, got[1].Close)
	}

	// The end day is inclusive even though the bar is stamped after midnight.
	got, err = s.ReadBars(ctx, "AAPL", "us", start, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars (inclusive end): %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ReadBars with end=2024-01-03 returned %d bars, want 2", len(got))
	}

	// Rewriting the same day replaces it rather than duplicating it.
	fix := sampleBars()[1]
	fix.Close = 186.25
	if err := s.WriteBars(ctx, "us", []domain.Bar{fix}); err != nil {
		t.Fatalf("WriteBars (update): %v", err)
	}
	got, err = s.ReadBars(ctx, "AAPL", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars (after update): %v", err)
	}
	if len(got) != 2 || got[1].Close != 186.25 {
		t.Errorf("after update got %d bars, last close %v; want 2 bars, 186.25", len(got), got[len(got)-1].Close)
	}

	// Other markets are isolated.
	got, err = s.ReadBars(ctx, "AAPL", "cn", start, end)
	if err != nil {
		t.Fatalf("ReadBars (cn): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadBars for cn returned %d bars, want 0", len(got))
	}

	more := []domain.Bar{
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 140.0, High: 141.0, Low: 139.0, Close: 140.5, Volume: 20000000},
	}
	if err := s.WriteBars(ctx, "us", more); err != nil {
		t.Fatalf("WriteBars (GOOGL): %v", err)
	}
	symbols, err := s.ListSymbols(ctx, "us")
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestParquetStore(t *testing.T) {
	testBarStore(t, NewParquetStore(t.TempDir()))
}

func TestParquetStoreMissingYear(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	bars, err := ps.ReadBars(context.Background(), "MSFT", "us",
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars on empty store returned error: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("ReadBars on empty store returned %d bars", len(bars))
	}
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
	testBarStore(t, store)
}

func TestMergeBarRecords(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := []BarRecord{{Symbol: "MSFT", Timestamp: day.UnixMilli(), Close: 403}}
	// Same UTC day at a different time of day replaces the existing record.
	incoming := []BarRecord{
		{Symbol: "MSFT", Timestamp: day.Add(5 * time.Hour).UnixMilli(), Close: 404},
		{Symbol: "MSFT", Timestamp: day.AddDate(0, 0, 3).UnixMilli(), Close: 408},
	}

	merged := mergeBarRecords(existing, incoming)
	if len(merged) != 2 {
		t.Fatalf("merged %d records, want 2", len(merged))
	}
	if merged[0].Close != 404 || merged[1].Close != 408 {
		t.Errorf("merged closes = %v, %v, want 404, 408", merged[0].Close, merged[1].Close)
	}
}
