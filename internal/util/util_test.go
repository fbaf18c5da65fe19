package util

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"eventret/internal/domain"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryIfStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0

	err := RetryIf(context.Background(), 5, 0,
		func(err error) bool { return !errors.Is(err, permanent) },
		func() error {
			attempts++
			return permanent
		})

	if !errors.Is(err, permanent) {
		t.Fatalf("RetryIf returned %v, want %v", err, permanent)
	}
	if attempts != 1 {
		t.Errorf("RetryIf called fn %d times, want 1", attempts)
	}
}

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "warn", "text")
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "k=v") {
		t.Errorf("text handler output missing attribute: %q", out)
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Error("unknown level should default to info")
	}
}

func TestTradingCalendar(t *testing.T) {
	// 2020-07-03 (Friday) was the Independence Day holiday.
	cal := NewTradingCalendar(domain.MarketUS, []time.Time{
		domain.MustParseDay("2020-07-06"),
		domain.MustParseDay("2020-07-02"),
		domain.MustParseDay("2020-07-01"),
		domain.MustParseDay("2020-07-02"),
	})
	if cal.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 after dedup", cal.Len())
	}
	if cal.Market() != domain.MarketUS {
		t.Errorf("Market() = %q, want us", cal.Market())
	}

	holiday := domain.MustParseDay("2020-07-03")
	if cal.IsSession(holiday) {
		t.Error("2020-07-03 should not be a session")
	}
	if !cal.IsSession(domain.MustParseDay("2020-07-02").Add(14 * time.Hour)) {
		t.Error("IsSession should ignore time of day")
	}

	next, ok := cal.NextSession(holiday)
	if !ok || domain.FormatDay(next) != "2020-07-06" {
		t.Errorf("NextSession = %v %v, want 2020-07-06", next, ok)
	}
	prev, ok := cal.PrevSession(holiday)
	if !ok || domain.FormatDay(prev) != "2020-07-02" {
		t.Errorf("PrevSession = %v %v, want 2020-07-02", prev, ok)
	}
	if _, ok := cal.PrevSession(domain.MustParseDay("2020-06-30")); ok {
		t.Error("PrevSession before the first session should report false")
	}
	if _, ok := cal.NextSession(domain.MustParseDay("2020-07-07")); ok {
		t.Error("NextSession after the last session should report false")
	}
}
