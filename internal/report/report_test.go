package report

import (
	"bytes"
	"strings"
	"testing"

	"eventret/internal/backtest"
	"eventret/internal/domain"
)

func sampleResult() *backtest.Result {
	obs := []domain.ReturnObservation{{EventID: "2019", Return: 2}, {EventID: "2020", Return: -1}}
	s := domain.Summary{Mean: 0.5, StDev: 1.5, WinRate: 50, Count: 2}
	return &backtest.Result{
		Symbol:       "AAPL",
		Entry:        domain.SessionOffset{Label: "1 session before", Sessions: -1},
		Exit:         domain.SessionOffset{Label: "Event day", Sessions: 0},
		Observations: obs,
		Summary:      s,
		Rows:         domain.Rows(obs, s),
	}
}

func TestFormatReturn(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "+2.00%"},
		{-1, "-1.00%"},
		{0, "0.00%"},
		{33.333, "+33.33%"},
	}
	for _, tt := range tests {
		if got := FormatReturn(tt.in); got != tt.want {
			t.Errorf("FormatReturn(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatWinRate(50); got != "50%" {
		t.Errorf("FormatWinRate(50) = %q", got)
	}
	if got := FormatValue(domain.SummaryRow{Kind: domain.RowStDev, Value: 1.5}); got != "1.50%" {
		t.Errorf("FormatValue(StDev) = %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult().Rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "label,kind,value\n" +
		"2019,event,2.00\n" +
		"2020,event,-1.00\n" +
		"Avg,Avg,0.50\n" +
		"StDev,StDev,1.50\n" +
		"WinRate,WinRate,50\n"
	if buf.String() != want {
		t.Errorf("WriteCSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestTable(t *testing.T) {
	out := Table(sampleResult(), true)

	for _, s := range []string{"AAPL", "1 session before (-1)", "Event day (+0)", "2019", "+2.00%", "-1.00%", "Avg", "+0.50%", "1.50%", "50%"} {
		if !strings.Contains(out, s) {
			t.Errorf("table missing %q:\n%s", s, out)
		}
	}
	// Events come before aggregates.
	if strings.Index(out, "2020") > strings.Index(out, "Avg") {
		t.Errorf("aggregate rows must follow events:\n%s", out)
	}
}
