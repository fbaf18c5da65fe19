package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"eventret/internal/api"
	"eventret/internal/backtest"
	"eventret/internal/catalog"
	"eventret/internal/domain"
	"eventret/internal/util"
)

func TestParseEventFlags(t *testing.T) {
	got, err := parseEventFlags([]string{"2019=2019-06-03", "2020-06-22"})
	if err != nil {
		t.Fatalf("parseEventFlags: %v", err)
	}
	want := []api.EventView{{ID: "2019", Date: "2019-06-03"}, {ID: "2020-06-22", Date: "2020-06-22"}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("parseEventFlags = %+v, want %+v", got, want)
	}

	if _, err := parseEventFlags([]string{"=2019-06-03"}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestFindIssues(t *testing.T) {
	d := domain.MustParseDay
	cal := util.NewTradingCalendar(domain.MarketUS, []time.Time{d("2020-07-01"), d("2020-07-02"), d("2020-07-06")})
	cats := []*catalog.Catalog{{Name: "c", Symbol: "X", Events: []domain.Event{
		{ID: "ok", Date: d("2020-07-02")},
		{ID: "holiday", Date: d("2020-07-03")},
	}}}

	issues := findIssues(cal, cats)
	if len(issues) != 1 {
		t.Fatalf("findIssues returned %d issues, want 1", len(issues))
	}
	is := issues[0]
	if is.Event.ID != "holiday" || domain.FormatDay(is.Prev) != "2020-07-02" || domain.FormatDay(is.Next) != "2020-07-06" {
		t.Errorf("unexpected issue %+v", is)
	}

	var buf bytes.Buffer
	printIssues(&buf, issues)
	if !strings.Contains(buf.String(), "c/holiday 2020-07-03 (Friday) is not a session; previous 2020-07-02, next 2020-07-06") {
		t.Errorf("unexpected output %q", buf.String())
	}

	from, to := eventSpan(cats)
	if domain.FormatDay(from) != "2020-07-02" || domain.FormatDay(to) != "2020-07-03" {
		t.Errorf("eventSpan = %v, %v", from, to)
	}
}

func TestPrintResult(t *testing.T) {
	obs := []domain.ReturnObservation{{EventID: "2019", Return: 2}, {EventID: "2020", Return: -1}}
	s := domain.Summary{Mean: 0.5, StDev: 1.5, WinRate: 50, Count: 2}
	resp := &api.RunResponse{Result: &backtest.Result{Symbol: "AAPL", Observations: obs, Summary: s, Rows: domain.Rows(obs, s)}}

	var buf bytes.Buffer
	if err := printResult(&buf, resp, "csv", true); err != nil {
		t.Fatalf("printResult csv: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "label,kind,value\n2019,event,2.00\n") {
		t.Errorf("unexpected csv %q", buf.String())
	}

	buf.Reset()
	if err := printResult(&buf, resp, "json", true); err != nil {
		t.Fatalf("printResult json: %v", err)
	}
	if !strings.Contains(buf.String(), `"winRate": 50`) {
		t.Errorf("unexpected json %q", buf.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if buf.String() != "eventret "+version+"\n" {
		t.Errorf("version output %q", buf.String())
	}
}

func TestOffsetsCommand(t *testing.T) {
	t.Setenv("EVENTRET_CONFIG", "")
	t.Chdir(t.TempDir())

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"offsets"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("offsets: %v", err)
	}
	out := buf.String()
	for _, s := range []string{"entry", "-5", "1 session before", "exit", "+20", "20 sessions after"} {
		if !strings.Contains(out, s) {
			t.Errorf("offsets output missing %q:\n%s", s, out)
		}
	}
}
