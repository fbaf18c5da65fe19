package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"eventret/internal/catalog"
	"eventret/internal/domain"
	"eventret/internal/provider"
	"eventret/internal/util"
)

var checkCmd = &cobra.Command{
	Use:   "check [catalog...]",
	Short: "Flag catalog events that do not fall on a trading session",
	Long: `Check every event date against the Alpaca trading calendar. Events on
weekends or market holidays fail a run unless backtest.roll is set; this lists
them with the sessions either side.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// calendarIssue is an event whose date is not a session.
type calendarIssue struct {
	Catalog string
	Event   domain.Event
	Prev    time.Time
	Next    time.Time
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	reg, err := catalog.Load(cfg.Catalogs)
	if err != nil {
		return err
	}

	var cats []*catalog.Catalog
	if len(args) == 0 {
		cats = reg.All()
	} else {
		for _, name := range args {
			c, err := reg.Get(name)
			if err != nil {
				return err
			}
			cats = append(cats, c)
		}
	}

	from, to := eventSpan(cats)
	cal, err := provider.LoadCalendar(cmd.Context(), provider.CalendarOptions{
		APIKey:      cfg.Alpaca.APIKey,
		APISecret:   cfg.Alpaca.APISecret,
		BaseURL:     cfg.Alpaca.BaseURL,
		MaxAttempts: cfg.Provider.MaxAttempts,
		BaseDelay:   cfg.Provider.BaseDelay,
	}, from.AddDate(0, 0, -14), to.AddDate(0, 0, 14))
	if err != nil {
		return err
	}

	issues := findIssues(cal, cats)
	printIssues(cmd.OutOrStdout(), issues)
	if len(issues) > 0 {
		return fmt.Errorf("%d event(s) not on a trading session", len(issues))
	}
	return nil
}

func eventSpan(cats []*catalog.Catalog) (time.Time, time.Time) {
	var from, to time.Time
	for _, c := range cats {
		for _, ev := range c.Events {
			if from.IsZero() || ev.Date.Before(from) {
				from = ev.Date
			}
			if ev.Date.After(to) {
				to = ev.Date
			}
		}
	}
	return from, to
}

func findIssues(cal *util.TradingCalendar, cats []*catalog.Catalog) []calendarIssue {
	var out []calendarIssue
	for _, c := range cats {
		for _, ev := range c.Events {
			if cal.IsSession(ev.Date) {
				continue
			}
			is := calendarIssue{Catalog: c.Name, Event: ev}
			is.Prev, _ = cal.PrevSession(ev.Date)
			is.Next, _ = cal.NextSession(ev.Date)
			out = append(out, is)
		}
	}
	return out
}

func printIssues(w io.Writer, issues []calendarIssue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, "all events fall on trading sessions")
		return
	}
	for _, is := range issues {
		fmt.Fprintf(w, "%s/%s %s (%s) is not a session; previous %s, next %s\n",
			is.Catalog, is.Event.ID, domain.FormatDay(is.Event.Date), is.Event.Date.Weekday(),
			dayOrDash(is.Prev), dayOrDash(is.Next))
	}
}

func dayOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return domain.FormatDay(t)
}
