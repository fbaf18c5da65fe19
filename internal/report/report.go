// Package report renders backtest summary rows as CSV or as a terminal
// table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"eventret/internal/backtest"
	"eventret/internal/domain"
)

var (
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	aggStyle    = lipgloss.NewStyle().Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// FormatReturn renders a percentage return with an explicit sign, e.g.
// "+2.00%", "-1.00%" or "0.00%".
func FormatReturn(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	if v == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", v)
}

// FormatWinRate renders a whole percentage, e.g. "50%".
func FormatWinRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64) + "%"
}

// FormatValue renders a row value the way its kind is displayed.
func FormatValue(r domain.SummaryRow) string {
	switch r.Kind {
	case domain.RowWinRate:
		return FormatWinRate(r.Value)
	case domain.RowStDev:
		return fmt.Sprintf("%.2f%%", r.Value)
	default:
		return FormatReturn(r.Value)
	}
}

// WriteCSV writes rows as "label,kind,value" records with a header line.
// Values are plain numbers: two decimals, or none for the win rate.
func WriteCSV(w io.Writer, rows []domain.SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "kind", "value"}); err != nil {
		return err
	}
	for _, r := range rows {
		prec := 2
		if r.Kind == domain.RowWinRate {
			prec = 0
		}
		if err := cw.Write([]string{r.Label, string(r.Kind), strconv.FormatFloat(r.Value, 'f', prec, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Table renders a result as a bordered terminal table: one row per event,
// then the aggregate rows. Returns are coloured by sign unless plain is set.
func Table(res *backtest.Result, plain bool) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Event", "Return")

	for _, r := range res.Rows {
		t.Row(r.Label, FormatValue(r))
	}

	rows := res.Rows
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle.Padding(0, 1)
		}
		if plain || row < 0 || row >= len(rows) {
			return cellStyle
		}
		r := rows[row]
		st := cellStyle
		if r.Kind != domain.RowEvent {
			st = aggStyle.Padding(0, 1)
		}
		if col == 1 && (r.Kind == domain.RowEvent || r.Kind == domain.RowAvg) {
			switch {
			case r.Value > 0:
				st = st.Inherit(gainStyle)
			case r.Value < 0:
				st = st.Inherit(lossStyle)
			}
		}
		return st
	})

	title := fmt.Sprintf("%s  entry %s (%+d)  exit %s (%+d)",
		res.Symbol, res.Entry.Label, res.Entry.Sessions, res.Exit.Label, res.Exit.Sessions)
	if plain {
		return title + "\n" + t.String()
	}
	return titleStyle.Render(title) + "\n" + t.String()
}
