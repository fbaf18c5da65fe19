// Package domain defines the core value types shared across eventret: daily
// bars, event occurrences, session offsets, and backtest observations.
package domain

import (
	"time"
)

// Market identifies the exchange group a symbol trades on.
type Market string

// MarketUS is the only market served; it names the store's data directory.
const MarketUS Market = "us"

// Bar is a single daily OHLCV bar as returned by a market-data source.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Event is one historical occurrence of a recurring calendar event.
type Event struct {
	ID   string    `json:"id" yaml:"id"`
	Date time.Time `json:"date" yaml:"-"`
}

// Session is one trading session in a PriceSeries. Valid is false when the
// source reported no usable close for the day.
type Session struct {
	Date  time.Time
	Close float64
	Valid bool
}

// PriceSeries is an ordered run of daily sessions for one symbol. Sessions
// are strictly increasing by date with no duplicates.
type PriceSeries struct {
	Symbol   string
	Sessions []Session
}

// Len returns the number of sessions in the series.
func (ps PriceSeries) Len() int { return len(ps.Sessions) }

// First returns the date of the earliest session, or the zero time.
func (ps PriceSeries) First() time.Time {
	if len(ps.Sessions) == 0 {
		return time.Time{}
	}
	return ps.Sessions[0].Date
}

// Last returns the date of the latest session, or the zero time.
func (ps PriceSeries) Last() time.Time {
	if len(ps.Sessions) == 0 {
		return time.Time{}
	}
	return ps.Sessions[len(ps.Sessions)-1].Date
}

// SessionOffset is a signed distance in trading sessions from the located
// event session. Zero is the event session itself.
type SessionOffset struct {
	Label    string `json:"label" yaml:"label"`
	Sessions int    `json:"sessions" yaml:"sessions"`
}

// ReturnObservation is the percentage return measured for one event.
type ReturnObservation struct {
	EventID string  `json:"event"`
	Return  float64 `json:"return"`
}

// Summary holds the aggregate statistics over a set of observations.
type Summary struct {
	Mean    float64 `json:"mean"`
	StDev   float64 `json:"stdev"`
	WinRate float64 `json:"winRate"`
	Count   int     `json:"count"`
}

// RowKind distinguishes per-event rows from aggregate rows.
type RowKind string

const (
	RowEvent   RowKind = "event"
	RowAvg     RowKind = "Avg"
	RowStDev   RowKind = "StDev"
	RowWinRate RowKind = "WinRate"
)

// SummaryRow is one line of backtest output: either an event's return or an
// aggregate value.
type SummaryRow struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Kind  RowKind `json:"kind"`
}

// Rows lays out observations followed by the Avg, StDev and WinRate rows, in
// that order.
func Rows(obs []ReturnObservation, s Summary) []SummaryRow {
	rows := make([]SummaryRow, 0, len(obs)+3)
	for _, o := range obs {
		rows = append(rows, SummaryRow{Label: o.EventID, Value: o.Return, Kind: RowEvent})
	}
	rows = append(rows,
		SummaryRow{Label: string(RowAvg), Value: s.Mean, Kind: RowAvg},
		SummaryRow{Label: string(RowStDev), Value: s.StDev, Kind: RowStDev},
		SummaryRow{Label: string(RowWinRate), Value: s.WinRate, Kind: RowWinRate},
	)
	return rows
}
