package catalog

import (
	"fmt"

	"eventret/internal/config"
	"eventret/internal/domain"
)

// Offsets is the enumerated set of entry and exit offsets a caller may pick.
type Offsets struct {
	Entry []domain.SessionOffset `json:"entry"`
	Exit  []domain.SessionOffset `json:"exit"`
}

// DefaultOffsets is entry {-5, -1, 0} and exit {0, +5, +20}.
func DefaultOffsets() Offsets {
	return Offsets{
		Entry: []domain.SessionOffset{
			{Label: "5 sessions before", Sessions: -5},
			{Label: "1 session before", Sessions: -1},
			{Label: "Event day", Sessions: 0},
		},
		Exit: []domain.SessionOffset{
			{Label: "Event day", Sessions: 0},
			{Label: "5 sessions after", Sessions: 5},
			{Label: "20 sessions after", Sessions: 20},
		},
	}
}

// OffsetsFromConfig converts configured offsets, falling back to the
// defaults for a side that is left empty.
func OffsetsFromConfig(cfg config.Offsets) Offsets {
	o := DefaultOffsets()
	if len(cfg.Entry) > 0 {
		o.Entry = convert(cfg.Entry)
	}
	if len(cfg.Exit) > 0 {
		o.Exit = convert(cfg.Exit)
	}
	return o
}

func convert(in []config.Offset) []domain.SessionOffset {
	out := make([]domain.SessionOffset, len(in))
	for i, c := range in {
		out[i] = domain.SessionOffset{Label: c.Label, Sessions: c.Sessions}
	}
	return out
}

// EntryOffset returns the enumerated entry offset with the given session
// count, or ErrUnknownOffset.
func (o Offsets) EntryOffset(sessions int) (domain.SessionOffset, error) {
	return pick("entry", o.Entry, sessions)
}

// ExitOffset returns the enumerated exit offset with the given session
// count, or ErrUnknownOffset.
func (o Offsets) ExitOffset(sessions int) (domain.SessionOffset, error) {
	return pick("exit", o.Exit, sessions)
}

func pick(side string, set []domain.SessionOffset, sessions int) (domain.SessionOffset, error) {
	for _, so := range set {
		if so.Sessions == sessions {
			return so, nil
		}
	}
	return domain.SessionOffset{}, fmt.Errorf("%s %+d: %w", side, sessions, domain.ErrUnknownOffset)
}
