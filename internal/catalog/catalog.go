// Package catalog holds the named lists of recurring events that backtests
// run over, and the enumerated entry/exit offsets a caller may choose from.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"eventret/internal/config"
	"eventret/internal/domain"
)

// Catalog is a named, ordered list of historical occurrences of one event
// for one symbol.
type Catalog struct {
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Description string         `json:"description,omitempty"`
	Events      []domain.Event `json:"events"`
}

// Validate rejects catalogs without a name, symbol or events, and catalogs
// that repeat an event ID or date.
func (c *Catalog) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("catalog: missing name")
	}
	if c.Symbol == "" {
		return fmt.Errorf("catalog %s: missing symbol", c.Name)
	}
	if len(c.Events) == 0 {
		return fmt.Errorf("catalog %s: %w", c.Name, domain.ErrEmptyInput)
	}
	ids := make(map[string]bool, len(c.Events))
	days := make(map[string]string, len(c.Events))
	for _, ev := range c.Events {
		if ev.ID == "" {
			return fmt.Errorf("catalog %s: event on %s has no id", c.Name, domain.FormatDay(ev.Date))
		}
		if ids[ev.ID] {
			return fmt.Errorf("catalog %s: duplicate event id %q", c.Name, ev.ID)
		}
		ids[ev.ID] = true
		d := domain.FormatDay(ev.Date)
		if prev, ok := days[d]; ok {
			return fmt.Errorf("catalog %s: events %q and %q share date %s", c.Name, prev, ev.ID, d)
		}
		days[d] = ev.ID
	}
	return nil
}

// Parse builds a catalog from string dates as found in config files.
func Parse(cc config.Catalog) (*Catalog, error) {
	c := &Catalog{
		Name:        cc.Name,
		Symbol:      strings.ToUpper(cc.Symbol),
		Description: cc.Description,
		Events:      make([]domain.Event, 0, len(cc.Events)),
	}
	for _, e := range cc.Events {
		d, err := domain.ParseDay(e.Date)
		if err != nil {
			return nil, fmt.Errorf("catalog %s event %s: %w", cc.Name, e.ID, err)
		}
		c.Events = append(c.Events, domain.Event{ID: e.ID, Date: d})
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Registry holds catalogs by name. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	catalogs map[string]*Catalog
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{catalogs: make(map[string]*Catalog)}
}

// Register validates c and adds it, replacing any catalog with the same name.
func (r *Registry) Register(c *Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[c.Name] = c
	return nil
}

// Get returns the catalog called name, or ErrUnknownCatalog.
func (r *Registry) Get(name string) (*Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.catalogs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrUnknownCatalog)
	}
	return c, nil
}

// List returns a sorted slice of all registered catalog names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.catalogs))
	for name := range r.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered catalog ordered by name.
func (r *Registry) All() []*Catalog {
	names := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Catalog, 0, len(names))
	for _, n := range names {
		out = append(out, r.catalogs[n])
	}
	return out
}

// Symbols returns the distinct symbols referenced by registered catalogs.
func (r *Registry) Symbols() []string {
	seen := make(map[string]bool)
	for _, c := range r.All() {
		seen[c.Symbol] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Load returns a registry with the built-in catalogs plus those defined in
// cfg. Config catalogs win over built-ins of the same name.
func Load(cfg []config.Catalog) (*Registry, error) {
	r := NewRegistry()
	for _, c := range Builtins() {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	for _, cc := range cfg {
		c, err := Parse(cc)
		if err != nil {
			return nil, err
		}
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}
