package gather

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// progress keeps a .last-completed marker so a restarted daemon does not
// repeat a pass that already succeeded today.
type progress struct {
	dir string
}

func newProgress(dir string) *progress {
	return &progress{dir: dir}
}

func (p *progress) path() string { return filepath.Join(p.dir, ".last-completed") }

// MarkCompleted writes the given date to .last-completed.
func (p *progress) MarkCompleted(date string) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	return os.WriteFile(p.path(), []byte(date), 0o644)
}

// IsCompleted returns true if .last-completed matches the given date.
func (p *progress) IsCompleted(date string) bool {
	return p.LastCompleted() == date
}

// LastCompleted returns the date string from .last-completed, or empty string.
func (p *progress) LastCompleted() string {
	data, err := os.ReadFile(p.path())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
