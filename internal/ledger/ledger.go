// Package ledger persists high-water-mark timestamps gating the
// reprocessing of events and vote events.
//
// Bills are deliberately excluded: they are filtered by action-count
// comparison against their persisted metadata instead.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

// Category selects which high-water mark a record is gated by.
type Category string

const (
	// CategoryEvents gates event records.
	CategoryEvents Category = "events"

	// CategoryVoteEvents gates vote event records.
	CategoryVoteEvents Category = "vote_events"
)

// epoch is the mark used before any record of a category has been
// processed. Every real record timestamp is newer than it.
var epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Ledger holds the in-memory high-water marks for one run. Marks
// advance in memory as records are processed and are flushed to disk
// exactly once, at the end of the run.
type Ledger struct {
	path  string
	marks map[Category]time.Time
}

// Load reads the persisted ledger under root, or returns a ledger at
// the epoch when the file is missing or unreadable.
func Load(root string) *Ledger {
	l := &Ledger{
		path: layout.LedgerFile(root),
		marks: map[Category]time.Time{
			CategoryEvents:     epoch,
			CategoryVoteEvents: epoch,
		},
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return l
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return l
	}
	for category, value := range raw {
		if value == "" {
			continue
		}
		t, err := model.ParseTimestamp(value)
		if err != nil {
			continue
		}
		l.marks[Category(category)] = t
	}
	return l
}

// Mark returns the current high-water mark for a category.
func (l *Ledger) Mark(category Category) time.Time {
	return l.marks[category]
}

// IsNewer reports whether t is strictly after the category's mark.
// Records that are not newer have already been processed by an earlier
// run and are skipped.
func (l *Ledger) IsNewer(category Category, t time.Time) bool {
	return t.After(l.marks[category])
}

// Advance raises the category's in-memory mark to t if t is newer.
// Never lowers a mark.
func (l *Ledger) Advance(category Category, t time.Time) {
	if t.After(l.marks[category]) {
		l.marks[category] = t
	}
}

// Flush persists the ledger. Called once at the end of a run, never
// mid-run, so a crashed run reprocesses its batch instead of losing
// it.
func (l *Ledger) Flush() error {
	out := map[string]string{}
	for category, mark := range l.marks {
		out[string(category)] = mark.Format(model.LedgerFormat)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger folder: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
