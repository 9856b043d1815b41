package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/windy-civi/toolkit/internal/handlers"
	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
	"github.com/windy-civi/toolkit/internal/session"
	"github.com/windy-civi/toolkit/internal/store"
)

// linkState tracks one archived event through the bounded retry state
// machine: Pending -> Linked | Skipped -> (retry once) -> Linked |
// Deferred. Deferred records stay in the archive for the next run, so
// linking is at-least-once as long as the referenced bill eventually
// appears.
type linkState int

const (
	statePending linkState = iota
	stateLinked
	stateSkipped
	stateDeferred
)

// pendingEvent is one archived event record in flight through the
// linker.
type pendingEvent struct {
	filename string
	record   model.Record
	billIDs  []string
	state    linkState
}

// LinkStats summarizes one linking pass over the archive.
type LinkStats struct {
	Considered int
	Linked     int
	Deferred   int
}

// Linker resolves archived event records to their bill's session and
// materializes them into the tree.
type Linker struct {
	State    string
	Store    *store.Store
	Sink     *store.ErrorSink
	Handlers *handlers.Handlers
}

// Run executes both linking passes over the event archive.
//
// The bill-to-session index is rebuilt fresh at the start, and rebuilt
// again between passes so bills written earlier in the same run become
// visible to the retry. Exactly one retry pass runs; whatever it
// cannot resolve is deferred to the next run.
func (l *Linker) Run() (LinkStats, error) {
	var stats LinkStats

	pending, err := l.loadArchive()
	if err != nil {
		return stats, err
	}
	if len(pending) == 0 {
		return stats, nil
	}
	stats.Considered = len(pending)

	sessions, err := session.LoadMapping(layout.SessionsFile(l.Store.Root))
	if err != nil {
		return stats, fmt.Errorf("linking pipeline: %w", err)
	}

	index, err := l.Store.RebuildBillSessionIndex(l.State, sessions)
	if err != nil {
		return stats, err
	}

	l.pass(pending, index)

	if countState(pending, stateSkipped) > 0 {
		index, err = l.Store.RebuildBillSessionIndex(l.State, sessions)
		if err != nil {
			return stats, err
		}
		l.pass(pending, index)
	}

	for _, ev := range pending {
		switch ev.state {
		case stateLinked:
			stats.Linked++
		case stateSkipped, stateDeferred:
			ev.state = stateDeferred
			stats.Deferred++
			slog.Debug("event deferred to next run", "file", ev.filename, "bills", ev.billIDs)
		}
	}

	slog.Info("event linking complete",
		"considered", stats.Considered, "linked", stats.Linked, "deferred", stats.Deferred)
	return stats, nil
}

// pass attempts to link every record still pending or skipped.
// A record referencing multiple bills links to the first identifier,
// in its own list order, that resolves; the remaining references are
// not separately materialized.
func (l *Linker) pass(pending []*pendingEvent, index store.BillSessionIndex) {
	for _, ev := range pending {
		if ev.state != statePending && ev.state != stateSkipped {
			continue
		}
		if len(ev.billIDs) == 0 {
			ev.state = stateDeferred
			continue
		}

		linked := false
		for _, billID := range ev.billIDs {
			// The index is keyed by folder name; references carry the
			// spaced upstream identifier.
			bs, ok := index[layout.BillFolder(billID)]
			if !ok {
				continue
			}
			if err := l.link(ev, billID, bs.SessionID); err != nil {
				slog.Error("failed to link event, keeping in archive",
					"file", ev.filename, "bill", billID, "error", err)
				continue
			}
			linked = true
			break
		}

		if linked {
			ev.state = stateLinked
		} else {
			ev.state = stateSkipped
		}
	}
}

// link materializes one event into its bill's session folder, removes
// the archived copy, and clears any stale missing-session artifact.
func (l *Linker) link(ev *pendingEvent, billID, sessionID string) error {
	err := l.Handlers.HandleEvent(ev.filename, ev.record, &handlers.EventLink{
		SessionID: sessionID,
		BillID:    billID,
	})
	if err != nil {
		return err
	}

	archivePath := filepath.Join(layout.EventArchiveDir(l.Store.Root), ev.filename)
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove archived event %s: %w", ev.filename, err)
	}
	return l.Sink.Clear(store.CategoryMissingSession, ev.filename)
}

// loadArchive reads every pending event record, in sorted order.
// Undecodable archive entries are left in place and logged; they will
// be retried next run.
func (l *Linker) loadArchive() ([]*pendingEvent, error) {
	archiveDir := layout.EventArchiveDir(l.Store.Root)
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read event archive: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var pending []*pendingEvent
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(archiveDir, name))
		if err != nil {
			slog.Error("unreadable archived event", "file", name, "error", err)
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Error("undecodable archived event", "file", name, "error", err)
			continue
		}
		pending = append(pending, &pendingEvent{
			filename: name,
			record:   rec,
			billIDs:  rec.BillIdentifiers(),
			state:    statePending,
		})
	}
	return pending, nil
}

func countState(pending []*pendingEvent, s linkState) int {
	n := 0
	for _, ev := range pending {
		if ev.state == s {
			n++
		}
	}
	return n
}
