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
	"github.com/windy-civi/toolkit/internal/ledger"
	"github.com/windy-civi/toolkit/internal/model"
	"github.com/windy-civi/toolkit/internal/store"
)

// Gate-rejection sink categories. They mirror the reason a record was
// treated as not-newer.
const (
	sinkMissingVoteDate  = "from_is_newer_than_latest_missing_vote_date"
	sinkMissingEventDate = "from_is_newer_than_latest_missing_event_date"
	sinkTimestampParse   = "from_is_newer_than_latest_parse_error"
)

// Input is one accepted record from the batch, still tied to its
// source filename for routing and error reporting.
type Input struct {
	Filename string
	Record   model.Record
}

// Loader reads the input batch, drops undecodable files into the
// error sink, and pre-filters records the store has already seen:
// bills by action-count comparison, events and vote events by the
// timestamp ledger.
type Loader struct {
	State  string
	Store  *store.Store
	Sink   *store.ErrorSink
	Ledger *ledger.Ledger
}

// Load reads every .json file in inputDir in sorted order.
//
// Accepted event records are additionally copied into the event
// archive before routing, so the linking pipeline sees them even when
// routing later drops them; a stale missing-session artifact for the
// same filename is cleared at that point.
func (l *Loader) Load(inputDir string) ([]Input, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input folder: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var accepted []Input
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		// Jurisdiction manifests feed the session resolver, not the
		// entity pipeline.
		if strings.HasPrefix(name, "jurisdiction_") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(inputDir, name))
		if err != nil {
			slog.Error("unreadable input file", "file", name, "error", err)
			continue
		}

		var rec model.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			slog.Warn("skipping undecodable input file", "file", name)
			sinkErr := l.Sink.Record(store.CategoryInvalidJSON, name, model.Record{
				"error": "Could not parse JSON",
				"raw":   string(raw),
			}, name)
			if sinkErr != nil {
				slog.Error("failed to record invalid json", "file", name, "error", sinkErr)
			}
			continue
		}

		switch handlers.KindOf(name) {
		case handlers.KindBill:
			keep, err := l.billHasNews(rec)
			if err != nil {
				slog.Error("bill pre-filter failed", "file", name, "error", err)
				continue
			}
			if !keep {
				slog.Debug("bill unchanged, skipping", "file", name)
				continue
			}
		case handlers.KindVoteEvent:
			if !l.passesLedger(ledger.CategoryVoteEvents, name, rec) {
				continue
			}
		case handlers.KindEvent:
			if !l.passesLedger(ledger.CategoryEvents, name, rec) {
				continue
			}
			if err := l.archiveEvent(name, rec); err != nil {
				slog.Error("failed to archive event", "file", name, "error", err)
				continue
			}
		}

		accepted = append(accepted, Input{Filename: name, Record: rec})
	}

	return accepted, nil
}

// billHasNews applies the action-count pre-filter against the bill's
// persisted metadata. Conservative by design: a same-count edit is not
// detected.
func (l *Loader) billHasNews(rec model.Record) (bool, error) {
	identifier := rec.Identifier()
	if identifier == "" {
		// Leave the validation failure to the handler so the error
		// sink categorizes it.
		return true, nil
	}
	billDir := layout.BillPath(l.Store.Root, l.State, rec.Session(), identifier)
	existing, err := l.Store.LoadBillMetadata(billDir)
	if err != nil {
		return false, err
	}
	return handlers.ShouldProcessBill(existing, rec), nil
}

// passesLedger gates a record by its category's high-water mark. A
// record with an absent or unparseable date is rejected to the error
// sink and treated as not-newer.
func (l *Loader) passesLedger(category ledger.Category, filename string, rec model.Record) bool {
	missingCategory := sinkMissingEventDate
	if category == ledger.CategoryVoteEvents {
		missingCategory = sinkMissingVoteDate
	}

	date := rec.StartDate()
	if date == "" {
		slog.Warn("record has no start_date, rejecting", "file", filename, "category", category)
		if err := l.Sink.Record(missingCategory, filename, rec, filename); err != nil {
			slog.Error("failed to record gate rejection", "file", filename, "error", err)
		}
		return false
	}

	formatted, err := model.FormatTimestamp(date)
	if err != nil {
		slog.Warn("record has unparseable start_date, rejecting",
			"file", filename, "category", category, "start_date", date)
		if err := l.Sink.Record(sinkTimestampParse, filename, rec, filename); err != nil {
			slog.Error("failed to record gate rejection", "file", filename, "error", err)
		}
		return false
	}

	t, err := model.ParseTimestamp(formatted)
	if err != nil {
		return false
	}
	return l.Ledger.IsNewer(category, t)
}

// archiveEvent copies an accepted event into the pending archive and
// clears any stale missing-session artifact for the same file.
func (l *Loader) archiveEvent(filename string, rec model.Record) error {
	if err := l.Sink.Clear(store.CategoryMissingSession, filename); err != nil {
		return err
	}
	archivePath := filepath.Join(layout.EventArchiveDir(l.Store.Root), filename)
	return l.Store.WriteJSON(archivePath, rec)
}
