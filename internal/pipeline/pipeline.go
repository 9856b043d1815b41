package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/windy-civi/toolkit/internal/handlers"
	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/ledger"
	"github.com/windy-civi/toolkit/internal/runlog"
	"github.com/windy-civi/toolkit/internal/session"
	"github.com/windy-civi/toolkit/internal/store"
)

// Options configures one pipeline run.
type Options struct {
	// State is the jurisdiction code (e.g. "il", "usa").
	State string

	// InputDir holds the scraped batch.
	InputDir string

	// OutputDir is the repository root the tree is written under.
	OutputDir string

	// Clock supplies processing timestamps. Defaults to the system
	// clock; tests substitute a deterministic one.
	Clock handlers.Clock

	// Fetcher is the external session source fallback. Optional.
	Fetcher session.Fetcher

	// RunID overrides the generated run token. Used in tests.
	RunID string

	// SkipRunHistory disables the run history database. The engine
	// never reads the history back, so skipping it only affects
	// reporting.
	SkipRunHistory bool
}

// Summary reports what one run did.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Bills      int
	VoteEvents int
	Events     int
	Dropped    int

	Linking LinkStats
	Orphans OrphanStats
}

// Run executes the full reconciliation pipeline: load, route and
// merge, persist, link archived events, reconcile placeholders, flush.
//
// Only an unreadable input folder or session mapping aborts; every
// other failure is per-record and the batch continues.
func Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary

	clock := opts.Clock
	if clock == nil {
		clock = handlers.SystemClock{}
	}
	summary.RunID = opts.RunID
	if summary.RunID == "" {
		summary.RunID = uuid.Must(uuid.NewV7()).String()
	}
	summary.StartedAt = clock.Now()

	info, err := os.Stat(opts.InputDir)
	if err != nil || !info.IsDir() {
		return summary, fmt.Errorf("input folder does not exist: %s", opts.InputDir)
	}

	st, err := store.New(opts.OutputDir)
	if err != nil {
		return summary, err
	}
	sink := store.NewErrorSink(layout.ErrorsDir(st.Root))
	led := ledger.Load(st.Root)
	slog.Info("run starting", "run_id", summary.RunID, "state", opts.State,
		"events_mark", led.Mark(ledger.CategoryEvents),
		"vote_events_mark", led.Mark(ledger.CategoryVoteEvents))

	resolver := session.New(layout.SessionsFile(st.Root), opts.Fetcher)
	if err := resolver.EnsureMapping(ctx, opts.State, opts.InputDir); err != nil {
		return summary, fmt.Errorf("session mapping: %w", err)
	}

	loader := &Loader{State: opts.State, Store: st, Sink: sink, Ledger: led}
	inputs, err := loader.Load(opts.InputDir)
	if err != nil {
		return summary, err
	}
	slog.Info("batch loaded", "accepted", len(inputs))

	h := &handlers.Handlers{
		State:  opts.State,
		Store:  st,
		Sink:   sink,
		Ledger: led,
		Clock:  clock,
	}

	for _, input := range inputs {
		if err := route(h, resolver, sink, input); err != nil {
			summary.Dropped++
			if handlers.IsRecordError(err) {
				slog.Debug("record dropped", "file", input.Filename, "reason", err)
			} else {
				slog.Error("record failed", "file", input.Filename, "error", err)
			}
			continue
		}
		switch handlers.KindOf(input.Filename) {
		case handlers.KindBill:
			summary.Bills++
		case handlers.KindVoteEvent:
			summary.VoteEvents++
		case handlers.KindEvent:
			summary.Events++
		}
	}

	// The ledger flushes exactly once per run, after routing. A crash
	// before this point reprocesses the batch instead of losing it.
	if err := led.Flush(); err != nil {
		return summary, err
	}

	summary.Linking, err = (&Linker{
		State:    opts.State,
		Store:    st,
		Sink:     sink,
		Handlers: h,
	}).Run()
	if err != nil {
		return summary, err
	}

	summary.Orphans, err = ReconcileOrphans(st, clock)
	if err != nil {
		return summary, err
	}

	summary.FinishedAt = clock.Now()
	if !opts.SkipRunHistory {
		recordRunHistory(ctx, st.Root, opts.State, summary)
	}

	slog.Info("run complete", "run_id", summary.RunID,
		"bills", summary.Bills, "vote_events", summary.VoteEvents, "events", summary.Events,
		"linked", summary.Linking.Linked, "deferred", summary.Linking.Deferred,
		"placeholders_deleted", summary.Orphans.PlaceholdersDeleted,
		"orphans", summary.Orphans.Orphans)
	return summary, nil
}

// route checks a record's session and dispatches it to its handler.
// Events failing the session checks have already been archived by the
// loader, so the linking pipeline can still resolve them through their
// referenced bill.
func route(h *handlers.Handlers, resolver *session.Resolver, sink *store.ErrorSink, input Input) error {
	rec := input.Record
	if !rec.HasSession() {
		if err := sink.Record(store.CategoryMissingSession, input.Filename, rec, ""); err != nil {
			return err
		}
		return handlers.NewMissingSessionError(input.Filename)
	}
	if _, ok := resolver.Resolve(rec.Session()); !ok {
		if err := sink.Record(store.CategoryUnknownSession, input.Filename, rec, ""); err != nil {
			return err
		}
		return handlers.NewUnknownSessionError(input.Filename, rec.Session())
	}

	switch handlers.KindOf(input.Filename) {
	case handlers.KindBill:
		return h.HandleBill(input.Filename, rec)
	case handlers.KindVoteEvent:
		return h.HandleVoteEvent(input.Filename, rec)
	case handlers.KindEvent:
		return h.HandleEvent(input.Filename, rec, nil)
	default:
		slog.Warn("unrecognized file type", "file", input.Filename)
		return nil
	}
}

// recordRunHistory appends the run summary to the history database.
// Best effort: history is reporting-only and never fails the run.
func recordRunHistory(ctx context.Context, root, state string, summary Summary) {
	hist, err := runlog.Open(layout.RunHistoryFile(root))
	if err != nil {
		slog.Error("run history unavailable", "error", err)
		return
	}
	defer hist.Close()

	err = hist.RecordRun(ctx, runlog.Record{
		ID:                  summary.RunID,
		Jurisdiction:        state,
		StartedAt:           summary.StartedAt,
		FinishedAt:          summary.FinishedAt,
		Bills:               summary.Bills,
		VoteEvents:          summary.VoteEvents,
		Events:              summary.Events,
		LinkedEvents:        summary.Linking.Linked,
		DeferredEvents:      summary.Linking.Deferred,
		PlaceholdersDeleted: summary.Orphans.PlaceholdersDeleted,
		Orphans:             summary.Orphans.Orphans,
	})
	if err != nil {
		slog.Error("failed to record run history", "error", err)
	}
}
