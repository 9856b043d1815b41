package pipeline

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/windy-civi/toolkit/internal/handlers"
	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
	"github.com/windy-civi/toolkit/internal/store"
)

// OrphanStats summarizes one reconciliation pass over the
// placeholders in the tree.
type OrphanStats struct {
	PlaceholdersFound   int
	PlaceholdersDeleted int
	Orphans             int
	NewOrphans          int
	ResolvedOrphans     int
}

// ReconcileOrphans runs once after all other processing.
//
// Every placeholder whose bill folder now holds real metadata is
// deleted and, if tracked, counted as resolved. Every placeholder
// still standing alone is upserted into the tracking map: first_seen
// is set once and kept, last_seen and occurrence_count move forward,
// and the associated vote/event counts are recomputed from the logs
// folder. The tracking map is persisted in full at the end of the
// pass.
func ReconcileOrphans(st *store.Store, clock handlers.Clock) (OrphanStats, error) {
	var stats OrphanStats

	tracking := map[string]model.OrphanRecord{}
	trackingFile := layout.OrphanTrackingFile(st.Root)
	if err := st.ReadJSON(trackingFile, &tracking); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("unreadable orphan tracking file, starting fresh", "error", err)
		}
		tracking = map[string]model.OrphanRecord{}
	}

	now := model.ProcessingTimestamp(clock.Now())

	err := filepath.WalkDir(st.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".windycivi" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Name() != layout.PlaceholderFile {
			return nil
		}

		billDir := filepath.Dir(path)
		if filepath.Base(filepath.Dir(billDir)) != "bills" {
			return nil
		}
		stats.PlaceholdersFound++

		billID := filepath.Base(billDir)
		sessionID := filepath.Base(filepath.Dir(filepath.Dir(billDir)))

		if _, statErr := os.Stat(filepath.Join(billDir, layout.MetadataFile)); statErr == nil {
			// The real bill arrived; the placeholder is superseded.
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return rmErr
			}
			stats.PlaceholdersDeleted++
			if _, tracked := tracking[billID]; tracked {
				stats.ResolvedOrphans++
				slog.Info("orphan resolved", "bill", billID,
					"runs_orphaned", tracking[billID].OccurrenceCount)
				delete(tracking, billID)
			}
			return nil
		}

		voteCount, eventCount := countLogEntries(filepath.Join(billDir, layout.LogsDir))
		relPath, relErr := filepath.Rel(st.Root, billDir)
		if relErr != nil {
			relPath = billDir
		}

		if entry, tracked := tracking[billID]; tracked {
			entry.LastSeen = now
			entry.OccurrenceCount++
			entry.VoteCount = voteCount
			entry.EventCount = eventCount
			tracking[billID] = entry
			if entry.Chronic() {
				slog.Warn("chronic orphan", "bill", billID, "session", sessionID,
					"occurrences", entry.OccurrenceCount)
			}
		} else {
			tracking[billID] = model.OrphanRecord{
				FirstSeen:       now,
				LastSeen:        now,
				OccurrenceCount: 1,
				Session:         sessionID,
				VoteCount:       voteCount,
				EventCount:      eventCount,
				Path:            relPath,
			}
			stats.NewOrphans++
			slog.Info("new orphan", "bill", billID, "session", sessionID,
				"votes", voteCount, "events", eventCount)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	stats.Orphans = len(tracking)
	if err := st.WriteJSON(trackingFile, tracking); err != nil {
		return stats, err
	}
	return stats, nil
}

// countLogEntries tallies vote and event log files under a bill's
// logs folder by filename substring.
func countLogEntries(logsDir string) (votes, events int) {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return 0, 0
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		switch {
		case strings.Contains(name, "vote"):
			votes++
		case strings.Contains(name, "event"):
			events++
		}
	}
	return votes, events
}
