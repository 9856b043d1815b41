package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
	"github.com/windy-civi/toolkit/internal/store"
	"github.com/windy-civi/toolkit/internal/testutil"
)

func loadTracking(t *testing.T, st *store.Store) map[string]model.OrphanRecord {
	t.Helper()
	tracking := map[string]model.OrphanRecord{}
	require.NoError(t, st.ReadJSON(layout.OrphanTrackingFile(st.Root), &tracking))
	return tracking
}

func TestReconcileOrphans_LifeCycle(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	clock := testutil.NewFixedClock(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	// A vote arrived for a bill nobody has seen: placeholder plus one
	// vote log.
	billDir := layout.BillPath(st.Root, "il", "104", "HR 9")
	require.NoError(t, st.EnsureBillScaffold(billDir))
	require.NoError(t, st.EnsurePlaceholder(billDir, "HR 9"))
	votePath := filepath.Join(billDir, layout.LogsDir, "20250106T000000Z_vote_event_fail.json")
	require.NoError(t, st.WriteJSON(votePath, model.Record{"result": "fail"}))

	stats, err := ReconcileOrphans(st, clock)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PlaceholdersFound)
	assert.Equal(t, 1, stats.NewOrphans)
	assert.Equal(t, 1, stats.Orphans)

	// Tracking is keyed by the on-disk folder name, not the spaced
	// upstream identifier.
	tracking := loadTracking(t, st)
	entry := tracking["HR9"]
	assert.Equal(t, "2025-01-10T00:00:00Z", entry.FirstSeen)
	assert.Equal(t, 1, entry.OccurrenceCount)
	assert.Equal(t, "104", entry.Session)
	assert.Equal(t, 1, entry.VoteCount)
	assert.False(t, entry.Chronic())

	// Still orphaned a day later: occurrence moves, first_seen does not.
	clock.Advance(24 * time.Hour)
	stats, err = ReconcileOrphans(st, clock)
	require.NoError(t, err)
	assert.Zero(t, stats.NewOrphans)

	entry = loadTracking(t, st)["HR9"]
	assert.Equal(t, "2025-01-10T00:00:00Z", entry.FirstSeen)
	assert.Equal(t, "2025-01-11T00:00:00Z", entry.LastSeen)
	assert.Equal(t, 2, entry.OccurrenceCount)

	// The real bill finally lands.
	require.NoError(t, st.WriteJSON(filepath.Join(billDir, layout.MetadataFile), model.Record{"identifier": "HR 9"}))
	clock.Advance(24 * time.Hour)
	stats, err = ReconcileOrphans(st, clock)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PlaceholdersDeleted)
	assert.Equal(t, 1, stats.ResolvedOrphans)
	assert.Zero(t, stats.Orphans)

	_, statErr := os.Stat(filepath.Join(billDir, layout.PlaceholderFile))
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, loadTracking(t, st))
}

func TestReconcileOrphans_ChronicAfterThreshold(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	clock := testutil.NewFixedClock(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	billDir := layout.BillPath(st.Root, "il", "104", "HR 9")
	require.NoError(t, st.EnsurePlaceholder(billDir, "HR 9"))

	for i := 0; i < model.ChronicThreshold; i++ {
		_, err := ReconcileOrphans(st, clock)
		require.NoError(t, err)
		clock.Advance(24 * time.Hour)
	}

	entry := loadTracking(t, st)["HR9"]
	assert.Equal(t, model.ChronicThreshold, entry.OccurrenceCount)
	assert.True(t, entry.Chronic())
}

func TestReconcileOrphans_EmptyTreeStillPersistsTracking(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	stats, err := ReconcileOrphans(st, testutil.NewFixedClock(time.Now()))
	require.NoError(t, err)
	assert.Zero(t, stats.PlaceholdersFound)

	// The tracking file is written even when empty, so downstream
	// consumers always find it.
	assert.Empty(t, loadTracking(t, st))
}
