package ledger

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windy-civi/toolkit/internal/layout"
)

func TestLoad_MissingFileStartsAtEpoch(t *testing.T) {
	l := Load(t.TempDir())

	want := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, l.Mark(CategoryEvents))
	assert.Equal(t, want, l.Mark(CategoryVoteEvents))
}

func TestLoad_CorruptFileStartsAtEpoch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(layout.MetaDir(root), 0o755))
	require.NoError(t, os.WriteFile(layout.LedgerFile(root), []byte("not json"), 0o644))

	l := Load(root)
	assert.True(t, l.IsNewer(CategoryEvents, time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestIsNewer_StrictlyAfter(t *testing.T) {
	l := Load(t.TempDir())
	mark := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	l.Advance(CategoryEvents, mark)

	assert.False(t, l.IsNewer(CategoryEvents, mark), "equal timestamps were already processed")
	assert.False(t, l.IsNewer(CategoryEvents, mark.Add(-time.Second)))
	assert.True(t, l.IsNewer(CategoryEvents, mark.Add(time.Second)))
}

func TestAdvance_NeverLowers(t *testing.T) {
	l := Load(t.TempDir())
	high := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	l.Advance(CategoryVoteEvents, high)
	l.Advance(CategoryVoteEvents, high.Add(-24*time.Hour))

	assert.Equal(t, high, l.Mark(CategoryVoteEvents))
}

func TestAdvance_CategoriesAreIndependent(t *testing.T) {
	l := Load(t.TempDir())
	l.Advance(CategoryEvents, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, l.IsNewer(CategoryVoteEvents, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFlush_RoundTrip(t *testing.T) {
	root := t.TempDir()

	l := Load(root)
	eventMark := time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC)
	voteMark := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	l.Advance(CategoryEvents, eventMark)
	l.Advance(CategoryVoteEvents, voteMark)
	require.NoError(t, l.Flush())

	reloaded := Load(root)
	assert.Equal(t, eventMark, reloaded.Mark(CategoryEvents))
	assert.Equal(t, voteMark, reloaded.Mark(CategoryVoteEvents))
}

func TestLoad_AcceptsCompactTimestamps(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(layout.MetaDir(root), 0o755))
	payload := `{"events": "20250105T103000Z", "vote_events": "2025-01-06T00:00:00"}`
	require.NoError(t, os.WriteFile(layout.LedgerFile(root), []byte(payload), 0o644))

	l := Load(root)
	assert.Equal(t, time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC), l.Mark(CategoryEvents))
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), l.Mark(CategoryVoteEvents))
}
