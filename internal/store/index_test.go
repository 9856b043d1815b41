package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

func TestBuildBillSessionIndex_EmptyTree(t *testing.T) {
	st := newTestStore(t)

	index, err := st.BuildBillSessionIndex("il", nil)
	require.NoError(t, err)
	assert.Empty(t, index)
}

func TestBuildBillSessionIndex_SkipsPlaceholders(t *testing.T) {
	st := newTestStore(t)
	sessions := map[string]model.SessionInfo{
		"103": {Name: "103rd", DateFolder: "2023-2024"},
		"104": {Name: "104th", DateFolder: "2025-2026"},
	}

	writeBill := func(session, bill string) {
		dir := layout.BillPath(st.Root, "il", session, bill)
		require.NoError(t, st.WriteJSON(filepath.Join(dir, layout.MetadataFile), model.Record{"identifier": bill}))
	}
	writeBill("104", "HR1")
	writeBill("103", "SB2")
	require.NoError(t, st.EnsurePlaceholder(layout.BillPath(st.Root, "il", "104", "HR9"), "HR9"))

	index, err := st.BuildBillSessionIndex("il", sessions)
	require.NoError(t, err)

	assert.Equal(t, BillSession{SessionID: "104", DateFolder: "2025-2026"}, index["HR1"])
	assert.Equal(t, BillSession{SessionID: "103", DateFolder: "2023-2024"}, index["SB2"])
	_, found := index["HR9"]
	assert.False(t, found, "placeholder-only bills must not be linkable")
}

func TestBuildBillSessionIndex_SpacedIdentifierResolvesViaFolderName(t *testing.T) {
	st := newTestStore(t)
	dir := layout.BillPath(st.Root, "il", "104", "HR 1")
	require.NoError(t, st.WriteJSON(filepath.Join(dir, layout.MetadataFile), model.Record{"identifier": "HR 1"}))

	index, err := st.BuildBillSessionIndex("il", map[string]model.SessionInfo{
		"104": {Name: "104th", DateFolder: "2025-2027"},
	})
	require.NoError(t, err)

	// References carry the spaced upstream identifier; the index is
	// keyed by folder name, so lookups must normalize.
	_, raw := index["HR 1"]
	assert.False(t, raw)
	bs, ok := index[layout.BillFolder("HR 1")]
	require.True(t, ok)
	assert.Equal(t, "104", bs.SessionID)
}

func TestBuildBillSessionIndex_UnmappedSessionStillIndexes(t *testing.T) {
	st := newTestStore(t)
	dir := layout.BillPath(st.Root, "il", "999", "HR1")
	require.NoError(t, st.WriteJSON(filepath.Join(dir, layout.MetadataFile), model.Record{"identifier": "HR1"}))

	index, err := st.BuildBillSessionIndex("il", map[string]model.SessionInfo{})
	require.NoError(t, err)
	assert.Equal(t, BillSession{SessionID: "999", DateFolder: ""}, index["HR1"])
}

func TestRebuildBillSessionIndex_Persists(t *testing.T) {
	st := newTestStore(t)
	dir := layout.BillPath(st.Root, "il", "104", "HR1")
	require.NoError(t, st.WriteJSON(filepath.Join(dir, layout.MetadataFile), model.Record{"identifier": "HR1"}))

	_, err := st.RebuildBillSessionIndex("il", map[string]model.SessionInfo{
		"104": {Name: "104th", DateFolder: "2025-2026"},
	})
	require.NoError(t, err)

	var cached BillSessionIndex
	require.NoError(t, st.ReadJSON(layout.BillSessionIndexFile(st.Root), &cached))
	assert.Equal(t, BillSession{SessionID: "104", DateFolder: "2025-2026"}, cached["HR1"])

	// A later bill replaces the cached view wholesale.
	dir2 := layout.BillPath(st.Root, "il", "104", "SB5")
	require.NoError(t, st.WriteJSON(filepath.Join(dir2, layout.MetadataFile), model.Record{"identifier": "SB5"}))
	_, err = st.RebuildBillSessionIndex("il", nil)
	require.NoError(t, err)

	cached = BillSessionIndex{}
	require.NoError(t, st.ReadJSON(layout.BillSessionIndexFile(st.Root), &cached))
	assert.Len(t, cached, 2)
}
