package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestNew_CreatesMetaFolders(t *testing.T) {
	st := newTestStore(t)

	for _, dir := range []string{
		layout.MetaDir(st.Root),
		layout.ErrorsDir(st.Root),
		layout.EventArchiveDir(st.Root),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestWriteJSON_CreatesParents(t *testing.T) {
	st := newTestStore(t)

	path := filepath.Join(st.Root, "a", "b", "c.json")
	require.NoError(t, st.WriteJSON(path, map[string]string{"k": "v"}))

	var out map[string]string
	require.NoError(t, st.ReadJSON(path, &out))
	assert.Equal(t, "v", out["k"])
}

func TestLoadBillMetadata_MissingIsNil(t *testing.T) {
	st := newTestStore(t)

	rec, err := st.LoadBillMetadata(filepath.Join(st.Root, "nope"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLoadBillMetadata_RoundTrip(t *testing.T) {
	st := newTestStore(t)

	billDir := layout.BillPath(st.Root, "il", "104", "HR1")
	require.NoError(t, st.WriteJSON(filepath.Join(billDir, layout.MetadataFile), model.Record{"identifier": "HR1"}))

	rec, err := st.LoadBillMetadata(billDir)
	require.NoError(t, err)
	assert.Equal(t, "HR1", rec.Identifier())
}

func TestEnsureBillScaffold(t *testing.T) {
	st := newTestStore(t)

	billDir := layout.BillPath(st.Root, "il", "104", "HR1")
	require.NoError(t, st.EnsureBillScaffold(billDir))

	for _, sub := range []string{layout.LogsDir, layout.FilesDir} {
		info, err := os.Stat(filepath.Join(billDir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

// =============================================================================
// Placeholder Manager
// =============================================================================

func TestEnsurePlaceholder_CreatesWhenBillMissing(t *testing.T) {
	st := newTestStore(t)
	billDir := layout.BillPath(st.Root, "il", "104", "HR9")

	require.NoError(t, st.EnsurePlaceholder(billDir, "HR9"))

	var ph model.Placeholder
	require.NoError(t, st.ReadJSON(filepath.Join(billDir, layout.PlaceholderFile), &ph))
	assert.Equal(t, "HR9", ph.Identifier)
	assert.True(t, ph.Placeholder)
}

func TestEnsurePlaceholder_NeverOverwrites(t *testing.T) {
	st := newTestStore(t)
	billDir := layout.BillPath(st.Root, "il", "104", "HR9")

	require.NoError(t, st.EnsurePlaceholder(billDir, "HR9"))
	before, err := os.ReadFile(filepath.Join(billDir, layout.PlaceholderFile))
	require.NoError(t, err)

	require.NoError(t, st.EnsurePlaceholder(billDir, "HR9"))
	after, err := os.ReadFile(filepath.Join(billDir, layout.PlaceholderFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEnsurePlaceholder_SkipsWhenBillExists(t *testing.T) {
	st := newTestStore(t)
	billDir := layout.BillPath(st.Root, "il", "104", "HR9")
	require.NoError(t, st.WriteJSON(filepath.Join(billDir, layout.MetadataFile), model.Record{"identifier": "HR9"}))

	require.NoError(t, st.EnsurePlaceholder(billDir, "HR9"))

	_, err := os.Stat(filepath.Join(billDir, layout.PlaceholderFile))
	assert.True(t, os.IsNotExist(err), "placeholder must not be written next to real metadata")
}
