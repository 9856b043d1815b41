package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windy-civi/toolkit/internal/layout"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seedRepo creates a repository with a session cache so format runs
// never reach the external session source.
func seedRepo(t *testing.T) (inputDir, outputDir string) {
	t.Helper()
	dir := t.TempDir()
	inputDir = filepath.Join(dir, "input")
	outputDir = filepath.Join(dir, "output")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))
	require.NoError(t, os.MkdirAll(layout.MetaDir(outputDir), 0o755))
	cache := `{"104": {"name": "104th General Assembly", "date_folder": "2025-2027"}}`
	require.NoError(t, os.WriteFile(layout.SessionsFile(outputDir), []byte(cache), 0o644))
	return inputDir, outputDir
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "sessions", "--output", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestFormatCommand_RequiresFlags(t *testing.T) {
	_, err := execute(t, "format")
	require.Error(t, err)
}

func TestFormatCommand_RunsPipeline(t *testing.T) {
	inputDir, outputDir := seedRepo(t)
	payload := `{"identifier": "HR 1", "legislative_session": "104", "title": "An act",
		"actions": [{"description": "First reading", "date": "2025-01-05"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "bill_HR1.json"), []byte(payload), 0o644))

	out, err := execute(t, "format", "--state", "il", "--input", inputDir, "--output", outputDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Bills saved:          1")

	_, statErr := os.Stat(filepath.Join(
		layout.BillPath(outputDir, "il", "104", "HR 1"), layout.MetadataFile))
	assert.NoError(t, statErr)

	// The run landed in the history database.
	_, statErr = os.Stat(layout.RunHistoryFile(outputDir))
	assert.NoError(t, statErr)
}

func TestFormatCommand_MissingInputIsCommandError(t *testing.T) {
	_, outputDir := seedRepo(t)
	_, err := execute(t, "format", "--state", "il",
		"--input", filepath.Join(outputDir, "nope"), "--output", outputDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSessionsCommand(t *testing.T) {
	_, outputDir := seedRepo(t)

	out, err := execute(t, "sessions", "--output", outputDir)
	require.NoError(t, err)
	assert.Contains(t, out, "104")
	assert.Contains(t, out, "2025-2027")
}

func TestSessionsCommand_NoCache(t *testing.T) {
	_, err := execute(t, "sessions", "--output", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOrphansCommand_EmptyTracking(t *testing.T) {
	out, err := execute(t, "orphans", "--output", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No orphaned bills tracked.")
}

func TestOrphansCommand_JSON(t *testing.T) {
	outputDir := t.TempDir()
	require.NoError(t, os.MkdirAll(layout.ErrorsDir(outputDir), 0o755))
	tracking := `{"HR 9": {"first_seen": "2025-01-10T00:00:00Z", "last_seen": "2025-01-12T00:00:00Z",
		"occurrence_count": 3, "session": "104", "vote_count": 1, "event_count": 0,
		"path": "country:us/state:il/sessions/104/bills/HR9"}}`
	require.NoError(t, os.WriteFile(layout.OrphanTrackingFile(outputDir), []byte(tracking), 0o644))

	out, err := execute(t, "--format", "json", "orphans", "--output", outputDir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestOrphansCommand_ChronicFilter(t *testing.T) {
	outputDir := t.TempDir()
	require.NoError(t, os.MkdirAll(layout.ErrorsDir(outputDir), 0o755))
	tracking := `{
		"HR 9": {"first_seen": "a", "last_seen": "b", "occurrence_count": 3, "session": "104"},
		"SB 2": {"first_seen": "a", "last_seen": "b", "occurrence_count": 1, "session": "104"}
	}`
	require.NoError(t, os.WriteFile(layout.OrphanTrackingFile(outputDir), []byte(tracking), 0o644))

	out, err := execute(t, "orphans", "--output", outputDir, "--chronic")
	require.NoError(t, err)
	assert.Contains(t, out, "HR 9")
	assert.NotContains(t, out, "SB 2")
}

func TestRunsCommand_NoHistory(t *testing.T) {
	_, err := execute(t, "runs", "--output", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
