// Package layout maps entities to their canonical locations in the
// file tree. Everything here is a pure function of its arguments; the
// tree shape is fixed and must stay byte-compatible with existing
// repositories.
package layout

import (
	"path/filepath"
	"strings"
)

// Well-known filenames inside a bill folder.
const (
	MetadataFile    = "metadata.json"
	PlaceholderFile = "placeholder.json"
	LogsDir         = "logs"
	FilesDir        = "files"
)

// Pipeline metadata lives under .windycivi at the repository root.
const (
	metaDirName        = ".windycivi"
	errorsDirName      = "errors"
	eventArchiveName   = "event_archive"
	sessionsFileName   = "sessions.json"
	billIndexFileName  = "bill_session_mapping.json"
	ledgerFileName     = "latest_timestamp_seen.txt"
	orphanFileName     = "orphaned_placeholders_tracking.json"
	runHistoryFileName = "run_history.db"
)

// DataPath builds the folder for one entity:
// <root>/country:us/state:<abbr>/sessions/<session>/<dataType>/<identifier>.
func DataPath(root, state, dataType, session, identifier string) string {
	return filepath.Join(
		root,
		"country:us",
		"state:"+strings.ToLower(state),
		"sessions",
		session,
		dataType,
		identifier,
	)
}

// BillFolder is the on-disk folder name for a bill identifier. Spaces
// are stripped so "HR 1" and "HR1" land in the same folder. Anything
// resolving a referenced identifier against the tree (or against an
// index keyed by folder names) must normalize through this.
func BillFolder(identifier string) string {
	return strings.ReplaceAll(identifier, " ", "")
}

// BillPath builds the folder for a bill.
func BillPath(root, state, session, identifier string) string {
	return DataPath(root, state, "bills", session, BillFolder(identifier))
}

// EventsDir builds the folder holding a session's event files. Events
// are flat files in the folder, not one folder per event.
func EventsDir(root, state, session string) string {
	return filepath.Join(
		root,
		"country:us",
		"state:"+strings.ToLower(state),
		"sessions",
		session,
		"events",
	)
}

// SessionsRoot is the folder containing every session for a state.
func SessionsRoot(root, state string) string {
	return filepath.Join(root, "country:us", "state:"+strings.ToLower(state), "sessions")
}

// MetaDir is the pipeline metadata folder.
func MetaDir(root string) string {
	return filepath.Join(root, metaDirName)
}

// ErrorsDir is the categorized error sink root.
func ErrorsDir(root string) string {
	return filepath.Join(MetaDir(root), errorsDirName)
}

// EventArchiveDir holds pending event records awaiting bill linking.
func EventArchiveDir(root string) string {
	return filepath.Join(ErrorsDir(root), eventArchiveName)
}

// SessionsFile is the session mapping cache.
func SessionsFile(root string) string {
	return filepath.Join(MetaDir(root), sessionsFileName)
}

// BillSessionIndexFile is the persisted bill-to-session index.
func BillSessionIndexFile(root string) string {
	return filepath.Join(MetaDir(root), billIndexFileName)
}

// LedgerFile is the persisted timestamp ledger.
func LedgerFile(root string) string {
	return filepath.Join(MetaDir(root), ledgerFileName)
}

// OrphanTrackingFile is the persisted orphan tracking map.
func OrphanTrackingFile(root string) string {
	return filepath.Join(ErrorsDir(root), orphanFileName)
}

// RunHistoryFile is the run summary database.
func RunHistoryFile(root string) string {
	return filepath.Join(MetaDir(root), runHistoryFileName)
}
