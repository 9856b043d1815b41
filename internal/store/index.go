package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

// BillSession locates the session a bill belongs to.
type BillSession struct {
	SessionID  string `json:"session_id"`
	DateFolder string `json:"date_folder"`
}

// BillSessionIndex maps bill folder names (layout.BillFolder of the
// identifier) to their sessions. The index is derived state: it can
// always be rebuilt from the tree, and the linking pipeline
// force-rebuilds it so bills written earlier in the same run are
// visible.
type BillSessionIndex map[string]BillSession

// BuildBillSessionIndex scans the tree for bill folders holding real
// metadata and maps each folder name to its session. Sessions absent
// from the mapping still index with an empty date folder. Iteration is
// sorted so repeated builds are identical.
func (s *Store) BuildBillSessionIndex(state string, sessions map[string]model.SessionInfo) (BillSessionIndex, error) {
	index := BillSessionIndex{}

	sessionsRoot := layout.SessionsRoot(s.Root, state)
	sessionDirs, err := sortedSubdirs(sessionsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("scan sessions: %w", err)
	}

	for _, sessionID := range sessionDirs {
		billsDir := filepath.Join(sessionsRoot, sessionID, "bills")
		billDirs, err := sortedSubdirs(billsDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan bills for session %s: %w", sessionID, err)
		}

		dateFolder := ""
		if info, ok := sessions[sessionID]; ok {
			dateFolder = info.DateFolder
		}

		for _, billID := range billDirs {
			metadataPath := filepath.Join(billsDir, billID, layout.MetadataFile)
			if _, err := os.Stat(metadataPath); err != nil {
				continue
			}
			index[billID] = BillSession{SessionID: sessionID, DateFolder: dateFolder}
		}
	}

	return index, nil
}

// RebuildBillSessionIndex rebuilds the index from the tree and
// persists it, replacing whatever was cached.
func (s *Store) RebuildBillSessionIndex(state string, sessions map[string]model.SessionInfo) (BillSessionIndex, error) {
	index, err := s.BuildBillSessionIndex(state, sessions)
	if err != nil {
		return nil, err
	}
	if err := s.WriteJSON(layout.BillSessionIndexFile(s.Root), index); err != nil {
		return nil, fmt.Errorf("persist bill-session index: %w", err)
	}
	return index, nil
}

func sortedSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
