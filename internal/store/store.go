package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
)

// Store writes and reads the legislative file tree rooted at Root.
type Store struct {
	Root string
}

// New creates a store rooted at root and guarantees the pipeline
// metadata folders exist.
func New(root string) (*Store, error) {
	for _, dir := range []string{
		layout.MetaDir(root),
		layout.ErrorsDir(root),
		layout.EventArchiveDir(root),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{Root: root}, nil
}

// WriteJSON marshals v with two-space indentation and writes it to
// path, creating parent folders as needed.
func (s *Store) WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON unmarshals the file at path into v.
func (s *Store) ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// EnsureBillScaffold guarantees the logs/ and files/ subfolders exist
// under a bill folder. Runs after every successful bill write, whether
// or not new actions were found; files/ is consumed by the external
// text-extraction collaborator.
func (s *Store) EnsureBillScaffold(billDir string) error {
	for _, sub := range []string{layout.LogsDir, layout.FilesDir} {
		if err := os.MkdirAll(filepath.Join(billDir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Join(billDir, sub), err)
		}
	}
	return nil
}

// LoadBillMetadata reads a bill's persisted metadata.json. Returns
// (nil, nil) when the bill has not been seen yet.
func (s *Store) LoadBillMetadata(billDir string) (model.Record, error) {
	path := filepath.Join(billDir, layout.MetadataFile)
	var rec model.Record
	if err := s.ReadJSON(path, &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load bill metadata: %w", err)
	}
	return rec, nil
}

// EnsurePlaceholder writes a placeholder record into a bill folder
// referenced before the bill itself arrived.
//
// Idempotent both ways: a real metadata.json suppresses the write, and
// an existing placeholder is never overwritten. Arrival order between a
// bill and its votes or events therefore never fails, it only opens an
// eventual-consistency window closed by orphan reconciliation.
func (s *Store) EnsurePlaceholder(billDir, identifier string) error {
	if _, err := os.Stat(filepath.Join(billDir, layout.MetadataFile)); err == nil {
		return nil
	}
	placeholderPath := filepath.Join(billDir, layout.PlaceholderFile)
	if _, err := os.Stat(placeholderPath); err == nil {
		return nil
	}
	return s.WriteJSON(placeholderPath, model.Placeholder{
		Identifier:  identifier,
		Placeholder: true,
	})
}
