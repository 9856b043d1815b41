package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/windy-civi/toolkit/internal/model"
)

// Error sink categories. Each category is a subfolder under
// .windycivi/errors holding the dropped records.
const (
	CategoryInvalidJSON    = "invalid_json"
	CategoryMissingSession = "missing_session"
	CategoryUnknownSession = "unknown_session"
)

// ErrorSink persists dropped records into categorized folders.
// Dropped records are never retried automatically; correction requires
// the problem to be fixed in a future run's input.
type ErrorSink struct {
	Dir string
}

// NewErrorSink creates a sink rooted at dir.
func NewErrorSink(dir string) *ErrorSink {
	return &ErrorSink{Dir: dir}
}

// Record writes a dropped record under category/filename.
//
// Records carrying a name field are deduplicated against the names
// already present in the category so identical error records are not
// rewritten run after run. The original filename is kept on the record
// for traceability.
func (e *ErrorSink) Record(category, filename string, data model.Record, originalFilename string) error {
	folder := filepath.Join(e.Dir, category)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create error category %s: %w", category, err)
	}

	if name := data.String("name"); name != "" {
		seen, err := recordedNames(folder)
		if err != nil {
			return err
		}
		if seen[name] {
			return nil
		}
	}

	out := model.Record{}
	for k, v := range data {
		out[k] = v
	}
	if originalFilename != "" {
		out["_original_filename"] = originalFilename
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal error record %s: %w", filename, err)
	}
	if err := os.WriteFile(filepath.Join(folder, filename), payload, 0o644); err != nil {
		return fmt.Errorf("write error record %s: %w", filename, err)
	}
	return nil
}

// Clear removes a stale error artifact for filename in category.
// Missing artifacts are a no-op.
func (e *ErrorSink) Clear(category, filename string) error {
	err := os.Remove(filepath.Join(e.Dir, category, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear error record %s/%s: %w", category, filename, err)
	}
	return nil
}

// recordedNames collects the name fields of every record already in
// the folder. Unreadable entries are skipped, not fatal.
func recordedNames(folder string) (map[string]bool, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("scan error folder %s: %w", folder, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	names := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(folder, entry.Name()))
		if err != nil {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if name := rec.String("name"); name != "" {
			names[name] = true
		}
	}
	return names, nil
}
