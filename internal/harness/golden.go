package harness

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TreeSnapshot is the deterministic serialization of a final file
// tree. Only the data tree (country:us/...) is captured; pipeline
// metadata under .windycivi varies with the host and is asserted
// separately where needed.
type TreeSnapshot struct {
	// Dirs lists every directory, including empty scaffolding like
	// files/.
	Dirs []string `json:"dirs"`

	// Files maps relative paths to parsed JSON content.
	Files map[string]any `json:"files"`
}

// Snapshot walks the data tree under root and captures it.
func Snapshot(root string) (*TreeSnapshot, error) {
	snapshot := &TreeSnapshot{Files: map[string]any{}}

	dataRoot := filepath.Join(root, "country:us")
	err := filepath.WalkDir(dataRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dataRoot {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			snapshot.Dirs = append(snapshot.Dirs, rel)
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var parsed any
		if err := json.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("snapshot: %s is not JSON: %w", rel, err)
		}
		snapshot.Files[rel] = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(snapshot.Dirs)
	return snapshot, nil
}

// Marshal renders the snapshot as indented JSON with sorted keys.
func (s *TreeSnapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// RunWithGolden executes a scenario and compares the final tree
// against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, t.TempDir())
	if err != nil {
		return nil, err
	}

	snapshot, err := Snapshot(result.OutputDir)
	if err != nil {
		return nil, err
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
