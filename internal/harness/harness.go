package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
	"github.com/windy-civi/toolkit/internal/pipeline"
	"github.com/windy-civi/toolkit/internal/testutil"
)

// scenarioEpoch pins the harness clock. Every scenario starts here and
// advances one day per run, so processing stamps are reproducible.
var scenarioEpoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Result captures the outcome of running a scenario.
type Result struct {
	// OutputDir is the repository root the runs wrote into.
	OutputDir string

	// Summaries holds one pipeline summary per run, in order.
	Summaries []pipeline.Summary
}

// Run executes every run in the scenario against a shared output
// repository under workDir, one input folder per run.
func Run(scenario *Scenario, workDir string) (*Result, error) {
	outputDir := filepath.Join(workDir, "repo")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	if len(scenario.Sessions) > 0 {
		if err := seedSessions(scenario, outputDir); err != nil {
			return nil, err
		}
	}

	clock := testutil.NewFixedClock(scenarioEpoch)
	result := &Result{OutputDir: outputDir}

	for i, run := range scenario.Runs {
		inputDir := filepath.Join(workDir, fmt.Sprintf("input-%d", i+1))
		if err := writeBatch(run.Batch, inputDir); err != nil {
			return nil, err
		}

		summary, err := pipeline.Run(context.Background(), pipeline.Options{
			State:          scenario.State,
			InputDir:       inputDir,
			OutputDir:      outputDir,
			Clock:          clock,
			RunID:          fmt.Sprintf("%s-run-%d", scenario.Name, i+1),
			SkipRunHistory: true,
		})
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		result.Summaries = append(result.Summaries, summary)
		clock.Advance(24 * time.Hour)
	}

	return result, nil
}

// seedSessions writes the session mapping cache so scenarios do not
// depend on manifests or the external source.
func seedSessions(scenario *Scenario, outputDir string) error {
	mapping := map[string]model.SessionInfo{}
	for id, seed := range scenario.Sessions {
		mapping[id] = model.SessionInfo{Name: seed.Name, DateFolder: seed.DateFolder}
	}
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session seed: %w", err)
	}
	path := layout.SessionsFile(outputDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session cache folder: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// writeBatch materializes one run's input files as JSON.
func writeBatch(batch []BatchFile, inputDir string) error {
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		return fmt.Errorf("create input dir: %w", err)
	}
	for _, file := range batch {
		data, err := json.MarshalIndent(file.Content, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal batch file %s: %w", file.Name, err)
		}
		if err := os.WriteFile(filepath.Join(inputDir, file.Name), data, 0o644); err != nil {
			return fmt.Errorf("write batch file %s: %w", file.Name, err)
		}
	}
	return nil
}
