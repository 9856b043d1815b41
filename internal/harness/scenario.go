package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end pipeline test scenario.
// Each run in the scenario gets a fresh input batch against the same
// output repository, modeling consecutive scraper runs.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// State is the jurisdiction code processed.
	State string `yaml:"state"`

	// Sessions seeds the session mapping cache before the first run.
	// Keys are session identifiers.
	Sessions map[string]SessionSeed `yaml:"sessions,omitempty"`

	// Runs lists the consecutive pipeline runs to execute.
	Runs []RunStep `yaml:"runs"`
}

// SessionSeed is one cached session mapping entry.
type SessionSeed struct {
	Name       string `yaml:"name"`
	DateFolder string `yaml:"date_folder"`
}

// RunStep is one pipeline run with its input batch.
type RunStep struct {
	// Batch lists the input files for this run.
	Batch []BatchFile `yaml:"batch"`
}

// BatchFile is one scraped input file.
type BatchFile struct {
	// Name is the input filename; its prefix routes the record.
	Name string `yaml:"name"`

	// Content is the record payload, written as JSON.
	Content map[string]any `yaml:"content"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if scenario.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	if scenario.State == "" {
		return nil, fmt.Errorf("scenario %s: missing state", path)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %s: no runs", path)
	}
	return &scenario, nil
}
