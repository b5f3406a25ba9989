package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dustinober1/3x1-Project/internal/config"
)

// Scenario defines one scripted session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides the harness defaults.
	Config ScenarioConfig `yaml:"config"`

	// Preload lists integers committed before the session starts.
	Preload []config.BigInt `yaml:"preload,omitempty"`

	// PreloadStats is installed as the all-time record before the session.
	PreloadStats *StatsSpec `yaml:"preload_stats,omitempty"`

	// Values are returned by the sampler in order; the last repeats.
	// When empty the uniform sampler is used with Config.Seed.
	Values []config.BigInt `yaml:"values,omitempty"`

	// FailCheckpoints makes the first N checkpoint transactions fail.
	// A negative value fails all of them.
	FailCheckpoints int `yaml:"fail_checkpoints,omitempty"`

	// Expect lists the checks applied to the summary.
	Expect Expect `yaml:"expect"`
}

// ScenarioConfig is the subset of config.Config a scenario may set.
// Zero fields keep the harness defaults.
type ScenarioConfig struct {
	Target             int64         `yaml:"target"`
	Min                config.BigInt `yaml:"min"`
	Max                config.BigInt `yaml:"max"`
	Cutoff             int64         `yaml:"cutoff"`
	CheckpointFraction float64       `yaml:"checkpoint_fraction"`
	AttemptMultiplier  int64         `yaml:"attempt_multiplier"`
	TopN               int           `yaml:"top_n"`
	Seed               int64         `yaml:"seed"`
}

// StatsSpec describes an all-time record in scenario files.
type StatsSpec struct {
	LongestSteps int64         `yaml:"longest_steps"`
	LongestValue config.BigInt `yaml:"longest_value"`
	Peak         config.BigInt `yaml:"peak"`
	PeakSource   config.BigInt `yaml:"peak_source"`
	TotalSteps   int64         `yaml:"total_steps"`
	TotalNumbers int64         `yaml:"total_numbers"`
}

// Expect holds optional checks. Nil fields are not checked.
type Expect struct {
	State             *string `yaml:"state,omitempty"`
	NewTests          *int64  `yaml:"new_tests,omitempty"`
	DuplicatesSkipped *int64  `yaml:"duplicates_skipped,omitempty"`
	Attempts          *int64  `yaml:"attempts,omitempty"`
	FinalCount        *int64  `yaml:"final_count,omitempty"`
	Checkpoints       *int    `yaml:"checkpoints,omitempty"`
	FailedCheckpoints *int    `yaml:"failed_checkpoints,omitempty"`
	Lost              *int    `yaml:"lost,omitempty"`
	CutoffHits        *int64  `yaml:"cutoff_hits,omitempty"`
	AttemptCapReached *bool   `yaml:"attempt_cap_reached,omitempty"`
	Error             *bool   `yaml:"error,omitempty"`

	// AllTime is a subset match against the stored record.
	AllTime *StatsSpec `yaml:"all_time,omitempty"`

	// TopLongest lists the expected starting values, in order.
	TopLongest []config.BigInt `yaml:"top_longest,omitempty"`

	// Batches lists the expected committed checkpoint sizes, in order.
	Batches []int `yaml:"batches,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	for i, v := range s.Values {
		if v.Int == nil || v.Sign() < 1 {
			return fmt.Errorf("values[%d] must be a positive integer", i)
		}
	}
	for i, v := range s.Preload {
		if v.Int == nil || v.Sign() < 1 {
			return fmt.Errorf("preload[%d] must be a positive integer", i)
		}
	}
	return nil
}
