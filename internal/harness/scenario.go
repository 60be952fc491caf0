package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a cross-backend test scenario.
// A scenario drives every entity of a bench with the same stimulus and
// asserts on the published outputs.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Bench is the CUE bench directory.
	// Relative paths are resolved against the scenario file location.
	Bench string `yaml:"bench"`

	// Stimulus is applied to every entity.
	Stimulus Stimulus `yaml:"stimulus"`

	// Reference names the entity whose outputs matches_reference compares
	// against. Empty selects the single functional entity of the bench.
	Reference string `yaml:"reference,omitempty"`

	// Assertions validate the runs and their outputs.
	Assertions []Assertion `yaml:"assertions"`

	// InstancePrefix seeds deterministic instance IDs.
	// If empty, defaults to "run".
	InstancePrefix string `yaml:"instance_prefix,omitempty"`
}

// Stimulus describes the input samples of a scenario.
type Stimulus struct {
	// Port is the input port driven. Empty selects the design's first input.
	Port string `yaml:"port,omitempty"`

	// Pattern is one of "alternating", "random" or "values".
	Pattern string `yaml:"pattern"`

	// Length is the number of samples for generated patterns.
	Length int `yaml:"length,omitempty"`

	// Width is the number of columns per sample. Zero means one.
	Width int `yaml:"width,omitempty"`

	// Seed makes random patterns reproducible.
	Seed uint64 `yaml:"seed,omitempty"`

	// Values are the explicit samples of the "values" pattern, one column.
	Values []float64 `yaml:"values,omitempty"`
}

// Stimulus patterns.
const (
	PatternAlternating = "alternating"
	PatternRandom      = "random"
	PatternValues      = "values"
)

// Assertion validates the scenario outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "matches_reference": Entity output agrees with the reference entity
	// - "payload_count": Exactly Count payloads were published
	// - "fails": Entity run failed, with Code if given
	Type string `yaml:"type"`

	// Entity is the entity name (used by matches_reference and fails).
	Entity string `yaml:"entity,omitempty"`

	// Port is the compared output port (used by matches_reference).
	// Empty compares every output the reference published.
	Port string `yaml:"port,omitempty"`

	// Latency overrides the entity's declared latency in samples
	// (used by matches_reference).
	Latency *int `yaml:"latency,omitempty"`

	// Tolerance is the largest accepted absolute difference per value
	// (used by matches_reference). For waveform outputs it is in volts
	// from the ideal level, 0 or Vdd, and replaces the threshold test.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Threshold is the logic threshold for waveform outputs in volts.
	// Zero means half the entity's supply voltage (used by matches_reference).
	Threshold float64 `yaml:"threshold,omitempty"`

	// Count is the expected number of payloads (used by payload_count).
	Count int `yaml:"count,omitempty"`

	// Code is the expected error code, e.g. "CONFIG" (used by fails).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertMatchesReference = "matches_reference"
	AssertPayloadCount     = "payload_count"
	AssertFails            = "fails"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative bench path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Bench != "" && !filepath.IsAbs(scenario.Bench) {
		scenario.Bench = filepath.Join(filepath.Dir(path), scenario.Bench)
	}
	if _, err := os.Stat(scenario.Bench); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: bench directory not found: %s", scenario.Bench)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
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

	if s.Bench == "" {
		return fmt.Errorf("bench is required")
	}

	if err := validateStimulus(&s.Stimulus); err != nil {
		return fmt.Errorf("stimulus: %w", err)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the stimulus fields for its pattern.
func (st Stimulus) Validate() error {
	return validateStimulus(&st)
}

func validateStimulus(st *Stimulus) error {
	if st.Width < 0 {
		return fmt.Errorf("width must be non-negative")
	}
	switch st.Pattern {
	case PatternAlternating, PatternRandom:
		if st.Length <= 0 {
			return fmt.Errorf("length must be positive for %s", st.Pattern)
		}
		if len(st.Values) > 0 {
			return fmt.Errorf("values are only allowed with pattern values")
		}
	case PatternValues:
		if len(st.Values) == 0 {
			return fmt.Errorf("values are required for pattern values")
		}
		if st.Length != 0 && st.Length != len(st.Values) {
			return fmt.Errorf("length %d does not match %d values", st.Length, len(st.Values))
		}
	case "":
		return fmt.Errorf("pattern is required")
	default:
		return fmt.Errorf("unknown pattern %q", st.Pattern)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMatchesReference:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for matches_reference", index)
		}
		if a.Latency != nil && *a.Latency < 0 {
			return fmt.Errorf("assertions[%d]: latency must be non-negative", index)
		}
		if a.Tolerance < 0 || a.Threshold < 0 {
			return fmt.Errorf("assertions[%d]: tolerance and threshold must be non-negative", index)
		}
	case AssertPayloadCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for payload_count", index)
		}
	case AssertFails:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for fails", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
