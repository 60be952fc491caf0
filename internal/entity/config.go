package entity

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/roach88/dutkit/internal/gate"
)

// Defaults applied by DefaultConfig.
const (
	DefaultRs      = 100e6
	DefaultVdd     = 1.0
	DefaultTimeout = 10 * time.Minute
)

// Config is the immutable configuration of an entity.
//
// Config is a value: every With method returns a modified copy and leaves
// the receiver untouched. Per-port condition overrides are copied on write
// so copies never share them.
type Config struct {
	// Name identifies the entity instance in logs, errors and payloads.
	Name string

	// Rs is the sample rate in Hz.
	Rs float64

	// Vdd is the supply voltage of analog backends.
	Vdd float64

	Model   Model
	Timeout time.Duration

	// WorkRoot is the directory under which per-run work directories are
	// created.
	WorkRoot string

	// Preserve keeps the work directory after a run.
	Preserve bool

	// Edge overrides the sampling edge of the model's language variant.
	// Zero keeps the variant's default.
	Edge gate.EdgeKind

	conditions map[string][]string
}

// DefaultConfig returns a functional configuration with default rates.
func DefaultConfig(name string) Config {
	return Config{
		Name:     name,
		Rs:       DefaultRs,
		Vdd:      DefaultVdd,
		Model:    Functional{},
		Timeout:  DefaultTimeout,
		WorkRoot: os.TempDir(),
	}
}

var inheritors = map[string]func(dst *Config, src Config){
	"Rs":       func(dst *Config, src Config) { dst.Rs = src.Rs },
	"Vdd":      func(dst *Config, src Config) { dst.Vdd = src.Vdd },
	"WorkRoot": func(dst *Config, src Config) { dst.WorkRoot = src.WorkRoot },
}

// Inheritable lists the fields a configuration may take from a parent.
func Inheritable() []string {
	return []string{"Rs", "Vdd", "WorkRoot"}
}

// Inherit returns a copy of c with the named fields taken from parent.
// With no names every inheritable field is copied.
func (c Config) Inherit(parent Config, fields ...string) (Config, error) {
	if len(fields) == 0 {
		fields = Inheritable()
	}
	for _, f := range fields {
		copyField, ok := inheritors[f]
		if !ok {
			return Config{}, fmt.Errorf("field %q is not inheritable (inheritable: %v)", f, Inheritable())
		}
		copyField(&c, parent)
	}
	return c, nil
}

func (c Config) WithName(name string) Config {
	c.Name = name
	return c
}

func (c Config) WithModel(m Model) Config {
	c.Model = m
	return c
}

func (c Config) WithRs(rs float64) Config {
	c.Rs = rs
	return c
}

func (c Config) WithVdd(vdd float64) Config {
	c.Vdd = vdd
	return c
}

func (c Config) WithTimeout(d time.Duration) Config {
	c.Timeout = d
	return c
}

func (c Config) WithWorkRoot(dir string) Config {
	c.WorkRoot = dir
	return c
}

func (c Config) WithPreserve(preserve bool) Config {
	c.Preserve = preserve
	return c
}

func (c Config) WithEdge(k gate.EdgeKind) Config {
	c.Edge = k
	return c
}

// WithCondition replaces the upstream condition of a port with the
// conjunction of the named control signals.
func (c Config) WithCondition(port string, signals ...string) Config {
	m := make(map[string][]string, len(c.conditions)+1)
	for k, v := range c.conditions {
		m[k] = v
	}
	m[port] = slices.Clone(signals)
	c.conditions = m
	return c
}

// Condition returns the upstream override of a port, if any.
func (c Config) Condition(port string) ([]string, bool) {
	s, ok := c.conditions[port]
	return slices.Clone(s), ok
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if c.Rs <= 0 {
		return fmt.Errorf("sample rate must be positive, got %g", c.Rs)
	}
	if c.Vdd <= 0 {
		return fmt.Errorf("supply voltage must be positive, got %g", c.Vdd)
	}
	if c.Model == nil {
		return fmt.Errorf("model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Model.Class() != ClassFunctional && c.WorkRoot == "" {
		return fmt.Errorf("work root is required for model %s", c.Model)
	}
	return nil
}
