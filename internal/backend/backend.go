// Package backend defines the boundary between an entity and an external
// simulator.
//
// The dispatcher hands a Simulator an Invocation: staged input exchange
// files, declared output files, parameters and electrical configuration.
// Simulate blocks until the simulator completes, fails or its context
// expires. dutkit never looks inside a simulator; it only stages files
// before the call and harvests files after it.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/dutkit/internal/gate"
	"github.com/roach88/dutkit/internal/iofile"
)

// Parameter is a typed top-level parameter (a generic or a SPICE .param).
type Parameter struct {
	Type  string  `yaml:"type"`
	Value float64 `yaml:"value"`
}

// Invocation is everything a simulator needs for one run.
type Invocation struct {
	Entity   string
	Instance string
	Design   string
	Tool     string
	Variant  gate.Variant
	WorkDir  string

	Inputs  []*iofile.File
	Outputs []*iofile.File
	Control *iofile.File

	// Timeline is the shared control timeline expanded for this run.
	Timeline []gate.Tick

	Parameters map[string]Parameter
	Options    map[string]string
	Extras     []string
	Probes     []string
	NProc      int
}

// Output returns the declared output file bound to a port, or nil.
func (inv *Invocation) Output(name string) *iofile.File {
	for _, f := range inv.Outputs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Input returns the staged input file bound to a port, or nil.
func (inv *Invocation) Input(name string) *iofile.File {
	for _, f := range inv.Inputs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Simulator runs one invocation to completion.
type Simulator interface {
	Simulate(ctx context.Context, inv *Invocation) error
}

// SimulatorFunc adapts a function to Simulator.
type SimulatorFunc func(ctx context.Context, inv *Invocation) error

// Simulate calls f.
func (f SimulatorFunc) Simulate(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}

// ErrTimeout is returned when a simulation exceeds its deadline.
var ErrTimeout = errors.New("simulation timed out")

// Registry maps tool names to simulators.
type Registry map[string]Simulator

// Lookup returns the simulator for a tool, falling back to the class key
// ("rtl" or "analog") when no tool-specific simulator is registered.
func (r Registry) Lookup(tool, class string) (Simulator, error) {
	if s, ok := r[tool]; ok {
		return s, nil
	}
	if s, ok := r[class]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no simulator registered for %q", tool)
}
