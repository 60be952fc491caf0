package bench

import (
	"fmt"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/controller"
	"github.com/roach88/dutkit/internal/dut"
	"github.com/roach88/dutkit/internal/entity"
)

// Registry returns the external simulators declared by the bench.
func (s *Spec) Registry() backend.Registry {
	r := make(backend.Registry, len(s.Simulators))
	for _, sim := range s.Simulators {
		r[sim.Name] = &backend.Command{
			Path: sim.Command[0],
			Args: append([]string{}, sim.Command[1:]...),
			Env:  append([]string{}, sim.Env...),
		}
	}
	return r
}

// Controller returns the shared controller, or nil when the bench declares
// none. Reset is held for Start cycles, then the data feed starts.
func (s *Spec) Controller() *controller.Controller {
	if !s.Control {
		return nil
	}
	c := controller.New(s.Rs)
	c.Reset()
	c.StepTime(s.Start)
	c.StartDatafeed()
	return c
}

// Parent returns the bench-level configuration entities inherit from.
func (s *Spec) Parent() entity.Config {
	return entity.DefaultConfig("bench").
		WithRs(s.Rs).
		WithVdd(s.Vdd).
		WithWorkRoot(s.WorkRoot)
}

// Config derives the configuration of one declared entity.
func (s *Spec) Config(es EntitySpec) (entity.Config, error) {
	timeout := es.Timeout
	if timeout == 0 {
		timeout = s.Timeout
	}
	cfg := entity.DefaultConfig(es.Name).
		WithModel(es.Model).
		WithTimeout(timeout).
		WithPreserve(s.Preserve).
		WithEdge(es.Edge)
	// An explicit empty list inherits nothing.
	if es.Inherit == nil || len(es.Inherit) > 0 {
		var err error
		cfg, err = cfg.Inherit(s.Parent(), es.Inherit...)
		if err != nil {
			return entity.Config{}, fmt.Errorf("entity %s: %w", es.Name, err)
		}
	}
	for port, signals := range es.Conditions {
		cfg = cfg.WithCondition(port, signals...)
	}
	return cfg, nil
}

// Build creates every declared entity with the bench's simulators and
// controller. Options are applied after the bench's own, so callers may
// replace either.
func (s *Spec) Build(opts ...entity.Option) ([]*entity.Entity, error) {
	base := []entity.Option{entity.WithSimulators(s.Registry())}
	if c := s.Controller(); c != nil {
		base = append(base, entity.WithController(c))
	}
	base = append(base, opts...)

	entities := make([]*entity.Entity, 0, len(s.Entities))
	for _, es := range s.Entities {
		d, err := dut.Lookup(es.Design)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", es.Name, err)
		}
		cfg, err := s.Config(es)
		if err != nil {
			return nil, err
		}
		e, err := entity.New(d, cfg, base...)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
