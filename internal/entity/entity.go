// Package entity implements the unit under verification: a hardware design
// bound to an immutable configuration, a port bundle and a model selecting
// the backend it runs against.
//
// Run executes exactly one backend path. The functional model transforms
// port buffers in-process; gate-level and analog models stage input ports
// into exchange files, invoke a simulator and harvest the produced files
// back into output ports. When a publisher is passed to Run every output is
// also published to it before Run returns.
//
// Thread-safety: distinct entities may run concurrently. One entity runs
// at most once at a time; a second concurrent Run fails with a resource
// error.
package entity

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/controller"
	"github.com/roach88/dutkit/internal/ir"
	"github.com/roach88/dutkit/internal/sink"
)

// State is the position of an entity in its run state machine.
type State int32

const (
	StateIdle State = iota
	StateConfiguring
	StateDispatching
	StateStaging
	StateExecuting
	StateHarvesting
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateDispatching:
		return "dispatching"
	case StateStaging:
		return "staging"
	case StateExecuting:
		return "executing"
	case StateHarvesting:
		return "harvesting"
	case StatePublishing:
		return "publishing"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Entity is one instance of a design.
type Entity struct {
	design Design
	cfg    Config
	log    *slog.Logger
	sims   backend.Registry
	ids    IDGenerator
	ctrl   *controller.Controller

	io      *Bundle
	state   atomic.Int32
	running atomic.Bool
}

// Option configures an entity.
type Option func(*Entity)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Entity) {
		e.log = l
	}
}

// WithSimulators sets the simulators available to co-simulation models.
func WithSimulators(r backend.Registry) Option {
	return func(e *Entity) {
		e.sims = r
	}
}

// WithIDGenerator sets the generator of run instance IDs.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Entity) {
		e.ids = g
	}
}

// WithController attaches the shared control timeline. Without one, gates
// fall back to the design's conditions or the backend base alone.
func WithController(c *controller.Controller) Option {
	return func(e *Entity) {
		e.ctrl = c
	}
}

// New creates an entity. An invalid configuration is a configuration error.
func New(d Design, cfg Config, opts ...Option) (*Entity, error) {
	e := &Entity{
		design: d,
		cfg:    cfg,
		log:    slog.Default(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := cfg.Validate(); err != nil {
		return nil, e.errorf(ErrCodeConfig, "", "", err)
	}
	if err := e.Init(); err != nil {
		return nil, err
	}
	return e, nil
}

// Init re-creates the port bundle from the design, dropping all buffers.
func (e *Entity) Init() error {
	b, err := NewBundle(e.design.Ports()...)
	if err != nil {
		return e.errorf(ErrCodeConfig, "", "", fmt.Errorf("design %s: %w", e.design.Name(), err))
	}
	for _, p := range b.ports {
		p.Samples, p.Events, p.State = nil, nil, PortEmpty
	}
	if e.ctrl != nil {
		ctrl := Port{Name: controller.PortName, Dir: ir.In, Kind: ir.KindEvent, Type: ir.DataBool,
			Events: e.ctrl.Events(), State: PortValid}
		if err := b.Add(ctrl); err != nil {
			return e.errorf(ErrCodeConfig, "", controller.PortName, err)
		}
	}
	e.io = b
	return nil
}

// Name returns the configured entity name.
func (e *Entity) Name() string { return e.cfg.Name }

// Config returns the entity's configuration.
func (e *Entity) Config() Config { return e.cfg }

// Design returns the entity's design.
func (e *Entity) Design() Design { return e.design }

// IO returns the port bundle.
func (e *Entity) IO() *Bundle { return e.io }

// Port returns the named port, or nil.
func (e *Entity) Port(name string) *Port { return e.io.Port(name) }

// State returns the current run state.
func (e *Entity) State() State { return State(e.state.Load()) }

// Latency returns the declared latency of the configured model.
func (e *Entity) Latency() int { return e.design.Latency(e.cfg.Model) }

// SetInput stores stimulus on an input port.
func (e *Entity) SetInput(name string, data ir.Samples) error {
	p := e.io.Port(name)
	if p == nil || p.Dir != ir.In {
		return e.errorf(ErrCodeConfig, "", name, fmt.Errorf("no input port %q", name))
	}
	if _, err := data.Width(); err != nil {
		return e.errorf(ErrCodeConfig, "", name, err)
	}
	p.Set(data)
	return nil
}

func (e *Entity) errorf(code RunErrorCode, instance, port string, err error) *RunError {
	re := &RunError{Code: code, Entity: e.cfg.Name, Instance: instance, Port: port, Err: err}
	if e.cfg.Model != nil {
		re.Model = e.cfg.Model.String()
	}
	return re
}

// run carries the per-run context through the dispatch path.
type run struct {
	e        *Entity
	instance string
	log      *slog.Logger
}

func (r *run) fail(code RunErrorCode, port string, err error) error {
	return r.e.errorf(code, r.instance, port, err)
}

func (r *run) enter(s State) {
	r.e.state.Store(int32(s))
	r.log.Debug("state", "state", s.String())
}

// Run executes the configured model once.
//
// On success output ports are valid and, when pub is non-nil, each output
// has been published. On failure output ports are flagged invalid and the
// returned error is a *RunError. No path retries.
func (e *Entity) Run(ctx context.Context, pub sink.Publisher) (err error) {
	if !e.running.CompareAndSwap(false, true) {
		return e.errorf(ErrCodeResource, "", "", fmt.Errorf("run already in progress"))
	}
	defer e.running.Store(false)

	instance := e.ids.Generate()
	r := &run{
		e:        e,
		instance: instance,
		log:      e.log.With("entity", e.cfg.Name, "instance", instance, "model", e.cfg.Model.String()),
	}
	defer func() {
		if err != nil {
			e.io.invalidateOutputs()
			r.log.Error("run failed", "error", err)
		}
		r.enter(StateIdle)
	}()

	r.enter(StateConfiguring)
	e.io.clearOutputs()
	if err := r.checkInputs(); err != nil {
		return err
	}

	r.enter(StateDispatching)
	rn, err := selectRunner(e.cfg.Model)
	if err != nil {
		return r.fail(ErrCodeConfig, "", err)
	}
	if err := rn.run(ctx, r); err != nil {
		return err
	}

	if pub != nil {
		r.enter(StatePublishing)
		if err := r.publish(pub); err != nil {
			return err
		}
	}
	r.log.Info("run complete")
	return nil
}

func (r *run) checkInputs() error {
	for _, p := range r.e.io.Inputs() {
		if p.State != PortValid {
			return r.fail(ErrCodeConfig, p.Name, fmt.Errorf("input has no data"))
		}
	}
	return nil
}

func (r *run) publish(pub sink.Publisher) error {
	for _, p := range r.e.io.Outputs() {
		if p.State != PortValid {
			continue
		}
		payload := ir.Payload{
			Entity:   r.e.cfg.Name,
			Instance: r.instance,
			Model:    r.e.cfg.Model.String(),
			Port:     p.Name,
		}
		if p.Kind == ir.KindEvent {
			payload.Events = append(ir.Events(nil), p.Events...)
		} else {
			payload.Samples = p.Samples.Clone()
		}
		if err := pub.Publish(payload); err != nil {
			return r.fail(ErrCodeResource, p.Name, fmt.Errorf("publish: %w", err))
		}
	}
	return nil
}
