package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/backend/reference"
	"github.com/roach88/dutkit/internal/bench"
	"github.com/roach88/dutkit/internal/entity"
	"github.com/roach88/dutkit/internal/ir"
	"github.com/roach88/dutkit/internal/sink"
	"github.com/roach88/dutkit/internal/store"
)

// Option configures a scenario run.
type Option func(*options)

type options struct {
	workRoot   string
	simulators backend.Registry
	logger     *slog.Logger
	ids        entity.IDGenerator
	only       []string
}

// WithWorkRoot runs entities under dir instead of a fresh temp directory.
func WithWorkRoot(dir string) Option {
	return func(o *options) { o.workRoot = dir }
}

// WithSimulators replaces the default simulators. By default the bench's
// commands are used for the tools they name and the in-process reference
// simulators serve every other tool.
func WithSimulators(r backend.Registry) Option {
	return func(o *options) { o.simulators = r }
}

// WithLogger sets the logger passed to entities. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithIDGenerator replaces the scenario's sequential instance IDs.
// Use it when runs are recorded to a store shared across executions.
func WithIDGenerator(g entity.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithEntities restricts the run to the named bench entities.
func WithEntities(names ...string) Option {
	return func(o *options) { o.only = names }
}

// outcome is what one entity produced.
type outcome struct {
	e        *entity.Entity
	err      *entity.RunError
	payloads []ir.Payload // sorted by port
}

func (o *outcome) payload(port string) (ir.Payload, bool) {
	for _, p := range o.payloads {
		if p.Port == port {
			return p, true
		}
	}
	return ir.Payload{}, false
}

// Harness holds the state of one scenario execution.
type Harness struct {
	scenario *Scenario
	entities []*entity.Entity
	outcomes map[string]*outcome
	total    int
	clock    *store.Clock
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load and compile the bench
// 2. Build its entities with deterministic instance IDs
// 3. Apply the stimulus to every entity
// 4. Run all entities in parallel into one result sink
// 5. Record the trace and evaluate the assertions
//
// The returned error reports scenario setup problems. Entity failures are
// part of the result and only fail it through assertions.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h, err := execute(ctx, scenario, opts...)
	if err != nil {
		return nil, err
	}
	return h.result(), nil
}

func execute(ctx context.Context, scenario *Scenario, opts ...Option) (*Harness, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	spec, errs := bench.Load(scenario.Bench)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load bench %s: %w", scenario.Bench, errors.Join(errs...))
	}

	if o.workRoot == "" {
		dir, err := os.MkdirTemp("", "dutkit-"+scenario.Name+"-")
		if err != nil {
			return nil, fmt.Errorf("create work root: %w", err)
		}
		defer os.RemoveAll(dir)
		o.workRoot = dir
	}
	spec.WorkRoot = o.workRoot

	sims := o.simulators
	if sims == nil {
		sims = reference.Simulators()
		for name, s := range spec.Registry() {
			sims[name] = s
		}
	}

	ids := o.ids
	if ids == nil {
		prefix := scenario.InstancePrefix
		if prefix == "" {
			prefix = "run"
		}
		ids = entity.NewSequenceGenerator(prefix)
	}
	entities, err := spec.Build(
		entity.WithSimulators(sims),
		entity.WithIDGenerator(ids),
		entity.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build bench: %w", err)
	}
	if len(o.only) > 0 {
		if entities, err = selectEntities(entities, o.only); err != nil {
			return nil, err
		}
	}

	for _, e := range entities {
		if err := applyStimulus(e, scenario.Stimulus); err != nil {
			return nil, err
		}
	}

	q := sink.NewQueue()
	runErr := entity.RunParallel(ctx, entities, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := &Harness{
		scenario: scenario,
		entities: entities,
		outcomes: make(map[string]*outcome, len(entities)),
		clock:    store.NewClockAt(0),
	}
	failed := failures(runErr)
	for _, e := range entities {
		h.outcomes[e.Name()] = &outcome{e: e, err: failed[e.Name()]}
	}
	for _, p := range q.Drain() {
		o, ok := h.outcomes[p.Entity]
		if !ok {
			return nil, fmt.Errorf("payload from unknown entity %q", p.Entity)
		}
		o.payloads = append(o.payloads, p)
		h.total++
	}
	for _, o := range h.outcomes {
		sort.Slice(o.payloads, func(i, j int) bool { return o.payloads[i].Port < o.payloads[j].Port })
	}
	return h, nil
}

// selectEntities keeps the named entities, in bench order.
func selectEntities(entities []*entity.Entity, names []string) ([]*entity.Entity, error) {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	var out []*entity.Entity
	for _, e := range entities {
		if keep[e.Name()] {
			out = append(out, e)
			delete(keep, e.Name())
		}
	}
	if len(keep) > 0 {
		missing := make([]string, 0, len(keep))
		for n := range keep {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown entities: %v", missing)
	}
	return out, nil
}

// applyStimulus drives the stimulus port of e. An entity without that port
// is left without input and fails its run with a configuration error.
func applyStimulus(e *entity.Entity, st Stimulus) error {
	var port *entity.Port
	if st.Port != "" {
		port = e.Port(st.Port)
		if port == nil || port.Dir != ir.In {
			return nil
		}
	} else {
		inputs := e.IO().Inputs()
		if len(inputs) == 0 {
			return nil
		}
		port = inputs[0]
	}

	data, err := st.Generate(port.Type)
	if err != nil {
		return fmt.Errorf("entity %s port %s: %w", e.Name(), port.Name, err)
	}
	return e.SetInput(port.Name, data)
}

// failures indexes the run errors joined by entity.RunParallel by entity.
func failures(err error) map[string]*entity.RunError {
	out := make(map[string]*entity.RunError)
	if err == nil {
		return out
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var re *entity.RunError
		if errors.As(e, &re) {
			out[re.Entity] = re
		}
	}
	return out
}

func (h *Harness) result() *Result {
	result := NewResult()
	for _, e := range h.entities {
		o := h.outcomes[e.Name()]
		model := e.Config().Model.String()
		if o.err != nil {
			result.AddRunTrace(e.Name(), model, store.StatusFailed, string(o.err.Code), h.clock.Next())
		} else {
			result.AddRunTrace(e.Name(), model, store.StatusOK, "", h.clock.Next())
		}
		for _, p := range o.payloads {
			result.AddOutputTrace(e.Name(), model, p.Port, rows(p), h.clock.Next())
		}
	}

	for _, a := range h.scenario.Assertions {
		if err := h.check(a); err != nil {
			result.AddError(err.Error())
		}
	}
	return result
}

// Record writes every run of the scenario and its outputs to st.
func (h *Harness) Record(ctx context.Context, st *store.Store) error {
	for _, e := range h.entities {
		o := h.outcomes[e.Name()]
		run := store.Run{Entity: e.Name(), Model: e.Config().Model.String(), Status: store.StatusOK}
		switch {
		case o.err != nil:
			run.Instance = o.err.Instance
			run.Status = store.StatusFailed
			run.Code = string(o.err.Code)
			run.Error = o.err.Error()
		case len(o.payloads) > 0:
			run.Instance = o.payloads[0].Instance
		}
		if run.Instance == "" {
			continue
		}
		if err := st.RecordRun(ctx, run, o.payloads); err != nil {
			return err
		}
	}
	return nil
}

// RunAndRecord executes a scenario and records its runs to st.
func RunAndRecord(ctx context.Context, scenario *Scenario, st *store.Store, opts ...Option) (*Result, error) {
	h, err := execute(ctx, scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := h.Record(ctx, st); err != nil {
		return nil, fmt.Errorf("record scenario %s: %w", scenario.Name, err)
	}
	return h.result(), nil
}

func rows(p ir.Payload) int {
	if p.Events != nil {
		return len(p.Events)
	}
	return len(p.Samples)
}
