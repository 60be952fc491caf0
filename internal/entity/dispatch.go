package entity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/controller"
	"github.com/roach88/dutkit/internal/gate"
	"github.com/roach88/dutkit/internal/iofile"
	"github.com/roach88/dutkit/internal/ir"
)

// runner executes one backend path of a run.
type runner interface {
	run(ctx context.Context, r *run) error
}

// selectRunner is the single point where a model picks its backend path.
func selectRunner(m Model) (runner, error) {
	switch m := m.(type) {
	case Functional:
		return functionalRunner{}, nil
	case GateLevel:
		return cosimRunner{model: m, tool: m.Tool}, nil
	case Analog:
		return cosimRunner{model: m, tool: m.Tool}, nil
	}
	return nil, fmt.Errorf("unknown model %v", m)
}

type functionalRunner struct{}

func (functionalRunner) run(_ context.Context, r *run) error {
	io := r.e.io
	n := -1
	for _, p := range io.Inputs() {
		if p.Kind == ir.KindSample && p.Name != controller.PortName {
			n = max(n, len(p.Samples))
		}
	}
	if err := r.e.design.Functional(io); err != nil {
		return r.fail(ErrCodeBackend, "", fmt.Errorf("functional model: %w", err))
	}
	for _, p := range io.Outputs() {
		if p.Probe && p.State == PortEmpty {
			continue
		}
		if p.State != PortValid {
			return r.fail(ErrCodeBackend, p.Name, fmt.Errorf("functional model produced no output"))
		}
		if n >= 0 && p.Len() != n {
			return r.fail(ErrCodeBackend, p.Name, fmt.Errorf("functional model produced %d samples for %d inputs", p.Len(), n))
		}
	}
	return nil
}

// cosimRunner runs gate-level and analog models through a simulator.
type cosimRunner struct {
	model Model
	tool  string
}

func (c cosimRunner) run(ctx context.Context, r *run) (err error) {
	e := r.e
	cfg := e.cfg

	ex, err := e.design.Exchange(c.model, cfg)
	if err != nil {
		return r.fail(ErrCodeConfig, "", fmt.Errorf("design %s: %w", e.design.Name(), err))
	}
	sim, err := e.sims.Lookup(c.tool, string(c.model.Class()))
	if err != nil {
		return r.fail(ErrCodeConfig, "", err)
	}
	policy, err := gate.PolicyFor(variant(c.model))
	if err != nil {
		return r.fail(ErrCodeConfig, "", err)
	}
	if cfg.Edge != 0 {
		policy.Edge = cfg.Edge
	}

	// Everything that can be checked without touching the file system is
	// checked before the work directory exists.
	dir := filepath.Join(cfg.WorkRoot, cfg.Name+"-"+r.instance)
	files, samples, err := c.bind(r, dir, ex.Files)
	if err != nil {
		return err
	}
	upstream := c.conditions(r)
	for _, f := range files {
		var produced []string
		if f.Dir == ir.Out {
			produced = f.Signals
		}
		f.Gate = gate.Define(policy, f.Dir, produced, upstream(f.Name))
	}

	r.enter(StateStaging)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return r.fail(ErrCodeResource, "", fmt.Errorf("create work directory: %w", err))
	}
	set := iofile.NewSet(dir, cfg.Preserve)
	defer func() {
		if cerr := set.Close(); cerr != nil {
			cerr = r.fail(ErrCodeResource, "", cerr)
			if err == nil {
				err = cerr
			} else {
				r.log.Error("release exchange files", "error", cerr)
			}
		}
	}()

	inv := &backend.Invocation{
		Entity:     cfg.Name,
		Instance:   r.instance,
		Design:     e.design.Name(),
		Tool:       c.tool,
		Variant:    variant(c.model),
		WorkDir:    dir,
		Parameters: c.parameters(cfg, ex.Parameters),
		Options:    ex.Options,
		Extras:     ex.Extras,
		Probes:     ex.Probes,
		NProc:      ex.NProc,
	}
	for _, f := range files {
		if err := set.Add(f); err != nil {
			return r.fail(ErrCodeConfig, f.Name, err)
		}
		if f.Dir == ir.In {
			inv.Inputs = append(inv.Inputs, f)
		} else {
			inv.Outputs = append(inv.Outputs, f)
		}
	}
	if e.ctrl != nil {
		cf, err := e.ctrl.File(dir)
		if err != nil {
			return r.fail(ErrCodeStaging, controller.PortName, err)
		}
		if err := set.Add(cf); err != nil {
			return r.fail(ErrCodeConfig, controller.PortName, err)
		}
		inv.Control = cf
		inv.Timeline = e.ctrl.Timeline(e.ctrl.Cycles(samples))
	} else {
		inv.Timeline = gate.ClockTicks(policy.Clock, cfg.Rs, samples)
	}
	if err := set.Stage(); err != nil {
		var fe *iofile.FileError
		port := ""
		if errors.As(err, &fe) {
			port = fe.Port
		}
		return r.fail(ErrCodeStaging, port, err)
	}
	r.log.Debug("staged", "dir", dir, "inputs", len(inv.Inputs), "outputs", len(inv.Outputs))

	r.enter(StateExecuting)
	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := sim.Simulate(runCtx, inv); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, backend.ErrTimeout) {
			err = fmt.Errorf("%w: %w", backend.ErrTimeout, err)
		}
		return r.fail(ErrCodeBackend, "", err)
	}

	r.enter(StateHarvesting)
	return c.harvest(r, inv.Outputs, samples)
}

// bind builds one exchange file per declared port and returns the longest
// input sample count.
func (c cosimRunner) bind(r *run, dir string, specs []iofile.Spec) ([]*iofile.File, int, error) {
	io := r.e.io
	samples := 0
	files := make([]*iofile.File, 0, len(specs))
	for _, spec := range specs {
		p := io.Port(spec.Name)
		if p == nil {
			return nil, 0, r.fail(ErrCodeConfig, spec.Name, fmt.Errorf("exchange file declared for unknown port"))
		}
		if p.Dir != spec.Dir {
			return nil, 0, r.fail(ErrCodeConfig, spec.Name, fmt.Errorf("port direction %s does not match exchange file direction %s", p.Dir, spec.Dir))
		}
		if spec.Electrical != nil || (c.model.Class() == ClassAnalog && spec.Dir == ir.In) {
			spec.Electrical = electrical(r.e.cfg, spec.Electrical)
		}
		if err := spec.Validate(); err != nil {
			return nil, 0, r.fail(ErrCodeConfig, spec.Name, err)
		}

		if spec.Dir == ir.Out {
			f, err := iofile.NewOutput(dir, spec)
			if err != nil {
				return nil, 0, r.fail(ErrCodeConfig, spec.Name, err)
			}
			files = append(files, f)
			continue
		}

		if p.Kind != spec.Kind {
			return nil, 0, r.fail(ErrCodeConfig, spec.Name, fmt.Errorf("port kind %s does not match exchange file kind %s", p.Kind, spec.Kind))
		}
		if spec.Kind == ir.KindEvent {
			f, err := iofile.NewEventInput(dir, spec, p.Events)
			if err != nil {
				return nil, 0, r.fail(ErrCodeStaging, spec.Name, err)
			}
			files = append(files, f)
			continue
		}
		width, err := p.Samples.Width()
		if err != nil {
			return nil, 0, r.fail(ErrCodeConfig, spec.Name, err)
		}
		if width != spec.Columns() {
			return nil, 0, r.fail(ErrCodeConfig, spec.Name,
				fmt.Errorf("%d signal names %v for %d data columns", len(spec.Signals), spec.Signals, width))
		}
		f, err := iofile.NewInput(dir, spec, p.Samples)
		if err != nil {
			return nil, 0, r.fail(ErrCodeStaging, spec.Name, err)
		}
		files = append(files, f)
		samples = max(samples, len(p.Samples))
	}
	return files, samples, nil
}

// conditions returns the upstream condition of each port: the
// configuration's override, else the design's conditions, else the
// controller's initdone, else none.
func (c cosimRunner) conditions(r *run) func(port string) gate.Expr {
	var designed map[string][]string
	if cd, ok := r.e.design.(ConditionDefiner); ok {
		designed = cd.Conditions(c.model)
	}
	return func(port string) gate.Expr {
		if signals, ok := r.e.cfg.Condition(port); ok {
			return gate.Signals(signals...)
		}
		if signals, ok := designed[port]; ok {
			return gate.Signals(signals...)
		}
		if r.e.ctrl != nil {
			return r.e.ctrl.Upstream()
		}
		return nil
	}
}

// parameters adds the sample rate to the design's parameters.
func (c cosimRunner) parameters(cfg Config, declared map[string]backend.Parameter) map[string]backend.Parameter {
	params := maps.Clone(declared)
	if params == nil {
		params = make(map[string]backend.Parameter)
	}
	params["g_Rs"] = backend.Parameter{Type: "real", Value: cfg.Rs}
	if c.model.Class() == ClassAnalog {
		params["vdd"] = backend.Parameter{Type: "real", Value: cfg.Vdd}
	}
	return params
}

// electrical derives analog input parameters from the configuration:
// the sample rate, rise and fall times of a quarter sample period and a
// swing from ground to Vdd. Non-zero fields of given are kept.
func electrical(cfg Config, given *iofile.Electrical) *iofile.Electrical {
	e := iofile.Electrical{}
	if given != nil {
		e = *given
	}
	if e.Rate == 0 {
		e.Rate = cfg.Rs
	}
	if e.Rise == 0 {
		e.Rise = 1 / (4 * cfg.Rs)
	}
	if e.Fall == 0 {
		e.Fall = 1 / (4 * cfg.Rs)
	}
	if e.VHigh == 0 {
		e.VHigh = cfg.Vdd
	}
	if e.Source == "" {
		e.Source = "V"
	}
	return &e
}

// harvest reads every output file back into its port. A sample output
// must hold one row per staged input sample.
func (c cosimRunner) harvest(r *run, outputs []*iofile.File, samples int) error {
	for _, f := range outputs {
		p := r.e.io.Port(f.Name)
		if f.Analog() {
			data, err := f.ReadEvents()
			if err != nil {
				return r.fail(ErrCodeBackend, f.Name, err)
			}
			p.SetEvents(data)
			continue
		}
		data, err := f.ReadSamples()
		if err != nil {
			return r.fail(ErrCodeBackend, f.Name, err)
		}
		if samples > 0 && len(data) != samples {
			return r.fail(ErrCodeBackend, f.Name, &iofile.FileError{
				Code: iofile.ErrCodeMalformed, Port: f.Name, Path: f.Path,
				Err: fmt.Errorf("%d rows for %d input samples", len(data), samples),
			})
		}
		p.Set(data)
	}
	return nil
}
