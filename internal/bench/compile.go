package bench

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dutkit/internal/dut"
	"github.com/roach88/dutkit/internal/entity"
	"github.com/roach88/dutkit/internal/gate"
)

// Spec is a compiled bench.
type Spec struct {
	Rs       float64
	Vdd      float64
	WorkRoot string
	Timeout  time.Duration
	Preserve bool

	// Control enables the shared controller; Start is the number of clock
	// cycles reset is held before initdone rises.
	Control bool
	Start   int

	// Entities are sorted by name.
	Entities   []EntitySpec
	Simulators []SimulatorSpec
}

// EntitySpec declares one entity of the bench.
type EntitySpec struct {
	Name    string
	Design  string
	Model   entity.Model
	Timeout time.Duration // zero uses the bench timeout
	Edge    gate.EdgeKind // zero keeps the variant default

	// Inherit lists the bench fields the entity inherits; nil means all.
	Inherit    []string
	Conditions map[string][]string
	Pos        token.Pos
}

// SimulatorSpec declares an external simulator command. The first element
// of Command is the executable.
type SimulatorSpec struct {
	Name    string
	Command []string
	Env     []string
}

// Compile parses a bench from a CUE value. All errors are collected; the
// returned Spec is nil if any occurred.
func Compile(v cue.Value) (*Spec, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(ErrCodeBuildFailed, "cue", err)}
	}

	var errs []error
	spec := &Spec{}
	errs = append(errs, compileBench(v.LookupPath(cue.ParsePath("bench")), spec)...)

	entities := v.LookupPath(cue.ParsePath("entity"))
	if entities.Exists() {
		iter, err := entities.Fields()
		if err != nil {
			errs = append(errs, formatCUEError(ErrCodeEntity, "entity", err))
		} else {
			for iter.Next() {
				es, eerrs := compileEntity(iter.Label(), iter.Value())
				if len(eerrs) > 0 {
					errs = append(errs, eerrs...)
					continue
				}
				spec.Entities = append(spec.Entities, es)
			}
		}
	}
	if len(spec.Entities) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{Code: ErrCodeNoEntities, Field: "entity", Message: "at least one entity is required", Pos: v.Pos()})
	}
	sort.Slice(spec.Entities, func(i, j int) bool { return spec.Entities[i].Name < spec.Entities[j].Name })

	sims := v.LookupPath(cue.ParsePath("simulator"))
	if sims.Exists() {
		iter, err := sims.Fields()
		if err != nil {
			errs = append(errs, formatCUEError(ErrCodeSimulator, "simulator", err))
		} else {
			for iter.Next() {
				ss, err := compileSimulator(iter.Label(), iter.Value())
				if err != nil {
					errs = append(errs, err)
					continue
				}
				spec.Simulators = append(spec.Simulators, ss)
			}
		}
	}
	sort.Slice(spec.Simulators, func(i, j int) bool { return spec.Simulators[i].Name < spec.Simulators[j].Name })

	if len(errs) > 0 {
		return nil, errs
	}
	return spec, nil
}

func compileBench(v cue.Value, spec *Spec) []error {
	spec.Rs = entity.DefaultRs
	spec.Vdd = entity.DefaultVdd
	spec.Timeout = entity.DefaultTimeout
	spec.WorkRoot = os.TempDir()
	if !v.Exists() {
		return nil
	}

	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(lookupFloat(v, "rs", ErrCodeBench, &spec.Rs))
	add(lookupFloat(v, "vdd", ErrCodeBench, &spec.Vdd))
	add(lookupString(v, "workroot", ErrCodeBench, &spec.WorkRoot))
	add(lookupDuration(v, "timeout", ErrCodeBench, &spec.Timeout))
	add(lookupBool(v, "preserve", ErrCodeBench, &spec.Preserve))

	if spec.Rs <= 0 {
		add(&CompileError{Code: ErrCodeBench, Field: "bench.rs", Message: "must be positive", Pos: v.LookupPath(cue.ParsePath("rs")).Pos()})
	}
	if spec.Vdd <= 0 {
		add(&CompileError{Code: ErrCodeBench, Field: "bench.vdd", Message: "must be positive", Pos: v.LookupPath(cue.ParsePath("vdd")).Pos()})
	}

	ctl := v.LookupPath(cue.ParsePath("control"))
	if ctl.Exists() {
		spec.Control = true
		var start int64
		add(lookupInt(ctl, "start", ErrCodeBench, &start))
		if start < 0 {
			add(&CompileError{Code: ErrCodeBench, Field: "bench.control.start", Message: "must not be negative", Pos: ctl.Pos()})
		}
		spec.Start = int(start)
	}
	return errs
}

func compileEntity(name string, v cue.Value) (EntitySpec, []error) {
	es := EntitySpec{Name: name, Pos: v.Pos()}
	field := func(f string) string { return "entity." + name + "." + f }

	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var model string
	if err := lookupString(v, "design", ErrCodeDesign, &es.Design); err != nil {
		add(err)
	} else if es.Design == "" {
		add(&CompileError{Code: ErrCodeDesign, Field: field("design"), Message: "design is required", Pos: v.Pos()})
	} else if _, err := dut.Lookup(es.Design); err != nil {
		add(&CompileError{Code: ErrCodeDesign, Field: field("design"), Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("design")).Pos()})
	}

	if err := lookupString(v, "model", ErrCodeModel, &model); err != nil {
		add(err)
	} else if model == "" {
		add(&CompileError{Code: ErrCodeModel, Field: field("model"), Message: "model is required", Pos: v.Pos()})
	} else if m, err := entity.ParseModel(model); err != nil {
		add(&CompileError{Code: ErrCodeModel, Field: field("model"), Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("model")).Pos()})
	} else {
		es.Model = m
	}

	add(lookupDuration(v, "timeout", ErrCodeEntity, &es.Timeout))

	var edge string
	if err := lookupString(v, "edge", ErrCodeEntity, &edge); err != nil {
		add(err)
	} else if edge != "" {
		k, err := gate.ParseEdge(edge)
		if err != nil {
			add(&CompileError{Code: ErrCodeEntity, Field: field("edge"), Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("edge")).Pos()})
		}
		es.Edge = k
	}

	if inh := v.LookupPath(cue.ParsePath("inherit")); inh.Exists() {
		fields, err := stringList(inh, ErrCodeEntity, field("inherit"))
		add(err)
		for _, f := range fields {
			if !slices.Contains(entity.Inheritable(), f) {
				add(&CompileError{Code: ErrCodeEntity, Field: field("inherit"),
					Message: fmt.Sprintf("%q is not inheritable (inheritable: %v)", f, entity.Inheritable()), Pos: inh.Pos()})
			}
		}
		es.Inherit = append([]string{}, fields...)
	}

	if conds := v.LookupPath(cue.ParsePath("conditions")); conds.Exists() {
		iter, err := conds.Fields()
		if err != nil {
			add(formatCUEError(ErrCodeEntity, field("conditions"), err))
		} else {
			es.Conditions = make(map[string][]string)
			for iter.Next() {
				signals, err := stringList(iter.Value(), ErrCodeEntity, field("conditions."+iter.Label()))
				add(err)
				es.Conditions[iter.Label()] = signals
			}
		}
	}

	return es, errs
}

func compileSimulator(name string, v cue.Value) (SimulatorSpec, error) {
	ss := SimulatorSpec{Name: name}
	field := "simulator." + name
	cmd := v.LookupPath(cue.ParsePath("command"))
	if !cmd.Exists() {
		return ss, &CompileError{Code: ErrCodeSimulator, Field: field, Message: "command is required", Pos: v.Pos()}
	}
	args, err := stringList(cmd, ErrCodeSimulator, field+".command")
	if err != nil {
		return ss, err
	}
	if len(args) == 0 || args[0] == "" {
		return ss, &CompileError{Code: ErrCodeSimulator, Field: field + ".command", Message: "command must name an executable", Pos: cmd.Pos()}
	}
	ss.Command = args

	if env := v.LookupPath(cue.ParsePath("env")); env.Exists() {
		ss.Env, err = stringList(env, ErrCodeSimulator, field+".env")
		if err != nil {
			return ss, err
		}
	}
	return ss, nil
}

func lookupString(v cue.Value, path, code string, dst *string) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	s, err := f.String()
	if err != nil {
		return formatCUEError(code, path, err)
	}
	*dst = s
	return nil
}

func lookupFloat(v cue.Value, path, code string, dst *float64) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	x, err := f.Float64()
	if err != nil {
		return formatCUEError(code, path, err)
	}
	*dst = x
	return nil
}

func lookupInt(v cue.Value, path, code string, dst *int64) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	x, err := f.Int64()
	if err != nil {
		return formatCUEError(code, path, err)
	}
	*dst = x
	return nil
}

func lookupBool(v cue.Value, path, code string, dst *bool) error {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil
	}
	b, err := f.Bool()
	if err != nil {
		return formatCUEError(code, path, err)
	}
	*dst = b
	return nil
}

func lookupDuration(v cue.Value, path, code string, dst *time.Duration) error {
	var s string
	if err := lookupString(v, path, code, &s); err != nil || s == "" {
		return err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return &CompileError{Code: code, Field: path, Message: err.Error(), Pos: v.LookupPath(cue.ParsePath(path)).Pos()}
	}
	if d <= 0 {
		return &CompileError{Code: code, Field: path, Message: "must be positive", Pos: v.LookupPath(cue.ParsePath(path)).Pos()}
	}
	*dst = d
	return nil
}

func stringList(v cue.Value, code, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(code, field, err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(code, field, err)
		}
		out = append(out, s)
	}
	return out, nil
}
