// Package iofile implements exchange files: typed, on-disk boundary
// artifacts carrying stimulus into a backend and responses out of it.
//
// Digital (sample) files hold one row per tick with tab-separated columns in
// signal declaration order. Analog (event) files hold a timestamp column
// followed by one column per signal, with non-decreasing time.
package iofile

import (
	"fmt"
	"path/filepath"

	"github.com/roach88/dutkit/internal/gate"
	"github.com/roach88/dutkit/internal/ir"
)

// Electrical holds analog-class parameters of an exchange file.
type Electrical struct {
	Rate   float64 `yaml:"rate"`
	Rise   float64 `yaml:"rise"`
	Fall   float64 `yaml:"fall"`
	VHigh  float64 `yaml:"vhigh"`
	VLow   float64 `yaml:"vlow"`
	Source string  `yaml:"source,omitempty"` // "V" or "I"
}

// Spec declares one exchange file.
type Spec struct {
	// Name is the port the file binds to.
	Name string
	Dir  ir.Direction
	Kind ir.IOKind
	Type ir.DataType

	// Signals are backend signal names in column order. Scomplex files
	// declare a real and an imaginary name per logical column.
	Signals []string

	// Electrical, when set on a sample input, makes the on-disk form an
	// analog waveform driven from the samples.
	Electrical *Electrical
}

// Validate checks the declaration on its own, without data.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("exchange file name is required")
	}
	if s.Dir != ir.In && s.Dir != ir.Out {
		return fmt.Errorf("exchange file %s: direction must be in or out, got %q", s.Name, s.Dir)
	}
	if s.Kind != ir.KindSample && s.Kind != ir.KindEvent {
		return fmt.Errorf("exchange file %s: unknown kind %q", s.Name, s.Kind)
	}
	if _, err := ir.ParseDataType(string(s.Type)); err != nil {
		return fmt.Errorf("exchange file %s: %w", s.Name, err)
	}
	if len(s.Signals) == 0 {
		return fmt.Errorf("exchange file %s: at least one signal name is required", s.Name)
	}
	seen := make(map[string]bool, len(s.Signals))
	for _, n := range s.Signals {
		if n == "" {
			return fmt.Errorf("exchange file %s: empty signal name", s.Name)
		}
		if seen[n] {
			return fmt.Errorf("exchange file %s: duplicate signal name %q", s.Name, n)
		}
		seen[n] = true
	}
	if s.Kind == ir.KindSample && len(s.Signals)%s.Type.Lanes() != 0 {
		return fmt.Errorf("exchange file %s: %s needs %d names per column, got %d names",
			s.Name, s.Type, s.Type.Lanes(), len(s.Signals))
	}
	if e := s.Electrical; e != nil {
		if e.Rate <= 0 {
			return fmt.Errorf("exchange file %s: electrical rate must be positive", s.Name)
		}
		if e.Rise < 0 || e.Fall < 0 {
			return fmt.Errorf("exchange file %s: rise and fall times must not be negative", s.Name)
		}
	}
	return nil
}

// Columns returns the logical column cardinality of the declaration.
func (s Spec) Columns() int {
	if s.Kind == ir.KindEvent {
		return len(s.Signals)
	}
	return len(s.Signals) / s.Type.Lanes()
}

// File is one exchange file bound to a path in a run's work directory.
type File struct {
	Spec
	Path string

	// Gate is the readiness condition. Sync, when set, overrides the
	// rendered sampling annotation of the gate.
	Gate gate.Gate
	Sync string

	samples ir.Samples
	events  ir.Events
}

func fileName(dir string, s Spec) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.txt", s.Dir, s.Name))
}

// NewInput binds a sample buffer to an input file.
// Cardinality and type mismatches are reported here, before anything is
// written or invoked.
//
// Inputs with Electrical parameters drive an analog backend: the samples
// are converted to a piecewise-linear waveform here and written in the
// analog format.
func NewInput(dir string, spec Spec, data ir.Samples) (*File, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Dir != ir.In || spec.Kind != ir.KindSample {
		return nil, fmt.Errorf("exchange file %s: NewInput requires a sample input", spec.Name)
	}
	width, err := data.Width()
	if err != nil {
		return nil, fmt.Errorf("exchange file %s: %w", spec.Name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("exchange file %s: no input samples", spec.Name)
	}
	if width != spec.Columns() {
		return nil, fmt.Errorf("exchange file %s: %d signal names %v for %d data columns",
			spec.Name, len(spec.Signals), spec.Signals, width)
	}
	if err := data.Check(spec.Type); err != nil {
		return nil, fmt.Errorf("exchange file %s: %w", spec.Name, err)
	}

	f := &File{Spec: spec, Path: fileName(dir, spec)}
	if spec.Electrical != nil {
		f.events = spec.Electrical.PWL(data)
		return f, nil
	}
	f.samples = data
	return f, nil
}

// NewEventInput binds a waveform to an event-kind input file.
func NewEventInput(dir string, spec Spec, data ir.Events) (*File, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Dir != ir.In || spec.Kind != ir.KindEvent {
		return nil, fmt.Errorf("exchange file %s: NewEventInput requires an event input", spec.Name)
	}
	if err := data.Check(len(spec.Signals)); err != nil {
		return nil, fmt.Errorf("exchange file %s: %w", spec.Name, err)
	}
	return &File{Spec: spec, Path: fileName(dir, spec), events: data}, nil
}

// NewOutput declares an output file the backend must produce.
func NewOutput(dir string, spec Spec) (*File, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Dir != ir.Out {
		return nil, fmt.Errorf("exchange file %s: NewOutput requires direction out", spec.Name)
	}
	return &File{Spec: spec, Path: fileName(dir, spec)}, nil
}

// Rendered returns the sync annotation and condition for a variant.
func (f *File) Rendered(v gate.Variant) (sync, cond string) {
	sync, cond = f.Gate.Render(v)
	if f.Sync != "" {
		sync = f.Sync
	}
	return sync, cond
}

// Staged returns the waveform that will be written for an event input.
func (f *File) Staged() ir.Events {
	return f.events
}

// Write serializes the bound data to Path.
func (f *File) Write() error {
	if f.Dir != ir.In {
		return fmt.Errorf("exchange file %s: cannot write an output file", f.Name)
	}
	if f.Analog() {
		return writeEvents(f, f.events)
	}
	return writeSamples(f, f.samples)
}

// Analog reports whether the on-disk form is the analog (event) format.
func (f *File) Analog() bool {
	return f.Kind == ir.KindEvent || f.Electrical != nil
}

// release drops references to staged data.
func (f *File) release() {
	f.samples = nil
	f.events = nil
}
