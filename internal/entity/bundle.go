package entity

import (
	"fmt"

	"github.com/roach88/dutkit/internal/ir"
)

// PortState flags whether a port's buffer can be trusted.
type PortState int

const (
	PortEmpty PortState = iota
	PortValid
	PortInvalid
)

func (s PortState) String() string {
	switch s {
	case PortEmpty:
		return "empty"
	case PortValid:
		return "valid"
	case PortInvalid:
		return "invalid"
	}
	return fmt.Sprintf("PortState(%d)", int(s))
}

// Port is a named data slot of an entity.
//
// A sample port holds Samples, an event port holds Events. Outputs take the
// kind of the exchange file that produced them, so an inverter output is a
// sample port after a gate-level run and an event port after an analog run.
type Port struct {
	Name string
	Dir  ir.Direction
	Kind ir.IOKind
	Type ir.DataType

	// Probe marks an output only some models produce, such as an analog
	// echo of an input. A probe left empty by a run is not an error.
	Probe bool

	Samples ir.Samples
	Events  ir.Events
	State   PortState
}

// Set stores a sample buffer and marks the port valid.
func (p *Port) Set(data ir.Samples) {
	p.Kind = ir.KindSample
	p.Samples = data
	p.Events = nil
	p.State = PortValid
}

// SetEvents stores a waveform and marks the port valid.
func (p *Port) SetEvents(data ir.Events) {
	p.Kind = ir.KindEvent
	p.Samples = nil
	p.Events = data
	p.State = PortValid
}

// Invalidate drops the buffer and flags the port invalid.
func (p *Port) Invalidate() {
	p.Samples = nil
	p.Events = nil
	p.State = PortInvalid
}

// Len returns the number of samples or events held.
func (p *Port) Len() int {
	if p.Kind == ir.KindEvent {
		return len(p.Events)
	}
	return len(p.Samples)
}

// Bundle is an ordered named mapping of ports.
type Bundle struct {
	order []string
	ports map[string]*Port
}

// NewBundle creates a bundle holding copies of the given ports.
func NewBundle(ports ...Port) (*Bundle, error) {
	b := &Bundle{ports: make(map[string]*Port, len(ports))}
	for _, p := range ports {
		if err := b.Add(p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add appends a copy of p. Names must be unique.
func (b *Bundle) Add(p Port) error {
	if p.Name == "" {
		return fmt.Errorf("port name is required")
	}
	if p.Dir != ir.In && p.Dir != ir.Out {
		return fmt.Errorf("port %s: direction must be in or out, got %q", p.Name, p.Dir)
	}
	if _, ok := b.ports[p.Name]; ok {
		return fmt.Errorf("duplicate port %q", p.Name)
	}
	b.order = append(b.order, p.Name)
	b.ports[p.Name] = &p
	return nil
}

// Port returns the named port, or nil.
func (b *Bundle) Port(name string) *Port {
	return b.ports[name]
}

// Names returns the port names in declaration order.
func (b *Bundle) Names() []string {
	return append([]string(nil), b.order...)
}

// Inputs returns the input ports in declaration order.
func (b *Bundle) Inputs() []*Port {
	return b.filter(ir.In)
}

// Outputs returns the output ports in declaration order.
func (b *Bundle) Outputs() []*Port {
	return b.filter(ir.Out)
}

func (b *Bundle) filter(dir ir.Direction) []*Port {
	var out []*Port
	for _, name := range b.order {
		if p := b.ports[name]; p.Dir == dir {
			out = append(out, p)
		}
	}
	return out
}

func (b *Bundle) clearOutputs() {
	for _, p := range b.Outputs() {
		p.Samples, p.Events, p.State = nil, nil, PortEmpty
	}
}

func (b *Bundle) invalidateOutputs() {
	for _, p := range b.Outputs() {
		p.Invalidate()
	}
}
