package entity

import (
	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/iofile"
)

// Design is the behavior of one hardware entity, independent of the
// backend it runs against.
type Design interface {
	// Name identifies the design, e.g. "inverter".
	Name() string

	// Ports declares the entity's ports. Buffers in the returned values
	// are ignored.
	Ports() []Port

	// Functional is the reference transform: it reads the input ports and
	// writes every output port with the same sample count and ordering.
	Functional(io *Bundle) error

	// Exchange declares the exchange files and backend parameters of a
	// co-simulation model. It is not called for the functional model.
	Exchange(m Model, cfg Config) (Exchange, error)

	// Latency is the declared output delay of a model in sample ticks
	// relative to the functional model.
	Latency(m Model) int
}

// ConditionDefiner is implemented by designs that gate their exchange files
// on control signals other than the controller's default.
type ConditionDefiner interface {
	// Conditions maps port names to the control signals that must be high
	// for the port's data to flow.
	Conditions(m Model) map[string][]string
}

// Exchange is what a co-simulation needs beyond port data.
//
// Files lists one declaration per bound port. For analog models, input
// declarations without Electrical parameters get them derived from the
// configuration; zero fields of given parameters are filled the same way.
type Exchange struct {
	Files      []iofile.Spec
	Parameters map[string]backend.Parameter
	Options    map[string]string
	Extras     []string
	Probes     []string
	NProc      int
}
