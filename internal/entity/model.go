package entity

import (
	"fmt"
	"strings"

	"github.com/roach88/dutkit/internal/gate"
)

// Class is the backend class of a model. Gate-level and analog classes are
// also the fallback keys of a backend.Registry.
type Class string

const (
	ClassFunctional Class = "functional"
	ClassGateLevel  Class = "rtl"
	ClassAnalog     Class = "analog"
)

// Model selects the backend an entity runs against.
//
// The set of models is closed: Functional, GateLevel and Analog are the only
// implementations. A new backend is a new variant plus a runner in
// selectRunner.
type Model interface {
	Class() Class
	String() string
	model()
}

// Functional evaluates the design's reference transform in-process.
type Functional struct{}

func (Functional) Class() Class   { return ClassFunctional }
func (Functional) String() string { return "functional" }
func (Functional) model()         {}

// GateLevel co-simulates the design with an HDL simulator.
type GateLevel struct {
	Lang gate.Variant
	Tool string
}

func (GateLevel) Class() Class { return ClassGateLevel }

func (m GateLevel) String() string {
	if m.Tool == "" || m.Tool == string(m.Lang) {
		return string(m.Lang)
	}
	return m.Tool + ":" + string(m.Lang)
}

func (GateLevel) model() {}

// Analog co-simulates the design with a SPICE-class simulator.
type Analog struct {
	Tool string
}

func (Analog) Class() Class { return ClassAnalog }

func (m Analog) String() string {
	if m.Tool == "" {
		return string(ClassAnalog)
	}
	return m.Tool
}

func (Analog) model() {}

// variant returns the language variant gates are rendered in.
func variant(m Model) gate.Variant {
	switch m := m.(type) {
	case GateLevel:
		return m.Lang
	case Analog:
		return gate.Spice
	}
	return ""
}

var gateTools = map[string]gate.Variant{
	"sv":        gate.SV,
	"icarus":    gate.SV,
	"verilator": gate.SV,
	"vhdl":      gate.VHDL,
	"ghdl":      gate.VHDL,
}

var analogTools = map[string]bool{
	"analog":  true,
	"eldo":    true,
	"spectre": true,
	"ngspice": true,
}

// ParseModel parses a backend selector.
//
// Accepted forms are "py" or "functional", a gate-level tool ("sv",
// "icarus", "verilator", "vhdl", "ghdl") optionally followed by ":sv" or
// ":vhdl" to pick the language, and an analog tool ("eldo", "spectre",
// "ngspice", "analog").
func ParseModel(s string) (Model, error) {
	name, lang, hasLang := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch name {
	case "py", "functional":
		if hasLang {
			return nil, fmt.Errorf("model %q: functional model takes no language", s)
		}
		return Functional{}, nil
	}
	if v, ok := gateTools[name]; ok {
		if hasLang {
			switch gate.Variant(lang) {
			case gate.SV, gate.VHDL:
				v = gate.Variant(lang)
			default:
				return nil, fmt.Errorf("model %q: unknown language %q", s, lang)
			}
		}
		return GateLevel{Lang: v, Tool: name}, nil
	}
	if analogTools[name] && !hasLang {
		return Analog{Tool: name}, nil
	}
	return nil, fmt.Errorf("unknown model %q", s)
}
