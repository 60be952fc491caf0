package gate

import (
	"fmt"
	"strings"
)

// Tick is one point of the shared control timeline.
//
// Levels holds the logic level of every named control or data signal.
// Unknown marks signals whose value is not settled (X/Z in HDL terms).
type Tick struct {
	Time    float64
	Levels  map[string]bool
	Unknown map[string]bool
}

// Level returns the level of a signal; absent signals are low.
func (t Tick) Level(name string) bool {
	return t.Levels[name]
}

// Expr is a boolean condition over one Tick.
type Expr interface {
	// Eval reports whether the condition holds at t.
	Eval(t Tick) bool
	// Render returns the condition in the syntax of a language variant.
	Render(v Variant) string
}

// Signal holds when the named signal is high.
type Signal string

func (s Signal) Eval(t Tick) bool { return t.Level(string(s)) }

func (s Signal) Render(v Variant) string {
	if v == VHDL {
		return fmt.Sprintf("(%s = '1')", string(s))
	}
	return string(s)
}

// Not negates an expression.
type Not struct{ X Expr }

func (n Not) Eval(t Tick) bool { return !n.X.Eval(t) }

func (n Not) Render(v Variant) string {
	if v == VHDL {
		return "not " + n.X.Render(v)
	}
	return "!" + n.X.Render(v)
}

// Known holds when none of the named signals is unknown.
type Known []string

func (k Known) Eval(t Tick) bool {
	for _, name := range k {
		if t.Unknown[name] {
			return false
		}
	}
	return true
}

func (k Known) Render(v Variant) string {
	if v == VHDL {
		parts := make([]string, len(k))
		for i, name := range k {
			parts[i] = fmt.Sprintf("not is_x(%s)", name)
		}
		return strings.Join(parts, " and ")
	}
	if len(k) == 1 {
		return fmt.Sprintf("~$isunknown(%s)", k[0])
	}
	return fmt.Sprintf("~$isunknown({%s})", strings.Join(k, ", "))
}

// All is the conjunction of its terms. The empty conjunction holds.
type All []Expr

// And combines expressions, dropping nils and flattening nested conjunctions.
func And(exprs ...Expr) All {
	var out All
	for _, e := range exprs {
		switch x := e.(type) {
		case nil:
		case All:
			out = append(out, And(x...)...)
		default:
			out = append(out, x)
		}
	}
	return out
}

func (a All) Eval(t Tick) bool {
	for _, e := range a {
		if !e.Eval(t) {
			return false
		}
	}
	return true
}

func (a All) Render(v Variant) string {
	if len(a) == 0 {
		if v == VHDL {
			return "true"
		}
		return "1'b1"
	}
	parts := make([]string, len(a))
	for i, e := range a {
		parts[i] = e.Render(v)
	}
	if v == VHDL {
		return strings.Join(parts, " and ")
	}
	return strings.Join(parts, " && ")
}

// Signals builds the conjunction of named control signals being high.
// Returns nil for no names, meaning no condition was supplied.
func Signals(names ...string) Expr {
	if len(names) == 0 {
		return nil
	}
	exprs := make([]Expr, len(names))
	for i, n := range names {
		exprs[i] = Signal(n)
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	return And(exprs...)
}
