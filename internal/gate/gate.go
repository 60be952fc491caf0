// Package gate implements readiness conditions for exchange files.
//
// A Gate decides at which points of the shared control timeline an input
// sample may be consumed by a backend, or an output sample is settled and
// valid to record. It is composed of two parts:
//
//   - the backend-inherent base: the sampling discipline of the language
//     variant (an edge trigger or a level), plus output validity for outputs
//   - the upstream condition supplied by the controller, typically
//     "initdone"
//
// Without an upstream condition the gate is the base alone. A gate is never
// unconditionally open.
package gate

import (
	"fmt"

	"github.com/roach88/dutkit/internal/ir"
)

// Variant is the language flavour a condition is rendered for.
type Variant string

const (
	SV    Variant = "sv"
	VHDL  Variant = "vhdl"
	Spice Variant = "spice"
)

// EdgeKind is the sampling discipline of a policy.
type EdgeKind int

const (
	Rising EdgeKind = iota + 1
	Falling
	High
	Low
)

func (k EdgeKind) String() string {
	switch k {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case High:
		return "high"
	case Low:
		return "low"
	}
	return fmt.Sprintf("EdgeKind(%d)", int(k))
}

// ParseEdge parses "rising", "falling", "high" or "low".
func ParseEdge(s string) (EdgeKind, error) {
	for _, k := range []EdgeKind{Rising, Falling, High, Low} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown edge %q", s)
}

// Policy is the sampling discipline of one language variant.
type Policy struct {
	Clock string
	Edge  EdgeKind
}

var policies = map[Variant]Policy{
	SV:    {Clock: "clock", Edge: Falling},
	VHDL:  {Clock: "clock", Edge: Falling},
	Spice: {Clock: "clock", Edge: Falling},
}

// PolicyFor returns the default policy of a variant.
func PolicyFor(v Variant) (Policy, error) {
	p, ok := policies[v]
	if !ok {
		return Policy{}, fmt.Errorf("no sampling policy for variant %q", v)
	}
	return p, nil
}

// Fired reports whether the policy triggers between prev and cur.
func (p Policy) Fired(prev, cur Tick) bool {
	before, now := prev.Level(p.Clock), cur.Level(p.Clock)
	switch p.Edge {
	case Rising:
		return !before && now
	case Falling:
		return before && !now
	case High:
		return now
	case Low:
		return !now
	}
	return false
}

// Sync renders the event control annotation for edge policies.
// Level policies have no annotation; their level is part of the condition.
func (p Policy) Sync(v Variant) string {
	switch {
	case p.Edge == Falling && v == VHDL:
		return fmt.Sprintf("falling_edge(%s)", p.Clock)
	case p.Edge == Rising && v == VHDL:
		return fmt.Sprintf("rising_edge(%s)", p.Clock)
	case p.Edge == Falling:
		return fmt.Sprintf("@(negedge %s)", p.Clock)
	case p.Edge == Rising:
		return fmt.Sprintf("@(posedge %s)", p.Clock)
	}
	return ""
}

// Gate is the composed readiness condition of one exchange file.
type Gate struct {
	Dir      ir.Direction
	Policy   Policy
	Base     Expr
	Upstream Expr
}

// Define composes the gate for one exchange file.
// For outputs, signals are the produced signal names that must be settled.
// A nil upstream leaves the base alone in effect.
func Define(p Policy, dir ir.Direction, signals []string, upstream Expr) Gate {
	var base []Expr
	switch p.Edge {
	case High:
		base = append(base, Signal(p.Clock))
	case Low:
		base = append(base, Not{X: Signal(p.Clock)})
	}
	if dir == ir.Out && len(signals) > 0 {
		base = append(base, Known(signals))
	}
	return Gate{Dir: dir, Policy: p, Base: And(base...), Upstream: upstream}
}

// Replace returns the gate with its upstream condition replaced.
func (g Gate) Replace(upstream Expr) Gate {
	g.Upstream = upstream
	return g
}

// Append returns the gate with e ANDed onto its upstream condition.
func (g Gate) Append(e Expr) Gate {
	if g.Upstream == nil {
		g.Upstream = e
		return g
	}
	g.Upstream = And(g.Upstream, e)
	return g
}

// Condition returns the boolean part of the gate: base AND upstream.
func (g Gate) Condition() All {
	return And(g.Base, g.Upstream)
}

// Render returns the sync annotation and condition for a variant.
func (g Gate) Render(v Variant) (sync, cond string) {
	return g.Policy.Sync(v), g.Condition().Render(v)
}

// Open reports whether data flows at cur, given the previous tick.
func (g Gate) Open(prev, cur Tick) bool {
	return g.Policy.Fired(prev, cur) && g.Condition().Eval(cur)
}

// Schedule returns the indices of ticks at which the gate is open.
// The tick before the first is the zero Tick.
func Schedule(g Gate, ticks []Tick) []int {
	var out []int
	var prev Tick
	for i, cur := range ticks {
		if g.Open(prev, cur) {
			out = append(out, i)
		}
		prev = cur
	}
	return out
}
