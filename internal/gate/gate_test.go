package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dutkit/internal/ir"
)

// timeline builds half-period ticks: clock high on even ticks, low on odd.
// initdone rises at tick initAt.
func timeline(n, initAt int) []Tick {
	ticks := make([]Tick, n)
	for i := range ticks {
		ticks[i] = Tick{
			Time: float64(i),
			Levels: map[string]bool{
				"clock":    i%2 == 0,
				"initdone": i >= initAt,
			},
		}
	}
	return ticks
}

func mustPolicy(t *testing.T, v Variant) Policy {
	t.Helper()
	p, err := PolicyFor(v)
	require.NoError(t, err)
	return p
}

func TestGateWithUpstreamRequiresBoth(t *testing.T) {
	g := Define(mustPolicy(t, SV), ir.In, nil, Signal("initdone"))
	ticks := timeline(12, 5)

	// Falling edges are at odd ticks; initdone holds from tick 5.
	assert.Equal(t, []int{5, 7, 9, 11}, Schedule(g, ticks))
}

func TestGateWithoutUpstreamIsBaseOnly(t *testing.T) {
	// initdone is vacuously true everywhere; only the edge gates.
	g := Define(mustPolicy(t, SV), ir.In, nil, nil)
	ticks := timeline(8, 0)

	got := Schedule(g, ticks)
	assert.Equal(t, []int{1, 3, 5, 7}, got)
	assert.NotContains(t, got, 0, "data must not be consumed before the first falling edge")
	assert.False(t, g.Open(Tick{}, ticks[0]))
}

func TestGateOutputRequiresKnown(t *testing.T) {
	g := Define(mustPolicy(t, VHDL), ir.Out, []string{"Z"}, nil).Append(Signal("initdone"))
	prev := Tick{Levels: map[string]bool{"clock": true, "initdone": true}}
	cur := Tick{Levels: map[string]bool{"initdone": true}, Unknown: map[string]bool{"Z": true}}

	assert.False(t, g.Open(prev, cur), "unsettled output must not be sampled")
	cur.Unknown = nil
	assert.True(t, g.Open(prev, cur))
}

func TestGateLevelPolicy(t *testing.T) {
	p := Policy{Clock: "clock", Edge: High}
	g := Define(p, ir.In, nil, nil)
	assert.Equal(t, []int{0, 2, 4}, Schedule(g, timeline(6, 0)))

	sync, cond := g.Render(SV)
	assert.Empty(t, sync)
	assert.Equal(t, "clock", cond)
}

func TestGateRender(t *testing.T) {
	tests := []struct {
		name     string
		variant  Variant
		gate     Gate
		wantSync string
		wantCond string
	}{
		{
			name:     "sv input",
			variant:  SV,
			gate:     Define(Policy{"clock", Falling}, ir.In, nil, Signal("initdone")),
			wantSync: "@(negedge clock)",
			wantCond: "initdone",
		},
		{
			name:     "sv output",
			variant:  SV,
			gate:     Define(Policy{"clock", Falling}, ir.Out, []string{"Z"}, nil).Append(Signal("initdone")),
			wantSync: "@(negedge clock)",
			wantCond: "~$isunknown(Z) && initdone",
		},
		{
			name:     "vhdl input",
			variant:  VHDL,
			gate:     Define(Policy{"clock", Falling}, ir.In, nil, Signal("initdone")),
			wantSync: "falling_edge(clock)",
			wantCond: "(initdone = '1')",
		},
		{
			name:     "vhdl output two signals",
			variant:  VHDL,
			gate:     Define(Policy{"clk", Rising}, ir.Out, []string{"a", "b"}, Signal("initdone")),
			wantSync: "rising_edge(clk)",
			wantCond: "not is_x(a) and not is_x(b) and (initdone = '1')",
		},
		{
			name:     "sv input without upstream",
			variant:  SV,
			gate:     Define(Policy{"clock", Falling}, ir.In, nil, nil),
			wantSync: "@(negedge clock)",
			wantCond: "1'b1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sync, cond := tt.gate.Render(tt.variant)
			assert.Equal(t, tt.wantSync, sync)
			assert.Equal(t, tt.wantCond, cond)
		})
	}
}

func TestGateReplaceAndAppend(t *testing.T) {
	g := Define(Policy{"clock", Falling}, ir.In, nil, Signal("a"))
	g = g.Replace(Signal("b")).Append(Signal("c"))
	_, cond := g.Render(SV)
	assert.Equal(t, "b && c", cond)
}

func TestPolicyForUnknownVariant(t *testing.T) {
	_, err := PolicyFor(Variant("verilog-ams"))
	assert.Error(t, err)
}

func TestParseEdge(t *testing.T) {
	k, err := ParseEdge("low")
	require.NoError(t, err)
	assert.Equal(t, Low, k)
	_, err = ParseEdge("both")
	assert.Error(t, err)
}

func TestSignals(t *testing.T) {
	assert.Nil(t, Signals())
	assert.Equal(t, Signal("x"), Signals("x"))
	assert.Equal(t, "x && y", Signals("x", "y").Render(SV))
}
