package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dutkit/internal/gate"
	"github.com/roach88/dutkit/internal/ir"
)

func TestControllerSequence(t *testing.T) {
	c := New(100e6)
	c.Reset()
	c.StepTime(2)
	c.StartDatafeed()

	assert.Equal(t, ir.Events{
		{Time: 0, Values: []float64{1, 0}},
		{Time: 2 / 100e6, Values: []float64{0, 1}},
	}, c.Events())
}

func TestControllerTimeline(t *testing.T) {
	c := New(1)
	c.Reset()
	c.StepTime(2)
	c.StartDatafeed()

	ticks := c.Timeline(4)
	require.Len(t, ticks, 8)
	for i, tk := range ticks {
		assert.Equal(t, i%2 == 0, tk.Level("clock"), "tick %d clock", i)
		assert.Equal(t, i >= 4, tk.Level(SignalInitDone), "tick %d initdone", i)
		assert.Equal(t, i < 4, tk.Level(SignalReset), "tick %d reset", i)
	}

	p, err := gate.PolicyFor(gate.SV)
	require.NoError(t, err)
	g := gate.Define(p, ir.In, nil, c.Upstream())
	assert.Equal(t, []int{5, 7}, gate.Schedule(g, ticks))
}

func TestControllerFile(t *testing.T) {
	c := New(100e6)
	c.StartDatafeed()

	f, err := c.File(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, PortName, f.Name)
	require.NoError(t, f.Write())

	got, err := f.ReadEvents()
	require.NoError(t, err)
	assert.Equal(t, ir.Events{{Time: 0, Values: []float64{0, 1}}}, got)
}

func TestControllerCycles(t *testing.T) {
	c := New(1)
	assert.Equal(t, 16, c.Cycles(16), "initdone never raised")

	c.StartDatafeed()
	assert.Equal(t, 16, c.Cycles(16))

	c = New(100e6)
	c.Reset()
	c.StepTime(3)
	c.StartDatafeed()
	assert.Equal(t, 19, c.Cycles(16))
}
