// Package controller supplies the shared control timeline consumed by
// entities: a reset signal, an "initdone" flag marking upstream
// initialization complete, and the sampling clock derived from Rs.
//
// Several entities may share one Controller; after configuration it is read
// only.
package controller

import (
	"fmt"
	"math"
	"sort"

	"github.com/roach88/dutkit/internal/gate"
	"github.com/roach88/dutkit/internal/iofile"
	"github.com/roach88/dutkit/internal/ir"
)

// Control signal names, in exchange file column order.
const (
	SignalReset    = "reset"
	SignalInitDone = "initdone"
)

// PortName is the bundle member carrying the control file.
const PortName = "control_write"

// Controller records control events on a time axis.
type Controller struct {
	Rs    float64
	Clock string

	now    float64
	events ir.Events
}

// New creates a controller for the given sample rate.
// The timeline starts with reset and initdone low.
func New(rs float64) *Controller {
	return &Controller{
		Rs:     rs,
		Clock:  "clock",
		events: ir.Events{{Time: 0, Values: []float64{0, 0}}},
	}
}

func (c *Controller) set(reset, initdone float64) {
	last := c.events[len(c.events)-1]
	if last.Time == c.now {
		c.events[len(c.events)-1] = ir.Event{Time: c.now, Values: []float64{reset, initdone}}
		return
	}
	c.events = append(c.events, ir.Event{Time: c.now, Values: []float64{reset, initdone}})
}

func (c *Controller) current() (reset, initdone float64) {
	v := c.events[len(c.events)-1].Values
	return v[0], v[1]
}

// Reset asserts reset at the current time.
func (c *Controller) Reset() {
	_, initdone := c.current()
	c.set(1, initdone)
}

// StepTime advances the current time by a number of clock cycles.
func (c *Controller) StepTime(cycles int) {
	c.now += float64(cycles) / c.Rs
}

// StartDatafeed releases reset and raises initdone at the current time.
func (c *Controller) StartDatafeed() {
	c.set(0, 1)
}

// Events returns the recorded control events.
func (c *Controller) Events() ir.Events {
	return c.events
}

// Spec declares the control exchange file.
func (c *Controller) Spec() iofile.Spec {
	return iofile.Spec{
		Name:    PortName,
		Dir:     ir.In,
		Kind:    ir.KindEvent,
		Type:    ir.DataBool,
		Signals: []string{SignalReset, SignalInitDone},
	}
}

// File binds the control events to an exchange file in dir.
func (c *Controller) File(dir string) (*iofile.File, error) {
	f, err := iofile.NewEventInput(dir, c.Spec(), c.events)
	if err != nil {
		return nil, fmt.Errorf("control file: %w", err)
	}
	return f, nil
}

// Upstream is the condition marking initialization complete.
func (c *Controller) Upstream() gate.Expr {
	return gate.Signal(SignalInitDone)
}

// Timeline expands the control events onto a clock timeline of the given
// number of cycles.
func (c *Controller) Timeline(cycles int) []gate.Tick {
	ticks := gate.ClockTicks(c.Clock, c.Rs, cycles)
	for i := range ticks {
		v := c.valuesAt(ticks[i].Time)
		ticks[i].Levels[SignalReset] = v[0] != 0
		ticks[i].Levels[SignalInitDone] = v[1] != 0
	}
	return ticks
}

// Cycles returns how many clock cycles a run of the given number of samples
// needs: the cycles before initdone first rises plus one per sample.
func (c *Controller) Cycles(samples int) int {
	for _, ev := range c.events {
		if ev.Values[1] != 0 {
			return samples + int(math.Ceil(ev.Time*c.Rs-1e-9))
		}
	}
	return samples
}

// valuesAt returns the last event values at or before t.
func (c *Controller) valuesAt(t float64) []float64 {
	i := sort.Search(len(c.events), func(i int) bool { return c.events[i].Time > t })
	if i == 0 {
		return c.events[0].Values
	}
	return c.events[i-1].Values
}
