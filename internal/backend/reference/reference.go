// Package reference provides in-process simulators that model the gate-level
// and analog backends of the bundled designs. They serve benches that
// declare no external tool and the cross-backend scenarios.
package reference

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/gate"
	"github.com/roach88/dutkit/internal/ir"
)

// RTL is an in-process stand-in for a gate-level simulator.
//
// It reads the first input exchange file back from disk and walks the
// invocation's timeline. At each tick where the input gate opens it consumes
// one sample, passes it through Transform and a pipeline of Latency
// registers reset to zero. At each tick where the output gate opens it
// records the pipeline output. At most one output row is recorded per input
// sample.
type RTL struct {
	Latency   int
	Transform func(row []complex128) []complex128
}

func (s RTL) Simulate(ctx context.Context, inv *backend.Invocation) error {
	if len(inv.Inputs) == 0 || len(inv.Outputs) == 0 {
		return errors.New("rtl reference: an input and an output file are required")
	}
	in, out := inv.Inputs[0], inv.Outputs[0]
	data, err := in.ReadSamples()
	if err != nil {
		return err
	}

	zero := make([]complex128, out.Columns())
	pipe := make([][]complex128, s.Latency)
	for i := range pipe {
		pipe[i] = zero
	}
	cur := zero
	rows := make(ir.Samples, 0, len(data))
	k := 0
	var prev gate.Tick
	for _, tick := range inv.Timeline {
		if err := ctx.Err(); err != nil {
			return err
		}
		if k < len(data) && in.Gate.Open(prev, tick) {
			v := s.Transform(data[k])
			k++
			if s.Latency == 0 {
				cur = v
			} else {
				cur = pipe[0]
				pipe = append(pipe[1:], v)
			}
		}
		if len(rows) < len(data) && out.Gate.Open(prev, tick) {
			rows = append(rows, cur)
		}
		prev = tick
	}
	return out.WriteSamples(rows)
}

// Analog is an in-process stand-in for a SPICE-class simulator.
//
// Every output waveform is the first input waveform delayed by Delay with
// Transform applied to each value; the output named Echo receives the input
// unchanged. The supply voltage is read from the "vdd" parameter.
type Analog struct {
	Delay     float64
	Transform func(vdd, v float64) float64
	Echo      string
}

func (s Analog) Simulate(ctx context.Context, inv *backend.Invocation) error {
	if len(inv.Inputs) == 0 {
		return errors.New("analog reference: an input file is required")
	}
	wave, err := inv.Inputs[0].ReadEvents()
	if err != nil {
		return err
	}
	if len(wave) == 0 {
		return errors.New("analog reference: empty input waveform")
	}
	vdd := inv.Parameters["vdd"].Value

	apply := func(vs []float64) []float64 {
		out := make([]float64, len(vs))
		for i, v := range vs {
			out[i] = s.Transform(vdd, v)
		}
		return out
	}
	for _, f := range inv.Outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Name == s.Echo {
			if err := f.WriteEvents(wave); err != nil {
				return err
			}
			continue
		}
		res := make(ir.Events, 0, len(wave)+1)
		res = append(res, ir.Event{Time: 0, Values: apply(wave[0].Values)})
		for _, ev := range wave {
			res = append(res, ir.Event{Time: ev.Time + s.Delay, Values: apply(ev.Values)})
		}
		if err := f.WriteEvents(res); err != nil {
			return err
		}
	}
	return nil
}

// ByDesign routes an invocation to the simulator registered for its design.
type ByDesign map[string]backend.Simulator

func (b ByDesign) Simulate(ctx context.Context, inv *backend.Invocation) error {
	s, ok := b[inv.Design]
	if !ok {
		return fmt.Errorf("no reference simulator for design %q", inv.Design)
	}
	return s.Simulate(ctx, inv)
}

// Simulators returns the reference simulators for the designs of package dut,
// registered under the class keys so any tool name resolves to them.
func Simulators() backend.Registry {
	return backend.Registry{
		"rtl": ByDesign{
			"inverter": RTL{Latency: 1, Transform: invert},
			"register": RTL{Latency: 0, Transform: identity},
		},
		"analog": ByDesign{
			"inverter": Analog{Delay: 100e-12, Transform: func(vdd, v float64) float64 { return vdd - v }, Echo: "A_OUT"},
		},
	}
}

func invert(row []complex128) []complex128 {
	out := make([]complex128, len(row))
	for i, v := range row {
		out[i] = 1 - v
	}
	return out
}

func identity(row []complex128) []complex128 {
	return append([]complex128(nil), row...)
}
