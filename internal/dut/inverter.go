package dut

import (
	"fmt"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/controller"
	"github.com/roach88/dutkit/internal/entity"
	"github.com/roach88/dutkit/internal/iofile"
	"github.com/roach88/dutkit/internal/ir"
)

// Inverter is a one-bit inverter: Z = not A.
//
// The analog model also reports the input as seen by the simulator on the
// A_OUT probe.
type Inverter struct{}

// Inverter netlist constants.
const (
	inverterDelay = 100e-12
	inverterCin   = 20e-15
)

func (Inverter) Name() string { return "inverter" }

func (Inverter) Ports() []entity.Port {
	return []entity.Port{
		{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool},
		{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataInt},
		{Name: "A_OUT", Dir: ir.Out, Kind: ir.KindEvent, Type: ir.DataReal, Probe: true},
	}
}

func (Inverter) Functional(io *entity.Bundle) error {
	in := io.Port("A").Samples
	out := make(ir.Samples, len(in))
	for n, row := range in {
		out[n] = make([]complex128, len(row))
		for k, v := range row {
			out[n][k] = 1 - v
		}
	}
	io.Port("Z").Set(out)
	return nil
}

func (Inverter) Exchange(m entity.Model, cfg entity.Config) (entity.Exchange, error) {
	switch m.(type) {
	case entity.GateLevel:
		return entity.Exchange{Files: []iofile.Spec{
			{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"A"}},
			{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataInt, Signals: []string{"Z"}},
		}}, nil
	case entity.Analog:
		vdd := cfg.Vdd
		return entity.Exchange{
			Files: []iofile.Spec{
				{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"IN<0:0>"},
					Electrical: &iofile.Electrical{VHigh: vdd, Source: "V"}},
				{Name: "Z", Dir: ir.Out, Kind: ir.KindEvent, Type: ir.DataReal, Signals: []string{"OUT"}},
				{Name: "A_OUT", Dir: ir.Out, Kind: ir.KindEvent, Type: ir.DataReal, Signals: []string{"IN<0>"}},
			},
			Parameters: map[string]backend.Parameter{"exampleparam": {Type: "real", Value: 0}},
			Options:    map[string]string{"eps": "1e-6"},
			Extras: []string{fmt.Sprintf("INV0 IN<0> OUT vhi=%g vlo=0 vthi=%g vtlo=%g tpd=%g cin=%g",
				vdd, vdd/2, vdd/2, inverterDelay, inverterCin)},
			Probes: []string{"v(IN<0>)", "v(OUT)"},
			NProc:  2,
		}, nil
	}
	return entity.Exchange{}, fmt.Errorf("no exchange files for model %s", m)
}

// Latency: the gate-level inverter registers its output on the sampling
// edge, so it lags the functional model by one sample.
func (Inverter) Latency(m entity.Model) int {
	if m.Class() == entity.ClassGateLevel {
		return 1
	}
	return 0
}

// Conditions gates the gate-level files on initdone. The analog netlist is
// free running.
func (Inverter) Conditions(m entity.Model) map[string][]string {
	if m.Class() != entity.ClassGateLevel {
		return map[string][]string{"A": nil, "Z": nil, "A_OUT": nil}
	}
	return map[string][]string{
		"A": {controller.SignalInitDone},
		"Z": {controller.SignalInitDone},
	}
}
