package dut

import (
	"fmt"

	"github.com/roach88/dutkit/internal/controller"
	"github.com/roach88/dutkit/internal/entity"
	"github.com/roach88/dutkit/internal/iofile"
	"github.com/roach88/dutkit/internal/ir"
)

// DefaultRegisterWidth is the number of complex lanes of the register
// looked up by name.
const DefaultRegisterWidth = 8

// Register is a bank of signed complex registers: io_B follows io_A.
// It has no analog model.
type Register struct {
	Width int
}

func (Register) Name() string { return "register" }

func (Register) Ports() []entity.Port {
	return []entity.Port{
		{Name: "io_A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataSComplex},
		{Name: "io_B", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataSComplex},
	}
}

func (Register) Functional(io *entity.Bundle) error {
	io.Port("io_B").Set(io.Port("io_A").Samples.Clone())
	return nil
}

func (r Register) Exchange(m entity.Model, _ entity.Config) (entity.Exchange, error) {
	if m.Class() != entity.ClassGateLevel {
		return entity.Exchange{}, fmt.Errorf("register has no %s model", m.Class())
	}
	if r.Width <= 0 {
		return entity.Exchange{}, fmt.Errorf("register width must be positive, got %d", r.Width)
	}
	return entity.Exchange{Files: []iofile.Spec{
		{Name: "io_A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataSComplex, Signals: complexNames("io_A", r.Width)},
		{Name: "io_B", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataSComplex, Signals: complexNames("io_B", r.Width)},
	}}, nil
}

func (Register) Latency(entity.Model) int { return 0 }

func (Register) Conditions(entity.Model) map[string][]string {
	return map[string][]string{
		"io_A": {controller.SignalInitDone},
		"io_B": {controller.SignalInitDone},
	}
}

// complexNames returns "<port>_<i>_real", "<port>_<i>_imag" for each lane.
func complexNames(port string, width int) []string {
	names := make([]string, 0, 2*width)
	for i := range width {
		names = append(names, fmt.Sprintf("%s_%d_real", port, i), fmt.Sprintf("%s_%d_imag", port, i))
	}
	return names
}
