package harness

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/dutkit/internal/ir"
)

// Generate produces the stimulus samples for a port of the given type.
// Random patterns are reproducible for a given seed.
func (st Stimulus) Generate(t ir.DataType) (ir.Samples, error) {
	width := max(st.Width, 1)

	var data ir.Samples
	switch st.Pattern {
	case PatternAlternating:
		data = make(ir.Samples, st.Length)
		for i := range data {
			data[i] = fill(width, complex(float64(i%2), 0))
		}
	case PatternRandom:
		rng := rand.New(rand.NewPCG(st.Seed, st.Seed^0x9e3779b97f4a7c15))
		data = make(ir.Samples, st.Length)
		for i := range data {
			row := make([]complex128, width)
			for k := range row {
				row[k] = randomValue(rng, t)
			}
			data[i] = row
		}
	case PatternValues:
		data = make(ir.Samples, len(st.Values))
		for i, v := range st.Values {
			data[i] = fill(width, complex(v, 0))
		}
	default:
		return nil, fmt.Errorf("unknown pattern %q", st.Pattern)
	}

	if err := data.Check(t); err != nil {
		return nil, fmt.Errorf("stimulus is not valid %s data: %w", t, err)
	}
	return data, nil
}

func fill(width int, v complex128) []complex128 {
	row := make([]complex128, width)
	for k := range row {
		row[k] = v
	}
	return row
}

func randomValue(rng *rand.Rand, t ir.DataType) complex128 {
	switch t {
	case ir.DataBool:
		return complex(float64(rng.IntN(2)), 0)
	case ir.DataInt:
		return complex(float64(rng.IntN(256)-128), 0)
	case ir.DataSComplex:
		return complex(float64(rng.IntN(256)-128), float64(rng.IntN(256)-128))
	default:
		return complex(rng.Float64()*2-1, 0)
	}
}
