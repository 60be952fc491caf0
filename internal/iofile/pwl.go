package iofile

import (
	"math"
	"slices"

	"github.com/roach88/dutkit/internal/ir"
)

// Level maps a digital value onto the supply range.
func (e Electrical) Level(v float64) float64 {
	return e.VLow + v*(e.VHigh-e.VLow)
}

// PWL converts a sample buffer into a piecewise-linear waveform.
//
// Sample n is driven from n/Rate. Columns that change at a sample boundary
// hold their level until the boundary, then ramp linearly over Rise (upward)
// or Fall (downward); a zero ramp is a step. The waveform ends one
// sample period after the last sample.
func (e Electrical) PWL(data ir.Samples) ir.Events {
	if len(data) == 0 {
		return nil
	}
	period := 1 / e.Rate
	level := func(row []complex128) []float64 {
		out := make([]float64, len(row))
		for k, v := range row {
			out[k] = e.Level(real(v))
		}
		return out
	}

	prev := level(data[0])
	out := ir.Events{{Time: 0, Values: prev}}
	for n := 1; n < len(data); n++ {
		next := level(data[n])
		if slices.Equal(prev, next) {
			continue
		}
		t := float64(n) * period
		durations := make([]float64, len(next))
		stops := []float64{0}
		for k := range next {
			switch {
			case next[k] > prev[k]:
				durations[k] = e.Rise
			case next[k] < prev[k]:
				durations[k] = e.Fall
			}
			stops = append(stops, durations[k])
		}
		slices.Sort(stops)
		stops = slices.Compact(stops)

		out = append(out, ir.Event{Time: t, Values: prev})
		for _, d := range stops {
			vals := make([]float64, len(next))
			for k := range next {
				frac := 1.0
				if durations[k] > 0 {
					frac = math.Min(1, d/durations[k])
				}
				vals[k] = prev[k] + frac*(next[k]-prev[k])
			}
			if d == 0 && slices.Equal(vals, prev) {
				continue
			}
			out = append(out, ir.Event{Time: t + d, Values: vals})
		}
		prev = next
	}
	out = append(out, ir.Event{Time: float64(len(data)) * period, Values: prev})
	return out
}
