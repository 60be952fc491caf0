package ir

import (
	"fmt"
	"math"
)

// Samples is a discrete-time buffer. Samples[n][k] is column k at tick n.
//
// Bool, int and real buffers use the real part only. Scomplex buffers use
// both parts, each holding an integer.
type Samples [][]complex128

// BoolSamples builds a single-column buffer from bits.
func BoolSamples(bits ...int) Samples {
	s := make(Samples, len(bits))
	for i, b := range bits {
		s[i] = []complex128{complex(float64(b), 0)}
	}
	return s
}

// Width returns the column cardinality.
// Returns an error if rows have differing widths.
func (s Samples) Width() (int, error) {
	if len(s) == 0 {
		return 0, nil
	}
	w := len(s[0])
	for i, row := range s {
		if len(row) != w {
			return 0, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), w)
		}
	}
	return w, nil
}

// Column returns the real parts of column k.
func (s Samples) Column(k int) []float64 {
	out := make([]float64, len(s))
	for i, row := range s {
		out[i] = real(row[k])
	}
	return out
}

// Clone returns a deep copy.
func (s Samples) Clone() Samples {
	if s == nil {
		return nil
	}
	out := make(Samples, len(s))
	for i, row := range s {
		out[i] = append([]complex128(nil), row...)
	}
	return out
}

// Equal reports whether both buffers hold identical values.
func (s Samples) Equal(o Samples) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if len(s[i]) != len(o[i]) {
			return false
		}
		for k := range s[i] {
			if s[i][k] != o[i][k] {
				return false
			}
		}
	}
	return true
}

// Check validates every value against the type tag.
func (s Samples) Check(t DataType) error {
	for n, row := range s {
		for k, v := range row {
			if err := checkValue(t, v); err != nil {
				return fmt.Errorf("sample %d column %d: %w", n, k, err)
			}
		}
	}
	return nil
}

func checkValue(t DataType, v complex128) error {
	re, im := real(v), imag(v)
	if math.IsNaN(re) || math.IsNaN(im) || math.IsInf(re, 0) || math.IsInf(im, 0) {
		return fmt.Errorf("non-finite value %v", v)
	}
	switch t {
	case DataBool:
		if im != 0 || (re != 0 && re != 1) {
			return fmt.Errorf("value %v is not 0 or 1", v)
		}
	case DataInt:
		if im != 0 || re != math.Trunc(re) {
			return fmt.Errorf("value %v is not an integer", v)
		}
		if !fitsInt64(re) {
			return fmt.Errorf("value %v overflows int64", v)
		}
	case DataSComplex:
		if re != math.Trunc(re) || im != math.Trunc(im) {
			return fmt.Errorf("value %v is not fixed-point", v)
		}
		if !fitsInt64(re) || !fitsInt64(im) {
			return fmt.Errorf("value %v overflows int64", v)
		}
	case DataReal:
		if im != 0 {
			return fmt.Errorf("value %v has an imaginary part", v)
		}
	default:
		return fmt.Errorf("unknown data type %q", t)
	}
	return nil
}

// fitsInt64 reports whether the whole number f converts to int64 exactly.
// -2^63 is representable, 2^63 is not.
func fitsInt64(f float64) bool {
	return f >= math.MinInt64 && f < -math.MinInt64
}

// Event is one row of a continuous-time waveform.
type Event struct {
	Time   float64   `json:"time"`
	Values []float64 `json:"values"`
}

// Events is a continuous-time waveform with non-decreasing timestamps.
type Events []Event

// Check validates width and time monotonicity.
func (e Events) Check(width int) error {
	for i, ev := range e {
		if len(ev.Values) != width {
			return fmt.Errorf("event %d has %d values, expected %d", i, len(ev.Values), width)
		}
		if i > 0 && ev.Time < e[i-1].Time {
			return fmt.Errorf("event %d time %g precedes %g", i, ev.Time, e[i-1].Time)
		}
	}
	return nil
}

// At returns the value of signal k at time t by linear interpolation.
// Times outside the waveform clamp to the first or last event.
func (e Events) At(t float64, k int) float64 {
	if len(e) == 0 {
		return 0
	}
	if t <= e[0].Time {
		return e[0].Values[k]
	}
	for i := 1; i < len(e); i++ {
		if t <= e[i].Time {
			a, b := e[i-1], e[i]
			if b.Time == a.Time {
				return b.Values[k]
			}
			f := (t - a.Time) / (b.Time - a.Time)
			return a.Values[k] + f*(b.Values[k]-a.Values[k])
		}
	}
	return e[len(e)-1].Values[k]
}
