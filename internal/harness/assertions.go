package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/dutkit/internal/entity"
	"github.com/roach88/dutkit/internal/ir"
)

// maxReported bounds the mismatches listed in one assertion failure.
const maxReported = 4

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Entity   string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Entity != "" {
		fmt.Fprintf(&buf, " (%s)", e.Entity)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

func (h *Harness) check(a Assertion) error {
	switch a.Type {
	case AssertMatchesReference:
		return h.assertMatchesReference(a)
	case AssertPayloadCount:
		return h.assertPayloadCount(a)
	case AssertFails:
		return h.assertFails(a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (h *Harness) assertPayloadCount(a Assertion) error {
	if h.total != a.Count {
		return &AssertionError{
			Type:     AssertPayloadCount,
			Expected: fmt.Sprintf("%d payloads", a.Count),
			Actual:   fmt.Sprintf("%d payloads", h.total),
		}
	}
	return nil
}

func (h *Harness) assertFails(a Assertion) error {
	o, ok := h.outcomes[a.Entity]
	if !ok {
		return &AssertionError{Type: AssertFails, Entity: a.Entity, Expected: "a bench entity", Actual: "no such entity"}
	}
	expected := "run fails"
	if a.Code != "" {
		expected = fmt.Sprintf("run fails with %s", a.Code)
	}
	if o.err == nil {
		return &AssertionError{Type: AssertFails, Entity: a.Entity, Expected: expected, Actual: "run succeeded"}
	}
	if a.Code != "" && string(o.err.Code) != a.Code {
		return &AssertionError{Type: AssertFails, Entity: a.Entity, Expected: expected, Actual: o.err.Error()}
	}
	return nil
}

// reference returns the entity outputs are compared against.
func (h *Harness) reference() (*outcome, error) {
	if name := h.scenario.Reference; name != "" {
		o, ok := h.outcomes[name]
		if !ok {
			return nil, fmt.Errorf("reference entity %q is not in the bench", name)
		}
		return o, nil
	}
	var found *outcome
	for _, e := range h.entities {
		if e.Config().Model.Class() != entity.ClassFunctional {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("bench has several functional entities; set reference")
		}
		found = h.outcomes[e.Name()]
	}
	if found == nil {
		return nil, fmt.Errorf("bench has no functional entity; set reference")
	}
	return found, nil
}

func (h *Harness) assertMatchesReference(a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: AssertMatchesReference, Entity: a.Entity, Expected: expected, Actual: actual}
	}

	o, ok := h.outcomes[a.Entity]
	if !ok {
		return fail("a bench entity", "no such entity")
	}
	ref, err := h.reference()
	if err != nil {
		return fail("a reference entity", err.Error())
	}
	if ref.err != nil {
		return fail("reference run succeeds", ref.err.Error())
	}
	if o.err != nil {
		return fail("run succeeds", o.err.Error())
	}

	ports := []string{a.Port}
	if a.Port == "" {
		ports = ports[:0]
		for _, p := range ref.payloads {
			ports = append(ports, p.Port)
		}
	}

	latency := o.e.Latency()
	if a.Latency != nil {
		latency = *a.Latency
	}

	for _, port := range ports {
		want, ok := ref.payload(port)
		if !ok || want.Samples == nil {
			return fail(fmt.Sprintf("reference output %s", port), "not published as samples")
		}
		got, ok := o.payload(port)
		if !ok {
			return fail(fmt.Sprintf("output %s", port), "not published")
		}

		var mismatches []string
		if got.Events != nil {
			cfg := o.e.Config()
			wc := waveformCheck{rs: cfg.Rs, vdd: cfg.Vdd, threshold: a.Threshold, tolerance: a.Tolerance}
			if wc.threshold == 0 {
				wc.threshold = cfg.Vdd / 2
			}
			mismatches = compareWaveform(got.Events, want.Samples, wc, latency)
		} else {
			mismatches = compareSamples(got.Samples, want.Samples, latency, a.Tolerance)
		}
		if len(mismatches) > 0 {
			shown := mismatches[:min(len(mismatches), maxReported)]
			return fail(
				fmt.Sprintf("output %s equal to %s with latency %d", port, ref.e.Name(), latency),
				fmt.Sprintf("%d mismatches: %s", len(mismatches), strings.Join(shown, "; ")),
			)
		}
	}
	return nil
}

// compareSamples compares got against want delayed by latency samples.
// The first latency samples of got are not compared.
func compareSamples(got, want ir.Samples, latency int, tolerance float64) []string {
	if len(got) != len(want) {
		return []string{fmt.Sprintf("%d samples, reference has %d", len(got), len(want))}
	}
	var out []string
	for n := latency; n < len(got); n++ {
		g, w := got[n], want[n-latency]
		if len(g) != len(w) {
			out = append(out, fmt.Sprintf("sample %d: %d columns, reference has %d", n, len(g), len(w)))
			continue
		}
		for k := range g {
			if math.Abs(real(g[k])-real(w[k])) > tolerance || math.Abs(imag(g[k])-imag(w[k])) > tolerance {
				out = append(out, fmt.Sprintf("sample %d column %d: got %v, want %v", n, k, g[k], w[k]))
			}
		}
	}
	return out
}

// waveformCheck describes how a waveform is read back as bits.
type waveformCheck struct {
	rs        float64 // bit rate
	vdd       float64 // voltage of a 1
	threshold float64 // logic threshold
	tolerance float64 // if set, largest distance from the ideal level
}

// compareWaveform samples a waveform at the midpoint of every bit period
// and compares it with the reference bits. Without a tolerance the sample is
// thresholded. With one it must lie within tolerance volts of 0 or Vdd.
func compareWaveform(got ir.Events, want ir.Samples, wc waveformCheck, latency int) []string {
	if len(got) == 0 {
		return []string{"empty waveform"}
	}
	var out []string
	for n := latency; n < len(want); n++ {
		t := (float64(n) + 0.5) / wc.rs
		for k, w := range want[n-latency] {
			v := got.At(t, k)
			if wc.tolerance > 0 {
				if ideal := real(w) * wc.vdd; math.Abs(v-ideal) > wc.tolerance {
					out = append(out, fmt.Sprintf("bit %d column %d: %.3gV at %.4gs, want %.3gV ±%.3g", n, k, v, t, ideal, wc.tolerance))
				}
				continue
			}
			bit := 0.0
			if v > wc.threshold {
				bit = 1
			}
			if bit != real(w) {
				out = append(out, fmt.Sprintf("bit %d column %d: %.3gV at %.4gs, want %v", n, k, v, t, real(w)))
			}
		}
	}
	return out
}
