package iofile

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dutkit/internal/ir"
)

func TestRoundTripEveryType(t *testing.T) {
	tests := []struct {
		name    string
		typ     ir.DataType
		signals []string
		data    ir.Samples
	}{
		{"bool", ir.DataBool, []string{"A"}, ir.BoolSamples(0, 1, 0, 1, 1)},
		{"int", ir.DataInt, []string{"a", "b"}, ir.Samples{{-32768, 32767}, {0, 9007199254740991}}},
		{"scomplex", ir.DataSComplex, []string{"io_A_0_real", "io_A_0_imag", "io_A_1_real", "io_A_1_imag"},
			ir.Samples{{complex(-5, 7), complex(32767, -32768)}, {0, complex(1, -1)}}},
		{"real", ir.DataReal, []string{"x"}, ir.Samples{{0.1}, {-1e-300}, {1.0 / 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			spec := Spec{Name: "P", Dir: ir.In, Kind: ir.KindSample, Type: tt.typ, Signals: tt.signals}

			f, err := NewInput(dir, spec, tt.data)
			require.NoError(t, err)
			require.NoError(t, f.Write())

			got, err := f.ReadSamples()
			require.NoError(t, err)
			assert.True(t, tt.data.Equal(got), "got %v, want %v", got, tt.data)
		})
	}
}

func TestDigitalFormat(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "io_A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataSComplex,
		Signals: []string{"io_A_0_real", "io_A_0_imag"}}
	f, err := NewInput(dir, spec, ir.Samples{{complex(3, -4)}, {complex(0, 1)}})
	require.NoError(t, err)
	require.NoError(t, f.Write())

	raw, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "3\t-4\n0\t1\n", string(raw))
	assert.Equal(t, filepath.Join(dir, "in_io_A.txt"), f.Path)
}

func TestNewInputCardinalityMismatch(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"A0", "A1"}}

	_, err := NewInput(dir, spec, ir.BoolSamples(1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 signal names")

	// Nothing is written at construction time.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewInputRejectsBadValues(t *testing.T) {
	spec := Spec{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"A"}}
	_, err := NewInput(t.TempDir(), spec, ir.Samples{{2}})
	assert.Error(t, err)

	_, err = NewInput(t.TempDir(), spec, nil)
	assert.Error(t, err)

	wide := Spec{Name: "N", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataInt, Signals: []string{"N"}}
	_, err = NewInput(t.TempDir(), wide, ir.Samples{{1e19}})
	assert.ErrorContains(t, err, "overflows int64")
}

func TestEncodeRejectsOverflow(t *testing.T) {
	spec := Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataInt, Signals: []string{"Z"}}
	f, err := NewOutput(t.TempDir(), spec)
	require.NoError(t, err)

	assert.Error(t, f.WriteSamples(ir.Samples{{1}, {-1e19}}))
	require.NoError(t, f.WriteSamples(ir.Samples{{math.MinInt64}}))
	got, err := f.ReadSamples()
	require.NoError(t, err)
	assert.Equal(t, ir.Samples{{math.MinInt64}}, got)
}

func TestSpecValidate(t *testing.T) {
	base := Spec{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"A"}}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"no name", func(s *Spec) { s.Name = "" }},
		{"bad direction", func(s *Spec) { s.Dir = "inout" }},
		{"bad kind", func(s *Spec) { s.Kind = "stream" }},
		{"bad type", func(s *Spec) { s.Type = "fixed" }},
		{"no signals", func(s *Spec) { s.Signals = nil }},
		{"duplicate signal", func(s *Spec) { s.Signals = []string{"A", "A"} }},
		{"odd scomplex names", func(s *Spec) { s.Type = ir.DataSComplex; s.Signals = []string{"re", "im", "re2"} }},
		{"zero rate", func(s *Spec) { s.Electrical = &Electrical{Rate: 0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestReadTruncatedRowIsMalformed(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataInt, Signals: []string{"Z0", "Z1"}}
	f, err := NewOutput(dir, spec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Path, []byte("1\t0\n0\t1\n1\n"), 0o644))

	data, err := f.ReadSamples()
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, IsMalformed(err))

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Z", fe.Port)
	assert.Equal(t, 3, fe.Line)
}

func TestReadBlankLineIsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		line int
	}{
		{"inside", "1\n\n0\n", 2},
		{"leading", "\n1\n0\n", 1},
		{"trailing", "1\n0\n\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataInt, Signals: []string{"Z"}}
			f, err := NewOutput(t.TempDir(), spec)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(f.Path, []byte(tt.raw), 0o644))

			data, err := f.ReadSamples()
			assert.Nil(t, data)
			require.True(t, IsMalformed(err), "got %v", err)

			var fe *FileError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.line, fe.Line)
		})
	}
}

func TestReadWithoutFinalNewline(t *testing.T) {
	spec := Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataInt, Signals: []string{"Z"}}
	f, err := NewOutput(t.TempDir(), spec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Path, []byte("1\n0"), 0o644))

	data, err := f.ReadSamples()
	require.NoError(t, err)
	assert.Equal(t, ir.Samples{{1}, {0}}, data)
}

func TestReadBadValueIsMalformed(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"Z"}}
	f, err := NewOutput(dir, spec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Path, []byte("1\nx\n"), 0o644))

	_, err = f.ReadSamples()
	assert.True(t, IsMalformed(err))
	assert.Contains(t, err.Error(), "signal Z")
}

func TestReadMissingAndEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"Z"}}
	f, err := NewOutput(dir, spec)
	require.NoError(t, err)

	_, err = f.ReadSamples()
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrCodeMissing, fe.Code)

	require.NoError(t, os.WriteFile(f.Path, nil, 0o644))
	_, err = f.ReadSamples()
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrCodeMalformed, fe.Code)
}

func TestEventsRoundTripAndMonotonicity(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindEvent, Type: ir.DataReal, Signals: []string{"OUT"}}
	f, err := NewOutput(dir, spec)
	require.NoError(t, err)

	events := ir.Events{{Time: 0, Values: []float64{1}}, {Time: 2.5e-9, Values: []float64{0.5}}, {Time: 2.5e-9, Values: []float64{0}}}
	require.NoError(t, f.WriteEvents(events))
	got, err := f.ReadEvents()
	require.NoError(t, err)
	assert.Equal(t, events, got)

	require.NoError(t, os.WriteFile(f.Path, []byte("1e-9\t0\n0\t1\n"), 0o644))
	_, err = f.ReadEvents()
	assert.True(t, IsMalformed(err))
}

func TestPWL(t *testing.T) {
	e := Electrical{Rate: 1, Rise: 0.25, Fall: 0.5, VHigh: 1, VLow: 0}
	got := e.PWL(ir.BoolSamples(0, 1, 1, 0))

	want := ir.Events{
		{Time: 0, Values: []float64{0}},
		{Time: 1, Values: []float64{0}},
		{Time: 1.25, Values: []float64{1}},
		{Time: 3, Values: []float64{1}},
		{Time: 3.5, Values: []float64{0}},
		{Time: 4, Values: []float64{0}},
	}
	assert.Equal(t, want, got)
	require.NoError(t, got.Check(1))
}

func TestPWLStep(t *testing.T) {
	e := Electrical{Rate: 2, VHigh: 1.8}
	got := e.PWL(ir.BoolSamples(1, 0))
	assert.Equal(t, ir.Events{
		{Time: 0, Values: []float64{1.8}},
		{Time: 0.5, Values: []float64{1.8}},
		{Time: 0.5, Values: []float64{0}},
		{Time: 1, Values: []float64{0}},
	}, got)
}

func TestNewInputAnalogConvertsToPWL(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"IN<0>"},
		Electrical: &Electrical{Rate: 100e6, Rise: 2.5e-9, Fall: 2.5e-9, VHigh: 1}}
	f, err := NewInput(dir, spec, ir.BoolSamples(0, 1))
	require.NoError(t, err)
	assert.True(t, f.Analog())
	require.NoError(t, f.Write())

	got, err := f.ReadEvents()
	require.NoError(t, err)
	assert.Equal(t, f.Staged(), got)
	assert.InDelta(t, 1.0, got.At(15e-9, 0), 1e-12)

	_, err = f.ReadSamples()
	assert.Error(t, err, "analog files are not read as samples")

	spec.Kind = ir.KindEvent
	_, err = NewInput(dir, spec, ir.BoolSamples(0, 1))
	assert.Error(t, err, "event inputs take a waveform, not samples")
}

func TestSetCloseReleasesFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "run")
	require.NoError(t, os.Mkdir(dir, 0o755))

	s := NewSet(dir, false)
	in, err := NewInput(dir, Spec{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"A"}}, ir.BoolSamples(1))
	require.NoError(t, err)
	require.NoError(t, s.Add(in))
	out, err := NewOutput(dir, Spec{Name: "Z", Dir: ir.Out, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"Z"}})
	require.NoError(t, err)
	require.NoError(t, s.Add(out))
	assert.Error(t, s.Add(out), "duplicate names are rejected")

	require.NoError(t, s.Stage())
	assert.FileExists(t, in.Path)
	assert.Equal(t, []*File{in}, s.Inputs())
	assert.Equal(t, []*File{out}, s.Outputs())
	assert.Same(t, out, s.Get("Z"))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.NoDirExists(t, dir)
	assert.Nil(t, in.samples)
}

func TestSetPreserveKeepsFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewSet(dir, true)
	in, err := NewInput(dir, Spec{Name: "A", Dir: ir.In, Kind: ir.KindSample, Type: ir.DataBool, Signals: []string{"A"}}, ir.BoolSamples(1))
	require.NoError(t, err)
	require.NoError(t, s.Add(in))
	require.NoError(t, s.Stage())
	require.NoError(t, s.Close())
	assert.FileExists(t, in.Path)
}
