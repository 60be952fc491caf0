package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/entity"
	"github.com/roach88/dutkit/internal/ir"
	"github.com/roach88/dutkit/internal/store"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_InverterBackendsAgree(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "inverter_alternating"), WithWorkRoot(t.TempDir()))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestRun_RegisterAndAnalogFailure(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "register_random"), WithWorkRoot(t.TempDir()))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "inverter_alternating")

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_FailingAssertions(t *testing.T) {
	s := loadScenario(t, "inverter_alternating")
	zero := 0
	s.Assertions = []Assertion{
		{Type: AssertMatchesReference, Entity: "inv_sv", Port: "Z", Latency: &zero},
		{Type: AssertPayloadCount, Count: 4},
		{Type: AssertFails, Entity: "inv_py"},
		{Type: AssertMatchesReference, Entity: "inv_missing"},
		{Type: AssertMatchesReference, Entity: "inv_eldo", Port: "Z", Threshold: 2},
	}

	result, err := Run(context.Background(), s, WithWorkRoot(t.TempDir()))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "with latency 0")
	assert.Contains(t, result.Errors[0], "mismatches")
	assert.Contains(t, result.Errors[1], "Expected: 4 payloads")
	assert.Contains(t, result.Errors[1], "Actual: 5 payloads")
	assert.Contains(t, result.Errors[2], "run succeeded")
	assert.Contains(t, result.Errors[3], "no such entity")
	assert.Contains(t, result.Errors[4], "bit 0 column 0")
}

func TestRun_ReferenceMustBeUnambiguous(t *testing.T) {
	s := loadScenario(t, "inverter_alternating")
	s.Reference = "inv_nowhere"
	s.Assertions = []Assertion{{Type: AssertMatchesReference, Entity: "inv_sv"}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `reference entity "inv_nowhere" is not in the bench`)
}

func TestRun_MissingStimulusPortFailsRun(t *testing.T) {
	s := loadScenario(t, "inverter_alternating")
	s.Stimulus.Port = "io_A"
	s.Assertions = []Assertion{
		{Type: AssertFails, Entity: "inv_py", Code: "CONFIG"},
		{Type: AssertFails, Entity: "inv_sv", Code: "CONFIG"},
		{Type: AssertPayloadCount, Count: 0},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BackendFailureIsReported(t *testing.T) {
	s := loadScenario(t, "inverter_alternating")
	s.Assertions = []Assertion{
		{Type: AssertFails, Entity: "inv_sv", Code: "BACKEND"},
		{Type: AssertFails, Entity: "inv_eldo", Code: "CONFIG"},
	}
	broken := backend.Registry{
		"rtl": backend.SimulatorFunc(func(context.Context, *backend.Invocation) error {
			return assert.AnError
		}),
	}

	result, err := Run(context.Background(), s, WithSimulators(broken))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	var codes []string
	for _, ev := range result.Trace {
		if ev.Type == EventRun {
			codes = append(codes, ev.Code)
		}
	}
	assert.Equal(t, []string{"CONFIG", "", "BACKEND", "BACKEND"}, codes)
}

func TestRun_SelectedEntities(t *testing.T) {
	s := loadScenario(t, "inverter_alternating")
	s.Assertions = []Assertion{{Type: AssertPayloadCount, Count: 2}}

	result, err := Run(context.Background(), s, WithEntities("inv_sv", "inv_py"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	var entities []string
	for _, ev := range result.Trace {
		if ev.Type == EventRun {
			entities = append(entities, ev.Entity)
		}
	}
	assert.Equal(t, []string{"inv_py", "inv_sv"}, entities)

	_, err = Run(context.Background(), s, WithEntities("inv_py", "nope"))
	assert.ErrorContains(t, err, "unknown entities: [nope]")
}

func TestRun_BadBench(t *testing.T) {
	s := &Scenario{Name: "s", Bench: t.TempDir(), Stimulus: Stimulus{Pattern: PatternAlternating, Length: 2}}
	_, err := Run(context.Background(), s)
	assert.ErrorContains(t, err, "no CUE files")
}

func TestRunAndRecord(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	result, err := RunAndRecord(ctx, loadScenario(t, "register_random"), st)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	runs, err := st.ReadRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	byEntity := map[string]store.Run{}
	for _, r := range runs {
		byEntity[r.Entity] = r
	}
	assert.Equal(t, store.StatusFailed, byEntity["reg_eldo"].Status)
	assert.Equal(t, "CONFIG", byEntity["reg_eldo"].Code)
	assert.Equal(t, store.StatusOK, byEntity["reg_sv"].Status)

	outs, err := st.ReadOutputs(ctx, byEntity["reg_sv"].Instance)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, "io_B", outs[0].Port)

	// Sequential IDs repeat across executions; unique IDs keep both.
	_, err = RunAndRecord(ctx, loadScenario(t, "register_random"), st, WithIDGenerator(entity.UUIDv7Generator{}))
	require.NoError(t, err)
	runs, err = st.ReadRuns(ctx, "reg_sv")
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestCompareSamples(t *testing.T) {
	want := ir.BoolSamples(1, 0, 1, 0)
	assert.Empty(t, compareSamples(ir.BoolSamples(1, 0, 1, 0), want, 0, 0))
	assert.Empty(t, compareSamples(ir.BoolSamples(0, 1, 0, 1), want, 1, 0))
	assert.Len(t, compareSamples(ir.BoolSamples(0, 1, 0, 1), want, 0, 0), 4)
	assert.Equal(t, []string{"3 samples, reference has 4"}, compareSamples(ir.BoolSamples(1, 0, 1), want, 0, 0))

	near := ir.Samples{{complex(1.05, 0)}, {complex(0, -0.05)}}
	assert.Empty(t, compareSamples(near, ir.BoolSamples(1, 0), 0, 0.1))
	assert.Len(t, compareSamples(near, ir.BoolSamples(1, 0), 0, 0.01), 2)
}

func TestCompareWaveform(t *testing.T) {
	// 1 V for the first bit period, 0 V afterwards, at 1 MHz
	wave := ir.Events{
		{Time: 0, Values: []float64{1}},
		{Time: 1e-6, Values: []float64{1}},
		{Time: 1.1e-6, Values: []float64{0}},
		{Time: 3e-6, Values: []float64{0}},
	}
	wc := waveformCheck{rs: 1e6, vdd: 1, threshold: 0.5}
	assert.Empty(t, compareWaveform(wave, ir.BoolSamples(1, 0, 0), wc, 0))
	assert.Len(t, compareWaveform(wave, ir.BoolSamples(0, 0, 0), wc, 0), 1)
	assert.Equal(t, []string{"empty waveform"}, compareWaveform(nil, ir.BoolSamples(1), wc, 0))
}

func TestCompareWaveformTolerance(t *testing.T) {
	// A weak high of 0.8 V on a 1 V supply.
	wave := ir.Events{
		{Time: 0, Values: []float64{0.8}},
		{Time: 1e-6, Values: []float64{0.8}},
		{Time: 1.1e-6, Values: []float64{0.05}},
		{Time: 3e-6, Values: []float64{0.05}},
	}
	want := ir.BoolSamples(1, 0, 0)

	assert.Empty(t, compareWaveform(wave, want, waveformCheck{rs: 1e6, vdd: 1, threshold: 0.5}, 0))
	assert.Empty(t, compareWaveform(wave, want, waveformCheck{rs: 1e6, vdd: 1, threshold: 0.5, tolerance: 0.25}, 0))

	got := compareWaveform(wave, want, waveformCheck{rs: 1e6, vdd: 1, threshold: 0.5, tolerance: 0.1}, 0)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "bit 0 column 0")
}
