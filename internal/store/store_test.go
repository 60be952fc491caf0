package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dutkit/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPayload(instance, port string, bits ...int) ir.Payload {
	return ir.Payload{Entity: "inv", Instance: instance, Model: "sv", Port: port, Samples: ir.BoolSamples(bits...)}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	for name, want := range map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
		"user_version": "1",
	} {
		got, err := s.pragma(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{Instance: "run-0001", Entity: "inv", Model: "sv", Status: StatusOK}
	require.NoError(t, s.RecordRun(ctx, run, []ir.Payload{testPayload("run-0001", "Z", 0, 1, 0)}))

	runs, err := s.ReadRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1), runs[0].Seq)
	assert.Equal(t, "inv", runs[0].Entity)
	assert.Equal(t, StatusOK, runs[0].Status)

	outs, err := s.ReadOutputs(ctx, "run-0001")
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, int64(2), outs[0].Seq)
	assert.Equal(t, "Z", outs[0].Port)

	want, err := testPayload("run-0001", "Z", 0, 1, 0).Digest()
	require.NoError(t, err)
	assert.Equal(t, want, outs[0].Digest)
	assert.Contains(t, outs[0].Data, `"port":"Z"`)
}

func TestRecordRun_Failed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{Instance: "run-0001", Entity: "inv", Model: "eldo", Status: StatusFailed, Code: "BACKEND", Error: "simulator exited 1"}
	require.NoError(t, s.RecordRun(ctx, run, nil))

	runs, err := s.ReadRuns(ctx, "inv")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "BACKEND", runs[0].Code)
	assert.Equal(t, "simulator exited 1", runs[0].Error)

	outs, err := s.ReadOutputs(ctx, "run-0001")
	require.NoError(t, err)
	assert.Empty(t, outs)
	assert.NotNil(t, outs)
}

func TestRecordRun_Rejects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.RecordRun(ctx, Run{Entity: "inv", Status: StatusOK}, nil))
	assert.Error(t, s.RecordRun(ctx, Run{Instance: "a", Status: "maybe"}, nil))

	err := s.RecordRun(ctx, Run{Instance: "a", Entity: "inv", Model: "sv", Status: StatusOK},
		[]ir.Payload{testPayload("b", "Z", 1)})
	assert.ErrorContains(t, err, "belongs to instance b")

	runs, err := s.ReadRuns(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, runs, "failed transaction leaves no run behind")
}

func TestRecordRun_DuplicateInstanceIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{Instance: "run-0001", Entity: "inv", Model: "sv", Status: StatusOK}
	require.NoError(t, s.RecordRun(ctx, run, []ir.Payload{testPayload("run-0001", "Z", 1)}))
	require.NoError(t, s.RecordRun(ctx, run, []ir.Payload{testPayload("run-0001", "Z", 1)}))

	runs, err := s.ReadRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	outs, err := s.ReadOutputs(ctx, "run-0001")
	require.NoError(t, err)
	assert.Len(t, outs, 1)
}

func TestReadRuns_FilterAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, r := range []Run{
		{Instance: "r1", Entity: "inv", Model: "py", Status: StatusOK},
		{Instance: "r2", Entity: "reg", Model: "sv", Status: StatusOK},
		{Instance: "r3", Entity: "inv", Model: "sv", Status: StatusOK},
	} {
		require.NoError(t, s.RecordRun(ctx, r, nil))
	}

	runs, err := s.ReadRuns(ctx, "inv")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r1", runs[0].Instance)
	assert.Equal(t, "r3", runs[1].Instance)
	assert.Less(t, runs[0].Seq, runs[1].Seq)
}

func TestFindByDigest_MatchesEqualOutputs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, Run{Instance: "r1", Entity: "inv", Model: "sv", Status: StatusOK},
		[]ir.Payload{testPayload("r1", "Z", 1, 0)}))
	require.NoError(t, s.RecordRun(ctx, Run{Instance: "r2", Entity: "inv", Model: "sv", Status: StatusOK},
		[]ir.Payload{testPayload("r2", "Z", 1, 0)}))
	require.NoError(t, s.RecordRun(ctx, Run{Instance: "r3", Entity: "inv", Model: "sv", Status: StatusOK},
		[]ir.Payload{testPayload("r3", "Z", 0, 0)}))

	digest, err := testPayload("any", "Z", 1, 0).Digest()
	require.NoError(t, err)
	outs, err := s.FindByDigest(ctx, digest)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "r1", outs[0].Instance)
	assert.Equal(t, "r2", outs[1].Instance)
}

func TestOpen_ResumesClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.RecordRun(ctx, Run{Instance: "r1", Entity: "inv", Model: "sv", Status: StatusOK},
		[]ir.Payload{testPayload("r1", "Z", 1)}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, int64(2), s2.clock.Current())

	require.NoError(t, s2.RecordRun(ctx, Run{Instance: "r2", Entity: "inv", Model: "sv", Status: StatusOK}, nil))
	runs, err := s2.ReadRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[1].Seq)
}

func TestOutputsRequireRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.DB().Exec(`INSERT INTO outputs (seq, instance, port, digest, data) VALUES (1, 'ghost', 'Z', 'd', '{}')`)
	assert.Error(t, err, "foreign key must reject outputs without a run")
}

func TestClock(t *testing.T) {
	c := NewClockAt(5)
	assert.Equal(t, int64(5), c.Current())
	assert.Equal(t, int64(6), c.Next())
	assert.Equal(t, int64(7), c.Next())
}
