package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultsMissingDatabase(t *testing.T) {
	_, err := execute(t, NewResultsCommand(&RootOptions{Format: "text"}),
		"--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestResultsRequiresDB(t *testing.T) {
	_, err := execute(t, NewResultsCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestResultsAfterTest(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	for range 2 {
		_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}),
			"--db", dbPath, "--filter", "register*", scenariosDir)
		require.NoError(t, err)
	}

	out, err := execute(t, NewResultsCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)
	var runs []RunRecord
	decodeData(t, out, &runs)
	require.Len(t, runs, 6)
	for i := 1; i < len(runs); i++ {
		assert.Less(t, runs[i-1].Seq, runs[i].Seq)
	}

	out, err = execute(t, NewResultsCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--entity", "reg_eldo")
	require.NoError(t, err)
	assert.Contains(t, out, "reg_eldo")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "CONFIG")
	assert.NotContains(t, out, "reg_sv")

	// Both executions used the same seeded stimulus.
	out, err = execute(t, NewResultsCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--entity", "reg_sv")
	require.NoError(t, err)
	runs = nil
	decodeData(t, out, &runs)
	require.Len(t, runs, 2)
	require.Len(t, runs[0].Outputs, 1)
	assert.Equal(t, runs[0].Outputs[0].Digest, runs[1].Outputs[0].Digest)

	out, err = execute(t, NewResultsCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--digest", runs[0].Outputs[0].Digest)
	require.NoError(t, err)
	var matches []OutputRecord
	decodeData(t, out, &matches)
	require.Len(t, matches, 2)
	assert.Equal(t, runs[0].Instance, matches[0].Instance)
	assert.Equal(t, runs[1].Instance, matches[1].Instance)
}

func TestResultsEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--db", dbPath, t.TempDir())
	require.NoError(t, err)

	// No scenarios ran, so the store was never opened.
	_, err = execute(t, NewResultsCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}
