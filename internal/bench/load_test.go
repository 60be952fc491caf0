package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBench(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func TestLoadMergesFiles(t *testing.T) {
	dir := writeBench(t, map[string]string{
		"bench.cue": "package bench\n\nbench: { rs: 100e6, vdd: 1.0 }\n",
		"inv.cue":   "package bench\n\nentity: inv_sv: { design: \"inverter\", model: \"sv\" }\n",
		"notes.txt": "not a cue file",
	})

	spec, errs := Load(dir)
	require.Empty(t, errs)
	require.Len(t, spec.Entities, 1)
	assert.Equal(t, "inv_sv", spec.Entities[0].Name)
	assert.Equal(t, 100e6, spec.Rs)
}

func TestLoadErrors(t *testing.T) {
	_, errs := Load(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, []string{ErrCodeNotFound}, codes(errs))

	_, errs = Load(t.TempDir())
	assert.Equal(t, []string{ErrCodeNoFiles}, codes(errs))

	dir := writeBench(t, map[string]string{"bad.cue": "package bench\n\nentity: {\n"})
	_, errs = Load(dir)
	assert.Equal(t, []string{ErrCodeLoadFailed}, codes(errs))

	dir = writeBench(t, map[string]string{"conflict.cue": "package bench\n\nbench: rs: 1\nbench: rs: 2\n"})
	_, errs = Load(dir)
	assert.Equal(t, []string{ErrCodeBuildFailed}, codes(errs))
}

func TestFindCUEFiles(t *testing.T) {
	dir := writeBench(t, map[string]string{"a.cue": "package bench", "b.txt": ""})
	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}
