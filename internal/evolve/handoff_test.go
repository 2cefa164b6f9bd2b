package evolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/evolve/internal/core/evolution"
)

func TestHandoff_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".evolve", "handoff.json")
	want := evolution.Handoff{Version: 3, Artifact: "agent_v3.py", Task: 42}

	require.NoError(t, WriteHandoff(path, want))

	got, err := ReadHandoff(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoFileExists(t, path+".tmp")

	// A later handoff replaces the earlier one.
	require.NoError(t, WriteHandoff(path, evolution.Handoff{Version: 4, Artifact: "agent_v4.py"}))
	got, err = ReadHandoff(path)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Version)
}

func TestReadHandoff_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadHandoff(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{"), 0o644))
	_, err = ReadHandoff(garbage)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"version":2}`), 0o644))
	_, err = ReadHandoff(empty)
	require.ErrorContains(t, err, "no artifact")
}
