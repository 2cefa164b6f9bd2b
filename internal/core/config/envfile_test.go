package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	input := `
# credentials
OPENAI_API_KEY=sk-abc=def
export GITHUB_TOKEN=ghp_123
REPO="octo/agent"
QUOTED='single'
not a pair
=novalue
   SPACED = value with spaces   
`
	vars, err := ParseEnv(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"OPENAI_API_KEY": "sk-abc=def",
		"GITHUB_TOKEN":   "ghp_123",
		"REPO":           "octo/agent",
		"QUOTED":         "single",
		"SPACED":         "value with spaces",
	}, vars)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EVOLVE_TEST_KEY=from-file\n"), 0o600))

	t.Setenv("EVOLVE_TEST_KEY", "from-env")

	keys, err := LoadEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"EVOLVE_TEST_KEY"}, keys)
	assert.Equal(t, "from-file", os.Getenv("EVOLVE_TEST_KEY"), "file values override the environment")
}

func TestLoadEnvFile_Missing(t *testing.T) {
	keys, err := LoadEnvFile(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EXTRA=keep\nREPO=old/repo\n"), 0o600))

	err := WriteEnvFile(path, map[string]string{
		EnvRepo:        "octo/agent",
		EnvGitHubToken: "ghp_1",
	}, []string{EnvGitHubToken, EnvRepo})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GITHUB_TOKEN=ghp_1\nREPO=octo/agent\nEXTRA=keep\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
