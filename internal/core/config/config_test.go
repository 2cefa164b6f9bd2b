package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func fullEnv() func(string) string {
	return envMap(map[string]string{
		EnvOpenAIKey:   "sk-test",
		EnvGitHubToken: "ghp_test",
		EnvRepo:        "octo/agent",
	})
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"), dir, fullEnv())
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.WorkDir)
	assert.Equal(t, filepath.Join(dir, DataDirName), cfg.DataDir)
	assert.Equal(t, 3, cfg.Loop.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Loop.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.Loop.ErrorBackoff)
	assert.Equal(t, 60*time.Second, cfg.Build.Timeout)
	assert.Equal(t, 10*time.Second, cfg.SelfCheck.Timeout)
	assert.Equal(t, "gpt-4o", cfg.Generator.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Generator.BaseURL)
	assert.Equal(t, "agent-task", cfg.Labels.Task)
	assert.Equal(t, "agent_v2.py", cfg.Layout().Artifact(2))
	assert.Equal(t, "sk-test", cfg.GeneratorKey())
	assert.Equal(t, "octo/agent", cfg.Credentials.Repo)
	assert.True(t, cfg.Journal.IsEnabled())
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evolve.yaml")
	content := `
base_branch: trunk
agent:
  name: bot
  ext: .rb
  interpreter: ruby
loop:
  poll_interval: 5s
  max_retries: 5
generator:
  provider: gemini
journal:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, dir, envMap(map[string]string{EnvGeminiKey: "AIza"}))
	require.NoError(t, err)

	assert.Equal(t, "trunk", cfg.BaseBranch)
	assert.Equal(t, "bot_v1.rb", cfg.Layout().Artifact(1))
	assert.Equal(t, "ruby", cfg.Agent.Interpreter)
	assert.Equal(t, "--test", cfg.Agent.SelfCheckFlag, "unset nested keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Loop.PollInterval)
	assert.Equal(t, 5, cfg.Loop.MaxRetries)
	assert.Equal(t, "gemini-2.5-pro", cfg.Generator.Model)
	assert.Empty(t, cfg.Generator.BaseURL)
	assert.Equal(t, "AIza", cfg.GeneratorKey())
	assert.Equal(t, EnvGeminiKey, cfg.GeneratorKeyName())
	assert.False(t, cfg.Journal.IsEnabled())
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evolve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loop: [unclosed"), 0o644))

	_, err := Load(path, dir, fullEnv())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero retries", func(c *Config) { c.Loop.MaxRetries = 0 }, "max_retries"},
		{"same labels", func(c *Config) { c.Labels.Retry = c.Labels.Failed }, "distinct"},
		{"bad provider", func(c *Config) { c.Generator.Provider = "llama" }, "generator.provider"},
		{"no build timeout", func(c *Config) { c.Build.Timeout = 0 }, "build.timeout"},
		{"handoff code", func(c *Config) { c.Supervisor.HandoffExitCode = 200 }, "handoff_exit_code"},
		{"empty git", func(c *Config) { c.GitPath = "" }, "git_path"},
		{"unknown theme", func(c *Config) { c.Theme = "solarized" }, "tokyo-night"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.WorkDir = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir, envMap(map[string]string{EnvRepo: "octo/agent"}))
	require.NoError(t, err, "loading never fails on missing credentials")

	err = cfg.RequireCredentials()
	var missing *MissingCredentialsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{EnvOpenAIKey, EnvGitHubToken}, missing.Missing)
	assert.Contains(t, missing.Hint(), "OPENAI_API_KEY=sk-...")
	assert.Contains(t, missing.Hint(), "GITHUB_TOKEN=ghp_...")
	assert.NotContains(t, missing.Hint(), "REPO=")
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir, fullEnv())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "agent_v1.py"), cfg.Path("agent_v1.py"))
	assert.Equal(t, "/abs/agent.py", cfg.Path("/abs/agent.py"))
	assert.Equal(t, filepath.Join(dir, ".evolve", "evolve.db"), cfg.JournalPath())
	assert.Equal(t, filepath.Join(dir, ".evolve", "handoff.json"), cfg.HandoffPath())
}

func TestPublishExcludes(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir, fullEnv())
	require.NoError(t, err)

	assert.Equal(t, []string{".evolve"}, cfg.PublishExcludes())

	cfg.EnvFile = filepath.Join(dir, ".env")
	assert.Equal(t, []string{".evolve", ".env"}, cfg.PublishExcludes())

	cfg.EnvFile = "secrets/prod.env"
	assert.Equal(t, []string{".evolve", "secrets/prod.env"}, cfg.PublishExcludes())

	cfg.EnvFile = filepath.Join(t.TempDir(), "evolve.env")
	assert.Equal(t, []string{".evolve"}, cfg.PublishExcludes(), "files outside the work tree need no exclusion")
}
