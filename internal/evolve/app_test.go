package evolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/pkg/executil"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkDir = t.TempDir()
	cfg.DataDir = filepath.Join(cfg.WorkDir, config.DataDirName)
	cfg.Generator.Model = "gpt-4o"
	cfg.Generator.BaseURL = "http://127.0.0.1:1/v1"
	cfg.Credentials = config.Credentials{OpenAIKey: "sk-test", GitHubToken: "ghp_test", Repo: "octo/agent"}

	app := NewApp(&cfg, &executil.RecordingExecutor{})
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestApp_ResolveAgent(t *testing.T) {
	app := testApp(t)

	agent, err := app.ResolveAgent("custom.py")
	require.NoError(t, err)
	assert.Equal(t, "custom.py", agent)

	agent, err = app.ResolveAgent("")
	require.NoError(t, err)
	assert.Equal(t, "agent.py", agent, "bootstrap when no artifact exists")

	touch(t, app.Config.WorkDir, "agent_v2.py")
	touch(t, app.Config.WorkDir, "agent_v11.py")

	agent, err = app.ResolveAgent("")
	require.NoError(t, err)
	assert.Equal(t, "agent_v11.py", agent)
}

func TestApp_CompletionClient(t *testing.T) {
	app := testApp(t)

	client, err := app.CompletionClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)

	app.Config.Generator.Provider = "anthropic"
	_, err = app.CompletionClient(context.Background())
	require.ErrorContains(t, err, `unknown generator provider "anthropic"`)
}

func TestApp_NewLoopOpensJournal(t *testing.T) {
	app := testApp(t)

	loop, err := app.NewLoop(context.Background(), "agent.py")
	require.NoError(t, err)
	require.NotNil(t, loop)

	_, err = os.Stat(app.Config.JournalPath())
	require.NoError(t, err)

	j1, err := app.Journal()
	require.NoError(t, err)
	j2, err := app.Journal()
	require.NoError(t, err)
	assert.Same(t, j1, j2)
}

func TestApp_NewLoopExcludesDataAndCredentials(t *testing.T) {
	app := testApp(t)
	app.Config.EnvFile = filepath.Join(app.Config.WorkDir, ".env")

	loop, err := app.NewLoop(context.Background(), "agent.py")
	require.NoError(t, err)

	controller, ok := loop.runner.(*Controller)
	require.True(t, ok)
	publisher, ok := controller.publisher.(*Publisher)
	require.True(t, ok)
	assert.Equal(t, []string{".evolve", ".env"}, publisher.exclude)
}

func TestApp_NewLoopJournalDisabled(t *testing.T) {
	app := testApp(t)
	disabled := false
	app.Config.Journal.Enabled = &disabled

	_, err := app.NewLoop(context.Background(), "agent.py")
	require.NoError(t, err)
	assert.NoFileExists(t, app.Config.JournalPath())
}

func TestDoctorService_Checks(t *testing.T) {
	app := testApp(t)

	names := make([]string, 0, 4)
	for _, c := range app.Doctor.Checks() {
		names = append(names, c.Name())
	}
	assert.Len(t, names, 4)
	assert.Contains(t, names, "Agent")

	results := app.Doctor.RunChecks(context.Background())
	require.Len(t, results, 4)
}
