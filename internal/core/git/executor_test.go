package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/evolve/pkg/executil"
)

// gitRepo creates a repository on main with one commit and isolates git from
// the user's global configuration.
func gitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	gitCmd(t, dir, "config", "user.name", "evolve")
	gitCmd(t, dir, "config", "user.email", "evolve@example.com")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	writeFile(t, dir, "agent.py", "print('v0')\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExecutor_AddAllSkipsExcluded(t *testing.T) {
	dir := gitRepo(t)
	g := NewExecutor("git", &executil.RealExecutor{})
	ctx := context.Background()

	writeFile(t, dir, "agent_v1.py", "print('v1')\n")
	writeFile(t, dir, ".evolve/evolve.db", "journal")
	writeFile(t, dir, ".env", "GITHUB_TOKEN=ghp_secret\n")

	require.NoError(t, g.CreateBranch(ctx, dir, "evolution-v1"))
	require.NoError(t, g.AddAll(ctx, dir, ".evolve", ".env"))
	require.NoError(t, g.Commit(ctx, dir, "v1"))

	files := gitCmd(t, dir, "show", "--name-only", "--format=", "evolution-v1")
	assert.Equal(t, "agent_v1.py", files)
}

func TestExecutor_RestoreFromBringsBackBranchFiles(t *testing.T) {
	dir := gitRepo(t)
	g := NewExecutor("git", &executil.RealExecutor{})
	ctx := context.Background()

	writeFile(t, dir, "agent_v1.py", "print('v1')\n")
	writeFile(t, dir, ".evolve/evolve.db", "journal")
	require.NoError(t, g.CreateBranch(ctx, dir, "evolution-v1"))
	require.NoError(t, g.AddAll(ctx, dir, ".evolve"))
	require.NoError(t, g.Commit(ctx, dir, "v1"))
	require.NoError(t, g.Checkout(ctx, dir, "main"))

	assert.NoFileExists(t, filepath.Join(dir, "agent_v1.py"), "leaving the branch removes its files")

	require.NoError(t, g.RestoreFrom(ctx, dir, "evolution-v1", "."))

	assert.FileExists(t, filepath.Join(dir, "agent_v1.py"))
	assert.FileExists(t, filepath.Join(dir, ".evolve", "evolve.db"))
	branch, err := g.Branch(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	assert.Empty(t, gitCmd(t, dir, "diff", "--cached", "--name-only"), "index is untouched")
}

func TestExecutor_CreateBranchResetsStaleBranch(t *testing.T) {
	dir := gitRepo(t)
	g := NewExecutor("git", &executil.RealExecutor{})
	ctx := context.Background()

	require.NoError(t, g.CreateBranch(ctx, dir, "evolution-v1"))
	writeFile(t, dir, "stale.txt", "x")
	require.NoError(t, g.AddAll(ctx, dir))
	require.NoError(t, g.Commit(ctx, dir, "stale"))
	require.NoError(t, g.Checkout(ctx, dir, "main"))

	require.NoError(t, g.CreateBranch(ctx, dir, "evolution-v1"))
	assert.Equal(t, gitCmd(t, dir, "rev-parse", "main"), gitCmd(t, dir, "rev-parse", "HEAD"))

	require.NoError(t, g.Checkout(ctx, dir, "main"))
	require.NoError(t, g.DeleteBranch(ctx, dir, "evolution-v1"))
	assert.Empty(t, gitCmd(t, dir, "branch", "--list", "evolution-v1"))
}
