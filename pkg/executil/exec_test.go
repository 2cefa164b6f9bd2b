package executil

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealExecutor_Capture(t *testing.T) {
	e := &RealExecutor{}
	ctx := context.Background()

	t.Run("separates streams", func(t *testing.T) {
		res, err := e.Capture(ctx, "", "sh", "-c", "echo out; echo err >&2")
		require.NoError(t, err)
		assert.Equal(t, "out\n", string(res.Stdout))
		assert.Equal(t, "err\n", string(res.Stderr))
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("non-zero exit keeps stderr", func(t *testing.T) {
		res, err := e.Capture(ctx, "", "sh", "-c", "echo boom >&2; exit 3")
		require.Error(t, err)

		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "boom\n", string(res.Stderr))
	})

	t.Run("deadline reports context error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		_, err := e.Capture(ctx, "", "sleep", "5")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("runs in directory", func(t *testing.T) {
		dir := t.TempDir()
		res, err := e.Capture(ctx, dir, "pwd")
		require.NoError(t, err)
		assert.Contains(t, strings.TrimSpace(string(res.Stdout)), dir)
	})

	t.Run("caps captured output", func(t *testing.T) {
		res, err := e.Capture(ctx, "", "sh", "-c", "head -c 200000 /dev/zero")
		require.NoError(t, err)
		assert.Len(t, res.Stdout, maxCaptureLen)
	})
}

func TestRealExecutor_Run(t *testing.T) {
	e := &RealExecutor{}
	ctx := context.Background()

	out, err := e.Run(ctx, "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = e.Run(ctx, "nonexistent-command-12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec nonexistent-command-12345")
}

func TestRecordingExecutor(t *testing.T) {
	e := &RecordingExecutor{
		Outputs: map[string][]byte{"git": []byte("ok")},
		Errors: map[string]error{
			"git push origin main": errors.New("rejected"),
		},
	}
	ctx := context.Background()

	out, err := e.RunDir(ctx, "/repo", "git", "status")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))

	_, err = e.RunDir(ctx, "/repo", "git", "push", "origin", "main")
	require.EqualError(t, err, "rejected")

	assert.Equal(t, []string{"git status", "git push origin main"}, e.Lines())
	assert.Equal(t, "/repo", e.Commands[0].Dir)

	e.Reset()
	assert.Empty(t, e.Commands)
}
