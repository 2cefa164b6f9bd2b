// Package executil provides child process execution utilities.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

const (
	// maxCaptureLen caps each captured stream so a chatty script cannot exhaust
	// memory or flood a generation prompt.
	maxCaptureLen = 64 * 1024

	// waitDelay bounds how long Wait blocks on pipes held open by orphaned
	// grandchildren after the direct child has exited or been killed.
	waitDelay = 2 * time.Second
)

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// Result is the captured outcome of a finished child process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Executor runs child processes.
type Executor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
	// RunDir executes a command in a specific directory.
	RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error)
	// RunDirStream executes a command in a specific directory and streams output.
	RunDirStream(ctx context.Context, dir string, stdout, stderr io.Writer, cmd string, args ...string) error
	// Capture executes a command in dir with stdout and stderr captured
	// separately. A non-zero exit is reported through Result.ExitCode and an
	// *exec.ExitError; a context deadline surfaces as the context error.
	Capture(ctx context.Context, dir, cmd string, args ...string) (Result, error)
}

// RealExecutor calls actual commands.
type RealExecutor struct{}

// Run executes a command and returns its combined output.
func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	c.WaitDelay = waitDelay
	out, err := c.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("exec %s: %w", cmd, err)
	}
	return out, nil
}

// RunDir executes a command in a specific directory.
func (e *RealExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = dir
	c.WaitDelay = waitDelay
	out, err := c.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("exec %s in %s: %w", cmd, dir, err)
	}
	return out, nil
}

// RunDirStream executes a command in a specific directory and streams output.
func (e *RealExecutor) RunDirStream(ctx context.Context, dir string, stdout, stderr io.Writer, cmd string, args ...string) error {
	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = dir
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = waitDelay
	if err := c.Run(); err != nil {
		return fmt.Errorf("exec %s in %s: %w", cmd, dir, err)
	}
	return nil
}

// Capture executes a command and captures stdout and stderr separately, each
// capped at 64KiB.
func (e *RealExecutor) Capture(ctx context.Context, dir, cmd string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer

	c := exec.CommandContext(ctx, cmd, args...)
	c.Dir = dir
	c.Stdout = &limitedWriter{buf: &stdout, max: maxCaptureLen}
	c.Stderr = &limitedWriter{buf: &stderr, max: maxCaptureLen}
	c.WaitDelay = waitDelay

	err := c.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("exec %s: %w", cmd, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, fmt.Errorf("exec %s: %w", cmd, exitErr)
		}
		return res, fmt.Errorf("exec %s: %w", cmd, err)
	}

	return res, nil
}
