package executil

import (
	"context"
	"io"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// String renders the command as "cmd arg1 arg2".
func (r RecordedCommand) String() string {
	return strings.TrimSpace(r.Cmd + " " + strings.Join(r.Args, " "))
}

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps either a full command line or a command name to its
	// output. Full command lines take precedence.
	Outputs map[string][]byte

	// Errors maps either a full command line ("git push origin b") or a
	// command name ("git") to the error it should return. Full command lines
	// take precedence.
	Errors map[string]error

	// ExitCodes maps command names to the exit code reported by Capture.
	ExitCodes map[string]int
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

// RunDirStream records the command and writes configured output to stdout.
func (e *RecordingExecutor) RunDirStream(ctx context.Context, dir string, stdout, stderr io.Writer, cmd string, args ...string) error {
	out, err := e.record(dir, cmd, args...)
	if len(out) > 0 && stdout != nil {
		_, _ = stdout.Write(out)
	}
	return err
}

// Capture records the command and returns configured output, exit code and error.
func (e *RecordingExecutor) Capture(ctx context.Context, dir, cmd string, args ...string) (Result, error) {
	out, err := e.record(dir, cmd, args...)

	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{Stdout: out}
	if e.ExitCodes != nil {
		res.ExitCode = e.ExitCodes[cmd]
	}
	return res, err
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := RecordedCommand{
		Dir:  dir,
		Cmd:  cmd,
		Args: args,
	}
	e.Commands = append(e.Commands, rec)

	var out []byte
	var err error

	if e.Outputs != nil {
		if full, ok := e.Outputs[rec.String()]; ok {
			out = full
		} else {
			out = e.Outputs[cmd]
		}
	}
	if e.Errors != nil {
		if full, ok := e.Errors[rec.String()]; ok {
			err = full
		} else {
			err = e.Errors[cmd]
		}
	}

	return out, err
}

// Lines returns every recorded command rendered with RecordedCommand.String.
func (e *RecordingExecutor) Lines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	lines := make([]string, len(e.Commands))
	for i, c := range e.Commands {
		lines[i] = c.String()
	}
	return lines
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
