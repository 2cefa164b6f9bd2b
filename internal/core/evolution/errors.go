package evolution

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnresolvedPlaceholder is returned when a placeholder token survives substitution.
var ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

// GenerationError means the generator could not produce a usable script.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generate script: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// BuildError means the change script failed to run to completion.
type BuildError struct {
	Version  int
	ExitCode int
	Stderr   string
	TimedOut bool
	Timeout  time.Duration
	Err      error
}

func (e *BuildError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("evolution script timed out after %s", e.Timeout)
	case strings.TrimSpace(e.Stderr) != "":
		return fmt.Sprintf("evolution script failed: %s", strings.TrimSpace(e.Stderr))
	case e.Err != nil:
		return fmt.Sprintf("evolution script failed: %v", e.Err)
	default:
		return fmt.Sprintf("evolution script failed with exit code %d", e.ExitCode)
	}
}

func (e *BuildError) Unwrap() error { return e.Err }

// PublishError means a version-control or hosting step failed after a
// successful validation. It is never retried within the same scan.
type PublishError struct {
	Step string
	Err  error
}

func (e *PublishError) Error() string { return fmt.Sprintf("publish (%s): %v", e.Step, e.Err) }
func (e *PublishError) Unwrap() error { return e.Err }
