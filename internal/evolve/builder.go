package evolve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/pkg/executil"
)

// recordHeader prefixes every persisted evolution record.
const recordHeader = "#!/bin/bash\nset -e  # Exit on any error\n\n"

// Builder turns a generated script into a concrete artifact version.
type Builder struct {
	dir     string
	layout  evolution.Layout
	shell   string
	timeout time.Duration
	exec    executil.Executor
	log     zerolog.Logger
}

func NewBuilder(dir string, layout evolution.Layout, shell string, timeout time.Duration, exec executil.Executor, log zerolog.Logger) *Builder {
	return &Builder{dir: dir, layout: layout, shell: shell, timeout: timeout, exec: exec, log: log}
}

// Build patches placeholders in script, persists it as the evolution record
// for version and runs it in the work directory. It returns the artifact
// filename, relative to the work directory, without checking the script
// actually produced it. Failures are *evolution.BuildError.
func (b *Builder) Build(ctx context.Context, script string, version int, currentAgent string) (string, error) {
	patched, err := evolution.Substitute(script, b.layout, version, currentAgent)
	if err != nil {
		return "", &evolution.BuildError{Version: version, ExitCode: -1, Err: err}
	}

	artifact := b.layout.Artifact(version)
	record := b.layout.Record(version)

	// A script that creates nothing must not pass on a leftover from an
	// earlier attempt at the same version.
	if err := removeIfExists(filepath.Join(b.dir, artifact)); err != nil {
		return "", &evolution.BuildError{Version: version, ExitCode: -1, Err: err}
	}

	recordPath := filepath.Join(b.dir, record)
	if err := os.WriteFile(recordPath, []byte(recordHeader+patched), 0o755); err != nil {
		return "", &evolution.BuildError{Version: version, ExitCode: -1, Err: fmt.Errorf("write %s: %w", record, err)}
	}
	if err := os.Chmod(recordPath, 0o755); err != nil {
		return "", &evolution.BuildError{Version: version, ExitCode: -1, Err: fmt.Errorf("chmod %s: %w", record, err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	res, err := b.exec.Capture(runCtx, b.dir, b.shell, record)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		b.log.Debug().Ctx(ctx).
			Str("record", record).
			Int("exit_code", res.ExitCode).
			Bool("timed_out", timedOut).
			Bytes("stderr", res.Stderr).
			Msg("evolution script failed")

		return "", &evolution.BuildError{
			Version:  version,
			ExitCode: res.ExitCode,
			Stderr:   string(res.Stderr),
			TimedOut: timedOut,
			Timeout:  b.timeout,
			Err:      err,
		}
	}

	b.log.Debug().Ctx(ctx).Str("record", record).Dur("elapsed", time.Since(start)).Msg("evolution script finished")
	return artifact, nil
}

// Discard removes the artifact and record of an abandoned version so the
// version number is minted again by the next task.
func (b *Builder) Discard(version int) error {
	var errs []error
	for _, name := range []string{b.layout.Artifact(version), b.layout.Record(version)} {
		if err := removeIfExists(filepath.Join(b.dir, name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
