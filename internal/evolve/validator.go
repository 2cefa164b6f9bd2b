package evolve

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/pkg/executil"
)

// Validator runs an artifact's self-check.
type Validator struct {
	dir         string
	interpreter string
	flag        string
	timeout     time.Duration
	exec        executil.Executor
	log         zerolog.Logger
}

func NewValidator(dir, interpreter, flag string, timeout time.Duration, exec executil.Executor, log zerolog.Logger) *Validator {
	return &Validator{dir: dir, interpreter: interpreter, flag: flag, timeout: timeout, exec: exec, log: log}
}

// Validate reports whether the artifact exits zero within the deadline.
// Every failure, including a missing file or a timeout, is false.
func (v *Validator) Validate(ctx context.Context, artifact string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd, args := v.command(artifact)
	res, err := v.exec.Capture(ctx, v.dir, cmd, args...)
	if err != nil || res.ExitCode != 0 {
		v.log.Debug().Ctx(ctx).
			Str("artifact", artifact).
			Int("exit_code", res.ExitCode).
			Err(err).
			Bytes("stderr", res.Stderr).
			Msg("self-check failed")
		return false
	}

	return true
}

func (v *Validator) command(artifact string) (string, []string) {
	var args []string
	if v.flag != "" {
		args = append(args, v.flag)
	}

	if v.interpreter == "" {
		if !filepath.IsAbs(artifact) {
			artifact = "./" + artifact
		}
		return artifact, args
	}

	return v.interpreter, append([]string{artifact}, args...)
}
