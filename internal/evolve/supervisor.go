package evolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/pkg/tmpl"
)

// Environment passed to supervised workers.
const (
	EnvSupervised  = "EVOLVE_SUPERVISED"
	EnvHandoffFile = "EVOLVE_HANDOFF_FILE"
)

// Launcher runs one worker command to completion and reports its exit code.
// When ctx is cancelled the worker is asked to stop and waited for.
type Launcher interface {
	Launch(ctx context.Context, command string, env []string) (int, error)
}

// ShellLauncher runs worker commands with sh -c in their own process group.
// Interrupts and kills go to the whole group.
type ShellLauncher struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	// Grace bounds the wait after an interrupt before the worker is killed.
	// Zero waits for the worker indefinitely.
	Grace time.Duration
}

func (l *ShellLauncher) Launch(ctx context.Context, command string, env []string) (int, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = l.Dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start worker: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return exitCode(err)
	case <-ctx.Done():
	}

	_ = interruptGroup(cmd)

	if l.Grace <= 0 {
		return exitCode(<-done)
	}

	timer := time.NewTimer(l.Grace)
	defer timer.Stop()

	select {
	case err := <-done:
		return exitCode(err)
	case <-timer.C:
		_ = killGroup(cmd)
		return exitCode(<-done)
	}
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Supervisor runs successive worker generations. A worker that exits with
// the handoff code names its successor in the handoff file.
type Supervisor struct {
	command      string
	self         string
	interpreter  string
	handoffPath  string
	handoffCode  int
	restartDelay time.Duration
	launcher     Launcher
	log          zerolog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewSupervisor(cfg *config.Config, self string, launcher Launcher, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		command:      cfg.Supervisor.WorkerCommand,
		self:         self,
		interpreter:  cfg.Agent.Interpreter,
		handoffPath:  cfg.HandoffPath(),
		handoffCode:  cfg.Supervisor.HandoffExitCode,
		restartDelay: cfg.Supervisor.RestartDelay,
		launcher:     launcher,
		log:          log,
		sleep:        sleepCtx,
	}
}

// Run launches agent and follows handoffs until a worker exits cleanly or
// ctx is cancelled. Crashed workers are relaunched after the restart delay.
func (s *Supervisor) Run(ctx context.Context, agent string) error {
	env := []string{
		EnvSupervised + "=1",
		EnvHandoffFile + "=" + s.handoffPath,
	}

	for generation := 1; ; {
		if err := removeIfExists(s.handoffPath); err != nil {
			return err
		}

		command, err := tmpl.Render(s.command, map[string]string{
			"Self":        s.self,
			"Agent":       agent,
			"Interpreter": s.interpreter,
		})
		if err != nil {
			return fmt.Errorf("render worker command: %w", err)
		}

		s.log.Info().Int("generation", generation).Str("agent", agent).Msg("launching worker")
		code, err := s.launcher.Launch(ctx, command, env)

		if ctx.Err() != nil {
			s.log.Info().Int("exit_code", code).Msg("supervisor stopped")
			return nil
		}

		switch {
		case err != nil:
			s.log.Error().Err(err).Msg("worker failed to run")
		case code == 0:
			s.log.Info().Msg("worker exited cleanly, stopping")
			return nil
		case code == s.handoffCode:
			handoff, err := ReadHandoff(s.handoffPath)
			if err == nil {
				s.log.Info().
					Int("version", handoff.Version).
					Int("task", handoff.Task).
					Str("agent", handoff.Artifact).
					Msg("handoff to new version")
				agent = handoff.Artifact
				generation++
				continue
			}
			s.log.Error().Err(err).Msg("worker signalled handoff without a readable handoff file")
		default:
			s.log.Warn().Int("exit_code", code).Msg("worker exited unexpectedly")
		}

		s.log.Info().Dur("delay", s.restartDelay).Str("agent", agent).Msg("restarting worker")
		if err := s.sleep(ctx, s.restartDelay); err != nil {
			return nil
		}
	}
}
