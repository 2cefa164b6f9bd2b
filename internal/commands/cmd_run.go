package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/evolve"
)

type RunCmd struct {
	flags *Flags
	app   *evolve.App

	// flags
	agent string
	once  bool
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags, app *evolve.App) *RunCmd {
	return &RunCmd{flags: flags, app: app}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run the task loop as a single worker",
		UsageText: "evolve run [--agent FILE] [--once]",
		Description: `Polls the issue tracker for tasks and evolves the agent until a task succeeds.

Under a supervisor the worker writes a handoff file and exits with the handoff
code so the supervisor launches the new version. Run on its own, the worker
continues in process as the new version.

Without --agent the newest artifact is used, or the bootstrap agent when none exists.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "agent",
				Usage:       "agent file the worker runs as",
				Destination: &cmd.agent,
			},
			&cli.BoolFlag{
				Name:        "once",
				Usage:       "scan the task queue once and exit",
				Destination: &cmd.once,
			},
		},
		ShellComplete: ArtifactCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Config.RequireCredentials(); err != nil {
		return credentialsError(err)
	}

	agent, err := cmd.app.ResolveAgent(cmd.agent)
	if err != nil {
		return fmt.Errorf("resolve agent: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		log.Info().Str("agent", agent).Msg("worker started")

		loop, err := cmd.app.NewLoop(ctx, agent)
		if err != nil {
			return err
		}

		var handoff *evolution.Handoff
		if cmd.once {
			handoff, err = loop.Scan(ctx)
		} else {
			handoff, err = loop.Run(ctx)
		}
		if err != nil {
			return err
		}

		if handoff == nil {
			log.Info().Msg("worker stopped")
			return nil
		}

		if os.Getenv(evolve.EnvSupervised) != "" {
			return cmd.handOff(*handoff)
		}

		if cmd.once {
			log.Info().Str("agent", handoff.Artifact).Msg("new version ready")
			return nil
		}

		agent = handoff.Artifact
	}
}

// handOff records the successor for the supervisor and exits with the
// handoff code.
func (cmd *RunCmd) handOff(h evolution.Handoff) error {
	path := os.Getenv(evolve.EnvHandoffFile)
	if path == "" {
		path = cmd.app.Config.HandoffPath()
	}

	if err := evolve.WriteHandoff(path, h); err != nil {
		return err
	}

	// cli.Exit terminates before the After hook runs.
	if err := cmd.app.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close journal")
	}

	log.Info().Str("agent", h.Artifact).Msg("handing off to new version")
	return cli.Exit("", cmd.app.Config.Supervisor.HandoffExitCode)
}

func credentialsError(err error) error {
	var missing *config.MissingCredentialsError
	if errors.As(err, &missing) {
		return fmt.Errorf("%s\n\n%s", missing.Error(), missing.Hint())
	}
	return err
}
