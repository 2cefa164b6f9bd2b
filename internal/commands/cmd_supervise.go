package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/evolve/internal/evolve"
)

type SuperviseCmd struct {
	flags *Flags
	app   *evolve.App

	// flags
	agent string
}

// NewSuperviseCmd creates a new supervise command
func NewSuperviseCmd(flags *Flags, app *evolve.App) *SuperviseCmd {
	return &SuperviseCmd{flags: flags, app: app}
}

// Flags returns the supervise flags so the root command can accept them.
func (cmd *SuperviseCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "agent",
			Usage:       "agent file the first worker runs as",
			Destination: &cmd.agent,
		},
	}
}

// Register adds the supervise command to the application
func (cmd *SuperviseCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "supervise",
		Usage:     "Run workers and follow handoffs to new versions",
		UsageText: "evolve supervise [--agent FILE]",
		Description: `Launches the worker command and relaunches it as each new version after a
successful evolution. A worker that crashes is restarted after the restart delay.
The supervisor stops when a worker exits cleanly or on interrupt.`,
		Flags:         cmd.Flags(),
		ShellComplete: ArtifactCompleter(cmd.app),
		Action:        cmd.Run,
	})

	return app
}

// Run starts the supervisor. It is also the root command's default action.
func (cmd *SuperviseCmd) Run(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Config.RequireCredentials(); err != nil {
		return credentialsError(err)
	}

	agent, err := cmd.app.ResolveAgent(cmd.agent)
	if err != nil {
		return fmt.Errorf("resolve agent: %w", err)
	}

	if err := cmd.flags.Export(); err != nil {
		return err
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd.app.NewSupervisor(self, os.Stdout, os.Stderr).Run(ctx, agent)
}
