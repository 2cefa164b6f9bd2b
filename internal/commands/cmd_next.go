package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/evolve/internal/evolve"
	"github.com/colonyops/evolve/pkg/iojson"
)

type NextCmd struct {
	flags *Flags
	app   *evolve.App

	// flags
	jsonOutput bool
}

// NewNextCmd creates a new next-version command
func NewNextCmd(flags *Flags, app *evolve.App) *NextCmd {
	return &NextCmd{flags: flags, app: app}
}

// Register adds the next-version command to the application
func (cmd *NextCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "next-version",
		Usage:     "Print the version the next task will build",
		UsageText: "evolve next-version [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON with the latest artifact",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *NextCmd) run(_ context.Context, c *cli.Command) error {
	latest, artifact, err := cmd.app.Registry.Latest()
	if err != nil {
		return fmt.Errorf("scan versions: %w", err)
	}
	next := latest + 1

	out := c.Root().Writer
	if !cmd.jsonOutput {
		_, err := fmt.Fprintln(out, next)
		return err
	}

	return iojson.WriteWith(out, os.Stderr, struct {
		Next     int    `json:"next"`
		Latest   int    `json:"latest"`
		Artifact string `json:"artifact,omitempty"`
		Pending  string `json:"pending"`
	}{
		Next:     next,
		Latest:   latest,
		Artifact: artifact,
		Pending:  cmd.app.Config.Layout().Artifact(next),
	})
}
