package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/evolve/internal/evolve"
)

// ArtifactCompleter returns a ShellCompleteFunc that suggests existing
// artifact filenames, newest first. Set it on commands taking --agent.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func ArtifactCompleter(app *evolve.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		versions, err := app.Registry.Versions()
		if err != nil {
			return
		}

		layout := app.Config.Layout()
		w := cmd.Root().Writer
		for i := len(versions) - 1; i >= 0; i-- {
			_, _ = fmt.Fprintln(w, layout.Artifact(versions[i]))
		}
		_, _ = fmt.Fprintln(w, app.Config.Agent.Bootstrap)
	}
}
