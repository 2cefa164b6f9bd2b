package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/evolve/internal/core/styles"
	"github.com/colonyops/evolve/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration and credentials",
				UsageText:   "evolve config validate [options]",
				Description: "Validates the configuration file, credentials, the worker command template and the tools it names.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type fieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	issues := validationIssues(cmd.flags.Config.ValidateDeep(cmd.flags.ResolveConfigPath()))

	if cmd.format == "json" {
		out := struct {
			Valid  bool         `json:"valid"`
			Errors []fieldIssue `json:"errors,omitempty"`
		}{
			Valid:  len(issues) == 0,
			Errors: issues,
		}
		if err := iojson.WriteWith(c.Root().Writer, os.Stderr, out); err != nil {
			return err
		}
		if len(issues) > 0 {
			return cli.Exit("", 1)
		}
		return nil
	}

	w := os.Stderr
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(w, styles.TextSuccessStyle.Render("✔ Configuration is valid"))
		return nil
	}

	for _, issue := range issues {
		_, _ = fmt.Fprintf(w, "%s %s %s\n",
			styles.TextErrorStyle.Render("✘"),
			styles.TextForegroundBoldStyle.Render(issue.Field),
			issue.Message,
		)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styles.TextErrorStyle.Render(fmt.Sprintf("%d error(s) found", len(issues))))

	return cli.Exit("", 1)
}

func validationIssues(err error) []fieldIssue {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []fieldIssue{{Field: "config", Message: err.Error()}}
	}

	issues := make([]fieldIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, fieldIssue{Field: fe.Field, Message: fe.Err.Error()})
	}
	return issues
}
