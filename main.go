package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/evolve/internal/commands"
	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/styles"
	"github.com/colonyops/evolve/internal/evolve"
	"github.com/colonyops/evolve/pkg/executil"
	"github.com/colonyops/evolve/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	// Self-check probe run against every built artifact. Answer before any
	// config or credentials are touched.
	if slices.Contains(os.Args[1:], "--test") {
		fmt.Println("OK")
		os.Exit(0)
	}

	ctx := context.Background()

	var (
		logCloser func()
		evolveApp = &evolve.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "evolve",
		Usage:     "Self-evolving agent driven by GitHub issues",
		UsageText: "evolve [global options] command [command options]",
		Description: `Evolve watches a GitHub repository for issues labelled as agent tasks and
implements each one by producing a new version of itself.

For every task a language model writes a shell script that derives the next
agent version from the current one. The script is built and self-checked, and
the new version is published as a pull request. Failed attempts are retried
with the failure as feedback until the retry budget runs out.

Run 'evolve' with no arguments to supervise workers that hand off to each new
version. Run 'evolve init' to write credentials to the .env file.`,
		Version:               build(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars(commands.EnvLogLevel),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "append JSON logs to this file instead of stderr",
				Sources:     cli.EnvVars(commands.EnvLogFile),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file, relative to the work directory",
				Sources:     cli.EnvVars(commands.EnvConfigPath),
				Value:       commands.DefaultConfigPath,
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "workdir",
				Aliases:     []string{"C"},
				Usage:       "directory holding the agent versions",
				Sources:     cli.EnvVars(commands.EnvWorkDir),
				Value:       ".",
				Destination: &flags.WorkDir,
			},
			&cli.StringFlag{
				Name:        "env-file",
				Usage:       "credentials file, relative to the work directory",
				Sources:     cli.EnvVars(commands.EnvEnvFile),
				Value:       commands.DefaultEnvFile,
				Destination: &flags.EnvFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			envFile := flags.ResolveEnvFile()
			keys, err := config.LoadEnvFile(envFile)
			if err != nil {
				return ctx, fmt.Errorf("load env file: %w", err)
			}
			if len(keys) > 0 {
				log.Debug().Str("path", envFile).Int("keys", len(keys)).Msg("loaded env file")
			}

			cfg, err := config.Load(flags.ResolveConfigPath(), flags.WorkDir, os.Getenv)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			cfg.EnvFile = envFile
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*evolveApp = *evolve.NewApp(cfg, &executil.RealExecutor{})

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if err := evolveApp.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close journal")
				return err
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	superviseCmd := commands.NewSuperviseCmd(flags, evolveApp)

	app = commands.NewRunCmd(flags, evolveApp).Register(app)
	app = superviseCmd.Register(app)
	app = commands.NewNextCmd(flags, evolveApp).Register(app)
	app = commands.NewHistoryCmd(flags, evolveApp).Register(app)
	app = commands.NewDoctorCmd(flags, evolveApp).Register(app)
	app = commands.NewInitCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	// Register supervise flags on root command
	app.Flags = append(app.Flags, superviseCmd.Flags()...)

	// Supervise is the default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'evolve --help' for usage", c.Args().First())
		}
		return superviseCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
