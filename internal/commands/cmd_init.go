package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/styles"
)

type InitCmd struct {
	flags *Flags

	// flags
	force bool
}

func NewInitCmd(flags *Flags) *InitCmd {
	return &InitCmd{flags: flags}
}

func (cmd *InitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "init",
		Usage:     "Write credentials to the .env file with an interactive form",
		UsageText: "evolve init [options]",
		Description: `Prompts for the generator provider and the credentials evolve needs and
writes them to the env file in the work directory with owner-only permissions.

Values already in the file are kept unless re-entered. Use --force to skip the
overwrite confirmation.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "update an existing env file without confirmation",
				Destination: &cmd.force,
			},
		},
		Action: cmd.run,
	})
	return app
}

// initAnswers are the values collected by the form.
type initAnswers struct {
	Provider    string
	APIKey      string
	GitHubToken string
	Repo        string
}

// EnvVars maps the answers to env file entries. Blank answers are omitted so
// existing values survive.
func (a initAnswers) EnvVars() map[string]string {
	key := config.EnvOpenAIKey
	if a.Provider == config.ProviderGemini {
		key = config.EnvGeminiKey
	}

	vars := map[string]string{}
	for k, v := range map[string]string{
		key:                   a.APIKey,
		config.EnvGitHubToken: a.GitHubToken,
		config.EnvRepo:        a.Repo,
	} {
		if v = strings.TrimSpace(v); v != "" {
			vars[k] = v
		}
	}
	return vars
}

func (cmd *InitCmd) run(ctx context.Context, _ *cli.Command) error {
	path := cmd.flags.ResolveEnvFile()

	if _, err := os.Stat(path); err == nil && !cmd.force {
		var update bool
		err := huh.NewConfirm().
			Title("Env file already exists").
			Description(path + "\nUpdate it? (values you leave blank are kept)").
			Value(&update).
			Run()
		if err != nil {
			return err
		}
		if !update {
			_, _ = fmt.Fprintln(os.Stderr, styles.TextMutedStyle.Render("Init cancelled"))
			return nil
		}
	}

	answers := initAnswers{Provider: config.ProviderOpenAI}
	if cmd.flags.Config != nil {
		answers.Provider = cmd.flags.Config.Generator.Provider
		answers.Repo = cmd.flags.Config.Credentials.Repo
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Generator provider").
				Options(
					huh.NewOption("OpenAI", config.ProviderOpenAI),
					huh.NewOption("Google Gemini", config.ProviderGemini),
				).
				Value(&answers.Provider),
			huh.NewInput().
				Title("Generator API key").
				EchoMode(huh.EchoModePassword).
				Value(&answers.APIKey),
			huh.NewInput().
				Title("GitHub token").
				Description("needs issues and pull requests write access").
				EchoMode(huh.EchoModePassword).
				Value(&answers.GitHubToken),
			huh.NewInput().
				Title("Repository").
				Placeholder("owner/name").
				Value(&answers.Repo).
				Validate(validateRepo),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return err
	}

	order := []string{config.EnvOpenAIKey, config.EnvGeminiKey, config.EnvGitHubToken, config.EnvRepo}
	if err := config.WriteEnvFile(path, answers.EnvVars(), order); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stderr, styles.TextSuccessStyle.Render("✔ Wrote "+path))
	if answers.Provider != config.ProviderOpenAI {
		_, _ = fmt.Fprintln(os.Stderr, styles.TextMutedStyle.Render(
			fmt.Sprintf("Set generator.provider: %s in %s to use it", answers.Provider, DefaultConfigPath)))
	}
	_, _ = fmt.Fprintln(os.Stderr, styles.TextMutedStyle.Render("Run 'evolve doctor' to check the setup"))
	return nil
}

func validateRepo(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("must be in the form owner/name")
	}
	return nil
}
