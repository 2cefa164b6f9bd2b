package config

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/evolve/pkg/tmpl"
)

// lookPathFunc is the function used to find executables on PATH.
// Package-level variable to allow test overrides.
var lookPathFunc = exec.LookPath

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// MissingCredentialsError lists required environment values that are unset.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Missing, ", ")
}

// Hint returns remediation text showing the .env lines to add.
func (e *MissingCredentialsError) Hint() string {
	examples := map[string]string{
		EnvOpenAIKey:   "sk-...",
		EnvGeminiKey:   "AIza...",
		EnvGitHubToken: "ghp_...",
		EnvRepo:        "username/repo-name",
	}

	var b strings.Builder
	b.WriteString("Create .env file with:\n")
	for _, key := range e.Missing {
		fmt.Fprintf(&b, "  %s=%s\n", key, examples[key])
	}
	b.WriteString("or run 'evolve init'")
	return b.String()
}

// RequireCredentials reports every missing credential for the configured
// generator provider in one error.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.GeneratorKey() == "" {
		missing = append(missing, c.GeneratorKeyName())
	}
	if c.Credentials.GitHubToken == "" {
		missing = append(missing, EnvGitHubToken)
	}
	if c.Credentials.Repo == "" {
		missing = append(missing, EnvRepo)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Missing: missing}
	}
	return nil
}

// ValidateDeep performs comprehensive validation of the configuration
// including credentials, repository format, command templates and
// executables on PATH. It calls Validate first.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		c.validateCredentials(),
		c.validateExecutables(),
		c.validateTemplates(),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func (c *Config) validateCredentials() error {
	return criterio.ValidateStruct(
		criterio.Run(c.GeneratorKeyName(), c.GeneratorKey(), required),
		criterio.Run(EnvGitHubToken, c.Credentials.GitHubToken, required),
		criterio.Run(EnvRepo, c.Credentials.Repo, repoFormat),
	)
}

func (c *Config) validateExecutables() error {
	var errs criterio.FieldErrorsBuilder

	if err := executableExists(c.GitPath); err != nil {
		errs = errs.Append("git_path", err)
	}
	if err := executableExists(c.Build.Shell); err != nil {
		errs = errs.Append("build.shell", err)
	}
	if c.Agent.Interpreter != "" {
		if err := executableExists(c.Agent.Interpreter); err != nil {
			errs = errs.Append("agent.interpreter", err)
		}
	}

	return errs.ToError()
}

func (c *Config) validateTemplates() error {
	data := struct {
		Self        string
		Agent       string
		Interpreter string
	}{Self: "evolve", Agent: c.Agent.Bootstrap, Interpreter: c.Agent.Interpreter}

	if _, err := tmpl.Render(c.Supervisor.WorkerCommand, data); err != nil {
		return criterio.NewFieldErrors("supervisor.worker_command", fmt.Errorf("template error: %w", err))
	}
	return nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("is required")
	}
	return nil
}

func repoFormat(s string) error {
	if err := required(s); err != nil {
		return err
	}
	if !repoPattern.MatchString(s) {
		return fmt.Errorf("must be in the form owner/name, got %q", s)
	}
	return nil
}

// executableExists validates that path resolves to an executable.
func executableExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := lookPathFunc(path); err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}
	return nil
}
