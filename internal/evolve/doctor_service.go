package evolve

import (
	"context"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/doctor"
	"github.com/colonyops/evolve/internal/core/git"
)

// DoctorService runs health checks on the evolve setup.
type DoctorService struct {
	config   *config.Config
	git      git.Git
	registry *Registry
}

func NewDoctorService(cfg *config.Config, g git.Git, registry *Registry) *DoctorService {
	return &DoctorService{config: cfg, git: g, registry: registry}
}

// RunChecks executes all doctor checks and returns results.
func (d *DoctorService) RunChecks(ctx context.Context) []doctor.Result {
	return doctor.RunAll(ctx, d.Checks())
}

// Checks lists the checks RunChecks executes.
func (d *DoctorService) Checks() []doctor.Check {
	cfg := d.config
	creds := cfg.Credentials

	var systemPrompt string
	if cfg.Generator.SystemPromptFile != "" {
		systemPrompt = cfg.Path(cfg.Generator.SystemPromptFile)
	}

	generatorOptional := func(provider string) bool { return cfg.Generator.Provider != provider }

	return []doctor.Check{
		doctor.NewToolsCheck(
			doctor.Tool{Name: "git", Path: cfg.GitPath, Purpose: "publishing evolutions"},
			doctor.Tool{Name: "shell", Path: cfg.Build.Shell, Purpose: "running evolution scripts"},
			doctor.Tool{Name: "interpreter", Path: cfg.Agent.Interpreter, Purpose: "artifact self-checks"},
		),
		doctor.NewCredentialsCheck(
			doctor.Credential{Key: config.EnvGitHubToken, Value: creds.GitHubToken, Purpose: "issue and pull request access"},
			doctor.Credential{Key: config.EnvRepo, Value: creds.Repo, Purpose: "owner/name of the watched repository"},
			doctor.Credential{Key: config.EnvOpenAIKey, Value: creds.OpenAIKey, Optional: generatorOptional(config.ProviderOpenAI), Purpose: "openai provider"},
			doctor.Credential{Key: config.EnvGeminiKey, Value: creds.GeminiKey, Optional: generatorOptional(config.ProviderGemini), Purpose: "gemini provider"},
		),
		doctor.NewRepositoryCheck(d.git, cfg.WorkDir, cfg.Remote, cfg.BaseBranch, creds.Repo),
		doctor.NewAgentCheck(cfg.Path(cfg.Agent.Bootstrap), systemPrompt, d.registry.Latest),
	}
}
