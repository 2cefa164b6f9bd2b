package evolve

import (
	"context"
	"fmt"
	"io"

	"github.com/colonyops/evolve/internal/core/config"
	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/core/git"
	"github.com/colonyops/evolve/internal/core/logging"
	"github.com/colonyops/evolve/internal/data/db"
	"github.com/colonyops/evolve/internal/integration/github"
	"github.com/colonyops/evolve/internal/integration/llm"
	"github.com/colonyops/evolve/pkg/executil"
)

// App is the central entry point for all evolve operations. Commands
// consume App instead of cherry-picking raw dependencies.
type App struct {
	Config   *config.Config
	Registry *Registry
	Git      git.Git
	Doctor   *DoctorService

	exec    executil.Executor
	db      *db.DB
	journal *db.Journal
}

// NewApp constructs an App. The journal database is opened lazily.
func NewApp(cfg *config.Config, exec executil.Executor) *App {
	g := git.NewExecutor(cfg.GitPath, exec)
	registry := NewRegistry(cfg.WorkDir, cfg.Layout())

	return &App{
		Config:   cfg,
		Registry: registry,
		Git:      g,
		Doctor:   NewDoctorService(cfg, g, registry),
		exec:     exec,
	}
}

// Journal opens the attempt journal on first use.
func (a *App) Journal() (*db.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}

	database, err := db.Open(a.Config.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	a.db = database
	a.journal = db.NewJournal(database)

	return a.journal, nil
}

// Close releases the journal database if it was opened.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.journal = nil, nil
	return err
}

// Tracker builds the GitHub client used as task queue and hosting.
func (a *App) Tracker() *github.Client {
	return github.New(github.Config{
		BaseURL: a.Config.GitHub.APIURL,
		Token:   a.Config.Credentials.GitHubToken,
		Repo:    a.Config.Credentials.Repo,
		Timeout: a.Config.GitHub.Timeout,
	}, logging.Component("github"))
}

// CompletionClient builds the completion client for the configured provider.
func (a *App) CompletionClient(ctx context.Context) (llm.Client, error) {
	gen := a.Config.Generator
	opts := llm.Options{
		APIKey:      a.Config.GeneratorKey(),
		BaseURL:     gen.BaseURL,
		Model:       gen.Model,
		MaxTokens:   gen.MaxTokens,
		Temperature: gen.Temperature,
	}

	switch gen.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAI(opts, gen.Timeout, logging.Component("openai")), nil
	case config.ProviderGemini:
		return llm.NewGemini(ctx, opts, gen.Timeout, logging.Component("gemini"))
	default:
		return nil, fmt.Errorf("unknown generator provider %q", gen.Provider)
	}
}

// NewLoop wires the task loop for a worker running agent.
func (a *App) NewLoop(ctx context.Context, agent string) (*Loop, error) {
	cfg := a.Config

	client, err := a.CompletionClient(ctx)
	if err != nil {
		return nil, err
	}

	var journal evolution.Journal = evolution.NopJournal{}
	if cfg.Journal.IsEnabled() {
		j, err := a.Journal()
		if err != nil {
			return nil, err
		}
		journal = j
	}

	tracker := a.Tracker()

	var systemPrompt string
	if cfg.Generator.SystemPromptFile != "" {
		systemPrompt = cfg.Path(cfg.Generator.SystemPromptFile)
	}

	publisher := NewPublisher(PublisherConfig{
		Dir:       cfg.WorkDir,
		Remote:    cfg.Remote,
		Base:      cfg.BaseBranch,
		Layout:    cfg.Layout(),
		Labels:    cfg.Labels,
		SelfCheck: cfg.Agent.SelfCheckFlag,
		Exclude:   cfg.PublishExcludes(),
	}, a.Git, tracker, tracker, logging.Component("publisher"))

	controller := NewController(
		ControllerConfig{
			Agent:            cfg.Path(agent),
			SystemPromptPath: systemPrompt,
			MaxRetries:       cfg.Loop.MaxRetries,
			Layout:           cfg.Layout(),
		},
		NewScriptGenerator(client, logging.Component("generator")),
		NewBuilder(cfg.WorkDir, cfg.Layout(), cfg.Build.Shell, cfg.Build.Timeout, a.exec, logging.Component("builder")),
		NewValidator(cfg.WorkDir, cfg.Agent.Interpreter, cfg.Agent.SelfCheckFlag, cfg.SelfCheck.Timeout, a.exec, logging.Component("validator")),
		publisher,
		journal,
		logging.Component("controller"),
	)

	return NewLoop(tracker, a.Registry, controller, cfg.Labels, cfg.Loop, logging.Component("loop")), nil
}

// NewSupervisor wires a supervisor that relaunches self as the worker.
func (a *App) NewSupervisor(self string, stdout, stderr io.Writer) *Supervisor {
	launcher := &ShellLauncher{Dir: a.Config.WorkDir, Stdout: stdout, Stderr: stderr}
	return NewSupervisor(a.Config, self, launcher, logging.Component("supervisor"))
}

// ResolveAgent picks the agent a worker should run as: the explicit choice,
// else the newest artifact, else the bootstrap agent.
func (a *App) ResolveAgent(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	v, name, err := a.Registry.Latest()
	if err != nil {
		return "", err
	}
	if v > 0 {
		return name, nil
	}
	return a.Config.Agent.Bootstrap, nil
}
