// Package config handles configuration loading and validation for evolve.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/evolve/internal/core/evolution"
	"github.com/colonyops/evolve/internal/core/styles"
)

// Environment keys holding credentials. Credentials are never read from the
// YAML file.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvRepo        = "REPO"
)

// Generator providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DataDirName is the directory under the work directory holding the journal
// and supervisor handoff files.
const DataDirName = ".evolve"

// Config holds the application configuration. It is built once at startup
// and passed by reference to every component; nothing reads the process
// environment after Load returns.
type Config struct {
	Credentials Credentials `yaml:"-"`

	GitPath    string           `yaml:"git_path"`
	Remote     string           `yaml:"remote"`
	BaseBranch string           `yaml:"base_branch"`
	Agent      AgentConfig      `yaml:"agent"`
	Labels     LabelConfig      `yaml:"labels"`
	Loop       LoopConfig       `yaml:"loop"`
	Build      BuildConfig      `yaml:"build"`
	SelfCheck  SelfCheckConfig  `yaml:"validate"`
	Generator  GeneratorConfig  `yaml:"generator"`
	GitHub     GitHubConfig     `yaml:"github"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Journal    JournalConfig    `yaml:"journal"`
	Theme      string           `yaml:"theme"`

	WorkDir string `yaml:"-"` // set by caller, not from config file
	DataDir string `yaml:"-"` // <WorkDir>/.evolve
	EnvFile string `yaml:"-"` // credentials file merged before Load, if any
}

// Credentials are the secrets and repository identity taken from the environment.
type Credentials struct {
	OpenAIKey   string
	GeminiKey   string
	GitHubToken string
	Repo        string // owner/name
}

// AgentConfig describes the evolving program and how its artifacts are named and run.
type AgentConfig struct {
	// Bootstrap is the agent used when no --agent is given and no artifact exists.
	Bootstrap string `yaml:"bootstrap"`
	// Name and Ext produce artifact filenames <name>_v<N><ext>.
	Name string `yaml:"name"`
	Ext  string `yaml:"ext"`
	// Interpreter runs artifacts; empty executes them directly.
	Interpreter   string `yaml:"interpreter"`
	SelfCheckFlag string `yaml:"self_check_flag"`
}

// LabelConfig names the issue labels driving the loop.
type LabelConfig struct {
	Task   string `yaml:"task"`
	Failed string `yaml:"failed"`
	Retry  string `yaml:"retry"`
}

// LoopConfig controls polling and retry policy.
type LoopConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
	MaxRetries   int           `yaml:"max_retries"`
}

// BuildConfig controls evolution script execution.
type BuildConfig struct {
	Shell   string        `yaml:"shell"`
	Timeout time.Duration `yaml:"timeout"`
}

// SelfCheckConfig controls artifact self-checks.
type SelfCheckConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// GeneratorConfig selects and tunes the script generator backend.
type GeneratorConfig struct {
	Provider         string        `yaml:"provider"`
	Model            string        `yaml:"model"`
	BaseURL          string        `yaml:"base_url"`
	MaxTokens        int           `yaml:"max_tokens"`
	Temperature      float64       `yaml:"temperature"`
	Timeout          time.Duration `yaml:"timeout"`
	SystemPromptFile string        `yaml:"system_prompt_file"`
}

// GitHubConfig points the issue tracker and pull request client at an API.
type GitHubConfig struct {
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SupervisorConfig controls worker launching and handoff.
type SupervisorConfig struct {
	// WorkerCommand is a template rendered with .Self (this executable),
	// .Agent (the agent the worker should run as) and .Interpreter (the agent
	// interpreter) and executed with sh -c. The default relaunches this
	// executable as the worker; `{{ .Interpreter }} {{ shq .Agent }}` runs the
	// artifact itself, which must then honour the handoff protocol.
	WorkerCommand   string        `yaml:"worker_command"`
	RestartDelay    time.Duration `yaml:"restart_delay"`
	HandoffExitCode int           `yaml:"handoff_exit_code"`
}

// JournalConfig controls the attempt journal.
type JournalConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled defaults to true when unset.
func (j JournalConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// DefaultConfig returns a Config with the reference policy.
func DefaultConfig() Config {
	return Config{
		GitPath:    "git",
		Remote:     "origin",
		BaseBranch: "main",
		Agent: AgentConfig{
			Bootstrap:     "agent.py",
			Name:          "agent",
			Ext:           ".py",
			Interpreter:   "python3",
			SelfCheckFlag: "--test",
		},
		Labels: LabelConfig{
			Task:   "agent-task",
			Failed: "agent-failed",
			Retry:  "agent-retry",
		},
		Loop: LoopConfig{
			PollInterval: 30 * time.Second,
			ErrorBackoff: 60 * time.Second,
			MaxRetries:   3,
		},
		Build: BuildConfig{
			Shell:   "/bin/bash",
			Timeout: 60 * time.Second,
		},
		SelfCheck: SelfCheckConfig{
			Timeout: 10 * time.Second,
		},
		Generator: GeneratorConfig{
			Provider:         ProviderOpenAI,
			MaxTokens:        4000,
			Temperature:      0.7,
			Timeout:          5 * time.Minute,
			SystemPromptFile: "SYSTEM_PROMPT.md",
		},
		GitHub: GitHubConfig{
			APIURL:  "https://api.github.com",
			Timeout: 30 * time.Second,
		},
		Supervisor: SupervisorConfig{
			WorkerCommand:   `{{ shq .Self }} run --agent {{ shq .Agent }}`,
			RestartDelay:    60 * time.Second,
			HandoffExitCode: 75,
		},
		Theme: styles.DefaultTheme,
	}
}

// Load reads configuration from configPath (optional; missing files yield
// defaults), resolves it against workDir and takes credentials from getenv.
// The caller merges any .env file into the environment before calling Load.
func Load(configPath, workDir string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve work dir: %w", err)
	}
	cfg.WorkDir = abs
	cfg.DataDir = filepath.Join(abs, DataDirName)

	cfg.Credentials = Credentials{
		OpenAIKey:   getenv(EnvOpenAIKey),
		GeminiKey:   getenv(EnvGeminiKey),
		GitHubToken: getenv(EnvGitHubToken),
		Repo:        getenv(EnvRepo),
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Generator.Model == "" {
		switch c.Generator.Provider {
		case ProviderGemini:
			c.Generator.Model = "gemini-2.5-pro"
		default:
			c.Generator.Model = "gpt-4o"
		}
	}
	if c.Generator.BaseURL == "" && c.Generator.Provider == ProviderOpenAI {
		c.Generator.BaseURL = "https://api.openai.com/v1"
	}
	if c.Generator.MaxTokens == 0 {
		c.Generator.MaxTokens = defaults.Generator.MaxTokens
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = defaults.Generator.Timeout
	}
	if c.GitHub.Timeout == 0 {
		c.GitHub.Timeout = defaults.GitHub.Timeout
	}
	if c.Supervisor.HandoffExitCode == 0 {
		c.Supervisor.HandoffExitCode = defaults.Supervisor.HandoffExitCode
	}
}

// Layout returns the artifact naming scheme.
func (c *Config) Layout() evolution.Layout {
	return evolution.Layout{Name: c.Agent.Name, Ext: c.Agent.Ext}
}

// GeneratorKey returns the credential for the configured provider.
func (c *Config) GeneratorKey() string {
	if c.Generator.Provider == ProviderGemini {
		return c.Credentials.GeminiKey
	}
	return c.Credentials.OpenAIKey
}

// GeneratorKeyName returns the environment key holding GeneratorKey.
func (c *Config) GeneratorKeyName() string {
	if c.Generator.Provider == ProviderGemini {
		return EnvGeminiKey
	}
	return EnvOpenAIKey
}

// Path resolves name against the work directory unless it is absolute.
func (c *Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.WorkDir, name)
}

// JournalPath is the SQLite journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, "evolve.db")
}

// HandoffPath is the file a supervised worker writes before handing off.
func (c *Config) HandoffPath() string {
	return filepath.Join(c.DataDir, "handoff.json")
}

// PublishExcludes lists the work tree paths, relative to WorkDir, that are
// never committed to an evolution branch: the data directory and the
// credentials file. Paths outside the work tree are left out.
func (c *Config) PublishExcludes() []string {
	var out []string
	for _, p := range []string{c.DataDir, c.EnvFile} {
		if p == "" {
			continue
		}
		rel, err := filepath.Rel(c.WorkDir, c.Path(p))
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// Validate checks that the configuration is structurally valid. Credentials
// are checked separately by RequireCredentials so commands that never touch
// the network can run without them.
func (c *Config) Validate() error {
	if c.GitPath == "" {
		return fmt.Errorf("git_path cannot be empty")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work directory cannot be empty")
	}
	if c.Remote == "" || c.BaseBranch == "" {
		return fmt.Errorf("remote and base_branch cannot be empty")
	}
	if c.Agent.Name == "" {
		return fmt.Errorf("agent.name cannot be empty")
	}
	if c.Agent.Bootstrap == "" {
		return fmt.Errorf("agent.bootstrap cannot be empty")
	}
	if c.Labels.Task == "" || c.Labels.Failed == "" || c.Labels.Retry == "" {
		return fmt.Errorf("labels.task, labels.failed and labels.retry must be set")
	}
	if c.Labels.Failed == c.Labels.Retry || c.Labels.Task == c.Labels.Failed || c.Labels.Task == c.Labels.Retry {
		return fmt.Errorf("labels must be distinct")
	}
	if c.Loop.MaxRetries < 1 {
		return fmt.Errorf("loop.max_retries must be at least 1")
	}
	if c.Loop.PollInterval <= 0 || c.Loop.ErrorBackoff <= 0 {
		return fmt.Errorf("loop.poll_interval and loop.error_backoff must be positive")
	}
	if c.Build.Timeout <= 0 || c.SelfCheck.Timeout <= 0 {
		return fmt.Errorf("build.timeout and validate.timeout must be positive")
	}
	if c.Build.Shell == "" {
		return fmt.Errorf("build.shell cannot be empty")
	}
	if c.Generator.Provider != ProviderOpenAI && c.Generator.Provider != ProviderGemini {
		return fmt.Errorf("generator.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.Generator.Provider)
	}
	if code := c.Supervisor.HandoffExitCode; code < 1 || code > 125 {
		return fmt.Errorf("supervisor.handoff_exit_code must be between 1 and 125")
	}
	if c.Supervisor.WorkerCommand == "" {
		return fmt.Errorf("supervisor.worker_command cannot be empty")
	}
	if _, ok := styles.GetPalette(c.Theme); !ok {
		return fmt.Errorf("theme %q is unknown, available: %s", c.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	return nil
}
