package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/colonyops/evolve/internal/core/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	WorkDir    string
	EnvFile    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// Environment sources of the global flags.
const (
	EnvLogLevel   = "EVOLVE_LOG_LEVEL"
	EnvLogFile    = "EVOLVE_LOG_FILE"
	EnvConfigPath = "EVOLVE_CONFIG"
	EnvWorkDir    = "EVOLVE_WORKDIR"
	EnvEnvFile    = "EVOLVE_ENV_FILE"
)

// DefaultConfigPath is the config file name looked up in the work directory.
const DefaultConfigPath = "evolve.yaml"

// DefaultEnvFile is the credentials file name looked up in the work directory.
const DefaultEnvFile = ".env"

// ResolveConfigPath returns the config path resolved against the work directory.
func (f *Flags) ResolveConfigPath() string {
	return resolve(f.WorkDir, f.ConfigPath)
}

// ResolveEnvFile returns the env file path resolved against the work directory.
func (f *Flags) ResolveEnvFile() string {
	return resolve(f.WorkDir, f.EnvFile)
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Export publishes the resolved global flags through their environment
// sources so child workers start with the same options.
func (f *Flags) Export() error {
	vars := map[string]string{
		EnvLogLevel:   f.LogLevel,
		EnvLogFile:    f.LogFile,
		EnvConfigPath: f.ResolveConfigPath(),
		EnvWorkDir:    f.WorkDir,
		EnvEnvFile:    f.ResolveEnvFile(),
	}

	for key, value := range vars {
		if value == "" {
			continue
		}
		if key != EnvLogLevel {
			abs, err := filepath.Abs(value)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", key, err)
			}
			value = abs
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	return nil
}
