package config

import (
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectConfigFile is the name of the project-level config file.
const ProjectConfigFile = "yomikae.yaml"

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load returns the defaults overlaid with path, or with the project config
// found from the current directory upwards when path is empty. An explicit
// path must exist. Flags are applied by the caller before Validate.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		config, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("loaded config", slog.String("path", path))
		return config, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return DefaultConfig(), nil
	}
	found := FindProjectConfig(cwd)
	if found == "" {
		l.logger.Debug("no project config found")
		return DefaultConfig(), nil
	}
	config, err := LoadFromFile(found)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded project config", slog.String("path", found))
	return config, nil
}

// FindProjectConfig searches for yomikae.yaml in dir and its parents.
func FindProjectConfig(dir string) string {
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
