// Package config loads yomikae configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultWorkDir is the default directory holding law XML files.
const DefaultWorkDir = "law_xml"

// DefaultLawList is the default law list file name inside the work directory.
const DefaultLawList = "index.json"

// DefaultXMLGlob discovers law XML files when no law list exists.
const DefaultXMLGlob = "**/*.xml"

// DefaultResultsFile is the default output file for parsed clauses.
const DefaultResultsFile = "output.json"

// DefaultErrorsFile is the default output file for clause failures.
const DefaultErrorsFile = "err.json"

// DefaultCacheTTL is the default lifetime of cached scope lookups.
const DefaultCacheTTL = 10 * time.Minute

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultLogFormat is the default log format.
const DefaultLogFormat = "text"

// Config represents the complete yomikae configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Index    IndexConfig    `yaml:"index"`
	Classify ClassifyConfig `yaml:"classify"`
	Log      LogConfig      `yaml:"log"`

	// Workers is the number of clauses parsed concurrently.
	Workers int `yaml:"workers"`
}

// InputConfig locates the law XML files.
type InputConfig struct {
	// WorkDir is the directory holding the XML files.
	WorkDir string `yaml:"work_dir"`
	// LawList is the index.json listing the laws. Relative paths are
	// resolved against the current directory.
	LawList string `yaml:"law_list"`
	// Glob selects XML files under WorkDir when LawList is empty.
	Glob string `yaml:"glob"`
}

// OutputConfig names the files a run writes.
type OutputConfig struct {
	Results string `yaml:"results"`
	Errors  string `yaml:"errors"`
	// Metrics is a Prometheus textfile; empty disables it.
	Metrics string `yaml:"metrics"`
}

// IndexConfig configures the reference index used for scope validation.
type IndexConfig struct {
	// Path is a SQLite file or ":memory:". Empty disables validation.
	Path string `yaml:"path"`
	// Build indexes every law of the run before parsing.
	Build    bool          `yaml:"build"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ClassifyConfig configures candidate detection.
type ClassifyConfig struct {
	// ProfileDir holds extra classifier profiles. The built-in profile is
	// always loaded.
	ProfileDir string `yaml:"profile_dir"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			WorkDir: DefaultWorkDir,
			Glob:    DefaultXMLGlob,
		},
		Output: OutputConfig{
			Results: DefaultResultsFile,
			Errors:  DefaultErrorsFile,
		},
		Index: IndexConfig{
			CacheTTL: DefaultCacheTTL,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Workers: runtime.NumCPU(),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Input.WorkDir == "" {
		return fmt.Errorf("input.work_dir is required")
	}
	if c.Input.LawList == "" && c.Input.Glob == "" {
		return fmt.Errorf("input.law_list or input.glob is required")
	}
	if c.Output.Results == "" || c.Output.Errors == "" {
		return fmt.Errorf("output.results and output.errors are required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Index.CacheTTL < 0 {
		return fmt.Errorf("index.cache_ttl must not be negative")
	}
	if c.Index.Build && c.Index.Path == "" {
		return fmt.Errorf("index.build requires index.path")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// LawListPath returns the law list to read, defaulting to index.json in
// the work directory when that file exists.
func (c *Config) LawListPath() string {
	if c.Input.LawList != "" {
		return c.Input.LawList
	}
	candidate := filepath.Join(c.Input.WorkDir, DefaultLawList)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
