// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default timeout for a single backend HTTP request.
	defaultRequestTimeout = 600 * time.Second
	// defaultValidationTimeout bounds each sandbox sample invocation.
	defaultValidationTimeout = 10 * time.Second
	// defaultChunkSize is the records-per-chunk fallback.
	defaultChunkSize = 50
	// defaultMaxIterations bounds iterations per chunk.
	defaultMaxIterations = 5
	// defaultContextBudget caps the existing-functions summary in characters.
	defaultContextBudget = 8000
	// defaultRetryAttempts is the total backend attempt budget per call.
	defaultRetryAttempts = 3
)

// Config represents the top-level application configuration.
type Config struct {
	Provider          string `json:"provider"`
	Model             string `json:"model"`
	BaseURL           string `json:"baseUrl,omitempty"`
	APIKey            string `json:"apiKey,omitempty"`
	ChunkSize         int    `json:"chunkSize,omitempty"`
	MaxIterations     int    `json:"maxIterations,omitempty"`
	ContextBudget     int    `json:"contextBudget,omitempty"`
	Overlap           int    `json:"overlap,omitempty"`
	Mode              string `json:"mode,omitempty"`
	Output            string `json:"output,omitempty"`
	Report            string `json:"report,omitempty"`
	StateFile         string `json:"stateFile,omitempty"`
	TUI               bool   `json:"tui"`
	Debug             bool   `json:"debug"`
	LogFile           string `json:"logFile,omitempty"`
	TimeoutSeconds    int    `json:"timeout,omitempty"`
	RetryAttempts     int    `json:"retryAttempts,omitempty"`
	ValidationSeconds int    `json:"validationTimeout,omitempty"`
	ConfigPath        string `json:"-"`
}

// RequestTimeout returns the timeout for a single backend HTTP request,
// falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ValidationTimeout returns the per-sample sandbox deadline.
func (c Config) ValidationTimeout() time.Duration {
	if c.ValidationSeconds <= 0 {
		return defaultValidationTimeout
	}
	return time.Duration(c.ValidationSeconds) * time.Second
}

// EffectiveChunkSize returns the configured chunk size or the default.
func (c Config) EffectiveChunkSize() int {
	if c.ChunkSize <= 0 {
		return defaultChunkSize
	}
	return c.ChunkSize
}

// EffectiveMaxIterations returns the configured iteration cap or the default.
func (c Config) EffectiveMaxIterations() int {
	if c.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return c.MaxIterations
}

// EffectiveContextBudget returns the configured context budget or the default.
func (c Config) EffectiveContextBudget() int {
	if c.ContextBudget <= 0 {
		return defaultContextBudget
	}
	return c.ContextBudget
}

// EffectiveRetryAttempts returns the configured retry budget or the default.
func (c Config) EffectiveRetryAttempts() int {
	if c.RetryAttempts <= 0 {
		return defaultRetryAttempts
	}
	return c.RetryAttempts
}

// LogFilePath returns the path to the application log file, applying a
// default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "scour.log"
}

// Load reads the application configuration from the specified path. A
// missing file at the default path is not an error; every setting has a
// flag or default.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file %q: %w", path, err)
	}
	cfg.ConfigPath = path
	return cfg, nil
}
