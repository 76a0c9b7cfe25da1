// Package config loads the client configuration from the user's config
// directory, merging file contents over built-in defaults. Every value
// can also be overridden per invocation through CLI flags or the
// BYN_API_URL environment variable.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/byn"
	configFileName = "config.yaml"

	// DefaultAPIURL points at a local development backend.
	DefaultAPIURL = "http://localhost:8000/api"

	// DefaultTimeoutSeconds bounds every HTTP request.
	DefaultTimeoutSeconds = 30

	// EnvAPIURL overrides the configured API base URL when set.
	EnvAPIURL = "BYN_API_URL"
)

// Config holds the client settings read from config.yaml.
type Config struct {
	APIURL         string `yaml:"apiUrl,omitempty"`         // Base URL of the platform API (default: http://localhost:8000/api)
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"` // HTTP request timeout in seconds (default: 30)
	CredentialsDir string `yaml:"credentialsDir,omitempty"` // Directory holding stored credentials (default: ~/.config/byn/credentials)
	LogLevel       string `yaml:"logLevel,omitempty"`       // Log verbosity: debug, info, warn, error (default: warn)
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		TimeoutSeconds: DefaultTimeoutSeconds,
		CredentialsDir: filepath.Join(DefaultConfigPathOrPanic(), "credentials"),
		LogLevel:       "warn",
	}
}

// DefaultConfigPathOrPanic returns ~/.config/byn, panicking only when
// the home directory cannot be resolved at all.
func DefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// Load reads config.yaml from the given directory, layering it over
// the defaults. A missing file is not an error; defaults apply. The
// BYN_API_URL environment variable, when set, wins over both.
func Load(configPath string) (Config, error) {
	cfg := Default()

	configFilePath := filepath.Join(configPath, configFileName)
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no config.yaml found, using defaults", "path", configFilePath)
			return applyEnv(cfg), nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	slog.Debug("loaded configuration", "path", configFilePath)
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if url := os.Getenv(EnvAPIURL); url != "" {
		cfg.APIURL = url
	}
	return cfg
}
