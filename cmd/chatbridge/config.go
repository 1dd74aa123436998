package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the bridge configuration.
//
// Sources, lowest precedence first: built-in defaults, the YAML file named
// by CHATBRIDGE_CONFIG or --config, CHATBRIDGE_* environment variables
// (a .env file is loaded first), then command-line flags.
type Config struct {
	BackendURL      string        `yaml:"backend_url"`
	Listen          string        `yaml:"listen"`
	LogLevel        string        `yaml:"log_level"` // debug, info, warn, error
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
	ToolSummaries   bool          `yaml:"tool_summaries"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	Timeout         time.Duration `yaml:"timeout"`
	Intro           string        `yaml:"intro"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		BackendURL:      "http://localhost:9000/",
		Listen:          ":8080",
		LogLevel:        "info",
		DuplicateWindow: 5 * time.Second,
		ToolSummaries:   false,
		RetryAttempts:   3,
		Timeout:         2 * time.Minute,
		Intro:           "Hello, how can I help you?",
	}
}

// LoadConfig loads configuration from path (optional), the environment and
// the defaults. It loads a .env file if present (silent fail if not found).
//
// Every layer may set a zero value: a YAML key or a CHATBRIDGE_* variable
// that is present always wins over the layer below it.
func LoadConfig(path string) (*Config, error) {
	godotenv.Load() // Load .env file if present

	if path == "" {
		path = os.Getenv("CHATBRIDGE_CONFIG")
	}

	cfg := DefaultConfig()
	if path != "" {
		if err := readConfigFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readConfigFile decodes the YAML file onto cfg. Keys absent from the file
// keep their current values.
func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg with the CHATBRIDGE_* variables that are set.
// An empty variable counts as unset.
func applyEnv(cfg *Config) error {
	envString("CHATBRIDGE_BACKEND_URL", &cfg.BackendURL)
	envString("CHATBRIDGE_LISTEN", &cfg.Listen)
	envString("CHATBRIDGE_LOG_LEVEL", &cfg.LogLevel)
	envString("CHATBRIDGE_INTRO", &cfg.Intro)
	return errors.Join(
		envDuration("CHATBRIDGE_DUPLICATE_WINDOW", &cfg.DuplicateWindow),
		envBool("CHATBRIDGE_TOOL_SUMMARIES", &cfg.ToolSummaries),
		envInt("CHATBRIDGE_RETRY_ATTEMPTS", &cfg.RetryAttempts),
		envDuration("CHATBRIDGE_TIMEOUT", &cfg.Timeout),
	)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("CHATBRIDGE_BACKEND_URL is required")
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CHATBRIDGE_BACKEND_URL must be an http(s) URL, got %q", c.BackendURL)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("CHATBRIDGE_RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("CHATBRIDGE_TIMEOUT cannot be negative: %s", c.Timeout)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s (must be debug, info, warn, or error)", s)
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok && value != ""
}

func envString(key string, dst *string) {
	if value, ok := lookupEnv(key); ok {
		*dst = value
	}
}

func envInt(key string, dst *int) error {
	value, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	*dst = i
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	value, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a duration, got %q", key, value)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) error {
	value, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be a boolean, got %q", key, value)
	}
	*dst = b
	return nil
}
