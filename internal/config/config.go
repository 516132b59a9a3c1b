// Package config loads and persists user configuration.
//
// Configuration lives in a YAML file under $XDG_CONFIG_HOME/polish
// (fallback ~/.config/polish). Values resolve with the precedence
// flags > environment > file > defaults; this package owns the file,
// the environment fallbacks, and the defaults, while the CLI layer
// applies flags on top. API credentials are read from the environment
// by the CLI and never pass through this package.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDir   = "polish"
	fileName = "config.yaml"
)

// Environment variable fallbacks.
const (
	EnvOutputDir = "POLISH_OUTPUT_DIR"
)

// Defaults applied by Validate.
const (
	DefaultProvider      = "replicate"
	DefaultModel         = "llama-2-7b-chat"
	DefaultTemplate      = "default"
	DefaultFormat        = "both"
	DefaultMaxCalls      = 10
	DefaultMaxTokens     = 30000
	DefaultWindowSeconds = 60
	DefaultRetryAttempts = 3
	DefaultBackoffBaseMS = 1000
)

// ErrUnknownKey indicates a configuration key that does not exist.
var ErrUnknownKey = errors.New("unknown configuration key")

// Config holds user configuration loaded from config.yaml.
type Config struct {
	Provider  string      `yaml:"provider"`
	Model     string      `yaml:"model"`
	Template  string      `yaml:"template"`
	OutputDir string      `yaml:"output_dir"`
	Format    string      `yaml:"format"`
	Chunk     ChunkConfig `yaml:"chunk"`
	Rate      RateConfig  `yaml:"rate"`
	Retry     RetryConfig `yaml:"retry"`
}

// ChunkConfig controls document splitting.
type ChunkConfig struct {
	// MaxTokens is the per-chunk token budget. Zero derives the budget
	// from the selected model's input window.
	MaxTokens int `yaml:"max_tokens"`
}

// RateConfig controls the sliding-window rate limiter.
type RateConfig struct {
	MaxCallsPerWindow  int `yaml:"max_calls_per_window"`
	MaxTokensPerWindow int `yaml:"max_tokens_per_window"`
	WindowSeconds      int `yaml:"window_seconds"`
}

// RetryConfig controls retries of transient completion failures.
// Attempts is the total number of calls made per chunk: 3 means one
// initial call and up to two retries.
type RetryConfig struct {
	Attempts      int `yaml:"attempts"`
	BackoffBaseMS int `yaml:"backoff_base_ms"`
}

// Window returns the rate-limit window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.Rate.WindowSeconds) * time.Second
}

// BackoffBase returns the retry backoff base as a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.Retry.BackoffBaseMS) * time.Millisecond
}

// Validate rejects negative values and fills unset fields with defaults.
// Cross-domain names (provider, model, template, format) are validated
// by their owning packages when the CLI resolves them.
func (c *Config) Validate() error {
	if c.Chunk.MaxTokens < 0 {
		return fmt.Errorf("chunk.max_tokens cannot be negative, got %d", c.Chunk.MaxTokens)
	}
	if c.Rate.MaxCallsPerWindow < 0 {
		return fmt.Errorf("rate.max_calls_per_window cannot be negative, got %d", c.Rate.MaxCallsPerWindow)
	}
	if c.Rate.MaxTokensPerWindow < 0 {
		return fmt.Errorf("rate.max_tokens_per_window cannot be negative, got %d", c.Rate.MaxTokensPerWindow)
	}
	if c.Rate.WindowSeconds < 0 {
		return fmt.Errorf("rate.window_seconds cannot be negative, got %d", c.Rate.WindowSeconds)
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("retry.attempts cannot be negative, got %d", c.Retry.Attempts)
	}
	if c.Retry.BackoffBaseMS < 0 {
		return fmt.Errorf("retry.backoff_base_ms cannot be negative, got %d", c.Retry.BackoffBaseMS)
	}

	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Template == "" {
		c.Template = DefaultTemplate
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Rate.MaxCallsPerWindow == 0 {
		c.Rate.MaxCallsPerWindow = DefaultMaxCalls
	}
	if c.Rate.MaxTokensPerWindow == 0 {
		c.Rate.MaxTokensPerWindow = DefaultMaxTokens
	}
	if c.Rate.WindowSeconds == 0 {
		c.Rate.WindowSeconds = DefaultWindowSeconds
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Retry.BackoffBaseMS == 0 {
		c.Retry.BackoffBaseMS = DefaultBackoffBaseMS
	}

	return nil
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/polish.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, fileName), nil
}

// Load reads the configuration file and environment variables, applies
// defaults, and returns a ready-to-use Config.
// Returns defaults if the file doesn't exist (not an error).
func Load() (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return cfg, err
	}

	// Environment overrides the file; flags override both (in the CLI).
	if d := os.Getenv(EnvOutputDir); d != "" {
		cfg.OutputDir = d
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadFile reads the configuration file as written: no environment
// overrides, no default filling. `config set` round-trips through this
// so unset keys stay unset and keep tracking future defaults.
func LoadFile() (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse %s: %w", p, err)
	}

	return cfg, nil
}

// Save writes the configuration file.
// Creates the config directory if it doesn't exist.
func Save(cfg Config) error {
	p, err := path()
	if err != nil {
		return err
	}

	// Ensure config directory exists.
	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot encode config: %w", err)
	}

	// #nosec G306 -- config file with standard permissions
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}

	return nil
}

// Keys returns every settable configuration key, in display order.
func Keys() []string {
	return []string{
		"provider",
		"model",
		"template",
		"output_dir",
		"format",
		"chunk.max_tokens",
		"rate.max_calls_per_window",
		"rate.max_tokens_per_window",
		"rate.window_seconds",
		"retry.attempts",
		"retry.backoff_base_ms",
	}
}

// Set assigns one configuration value from its string form.
// Keys use their YAML path, e.g. "rate.max_calls_per_window".
func (c *Config) Set(key, value string) error {
	switch key {
	case "provider":
		c.Provider = value
	case "model":
		c.Model = value
	case "template":
		c.Template = value
	case "output_dir":
		c.OutputDir = value
	case "format":
		c.Format = value
	case "chunk.max_tokens":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		c.Chunk.MaxTokens = n
	case "rate.max_calls_per_window":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		c.Rate.MaxCallsPerWindow = n
	case "rate.max_tokens_per_window":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		c.Rate.MaxTokensPerWindow = n
	case "rate.window_seconds":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		c.Rate.WindowSeconds = n
	case "retry.attempts":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		c.Retry.Attempts = n
	case "retry.backoff_base_ms":
		n, err := parseCount(key, value)
		if err != nil {
			return err
		}
		c.Retry.BackoffBaseMS = n
	default:
		return fmt.Errorf("%q (valid keys: %s): %w", key, strings.Join(Keys(), ", "), ErrUnknownKey)
	}

	return nil
}

// Value returns one configuration value in its string form.
func (c Config) Value(key string) (string, error) {
	switch key {
	case "provider":
		return c.Provider, nil
	case "model":
		return c.Model, nil
	case "template":
		return c.Template, nil
	case "output_dir":
		return c.OutputDir, nil
	case "format":
		return c.Format, nil
	case "chunk.max_tokens":
		return strconv.Itoa(c.Chunk.MaxTokens), nil
	case "rate.max_calls_per_window":
		return strconv.Itoa(c.Rate.MaxCallsPerWindow), nil
	case "rate.max_tokens_per_window":
		return strconv.Itoa(c.Rate.MaxTokensPerWindow), nil
	case "rate.window_seconds":
		return strconv.Itoa(c.Rate.WindowSeconds), nil
	case "retry.attempts":
		return strconv.Itoa(c.Retry.Attempts), nil
	case "retry.backoff_base_ms":
		return strconv.Itoa(c.Retry.BackoffBaseMS), nil
	default:
		return "", fmt.Errorf("%q (valid keys: %s): %w", key, strings.Join(Keys(), ", "), ErrUnknownKey)
	}
}

// parseCount parses a non-negative integer setting.
func parseCount(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
	}
	return n, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
//
// outputDir can come from config, environment, or flag.
// All paths are cleaned using filepath.Clean to normalize separators and remove redundant elements.
func ResolveOutputPath(output, outputDir, defaultName string) string {
	// Case 1: Explicit absolute path - use as-is.
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	// Case 2: Explicit relative path - combine with outputDir if set.
	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	// Case 3: No output specified - use default name.
	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// ValidOutputDir checks if a directory path is valid for use as output_dir.
// Returns nil if valid, or an error describing the problem.
func ValidOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}

	// Expand ~ to home directory.
	if strings.HasPrefix(d, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot expand ~: %w", err)
		}
		d = filepath.Join(home, d[2:])
	}

	// Check if path exists.
	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			// Directory doesn't exist - try to create it.
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	// Check if it's a directory.
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	// Check if writable by attempting to create a temp file.
	testFile := filepath.Join(d, ".polish-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(testFile)
		return fmt.Errorf("directory is not writable: %w", err)
	}
	_ = os.Remove(testFile) // Best effort cleanup, ignore error

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Path returns the full path to the config file (exported for display).
func Path() (string, error) {
	return path()
}
