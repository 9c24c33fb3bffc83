// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values applied by DefaultConfig and MergeWithDefaults.
const (
	DefaultOutput               = "scraped_output.csv"
	DefaultDriver               = "chromedp"
	DefaultLogFormat            = "text"
	DefaultDelaySeconds         = 3.0
	DefaultPageTimeoutSeconds   = 10.0
	DefaultLoginTimeoutSeconds  = 10.0
	DefaultSettleSeconds        = 2.0
	DefaultExpandSettleSeconds  = 0.5
	DefaultContactSettleSeconds = 1.0
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Input       string `json:"input,omitempty" yaml:"input,omitempty"`               // Spreadsheet, CSV or text file of identifiers
	Output      string `json:"output,omitempty" yaml:"output,omitempty"`             // CSV output path
	JSONL       string `json:"jsonl,omitempty" yaml:"jsonl,omitempty"`               // Optional JSON-lines output path
	SQLite      string `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`             // Optional SQLite database path
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // Optional PostgreSQL connection URL

	// Browser
	Driver      string `json:"driver,omitempty" yaml:"driver,omitempty" validate:"omitempty,oneof=chromedp rod"`
	ShowBrowser bool   `json:"show_browser,omitempty" yaml:"show_browser,omitempty"` // Run Chrome with a visible window
	ChromePath  string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	UserAgent   string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`

	// Timing, in seconds
	DelaySeconds         float64 `json:"delay_seconds,omitempty" yaml:"delay_seconds,omitempty" validate:"gte=0"`                   // Pause between identifiers
	PageTimeoutSeconds   float64 `json:"page_timeout_seconds,omitempty" yaml:"page_timeout_seconds,omitempty" validate:"gte=0"`     // Profile readiness wait
	LoginTimeoutSeconds  float64 `json:"login_timeout_seconds,omitempty" yaml:"login_timeout_seconds,omitempty" validate:"gte=0"`   // Post-login marker wait
	SettleSeconds        float64 `json:"settle_seconds,omitempty" yaml:"settle_seconds,omitempty" validate:"gte=0"`                 // Wait after the ready marker appears
	ExpandSettleSeconds  float64 `json:"expand_settle_seconds,omitempty" yaml:"expand_settle_seconds,omitempty" validate:"gte=0"`   // Wait after each "show more" click
	ContactSettleSeconds float64 `json:"contact_settle_seconds,omitempty" yaml:"contact_settle_seconds,omitempty" validate:"gte=0"` // Wait after opening contact info

	// Behavior
	Verbose   bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=text json"`
}

// DefaultConfig returns a configuration with every option at its default.
func DefaultConfig() Config {
	return Config{
		Output:               DefaultOutput,
		Driver:               DefaultDriver,
		DelaySeconds:         DefaultDelaySeconds,
		PageTimeoutSeconds:   DefaultPageTimeoutSeconds,
		LoginTimeoutSeconds:  DefaultLoginTimeoutSeconds,
		SettleSeconds:        DefaultSettleSeconds,
		ExpandSettleSeconds:  DefaultExpandSettleSeconds,
		ContactSettleSeconds: DefaultContactSettleSeconds,
		LogFormat:            DefaultLogFormat,
	}
}

// LoadConfig loads configuration from a JSON file, or YAML when the
// extension is .yaml or .yml. Keys absent from the file keep their
// DefaultConfig values; keys present, including explicit zeros, win.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Input != "" {
		if _, err := os.Stat(c.Input); os.IsNotExist(err) {
			return fmt.Errorf("config error: input file not found: %s", c.Input)
		}
	}

	outputs := map[string]string{}
	for name, path := range map[string]string{"output": c.Output, "jsonl": c.JSONL, "sqlite": c.SQLite} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if other, dup := outputs[abs]; dup {
			return fmt.Errorf("config error: '%s' and '%s' point at the same file", other, name)
		}
		outputs[abs] = name
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Input == "" {
		result.Input = defaults.Input
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.JSONL == "" {
		result.JSONL = defaults.JSONL
	}
	if result.SQLite == "" {
		result.SQLite = defaults.SQLite
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Driver == "" {
		result.Driver = defaults.Driver
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Numeric and bool fields are never merged: zero is a valid setting
	// (no pacing, no settle) and cannot be told apart from unset.

	return result
}

// Delay is the pause between consecutive identifiers.
func (c *Config) Delay() time.Duration { return seconds(c.DelaySeconds) }

// PageTimeout bounds the wait for a profile's readiness marker.
func (c *Config) PageTimeout() time.Duration { return seconds(c.PageTimeoutSeconds) }

// LoginTimeout bounds the wait for the post-login marker.
func (c *Config) LoginTimeout() time.Duration { return seconds(c.LoginTimeoutSeconds) }

// Settle is the wait after a profile's readiness marker appears.
func (c *Config) Settle() time.Duration { return seconds(c.SettleSeconds) }

// ExpandSettle is the wait after each "show more" click.
func (c *Config) ExpandSettle() time.Duration { return seconds(c.ExpandSettleSeconds) }

// ContactSettle is the wait after opening the contact-info disclosure.
func (c *Config) ContactSettle() time.Duration { return seconds(c.ContactSettleSeconds) }

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
