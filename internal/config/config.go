// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/chat-exporter/internal/types"
)

// DefaultFilenamePattern is used when no pattern is configured.
const DefaultFilenamePattern = "{title}_{date}_{time}"

// DefaultBaseURL is the host driven when none is configured.
const DefaultBaseURL = "https://chatgpt.com"

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Output
	OutputDir           string `json:"output_dir,omitempty"`           // Destination directory for exported files
	FilenamePattern     string `json:"filename_pattern,omitempty"`     // Filename template: {title}, {date}, {time}, {id}
	FrontmatterTemplate string `json:"frontmatter_template,omitempty"` // Front-matter template; empty disables front matter
	DefaultTags         string `json:"default_tags,omitempty"`         // Comma-separated tags injected into front matter

	// Browser
	BaseURL          string `json:"base_url,omitempty"`           // Host base URL
	RemoteBrowserURL string `json:"remote_browser_url,omitempty"` // DevTools websocket of an already-running browser
	UserDataDir      string `json:"user_data_dir,omitempty"`      // Browser profile directory (carries the login session)
	Headed           bool   `json:"headed,omitempty"`             // Launch the browser with a visible window

	// Behavior
	StatePath string `json:"state_path,omitempty"` // Path of the run-state database
	Verbose   bool   `json:"verbose,omitempty"`    // Print detailed debug information

	validate *validator.Validate
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

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

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.validate == nil {
		c.validate = validator.New()
	}

	if c.BaseURL != "" {
		if err := c.validate.Var(c.BaseURL, "url"); err != nil {
			return fmt.Errorf("config error: 'base_url' is not a valid URL: %s", c.BaseURL)
		}
	}
	if c.RemoteBrowserURL != "" {
		if err := c.validate.Var(c.RemoteBrowserURL, "url"); err != nil {
			return fmt.Errorf("config error: 'remote_browser_url' is not a valid URL: %s", c.RemoteBrowserURL)
		}
	}

	if c.OutputDir != "" {
		info, err := os.Stat(c.OutputDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("config error: output directory not found: %s", c.OutputDir)
		}
		if err == nil && !info.IsDir() {
			return fmt.Errorf("config error: output path is not a directory: %s", c.OutputDir)
		}
	}

	if c.UserDataDir != "" {
		if _, err := os.Stat(c.UserDataDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: user data directory not found: %s", c.UserDataDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.FilenamePattern == "" {
		result.FilenamePattern = defaults.FilenamePattern
	}
	if result.FrontmatterTemplate == "" {
		result.FrontmatterTemplate = defaults.FrontmatterTemplate
	}
	if result.DefaultTags == "" {
		result.DefaultTags = defaults.DefaultTags
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.RemoteBrowserURL == "" {
		result.RemoteBrowserURL = defaults.RemoteBrowserURL
	}
	if result.UserDataDir == "" {
		result.UserDataDir = defaults.UserDataDir
	}
	if result.StatePath == "" {
		result.StatePath = defaults.StatePath
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Settings converts the configuration into the export settings frozen into
// a run's state. Missing values fall back to defaults here so the state
// always carries a usable pattern.
func (c *Config) Settings() types.Settings {
	pattern := c.FilenamePattern
	if pattern == "" {
		pattern = DefaultFilenamePattern
	}
	return types.Settings{
		FilenamePattern:     pattern,
		FrontmatterTemplate: c.FrontmatterTemplate,
		DefaultTags:         c.DefaultTags,
	}
}

// ResolvedBaseURL returns the configured base URL or the default.
func (c *Config) ResolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

// DefaultStatePath places the run-state database under the user config
// directory, falling back to the working directory when it is unavailable.
func DefaultStatePath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "chat-exporter-state.db"
	}
	return filepath.Join(base, "chat-exporter", "state.db")
}
