package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/jonathan/chat-exporter/internal/browser"
	"github.com/jonathan/chat-exporter/internal/config"
	"github.com/jonathan/chat-exporter/internal/observability"
)

// defaultConfigFile is picked up from the working directory when no
// --config flag is given.
const defaultConfigFile = "chat-exporter.json"

// loadConfiguration resolves the effective configuration: explicit config
// file, else the default file if present, with environment variables
// filling remaining gaps.
func loadConfiguration(path string) (config.Config, error) {
	envDefaults := config.Config{
		OutputDir:           os.Getenv("CHAT_EXPORTER_OUTPUT_DIR"),
		FilenamePattern:     os.Getenv("CHAT_EXPORTER_FILENAME_PATTERN"),
		FrontmatterTemplate: os.Getenv("CHAT_EXPORTER_FRONTMATTER_TEMPLATE"),
		DefaultTags:         os.Getenv("CHAT_EXPORTER_DEFAULT_TAGS"),
		BaseURL:             os.Getenv("CHAT_EXPORTER_BASE_URL"),
		RemoteBrowserURL:    os.Getenv("CHAT_EXPORTER_REMOTE_BROWSER_URL"),
		UserDataDir:         os.Getenv("CHAT_EXPORTER_USER_DATA_DIR"),
		StatePath:           os.Getenv("CHAT_EXPORTER_STATE_PATH"),
	}

	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = *loaded
	}

	cfg = cfg.MergeWithDefaults(envDefaults)
	if cfg.StatePath == "" {
		cfg.StatePath = config.DefaultStatePath()
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the CLI logger on stderr so command output on stdout
// stays clean.
func newLogger(verbose bool) zerolog.Logger {
	return observability.NewLogger(os.Stderr, verbose)
}

// newSession launches or attaches the browser per the configuration.
func newSession(ctx context.Context, cfg config.Config, headed bool, log zerolog.Logger) (*browser.Session, error) {
	opts := browser.DefaultOptions()
	opts.RemoteURL = cfg.RemoteBrowserURL
	opts.UserDataDir = cfg.UserDataDir
	opts.Headless = !(headed || cfg.Headed)

	session, err := browser.NewSession(ctx, opts, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	return session, nil
}
