package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"output_dir": "/tmp",
		"filename_pattern": "{title}_{date}",
		"default_tags": "chat, archive",
		"base_url": "https://chat.example",
		"headed": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp", cfg.OutputDir)
	assert.Equal(t, "{title}_{date}", cfg.FilenamePattern)
	assert.Equal(t, "chat, archive", cfg.DefaultTags)
	assert.Equal(t, "https://chat.example", cfg.BaseURL)
	assert.True(t, cfg.Headed)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeConfigFile(t, "{not json")
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		cfg := Config{OutputDir: dir, BaseURL: "https://chat.example"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty config is valid", func(t *testing.T) {
		cfg := Config{}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad base URL", func(t *testing.T) {
		cfg := Config{BaseURL: "not a url"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing output dir", func(t *testing.T) {
		cfg := Config{OutputDir: filepath.Join(dir, "nope")}
		assert.Error(t, cfg.Validate())
	})

	t.Run("output path is a file", func(t *testing.T) {
		file := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		cfg := Config{OutputDir: file}
		assert.Error(t, cfg.Validate())
	})
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{FilenamePattern: "{id}"}
	defaults := Config{
		FilenamePattern: "{title}",
		DefaultTags:     "chat",
		BaseURL:         "https://chat.example",
	}

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, "{id}", merged.FilenamePattern, "explicit value wins")
	assert.Equal(t, "chat", merged.DefaultTags)
	assert.Equal(t, "https://chat.example", merged.BaseURL)
}

func TestSettings(t *testing.T) {
	cfg := Config{
		FilenamePattern:     "{title}",
		FrontmatterTemplate: "---\n---\n",
		DefaultTags:         "chat",
	}
	settings := cfg.Settings()
	assert.Equal(t, "{title}", settings.FilenamePattern)
	assert.Equal(t, "---\n---\n", settings.FrontmatterTemplate)
	assert.Equal(t, "chat", settings.DefaultTags)
}

func TestSettingsDefaultsPattern(t *testing.T) {
	settings := (&Config{}).Settings()
	assert.Equal(t, DefaultFilenamePattern, settings.FilenamePattern)
}

func TestResolvedBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, (&Config{}).ResolvedBaseURL())
	assert.Equal(t, "https://other.example", (&Config{BaseURL: "https://other.example"}).ResolvedBaseURL())
}
