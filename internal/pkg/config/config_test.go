package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
api:
  base_url: "https://miniapp.example.org"
  timeout: 30s
storage:
  driver: "sqlite"
  path: "/tmp/miniapp.db"
telegram:
  init_data: "user=%7B%22id%22%3A555%7D&hash=abc"
  events_file: "/tmp/events.jsonl"
chat:
  history_limit: 20
  typing_phrases:
    - "Печатает..."
  export_dir: "/tmp/exports"
keyboard:
  threshold: 120
  debounce: 200ms
  orientation_settle: 1s
cache:
  ttl: 10m
retry:
  base_delay: 500ms
  max_attempts: 5
logging:
  level: "debug"
  format: "json"
devserver:
  host: "0.0.0.0"
  port: 9090
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "miniapp.yml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("success with full config", func(t *testing.T) {
		path := createTempConfigFile(t, fullYAML)
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		require.NoError(t, err)

		assert.Equal(t, "https://miniapp.example.org", cfg.API.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)
		assert.Equal(t, "sqlite", cfg.Storage.Driver)
		assert.Equal(t, "/tmp/miniapp.db", cfg.Storage.Path)
		assert.Contains(t, cfg.Telegram.InitData, "hash=abc")
		assert.Equal(t, "/tmp/events.jsonl", cfg.Telegram.EventsFile)
		assert.Equal(t, 20, cfg.Chat.HistoryLimit)
		assert.Equal(t, []string{"Печатает..."}, cfg.Chat.TypingPhrases)
		assert.Equal(t, "/tmp/exports", cfg.Chat.ExportDir)
		assert.Equal(t, 120, cfg.Keyboard.Threshold)
		assert.Equal(t, 200*time.Millisecond, cfg.Keyboard.Debounce)
		assert.Equal(t, time.Second, cfg.Keyboard.OrientationSettle)
		assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
		assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
		assert.Equal(t, 5, cfg.Retry.MaxAttempts)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "0.0.0.0:9090", cfg.DevServerAddress())
		require.NoError(t, cfg.Validate())
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := createTempConfigFile(t, "logging:\n  level: warn\n")
		cfg := defaultConfig()
		require.NoError(t, loadFromYAML(path, cfg))

		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
		assert.Equal(t, DefaultKeyboardThreshold, cfg.Keyboard.Threshold)
		assert.Equal(t, DefaultKeyboardDebounce, cfg.Keyboard.Debounce)
	})

	t.Run("file not found", func(t *testing.T) {
		cfg := defaultConfig()
		err := loadFromYAML("non_existent_file.yml", cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := createTempConfigFile(t, "invalid yaml: {")
		cfg := defaultConfig()
		err := loadFromYAML(path, cfg)
		assert.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file falls back to defaults and env", func(t *testing.T) {
		t.Setenv("MINIAPP_API_URL", "http://api.local")
		t.Setenv("MINIAPP_STORAGE_DRIVER", "memory")
		t.Setenv("MINIAPP_API_TIMEOUT", "5s")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.Equal(t, "http://api.local", cfg.API.BaseURL)
		assert.Equal(t, "memory", cfg.Storage.Driver)
		assert.Equal(t, 5*time.Second, cfg.API.Timeout)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("MINIAPP_LOG_LEVEL", "error")
		cfg, err := LoadConfig(createTempConfigFile(t, fullYAML))
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Logging.Level)
		assert.Equal(t, "sqlite", cfg.Storage.Driver)
	})

	t.Run("invalid env value", func(t *testing.T) {
		t.Setenv("MINIAPP_DEVSERVER_PORT", "not-a-port")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutator func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"storage none without path", func(c *Config) { c.Storage.Driver = "none"; c.Storage.Path = "" }, false},
		{"invalid api timeout", func(c *Config) { c.API.Timeout = 0 }, true},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "redis" }, true},
		{"file storage without path", func(c *Config) { c.Storage.Path = "" }, true},
		{"invalid history limit", func(c *Config) { c.Chat.HistoryLimit = 0 }, true},
		{"no typing phrases", func(c *Config) { c.Chat.TypingPhrases = nil }, true},
		{"invalid keyboard threshold", func(c *Config) { c.Keyboard.Threshold = 0 }, true},
		{"invalid debounce", func(c *Config) { c.Keyboard.Debounce = 0 }, true},
		{"invalid cache ttl", func(c *Config) { c.Cache.TTL = 0 }, true},
		{"invalid retry delay", func(c *Config) { c.Retry.BaseDelay = 0 }, true},
		{"invalid retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, true},
		{"invalid port", func(c *Config) { c.DevServer.Port = 70000 }, true},
		{"invalid logging level", func(c *Config) { c.Logging.Level = "wrong" }, true},
		{"invalid logging format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutator(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
