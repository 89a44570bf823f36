// File: internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "weblayout", cfg.Logger.ServiceName)
	assert.Equal(t, 1024.0, cfg.Viewport.Width)
	assert.Equal(t, 768.0, cfg.Viewport.Height)
	assert.Equal(t, 16.0, cfg.Viewport.DefaultFontSize)
	assert.Equal(t, 30*time.Millisecond, cfg.Scheduler.CoalesceWindow)
	assert.Equal(t, time.Millisecond, cfg.Scheduler.PollInterval)
	assert.Equal(t, 64, cfg.Scheduler.InboxSize)
	assert.Equal(t, "serif", cfg.Fonts.DefaultFamily)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, int64(16<<20), cfg.Fetch.MaxBodyBytes)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("single problem", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Scheduler.InboxSize = 0

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheduler.inbox_size must be at least 1")
	})

	t.Run("all problems reported together", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Viewport.Width = 0
		cfg.Fetch.MaxConcurrent = 0
		cfg.Fetch.RequestsPerSecond = -1

		err := cfg.Validate()
		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 3)
		assert.Contains(t, err.Error(), "viewport dimensions must be positive")
		assert.Contains(t, err.Error(), "fetch.max_concurrent")
		assert.Contains(t, err.Error(), "fetch.requests_per_second")
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		yamlBytes := []byte(`
viewport:
  width: 640
  height: 480
scheduler:
  coalesce_window: 50ms
fonts:
  directories: ["/opt/fonts"]
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 640.0, cfg.Viewport.Width)
		assert.Equal(t, 480.0, cfg.Viewport.Height)
		assert.Equal(t, 50*time.Millisecond, cfg.Scheduler.CoalesceWindow)
		assert.Equal(t, []string{"/opt/fonts"}, cfg.Fonts.Directories)
		// Untouched keys keep their defaults.
		assert.Equal(t, "info", cfg.Logger.Level)
	})

	t.Run("validation failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("scheduler.poll_interval", "0s")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "scheduler.poll_interval must be positive")
	})

	t.Run("environment variable binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		BindEnv(v)
		t.Setenv("WEBLAYOUT_VIEWPORT_WIDTH", "320")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 320.0, cfg.Viewport.Width)
	})
}

func TestFontDirectories(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	f := FontsConfig{Directories: []string{"~/fonts", "/usr/share/fonts/", "relative/dir"}}
	dirs := f.FontDirectories()

	require.Len(t, dirs, 3)
	assert.Equal(t, filepath.Join(home, "fonts"), dirs[0])
	assert.Equal(t, "/usr/share/fonts", dirs[1])
	assert.Equal(t, "relative/dir", dirs[2])
}

func TestMain(m *testing.M) {
	// homedir caches its lookup; make sure HOME is set for the expansion test.
	if os.Getenv("HOME") == "" {
		_ = os.Setenv("HOME", os.TempDir())
	}
	os.Exit(m.Run())
}
