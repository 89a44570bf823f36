// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config is the root configuration for a layout session and the CLI around it.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Viewport  ViewportConfig  `mapstructure:"viewport" yaml:"viewport"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Fonts     FontsConfig     `mapstructure:"fonts" yaml:"fonts"`
	Fetch     FetchConfig     `mapstructure:"fetch" yaml:"fetch"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ViewportConfig sizes the initial containing block, in reference pixels.
type ViewportConfig struct {
	Width           float64 `mapstructure:"width" yaml:"width"`
	Height          float64 `mapstructure:"height" yaml:"height"`
	DefaultFontSize float64 `mapstructure:"default_font_size" yaml:"default_font_size"`
}

// SchedulerConfig tunes the owning task of a session.
type SchedulerConfig struct {
	// CoalesceWindow bounds how long a dirty phase may wait before a flush is forced.
	CoalesceWindow time.Duration `mapstructure:"coalesce_window" yaml:"coalesce_window"`
	// PollInterval is the receive timeout of the event loop.
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	InboxSize     int           `mapstructure:"inbox_size" yaml:"inbox_size"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
}

// FontsConfig controls local font discovery and text defaults.
type FontsConfig struct {
	Directories      []string `mapstructure:"directories" yaml:"directories"`
	DefaultFamily    string   `mapstructure:"default_family" yaml:"default_family"`
	EmojiFamily      string   `mapstructure:"emoji_family" yaml:"emoji_family"`
	EmojiFontPath    string   `mapstructure:"emoji_font_path" yaml:"emoji_font_path"`
	Language         string   `mapstructure:"language" yaml:"language"`
	MeasureCacheSize int      `mapstructure:"measure_cache_size" yaml:"measure_cache_size"`
}

// FetchConfig controls the resource fetcher used for stylesheets, fonts and images.
type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	MaxConcurrent     int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// NewDefaultConfig returns a Config populated with the defaults from SetDefaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failing here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "weblayout")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Viewport --
	v.SetDefault("viewport.width", 1024.0)
	v.SetDefault("viewport.height", 768.0)
	v.SetDefault("viewport.default_font_size", 16.0)

	// -- Scheduler --
	v.SetDefault("scheduler.coalesce_window", "30ms")
	v.SetDefault("scheduler.poll_interval", "1ms")
	v.SetDefault("scheduler.inbox_size", 64)
	v.SetDefault("scheduler.settle_timeout", "10s")

	// -- Fonts --
	v.SetDefault("fonts.directories", []string{"~/.fonts", "~/.local/share/fonts", "/usr/share/fonts", "/usr/local/share/fonts"})
	v.SetDefault("fonts.default_family", "serif")
	v.SetDefault("fonts.emoji_family", "emoji")
	v.SetDefault("fonts.emoji_font_path", "")
	v.SetDefault("fonts.language", "en")
	v.SetDefault("fonts.measure_cache_size", 4096)

	// -- Fetch --
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.requests_per_second", 8.0)
	v.SetDefault("fetch.burst", 4)
	v.SetDefault("fetch.max_concurrent", 4)
	v.SetDefault("fetch.user_agent", "weblayout/1.0")
	v.SetDefault("fetch.max_body_bytes", 16<<20)
}

// EnvPrefix is the prefix of environment overrides, e.g. WEBLAYOUT_VIEWPORT_WIDTH.
const EnvPrefix = "WEBLAYOUT"

// BindEnv makes v consult WEBLAYOUT_* environment variables for every key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values. All problems are reported together.
func (c *Config) Validate() error {
	var err error
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("viewport dimensions must be positive, got %gx%g", c.Viewport.Width, c.Viewport.Height))
	}
	if c.Viewport.DefaultFontSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("viewport.default_font_size must be positive"))
	}
	if c.Scheduler.CoalesceWindow <= 0 {
		err = multierr.Append(err, fmt.Errorf("scheduler.coalesce_window must be positive"))
	}
	if c.Scheduler.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("scheduler.poll_interval must be positive"))
	}
	if c.Scheduler.InboxSize < 1 {
		err = multierr.Append(err, fmt.Errorf("scheduler.inbox_size must be at least 1"))
	}
	if c.Fetch.MaxConcurrent < 1 {
		err = multierr.Append(err, fmt.Errorf("fetch.max_concurrent must be at least 1"))
	}
	if c.Fetch.RequestsPerSecond <= 0 {
		err = multierr.Append(err, fmt.Errorf("fetch.requests_per_second must be positive"))
	}
	if c.Fetch.Burst < 1 {
		err = multierr.Append(err, fmt.Errorf("fetch.burst must be at least 1"))
	}
	if c.Fonts.MeasureCacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("fonts.measure_cache_size cannot be negative"))
	}
	return err
}

// FontDirectories returns the configured font directories with "~" expanded.
// Entries that cannot be expanded are skipped.
func (f FontsConfig) FontDirectories() []string {
	dirs := make([]string, 0, len(f.Directories))
	for _, dir := range f.Directories {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			continue
		}
		dirs = append(dirs, filepath.Clean(expanded))
	}
	return dirs
}
