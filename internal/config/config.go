// Package config provides configuration management for streamsift using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultProbeTimeout       = 2 * time.Minute
	defaultProbeAttempts      = 3
	defaultProbeMinDelay      = 1000 * time.Millisecond
	defaultProbeMaxDelay      = 3000 * time.Millisecond
	defaultProbeBackoffFactor = 2.0
	defaultProbeUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultIdentityURL        = "https://api.ipify.org"
	defaultIdentityTimeout    = 10 * time.Second
	defaultMonitorInterval    = time.Second
	defaultProgressBuffer     = 32
	defaultFilenamePrefix     = "streamsift"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "STREAMSIFT"

// Config holds all configuration for the application.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Identity IdentityConfig `mapstructure:"identity"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Database DatabaseConfig `mapstructure:"database"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// ProbeConfig holds metadata prober (yt-dlp) configuration.
type ProbeConfig struct {
	BinaryPath    string        `mapstructure:"binary_path"` // empty = auto-detect
	UserAgent     string        `mapstructure:"user_agent"`
	Proxy         string        `mapstructure:"proxy"` // passed through as --proxy when set
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
}

// IdentityConfig controls which network identity is attributed to media fetches.
type IdentityConfig struct {
	Address   string        `mapstructure:"address"`    // fixed identity, skips lookup
	LookupURL string        `mapstructure:"lookup_url"` // plain-text echo service
	Timeout   time.Duration `mapstructure:"timeout"`
}

// FFmpegConfig holds encoder binary configuration.
type FFmpegConfig struct {
	BinaryPath      string        `mapstructure:"binary_path"` // empty = auto-detect
	LogLevel        string        `mapstructure:"log_level"`
	StderrLogPath   string        `mapstructure:"stderr_log_path"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`
}

// PipelineConfig holds transcode pipeline configuration.
type PipelineConfig struct {
	FilenamePrefix string `mapstructure:"filename_prefix"`
	OutputDir      string `mapstructure:"output_dir"`
	AudioContainer string `mapstructure:"audio_container"` // mp3, m4a, opus
	VideoContainer string `mapstructure:"video_container"` // mkv, mp4, webm
	ProgressBuffer int    `mapstructure:"progress_buffer"`
}

// DatabaseConfig holds job history database configuration.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"` // silent, error, warn, info
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and use
// underscores for nesting, e.g. STREAMSIFT_PROBE_TIMEOUT=90s.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/streamsift")
		v.AddConfigPath("$HOME/.streamsift")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("probe.binary_path", "")
	v.SetDefault("probe.user_agent", defaultProbeUserAgent)
	v.SetDefault("probe.proxy", "")
	v.SetDefault("probe.timeout", defaultProbeTimeout)
	v.SetDefault("probe.retry_attempts", defaultProbeAttempts)
	v.SetDefault("probe.min_delay", defaultProbeMinDelay)
	v.SetDefault("probe.max_delay", defaultProbeMaxDelay)
	v.SetDefault("probe.backoff_factor", defaultProbeBackoffFactor)

	v.SetDefault("identity.address", "")
	v.SetDefault("identity.lookup_url", defaultIdentityURL)
	v.SetDefault("identity.timeout", defaultIdentityTimeout)

	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.log_level", "info")
	v.SetDefault("ffmpeg.stderr_log_path", "")
	v.SetDefault("ffmpeg.monitor_interval", defaultMonitorInterval)

	v.SetDefault("pipeline.filename_prefix", defaultFilenamePrefix)
	v.SetDefault("pipeline.output_dir", ".")
	v.SetDefault("pipeline.audio_container", "mp3")
	v.SetDefault("pipeline.video_container", "mkv")
	v.SetDefault("pipeline.progress_buffer", defaultProgressBuffer)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "streamsift.db")
	v.SetDefault("database.log_level", "warn")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Probe.RetryAttempts < 1 {
		return fmt.Errorf("probe.retry_attempts must be at least 1")
	}
	if c.Probe.MinDelay < 0 || c.Probe.MaxDelay < c.Probe.MinDelay {
		return fmt.Errorf("probe.max_delay must not be less than probe.min_delay")
	}
	if c.Probe.BackoffFactor < 1 {
		return fmt.Errorf("probe.backoff_factor must be at least 1")
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}

	validAudio := map[string]bool{"mp3": true, "m4a": true, "opus": true}
	if !validAudio[c.Pipeline.AudioContainer] {
		return fmt.Errorf("pipeline.audio_container must be one of: mp3, m4a, opus")
	}
	validVideo := map[string]bool{"mkv": true, "mp4": true, "webm": true}
	if !validVideo[c.Pipeline.VideoContainer] {
		return fmt.Errorf("pipeline.video_container must be one of: mkv, mp4, webm")
	}
	if c.Pipeline.FilenamePrefix == "" {
		return fmt.Errorf("pipeline.filename_prefix is required")
	}
	if c.Pipeline.ProgressBuffer < 1 {
		return fmt.Errorf("pipeline.progress_buffer must be at least 1")
	}

	if c.Database.Enabled {
		validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
		if !validDrivers[c.Database.Driver] {
			return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
		}
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required")
		}
	}

	return nil
}
