package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Tracking TrackingConfig `mapstructure:"tracking"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TrackingConfig defines how focus is sampled and bucketed
type TrackingConfig struct {
	SampleInterval       string   `mapstructure:"sample_interval"`
	AbsentSample         string   `mapstructure:"absent_sample"` // "pause" or "extend"
	Timezone             string   `mapstructure:"timezone"`      // empty means the local zone
	ReservedApplications []string `mapstructure:"reserved_applications"`
}

// ProbeConfig defines how the focused window is read
type ProbeConfig struct {
	Backend string   `mapstructure:"backend"` // "xdotool" or "command"
	Command []string `mapstructure:"command"` // argv printing sample JSON
	Timeout string   `mapstructure:"timeout"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "bolt", "redis" or "sqlite"
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// PublishConfig defines snapshot publishing to presentation clients
type PublishConfig struct {
	RedisChannel string `mapstructure:"redis_channel"` // empty disables publishing
	EveryTick    bool   `mapstructure:"every_tick"`
}

// ServerConfig defines listener ports and addresses
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	APIPort     int    `mapstructure:"api_port"`     // 0 disables the API
	MetricsPort int    `mapstructure:"metrics_port"` // 0 disables metrics
}

// APIConfig defines HTTP API settings
type APIConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfigPath returns $HOME/.config/focustime/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "focustime", "config.yaml")
}

// DefaultStoragePath returns $HOME/.local/share/focustime/focustime.bolt.
func DefaultStoragePath() string {
	return filepath.Join(homeDir(), ".local", "share", "focustime", "focustime.bolt")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load loads configuration from file and environment variables. A missing
// config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("FOCUSTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Tracking defaults
	v.SetDefault("tracking.sample_interval", "1s")
	v.SetDefault("tracking.absent_sample", "pause")
	v.SetDefault("tracking.timezone", "")
	v.SetDefault("tracking.reserved_applications", []string{"loginwindow", "ScreenSaverEngine", "LockApp.exe"})

	// Probe defaults
	v.SetDefault("probe.backend", "xdotool")
	v.SetDefault("probe.command", []string{})
	v.SetDefault("probe.timeout", "500ms")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", DefaultStoragePath())
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 4)
	v.SetDefault("storage.redis.min_idle_conns", 1)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "focustime")

	// Publish defaults
	v.SetDefault("publish.redis_channel", "")
	v.SetDefault("publish.every_tick", false)

	// Server defaults
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.api_port", 8765)
	v.SetDefault("server.metrics_port", 9765)

	// API defaults
	v.SetDefault("api.cache_size", 128)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// validate validates the configuration
func validate(cfg *Config) error {
	interval, err := cfg.Tracking.Interval()
	if err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("sample_interval must be positive: %s", cfg.Tracking.SampleInterval)
	}

	switch cfg.Tracking.AbsentSample {
	case "pause", "extend":
	default:
		return fmt.Errorf("invalid absent_sample: %q", cfg.Tracking.AbsentSample)
	}

	if _, err := cfg.Tracking.Location(); err != nil {
		return err
	}

	switch cfg.Probe.Backend {
	case "xdotool":
	case "command":
		if len(cfg.Probe.Command) == 0 {
			return fmt.Errorf("probe.command is required for the command backend")
		}
	default:
		return fmt.Errorf("invalid probe backend: %q", cfg.Probe.Backend)
	}
	if _, err := cfg.Probe.TimeoutDuration(); err != nil {
		return err
	}

	switch cfg.Storage.Type {
	case "bolt", "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
	case "redis":
		if err := validateRedis(cfg.Storage.Redis); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid storage type: %q", cfg.Storage.Type)
	}

	if cfg.Publish.RedisChannel != "" {
		if err := validateRedis(cfg.Storage.Redis); err != nil {
			return err
		}
	}

	if cfg.Server.APIPort < 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}
	if cfg.API.CacheSize <= 0 {
		return fmt.Errorf("api cache_size must be positive: %d", cfg.API.CacheSize)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	for name, value := range map[string]string{
		"dial_timeout":  cfg.DialTimeout,
		"read_timeout":  cfg.ReadTimeout,
		"write_timeout": cfg.WriteTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid redis %s: %w", name, err)
		}
	}
	return nil
}

// Interval returns the parsed sample interval.
func (t TrackingConfig) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(t.SampleInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid sample_interval: %w", err)
	}
	return d, nil
}

// Location returns the zone used for day keys.
func (t TrackingConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}

// TimeoutDuration returns the parsed probe timeout.
func (p ProbeConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid probe timeout: %w", err)
	}
	return d, nil
}
