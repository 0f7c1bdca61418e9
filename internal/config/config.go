// Package config provides configuration management for airwave using Viper.
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
	defaultServerPort         = 8080
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultMaxOpenConns       = 25
	defaultMaxIdleConns       = 10
	defaultConnMaxIdleTime    = 30 * time.Minute
	defaultMinPrefeedLead     = 5 * time.Second
	defaultStartupLatency     = 7 * time.Second
	defaultSchedulingBuffer   = 2 * time.Second
	defaultTeardownGrace      = 10 * time.Second
	defaultConvergenceWindow  = 120 * time.Second
	defaultTickHz             = 1
	defaultQueueDepth         = 64
	defaultChunkBytes         = 32 * 1024
	defaultPlanSyncInterval   = time.Minute
	minimumPrefeedLead        = time.Second
	prefeedLeadWarnThreshold  = 30 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Playout  PlayoutConfig  `mapstructure:"playout"`
	Router   RouterConfig   `mapstructure:"router"`
	Plans    PlansConfig    `mapstructure:"plans"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn" masq:"secret"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// PlayoutConfig holds the per-channel playout scheduling configuration.
//
// MinPrefeedLead is the minimum time the producer needs between a preview
// being loaded and the switch being issued. StartupLatency bounds producer
// spin-up and handshake. SchedulingBuffer is the cushion added to the
// preload trigger ahead of MinPrefeedLead.
type PlayoutConfig struct {
	MinPrefeedLead        time.Duration `mapstructure:"min_prefeed_lead"`
	StartupLatency        time.Duration `mapstructure:"startup_latency"`
	SchedulingBuffer      time.Duration `mapstructure:"scheduling_buffer"`
	TeardownGrace         time.Duration `mapstructure:"teardown_grace"`
	MaxStartupConvergence time.Duration `mapstructure:"max_startup_convergence"`
	TickHz                int           `mapstructure:"tick_hz"`
	Demo                  bool          `mapstructure:"demo"`
}

// RouterConfig holds fan-out router configuration.
type RouterConfig struct {
	// QueueDepth is the bounded per-viewer queue capacity in chunks.
	QueueDepth int `mapstructure:"queue_depth"`
	// ChunkBytes is the preferred upstream read size. Producers emit whole
	// TS packets, so actual chunks are the largest 188-byte multiple that fits.
	ChunkBytes int `mapstructure:"chunk_bytes"`
}

// PlansConfig holds plan activation configuration.
type PlansConfig struct {
	// SyncInterval is how often plan cron windows are re-evaluated.
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with AIRWAVE_ and use underscores for
// nesting. Example: AIRWAVE_PLAYOUT_MIN_PREFEED_LEAD=5s.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/airwave")
		v.AddConfigPath("$HOME/.airwave")
	}

	v.SetEnvPrefix("AIRWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

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
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", time.Duration(0)) // streaming responses must not time out
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "airwave.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Playout defaults
	v.SetDefault("playout.min_prefeed_lead", defaultMinPrefeedLead)
	v.SetDefault("playout.startup_latency", defaultStartupLatency)
	v.SetDefault("playout.scheduling_buffer", defaultSchedulingBuffer)
	v.SetDefault("playout.teardown_grace", defaultTeardownGrace)
	v.SetDefault("playout.max_startup_convergence", defaultConvergenceWindow)
	v.SetDefault("playout.tick_hz", defaultTickHz)
	v.SetDefault("playout.demo", false)

	// Router defaults
	v.SetDefault("router.queue_depth", defaultQueueDepth)
	v.SetDefault("router.chunk_bytes", defaultChunkBytes)

	// Plans defaults
	v.SetDefault("plans.sync_interval", defaultPlanSyncInterval)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Playout.MinPrefeedLead < minimumPrefeedLead {
		return fmt.Errorf("playout.min_prefeed_lead must be at least %s", minimumPrefeedLead)
	}
	if c.Playout.StartupLatency <= 0 {
		return fmt.Errorf("playout.startup_latency must be positive")
	}
	if c.Playout.SchedulingBuffer < 0 {
		return fmt.Errorf("playout.scheduling_buffer must not be negative")
	}
	if c.Playout.TeardownGrace <= 0 {
		return fmt.Errorf("playout.teardown_grace must be positive")
	}
	if c.Playout.MaxStartupConvergence <= 0 {
		return fmt.Errorf("playout.max_startup_convergence must be positive")
	}
	if c.Playout.TickHz < 1 {
		return fmt.Errorf("playout.tick_hz must be at least 1")
	}

	if c.Router.QueueDepth < 1 {
		return fmt.Errorf("router.queue_depth must be at least 1")
	}
	if c.Router.ChunkBytes < 188 {
		return fmt.Errorf("router.chunk_bytes must hold at least one TS packet (188 bytes)")
	}

	if c.Plans.SyncInterval <= 0 {
		return fmt.Errorf("plans.sync_interval must be positive")
	}

	return nil
}

// Warnings returns non-fatal configuration concerns for the caller to log.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Playout.MinPrefeedLead > prefeedLeadWarnThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"playout.min_prefeed_lead is %s; values above %s delay every switch decision",
			c.Playout.MinPrefeedLead, prefeedLeadWarnThreshold))
	}
	return warnings
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PreloadLead is the time before a boundary at which the preview load is
// triggered: the minimum prefeed lead plus the scheduling buffer.
func (c *PlayoutConfig) PreloadLead() time.Duration {
	return c.MinPrefeedLead + c.SchedulingBuffer
}

// TickInterval converts TickHz into the tick driver's period.
func (c *PlayoutConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickHz)
}
