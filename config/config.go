package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/streampulse/job-service/internal/jobqueue"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// QueueConfig holds job queue tunables
type QueueConfig struct {
	Lease              time.Duration `mapstructure:"lease"`
	LeaseSweepInterval time.Duration `mapstructure:"lease_sweep_interval"`
	SweepBatch         int           `mapstructure:"sweep_batch"`
}

// RetryConfig holds the per-family backoff policies
type RetryConfig struct {
	Upload          FamilyRetryConfig `mapstructure:"upload"`
	Webhook         FamilyRetryConfig `mapstructure:"webhook"`
	StreamReconnect FamilyRetryConfig `mapstructure:"stream_reconnect"`
	Sync            FamilyRetryConfig `mapstructure:"sync"`
	Notification    FamilyRetryConfig `mapstructure:"notification"`
}

// FamilyRetryConfig mirrors jobqueue.RetryConfig for one job-type family
type FamilyRetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

// WorkersConfig holds worker pool configuration
type WorkersConfig struct {
	NumWorkers int           `mapstructure:"num_workers"`
	PollDelay  time.Duration `mapstructure:"poll_delay"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// AlertsConfig holds DLQ alert sweeper configuration
type AlertsConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SweepBatch    int           `mapstructure:"sweep_batch"`
}

// StorageConfig holds upload artifact storage configuration
type StorageConfig struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"base_path"`
}

// RateLimitConfig holds rate limiting configuration for the internal API
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(v); err != nil {
		// .env is optional, log but don't fail
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("JOB_SERVICE")

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// RetryConfigs converts the per-family settings into the queue's policy
// configs, keyed by family name.
func (c *Config) RetryConfigs() map[string]jobqueue.RetryConfig {
	families := map[string]FamilyRetryConfig{
		jobqueue.FamilyUpload:          c.Retry.Upload,
		jobqueue.FamilyWebhook:         c.Retry.Webhook,
		jobqueue.FamilyStreamReconnect: c.Retry.StreamReconnect,
		jobqueue.FamilySync:            c.Retry.Sync,
		jobqueue.FamilyNotification:    c.Retry.Notification,
	}
	out := make(map[string]jobqueue.RetryConfig, len(families))
	for family, fc := range families {
		out[family] = jobqueue.RetryConfig{
			MaxAttempts:  fc.MaxAttempts,
			InitialDelay: fc.InitialDelay,
			MaxDelay:     fc.MaxDelay,
			Multiplier:   fc.Multiplier,
		}
	}
	return out
}

// loadEnvFile attempts to locate and load a .env file
func loadEnvFile(v *viper.Viper) error {
	for _, path := range []string{".", ".."} {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			value = strings.Trim(value, "\"'")
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")

	// Storage
	v.BindEnv("storage.base_path", "STORAGE_PATH")

	// Telemetry
	v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Queue defaults
	v.SetDefault("queue.lease", 10*time.Minute)
	v.SetDefault("queue.lease_sweep_interval", 1*time.Minute)
	v.SetDefault("queue.sweep_batch", 100)

	// Retry defaults, one policy per job-type family
	v.SetDefault("retry.upload.max_attempts", 3)
	v.SetDefault("retry.upload.initial_delay", 5*time.Second)
	v.SetDefault("retry.upload.max_delay", 60*time.Second)
	v.SetDefault("retry.upload.multiplier", 2.0)

	v.SetDefault("retry.webhook.max_attempts", 5)
	v.SetDefault("retry.webhook.initial_delay", 60*time.Second)
	v.SetDefault("retry.webhook.max_delay", 3600*time.Second)
	v.SetDefault("retry.webhook.multiplier", 2.0)

	v.SetDefault("retry.stream_reconnect.max_attempts", 5)
	v.SetDefault("retry.stream_reconnect.initial_delay", 2*time.Second)
	v.SetDefault("retry.stream_reconnect.max_delay", 30*time.Second)
	v.SetDefault("retry.stream_reconnect.multiplier", 1.5)

	v.SetDefault("retry.sync.max_attempts", 3)
	v.SetDefault("retry.sync.initial_delay", 30*time.Second)
	v.SetDefault("retry.sync.max_delay", 600*time.Second)
	v.SetDefault("retry.sync.multiplier", 2.0)

	v.SetDefault("retry.notification.max_attempts", 3)
	v.SetDefault("retry.notification.initial_delay", 10*time.Second)
	v.SetDefault("retry.notification.max_delay", 300*time.Second)
	v.SetDefault("retry.notification.multiplier", 2.0)

	// Worker defaults
	v.SetDefault("workers.num_workers", 4)
	v.SetDefault("workers.poll_delay", 2*time.Second)
	v.SetDefault("workers.job_timeout", 5*time.Minute)

	// Alert sweeper defaults
	v.SetDefault("alerts.sweep_interval", 1*time.Minute)
	v.SetDefault("alerts.sweep_batch", 100)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data/uploads")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst_size", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "job-service")
	v.SetDefault("telemetry.environment", "production")
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
