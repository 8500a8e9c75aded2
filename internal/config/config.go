package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const redacted = "xxxxx"

// Config holds all configuration for the consumer
type Config struct {
	NESO      NESOConfig      `mapstructure:"neso" yaml:"neso"`
	Model     ModelConfig     `mapstructure:"model" yaml:"model"`
	Forecast  ForecastConfig  `mapstructure:"forecast" yaml:"forecast"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Events    EventsConfig    `mapstructure:"events" yaml:"events"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type NESOConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	ResourceID string        `mapstructure:"resource_id" yaml:"resource_id" validate:"required_without=SQLQuery"`
	Limit      int           `mapstructure:"limit" yaml:"limit" validate:"min=1"`
	SQLQuery   string        `mapstructure:"sql_query" yaml:"sql_query"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Breaker    BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures" yaml:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
}

type ModelConfig struct {
	Name    string `mapstructure:"name" yaml:"name" validate:"required"`
	Version string `mapstructure:"version" yaml:"version" validate:"required"`
}

type ForecastConfig struct {
	LocationMode        string `mapstructure:"location_mode" yaml:"location_mode" validate:"oneof=national per_gsp"`
	DefaultGSPID        int    `mapstructure:"default_gsp_id" yaml:"default_gsp_id" validate:"min=0"`
	SaveToLastSevenDays bool   `mapstructure:"save_to_last_seven_days" yaml:"save_to_last_seven_days"`
}

type DatabaseConfig struct {
	URL               string `mapstructure:"url" yaml:"url"`
	Host              string `mapstructure:"host" yaml:"host" validate:"required_without=URL"`
	Port              int    `mapstructure:"port" yaml:"port"`
	Name              string `mapstructure:"name" yaml:"name"`
	User              string `mapstructure:"user" yaml:"user"`
	Password          string `mapstructure:"password" yaml:"password"`
	SSLMode           string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxConnections    int    `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`
	ConnectionTimeout int    `mapstructure:"connection_timeout" yaml:"connection_timeout"`
	CatalogCacheSize  int    `mapstructure:"catalog_cache_size" yaml:"catalog_cache_size" validate:"min=1"`
}

type SchedulerConfig struct {
	Cron       string        `mapstructure:"cron" yaml:"cron"`
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout" validate:"gt=0"`
}

type EventsConfig struct {
	Backend      string   `mapstructure:"backend" yaml:"backend" validate:"oneof=none redis kafka"`
	RedisURL     string   `mapstructure:"redis_url" yaml:"redis_url" validate:"required_if=Backend redis"`
	RedisChannel string   `mapstructure:"redis_channel" yaml:"redis_channel"`
	KafkaBrokers []string `mapstructure:"kafka_brokers" yaml:"kafka_brokers" validate:"required_if=Backend kafka"`
	KafkaTopic   string   `mapstructure:"kafka_topic" yaml:"kafka_topic"`
}

type MetricsConfig struct {
	ListenAddr   string `mapstructure:"listen_addr" yaml:"listen_addr"`
	TextfilePath string `mapstructure:"textfile_path" yaml:"textfile_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// ConnectionString returns the lib/pq connection string. An explicit URL
// wins over the individual fields.
func (d DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.ConnectionTimeout)
}

// Timeout is the connection timeout as a duration.
func (d DatabaseConfig) Timeout() time.Duration {
	return time.Duration(d.ConnectionTimeout) * time.Second
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// YAML renders the effective configuration with secrets redacted.
func (c *Config) YAML() (string, error) {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = redacted
	}
	if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
		out.Database.URL = u.Redacted()
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("neso.base_url", "https://api.neso.energy")
	v.SetDefault("neso.resource_id", "db6c038f-98af-4570-ab60-24d71ebd0ae5")
	v.SetDefault("neso.limit", 100)
	v.SetDefault("neso.sql_query", "")
	v.SetDefault("neso.timeout", "30s")
	v.SetDefault("neso.breaker.max_failures", 5)
	v.SetDefault("neso.breaker.open_timeout", "5m")

	v.SetDefault("model.name", "neso-solar-forecast")
	v.SetDefault("model.version", "0.1.0")

	v.SetDefault("forecast.location_mode", "national")
	v.SetDefault("forecast.default_gsp_id", 0)
	v.SetDefault("forecast.save_to_last_seven_days", false)

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.connection_timeout", 5)
	v.SetDefault("database.catalog_cache_size", 128)

	v.SetDefault("scheduler.cron", "*/30 * * * *")
	v.SetDefault("scheduler.run_timeout", "5m")

	v.SetDefault("events.backend", "none")
	v.SetDefault("events.redis_url", "")
	v.SetDefault("events.redis_channel", "neso.forecast.saved")
	v.SetDefault("events.kafka_brokers", []string{})
	v.SetDefault("events.kafka_topic", "neso.forecast.saved")

	v.SetDefault("metrics.listen_addr", ":9090")
	v.SetDefault("metrics.textfile_path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
