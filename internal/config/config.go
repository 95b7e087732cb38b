package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Host            string        `mapstructure:"host"`
	MetricsPort     int           `mapstructure:"metrics_port" validate:"min=1,max=65535,nefield=Port"`
	CronSecret      string        `mapstructure:"cron_secret"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" validate:"min=1"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	// URL overrides the individual connection fields when set
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host" validate:"required_without=URL"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password" validate:"required_without=URL"`
	Name     string `mapstructure:"name" validate:"required_without=URL"`
	SSLMode  string `mapstructure:"ssl_mode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `mapstructure:"max_conns" validate:"min=1"`
	MinConns int32  `mapstructure:"min_conns" validate:"min=0,ltefield=MaxConns"`
}

// RedisConfig holds the lock store; an empty URL keeps locks in process memory
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// QueueConfig holds the charge pipeline transport
type QueueConfig struct {
	Backend       string   `mapstructure:"backend" validate:"oneof=memory kafka"`
	Brokers       []string `mapstructure:"brokers" validate:"required_if=Backend kafka"`
	ConsumerGroup string   `mapstructure:"consumer_group" validate:"required"`
	Topic         string   `mapstructure:"topic" validate:"required"`
	PoisonTopic   string   `mapstructure:"poison_topic" validate:"required,nefield=Topic"`
	Attempts      int      `mapstructure:"attempts" validate:"min=1,max=10"`
}

// BillingConfig holds the charge job schedule and sizing
type BillingConfig struct {
	SchedulerEnabled bool          `mapstructure:"scheduler_enabled"`
	Schedule         string        `mapstructure:"schedule" validate:"required"`
	PageSize         int           `mapstructure:"page_size" validate:"min=1,max=1000"`
	RunTimeout       time.Duration `mapstructure:"run_timeout" validate:"gt=0"`
	LeaseTTL         time.Duration `mapstructure:"lease_ttl" validate:"gtefield=RunTimeout"`
	LockTTL          time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
}

// StripeConfig holds the payment gateway credentials; the charge worker is off without a key
type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// envBindings maps config keys to the environment variables that set them
var envBindings = map[string]string{
	"server.port":               "SERVER_PORT",
	"server.host":               "SERVER_HOST",
	"server.metrics_port":       "METRICS_PORT",
	"server.cron_secret":        "CRON_SECRET",
	"server.shutdown_timeout":   "SHUTDOWN_TIMEOUT",
	"server.rate_limit_rps":     "RATE_LIMIT_RPS",
	"server.rate_limit_burst":   "RATE_LIMIT_BURST",
	"database.url":              "DATABASE_URL",
	"database.host":             "DB_HOST",
	"database.port":             "DB_PORT",
	"database.user":             "DB_USER",
	"database.password":         "DB_PASSWORD",
	"database.name":             "DB_NAME",
	"database.ssl_mode":         "DB_SSL_MODE",
	"database.max_conns":        "DB_MAX_CONNS",
	"database.min_conns":        "DB_MIN_CONNS",
	"redis.url":                 "REDIS_URL",
	"queue.backend":             "QUEUE_BACKEND",
	"queue.brokers":             "KAFKA_BROKERS",
	"queue.consumer_group":      "KAFKA_CONSUMER_GROUP",
	"queue.topic":               "QUEUE_TOPIC",
	"queue.poison_topic":        "QUEUE_POISON_TOPIC",
	"queue.attempts":            "QUEUE_ATTEMPTS",
	"billing.scheduler_enabled": "BILLING_SCHEDULER_ENABLED",
	"billing.schedule":          "BILLING_SCHEDULE",
	"billing.page_size":         "BILLING_PAGE_SIZE",
	"billing.run_timeout":       "BILLING_RUN_TIMEOUT",
	"billing.lease_ttl":         "BILLING_LEASE_TTL",
	"billing.lock_ttl":          "BILLING_LOCK_TTL",
	"stripe.secret_key":         "STRIPE_SECRET_KEY",
	"logger.level":              "LOG_LEVEL",
	"logger.development":        "LOG_DEVELOPMENT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit_rps", 1.0)
	v.SetDefault("server.rate_limit_burst", 5)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "billing_service")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)

	v.SetDefault("queue.backend", "memory")
	v.SetDefault("queue.consumer_group", "billing-service")
	v.SetDefault("queue.topic", "charge-active-subscription")
	v.SetDefault("queue.poison_topic", "charge-active-subscription-poison")
	v.SetDefault("queue.attempts", 3)

	v.SetDefault("billing.scheduler_enabled", true)
	v.SetDefault("billing.schedule", "0 0 6 * * *")
	v.SetDefault("billing.page_size", 50)
	v.SetDefault("billing.run_timeout", 10*time.Minute)
	v.SetDefault("billing.lease_ttl", 15*time.Minute)
	v.SetDefault("billing.lock_ttl", 30*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.development", false)
}

// Load reads .env, an optional config.yaml from configPaths (or the working
// directory), then the environment, and validates the result
func Load(configPaths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(configPaths) == 0 {
		configPaths = []string{".", "./config"}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Queue.Brokers = splitList(cfg.Queue.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// splitList accepts both YAML lists and comma separated env values
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
