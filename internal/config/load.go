package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TASKQ"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("queue.backend", QueueBackendMemory)
	v.SetDefault("queue.visibility_timeout", 30*time.Second)
	v.SetDefault("queue.max_receive_count", 3)
	v.SetDefault("queue.dedup_window", 5*time.Minute)
	v.SetDefault("queue.wait_time", 10*time.Second)
	v.SetDefault("queue.ordering_key", "task-processing")

	v.SetDefault("consumer.enabled", true)
	v.SetDefault("consumer.workers", 1)
	v.SetDefault("consumer.retry_base_delay", time.Duration(0))
	v.SetDefault("consumer.retry_max_delay", 30*time.Second)
	v.SetDefault("consumer.stats_interval", time.Minute)

	v.SetDefault("idempotency.backend", StoreBackendMemory)
	v.SetDefault("idempotency.completed_ttl", 7*24*time.Hour)

	v.SetDefault("dedup.backend", StoreBackendMemory)

	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.queue_url", "")
	v.SetDefault("aws.dlq_url", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
}

// Validate checks field constraints and the settings each selected backend
// depends on.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(backendDependencies, Config{})

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func backendDependencies(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	if cfg.Queue.Backend == QueueBackendSQS && cfg.AWS.QueueURL == "" {
		sl.ReportError(cfg.AWS.QueueURL, "AWS.QueueURL", "queue_url", "required_for_sqs", "")
	}

	needsRedis := cfg.Idempotency.Backend == StoreBackendRedis || cfg.Dedup.Backend == StoreBackendRedis
	if needsRedis && cfg.Redis.URL == "" {
		sl.ReportError(cfg.Redis.URL, "Redis.URL", "url", "required_for_redis", "")
	}

	if cfg.Idempotency.Backend == StoreBackendPostgres && cfg.Database.URL == "" {
		sl.ReportError(cfg.Database.URL, "Database.URL", "url", "required_for_postgres", "")
	}

	if cfg.Consumer.RetryBaseDelay > 0 && cfg.Consumer.RetryMaxDelay < cfg.Consumer.RetryBaseDelay {
		sl.ReportError(cfg.Consumer.RetryMaxDelay, "Consumer.RetryMaxDelay", "retry_max_delay", "gtefield", "RetryBaseDelay")
	}
}
