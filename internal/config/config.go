package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Queue       QueueConfig       `mapstructure:"queue"       validate:"required"`
	Consumer    ConsumerConfig    `mapstructure:"consumer"    validate:"required"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency" validate:"required"`
	Dedup       DedupConfig       `mapstructure:"dedup"       validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	AWS         AWSConfig         `mapstructure:"aws"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0s"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"   validate:"gt=0"`
}

// Queue backends
const (
	QueueBackendMemory = "memory"
	QueueBackendSQS    = "sqs"
)

// QueueConfig configures the ordered queue.
type QueueConfig struct {
	Backend           string        `mapstructure:"backend"            validate:"required,oneof=memory sqs"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" validate:"gt=0s"`
	MaxReceiveCount   int           `mapstructure:"max_receive_count"  validate:"gte=1"`
	DedupWindow       time.Duration `mapstructure:"dedup_window"       validate:"gt=0s"`
	WaitTime          time.Duration `mapstructure:"wait_time"          validate:"gte=0s,lte=20s"`
	OrderingKey       string        `mapstructure:"ordering_key"       validate:"required,max=128"`
}

// ConsumerConfig configures the in-process task runner.
type ConsumerConfig struct {
	// Enabled runs the consumer alongside the HTTP server
	Enabled        bool          `mapstructure:"enabled"`
	Workers        int           `mapstructure:"workers"          validate:"gte=1"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gte=0s"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"  validate:"gte=0s"`
	StatsInterval  time.Duration `mapstructure:"stats_interval"   validate:"gte=0s"`
}

// Idempotency and dedup backends
const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

// IdempotencyConfig selects the idempotency store.
type IdempotencyConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis postgres"`

	// CompletedTTL is how long completed records are retained. Zero keeps
	// them forever.
	CompletedTTL time.Duration `mapstructure:"completed_ttl" validate:"gte=0s"`
}

// DedupConfig selects the producer-side dedup index.
type DedupConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// RedisConfig contains the Redis connection settings.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AWSConfig contains the settings for the SQS backend.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	QueueURL        string `mapstructure:"queue_url"         validate:"omitempty,url"`
	DLQURL          string `mapstructure:"dlq_url"           validate:"omitempty,url"`
	Endpoint        string `mapstructure:"endpoint"          validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}
