// Package config provides configuration structures and validation for the reconciliation
// services. Settings come from an env file and the process environment and cover the HTTP
// server, storage, messaging, the OCR provider and the matching engine's operational knobs.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field is one subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	RateLimit   RateLimitConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Matching    MatchingConfig
	Slip        SlipConfig
	OCR         OCRConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// RateLimitConfig bounds inbound HTTP traffic on the gateway
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	SlipTopic         string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// MatchingConfig holds the operational parameters of slip matching and aging.
type MatchingConfig struct {
	WindowDays           int // Days before/after a due date treated as on time
	MaxBindRetries       int // Bind attempts before a lost race is reported
	DefaultThresholdDays int // Days overdue after which a contract is DEFAULTED
}

// SlipConfig bounds accepted slip image payloads
type SlipConfig struct {
	AcceptedMimeTypes []string
	MinBytes          int
	MaxBytes          int
}

// OCRConfig configures the external OCR provider client
type OCRConfig struct {
	URL           string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	BackoffBase   time.Duration
	RatePerSecond float64
	RateBurst     int
	CacheTTL      time.Duration
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_RPS must be greater than 0")
	}
	if c.RateLimit.Burst <= 0 {
		validationErrors = append(validationErrors, "RATE_LIMIT_BURST must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.SlipTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SLIP_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Matching config
	if c.Matching.WindowDays < 0 {
		validationErrors = append(validationErrors, "MATCH_WINDOW_DAYS must not be negative")
	}
	if c.Matching.MaxBindRetries <= 0 {
		validationErrors = append(validationErrors, "MATCH_MAX_BIND_RETRIES must be greater than 0")
	}
	if c.Matching.DefaultThresholdDays <= 0 {
		validationErrors = append(validationErrors, "AGING_DEFAULT_THRESHOLD_DAYS must be greater than 0")
	}

	// Validate Slip config
	if len(c.Slip.AcceptedMimeTypes) == 0 {
		validationErrors = append(validationErrors, "SLIP_ACCEPTED_MIME_TYPES is required")
	}
	if c.Slip.MinBytes <= 0 {
		validationErrors = append(validationErrors, "SLIP_MIN_BYTES must be greater than 0")
	}
	if c.Slip.MaxBytes <= c.Slip.MinBytes {
		validationErrors = append(validationErrors, "SLIP_MAX_BYTES must be greater than SLIP_MIN_BYTES")
	}

	// Validate OCR config
	if c.OCR.URL == "" {
		validationErrors = append(validationErrors, "OCR_PROVIDER_URL is required")
	}
	if c.OCR.Timeout <= 0 {
		validationErrors = append(validationErrors, "OCR_TIMEOUT must be greater than 0")
	}
	if c.OCR.MaxRetries < 0 {
		validationErrors = append(validationErrors, "OCR_MAX_RETRIES must not be negative")
	}
	if c.OCR.BackoffBase <= 0 {
		validationErrors = append(validationErrors, "OCR_BACKOFF_BASE must be greater than 0")
	}
	if c.OCR.RatePerSecond <= 0 {
		validationErrors = append(validationErrors, "OCR_RATE_PER_SECOND must be greater than 0")
	}
	if c.OCR.RateBurst <= 0 {
		validationErrors = append(validationErrors, "OCR_RATE_BURST must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
