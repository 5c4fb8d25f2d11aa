package api

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"go.temporal.io/sdk/client"
	"gopkg.in/yaml.v3"
)

// Config carries the settings shared by the API, the worker and the audit job.
// Values come from defaults, then the optional YAML file named by CONFIG_FILE,
// then environment variables.
type Config struct {
	Port         string `yaml:"port" env:"PORT"`
	Environment  string `yaml:"environment" env:"ENVIRONMENT"`
	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `yaml:"otlp_insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`

	PostgresDSN      string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	PostgresMaxConns int    `yaml:"postgres_max_conns" env:"POSTGRES_MAX_CONNS"`
	SlowQueryMillis  int    `yaml:"slow_query_millis" env:"POSTGRES_SLOW_QUERY_MS"`

	RedisURL        string `yaml:"redis_url" env:"REDIS_URL"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds" env:"LOCK_TTL_SECONDS"`
	LockWaitSeconds int    `yaml:"lock_wait_seconds" env:"LOCK_WAIT_SECONDS"`

	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `yaml:"kafka_topic_order_events" env:"KAFKA_TOPIC_ORDER_EVENTS"`

	TemporalAddress   string `yaml:"temporal_address" env:"TEMPORAL_ADDRESS"`
	TemporalNamespace string `yaml:"temporal_namespace" env:"TEMPORAL_NAMESPACE"`
	TemporalDisabled  bool   `yaml:"temporal_disabled" env:"TEMPORAL_DISABLED"`

	BulkConcurrency     int  `yaml:"bulk_concurrency" env:"BULK_CONCURRENCY"`
	BulkMaxItems        int  `yaml:"bulk_max_items" env:"BULK_MAX_ITEMS"`
	RefundCumulativeCap bool `yaml:"refund_cumulative_cap" env:"REFUND_CUMULATIVE_CAP"`

	ActorJWTSecret string `yaml:"actor_jwt_secret" env:"ACTOR_JWT_SECRET"`

	AuditBatchSize int `yaml:"audit_batch_size" env:"AUDIT_BATCH_SIZE"`
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Port:              "8080",
		Environment:       "local",
		LogLevel:          "info",
		OTLPInsecure:      true,
		PostgresMaxConns:  10,
		LockTTLSeconds:    30,
		LockWaitSeconds:   5,
		KafkaTopic:        "orders.lifecycle",
		TemporalAddress:   client.DefaultHostPort,
		TemporalNamespace: client.DefaultNamespace,
		BulkConcurrency:   8,
		BulkMaxItems:      1000,
		AuditBatchSize:    0,
	}
}

// LoadConfig reads CONFIG_FILE (if set) and the environment, then validates the result.
func LoadConfig() (Config, error) {
	return LoadConfigFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
}

// LoadConfigFile is LoadConfig with an explicit YAML path. An empty path skips the file.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Port = strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	brokers := c.KafkaBrokers[:0]
	for _, broker := range c.KafkaBrokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	c.KafkaBrokers = brokers
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a TCP port, got %q", c.Port))
	}
	if c.LockTTLSeconds <= 0 {
		errs = append(errs, errors.New("LOCK_TTL_SECONDS must be positive"))
	}
	if c.LockWaitSeconds < 0 {
		errs = append(errs, errors.New("LOCK_WAIT_SECONDS must not be negative"))
	}
	if c.BulkConcurrency <= 0 {
		errs = append(errs, errors.New("BULK_CONCURRENCY must be positive"))
	}
	if c.BulkMaxItems < 0 {
		errs = append(errs, errors.New("BULK_MAX_ITEMS must not be negative"))
	}
	if c.PostgresMaxConns < 0 {
		errs = append(errs, errors.New("POSTGRES_MAX_CONNS must not be negative"))
	}
	if c.AuditBatchSize < 0 {
		errs = append(errs, errors.New("AUDIT_BATCH_SIZE must not be negative"))
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC_ORDER_EVENTS is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

func (c Config) LockWait() time.Duration {
	return time.Duration(c.LockWaitSeconds) * time.Second
}

func (c Config) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryMillis) * time.Millisecond
}
