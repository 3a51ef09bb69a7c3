package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/rabbitmq"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	BrokerDriverNone     = "none"
	BrokerDriverKafka    = "kafka"
	BrokerDriverRabbitMQ = "rabbitmq"
)

// EnvPrefix - префикс переменных окружения сервиса.
const EnvPrefix = "STOREFRONT_"

// Config описывает настройки запуска витрины.
type Config struct {
	GRPCAddr    string
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	BrokerDriver  string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaDLQTopic string
	RabbitMQURL   string
	RabbitMQQueue string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	OutboxRetention    time.Duration

	SessionTTL              time.Duration
	SessionCleanupInterval  time.Duration
	SessionCleanupBatchSize int
	MaxCartLines            int
	ShutdownTimeout         time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		BrokerDriver:  BrokerDriverNone,
		KafkaTopic:    kafka.TopicStorefrontEvents,
		KafkaDLQTopic: kafka.TopicDeadLetterQueue,
		RabbitMQQueue: rabbitmq.DefaultQueue,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   100 * time.Millisecond,
		OutboxRetention:    24 * time.Hour,

		SessionTTL:              30 * time.Minute,
		SessionCleanupInterval:  time.Minute,
		SessionCleanupBatchSize: 500,
		ShutdownTimeout:         5 * time.Second,
	}
}

// LoadConfig накладывает переменные STOREFRONT_* поверх DefaultConfig.
// getenv обычно os.Getenv; в тестах - map-lookup.
func LoadConfig(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	env := func(name string) string {
		return strings.TrimSpace(getenv(EnvPrefix + name))
	}

	setString(&cfg.GRPCAddr, env("GRPC_ADDR"))
	setString(&cfg.HTTPAddr, env("HTTP_ADDR"))
	setString(&cfg.MetricsAddr, env("METRICS_ADDR"))
	setString(&cfg.StorageDriver, strings.ToLower(env("STORAGE_DRIVER")))
	setString(&cfg.PostgresDSN, env("POSTGRES_DSN"))
	setString(&cfg.BrokerDriver, strings.ToLower(env("BROKER_DRIVER")))
	setString(&cfg.KafkaTopic, env("KAFKA_TOPIC"))
	setString(&cfg.KafkaDLQTopic, env("KAFKA_DLQ_TOPIC"))
	setString(&cfg.RabbitMQURL, env("RABBITMQ_URL"))
	setString(&cfg.RabbitMQQueue, env("RABBITMQ_QUEUE"))

	if raw := env("KAFKA_BROKERS"); raw != "" {
		cfg.KafkaBrokers = splitList(raw)
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(setBool(&cfg.PostgresAutoMigrate, "POSTGRES_AUTO_MIGRATE", env("POSTGRES_AUTO_MIGRATE")))
	collect(setDuration(&cfg.OutboxPollInterval, "OUTBOX_POLL_INTERVAL", env("OUTBOX_POLL_INTERVAL")))
	collect(setInt(&cfg.OutboxBatchSize, "OUTBOX_BATCH_SIZE", env("OUTBOX_BATCH_SIZE")))
	collect(setInt(&cfg.OutboxMaxAttempts, "OUTBOX_MAX_ATTEMPTS", env("OUTBOX_MAX_ATTEMPTS")))
	collect(setDuration(&cfg.OutboxRetryDelay, "OUTBOX_RETRY_DELAY", env("OUTBOX_RETRY_DELAY")))
	collect(setDuration(&cfg.OutboxRetention, "OUTBOX_RETENTION", env("OUTBOX_RETENTION")))
	collect(setDuration(&cfg.SessionTTL, "SESSION_TTL", env("SESSION_TTL")))
	collect(setDuration(&cfg.SessionCleanupInterval, "SESSION_CLEANUP_INTERVAL", env("SESSION_CLEANUP_INTERVAL")))
	collect(setInt(&cfg.SessionCleanupBatchSize, "SESSION_CLEANUP_BATCH_SIZE", env("SESSION_CLEANUP_BATCH_SIZE")))
	collect(setInt(&cfg.MaxCartLines, "MAX_CART_LINES", env("MAX_CART_LINES")))
	collect(setDuration(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", env("SHUTDOWN_TIMEOUT")))

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность драйверов и их параметров.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres storage requires " + EnvPrefix + "POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	switch c.BrokerDriver {
	case BrokerDriverNone:
	case BrokerDriverKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("kafka broker requires " + EnvPrefix + "KAFKA_BROKERS")
		}
	case BrokerDriverRabbitMQ:
		if strings.TrimSpace(c.RabbitMQURL) == "" {
			return errors.New("rabbitmq broker requires " + EnvPrefix + "RABBITMQ_URL")
		}
	default:
		return fmt.Errorf("unsupported broker driver %q", c.BrokerDriver)
	}

	if c.MaxCartLines < 0 {
		return errors.New("max cart lines must be >= 0")
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setInt(dst *int, name, value string) error {
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, name, value string) error {
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
