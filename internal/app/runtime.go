package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// runtimeDependencies - хранилища, выбранные конфигурацией.
type runtimeDependencies struct {
	catalogRepo    domain.CatalogRepository
	sessionRepo    domain.SessionRepository
	outboxRepo     domain.OutboxRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		catalogRepo, err := memory.NewCatalogRepository(catalog.Default())
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("seed catalog: %w", err)
		}
		logger.Info("используем in-memory хранилище")
		return runtimeDependencies{
			catalogRepo: catalogRepo,
			sessionRepo: memory.NewSessionRepository(),
			outboxRepo:  memory.NewOutboxRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return runtimeDependencies{}, errors.New("postgres storage requires dsn")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, err
		}
		items, err := store.Prepare(ctx, cfg.PostgresAutoMigrate)
		if err != nil {
			_ = store.Close()
			return runtimeDependencies{}, err
		}

		logger.WithField("catalog_items", items).Info("используем postgres хранилище")
		return runtimeDependencies{
			catalogRepo:    postgres.NewCatalogRepository(store),
			sessionRepo:    postgres.NewSessionRepository(store),
			outboxRepo:     postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewChecker("postgres", store.Ping),
			closeFn:        store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// brokerDependencies - публикаторы outbox для выбранного брокера.
type brokerDependencies struct {
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	closeFn   func() error
}

// initBroker подключает брокер. Ошибка подключения не фатальна: события
// копятся в outbox, а сервис работает без публикации.
func initBroker(cfg Config, logger *log.Entry) brokerDependencies {
	switch cfg.BrokerDriver {
	case BrokerDriverKafka:
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without broker")
			return brokerDependencies{}
		}
		logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		return brokerDependencies{
			publisher: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			dlq:       kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic),
			closeFn:   producer.Close,
		}

	case BrokerDriverRabbitMQ:
		publisher, err := rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to rabbitmq, continuing without broker")
			return brokerDependencies{}
		}
		logger.WithField("queue", cfg.RabbitMQQueue).Info("rabbitmq publisher initialized")
		return brokerDependencies{publisher: publisher, closeFn: publisher.Close}

	default:
		return brokerDependencies{}
	}
}

func closeWith(name string, closeFn func() error, logger *log.Entry) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.WithError(err).Warnf("failed to close %s", name)
		return
	}
	logger.Infof("%s closed", name)
}
