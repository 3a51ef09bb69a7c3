// Package rabbitmq публикует outbox-сообщения витрины в очередь RabbitMQ.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging"
)

// DefaultQueue - очередь событий витрины по умолчанию.
const DefaultQueue = "storefront.session.events"

const publishTimeout = 5 * time.Second

var errPublisherNotInitialized = errors.New("rabbitmq publisher is not initialized")

// Channel - подмножество *amqp.Channel, которое нужно паблишеру.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Opener открывает соединение и канал. Closer закрывает соединение целиком.
type Opener func() (Channel, io.Closer, error)

// Publisher реализует domain.OutboxPublisher поверх AMQP-канала.
type Publisher struct {
	mu      sync.Mutex
	conn    io.Closer
	channel Channel
	open    Opener
	queue   string
	logger  *log.Entry
}

// Dial подключается к брокеру, открывает канал и объявляет durable-очередь.
// После разрыва соединения публикация переподключается по тому же url.
func Dial(url, queue string) (*Publisher, error) {
	return Connect(func() (Channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
		}
		return ch, conn, nil
	}, queue)
}

// Connect открывает канал через open и запоминает open для переподключения.
func Connect(open Opener, queue string) (*Publisher, error) {
	if open == nil {
		return nil, errors.New("rabbitmq opener is nil")
	}
	ch, conn, err := open()
	if err != nil {
		return nil, err
	}

	p, err := NewPublisher(ch, queue)
	if err != nil {
		closeQuietly(ch, conn)
		return nil, err
	}
	p.conn = conn
	p.open = open
	return p, nil
}

// NewPublisher объявляет очередь на готовом канале.
func NewPublisher(ch Channel, queue string) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("rabbitmq channel is nil")
	}
	if queue == "" {
		queue = DefaultQueue
	}

	if err := declareQueue(ch, queue); err != nil {
		return nil, err
	}

	return &Publisher{
		channel: ch,
		queue:   queue,
		logger:  log.WithField("component", "rabbitmq-publisher"),
	}, nil
}

// Publish отправляет сообщение в очередь через default exchange.
// Если канал или соединение закрыты, публикатор один раз переоткрывает их
// и повторяет отправку.
func (p *Publisher) Publish(event domain.OutboxMessage) error {
	if p == nil {
		return errPublisherNotInitialized
	}

	body, err := messaging.Marshal(messaging.NewEnvelope(event, time.Now()))
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.EventType,
		Timestamp:    event.CreatedAt,
		Headers: amqp.Table{
			"aggregate_type": event.AggregateType,
			"aggregate_id":   messaging.Key(event),
		},
		Body: body,
	}
	fields := log.Fields{"queue": p.queue, "message_id": event.ID}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return errPublisherNotInitialized
	}

	err = p.publishLocked(msg)
	if err != nil && p.open != nil && isConnectionError(err) {
		p.logger.WithError(err).WithFields(fields).Warn("rabbitmq channel is closed, reconnecting")
		if reopenErr := p.reopenLocked(); reopenErr != nil {
			err = errors.Join(err, reopenErr)
		} else {
			err = p.publishLocked(msg)
		}
	}
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("failed to publish message to rabbitmq")
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.WithFields(fields).WithField("event_type", event.EventType).Debug("message published to rabbitmq")
	return nil
}

func (p *Publisher) publishLocked(msg amqp.Publishing) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg)
}

// reopenLocked закрывает старые канал и соединение и открывает новые.
func (p *Publisher) reopenLocked() error {
	closeQuietly(p.channel, p.conn)

	ch, conn, err := p.open()
	if err != nil {
		return fmt.Errorf("reconnect to rabbitmq: %w", err)
	}
	if err := declareQueue(ch, p.queue); err != nil {
		closeQuietly(ch, conn)
		return err
	}
	p.channel = ch
	p.conn = conn
	p.logger.WithField("queue", p.queue).Info("rabbitmq channel reopened")
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func declareQueue(ch Channel, queue string) error {
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return nil
}

// isConnectionError - ошибки уровня AMQP (закрытый канал или соединение),
// после которых канал нужно открыть заново.
func isConnectionError(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr)
}

func closeQuietly(ch Channel, conn io.Closer) {
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

var _ domain.OutboxPublisher = (*Publisher)(nil)
