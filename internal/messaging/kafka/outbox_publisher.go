package kafka

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicStorefrontEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	data, err := messaging.Marshal(messaging.NewEnvelope(event, time.Now()))
	if err != nil {
		return err
	}

	return p.producer.Send(p.topic, messaging.Key(event), data, map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
