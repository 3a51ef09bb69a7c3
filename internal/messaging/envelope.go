// Package messaging содержит общий формат сообщений для брокеров.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Envelope - формат, в котором outbox-сообщение уходит в брокер.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope упаковывает outbox-сообщение; пустой payload кодируется как null.
func NewEnvelope(msg domain.OutboxMessage, now time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		OccurredAt:    msg.CreatedAt,
		PublishedAt:   now.UTC(),
	}
}

// DeadLetter - payload сообщения в DLQ: исходный envelope и причина отказа.
type DeadLetter struct {
	Original       Envelope  `json:"original"`
	Attempts       int       `json:"attempts"`
	PublishError   string    `json:"publish_error"`
	DLQPublishedAt time.Time `json:"dlq_published_at"`
}

// UnwrapDeadLetter достаёт исходный envelope из DLQ-сообщения
// (envelope, в payload которого лежит DeadLetter).
func UnwrapDeadLetter(data []byte) (DeadLetter, error) {
	var outer Envelope
	if err := json.Unmarshal(data, &outer); err != nil {
		return DeadLetter{}, fmt.Errorf("decode dlq envelope: %w", err)
	}
	var letter DeadLetter
	if err := json.Unmarshal(outer.Payload, &letter); err != nil {
		return DeadLetter{}, fmt.Errorf("decode dead letter: %w", err)
	}
	if letter.Original.ID == "" || len(letter.Original.Payload) == 0 {
		return DeadLetter{}, fmt.Errorf("dead letter has no original event")
	}
	return letter, nil
}

// Key возвращает ключ партиционирования: id агрегата, иначе id сообщения.
func Key(msg domain.OutboxMessage) string {
	if msg.AggregateID != "" {
		return msg.AggregateID
	}
	return msg.ID
}

// Marshal сериализует envelope в JSON.
func Marshal(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}
