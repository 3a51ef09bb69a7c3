package domain

import (
	"context"
	"time"
)

// CatalogRepository отдаёт статический каталог витрины.
type CatalogRepository interface {
	// List возвращает все товары в порядке показа.
	List(ctx context.Context) ([]ClothingItem, error)
	// Get ищет товар по id или возвращает ErrItemNotFound.
	Get(ctx context.Context, id string) (ClothingItem, error)
}

// SessionRepository хранит эфемерные сессии посетителей.
type SessionRepository interface {
	// Create сохраняет новую сессию. Возвращает ErrSessionVersionConflict, если id занят.
	Create(ctx context.Context, session Session) error
	// Get возвращает копию сессии или ErrSessionNotFound.
	Get(ctx context.Context, id string) (Session, error)
	// Save применяет изменения с учётом optimistic locking и увеличивает Version.
	Save(ctx context.Context, session Session) error
	// Delete удаляет сессию; отсутствие записи не считается ошибкой.
	Delete(ctx context.Context, id string) error
	// DeleteIdle удаляет до limit сессий, не менявшихся с before.
	DeleteIdle(ctx context.Context, before time.Time, limit int) (int, error)
	// Count возвращает количество живых сессий.
	Count(ctx context.Context) (int, error)
}

// OutboxPublisher публикует события из outbox во внешний брокер.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPruner удаляет уже обработанные (sent/failed) сообщения outbox.
// Pending-сообщения не трогаются.
type OutboxPruner interface {
	DeleteProcessedBefore(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
