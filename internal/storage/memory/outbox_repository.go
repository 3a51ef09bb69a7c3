package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type outboxStatus string

const (
	outboxPending outboxStatus = "pending"
	outboxSent    outboxStatus = "sent"
	outboxFailed  outboxStatus = "failed"
)

// outboxRecord хранит сообщение и служебные поля.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     outboxStatus
	attemptCnt int
	seq        uint64
	updatedAt  time.Time
}

// OutboxRepository - in-memory outbox для доменных событий витрины.
type OutboxRepository struct {
	mu      sync.RWMutex
	seq     uint64
	records map[string]*outboxRecord
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{records: make(map[string]*outboxRecord)}
}

// Enqueue сохраняет событие со статусом pending.
func (r *OutboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	r.seq++
	r.records[msg.ID] = &outboxRecord{
		msg:       msg,
		status:    outboxPending,
		seq:       r.seq,
		updatedAt: now,
	}
	return msg, nil
}

// PullPending возвращает до limit pending-сообщений в порядке постановки.
func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	pending := r.pendingLocked()
	if len(pending) > limit {
		pending = pending[:limit]
	}
	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого pending-сообщения.
func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := r.pendingLocked()
	stats := domain.OutboxStats{PendingCount: len(pending)}
	if len(pending) > 0 {
		stats.OldestPendingAt = pending[0].msg.CreatedAt
	}
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *OutboxRepository) MarkSent(id string) error {
	return r.mark(id, outboxSent)
}

// MarkFailed фиксирует окончательную ошибку публикации.
func (r *OutboxRepository) MarkFailed(id string) error {
	return r.mark(id, outboxFailed)
}

// AllPending возвращает все pending-сообщения (используется в тестах).
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := r.pendingLocked()
	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result
}

// DeleteProcessedBefore удаляет до limit sent/failed-сообщений,
// статус которых последний раз менялся раньше before.
func (r *OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time, limit int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	processed := make([]*outboxRecord, 0)
	for _, rec := range r.records {
		if rec.status != outboxPending && rec.updatedAt.Before(before) {
			processed = append(processed, rec)
		}
	}
	sort.Slice(processed, func(i, j int) bool { return processed[i].seq < processed[j].seq })
	if limit > 0 && len(processed) > limit {
		processed = processed[:limit]
	}
	for _, rec := range processed {
		delete(r.records, rec.msg.ID)
	}
	return len(processed), nil
}

// Len возвращает общее число записей независимо от статуса.
func (r *OutboxRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *OutboxRepository) mark(id string, status outboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	record.status = status
	record.attemptCnt++
	record.updatedAt = time.Now().UTC()
	return nil
}

func (r *OutboxRepository) pendingLocked() []*outboxRecord {
	pending := make([]*outboxRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.status == outboxPending {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	return pending
}

var (
	_ domain.OutboxRepository = (*OutboxRepository)(nil)
	_ domain.OutboxPruner     = (*OutboxRepository)(nil)
)
