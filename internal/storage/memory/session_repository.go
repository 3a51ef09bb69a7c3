package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// sessionRepositoryInMemory хранит сессии в памяти процесса.
type sessionRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Session
}

// NewSessionRepository возвращает in-memory репозиторий сессий.
func NewSessionRepository() domain.SessionRepository {
	return &sessionRepositoryInMemory{
		items: make(map[string]domain.Session),
	}
}

// Create сохраняет новую сессию, если id ещё не занят.
func (r *sessionRepositoryInMemory) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[session.ID]; exists {
		return domain.ErrSessionVersionConflict
	}
	// Храним копию, чтобы вызывающий код не мутировал состояние в обход Save.
	r.items[session.ID] = session.Clone()
	return nil
}

// Get возвращает копию сессии или ErrSessionNotFound.
func (r *sessionRepositoryInMemory) Get(_ context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.items[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Save перезаписывает сессию, проверяя версию (optimistic locking).
func (r *sessionRepositoryInMemory) Save(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if current.Version != session.Version {
		return domain.ErrSessionVersionConflict
	}
	stored := session.Clone()
	stored.Version++
	r.items[session.ID] = stored
	return nil
}

// Delete удаляет сессию.
func (r *sessionRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

// DeleteIdle удаляет самые старые сессии, не менявшиеся с before.
func (r *sessionRepositoryInMemory) DeleteIdle(_ context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idle := make([]domain.Session, 0)
	for _, session := range r.items {
		if session.UpdatedAt.Before(before) {
			idle = append(idle, session)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		return idle[i].UpdatedAt.Before(idle[j].UpdatedAt)
	})
	if limit > 0 && len(idle) > limit {
		idle = idle[:limit]
	}

	for _, session := range idle {
		delete(r.items, session.ID)
	}
	return len(idle), nil
}

// Count возвращает количество сессий.
func (r *sessionRepositoryInMemory) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items), nil
}

var _ domain.SessionRepository = (*sessionRepositoryInMemory)(nil)
