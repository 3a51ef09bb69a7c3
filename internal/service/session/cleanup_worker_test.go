package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var _ domain.SessionRepository = (*stubCleanupRepo)(nil)

func TestCleanupWorker_DeleteIdle_Batches(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteResults: []int{2, 2, 1},
	}

	worker := NewCleanupWorker(repo, WithBatchSize(2))

	deleted, err := worker.DeleteIdle(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteIdle failed: %v", err)
	}

	if deleted != 5 {
		t.Fatalf("unexpected deleted total: got=%d want=5", deleted)
	}

	if calls := repo.calls(); calls != 3 {
		t.Fatalf("unexpected delete calls: got=%d want=3", calls)
	}
}

func TestCleanupWorker_DeleteIdle_Error(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteErrors: []error{errors.New("boom")},
	}

	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteIdle(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected DeleteIdle error")
	}
	if deleted != 0 {
		t.Fatalf("unexpected deleted total: got=%d want=0", deleted)
	}
}

func TestCleanupWorker_UsesTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewSessionRepository()
	ctx := context.Background()

	for id, updated := range map[string]time.Time{
		"stale":  now.Add(-2 * time.Hour),
		"recent": now.Add(-5 * time.Minute),
	} {
		if err := repo.Create(ctx, domain.NewSession(id, updated)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	worker := NewCleanupWorker(repo,
		WithTTL(time.Hour),
		WithClock(func() time.Time { return now }),
	)

	// Нулевой before означает "сейчас минус TTL".
	deleted, err := worker.DeleteIdle(ctx, time.Time{})
	if err != nil {
		t.Fatalf("DeleteIdle failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("unexpected deleted total: got=%d want=1", deleted)
	}
	if _, err := repo.Get(ctx, "recent"); err != nil {
		t.Fatalf("recent session must survive: %v", err)
	}
	if _, err := repo.Get(ctx, "stale"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("stale session must be deleted, got %v", err)
	}
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteResults: []int{0, 0, 0},
	}

	worker := NewCleanupWorker(
		repo,
		WithInterval(5*time.Millisecond),
		WithBatchSize(10),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	if calls := repo.calls(); calls == 0 {
		t.Fatal("expected cleanup to be called at least once")
	}
}

func TestCleanupWorker_CleanupPrunesProcessedOutbox(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessions := memory.NewSessionRepository()
	outbox := memory.NewOutboxRepository()

	realNow := time.Now().UTC()
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("session-%d", i)
		if err := sessions.Create(ctx, domain.NewSession(id, realNow)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		for j := 0; j < 5; j++ {
			msg, err := outbox.Enqueue(domain.OutboxMessage{
				AggregateType: domain.AggregateSession,
				AggregateID:   id,
				EventType:     string(domain.EventSessionThemeToggled),
			})
			if err != nil {
				t.Fatalf("enqueue: %v", err)
			}
			if err := outbox.MarkSent(msg.ID); err != nil {
				t.Fatalf("mark sent: %v", err)
			}
		}
	}
	pending, err := outbox.Enqueue(domain.OutboxMessage{AggregateType: domain.AggregateSession, AggregateID: "session-0"})
	if err != nil {
		t.Fatalf("enqueue pending: %v", err)
	}

	worker := NewCleanupWorker(sessions,
		WithTTL(time.Hour),
		WithBatchSize(7),
		WithOutboxRetention(outbox, time.Hour),
		WithClock(func() time.Time { return realNow.Add(2 * time.Hour) }),
	)
	worker.cleanup(ctx)

	if count, _ := sessions.Count(ctx); count != 0 {
		t.Fatalf("expected all idle sessions deleted, got %d", count)
	}
	if outbox.Len() != 1 {
		t.Fatalf("expected only the pending outbox message to remain, got %d", outbox.Len())
	}
	if left := outbox.AllPending(); len(left) != 1 || left[0].ID != pending.ID {
		t.Fatalf("pending message must not be pruned: %+v", left)
	}
}

func TestCleanupWorker_PruneOutbox(t *testing.T) {
	t.Parallel()

	pruner := &stubPruner{results: []int{3, 3, 1}}
	worker := NewCleanupWorker(&stubCleanupRepo{}, WithBatchSize(3), WithOutboxRetention(pruner, time.Hour))

	pruned, err := worker.PruneOutbox(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PruneOutbox failed: %v", err)
	}
	if pruned != 7 || pruner.calls != 3 {
		t.Fatalf("unexpected prune result: pruned=%d calls=%d", pruned, pruner.calls)
	}

	failing := &stubPruner{err: errors.New("db down")}
	worker = NewCleanupWorker(&stubCleanupRepo{}, WithOutboxRetention(failing, time.Hour))
	if _, err := worker.PruneOutbox(context.Background(), time.Now()); err == nil {
		t.Fatal("expected prune error")
	}

	// Без retention pruning выключен.
	disabled := NewCleanupWorker(&stubCleanupRepo{}, WithOutboxRetention(pruner, 0))
	if pruned, err := disabled.PruneOutbox(context.Background(), time.Now()); err != nil || pruned != 0 {
		t.Fatalf("expected disabled pruning, got pruned=%d err=%v", pruned, err)
	}
}

type stubPruner struct {
	results []int
	err     error
	calls   int
}

func (s *stubPruner) DeleteProcessedBefore(context.Context, time.Time, int) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	if len(s.results) == 0 {
		return 0, nil
	}
	result := s.results[0]
	s.results = s.results[1:]
	return result, nil
}

type stubCleanupRepo struct {
	mu sync.Mutex

	deleteResults []int
	deleteErrors  []error
	callCount     int
}

func (s *stubCleanupRepo) Create(context.Context, domain.Session) error {
	panic("not implemented")
}

func (s *stubCleanupRepo) Get(context.Context, string) (domain.Session, error) {
	panic("not implemented")
}

func (s *stubCleanupRepo) Save(context.Context, domain.Session) error {
	panic("not implemented")
}

func (s *stubCleanupRepo) Delete(context.Context, string) error {
	panic("not implemented")
}

func (s *stubCleanupRepo) Count(context.Context) (int, error) {
	return 0, nil
}

func (s *stubCleanupRepo) DeleteIdle(_ context.Context, _ time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++

	if len(s.deleteErrors) > 0 {
		err := s.deleteErrors[0]
		s.deleteErrors = s.deleteErrors[1:]
		if err != nil {
			return 0, err
		}
	}

	if len(s.deleteResults) == 0 {
		return 0, nil
	}
	result := s.deleteResults[0]
	s.deleteResults = s.deleteResults[1:]
	return result, nil
}

func (s *stubCleanupRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
