package memory

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()

	msg := domain.OutboxMessage{
		AggregateType: "session",
		AggregateID:   "session-1",
		EventType:     "cart.item_added",
		Payload:       []byte(`{"item_id":"1"}`),
	}

	saved, err := repo.Enqueue(msg)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}
	if saved.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(pending))
	}
	if pending[0].ID != saved.ID {
		t.Fatalf("expected same message id, got %s", pending[0].ID)
	}
}

func TestOutboxRepository_PullPendingKeepsOrder(t *testing.T) {
	repo := NewOutboxRepository()
	var want []string
	for i := 0; i < 5; i++ {
		saved, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "session"})
		if err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		want = append(want, saved.ID)
	}

	pending, err := repo.PullPending(3)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(pending))
	}
	for i, msg := range pending {
		if msg.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], msg.ID)
		}
	}
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()

	saved, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "session"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := repo.MarkSent(saved.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if len(repo.AllPending()) != 0 {
		t.Fatal("sent message must leave pending set")
	}

	if err := repo.MarkFailed(saved.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := repo.MarkFailed("missing"); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestOutboxRepository_Stats(t *testing.T) {
	repo := NewOutboxRepository()

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats for empty outbox: %+v", stats)
	}

	oldest := time.Now().Add(-time.Minute).UTC()
	if _, err := repo.Enqueue(domain.OutboxMessage{CreatedAt: oldest}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := repo.Enqueue(domain.OutboxMessage{}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Fatalf("expected 2 pending, got %d", stats.PendingCount)
	}
	if !stats.OldestPendingAt.Equal(oldest) {
		t.Fatalf("expected oldest %s, got %s", oldest, stats.OldestPendingAt)
	}
}

func TestOutboxRepository_DeleteProcessedBeforeKeepsPending(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		saved, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "session", AggregateID: "session-1"})
		if err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		ids = append(ids, saved.ID)
	}
	if err := repo.MarkSent(ids[0]); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkSent(ids[1]); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(ids[2]); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	deleted, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("records newer than cutoff must stay, deleted %d", deleted)
	}

	cutoff := time.Now().Add(time.Minute)
	deleted, err = repo.DeleteProcessedBefore(ctx, cutoff, 2)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected limit to cap deletion at 2, got %d", deleted)
	}

	deleted, err = repo.DeleteProcessedBefore(ctx, cutoff, 2)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected last processed record to be deleted, got %d", deleted)
	}

	if repo.Len() != 1 {
		t.Fatalf("expected only pending record to remain, got %d", repo.Len())
	}
	if pending := repo.AllPending(); len(pending) != 1 || pending[0].ID != ids[3] {
		t.Fatalf("unexpected pending after prune: %+v", pending)
	}
}
