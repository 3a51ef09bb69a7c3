// Package session содержит фоновое обслуживание эфемерных сессий витрины.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultCleanupInterval  = time.Minute
	defaultCleanupBatchSize = 500
	defaultSessionTTL       = 30 * time.Minute
)

var (
	sessionCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_session_cleanup_runs_total",
		Help: "Total number of idle session cleanup runs grouped by result.",
	}, []string{"result"})
	sessionCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_session_cleanup_deleted_total",
		Help: "Total number of deleted idle sessions.",
	})
	sessionCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_session_cleanup_last_deleted",
		Help: "Number of deleted sessions during the last cleanup run.",
	})
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_sessions_active",
		Help: "Number of live sessions after the last cleanup run.",
	})
	outboxPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_outbox_pruned_total",
		Help: "Total number of processed outbox messages deleted by retention.",
	})
)

// CleanupOptions задает параметры воркера очистки сессий.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
	TTL       time.Duration
	Now       func() time.Time

	OutboxPruner    domain.OutboxPruner
	OutboxRetention time.Duration
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задает logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задает интервал между cleanup-циклами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задает размер batch для одного удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// WithTTL задает время простоя, после которого сессия удаляется.
func WithTTL(ttl time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.TTL = ttl
	}
}

// WithOutboxRetention включает удаление sent/failed-сообщений outbox,
// обработанных раньше чем retention назад.
func WithOutboxRetention(pruner domain.OutboxPruner, retention time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.OutboxPruner = pruner
		opts.OutboxRetention = retention
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Now = now
	}
}

// CleanupWorker периодически удаляет сессии, простаивающие дольше TTL.
type CleanupWorker struct {
	repo      domain.SessionRepository
	logger    *log.Entry
	interval  time.Duration
	batchSize int
	ttl       time.Duration
	now       func() time.Time

	pruner    domain.OutboxPruner
	retention time.Duration
}

// NewCleanupWorker создает воркер очистки сессий.
func NewCleanupWorker(repo domain.SessionRepository, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
		TTL:       defaultSessionTTL,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "session-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.OutboxRetention <= 0 {
		opts.OutboxPruner = nil
	}

	return &CleanupWorker{
		repo:      repo,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		ttl:       opts.TTL,
		now:       opts.Now,
		pruner:    opts.OutboxPruner,
		retention: opts.OutboxRetention,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("session cleanup worker is disabled: repo is nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context) {
	deleted, err := w.DeleteIdle(ctx, w.now().Add(-w.ttl))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		sessionCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("session cleanup run failed")
		return
	}

	sessionCleanupRunsTotal.WithLabelValues("ok").Inc()
	sessionCleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("session cleanup completed")
	}

	if count, err := w.repo.Count(ctx); err == nil {
		sessionsActive.Set(float64(count))
	}

	w.pruneOutbox(ctx)
}

func (w *CleanupWorker) pruneOutbox(ctx context.Context) {
	if w.pruner == nil {
		return
	}
	pruned, err := w.PruneOutbox(ctx, w.now().Add(-w.retention))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.WithError(err).Warn("outbox retention run failed")
		}
		return
	}
	if pruned > 0 {
		w.logger.WithField("pruned", pruned).Info("outbox retention completed")
	}
}

// PruneOutbox удаляет обработанные сообщения outbox старше before порциями batchSize.
func (w *CleanupWorker) PruneOutbox(ctx context.Context, before time.Time) (int, error) {
	if w.pruner == nil {
		return 0, nil
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		deleted, err := w.pruner.DeleteProcessedBefore(ctx, before, w.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted > 0 {
			outboxPrunedTotal.Add(float64(deleted))
		}
		if deleted < w.batchSize {
			return total, nil
		}
	}
}

// DeleteIdle удаляет все сессии, не менявшиеся с before, порциями batchSize.
func (w *CleanupWorker) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = w.now().Add(-w.ttl)
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.repo.DeleteIdle(ctx, before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			sessionCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
