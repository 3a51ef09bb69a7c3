package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/service/session"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func findFreeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func TestMetricsMux_Endpoints(t *testing.T) {
	healthHandler := healthcheck.NewHandler(version.GetVersion())
	mux := newMetricsMux(healthHandler)

	for path, want := range map[string]int{
		"/metrics": http.StatusOK,
		"/healthz": http.StatusOK,
		"/livez":   http.StatusOK,
		"/readyz":  http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestRun_MemoryServesAndShutsDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = findFreeAddr(t)
	cfg.MetricsAddr = findFreeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	base := "http://" + cfg.HTTPAddr
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Post(base+"/api/v1/sessions", "application/json", nil)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 3*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var snap struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.NotEmpty(t, snap.SessionID)

	require.Eventually(t, func() bool {
		r, err := http.Get(fmt.Sprintf("http://%s/healthz", cfg.MetricsAddr))
		if err != nil {
			return false
		}
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		return r.StatusCode == http.StatusOK && strings.Contains(string(body), `"status":"degraded"`)
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled), "unexpected error: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg)
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestRun_ListenError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	cfg := DefaultConfig()
	cfg.GRPCAddr = lis.Addr().String()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	require.Error(t, Run(context.Background(), cfg))
}

type recordingPublisher struct{}

func (recordingPublisher) Publish(domain.OutboxMessage) error { return nil }

func TestNewStorefrontService_OutboxFollowsBroker(t *testing.T) {
	ctx := context.Background()
	logger := log.WithField("component", "app-test")

	deps, err := initRuntimeDependencies(ctx, DefaultConfig(), logger)
	require.NoError(t, err)
	outboxRepo, ok := deps.outboxRepo.(*memory.OutboxRepository)
	require.True(t, ok)

	// Без брокера события не пишутся: outbox некому разгребать.
	withoutBroker := newStorefrontService(DefaultConfig(), deps, brokerDependencies{}, logger)
	for i := 0; i < 10; i++ {
		snapshot, err := withoutBroker.CreateSession(ctx)
		require.NoError(t, err)
		_, err = withoutBroker.ToggleTheme(ctx, snapshot.SessionID)
		require.NoError(t, err)
	}
	assert.Zero(t, outboxRepo.Len())

	withBroker := newStorefrontService(DefaultConfig(), deps, brokerDependencies{publisher: recordingPublisher{}}, logger)
	_, err = withBroker.CreateSession(ctx)
	require.NoError(t, err)
	assert.Len(t, outboxRepo.AllPending(), 1)
}

func TestCleanupOptions_OutboxRetentionFollowsBroker(t *testing.T) {
	ctx := context.Background()
	logger := log.WithField("component", "app-test")
	cfg := DefaultConfig()

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	require.NoError(t, err)
	outboxRepo := deps.outboxRepo.(*memory.OutboxRepository)

	msg, err := outboxRepo.Enqueue(domain.OutboxMessage{AggregateType: domain.AggregateSession, AggregateID: "s-1"})
	require.NoError(t, err)
	require.NoError(t, outboxRepo.MarkSent(msg.ID))

	later := time.Now().Add(time.Minute)

	idle := session.NewCleanupWorker(deps.sessionRepo, cleanupOptions(cfg, deps, brokerDependencies{}, logger)...)
	pruned, err := idle.PruneOutbox(ctx, later)
	require.NoError(t, err)
	assert.Zero(t, pruned)

	active := session.NewCleanupWorker(deps.sessionRepo,
		cleanupOptions(cfg, deps, brokerDependencies{publisher: recordingPublisher{}}, logger)...)
	pruned, err = active.PruneOutbox(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.Zero(t, outboxRepo.Len())
}
