// Package app собирает сервис витрины: хранилище, брокер, воркеры и серверы.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/service/session"
	"github.com/vladislavdragonenkov/storefront/internal/service/storefront"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run запускает сервис и блокируется до отмены ctx или падения gRPC-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer closeWith("storage", deps.closeFn, logger)

	broker := initBroker(cfg, logger.WithField("layer", "broker"))
	defer closeWith("broker", broker.closeFn, logger)

	service := newStorefrontService(cfg, deps, broker, logger)

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	var outboxWorker *outbox.Worker
	if broker.publisher != nil {
		options := []outbox.Option{
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		}
		if broker.dlq != nil {
			options = append(options, outbox.WithDLQPublisher(broker.dlq))
		}
		outboxWorker = outbox.NewWorker(deps.outboxRepo, broker.publisher, options...)
		workers.Add(1)
		go func() {
			defer workers.Done()
			outboxWorker.Run(workersCtx)
		}()
	} else {
		logger.Info("broker is disabled, domain events are not recorded")
	}

	cleanupWorker := session.NewCleanupWorker(deps.sessionRepo, cleanupOptions(cfg, deps, broker, logger)...)
	workers.Add(1)
	go func() {
		defer workers.Done()
		cleanupWorker.Run(workersCtx)
	}()

	defer func() {
		stopWorkers()
		workers.Wait()
		if outboxWorker != nil {
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			published := outboxWorker.Drain(drainCtx)
			cancel()
			logger.WithField("published", published).Info("outbox drained")
		}
	}()

	grpcServer, grpcHealth := newGRPCServer(service, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewOptionalChecker("outbox", func(context.Context) error {
		if broker.publisher == nil {
			return errors.New("broker is not connected")
		}
		return nil
	}))

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	apiHandler := httpapi.NewHandler(service, logger.WithField("layer", "http"))
	apiSrv := &http.Server{
		Handler:           httpapi.Instrument(apiHandler.Routes(), prometheus.DefaultRegisterer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("http api server failed")
		}
	}()

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newStorefrontService собирает сервис витрины. Outbox подключается только
// вместе с брокером: без публикатора записи некому вычитывать.
func newStorefrontService(cfg Config, deps runtimeDependencies, broker brokerDependencies, logger *log.Entry) *storefront.Service {
	options := []storefront.Option{
		storefront.WithMetrics(metrics.NewStorefrontMetrics()),
		storefront.WithLogger(logger.WithField("layer", "storefront")),
		storefront.WithMaxCartLines(cfg.MaxCartLines),
	}
	if broker.publisher != nil && deps.outboxRepo != nil {
		options = append(options, storefront.WithOutbox(deps.outboxRepo))
	}
	return storefront.New(deps.catalogRepo, deps.sessionRepo, options...)
}

func cleanupOptions(cfg Config, deps runtimeDependencies, broker brokerDependencies, logger *log.Entry) []session.CleanupOption {
	options := []session.CleanupOption{
		session.WithLogger(logger.WithField("layer", "session-cleanup")),
		session.WithInterval(cfg.SessionCleanupInterval),
		session.WithBatchSize(cfg.SessionCleanupBatchSize),
		session.WithTTL(cfg.SessionTTL),
	}
	if broker.publisher == nil {
		return options
	}
	if pruner, ok := deps.outboxRepo.(domain.OutboxPruner); ok {
		options = append(options, session.WithOutboxRetention(pruner, cfg.OutboxRetention))
	}
	return options
}

func newGRPCServer(service grpcsvc.Storefront, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	grpcsvc.RegisterStorefrontServer(server, grpcsvc.NewServer(service, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(server)

	reflection.Register(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}
