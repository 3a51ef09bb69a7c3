package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const envLogLevel = app.EnvPrefix + "LOG_LEVEL"

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	level = strings.TrimSpace(level)
	if level == "" {
		return nil
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%s: %w", envLogLevel, err)
	}
	log.SetLevel(parsed)
	return nil
}

var runApp = app.Run

func run(ctx context.Context, getenv func(string) string) error {
	if err := setupLogger(getenv(envLogLevel)); err != nil {
		return err
	}

	cfg, err := app.LoadConfig(getenv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.WithFields(log.Fields{
		"version":        version.GetVersion(),
		"commit":         version.GetCommit(),
		"grpc_addr":      cfg.GRPCAddr,
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"broker_driver":  cfg.BrokerDriver,
	}).Info("запускаем витрину")

	if err := runApp(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("витрина остановлена")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv); err != nil {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}
}
