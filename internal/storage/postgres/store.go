package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
)

// Параметры пула рассчитаны на одну реплику витрины: короткие транзакции
// сессий и корзины плюс воркер outbox.
const (
	pingTimeout      = 5 * time.Second
	poolMaxOpen      = 16
	poolMaxIdle      = 8
	poolConnLifetime = 30 * time.Minute
	poolConnIdleTime = 2 * time.Minute
)

var (
	errStoreNotInitialized = errors.New("postgres store is not initialized")
	// ErrCatalogNotSeeded - схема есть, но catalog_items пуст.
	ErrCatalogNotSeeded = errors.New("catalog is not seeded")
)

// Store - подключение витрины к PostgreSQL. Репозитории каталога, сессий
// и outbox строятся поверх одного пула.
type Store struct {
	db *sql.DB
}

// Open подключается через драйвер pgx и ждёт первого успешного ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(poolMaxOpen)
	db.SetMaxIdleConns(poolMaxIdle)
	db.SetConnMaxLifetime(poolConnLifetime)
	db.SetConnMaxIdleTime(poolConnIdleTime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store, nil
}

// DB отдаёт пул репозиториям пакета и интеграционным тестам.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping используется как health-check хранилища.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Prepare готовит базу к старту сервиса: при autoMigrate накатывает схему,
// затем читает каталог и проверяет, что он засеян и валиден.
// Возвращает количество позиций каталога.
func (s *Store) Prepare(ctx context.Context, autoMigrate bool) (int, error) {
	if s == nil || s.db == nil {
		return 0, errStoreNotInitialized
	}
	if autoMigrate {
		if err := s.MigrateUp(ctx, 0); err != nil {
			return 0, fmt.Errorf("apply migrations: %w", err)
		}
	}

	items, err := NewCatalogRepository(s).List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	if len(items) == 0 {
		return 0, ErrCatalogNotSeeded
	}
	if err := catalog.Validate(items); err != nil {
		return 0, fmt.Errorf("invalid catalog in postgres: %w", err)
	}
	return len(items), nil
}

// Close закрывает пул; повторный вызов на nil-store безопасен.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
