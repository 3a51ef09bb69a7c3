package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	migrationsDir = "sql/migrations"
	// schemaLockName превращается в ключ pg_advisory_lock через hashtext.
	schemaLockName   = "storefront.schema"
	schemaLockWait   = 10 * time.Second
	statusTimeout    = 5 * time.Second
	schemaVersionDDL = `
CREATE TABLE IF NOT EXISTS storefront_schema_versions (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

var (
	//go:embed sql/migrations/*.sql
	embeddedMigrations embed.FS

	// 0002_sessions.up.sql -> версия 2, имя sessions, направление up.
	migrationFileName = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)
)

type migrationDirection string

const (
	migrationUp   migrationDirection = "up"
	migrationDown migrationDirection = "down"
)

// migration - пара скриптов одной версии схемы витрины.
type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

func (m migration) script(direction migrationDirection) string {
	if direction == migrationDown {
		return m.DownSQL
	}
	return m.UpSQL
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// SchemaStatus - состояние схемы для `migrate -direction=status`.
type SchemaStatus struct {
	Version      int64
	Applied      int
	Pending      int
	CatalogItems int
}

// CatalogSeeded сообщает, есть ли в catalog_items хотя бы одна позиция.
func (s SchemaStatus) CatalogSeeded() bool {
	return s.CatalogItems > 0
}

// MigrateUp накатывает steps миграций; 0 - все недостающие.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationUp, steps)
}

// MigrateDown откатывает steps последних миграций, минимум одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.migrate(ctx, migrationDown, steps)
}

// Status читает версию схемы, число применённых и ожидающих миграций
// и размер засеянного каталога.
func (s *Store) Status(ctx context.Context) (SchemaStatus, error) {
	if s == nil || s.db == nil {
		return SchemaStatus{}, errStoreNotInitialized
	}

	known, err := parseMigrations(embeddedMigrations)
	if err != nil {
		return SchemaStatus{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schemaVersionDDL); err != nil {
		return SchemaStatus{}, fmt.Errorf("ensure schema version table: %w", err)
	}
	applied, err := appliedVersions(ctx, s.db)
	if err != nil {
		return SchemaStatus{}, err
	}

	var status SchemaStatus
	status.Applied = len(applied)
	for version := range applied {
		if version > status.Version {
			status.Version = version
		}
	}
	for _, m := range known {
		if !applied[m.Version] {
			status.Pending++
		}
	}

	var catalogExists bool
	if err := s.db.QueryRowContext(ctx, `SELECT to_regclass('catalog_items') IS NOT NULL`).Scan(&catalogExists); err != nil {
		return SchemaStatus{}, fmt.Errorf("check catalog table: %w", err)
	}
	if catalogExists {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&status.CatalogItems); err != nil {
			return SchemaStatus{}, fmt.Errorf("count catalog items: %w", err)
		}
	}
	return status, nil
}

func (s *Store) migrate(ctx context.Context, direction migrationDirection, steps int) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	if direction != migrationUp && direction != migrationDown {
		return fmt.Errorf("unsupported migration direction: %s", direction)
	}

	known, err := parseMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	// Блокировка живёт на соединении, поэтому все шаги идут через один conn.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, schemaLockWait)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock(hashtext($1))`, schemaLockName); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, schemaLockName)
	}()

	if _, err := conn.ExecContext(ctx, schemaVersionDDL); err != nil {
		return fmt.Errorf("ensure schema version table: %w", err)
	}
	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	plan, err := planMigrations(known, applied, direction, steps)
	if err != nil {
		return err
	}
	for _, m := range plan {
		if err := runMigration(ctx, conn, m, direction); err != nil {
			return err
		}
	}
	return nil
}

// planMigrations выбирает шаги: для up - неприменённые по возрастанию версии,
// для down - применённые по убыванию. steps<=0 для up означает "все".
func planMigrations(known []migration, applied map[int64]bool, direction migrationDirection, steps int) ([]migration, error) {
	var plan []migration
	switch direction {
	case migrationUp:
		for _, m := range known {
			if !applied[m.Version] {
				plan = append(plan, m)
			}
		}
	case migrationDown:
		byVersion := make(map[int64]migration, len(known))
		for _, m := range known {
			byVersion[m.Version] = m
		}
		versions := make([]int64, 0, len(applied))
		for version := range applied {
			versions = append(versions, version)
		}
		sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
		for _, version := range versions {
			m, ok := byVersion[version]
			if !ok {
				return nil, fmt.Errorf("cannot rollback unknown migration version %d", version)
			}
			plan = append(plan, m)
			if len(plan) == steps {
				break
			}
		}
	}

	if steps > 0 && len(plan) > steps {
		plan = plan[:steps]
	}
	return plan, nil
}

func runMigration(ctx context.Context, conn *sql.Conn, m migration, direction migrationDirection) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s %s: %w", direction, m, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.script(direction)); err != nil {
		return fmt.Errorf("execute %s %s: %w", direction, m, err)
	}

	if direction == migrationUp {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO storefront_schema_versions (version, name) VALUES ($1, $2)`, m.Version, m.Name)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM storefront_schema_versions WHERE version = $1`, m.Version)
	}
	if err != nil {
		return fmt.Errorf("record %s %s: %w", direction, m, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s %s: %w", direction, m, err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func appliedVersions(ctx context.Context, q queryer) (map[int64]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT version FROM storefront_schema_versions`)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied versions: %w", err)
	}
	return applied, nil
}

// parseMigrations собирает пары up/down из fsys и сортирует их по версии.
func parseMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		parts := migrationFileName.FindStringSubmatch(entry.Name())
		if parts == nil {
			return nil, fmt.Errorf("invalid migration file name: %s", entry.Name())
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", entry.Name(), err)
		}

		raw, err := fs.ReadFile(fsys, path.Join(migrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", entry.Name())
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: parts[2]}
			byVersion[version] = m
		}
		if m.Name != parts[2] {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", version, m.Name, parts[2])
		}

		target := &m.UpSQL
		if migrationDirection(parts[3]) == migrationDown {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s script for migration %d", parts[3], version)
		}
		*target = body
	}
	if len(byVersion) == 0 {
		return nil, errors.New("no migration files found")
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %s must have both up and down scripts", m)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
