// Command migrate применяет и откатывает схему витрины в PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	dsnEnv         = "STOREFRONT_POSTGRES_DSN"
)

// migrator - операции *postgres.Store, которые нужны команде.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	Status(ctx context.Context) (postgres.SchemaStatus, error)
}

func main() {
	var (
		direction string
		steps     int
		dsn       string
	)

	flag.StringVar(&direction, "direction", "up", "migration direction: up|down|status")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+dsnEnv+")")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv(dsnEnv))
	}
	if dsn == "" {
		fail("%s (or -dsn) is required", dsnEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := run(ctx, store, direction, steps, os.Stdout); err != nil {
		fail("%v", err)
	}
}

func run(ctx context.Context, m migrator, direction string, steps int, out io.Writer) error {
	var label string
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		if err := m.MigrateUp(ctx, steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		label = "migrate up ok"
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := m.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		label = "migrate down ok"
	case "status":
		label = "migration status"
	default:
		return fmt.Errorf("unsupported direction: %s (use up|down|status)", direction)
	}

	status, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	catalogState := "empty"
	if status.CatalogSeeded() {
		catalogState = "seeded"
	}
	_, err = fmt.Fprintf(out, "%s: version=%d applied=%d pending=%d catalog=%s items=%d\n",
		label, status.Version, status.Applied, status.Pending, catalogState, status.CatalogItems)
	return err
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
