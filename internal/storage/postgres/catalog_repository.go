package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию CatalogRepository.
// Каталог засевается миграцией 0001_catalog.
func NewCatalogRepository(store *Store) domain.CatalogRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) List(ctx context.Context) ([]domain.ClothingItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, category, image
		FROM catalog_items
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ClothingItem, 0)
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}

	return items, nil
}

func (r *catalogRepository) Get(ctx context.Context, id string) (domain.ClothingItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, category, image
		FROM catalog_items
		WHERE id = $1
	`, id)
	item, err := scanCatalogItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ClothingItem{}, domain.ErrItemNotFound
		}
		return domain.ClothingItem{}, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(row rowScanner) (domain.ClothingItem, error) {
	var (
		item     domain.ClothingItem
		category string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Price, &category, &item.Image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ClothingItem{}, err
		}
		return domain.ClothingItem{}, fmt.Errorf("scan catalog item: %w", err)
	}

	cat, err := domain.ParseCategory(category)
	if err != nil {
		return domain.ClothingItem{}, fmt.Errorf("catalog item %s: %w", item.ID, err)
	}
	item.Category = cat
	return item, nil
}

var _ domain.CatalogRepository = (*catalogRepository)(nil)
