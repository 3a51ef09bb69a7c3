package memory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// catalogRepositoryInMemory - неизменяемый каталог, загруженный при старте.
type catalogRepositoryInMemory struct {
	items []domain.ClothingItem
}

// NewCatalogRepository проверяет и копирует переданные товары.
func NewCatalogRepository(items []domain.ClothingItem) (domain.CatalogRepository, error) {
	if err := catalog.Validate(items); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	stored := make([]domain.ClothingItem, len(items))
	copy(stored, items)
	return &catalogRepositoryInMemory{items: stored}, nil
}

// List возвращает копию каталога в исходном порядке.
func (r *catalogRepositoryInMemory) List(_ context.Context) ([]domain.ClothingItem, error) {
	out := make([]domain.ClothingItem, len(r.items))
	copy(out, r.items)
	return out, nil
}

// Get ищет товар линейным проходом.
func (r *catalogRepositoryInMemory) Get(_ context.Context, id string) (domain.ClothingItem, error) {
	item, ok := catalog.Find(r.items, id)
	if !ok {
		return domain.ClothingItem{}, domain.ErrItemNotFound
	}
	return item, nil
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)
