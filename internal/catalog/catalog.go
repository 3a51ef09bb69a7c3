// Package catalog содержит стартовый набор товаров витрины и его проверку.
package catalog

import (
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MaxItems - верхняя граница размера каталога; поиск по нему линейный.
const MaxItems = 10

const placeholderImage = "/placeholder.svg"

var (
	// ErrTooManyItems - каталог превышает MaxItems.
	ErrTooManyItems = errors.New("catalog exceeds max items")
	// ErrDuplicateID - в каталоге два товара с одинаковым id.
	ErrDuplicateID = errors.New("catalog contains duplicate item id")
)

// Default возвращает сид-каталог витрины. Каждый вызов отдаёт новый срез.
func Default() []domain.ClothingItem {
	return []domain.ClothingItem{
		{ID: "1", Name: "Классическая белая рубашка", Price: 3500, Category: domain.CategoryTop, Image: placeholderImage},
		{ID: "2", Name: "Темные джинсы", Price: 4200, Category: domain.CategoryBottom, Image: placeholderImage},
		{ID: "3", Name: "Кожаные ботинки", Price: 8500, Category: domain.CategoryShoes, Image: placeholderImage},
		{ID: "4", Name: "Минималистичная сумка", Price: 5200, Category: domain.CategoryAccessories, Image: placeholderImage},
		{ID: "5", Name: "Серый свитер", Price: 2800, Category: domain.CategoryTop, Image: placeholderImage},
		{ID: "6", Name: "Черные брюки", Price: 3800, Category: domain.CategoryBottom, Image: placeholderImage},
	}
}

// Validate проверяет размер каталога, уникальность id и корректность каждого товара.
func Validate(items []domain.ClothingItem) error {
	if len(items) > MaxItems {
		return fmt.Errorf("%w: %d > %d", ErrTooManyItems, len(items), MaxItems)
	}

	var errs []error
	seen := make(map[string]struct{}, len(items))
	for idx, item := range items {
		if _, ok := seen[item.ID]; ok {
			errs = append(errs, fmt.Errorf("item[%d]: %w: %s", idx, ErrDuplicateID, item.ID))
		}
		seen[item.ID] = struct{}{}
		for _, err := range item.Validate() {
			errs = append(errs, fmt.Errorf("item[%d]: %w", idx, err))
		}
	}
	return errors.Join(errs...)
}

// Find ищет товар линейным проходом.
func Find(items []domain.ClothingItem, id string) (domain.ClothingItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.ClothingItem{}, false
}
