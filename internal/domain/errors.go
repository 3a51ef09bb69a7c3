package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора товара.
	ErrItemIDRequired = errors.New("item id is required")
	// Ошибка отсутствующего названия товара.
	ErrItemNameRequired = errors.New("item name is required")
	// Ошибка отрицательной цены товара.
	ErrItemPriceNegative = errors.New("item price must be non-negative")
	// ErrInvalidCategory - категория вне закрытого набора top|bottom|shoes|accessories.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidView - экран вне набора home|cart.
	ErrInvalidView = errors.New("invalid view")
	// ErrItemNotFound возвращается, если товара нет в каталоге.
	ErrItemNotFound = errors.New("catalog item not found")
	// ErrSessionNotFound возвращается, если сессия не найдена или истекла.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionVersionConflict сигнализирует о конкурентном изменении сессии.
	ErrSessionVersionConflict = errors.New("session version conflict")
	// ErrCartLimitExceeded - корзина достигла настроенного лимита позиций.
	ErrCartLimitExceeded = errors.New("cart line limit exceeded")
	// ErrOutboxPublish - ошибка при работе с outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrSessionVersionConflict)
}
