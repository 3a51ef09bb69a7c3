package domain

// ClothingItem - неизменяемая карточка товара из каталога.
type ClothingItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Category Category `json:"category"`
	Image    string   `json:"image"`
}

// Validate проверяет поля товара и возвращает список замечаний.
func (i ClothingItem) Validate() []error {
	var errs []error
	if i.ID == "" {
		errs = append(errs, ErrItemIDRequired)
	}
	if i.Name == "" {
		errs = append(errs, ErrItemNameRequired)
	}
	if i.Price < 0 {
		errs = append(errs, ErrItemPriceNegative)
	}
	if !i.Category.Valid() {
		errs = append(errs, ErrInvalidCategory)
	}
	return errs
}
