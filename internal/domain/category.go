package domain

import "fmt"

// Category - слот манекена, к которому относится товар.
// Набор закрыт: новые значения требуют правок во всех switch по Category.
type Category uint8

const (
	// CategoryTop - верх (рубашки, свитера).
	CategoryTop Category = iota
	// CategoryBottom - низ (джинсы, брюки).
	CategoryBottom
	// CategoryShoes - обувь.
	CategoryShoes
	// CategoryAccessories - аксессуары (сумки и т.п.).
	CategoryAccessories

	categoryCount = int(CategoryAccessories) + 1
)

// Categories возвращает все категории в фиксированном порядке переноса образа в корзину.
func Categories() []Category {
	return []Category{CategoryTop, CategoryBottom, CategoryShoes, CategoryAccessories}
}

// String возвращает каноническое строковое имя категории.
func (c Category) String() string {
	switch c {
	case CategoryTop:
		return "top"
	case CategoryBottom:
		return "bottom"
	case CategoryShoes:
		return "shoes"
	case CategoryAccessories:
		return "accessories"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Valid сообщает, относится ли значение к поддерживаемым категориям.
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryShoes, CategoryAccessories:
		return true
	default:
		return false
	}
}

// ParseCategory разбирает строковое имя категории.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "top":
		return CategoryTop, nil
	case "bottom":
		return CategoryBottom, nil
	case "shoes":
		return CategoryShoes, nil
	case "accessories":
		return CategoryAccessories, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// MarshalText реализует encoding.TextMarshaler (используется в JSON).
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
