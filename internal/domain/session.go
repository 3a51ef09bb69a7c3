package domain

import (
	"fmt"
	"time"
)

// View - активный экран витрины.
type View string

const (
	// ViewHome - главная страница с каталогом и манекеном.
	ViewHome View = "home"
	// ViewCart - экран корзины.
	ViewCart View = "cart"
)

// Valid проверяет, что экран поддерживается.
func (v View) Valid() bool {
	switch v {
	case ViewHome, ViewCart:
		return true
	default:
		return false
	}
}

// ParseView разбирает имя экрана.
func ParseView(s string) (View, error) {
	v := View(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
	return v, nil
}

// Theme - цветовая тема интерфейса.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle возвращает противоположную тему.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Session - эфемерное состояние одного посетителя витрины.
// Экран, тема и hover не влияют на образ и корзину, и наоборот.
type Session struct {
	ID      string
	View    View
	Theme   Theme
	Hovered *ClothingItem
	Outfit  OutfitSelection
	Cart    Cart
	// Version используется для optimistic locking в репозитории.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession создаёт сессию с состоянием по умолчанию: главная, светлая тема, всё пусто.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		View:      ViewHome,
		Theme:     ThemeLight,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SelectForMannequin примеряет товар на манекен.
func (s *Session) SelectForMannequin(item ClothingItem) {
	s.Outfit.Select(item)
}

// SetHovered запоминает товар под курсором; nil снимает превью.
func (s *Session) SetHovered(item *ClothingItem) {
	if item == nil {
		s.Hovered = nil
		return
	}
	hovered := *item
	s.Hovered = &hovered
}

// SetView переключает экран.
func (s *Session) SetView(v View) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidView, v)
	}
	s.View = v
	return nil
}

// ToggleTheme переключает тему.
func (s *Session) ToggleTheme() {
	s.Theme = s.Theme.Toggle()
}

// OutfitTransferAvailable сообщает, доступен ли перенос образа в корзину.
func (s Session) OutfitTransferAvailable() bool {
	return !s.Outfit.Empty()
}

// Touch фиксирует время последнего изменения.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Clone возвращает глубокую копию сессии.
func (s Session) Clone() Session {
	out := s
	if s.Hovered != nil {
		hovered := *s.Hovered
		out.Hovered = &hovered
	}
	out.Outfit = s.Outfit.Clone()
	out.Cart = s.Cart.Clone()
	return out
}
