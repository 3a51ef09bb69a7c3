package storefront

import (
	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ItemView - карточка товара для отрисовки, с готовой строкой цены.
type ItemView struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        int64           `json:"price"`
	PriceDisplay string          `json:"price_display"`
	Category     domain.Category `json:"category"`
	Image        string          `json:"image"`
}

// OutfitSlot - слот манекена; Item == nil для пустого слота.
type OutfitSlot struct {
	Category domain.Category `json:"category"`
	Item     *ItemView       `json:"item"`
}

// Snapshot - всё, что нужно слою отрисовки, в одном значении.
type Snapshot struct {
	SessionID               string       `json:"session_id"`
	View                    domain.View  `json:"view"`
	Theme                   domain.Theme `json:"theme"`
	Hovered                 *ItemView    `json:"hovered"`
	Outfit                  []OutfitSlot `json:"outfit"`
	OutfitTransferAvailable bool         `json:"outfit_transfer_available"`
	Cart                    []ItemView   `json:"cart"`
	CartCount               int          `json:"cart_count"`
	Total                   int64        `json:"total"`
	TotalDisplay            string       `json:"total_display"`
	Version                 int64        `json:"version"`
}

// TransferResult - итог переноса образа в корзину.
type TransferResult struct {
	// Available == false, если на манекене ничего не было и корзина не менялась.
	Available bool     `json:"available"`
	Added     int      `json:"added"`
	Snapshot  Snapshot `json:"snapshot"`
}

// RemoveResult - итог удаления позиции из корзины.
type RemoveResult struct {
	Removed  bool     `json:"removed"`
	Snapshot Snapshot `json:"snapshot"`
}

func (s *Service) itemView(item domain.ClothingItem) ItemView {
	return ItemView{
		ID:           item.ID,
		Name:         item.Name,
		Price:        item.Price,
		PriceDisplay: s.formatPrice(item.Price),
		Category:     item.Category,
		Image:        item.Image,
	}
}

func (s *Service) formatPrice(amount int64) string {
	return domain.FormatPrice(amount, s.currency, s.language)
}

func (s *Service) snapshot(session domain.Session) Snapshot {
	snap := Snapshot{
		SessionID:               session.ID,
		View:                    session.View,
		Theme:                   session.Theme,
		OutfitTransferAvailable: session.OutfitTransferAvailable(),
		Version:                 session.Version,
	}

	if session.Hovered != nil {
		hovered := s.itemView(*session.Hovered)
		snap.Hovered = &hovered
	}

	categories := domain.Categories()
	snap.Outfit = make([]OutfitSlot, 0, len(categories))
	for _, category := range categories {
		slot := OutfitSlot{Category: category}
		if item, ok := session.Outfit.Slot(category); ok {
			view := s.itemView(item)
			slot.Item = &view
		}
		snap.Outfit = append(snap.Outfit, slot)
	}

	lines := session.Cart.Lines()
	snap.Cart = make([]ItemView, 0, len(lines))
	for _, line := range lines {
		snap.Cart = append(snap.Cart, s.itemView(line))
	}
	snap.CartCount = len(lines)
	snap.Total = session.Cart.Total()
	snap.TotalDisplay = s.formatPrice(snap.Total)

	return snap
}
