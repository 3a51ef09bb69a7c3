package domain

// EventType - тип доменного события витрины, публикуемого через outbox.
type EventType string

const (
	EventSessionCreated      EventType = "session.created"
	EventOutfitSlotSelected  EventType = "outfit.slot_selected"
	EventCartItemAdded       EventType = "cart.item_added"
	EventCartItemRemoved     EventType = "cart.item_removed"
	EventCartOutfitAdded     EventType = "cart.outfit_added"
	EventSessionViewChanged  EventType = "session.view_changed"
	EventSessionThemeToggled EventType = "session.theme_toggled"
)

// AggregateSession - тип агрегата для событий сессии.
const AggregateSession = "session"

// SessionEvent - полезная нагрузка событий сессии.
type SessionEvent struct {
	SessionID string   `json:"session_id"`
	ItemIDs   []string `json:"item_ids,omitempty"`
	Category  string   `json:"category,omitempty"`
	View      View     `json:"view,omitempty"`
	Theme     Theme    `json:"theme,omitempty"`
	CartLines int      `json:"cart_lines"`
	CartTotal int64    `json:"cart_total"`
}
