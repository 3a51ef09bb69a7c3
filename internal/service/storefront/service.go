// Package storefront управляет состоянием витрины: манекен, корзина, экран и тема.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	cartSourceItem   = "item"
	cartSourceOutfit = "outfit"
)

// Service реализует операции витрины поверх репозиториев.
// Каждая мутация: загрузить сессию → изменить копию → сохранить с проверкой версии.
type Service struct {
	catalog  domain.CatalogRepository
	sessions domain.SessionRepository
	outbox   domain.OutboxRepository
	metrics  *metrics.StorefrontMetrics
	logger   *log.Entry

	retry        RetryConfig
	maxCartLines int
	currency     currency.Unit
	language     language.Tag

	now   func() time.Time
	newID func() string
}

// Option настраивает Service.
type Option func(*Service)

// WithOutbox включает публикацию доменных событий через outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

// WithMetrics подключает prometheus-метрики.
func WithMetrics(m *metrics.StorefrontMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetryConfig задаёт политику повторов при конфликте версий.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg.normalized()
	}
}

// WithMaxCartLines ограничивает число позиций в корзине; 0 - без ограничения.
func WithMaxCartLines(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCartLines = n
		}
	}
}

// WithPriceFormat задаёт валюту и локаль для строк цены.
func WithPriceFormat(unit currency.Unit, tag language.Tag) Option {
	return func(s *Service) {
		s.currency = unit
		s.language = tag
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator подменяет генератор id сессий.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New конструирует сервис витрины.
func New(catalog domain.CatalogRepository, sessions domain.SessionRepository, opts ...Option) *Service {
	s := &Service{
		catalog:  catalog,
		sessions: sessions,
		logger:   log.WithField("component", "storefront-service"),
		retry:    DefaultRetryConfig(),
		currency: currency.RUB,
		language: language.Russian,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// change описывает результат мутации сессии.
type change struct {
	// noop - состояние не изменилось, сохранение не требуется.
	noop     bool
	event    domain.EventType
	itemIDs  []string
	category string
}

// CreateSession заводит новую сессию с состоянием по умолчанию.
func (s *Service) CreateSession(ctx context.Context) (Snapshot, error) {
	defer s.observe("create_session", time.Now())

	session := domain.NewSession(s.newID(), s.now())
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.WithError(err).WithField("session_id", session.ID).Error("failed to create session")
		return Snapshot{}, fmt.Errorf("create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSessionCreated()
	}
	s.emitEvent(session, change{event: domain.EventSessionCreated})

	s.logger.WithField("session_id", session.ID).Debug("session created")
	return s.snapshot(session), nil
}

// Snapshot возвращает текущее состояние сессии.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(session), nil
}

// Catalog возвращает карточки каталога в порядке показа.
func (s *Service) Catalog(ctx context.Context) ([]ItemView, error) {
	items, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, s.itemView(item))
	}
	return views, nil
}

// SelectForMannequin примеряет товар: он занимает слот своей категории.
func (s *Service) SelectForMannequin(ctx context.Context, sessionID, itemID string) (Snapshot, error) {
	defer s.observe("select_for_mannequin", time.Now())

	item, err := s.lookupItem(ctx, itemID)
	if err != nil {
		return Snapshot{}, err
	}

	session, err := s.mutate(ctx, "select_for_mannequin", sessionID, func(session *domain.Session) (change, error) {
		if current, ok := session.Outfit.Slot(item.Category); ok && current == item {
			return change{noop: true}, nil
		}
		session.SelectForMannequin(item)
		return change{
			event:    domain.EventOutfitSlotSelected,
			itemIDs:  []string{item.ID},
			category: item.Category.String(),
		}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOutfitSelection(item.Category.String())
	}
	return s.snapshot(session), nil
}

// SetHovered запоминает товар под курсором; пустой itemID снимает превью.
// Образ и корзина не меняются.
func (s *Service) SetHovered(ctx context.Context, sessionID, itemID string) (Snapshot, error) {
	var hovered *domain.ClothingItem
	if itemID != "" {
		item, err := s.lookupItem(ctx, itemID)
		if err != nil {
			return Snapshot{}, err
		}
		hovered = &item
	}

	session, err := s.mutate(ctx, "set_hovered", sessionID, func(session *domain.Session) (change, error) {
		if sameHovered(session.Hovered, hovered) {
			return change{noop: true}, nil
		}
		session.SetHovered(hovered)
		return change{}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(session), nil
}

// AddToCart добавляет одну позицию; дубликаты допустимы.
func (s *Service) AddToCart(ctx context.Context, sessionID, itemID string) (Snapshot, error) {
	defer s.observe("add_to_cart", time.Now())

	item, err := s.lookupItem(ctx, itemID)
	if err != nil {
		return Snapshot{}, err
	}

	session, err := s.mutate(ctx, "add_to_cart", sessionID, func(session *domain.Session) (change, error) {
		if err := s.checkCartCapacity(session.Cart, 1); err != nil {
			return change{}, err
		}
		session.Cart.Add(item)
		return change{event: domain.EventCartItemAdded, itemIDs: []string{item.ID}}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCartAdd(cartSourceItem, 1)
		s.metrics.ObserveCartTotal(session.Cart.Total())
	}
	return s.snapshot(session), nil
}

// AddOutfitToCart переносит все занятые слоты манекена в корзину в порядке
// top, bottom, shoes, accessories. Манекен при этом не очищается.
// Пустой манекен - не ошибка: Available == false, корзина не меняется.
func (s *Service) AddOutfitToCart(ctx context.Context, sessionID string) (TransferResult, error) {
	defer s.observe("add_outfit_to_cart", time.Now())

	var added int
	session, err := s.mutate(ctx, "add_outfit_to_cart", sessionID, func(session *domain.Session) (change, error) {
		added = 0
		items := session.Outfit.Items()
		if len(items) == 0 {
			return change{noop: true}, nil
		}
		if err := s.checkCartCapacity(session.Cart, len(items)); err != nil {
			return change{}, err
		}
		added = session.Cart.AddOutfit(session.Outfit)
		return change{event: domain.EventCartOutfitAdded, itemIDs: itemIDs(items)}, nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOutfitTransfer(added > 0)
		if added > 0 {
			s.metrics.RecordCartAdd(cartSourceOutfit, added)
			s.metrics.ObserveCartTotal(session.Cart.Total())
		}
	}
	return TransferResult{
		Available: added > 0,
		Added:     added,
		Snapshot:  s.snapshot(session),
	}, nil
}

// RemoveFromCart убирает первую позицию с данным id. Отсутствие позиции - не ошибка.
func (s *Service) RemoveFromCart(ctx context.Context, sessionID, itemID string) (RemoveResult, error) {
	defer s.observe("remove_from_cart", time.Now())

	var removed bool
	session, err := s.mutate(ctx, "remove_from_cart", sessionID, func(session *domain.Session) (change, error) {
		removed = session.Cart.Remove(itemID)
		if !removed {
			return change{noop: true}, nil
		}
		return change{event: domain.EventCartItemRemoved, itemIDs: []string{itemID}}, nil
	})
	if err != nil {
		return RemoveResult{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordCartRemoval(removed)
	}
	return RemoveResult{Removed: removed, Snapshot: s.snapshot(session)}, nil
}

// Total возвращает сумму корзины, пересчитанную на момент чтения.
func (s *Service) Total(ctx context.Context, sessionID string) (int64, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return session.Cart.Total(), nil
}

// SetView переключает экран. Образ, корзина и hover не меняются.
func (s *Service) SetView(ctx context.Context, sessionID string, view domain.View) (Snapshot, error) {
	if !view.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", domain.ErrInvalidView, view)
	}

	session, err := s.mutate(ctx, "set_view", sessionID, func(session *domain.Session) (change, error) {
		if session.View == view {
			return change{noop: true}, nil
		}
		if err := session.SetView(view); err != nil {
			return change{}, err
		}
		return change{event: domain.EventSessionViewChanged}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordViewSwitch(string(view))
	}
	return s.snapshot(session), nil
}

// ToggleTheme переключает светлую/тёмную тему.
func (s *Service) ToggleTheme(ctx context.Context, sessionID string) (Snapshot, error) {
	session, err := s.mutate(ctx, "toggle_theme", sessionID, func(session *domain.Session) (change, error) {
		session.ToggleTheme()
		return change{event: domain.EventSessionThemeToggled}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordThemeToggle()
	}
	return s.snapshot(session), nil
}

func (s *Service) load(ctx context.Context, sessionID string) (domain.Session, error) {
	if sessionID == "" {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.WithError(err).WithField("session_id", sessionID).Error("failed to load session")
		}
		return domain.Session{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return session, nil
}

func (s *Service) lookupItem(ctx context.Context, itemID string) (domain.ClothingItem, error) {
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return domain.ClothingItem{}, fmt.Errorf("catalog item %q: %w", itemID, err)
	}
	return item, nil
}

// mutate применяет fn к свежей копии сессии и сохраняет её.
// При конфликте версий попытка повторяется с перечитыванием сессии.
func (s *Service) mutate(
	ctx context.Context,
	operation string,
	sessionID string,
	fn func(*domain.Session) (change, error),
) (domain.Session, error) {
	delay := s.retry.InitialDelay

	for attempt := 1; ; attempt++ {
		session, err := s.load(ctx, sessionID)
		if err != nil {
			return domain.Session{}, err
		}

		ch, err := fn(&session)
		if err != nil {
			return domain.Session{}, err
		}
		if ch.noop {
			return session, nil
		}

		session.Touch(s.now())
		err = s.sessions.Save(ctx, session)
		if err == nil {
			session.Version++
			if ch.event != "" {
				s.emitEvent(session, ch)
			}
			return session, nil
		}

		if !domain.IsVersionConflict(err) {
			s.logger.WithError(err).WithFields(log.Fields{
				"operation":  operation,
				"session_id": sessionID,
			}).Error("failed to save session")
			return domain.Session{}, fmt.Errorf("%s: save session %s: %w", operation, sessionID, err)
		}

		if s.metrics != nil {
			s.metrics.RecordVersionConflict()
		}
		if attempt >= s.retry.MaxAttempts {
			s.logger.WithFields(log.Fields{
				"operation":    operation,
				"session_id":   sessionID,
				"max_attempts": s.retry.MaxAttempts,
			}).Warn("session version conflict, giving up")
			return domain.Session{}, fmt.Errorf("%s: %w", operation, err)
		}

		s.logger.WithFields(log.Fields{
			"operation":  operation,
			"session_id": sessionID,
			"attempt":    attempt,
			"delay":      delay,
		}).Debug("session version conflict, retrying")

		if err := sleepContext(ctx, delay); err != nil {
			return domain.Session{}, err
		}
		delay = s.retry.nextDelay(delay)
	}
}

func (s *Service) checkCartCapacity(cart domain.Cart, adding int) error {
	if s.maxCartLines > 0 && cart.Len()+adding > s.maxCartLines {
		return fmt.Errorf("%w: %d + %d > %d", domain.ErrCartLimitExceeded, cart.Len(), adding, s.maxCartLines)
	}
	return nil
}

func (s *Service) emitEvent(session domain.Session, ch change) {
	if s.outbox == nil {
		return
	}

	payload := domain.SessionEvent{
		SessionID: session.ID,
		ItemIDs:   ch.itemIDs,
		Category:  ch.category,
		View:      session.View,
		Theme:     session.Theme,
		CartLines: session.Cart.Len(),
		CartTotal: session.Cart.Total(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"session_id": session.ID,
			"event":      ch.event,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: domain.AggregateSession,
		AggregateID:   session.ID,
		EventType:     string(ch.event),
		Payload:       data,
		CreatedAt:     s.now(),
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"session_id": session.ID,
			"event":      ch.event,
		}).Error("enqueue event failed")
	}
}

func (s *Service) observe(operation string, started time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOperationDuration(operation, time.Since(started))
	}
}

func sameHovered(a, b *domain.ClothingItem) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func itemIDs(items []domain.ClothingItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
