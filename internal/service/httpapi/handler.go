// Package httpapi - JSON API витрины для браузерного интерфейса.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/storefront"
)

// maxBodyBytes ограничивает тело запроса: все команды витрины - короткие JSON.
const maxBodyBytes = 4 << 10

// Storefront - операции витрины, которые публикует HTTP API.
type Storefront interface {
	CreateSession(ctx context.Context) (storefront.Snapshot, error)
	Snapshot(ctx context.Context, sessionID string) (storefront.Snapshot, error)
	Catalog(ctx context.Context) ([]storefront.ItemView, error)
	SelectForMannequin(ctx context.Context, sessionID, itemID string) (storefront.Snapshot, error)
	SetHovered(ctx context.Context, sessionID, itemID string) (storefront.Snapshot, error)
	AddToCart(ctx context.Context, sessionID, itemID string) (storefront.Snapshot, error)
	AddOutfitToCart(ctx context.Context, sessionID string) (storefront.TransferResult, error)
	RemoveFromCart(ctx context.Context, sessionID, itemID string) (storefront.RemoveResult, error)
	Total(ctx context.Context, sessionID string) (int64, error)
	SetView(ctx context.Context, sessionID string, view domain.View) (storefront.Snapshot, error)
	ToggleTheme(ctx context.Context, sessionID string) (storefront.Snapshot, error)
}

// ErrorResponse - единый формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TotalResponse - ответ GET .../cart/total.
type TotalResponse struct {
	Total        int64  `json:"total"`
	TotalDisplay string `json:"total_display"`
	CartCount    int    `json:"cart_count"`
}

type itemRequest struct {
	ItemID string `json:"item_id"`
}

type viewRequest struct {
	View string `json:"view"`
}

// Handler обслуживает /api/v1.
type Handler struct {
	service Storefront
	logger  *log.Entry
}

// NewHandler создаёт обработчик API.
func NewHandler(service Storefront, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "storefront-http")
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes регистрирует маршруты API в mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/catalog", h.handleCatalog)
	mux.HandleFunc("POST /api/v1/sessions", h.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.handleGetSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/outfit", h.handleSelectForMannequin)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/hover", h.handleSetHovered)
	mux.HandleFunc("POST /api/v1/sessions/{id}/cart", h.handleAddToCart)
	mux.HandleFunc("POST /api/v1/sessions/{id}/cart/outfit", h.handleAddOutfitToCart)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/cart/{itemID}", h.handleRemoveFromCart)
	mux.HandleFunc("GET /api/v1/sessions/{id}/cart/total", h.handleTotal)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/view", h.handleSetView)
	mux.HandleFunc("POST /api/v1/sessions/{id}/theme/toggle", h.handleToggleTheme)
}

// Routes возвращает готовый mux с API.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Catalog(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+snap.SessionID)
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), r.PathValue("id"))
	h.writeSnapshot(w, r, snap, err)
}

func (h *Handler) handleSelectForMannequin(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.readItemID(w, r, true)
	if !ok {
		return
	}
	snap, err := h.service.SelectForMannequin(r.Context(), r.PathValue("id"), itemID)
	h.writeSnapshot(w, r, snap, err)
}

// handleSetHovered: пустой item_id снимает превью.
func (h *Handler) handleSetHovered(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.readItemID(w, r, false)
	if !ok {
		return
	}
	snap, err := h.service.SetHovered(r.Context(), r.PathValue("id"), itemID)
	h.writeSnapshot(w, r, snap, err)
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.readItemID(w, r, true)
	if !ok {
		return
	}
	snap, err := h.service.AddToCart(r.Context(), r.PathValue("id"), itemID)
	h.writeSnapshot(w, r, snap, err)
}

func (h *Handler) handleAddOutfitToCart(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.AddOutfitToCart(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RemoveFromCart(r.Context(), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TotalResponse{
		Total:        snap.Total,
		TotalDisplay: snap.TotalDisplay,
		CartCount:    snap.CartCount,
	})
}

func (h *Handler) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := domain.ParseView(strings.TrimSpace(req.View))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_VIEW", err.Error())
		return
	}
	snap, err := h.service.SetView(r.Context(), r.PathValue("id"), view)
	h.writeSnapshot(w, r, snap, err)
}

func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.ToggleTheme(r.Context(), r.PathValue("id"))
	h.writeSnapshot(w, r, snap, err)
}

func (h *Handler) readItemID(w http.ResponseWriter, r *http.Request, required bool) (string, bool) {
	var req itemRequest
	if !h.decode(w, r, &req) {
		return "", false
	}
	itemID := strings.TrimSpace(req.ItemID)
	if required && itemID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "item_id is required")
		return "", false
	}
	return itemID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid JSON payload")
		return false
	}
	return true
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, r *http.Request, snap storefront.Snapshot, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeServiceError переводит доменные ошибки в HTTP-статусы.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found")
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInvalidView):
		writeError(w, http.StatusBadRequest, "INVALID_VIEW", err.Error())
	case errors.Is(err, domain.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "INVALID_CATEGORY", err.Error())
	case errors.Is(err, domain.ErrSessionVersionConflict):
		writeError(w, http.StatusConflict, "VERSION_CONFLICT", "session was modified concurrently, retry")
	case errors.Is(err, domain.ErrCartLimitExceeded):
		writeError(w, http.StatusUnprocessableEntity, "CART_LIMIT_EXCEEDED", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
	default:
		h.logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("storefront request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
