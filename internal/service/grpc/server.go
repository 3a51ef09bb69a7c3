// Package grpcsvc публикует операции витрины как gRPC-сервис storefront.v1.StorefrontService.
package grpcsvc

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/storefront"
)

// SessionIDHeader - metadata-ключ с id сессии посетителя.
const SessionIDHeader = "session-id"

// Storefront - операции витрины, которые публикует транспорт.
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

var _ Storefront = (*storefront.Service)(nil)

// Server реализует StorefrontServer поверх сервиса витрины.
type Server struct {
	service Storefront
	logger  *log.Entry
}

// NewServer конструирует gRPC-сервер витрины.
func NewServer(service Storefront, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "storefront-grpc")
	}
	return &Server{service: service, logger: logger}
}

var _ StorefrontServer = (*Server)(nil)

// CreateSession заводит сессию; session-id в metadata не требуется.
func (s *Server) CreateSession(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, err := s.service.CreateSession(ctx)
	if err != nil {
		return nil, s.toStatus(err, MethodCreateSession, "")
	}
	return s.structResponse(snap, MethodCreateSession)
}

// GetSession возвращает снимок состояния.
func (s *Server) GetSession(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.service.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, s.toStatus(err, MethodGetSession, sessionID)
	}
	return s.structResponse(snap, MethodGetSession)
}

// ListCatalog возвращает каталог.
func (s *Server) ListCatalog(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	items, err := s.service.Catalog(ctx)
	if err != nil {
		return nil, s.toStatus(err, MethodListCatalog, "")
	}
	list, err := toListValue(items)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode catalog")
		return nil, status.Error(codes.Internal, "failed to encode catalog")
	}
	return list, nil
}

func (s *Server) SelectForMannequin(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.itemAction(ctx, MethodSelectForMannequin, req, s.service.SelectForMannequin)
}

// SetHovered: пустая строка снимает превью.
func (s *Server) SetHovered(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.service.SetHovered(ctx, sessionID, strings.TrimSpace(req.GetValue()))
	if err != nil {
		return nil, s.toStatus(err, MethodSetHovered, sessionID)
	}
	return s.structResponse(snap, MethodSetHovered)
}

func (s *Server) AddToCart(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.itemAction(ctx, MethodAddToCart, req, s.service.AddToCart)
}

// AddOutfitToCart возвращает TransferResult; available=false при пустом манекене.
func (s *Server) AddOutfitToCart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.service.AddOutfitToCart(ctx, sessionID)
	if err != nil {
		return nil, s.toStatus(err, MethodAddOutfitToCart, sessionID)
	}
	return s.structResponse(result, MethodAddOutfitToCart)
}

// RemoveFromCart возвращает RemoveResult; отсутствующий id - removed=false.
func (s *Server) RemoveFromCart(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	itemID := strings.TrimSpace(req.GetValue())
	if itemID == "" {
		return nil, status.Error(codes.InvalidArgument, "item id is required")
	}
	result, err := s.service.RemoveFromCart(ctx, sessionID, itemID)
	if err != nil {
		return nil, s.toStatus(err, MethodRemoveFromCart, sessionID)
	}
	return s.structResponse(result, MethodRemoveFromCart)
}

func (s *Server) GetTotal(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.service.Total(ctx, sessionID)
	if err != nil {
		return nil, s.toStatus(err, MethodGetTotal, sessionID)
	}
	return wrapperspb.Int64(total), nil
}

func (s *Server) SetView(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	view, err := domain.ParseView(strings.TrimSpace(req.GetValue()))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	snap, err := s.service.SetView(ctx, sessionID, view)
	if err != nil {
		return nil, s.toStatus(err, MethodSetView, sessionID)
	}
	return s.structResponse(snap, MethodSetView)
}

func (s *Server) ToggleTheme(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.service.ToggleTheme(ctx, sessionID)
	if err != nil {
		return nil, s.toStatus(err, MethodToggleTheme, sessionID)
	}
	return s.structResponse(snap, MethodToggleTheme)
}

func (s *Server) itemAction(
	ctx context.Context,
	method string,
	req *wrapperspb.StringValue,
	action func(ctx context.Context, sessionID, itemID string) (storefront.Snapshot, error),
) (*structpb.Struct, error) {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return nil, err
	}
	itemID := strings.TrimSpace(req.GetValue())
	if itemID == "" {
		return nil, status.Error(codes.InvalidArgument, "item id is required")
	}
	snap, err := action(ctx, sessionID, itemID)
	if err != nil {
		return nil, s.toStatus(err, method, sessionID)
	}
	return s.structResponse(snap, method)
}

func (s *Server) structResponse(v any, method string) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		s.logger.WithError(err).WithField("method", method).Error("failed to encode response")
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// toStatus переводит доменные ошибки в gRPC-коды.
func (s *Server) toStatus(err error, method, sessionID string) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return status.Error(codes.NotFound, domain.ErrSessionNotFound.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidView), errors.Is(err, domain.ErrInvalidCategory):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrSessionVersionConflict):
		return status.Error(codes.Aborted, domain.ErrSessionVersionConflict.Error())
	case errors.Is(err, domain.ErrCartLimitExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.WithError(err).WithFields(log.Fields{
			"method":     method,
			"session_id": sessionID,
		}).Error("storefront operation failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func readSessionID(ctx context.Context) (string, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(SessionIDHeader)
		if len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0]), nil
		}
	}
	return "", status.Error(codes.InvalidArgument, SessionIDHeader+" metadata is required")
}
