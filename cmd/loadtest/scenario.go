package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/storefront"
)

// storefrontClient - подмножество grpcsvc.Client, которое гоняет нагрузка.
type storefrontClient interface {
	CreateSession(ctx context.Context, opts ...grpc.CallOption) (storefront.Snapshot, error)
	GetSession(ctx context.Context, sessionID string, opts ...grpc.CallOption) (storefront.Snapshot, error)
	ListCatalog(ctx context.Context, opts ...grpc.CallOption) ([]storefront.ItemView, error)
	SelectForMannequin(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.Snapshot, error)
	SetHovered(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.Snapshot, error)
	AddToCart(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.Snapshot, error)
	AddOutfitToCart(ctx context.Context, sessionID string, opts ...grpc.CallOption) (storefront.TransferResult, error)
	RemoveFromCart(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.RemoveResult, error)
	GetTotal(ctx context.Context, sessionID string, opts ...grpc.CallOption) (int64, error)
}

// errInvariant - сервер ответил OK, но состояние не совпало с локальной моделью.
var errInvariant = errors.New("storefront invariant violated")

type scenarioRunner struct {
	client  storefrontClient
	timeout time.Duration
	col     *collector
	catalog []storefront.ItemView
	faker   *gofakeit.Faker
}

func (r *scenarioRunner) run(mode loadMode) error {
	started := time.Now()
	err := r.dispatch(mode)

	code := grpcCode(err)
	if errors.Is(err, errInvariant) {
		code = codes.DataLoss
		r.col.invariantBroken()
	}
	r.col.record(scenarioMethod, time.Since(started), code)
	return err
}

func (r *scenarioRunner) dispatch(mode loadMode) error {
	switch mode {
	case modeBrowse:
		return r.browse()
	case modeOutfit:
		return r.outfit()
	case modeCart:
		return r.cart()
	default:
		return fmt.Errorf("unsupported mode: %s", mode)
	}
}

// browse: превью товара не меняет образ.
func (r *scenarioRunner) browse() error {
	session, err := call(r, "CreateSession", func(ctx context.Context) (storefront.Snapshot, error) {
		return r.client.CreateSession(ctx)
	})
	if err != nil {
		return err
	}

	item := r.randomItem()
	if _, err := call(r, "SetHovered", func(ctx context.Context) (storefront.Snapshot, error) {
		return r.client.SetHovered(ctx, session.SessionID, item.ID)
	}); err != nil {
		return err
	}

	snap, err := call(r, "GetSession", func(ctx context.Context) (storefront.Snapshot, error) {
		return r.client.GetSession(ctx, session.SessionID)
	})
	if err != nil {
		return err
	}
	if snap.Hovered == nil || snap.Hovered.ID != item.ID {
		return fmt.Errorf("%w: hovered item mismatch", errInvariant)
	}
	if snap.OutfitTransferAvailable {
		return fmt.Errorf("%w: hover changed the outfit", errInvariant)
	}
	return nil
}

// outfit: несколько примерок подряд, перенос образа, сверка суммы.
func (r *scenarioRunner) outfit() error {
	session, err := call(r, "CreateSession", func(ctx context.Context) (storefront.Snapshot, error) {
		return r.client.CreateSession(ctx)
	})
	if err != nil {
		return err
	}

	slots := make(map[domain.Category]storefront.ItemView)
	for i := r.faker.IntRange(1, 4); i > 0; i-- {
		item := r.randomItem()
		if _, err := call(r, "SelectForMannequin", func(ctx context.Context) (storefront.Snapshot, error) {
			return r.client.SelectForMannequin(ctx, session.SessionID, item.ID)
		}); err != nil {
			return err
		}
		slots[item.Category] = item
	}

	transfer, err := call(r, "AddOutfitToCart", func(ctx context.Context) (storefront.TransferResult, error) {
		return r.client.AddOutfitToCart(ctx, session.SessionID)
	})
	if err != nil {
		return err
	}
	if !transfer.Available || transfer.Added != len(slots) {
		return fmt.Errorf("%w: transferred %d lines, want %d", errInvariant, transfer.Added, len(slots))
	}

	var want int64
	for _, item := range slots {
		want += item.Price
	}
	return r.checkTotal(session.SessionID, want)
}

// cart: добавления с дублями и удаление первого совпадения.
func (r *scenarioRunner) cart() error {
	session, err := call(r, "CreateSession", func(ctx context.Context) (storefront.Snapshot, error) {
		return r.client.CreateSession(ctx)
	})
	if err != nil {
		return err
	}

	var added []storefront.ItemView
	var want int64
	for i := r.faker.IntRange(1, 5); i > 0; i-- {
		item := r.randomItem()
		if _, err := call(r, "AddToCart", func(ctx context.Context) (storefront.Snapshot, error) {
			return r.client.AddToCart(ctx, session.SessionID, item.ID)
		}); err != nil {
			return err
		}
		added = append(added, item)
		want += item.Price
	}

	victim := added[r.faker.IntRange(0, len(added)-1)]
	removed, err := call(r, "RemoveFromCart", func(ctx context.Context) (storefront.RemoveResult, error) {
		return r.client.RemoveFromCart(ctx, session.SessionID, victim.ID)
	})
	if err != nil {
		return err
	}
	if !removed.Removed || len(removed.Snapshot.Cart) != len(added)-1 {
		return fmt.Errorf("%w: remove of %s left %d lines", errInvariant, victim.ID, len(removed.Snapshot.Cart))
	}
	return r.checkTotal(session.SessionID, want-victim.Price)
}

func (r *scenarioRunner) checkTotal(sessionID string, want int64) error {
	total, err := call(r, "GetTotal", func(ctx context.Context) (int64, error) {
		return r.client.GetTotal(ctx, sessionID)
	})
	if err != nil {
		return err
	}
	if total != want {
		return fmt.Errorf("%w: total %d, want %d", errInvariant, total, want)
	}
	return nil
}

func (r *scenarioRunner) randomItem() storefront.ItemView {
	return r.catalog[r.faker.IntRange(0, len(r.catalog)-1)]
}

// call выполняет один RPC с таймаутом и записывает его задержку.
func call[T any](r *scenarioRunner, method string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	out, err := fn(ctx)
	r.col.record(method, time.Since(start), grpcCode(err))
	return out, err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
