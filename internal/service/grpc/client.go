package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/storefront"
)

// Client - типизированный клиент storefront.v1.StorefrontService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient оборачивает соединение.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) CreateSession(ctx context.Context, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	return c.snapshotCall(ctx, "", MethodCreateSession, &emptypb.Empty{}, opts...)
}

func (c *Client) GetSession(ctx context.Context, sessionID string, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	return c.snapshotCall(ctx, sessionID, MethodGetSession, &emptypb.Empty{}, opts...)
}

func (c *Client) ListCatalog(ctx context.Context, opts ...grpc.CallOption) ([]storefront.ItemView, error) {
	out := &structpb.ListValue{}
	if err := c.invoke(ctx, "", MethodListCatalog, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	var items []storefront.ItemView
	if err := fromProto(out, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) SelectForMannequin(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	return c.snapshotCall(ctx, sessionID, MethodSelectForMannequin, wrapperspb.String(itemID), opts...)
}

// SetHovered с пустым itemID снимает превью.
func (c *Client) SetHovered(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	return c.snapshotCall(ctx, sessionID, MethodSetHovered, wrapperspb.String(itemID), opts...)
}

func (c *Client) AddToCart(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	return c.snapshotCall(ctx, sessionID, MethodAddToCart, wrapperspb.String(itemID), opts...)
}

func (c *Client) AddOutfitToCart(ctx context.Context, sessionID string, opts ...grpc.CallOption) (storefront.TransferResult, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, sessionID, MethodAddOutfitToCart, &emptypb.Empty{}, out, opts...); err != nil {
		return storefront.TransferResult{}, err
	}
	var result storefront.TransferResult
	if err := fromProto(out, &result); err != nil {
		return storefront.TransferResult{}, err
	}
	return result, nil
}

func (c *Client) RemoveFromCart(ctx context.Context, sessionID, itemID string, opts ...grpc.CallOption) (storefront.RemoveResult, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, sessionID, MethodRemoveFromCart, wrapperspb.String(itemID), out, opts...); err != nil {
		return storefront.RemoveResult{}, err
	}
	var result storefront.RemoveResult
	if err := fromProto(out, &result); err != nil {
		return storefront.RemoveResult{}, err
	}
	return result, nil
}

func (c *Client) GetTotal(ctx context.Context, sessionID string, opts ...grpc.CallOption) (int64, error) {
	out := &wrapperspb.Int64Value{}
	if err := c.invoke(ctx, sessionID, MethodGetTotal, &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *Client) SetView(ctx context.Context, sessionID string, view domain.View, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	return c.snapshotCall(ctx, sessionID, MethodSetView, wrapperspb.String(string(view)), opts...)
}

func (c *Client) ToggleTheme(ctx context.Context, sessionID string, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	return c.snapshotCall(ctx, sessionID, MethodToggleTheme, &emptypb.Empty{}, opts...)
}

func (c *Client) snapshotCall(ctx context.Context, sessionID, method string, in proto.Message, opts ...grpc.CallOption) (storefront.Snapshot, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, sessionID, method, in, out, opts...); err != nil {
		return storefront.Snapshot{}, err
	}
	var snap storefront.Snapshot
	if err := fromProto(out, &snap); err != nil {
		return storefront.Snapshot{}, err
	}
	return snap, nil
}

func (c *Client) invoke(ctx context.Context, sessionID, method string, in, out proto.Message, opts ...grpc.CallOption) error {
	if sessionID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, SessionIDHeader, sessionID)
	}
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}
