package grpcsvc_test

import (
	"context"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/service/storefront"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

const bufSize = 1024 * 1024

func newTestClient(t *testing.T) *grpcsvc.Client {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	logger := loggerForTests()

	catalogRepo, err := memory.NewCatalogRepository(catalog.Default())
	require.NoError(t, err)
	service := storefront.New(catalogRepo, memory.NewSessionRepository(),
		storefront.WithLogger(logger.WithField("layer", "storefront")),
		storefront.WithPriceFormat(currency.RUB, language.English),
	)

	server := grpc.NewServer()
	grpcsvc.RegisterStorefrontServer(server, grpcsvc.NewServer(service, logger))

	go func() {
		if err := server.Serve(listener); err != nil {
			logger.WithError(err).Error("grpc serve failed")
		}
	}()

	dialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})

	return grpcsvc.NewClient(conn)
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected grpc status, got %v", err)
	require.Equal(t, code, st.Code(), st.Message())
}

func TestCreateSessionReturnsDefaults(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	snap, err := client.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, snap.SessionID)
	assert.Equal(t, domain.ViewHome, snap.View)
	assert.Equal(t, domain.ThemeLight, snap.Theme)
	assert.Nil(t, snap.Hovered)
	assert.Empty(t, snap.Cart)
	assert.Zero(t, snap.Total)
	assert.False(t, snap.OutfitTransferAvailable)
	require.Len(t, snap.Outfit, 4)
	for i, category := range domain.Categories() {
		assert.Equal(t, category, snap.Outfit[i].Category)
		assert.Nil(t, snap.Outfit[i].Item)
	}
}

func TestListCatalog(t *testing.T) {
	client := newTestClient(t)

	items, err := client.ListCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 6)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, int64(3500), items[0].Price)
	assert.Equal(t, domain.CategoryTop, items[0].Category)
	assert.Equal(t, "3,500 ₽", items[0].PriceDisplay)
}

func TestOutfitAndCartFlow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	snap, err := client.CreateSession(ctx)
	require.NoError(t, err)
	id := snap.SessionID

	_, err = client.SelectForMannequin(ctx, id, "1")
	require.NoError(t, err)
	_, err = client.SelectForMannequin(ctx, id, "5")
	require.NoError(t, err)
	snap, err = client.SelectForMannequin(ctx, id, "3")
	require.NoError(t, err)
	require.NotNil(t, snap.Outfit[0].Item)
	assert.Equal(t, "5", snap.Outfit[0].Item.ID)
	assert.Nil(t, snap.Outfit[1].Item)
	require.NotNil(t, snap.Outfit[2].Item)
	assert.Equal(t, "3", snap.Outfit[2].Item.ID)
	assert.True(t, snap.OutfitTransferAvailable)

	transfer, err := client.AddOutfitToCart(ctx, id)
	require.NoError(t, err)
	assert.True(t, transfer.Available)
	assert.Equal(t, 2, transfer.Added)
	require.Len(t, transfer.Snapshot.Cart, 2)
	assert.Equal(t, "5", transfer.Snapshot.Cart[0].ID)
	assert.Equal(t, "3", transfer.Snapshot.Cart[1].ID)

	snap, err = client.AddToCart(ctx, id, "5")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.CartCount)

	total, err := client.GetTotal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2800+8500+2800), total)

	removed, err := client.RemoveFromCart(ctx, id, "5")
	require.NoError(t, err)
	assert.True(t, removed.Removed)
	require.Len(t, removed.Snapshot.Cart, 2)
	assert.Equal(t, "3", removed.Snapshot.Cart[0].ID)
	assert.Equal(t, "5", removed.Snapshot.Cart[1].ID)

	removed, err = client.RemoveFromCart(ctx, id, "4")
	require.NoError(t, err)
	assert.False(t, removed.Removed)
	assert.Len(t, removed.Snapshot.Cart, 2)
}

func TestEmptyOutfitTransferIsUnavailable(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	snap, err := client.CreateSession(ctx)
	require.NoError(t, err)

	transfer, err := client.AddOutfitToCart(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.False(t, transfer.Available)
	assert.Zero(t, transfer.Added)
	assert.Empty(t, transfer.Snapshot.Cart)
}

func TestViewThemeAndHover(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	snap, err := client.CreateSession(ctx)
	require.NoError(t, err)
	id := snap.SessionID

	snap, err = client.SetHovered(ctx, id, "2")
	require.NoError(t, err)
	require.NotNil(t, snap.Hovered)
	assert.Equal(t, "2", snap.Hovered.ID)
	assert.Nil(t, snap.Outfit[1].Item)

	snap, err = client.SetHovered(ctx, id, "")
	require.NoError(t, err)
	assert.Nil(t, snap.Hovered)

	snap, err = client.SetView(ctx, id, domain.ViewCart)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewCart, snap.View)

	snap, err = client.ToggleTheme(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeDark, snap.Theme)

	snap, err = client.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewCart, snap.View)
	assert.Equal(t, domain.ThemeDark, snap.Theme)
}

func TestErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	snap, err := client.CreateSession(ctx)
	require.NoError(t, err)

	_, err = client.GetSession(ctx, "missing")
	requireCode(t, err, codes.NotFound)

	_, err = client.AddToCart(ctx, snap.SessionID, "404")
	requireCode(t, err, codes.NotFound)

	_, err = client.AddToCart(ctx, snap.SessionID, "  ")
	requireCode(t, err, codes.InvalidArgument)

	_, err = client.SetView(ctx, snap.SessionID, domain.View("checkout"))
	requireCode(t, err, codes.InvalidArgument)

	// Без session-id в metadata.
	_, err = client.GetTotal(ctx, "")
	requireCode(t, err, codes.InvalidArgument)
}

func TestRawInvokeWithoutMetadata(t *testing.T) {
	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	grpcsvc.RegisterStorefrontServer(server, grpcsvc.NewServer(nil, loggerForTests()))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return listener.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	err = conn.Invoke(context.Background(), grpcsvc.FullMethod(grpcsvc.MethodToggleTheme), &emptypb.Empty{}, &emptypb.Empty{})
	requireCode(t, err, codes.InvalidArgument)
}

func TestServiceDescriptorIsRegistered(t *testing.T) {
	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(protoreflect.FullName(grpcsvc.ServiceName))
	require.NoError(t, err)

	service, ok := desc.(protoreflect.ServiceDescriptor)
	require.True(t, ok)
	require.Equal(t, len(grpcsvc.StorefrontServiceDesc.Methods), service.Methods().Len())

	method := service.Methods().ByName(grpcsvc.MethodGetTotal)
	require.NotNil(t, method)
	assert.Equal(t, protoreflect.FullName("google.protobuf.Empty"), method.Input().FullName())
	assert.Equal(t, protoreflect.FullName("google.protobuf.Int64Value"), method.Output().FullName())
}
