package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestToStatusMapping(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s := NewServer(nil, logger.WithField("component", "test"))

	cases := []struct {
		err  error
		code codes.Code
	}{
		{domain.ErrSessionNotFound, codes.NotFound},
		{fmt.Errorf("lookup: %w", domain.ErrItemNotFound), codes.NotFound},
		{fmt.Errorf("%w: %q", domain.ErrInvalidView, "x"), codes.InvalidArgument},
		{domain.ErrInvalidCategory, codes.InvalidArgument},
		{fmt.Errorf("save: %w", domain.ErrSessionVersionConflict), codes.Aborted},
		{domain.ErrCartLimitExceeded, codes.ResourceExhausted},
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}

	for _, tc := range cases {
		st, ok := status.FromError(s.toStatus(tc.err, MethodAddToCart, "sess"))
		require.True(t, ok)
		require.Equal(t, tc.code, st.Code(), tc.err.Error())
	}
}

func TestReadSessionID(t *testing.T) {
	_, err := readSessionID(context.Background())
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(SessionIDHeader, "  "))
	_, err = readSessionID(ctx)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(SessionIDHeader, " abc "))
	id, err := readSessionID(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc", id)
}

func TestConvertRoundTripKeepsNulls(t *testing.T) {
	type dto struct {
		Name  string  `json:"name"`
		Price int64   `json:"price"`
		Ptr   *string `json:"ptr"`
	}

	st, err := toStruct(dto{Name: "Рубашка", Price: 3500})
	require.NoError(t, err)
	require.Equal(t, float64(3500), st.Fields["price"].GetNumberValue())

	var back dto
	require.NoError(t, fromProto(st, &back))
	require.Equal(t, dto{Name: "Рубашка", Price: 3500}, back)
}
