package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsVersionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "version conflict error",
			err:  ErrSessionVersionConflict,
			want: true,
		},
		{
			name: "wrapped version conflict error",
			err:  fmt.Errorf("save session: %w", ErrSessionVersionConflict),
			want: true,
		},
		{
			name: "joined version conflict error",
			err:  errors.Join(ErrSessionVersionConflict, errors.New("additional context")),
			want: true,
		},
		{
			name: "other error",
			err:  ErrSessionNotFound,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVersionConflict(tt.err); got != tt.want {
				t.Errorf("IsVersionConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
