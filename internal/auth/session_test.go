package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnauthenticated(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no session", ErrNoSession, true},
		{"invalid token", ErrInvalidToken, true},
		{"wrapped invalid token", fmt.Errorf("%w: token is expired", ErrInvalidToken), true},
		{"store failure", errors.New("redis: connection refused"), false},
		{"pending login missing", ErrNoPendingLogin, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnauthenticated(tt.err))
		})
	}
}
