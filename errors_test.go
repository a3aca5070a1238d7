package session_test

import (
	"errors"
	"fmt"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"expired sentinel", session.ErrTokenExpired, true},
		{"wrapped expired", fmt.Errorf("validate: %w", session.ErrTokenExpired), true},
		{"library message", errors.New("token is expired by 3h"), true},
		{"malformed token", session.ErrTokenMalformed, false},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, session.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"malformed sentinel", session.ErrTokenMalformed, true},
		{"missing jwt message", errors.New("missing or malformed JWT"), true},
		{"expired token", session.ErrTokenExpired, false},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, session.IsMalformedError(tt.err))
		})
	}
}

func TestIsProfileNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"profile sentinel", session.ErrProfileNotFound, true},
		{"repository record not found", repository.NewRecordNotFound(), true},
		{"generic error", errors.New("connection refused"), false},
		{"auth error", session.ErrNotAuthenticated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, session.IsProfileNotFound(tt.err))
		})
	}
}
