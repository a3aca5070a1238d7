package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// AuthUser is the bare authentication identity held by the backend,
// distinct from the application Profile record.
type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthEventType identifies the backend auth-change notifications we react to.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "signed_in"
	AuthEventSignedOut      AuthEventType = "signed_out"
	AuthEventTokenRefreshed AuthEventType = "token_refreshed"
)

// AuthEvent is a single auth-change notification emitted by the backend.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	User       *AuthUser     `json:"user,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Backend is the hosted auth service client. We treat it as a black box:
// the reference LocalBackend implements it over Bun, hosted providers plug
// in their own client.
type Backend interface {
	// CurrentUser returns the identity of the active backend session, or
	// (nil, nil) when nobody is signed in.
	CurrentUser(ctx context.Context) (*AuthUser, error)

	// Subscribe registers a listener for auth-change events. Events are
	// delivered in emission order. The returned function detaches the
	// listener.
	Subscribe(fn func(AuthEvent)) (cancel func())

	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthUser, error)
	SignIn(ctx context.Context, email, password string) (*AuthUser, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
}

// ProfileStore retrieves and persists Profile rows keyed by user id.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Create(ctx context.Context, record *Profile) (*Profile, error)
	Update(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*Profile, error)
	GetOrCreate(ctx context.Context, record *Profile) (*Profile, error)
}

// Navigator abstracts the routing primitive consumed after sign-out.
type Navigator interface {
	Navigate(path string)
	Location() string
}

// NavigatorFunc adapts a function into a Navigator with no location.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	if f != nil {
		f(path)
	}
}

func (f NavigatorFunc) Location() string { return "" }

// Config holds session options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetLoginRoute() string
	GetDefaultRoute() string
	GetProfileFreshness() time.Duration
	GetProfileRetention() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
