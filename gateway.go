package session

import (
	"context"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// MinPasswordLength is enforced locally before any backend call is made.
const MinPasswordLength = 6

// defaultPhoneRegion resolves national numbers without a leading +.
var defaultPhoneRegion = "US"

// Gateway wraps every session mutation: sign-up, sign-in, sign-out,
// password changes, and profile updates. All methods validate locally
// before touching the backend, set an in-flight flag for their duration,
// and return (value, error) pairs rather than panicking across the caller
// boundary.
type Gateway struct {
	backend  Backend
	store    *Store
	cache    *ProfileCache
	profiles ProfileStore
	nav      Navigator
	logger   Logger
	provider LoggerProvider

	defaultRoute string
	inflight     atomic.Int32
}

type GatewayOption func(*Gateway)

func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *Gateway) {
		g.provider, g.logger = ResolveLogger("session.gateway", g.provider, logger)
	}
}

// WithGatewayLoggerProvider resolves the gateway logger by name from the
// embedding application's logging setup.
func WithGatewayLoggerProvider(provider LoggerProvider) GatewayOption {
	return func(g *Gateway) {
		g.provider, g.logger = ResolveLogger("session.gateway", provider, g.logger)
	}
}

// WithNavigator sets the navigation primitive invoked after sign-out.
func WithNavigator(nav Navigator) GatewayOption {
	return func(g *Gateway) {
		g.nav = nav
	}
}

// WithDefaultRoute overrides the post-sign-out destination.
func WithDefaultRoute(route string) GatewayOption {
	return func(g *Gateway) {
		if route != "" {
			g.defaultRoute = route
		}
	}
}

// NewGateway wires a Gateway. The profile store is used for best-effort
// provisioning on sign-up and for write-through profile updates.
func NewGateway(backend Backend, store *Store, cache *ProfileCache, profiles ProfileStore, opts ...GatewayOption) *Gateway {
	provider, logger := ResolveLogger("session.gateway", nil, nil)
	g := &Gateway{
		backend:      backend,
		store:        store,
		cache:        cache,
		profiles:     profiles,
		logger:       logger,
		provider:     provider,
		defaultRoute: "/",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// InFlight reports whether any mutation is currently outstanding.
func (g *Gateway) InFlight() bool {
	return g.inflight.Load() > 0
}

// begin marks a mutation in flight; the returned func clears it and is
// always deferred so the flag resets on every exit path.
func (g *Gateway) begin() func() {
	g.inflight.Add(1)
	return func() { g.inflight.Add(-1) }
}

// SignUpPayload carries the registration form values.
type SignUpPayload struct {
	Email    string         `form:"email" json:"email"`
	Password string         `form:"password" json:"password"`
	FullName string         `form:"full_name" json:"full_name"`
	Extra    map[string]any `form:"-" json:"extra,omitempty"`
}

// Validate will run validation rules
func (p SignUpPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(&p.FullName, validation.Length(0, 200)),
	)
}

// SignUp registers the account, then best-effort inserts the profile row.
// Profile provisioning failure is logged but never fails the sign-up; the
// missing row is recreated by the cache on first read.
func (g *Gateway) SignUp(ctx context.Context, payload SignUpPayload) (*AuthUser, error) {
	defer g.begin()()

	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signup payload")
	}

	user, err := g.backend.SignUp(ctx, payload.Email, payload.Password, payload.Extra)
	if err != nil {
		return nil, err
	}

	fullName := payload.FullName
	if fullName == "" {
		fullName = NameFromEmail(user.Email)
	}

	record := &Profile{
		ID:       user.ID,
		Email:    user.Email,
		FullName: fullName,
		Role:     RoleUser,
	}

	if created, perr := g.profiles.Create(ctx, record); perr != nil {
		g.logger.Warn("profile provisioning failed after signup", "user_id", user.ID, "error", perr)
	} else if g.cache != nil {
		g.cache.Put(created)
	}

	return user, nil
}

// SignInPayload carries the login form values.
type SignInPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (p SignInPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

// SignIn delegates to the backend and propagates its error verbatim, no
// retries. The Store is updated by the Synchronizer's event path, keeping a
// single writer for auth state.
func (g *Gateway) SignIn(ctx context.Context, payload SignInPayload) (*AuthUser, error) {
	defer g.begin()()

	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid signin payload")
	}

	return g.backend.SignIn(ctx, payload.Email, payload.Password)
}

// SignOut clears local state unconditionally, then reports the backend
// outcome. The deferred block guarantees the Store and cache reset even if
// the remote call fails, and navigation to the default route happens either
// way. Signing out while already signed out is a no-op for the caller.
func (g *Gateway) SignOut(ctx context.Context) error {
	defer g.begin()()

	defer func() {
		g.store.Reset()
		if g.cache != nil {
			g.cache.InvalidateAll()
		}
		if g.nav != nil {
			g.nav.Navigate(g.defaultRoute)
		}
	}()

	if err := g.backend.SignOut(ctx); err != nil {
		g.logger.Warn("backend sign-out failed, local state cleared anyway", "error", err)
		return err
	}

	return nil
}

// ResetPassword asks the backend to send a reset notification.
func (g *Gateway) ResetPassword(ctx context.Context, email string) error {
	defer g.begin()()

	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email for password reset")
	}

	return g.backend.SendPasswordReset(ctx, email)
}

// UpdatePassword changes the signed-in user's password. Short passwords are
// rejected locally with no backend call.
func (g *Gateway) UpdatePassword(ctx context.Context, newPassword string) error {
	defer g.begin()()

	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	if !g.store.Snapshot().Authenticated() {
		return ErrNotAuthenticated
	}

	return g.backend.UpdatePassword(ctx, newPassword)
}

// UpdateProfile writes profile changes through to the store and replaces
// the cache entry with the server-returned row. Requires a signed-in user.
func (g *Gateway) UpdateProfile(ctx context.Context, changes ProfileChanges) (*Profile, error) {
	defer g.begin()()

	snapshot := g.store.Snapshot()
	if !snapshot.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	if changes.isEmpty() {
		return nil, goerrors.New("no profile changes provided", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := normalizePhone(&changes); err != nil {
		return nil, err
	}

	updated, err := g.profiles.Update(ctx, snapshot.User.ID, changes)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.Put(updated)
	}

	return updated, nil
}

// normalizePhone validates and E.164-formats the phone change in place.
func normalizePhone(changes *ProfileChanges) error {
	if changes.Phone == nil || *changes.Phone == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(*changes.Phone, defaultPhoneRegion)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	formatted := phonenumbers.Format(parsed, phonenumbers.E164)
	changes.Phone = &formatted
	return nil
}
