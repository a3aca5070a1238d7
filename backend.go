package session

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LocalBackend is the reference Backend implementation: bcrypt credentials
// over the Users repository, JWT session tokens, and in-process auth-change
// fan-out. Hosted providers supply their own Backend; this one keeps the
// whole stack runnable without external services and backs the test suite.
type LocalBackend struct {
	repo     RepositoryManager
	tokens   TokenService
	logger   Logger
	provider LoggerProvider

	mu      sync.Mutex
	current *AuthUser
	subs    map[int]func(AuthEvent)
	nextID  int
	now     func() time.Time
}

var _ Backend = (*LocalBackend)(nil)

type LocalBackendOption func(*LocalBackend)

func WithBackendLogger(logger Logger) LocalBackendOption {
	return func(b *LocalBackend) {
		b.provider, b.logger = ResolveLogger("session.backend", b.provider, logger)
	}
}

// WithBackendLoggerProvider resolves the backend logger by name from the
// embedding application's logging setup.
func WithBackendLoggerProvider(provider LoggerProvider) LocalBackendOption {
	return func(b *LocalBackend) {
		b.provider, b.logger = ResolveLogger("session.backend", provider, b.logger)
	}
}

// WithBackendTokenService enables IssueToken for session token minting.
func WithBackendTokenService(tokens TokenService) LocalBackendOption {
	return func(b *LocalBackend) {
		b.tokens = tokens
	}
}

func WithBackendClock(clock func() time.Time) LocalBackendOption {
	return func(b *LocalBackend) {
		if clock != nil {
			b.now = clock
		}
	}
}

func NewLocalBackend(repo RepositoryManager, opts ...LocalBackendOption) *LocalBackend {
	provider, logger := ResolveLogger("session.backend", nil, nil)
	b := &LocalBackend{
		repo:     repo,
		logger:   logger,
		provider: provider,
		subs:     map[int]func(AuthEvent){},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// CurrentUser returns the active session identity, (nil, nil) when signed out.
func (b *LocalBackend) CurrentUser(ctx context.Context) (*AuthUser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return nil, nil
	}

	user := *b.current
	return &user, nil
}

// Subscribe registers an auth-change listener. Events are delivered inline
// in emission order. The returned function detaches the listener.
func (b *LocalBackend) Subscribe(fn func(AuthEvent)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// SignUp creates the auth identity and starts a session for it. The user id
// is derived deterministically from the email so repeated provisioning is
// stable across environments.
func (b *LocalBackend) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthUser, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	record := &User{
		Email:        email,
		PasswordHash: hash,
	}

	if id, err := hashid.NewUUID(email); err == nil {
		record.ID = id
	}

	err = b.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := b.repo.Users().RegisterTx(ctx, tx, record)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}
		record = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	user := &AuthUser{ID: record.ID, Email: record.Email}
	b.setCurrent(user)
	b.emit(AuthEvent{Type: AuthEventSignedIn, User: user, OccurredAt: b.now()})

	return user, nil
}

// SignIn verifies credentials and starts a session. Lookup misses and hash
// mismatches collapse into the same error.
func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (*AuthUser, error) {
	record, err := b.repo.Users().GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during sign in")
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		return nil, err
	}

	user := &AuthUser{ID: record.ID, Email: record.Email}
	b.setCurrent(user)
	b.emit(AuthEvent{Type: AuthEventSignedIn, User: user, OccurredAt: b.now()})

	return user, nil
}

// SignOut ends the session. Signing out without a session is a no-op: the
// signed-out event is only emitted when a user was present.
func (b *LocalBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	hadUser := b.current != nil
	b.current = nil
	b.mu.Unlock()

	if hadUser {
		b.emit(AuthEvent{Type: AuthEventSignedOut, OccurredAt: b.now()})
	}

	return nil
}

// SendPasswordReset records a reset request for the account. Notification
// delivery is the embedding application's concern.
func (b *LocalBackend) SendPasswordReset(ctx context.Context, email string) error {
	record, err := b.repo.Users().GetByIdentifier(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// do not leak which accounts exist
			b.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	reset := &PasswordReset{
		ID:     uuid.New(),
		UserID: &record.ID,
		Email:  record.Email,
		Status: ResetRequestedStatus,
	}

	if _, err := b.repo.PasswordResets().Create(ctx, reset); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record password reset request")
	}

	return nil
}

// UpdatePassword rehashes and persists the active user's password, then
// refreshes the session.
func (b *LocalBackend) UpdatePassword(ctx context.Context, newPassword string) error {
	b.mu.Lock()
	current := b.current
	b.mu.Unlock()

	if current == nil {
		return ErrNotAuthenticated
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	if err := b.repo.Users().ResetPassword(ctx, current.ID, hash); err != nil {
		return err
	}

	user := *current
	b.emit(AuthEvent{Type: AuthEventTokenRefreshed, User: &user, OccurredAt: b.now()})

	return nil
}

// IssueToken mints a session token for the active user, embedding the
// profile role when a row exists.
func (b *LocalBackend) IssueToken(ctx context.Context) (string, error) {
	if b.tokens == nil {
		return "", goerrors.New("token service not configured", goerrors.CategoryInternal)
	}

	b.mu.Lock()
	current := b.current
	b.mu.Unlock()

	if current == nil {
		return "", ErrNotAuthenticated
	}

	role := RoleUser
	if profile, err := b.repo.Profiles().GetByID(ctx, current.ID); err == nil {
		role = RoleOrDefault(profile)
	}

	return b.tokens.Generate(current, role)
}

func (b *LocalBackend) setCurrent(user *AuthUser) {
	b.mu.Lock()
	b.current = user
	b.mu.Unlock()
}

// emit delivers the event to subscribers in registration order, outside the
// state lock so handlers can call back into the backend.
func (b *LocalBackend) emit(ev AuthEvent) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	listeners := make([]func(AuthEvent), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
