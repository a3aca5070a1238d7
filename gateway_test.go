package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGatewayFixture() (*MockBackend, *session.Store, *session.ProfileCache, *MockProfileStore) {
	backend := &MockBackend{}
	store := session.NewStore()
	profiles := &MockProfileStore{}
	cache := session.NewProfileCache(profiles, backend)
	return backend, store, cache, profiles
}

func TestGatewaySignUpProvisionsProfile(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	user := testUser()

	backend.On("SignUp", mock.Anything, user.Email, "secret123", mock.Anything).Return(user, nil)
	profiles.On("Create", mock.Anything, mock.MatchedBy(func(p *session.Profile) bool {
		return p.ID == user.ID && p.Role == session.RoleUser && p.FullName == "Ada Lovelace"
	})).Return(&session.Profile{
		ID:       user.ID,
		Email:    user.Email,
		FullName: "Ada Lovelace",
		Role:     session.RoleUser,
	}, nil)

	gateway := session.NewGateway(backend, store, cache, profiles)

	got, err := gateway.SignUp(context.Background(), session.SignUpPayload{
		Email:    user.Email,
		Password: "secret123",
		FullName: "Ada Lovelace",
	})

	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// the created row lands in the cache write-through
	cached, ok := cache.Peek(user.ID)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", cached.FullName)

	profiles.AssertExpectations(t)
}

func TestGatewaySignUpProfileFailureIsBestEffort(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	user := testUser()

	backend.On("SignUp", mock.Anything, user.Email, "secret123", mock.Anything).Return(user, nil)
	profiles.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("unique violation"))

	gateway := session.NewGateway(backend, store, cache, profiles)

	got, err := gateway.SignUp(context.Background(), session.SignUpPayload{
		Email:    user.Email,
		Password: "secret123",
	})

	// sign up still succeeds, the row is recreated on first cache read
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, ok := cache.Peek(user.ID)
	assert.False(t, ok)
}

func TestGatewaySignUpValidatesBeforeBackend(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	gateway := session.NewGateway(backend, store, cache, profiles)

	_, err := gateway.SignUp(context.Background(), session.SignUpPayload{
		Email:    "not-an-email",
		Password: "secret123",
	})
	require.Error(t, err)

	_, err = gateway.SignUp(context.Background(), session.SignUpPayload{
		Email:    "ada@example.com",
		Password: "short",
	})
	require.Error(t, err)

	backend.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGatewaySignInDelegatesVerbatim(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	user := testUser()

	backend.On("SignIn", mock.Anything, user.Email, "secret123").Return(user, nil)

	gateway := session.NewGateway(backend, store, cache, profiles)

	got, err := gateway.SignIn(context.Background(), session.SignInPayload{
		Email:    user.Email,
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// state updates flow through the synchronizer event path, not here
	assert.False(t, store.Snapshot().Authenticated())
}

func TestGatewaySignInBackendErrorPropagates(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()

	backend.On("SignIn", mock.Anything, "ada@example.com", "wrong").
		Return(nil, session.ErrMismatchedHashAndPassword)

	gateway := session.NewGateway(backend, store, cache, profiles)

	_, err := gateway.SignIn(context.Background(), session.SignInPayload{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, session.ErrMismatchedHashAndPassword)
}

func TestGatewaySignOutClearsLocalStateOnBackendFailure(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	user := testUser()

	store.Replace(session.State{User: user, InitialCheckComplete: true})
	cache.Put(&session.Profile{ID: user.ID, Email: user.Email, Role: session.RoleUser})

	backend.On("SignOut", mock.Anything).Return(errors.New("network down"))

	nav := &navRecorder{}
	gateway := session.NewGateway(backend, store, cache, profiles,
		session.WithNavigator(nav),
	)

	err := gateway.SignOut(context.Background())
	require.Error(t, err)

	// local teardown happens regardless of the remote failure
	assert.False(t, store.Snapshot().Authenticated())
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, []string{"/"}, nav.Visits())
}

func TestGatewaySignOutWhileSignedOutIsNoOp(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()

	store.Reset()
	backend.On("SignOut", mock.Anything).Return(nil)

	nav := &navRecorder{}
	gateway := session.NewGateway(backend, store, cache, profiles,
		session.WithNavigator(nav),
		session.WithDefaultRoute("/welcome"),
	)

	err := gateway.SignOut(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/welcome", nav.Location())
}

func TestGatewayResetPasswordValidatesEmail(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	gateway := session.NewGateway(backend, store, cache, profiles)

	err := gateway.ResetPassword(context.Background(), "not-an-email")
	require.Error(t, err)
	backend.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything)

	backend.On("SendPasswordReset", mock.Anything, "ada@example.com").Return(nil)
	require.NoError(t, gateway.ResetPassword(context.Background(), "ada@example.com"))
}

func TestGatewayUpdatePasswordTooShort(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	store.Replace(session.State{User: testUser(), InitialCheckComplete: true})

	gateway := session.NewGateway(backend, store, cache, profiles)

	err := gateway.UpdatePassword(context.Background(), "12345")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrPasswordTooShort)
	assert.Contains(t, err.Error(), "Password must be at least 6 characters long")

	// short passwords never reach the backend
	backend.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything)
}

func TestGatewayUpdatePasswordRequiresAuth(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	store.Reset()

	gateway := session.NewGateway(backend, store, cache, profiles)

	err := gateway.UpdatePassword(context.Background(), "long-enough")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	backend.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything)
}

func TestGatewayUpdatePasswordDelegates(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	store.Replace(session.State{User: testUser(), InitialCheckComplete: true})

	backend.On("UpdatePassword", mock.Anything, "long-enough").Return(nil)

	gateway := session.NewGateway(backend, store, cache, profiles)
	require.NoError(t, gateway.UpdatePassword(context.Background(), "long-enough"))
	backend.AssertExpectations(t)
}

func TestGatewayUpdateProfileWritesThrough(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	user := testUser()
	store.Replace(session.State{User: user, InitialCheckComplete: true})

	name := "Ada L."
	updated := &session.Profile{ID: user.ID, Email: user.Email, FullName: name, Role: session.RoleUser}
	profiles.On("Update", mock.Anything, user.ID, mock.Anything).Return(updated, nil)

	gateway := session.NewGateway(backend, store, cache, profiles)

	got, err := gateway.UpdateProfile(context.Background(), session.ProfileChanges{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, got.FullName)

	cached, ok := cache.Peek(user.ID)
	require.True(t, ok)
	assert.Equal(t, name, cached.FullName)
}

func TestGatewayUpdateProfileNormalizesPhone(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	user := testUser()
	store.Replace(session.State{User: user, InitialCheckComplete: true})

	profiles.On("Update", mock.Anything, user.ID, mock.MatchedBy(func(c session.ProfileChanges) bool {
		return c.Phone != nil && *c.Phone == "+16502530000"
	})).Return(&session.Profile{ID: user.ID, Phone: "+16502530000"}, nil)

	gateway := session.NewGateway(backend, store, cache, profiles)

	phone := "(650) 253-0000"
	_, err := gateway.UpdateProfile(context.Background(), session.ProfileChanges{Phone: &phone})
	require.NoError(t, err)
	profiles.AssertExpectations(t)
}

func TestGatewayUpdateProfileRejectsInvalidPhone(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	store.Replace(session.State{User: testUser(), InitialCheckComplete: true})

	gateway := session.NewGateway(backend, store, cache, profiles)

	phone := "12"
	_, err := gateway.UpdateProfile(context.Background(), session.ProfileChanges{Phone: &phone})
	require.Error(t, err)
	profiles.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestGatewayUpdateProfileRequiresAuthAndChanges(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	gateway := session.NewGateway(backend, store, cache, profiles)

	store.Reset()
	_, err := gateway.UpdateProfile(context.Background(), session.ProfileChanges{})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	store.Replace(session.State{User: testUser(), InitialCheckComplete: true})
	_, err = gateway.UpdateProfile(context.Background(), session.ProfileChanges{})
	require.Error(t, err)
	profiles.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestGatewayInFlightClearsAfterMutation(t *testing.T) {
	backend, store, cache, profiles := newGatewayFixture()
	backend.On("SignOut", mock.Anything).Return(nil)

	gateway := session.NewGateway(backend, store, cache, profiles)

	require.NoError(t, gateway.SignOut(context.Background()))
	assert.False(t, gateway.InFlight())
}
