package session

import (
	"context"
)

var stateCtxKey = &contextKey{"state"}
var profileCtxKey = &contextKey{"profile"}

type contextKey struct {
	name string
}

// WithStateContext sets the session State in the given context
func WithStateContext(ctx context.Context, state State) context.Context {
	return context.WithValue(ctx, stateCtxKey, state)
}

// StateFromContext finds the session State from the context.
func StateFromContext(ctx context.Context) (State, bool) {
	raw, ok := ctx.Value(stateCtxKey).(State)
	return raw, ok
}

// WithProfileContext sets the Profile in the given context
func WithProfileContext(ctx context.Context, profile *Profile) context.Context {
	return context.WithValue(ctx, profileCtxKey, profile)
}

// ProfileFromContext finds the profile from the context.
func ProfileFromContext(ctx context.Context) (*Profile, bool) {
	raw, ok := ctx.Value(profileCtxKey).(*Profile)
	return raw, ok
}

// RoleFromContext resolves the effective role for gating, defaulting to
// RoleUser when no profile is attached.
func RoleFromContext(ctx context.Context) Role {
	profile, _ := ProfileFromContext(ctx)
	return RoleOrDefault(profile)
}
