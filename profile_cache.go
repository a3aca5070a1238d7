package session

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultProfileFreshness is how long a cached profile is served
	// without a backend round trip.
	DefaultProfileFreshness = 5 * time.Minute
	// DefaultProfileRetention is how long an unused entry survives before
	// eviction.
	DefaultProfileRetention = 10 * time.Minute
)

type cacheEntry struct {
	profile   *Profile
	fetchedAt time.Time
	usedAt    time.Time
}

// ProfileCache fronts the ProfileStore with a freshness window, a retention
// window, and per-key request coalescing. It is safe for concurrent use and
// is meant to be shared process-wide.
//
// A "row not found" result, and only that error class, triggers a
// compensating create-then-return: the authenticated identity is read from
// the backend and a default profile row is inserted. Every other error
// propagates to the caller uncached.
type ProfileCache struct {
	store    ProfileStore
	backend  Backend
	logger   Logger
	provider LoggerProvider

	freshness time.Duration
	retention time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
	group   singleflight.Group
}

type ProfileCacheOption func(*ProfileCache)

// WithCacheWindows overrides the freshness and retention windows.
func WithCacheWindows(freshness, retention time.Duration) ProfileCacheOption {
	return func(c *ProfileCache) {
		if freshness > 0 {
			c.freshness = freshness
		}
		if retention > 0 {
			c.retention = retention
		}
	}
}

// WithCacheClock injects a custom clock (useful for tests).
func WithCacheClock(clock func() time.Time) ProfileCacheOption {
	return func(c *ProfileCache) {
		if clock != nil {
			c.now = clock
		}
	}
}

func WithCacheLogger(logger Logger) ProfileCacheOption {
	return func(c *ProfileCache) {
		c.provider, c.logger = ResolveLogger("session.profile_cache", c.provider, logger)
	}
}

// WithCacheLoggerProvider resolves the cache logger by name from the
// embedding application's logging setup.
func WithCacheLoggerProvider(provider LoggerProvider) ProfileCacheOption {
	return func(c *ProfileCache) {
		c.provider, c.logger = ResolveLogger("session.profile_cache", provider, c.logger)
	}
}

// NewProfileCache creates a cache over the given store. The backend supplies
// the canonical identity during auto-provisioning.
func NewProfileCache(store ProfileStore, backend Backend, opts ...ProfileCacheOption) *ProfileCache {
	provider, logger := ResolveLogger("session.profile_cache", nil, nil)
	c := &ProfileCache{
		store:     store,
		backend:   backend,
		logger:    logger,
		provider:  provider,
		freshness: DefaultProfileFreshness,
		retention: DefaultProfileRetention,
		now:       time.Now,
		entries:   map[string]*cacheEntry{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Get returns the profile for the given user id. Within the freshness window
// the cached row is returned without a backend call; concurrent calls for
// the same id share a single outstanding fetch.
func (c *ProfileCache) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	key := id.String()

	c.mu.Lock()
	c.evictExpired()
	if entry, ok := c.entries[key]; ok {
		if c.now().Sub(entry.fetchedAt) < c.freshness {
			entry.usedAt = c.now()
			profile := entry.profile
			c.mu.Unlock()
			return profile, nil
		}
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	profile := v.(*Profile)
	c.set(profile)
	return profile, nil
}

// Peek returns the cached row if present, without fetching or affecting the
// freshness bookkeeping. Used by synchronous guard evaluation.
func (c *ProfileCache) Peek(id uuid.UUID) (*Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id.String()]
	if !ok {
		return nil, false
	}
	return entry.profile, true
}

// Put replaces the entry for the row's id. Write-through updates land here
// with the server-returned row, never with speculative local state.
func (c *ProfileCache) Put(profile *Profile) {
	if profile == nil {
		return
	}
	c.set(profile)
}

// Invalidate drops the entry for the given id.
func (c *ProfileCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id.String())
}

// InvalidateAll drops every entry, used on sign-out.
func (c *ProfileCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*cacheEntry{}
}

// Len reports the number of live entries after an eviction pass.
func (c *ProfileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpired()
	return len(c.entries)
}

func (c *ProfileCache) set(profile *Profile) {
	now := c.now()
	c.mu.Lock()
	c.entries[profile.ID.String()] = &cacheEntry{
		profile:   profile,
		fetchedAt: now,
		usedAt:    now,
	}
	c.mu.Unlock()
}

// evictExpired removes entries unused past the retention window.
// Caller holds c.mu.
func (c *ProfileCache) evictExpired() {
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.usedAt) > c.retention {
			delete(c.entries, key)
		}
	}
}

func (c *ProfileCache) fetch(ctx context.Context, id uuid.UUID) (*Profile, error) {
	profile, err := c.store.GetByID(ctx, id)
	if err == nil {
		return profile, nil
	}

	if !IsProfileNotFound(err) {
		return nil, err
	}

	return c.provision(ctx, id, err)
}

// provision inserts a default row for an authenticated user whose profile is
// missing, then treats the created row as canonical. GetOrCreate keeps the
// insert race-free across processes.
func (c *ProfileCache) provision(ctx context.Context, id uuid.UUID, cause error) (*Profile, error) {
	user, err := c.backend.CurrentUser(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read identity during profile provisioning")
	}

	if user == nil || user.ID != id {
		// only the signed-in user's own profile is auto-provisioned
		return nil, cause
	}

	record := &Profile{
		ID:       user.ID,
		Email:    user.Email,
		FullName: NameFromEmail(user.Email),
		Role:     RoleUser,
	}

	created, err := c.store.GetOrCreate(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to provision profile")
	}

	c.logger.Info("provisioned profile", "user_id", user.ID, "email", user.Email)

	return created, nil
}
