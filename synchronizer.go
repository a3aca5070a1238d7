package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// eventBuffer absorbs bursts in the pending auth-change queue. When it
// fills, emitters block until the apply loop drains; dropping would let a
// missed signed_out leave the Store signed in.
const eventBuffer = 32

// Synchronizer reconciles the Store with the backend: one session probe at
// startup, then auth-change events applied strictly in emission order.
type Synchronizer struct {
	backend  Backend
	store    *Store
	cache    *ProfileCache
	logger   Logger
	provider LoggerProvider

	startOnce   sync.Once
	stopOnce    sync.Once
	stopped     atomic.Bool
	events      chan AuthEvent
	quit        chan struct{}
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewSynchronizer wires a Synchronizer. The cache is optional; when present
// it is invalidated whenever the user becomes unauthenticated and warmed
// after sign-in.
func NewSynchronizer(backend Backend, store *Store, cache *ProfileCache) *Synchronizer {
	provider, logger := ResolveLogger("session.synchronizer", nil, nil)
	return &Synchronizer{
		backend:  backend,
		store:    store,
		cache:    cache,
		logger:   logger,
		provider: provider,
		events:   make(chan AuthEvent, eventBuffer),
		quit:     make(chan struct{}),
	}
}

func (s *Synchronizer) WithLogger(logger Logger) *Synchronizer {
	s.provider, s.logger = ResolveLogger("session.synchronizer", s.provider, logger)
	return s
}

// WithLoggerProvider resolves the synchronizer logger by name from the
// embedding application's logging setup.
func (s *Synchronizer) WithLoggerProvider(provider LoggerProvider) *Synchronizer {
	s.provider, s.logger = ResolveLogger("session.synchronizer", provider, s.logger)
	return s
}

// Start runs the one-time session probe and attaches the event listener.
// Idempotent: repeated calls do nothing after the first. The probe always
// completes before the first event is applied, and a probe failure is
// treated as "no user" so the application never fails to start over a
// transient backend error.
func (s *Synchronizer) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		user, err := s.backend.CurrentUser(ctx)
		if err != nil {
			s.logger.Warn("session probe failed, treating as signed out", "error", err)
			user = nil
		}

		s.store.Replace(State{User: user, InitialCheckComplete: true})

		if user != nil && s.cache != nil {
			s.warm(ctx, user)
		}

		s.unsubscribe = s.backend.Subscribe(s.enqueue)

		s.wg.Add(1)
		go s.loop()
	})
}

// Stop detaches the listener and stops the apply loop. Events delivered
// after Stop are discarded.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		close(s.quit)
		s.wg.Wait()
	})
}

func (s *Synchronizer) enqueue(ev AuthEvent) {
	if s.stopped.Load() {
		return
	}

	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Synchronizer) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

// apply replaces the State from a single event. Last write wins: after any
// event sequence the store reflects the most recently emitted event.
func (s *Synchronizer) apply(ev AuthEvent) {
	switch ev.Type {
	case AuthEventSignedOut:
		s.store.Reset()
		if s.cache != nil {
			s.cache.InvalidateAll()
		}
	case AuthEventSignedIn, AuthEventTokenRefreshed:
		s.store.Replace(State{User: ev.User, InitialCheckComplete: true})
	default:
		s.logger.Debug("ignoring unknown auth event", "type", ev.Type)
	}
}

// warm fetches the profile ahead of the first consumer read, best effort.
func (s *Synchronizer) warm(ctx context.Context, user *AuthUser) {
	if _, err := s.cache.Get(ctx, user.ID); err != nil {
		s.logger.Warn("profile warmup failed", "user_id", user.ID, "error", err)
	}
}
