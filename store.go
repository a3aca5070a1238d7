package session

import (
	"fmt"
	"sync"
)

// State is the in-memory representation of the current session. Replacements
// are whole-value: consumers never see a partially updated State.
type State struct {
	User    *AuthUser `json:"user,omitempty"`
	Loading bool      `json:"loading"`
	// InitialCheckComplete flips to true once the first session probe has
	// resolved. Guards must not issue redirects before that.
	InitialCheckComplete bool `json:"initial_check_complete"`
}

// Authenticated reports whether a user identity is present.
func (s State) Authenticated() bool {
	return s.User != nil
}

func (s State) String() string {
	user := "<nil>"
	if s.User != nil {
		user = s.User.ID.String()
	}
	return fmt.Sprintf("user=%s loading=%t checked=%t", user, s.Loading, s.InitialCheckComplete)
}

// Store holds the current session State and fans replacements out to
// subscribers. Writes are last-write-wins under a single lock.
type Store struct {
	mu     sync.RWMutex
	state  State
	subs   map[int]func(State)
	nextID int
	logger Logger
}

// NewStore creates a Store in the pre-probe shape: loading, not yet checked.
func NewStore() *Store {
	return &Store{
		state:  State{Loading: true},
		subs:   map[int]func(State){},
		logger: defLogger{},
	}
}

func (s *Store) WithLogger(logger Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Snapshot returns a copy of the current State. The embedded user pointer is
// cloned so callers cannot mutate shared state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Replace swaps the State atomically and notifies subscribers in
// registration order with the new snapshot.
func (s *Store) Replace(next State) {
	s.mu.Lock()
	s.state = cloneState(next)
	snapshot := cloneState(s.state)
	listeners := s.orderedSubs()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Reset moves the Store to the logged-out shape. The initial check is marked
// complete: a reset only ever happens after the first probe resolved.
func (s *Store) Reset() {
	s.Replace(State{InitialCheckComplete: true})
}

// Subscribe registers an observer invoked on every replacement. The returned
// function detaches it; detaching twice is a no-op.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) orderedSubs() []func(State) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}

	// insertion sort keeps registration order without pulling in sort for
	// the handful of subscribers we expect
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	out := make([]func(State), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func cloneState(in State) State {
	out := in
	if in.User != nil {
		user := *in.User
		out.User = &user
	}
	return out
}
