package session_test

import (
	"testing"

	"github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
)

func TestStoreInitialState(t *testing.T) {
	store := session.NewStore()

	state := store.Snapshot()
	assert.True(t, state.Loading)
	assert.False(t, state.InitialCheckComplete)
	assert.False(t, state.Authenticated())
}

func TestStoreReplaceIsAtomic(t *testing.T) {
	store := session.NewStore()
	user := testUser()

	store.Replace(session.State{User: user, InitialCheckComplete: true})

	state := store.Snapshot()
	assert.True(t, state.Authenticated())
	assert.True(t, state.InitialCheckComplete)
	assert.False(t, state.Loading)
	assert.Equal(t, user.ID, state.User.ID)
}

func TestStoreSnapshotClonesUser(t *testing.T) {
	store := session.NewStore()
	store.Replace(session.State{User: testUser(), InitialCheckComplete: true})

	first := store.Snapshot()
	first.User.Email = "mutated@example.com"

	second := store.Snapshot()
	assert.Equal(t, "ada@example.com", second.User.Email)
}

func TestStoreReset(t *testing.T) {
	store := session.NewStore()
	store.Replace(session.State{User: testUser(), InitialCheckComplete: true})

	store.Reset()

	state := store.Snapshot()
	assert.False(t, state.Authenticated())
	assert.False(t, state.Loading)
	assert.True(t, state.InitialCheckComplete)
}

func TestStoreNotifiesSubscribersInOrder(t *testing.T) {
	store := session.NewStore()

	var order []string
	store.Subscribe(func(s session.State) {
		order = append(order, "first")
	})
	store.Subscribe(func(s session.State) {
		order = append(order, "second")
	})

	store.Replace(session.State{InitialCheckComplete: true})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestStoreSubscriberReceivesSnapshot(t *testing.T) {
	store := session.NewStore()

	var seen session.State
	store.Subscribe(func(s session.State) {
		seen = s
	})

	store.Replace(session.State{User: testUser(), InitialCheckComplete: true})

	assert.True(t, seen.Authenticated())

	// the delivered snapshot is a copy, mutating it does not leak back
	seen.User.Email = "mutated@example.com"
	assert.Equal(t, "ada@example.com", store.Snapshot().User.Email)
}

func TestStoreSubscribeCancel(t *testing.T) {
	store := session.NewStore()

	count := 0
	cancel := store.Subscribe(func(s session.State) {
		count++
	})

	store.Replace(session.State{InitialCheckComplete: true})
	cancel()
	store.Replace(session.State{InitialCheckComplete: true})

	assert.Equal(t, 1, count)

	// cancelling twice is a no-op
	assert.NotPanics(t, cancel)
}

func TestStoreLastWriteWins(t *testing.T) {
	store := session.NewStore()
	user := testUser()

	store.Replace(session.State{User: user, InitialCheckComplete: true})
	store.Reset()
	store.Replace(session.State{User: user, InitialCheckComplete: true})

	assert.True(t, store.Snapshot().Authenticated())
}
