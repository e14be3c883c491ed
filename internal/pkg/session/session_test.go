package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_BeginAndGet(t *testing.T) {
	store := NewStore()

	assert.Equal(t, KindNone, store.Get(1).Kind)
	assert.False(t, store.Active(1))

	ok := store.Begin(1, State{Kind: KindWithdrawalDetails})
	assert.True(t, ok)
	assert.True(t, store.Active(1))
	assert.Equal(t, KindWithdrawalDetails, store.Get(1).Kind)

	// Other actors are unaffected
	assert.False(t, store.Active(2))
}

func TestStore_BeginRefusesSecondFlow(t *testing.T) {
	store := NewStore()

	ok := store.Begin(7, State{Kind: KindRejectionReason, TargetID: 12, TargetKind: TargetPayment})
	assert.True(t, ok)

	// A second flow for the same actor must not overwrite the first
	ok = store.Begin(7, State{Kind: KindAdminMessage, TargetUserID: 99})
	assert.False(t, ok)

	state := store.Get(7)
	assert.Equal(t, KindRejectionReason, state.Kind)
	assert.Equal(t, int64(12), state.TargetID)
	assert.Equal(t, TargetPayment, state.TargetKind)
}

func TestStore_BeginRejectsNone(t *testing.T) {
	store := NewStore()
	assert.False(t, store.Begin(3, State{Kind: KindNone}))
	assert.False(t, store.Active(3))
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()

	store.Begin(5, State{Kind: KindAdminMessage, TargetUserID: 42})
	store.Clear(5)
	assert.False(t, store.Active(5))

	// A new flow can start after clearing
	assert.True(t, store.Begin(5, State{Kind: KindWithdrawalDetails}))
}
