// Package session tracks the ephemeral "awaiting next text input" state
// of each actor. At most one state may be active per actor: starting a
// second flow while one is in flight is refused rather than silently
// overwriting the first.
package session

import "sync"

// Kind identifies what the next free-text message from an actor means.
type Kind int

const (
	// KindNone means free text carries no special meaning.
	KindNone Kind = iota
	// KindWithdrawalDetails means the next text is a withdrawal request
	// in amount|method|account form.
	KindWithdrawalDetails
	// KindRejectionReason means the next text from an admin is the reason
	// for rejecting the targeted payment or withdrawal.
	KindRejectionReason
	// KindAdminMessage means the next text from an admin is relayed to
	// the targeted user.
	KindAdminMessage
)

// TargetKind disambiguates the shared rejection-reason slot.
type TargetKind string

// Rejection targets.
const (
	TargetPayment    TargetKind = "payment"
	TargetWithdrawal TargetKind = "withdrawal"
)

// State is the tagged pending-input variant for one actor.
// TargetID and TargetKind are set for KindRejectionReason; TargetUserID
// is set for KindAdminMessage.
type State struct {
	Kind         Kind
	TargetID     int64
	TargetKind   TargetKind
	TargetUserID int64
}

// Store holds per-actor pending-input states in process memory. The
// states are conversation-scoped by nature, so they are not persisted.
type Store struct {
	states sync.Map // map[int64]State
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the active state for an actor, or a KindNone state.
func (s *Store) Get(actorID int64) State {
	if v, ok := s.states.Load(actorID); ok {
		return v.(State)
	}
	return State{Kind: KindNone}
}

// Begin activates a state for an actor. It returns false without
// modifying anything if the actor already has an active state.
func (s *Store) Begin(actorID int64, state State) bool {
	if state.Kind == KindNone {
		return false
	}
	_, loaded := s.states.LoadOrStore(actorID, state)
	return !loaded
}

// Clear removes the actor's active state, if any.
func (s *Store) Clear(actorID int64) {
	s.states.Delete(actorID)
}

// Active reports whether the actor has a state in flight.
func (s *Store) Active(actorID int64) bool {
	return s.Get(actorID).Kind != KindNone
}
