package state

import tele "gopkg.in/telebot.v4"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and temporary data for a user.
type Session struct {
	State    State
	TempData map[string]any
}

// Manager orchestrates user sessions and FSM state transitions.
// Implementations must be safe for concurrent use by multiple update goroutines.
type Manager interface {
	// Get returns a copy of the user's session, or an idle one.
	Get(userID int64) Session
	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	// Clear removes the entire session for a user.
	Clear(userID int64)

	SetState(userID int64, st State)
	GetState(userID int64) State
	// Reset replaces any existing session with a fresh one in st.
	Reset(userID int64, st State)
	// Active reports the number of sessions in a non-idle state.
	Active() int

	InProgress(userID int64) bool
	RegisterHandler(st State, h tele.HandlerFunc)
	ManagerHandler(c tele.Context) error
}

// TempAs retrieves a temporary value and asserts it to T.
func TempAs[T any](m Manager, userID int64, key string) (T, bool) {
	var zero T
	val, ok := m.GetTemp(userID, key)
	if !ok {
		return zero, false
	}
	v, ok := val.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
