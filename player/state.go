package player

// State represents the current state of the playback session.
type State int

const (
	// StateIdle indicates no playback is in progress.
	StateIdle State = iota
	// StateLoading indicates a resource is being fetched and decoded.
	StateLoading
	// StatePlaying indicates audio is actively playing.
	StatePlaying
	// StatePaused indicates playback is paused and can be resumed.
	StatePaused
	// StateError indicates the session failed; recoverable via Load or Clear.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CanPlay returns true if playback can start or resume from this state.
func (s State) CanPlay() bool {
	return s == StateIdle || s == StatePaused
}

// CanPause returns true if playback can be paused from this state.
func (s State) CanPause() bool {
	return s == StatePlaying
}

// CanSeek returns true if the position can be changed in this state.
func (s State) CanSeek() bool {
	return s != StateLoading && s != StateError
}

// StateMachine manages state transitions for the playback session.
type StateMachine struct {
	current     State
	transitions map[State][]State
}

// NewStateMachine creates a new state machine with valid transitions.
// Loading a new resource and clearing the session are legal from every
// state, so StateLoading and StateIdle appear in every transition set.
// StateError is likewise reachable from anywhere: loads fail on bad
// URLs, play requests get rejected, and the device can fail mid-play.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:    {StateIdle, StateLoading, StatePlaying, StateError},
			StateLoading: {StateIdle, StateLoading, StateError},
			StatePlaying: {StateIdle, StateLoading, StatePaused, StateError},
			StatePaused:  {StateIdle, StateLoading, StatePlaying, StateError},
			StateError:   {StateIdle, StateLoading, StateError},
		},
	}
}

// Transition attempts to transition to the specified state.
// It returns false and leaves the current state untouched when the
// transition is not listed.
func (sm *StateMachine) Transition(to State) bool {
	valid, ok := sm.transitions[sm.current]
	if !ok {
		return false
	}

	for _, state := range valid {
		if state == to {
			sm.current = to
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	return sm.current
}

// Reset forces the machine back to the initial idle state.
func (sm *StateMachine) Reset() {
	sm.current = StateIdle
}
