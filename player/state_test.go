package player

import "testing"

// TestStateString tests the String() method for State.
func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "idle"},
		{StateLoading, "loading"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{StateError, "error"},
		{State(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.state.String(); result != tt.expected {
				t.Errorf("State.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestStateCanPlay tests the CanPlay() guard.
func TestStateCanPlay(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"can play from idle", StateIdle, true},
		{"can play from paused", StatePaused, true},
		{"cannot play from loading", StateLoading, false},
		{"cannot play from playing", StatePlaying, false},
		{"cannot play from error", StateError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.state.CanPlay(); result != tt.expected {
				t.Errorf("State.CanPlay() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestStateCanPause tests the CanPause() guard.
func TestStateCanPause(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"can pause from playing", StatePlaying, true},
		{"cannot pause from paused", StatePaused, false},
		{"cannot pause from idle", StateIdle, false},
		{"cannot pause from loading", StateLoading, false},
		{"cannot pause from error", StateError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.state.CanPause(); result != tt.expected {
				t.Errorf("State.CanPause() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestStateCanSeek tests the CanSeek() guard.
func TestStateCanSeek(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"can seek from idle", StateIdle, true},
		{"can seek from playing", StatePlaying, true},
		{"can seek from paused", StatePaused, true},
		{"cannot seek while loading", StateLoading, false},
		{"cannot seek from error", StateError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.state.CanSeek(); result != tt.expected {
				t.Errorf("State.CanSeek() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestStateMachineTransitions tests valid and invalid transitions.
func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		// Valid transitions
		{"idle to loading", StateIdle, StateLoading, true},
		{"idle to playing", StateIdle, StatePlaying, true},
		{"idle to error", StateIdle, StateError, true},
		{"loading to idle", StateLoading, StateIdle, true},
		{"loading to error", StateLoading, StateError, true},
		{"loading to loading", StateLoading, StateLoading, true},
		{"playing to paused", StatePlaying, StatePaused, true},
		{"playing to idle", StatePlaying, StateIdle, true},
		{"playing to loading", StatePlaying, StateLoading, true},
		{"paused to playing", StatePaused, StatePlaying, true},
		{"paused to loading", StatePaused, StateLoading, true},
		{"error to loading", StateError, StateLoading, true},
		{"error to idle", StateError, StateIdle, true},

		// Invalid transitions
		{"loading to playing", StateLoading, StatePlaying, false},
		{"loading to paused", StateLoading, StatePaused, false},
		{"idle to paused", StateIdle, StatePaused, false},
		{"paused to paused", StatePaused, StatePaused, false},
		{"error to playing", StateError, StatePlaying, false},
		{"error to paused", StateError, StatePaused, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			sm.current = tt.from

			result := sm.Transition(tt.to)
			if result != tt.shouldAllow {
				t.Errorf("Transition from %v to %v: got %v, want %v",
					tt.from, tt.to, result, tt.shouldAllow)
			}

			if tt.shouldAllow && sm.Current() != tt.to {
				t.Errorf("State not changed: current = %v, expected = %v",
					sm.Current(), tt.to)
			} else if !tt.shouldAllow && sm.Current() != tt.from {
				t.Errorf("State changed on invalid transition: current = %v, expected = %v",
					sm.Current(), tt.from)
			}
		})
	}
}

// TestStateMachineInitialState tests that a new machine starts idle.
func TestStateMachineInitialState(t *testing.T) {
	sm := NewStateMachine()
	if sm.Current() != StateIdle {
		t.Errorf("Initial state = %v, want StateIdle", sm.Current())
	}
}

// TestStateMachineFullLifecycle tests a complete load/play/pause/end
// sequence.
func TestStateMachineFullLifecycle(t *testing.T) {
	sm := NewStateMachine()

	transitions := []State{
		StateLoading, // load
		StateIdle,    // metadata ready
		StatePlaying, // play
		StatePaused,  // pause
		StatePlaying, // resume
		StateIdle,    // natural end
	}

	for i, to := range transitions {
		if !sm.Transition(to) {
			t.Fatalf("transition %d to %v rejected", i, to)
		}
		if sm.Current() != to {
			t.Fatalf("after transition %d: state = %v, want %v", i, sm.Current(), to)
		}
	}
}

// TestStateMachineErrorRecovery tests that error is never terminal.
func TestStateMachineErrorRecovery(t *testing.T) {
	sm := NewStateMachine()
	sm.current = StateError

	if !sm.Transition(StateLoading) {
		t.Error("Should be able to transition from Error to Loading")
	}

	sm.current = StateError
	if !sm.Transition(StateIdle) {
		t.Error("Should be able to transition from Error to Idle")
	}
}

// TestStateMachineReset tests the reset to idle.
func TestStateMachineReset(t *testing.T) {
	sm := NewStateMachine()
	sm.current = StatePlaying

	sm.Reset()
	if sm.Current() != StateIdle {
		t.Errorf("after Reset: state = %v, want StateIdle", sm.Current())
	}
}
