// Package media provides playable-resource implementations for the
// playback service: a real HTTP/MP3 resource backed by the system
// audio device, and a scriptable mock for tests.
package media

import (
	"sync"
	"time"

	"github.com/tableread/tableread/player"
)

// MockResource implements player.Resource for testing. By default it
// behaves like a well-behaved resource: Load reports readiness with a
// configurable duration, Play reports a start, and Pause reports a
// stop, all synchronously. Tests can switch off the automatic events
// and drive the handler by hand, inject errors, and inspect call
// counts.
type MockResource struct {
	mu      sync.Mutex
	handler player.Handler

	src      string
	position time.Duration
	duration time.Duration
	playing  bool

	// Scripted behavior.
	autoReady     bool
	autoStart     bool
	autoStop      bool
	readyDuration time.Duration
	playDelay     time.Duration
	playErr       error
	pauseErr      error

	// Call counts for verification.
	loadCalls    int
	playCalls    int
	pauseCalls   int
	seekCalls    int
	releaseCalls int
	closeCalls   int
	loadedSrcs   []string
}

// NewMockResource creates a mock resource in automatic mode with a
// 100-second duration.
func NewMockResource() *MockResource {
	return &MockResource{
		autoReady:     true,
		autoStart:     true,
		autoStop:      true,
		readyDuration: 100 * time.Second,
	}
}

// SetHandler implements player.Resource.
func (m *MockResource) SetHandler(h player.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Load implements player.Resource. In automatic mode it reports
// readiness synchronously.
func (m *MockResource) Load(src string) {
	m.mu.Lock()
	m.loadCalls++
	m.loadedSrcs = append(m.loadedSrcs, src)
	m.src = src
	m.position = 0
	m.duration = 0
	m.playing = false
	auto := m.autoReady
	d := m.readyDuration
	m.mu.Unlock()

	if auto {
		m.EmitReady(d)
	}
}

// Play implements player.Resource.
func (m *MockResource) Play() error {
	m.mu.Lock()
	m.playCalls++
	if d := m.playDelay; d > 0 {
		m.mu.Unlock()
		time.Sleep(d)
		m.mu.Lock()
	}
	if m.playErr != nil {
		err := m.playErr
		m.mu.Unlock()
		return err
	}
	m.playing = true
	auto := m.autoStart
	m.mu.Unlock()

	if auto {
		m.EmitStarted()
	}
	return nil
}

// Pause implements player.Resource.
func (m *MockResource) Pause() error {
	m.mu.Lock()
	m.pauseCalls++
	if m.pauseErr != nil {
		err := m.pauseErr
		m.mu.Unlock()
		return err
	}
	m.playing = false
	auto := m.autoStop
	m.mu.Unlock()

	if auto {
		m.EmitStopped()
	}
	return nil
}

// Seek implements player.Resource.
func (m *MockResource) Seek(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls++
	m.position = pos
}

// Position implements player.Resource.
func (m *MockResource) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Duration implements player.Resource.
func (m *MockResource) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// Release implements player.Resource.
func (m *MockResource) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	m.src = ""
	m.position = 0
	m.duration = 0
	m.playing = false
}

// Close implements player.Resource.
func (m *MockResource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return nil
}

// Event emission for manual-mode tests. Each helper invokes the
// registered handler callback synchronously on the caller's goroutine.

// EmitReady reports metadata readiness with the given duration.
func (m *MockResource) EmitReady(d time.Duration) {
	m.mu.Lock()
	m.duration = d
	h := m.handler
	m.mu.Unlock()
	if h.Ready != nil {
		h.Ready(d)
	}
}

// EmitProgress reports a position update.
func (m *MockResource) EmitProgress(pos time.Duration) {
	m.mu.Lock()
	m.position = pos
	h := m.handler
	m.mu.Unlock()
	if h.Progress != nil {
		h.Progress(pos)
	}
}

// EmitStarted reports that playback began.
func (m *MockResource) EmitStarted() {
	m.mu.Lock()
	m.playing = true
	h := m.handler
	m.mu.Unlock()
	if h.Started != nil {
		h.Started()
	}
}

// EmitStopped reports that playback stopped short of the end.
func (m *MockResource) EmitStopped() {
	m.mu.Lock()
	m.playing = false
	h := m.handler
	m.mu.Unlock()
	if h.Stopped != nil {
		h.Stopped()
	}
}

// EmitEnded reports that playback reached the end of the source.
func (m *MockResource) EmitEnded() {
	m.mu.Lock()
	m.playing = false
	m.position = 0
	h := m.handler
	m.mu.Unlock()
	if h.Ended != nil {
		h.Ended()
	}
}

// EmitError reports a resource failure.
func (m *MockResource) EmitError(kind player.ErrorKind, message string) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h.Error != nil {
		h.Error(kind, message)
	}
}

// Test control.

// SetAutoReady toggles automatic readiness on Load.
func (m *MockResource) SetAutoReady(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReady = on
}

// SetAutoStart toggles automatic start reports on Play.
func (m *MockResource) SetAutoStart(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoStart = on
}

// SetAutoStop toggles automatic stop reports on Pause.
func (m *MockResource) SetAutoStop(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoStop = on
}

// SetReadyDuration sets the duration reported on automatic readiness.
func (m *MockResource) SetReadyDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyDuration = d
}

// SetPlayDelay makes Play block for d before responding, to exercise
// in-flight coalescing.
func (m *MockResource) SetPlayDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playDelay = d
}

// InjectPlayError makes subsequent Play calls fail with err.
func (m *MockResource) InjectPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// InjectPauseError makes subsequent Pause calls fail with err.
func (m *MockResource) InjectPauseError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseErr = err
}

// PlayCalls returns how many times Play was invoked.
func (m *MockResource) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

// LoadCalls returns how many times Load was invoked.
func (m *MockResource) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// PauseCalls returns how many times Pause was invoked.
func (m *MockResource) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

// ReleaseCalls returns how many times Release was invoked.
func (m *MockResource) ReleaseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCalls
}

// CloseCalls returns how many times Close was invoked.
func (m *MockResource) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// LoadedSrcs returns the sources passed to Load, in order.
func (m *MockResource) LoadedSrcs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	srcs := make([]string, len(m.loadedSrcs))
	copy(srcs, m.loadedSrcs)
	return srcs
}

// Src returns the currently loaded source.
func (m *MockResource) Src() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

// IsPlaying returns true if the mock considers itself playing.
func (m *MockResource) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}
