// Package player implements the audio playback command and state core:
// a process-wide service that owns one playable resource, exposes an
// idempotent command surface, runs an explicit state machine, and
// publishes every committed state change to subscribers through a
// stable-reference snapshot layer.
package player

import (
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Audio sources must be remote URLs; local files and other schemes are
// rejected before the resource is touched.
var srcScheme = regexp.MustCompile(`^https?://`)

// Config holds tunables for the playback service.
type Config struct {
	// Debounce is the wall-clock window within which a repeated
	// command is dropped as a burst artifact (double-click guard).
	Debounce time.Duration

	// ReadyTimeout bounds LoadAndPlay's wait for resource readiness.
	ReadyTimeout time.Duration

	// Clock supplies the debounce guard's wall clock. Defaults to
	// time.Now; tests substitute a fake.
	Clock func() time.Time
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:     50 * time.Millisecond,
		ReadyTimeout: 10 * time.Second,
	}
}

// Service is the playback core. All mutation flows through its command
// surface; resource events and commands may arrive on any goroutine and
// are serialized internally. Commands never return state-violation
// errors to callers: an illegal-state call is a silent no-op, and real
// failures surface as a transition to StateError on the session.
type Service struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	res     Resource
	machine *StateMachine
	session Session
	meta    Metadata
	config  Config

	// gen counts loads so a superseded load can never win.
	gen    uint64
	waiter chan error

	// playPending coalesces concurrent Play calls so the resource's
	// play primitive runs at most once per request.
	playPending bool

	lastCmd time.Time
	now     func() time.Time

	destroyed bool

	listeners  map[int]func()
	nextListen int

	snapshots snapshotCache
}

// New creates a playback service around the given resource. The
// service takes exclusive ownership: no other component may mutate the
// resource's source, position, or playback flag directly.
func New(res Resource, config Config) *Service {
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = DefaultConfig().ReadyTimeout
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}

	s := &Service{
		res:       res,
		machine:   NewStateMachine(),
		config:    config,
		now:       now,
		listeners: make(map[int]func()),
	}
	s.snapshots.init(s.session, s.meta)

	res.SetHandler(Handler{
		Ready:    s.onReady,
		Progress: s.onProgress,
		Started:  s.onStarted,
		Stopped:  s.onStopped,
		Ended:    s.onEnded,
		Error:    s.onResourceError,
	})
	return s
}

// Load cancels the current resource and begins fetching a new one. The
// session enters StateLoading immediately; readiness or failure arrives
// through resource events. An invalid URL scheme fails the session
// without touching the resource.
func (s *Service) Load(src string) {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	s.loadLocked(src, nil, false)
}

// LoadWithMetadata is Load plus an atomic metadata update, so the
// display text and the source can never be observed out of sync.
func (s *Service) LoadWithMetadata(src string, meta Metadata) {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	s.loadLocked(src, &meta, false)
}

// LoadAndPlay atomically sets metadata (when given), loads the source,
// waits for readiness, and starts playback. It blocks the calling
// goroutine until playback starts, the wait times out, or the load is
// superseded; run it from a goroutine in event-loop contexts. Internal
// sub-steps bypass the debounce guard so the composite cannot deadlock
// against itself.
func (s *Service) LoadAndPlay(src string, meta *Metadata) {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	gen, waiter := s.loadLocked(src, meta, true)
	if waiter == nil {
		return
	}

	select {
	case err := <-waiter:
		if err != nil {
			// Superseded or failed; the failure path has already
			// committed the error state.
			return
		}
	case <-time.After(s.config.ReadyTimeout):
		s.timeoutLoad(gen)
		return
	}

	s.play(true)
}

// loadLocked performs the load with s.mu held and releases it. When
// composite is true it registers a readiness waiter and returns it
// along with the load generation; on an invalid scheme it returns a nil
// waiter.
func (s *Service) loadLocked(src string, meta *Metadata, composite bool) (uint64, chan error) {
	if meta != nil {
		s.meta = *meta
	}

	if !srcScheme.MatchString(src) {
		log.Debug("rejected audio source", "src", src)
		s.failLocked(KindInvalidScheme, "")
		return 0, nil
	}

	// Last load wins: abandon any composite still waiting on the
	// previous generation.
	s.abandonWaiterLocked()

	s.gen++
	gen := s.gen
	s.machine.Transition(StateLoading)
	s.session = Session{State: StateLoading, Src: src}

	var waiter chan error
	if composite {
		waiter = make(chan error, 1)
		s.waiter = waiter
	}

	res := s.res
	s.commitLocked()

	log.Debug("loading audio", "src", src, "gen", gen)
	res.Load(src)
	return gen, waiter
}

// Play requests playback. Legal only from idle or paused with a source
// loaded; otherwise a no-op. A rejection by the resource becomes an
// error-state transition, never an unhandled failure.
func (s *Service) Play() {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.play(true)
}

func (s *Service) play(bypass bool) {
	s.mu.Lock()
	if !s.admit(bypass) {
		s.mu.Unlock()
		return
	}
	if !s.session.State.CanPlay() || s.session.Src == "" {
		s.mu.Unlock()
		return
	}
	if s.playPending {
		s.mu.Unlock()
		return
	}
	s.playPending = true
	res := s.res
	s.mu.Unlock()

	err := res.Play()

	s.mu.Lock()
	s.playPending = false
	if err != nil {
		log.Debug("playback rejected", "err", err)
		s.failLocked(KindRejected, err.Error())
		return
	}
	s.mu.Unlock()
}

// Pause requests playback to stop while keeping the position. No-op
// unless currently playing; the paused transition itself arrives via
// the resource's stopped event.
func (s *Service) Pause() {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	s.pauseLocked()
}

// pauseLocked releases s.mu.
func (s *Service) pauseLocked() {
	if !s.session.State.CanPause() {
		s.mu.Unlock()
		return
	}
	res := s.res
	s.mu.Unlock()
	if err := res.Pause(); err != nil {
		log.Debug("pause request failed", "err", err)
	}
}

// Toggle dispatches to Play or Pause based on the current state. It
// consumes a single debounce slot for the whole gesture.
func (s *Service) Toggle() {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	if s.session.State.CanPause() {
		s.pauseLocked()
		return
	}
	s.mu.Unlock()
	s.play(true)
}

// Seek clamps the requested position to [0, duration] and applies it.
// Non-finite input is rejected silently, before the debounce guard, so
// a junk seek cannot swallow the next real command. No-op while
// loading or in the error state.
func (s *Service) Seek(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	if !s.session.State.CanSeek() {
		s.mu.Unlock()
		return
	}

	pos := time.Duration(seconds * float64(time.Second))
	if pos < 0 {
		pos = 0
	}
	if pos > s.session.Duration {
		pos = s.session.Duration
	}

	s.session.Position = pos
	res := s.res
	s.commitLocked()
	res.Seek(pos)
}

// Clear releases the resource and resets the session to idle, keeping
// the display metadata. No-op when nothing is loaded and the session is
// not in the error state.
func (s *Service) Clear() {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	if s.session.Src == "" && s.session.State != StateError {
		s.mu.Unlock()
		return
	}

	s.abandonWaiterLocked()
	s.machine.Transition(StateIdle)
	s.session = Session{State: StateIdle}
	res := s.res
	s.commitLocked()
	res.Release()
}

// SetMetadata updates the display text without touching playback.
func (s *Service) SetMetadata(meta Metadata) {
	s.mu.Lock()
	if !s.admit(false) {
		s.mu.Unlock()
		return
	}
	s.meta = meta
	s.commitLocked()
}

// State returns the current playback state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.State
}

// Destroy tears the service down for test isolation: it drops all
// subscribers, resets the debounce clock and session, and releases the
// underlying resource. Commands on a destroyed service are no-ops.
func (s *Service) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.abandonWaiterLocked()
	s.machine.Reset()
	s.session = Session{}
	s.meta = Metadata{}
	s.lastCmd = time.Time{}
	s.listeners = make(map[int]func())
	res := s.res
	s.mu.Unlock()

	res.Release()
	if err := res.Close(); err != nil {
		log.Debug("resource close failed", "err", err)
	}
}

// Resource event bridging. These handlers are the only legal source of
// playing/paused/idle-from-end transitions that originate from the
// resource; the command layer above only requests them.

func (s *Service) onReady(duration time.Duration) {
	s.mu.Lock()
	if s.destroyed || s.session.State != StateLoading {
		s.mu.Unlock()
		return
	}
	s.machine.Transition(StateIdle)
	s.session.State = StateIdle
	s.session.Duration = duration
	s.session.Position = 0
	if s.waiter != nil {
		s.waiter <- nil
		s.waiter = nil
	}
	s.commitLocked()
}

func (s *Service) onProgress(pos time.Duration) {
	s.mu.Lock()
	if s.destroyed || s.session.State != StatePlaying {
		s.mu.Unlock()
		return
	}
	if pos < 0 {
		pos = 0
	}
	if s.session.Duration > 0 && pos > s.session.Duration {
		pos = s.session.Duration
	}
	if pos == s.session.Position {
		s.mu.Unlock()
		return
	}
	s.session.Position = pos
	s.commitLocked()
}

func (s *Service) onStarted() {
	s.mu.Lock()
	if s.destroyed || s.session.State == StatePlaying {
		s.mu.Unlock()
		return
	}
	if !s.machine.Transition(StatePlaying) {
		s.mu.Unlock()
		return
	}
	s.session.State = StatePlaying
	s.commitLocked()
}

func (s *Service) onStopped() {
	s.mu.Lock()
	if s.destroyed || s.session.State != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.machine.Transition(StatePaused)
	s.session.State = StatePaused
	s.commitLocked()
}

func (s *Service) onEnded() {
	s.mu.Lock()
	if s.destroyed || s.session.State != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.machine.Transition(StateIdle)
	s.session.State = StateIdle
	s.session.Position = 0
	s.commitLocked()
}

func (s *Service) onResourceError(kind ErrorKind, message string) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.failLocked(kind, message)
}

// timeoutLoad fails the session when the composite wait expired and
// the load in question is still the current one. A newer load or an
// already-settled session wins over the stale timer.
func (s *Service) timeoutLoad(gen uint64) {
	s.mu.Lock()
	if s.destroyed || s.gen != gen || s.session.State != StateLoading {
		s.mu.Unlock()
		return
	}
	s.waiter = nil
	s.failLocked(KindTimeout, "")
}

// failLocked transitions to the error state and releases s.mu via the
// commit path. The message defaults to the kind's canonical text.
func (s *Service) failLocked(kind ErrorKind, message string) {
	if message == "" {
		message = kind.Message()
	}
	if s.waiter != nil {
		s.waiter <- ErrSuperseded
		s.waiter = nil
	}
	s.machine.Transition(StateError)
	s.session.State = StateError
	s.session.Err = message
	s.commitLocked()
}

// abandonWaiterLocked releases a composite still waiting on a previous
// load so it returns without corrupting the newer session.
func (s *Service) abandonWaiterLocked() {
	if s.waiter != nil {
		s.waiter <- ErrSuperseded
		s.waiter = nil
	}
}

// admit applies the burst guard. The timestamp advances only on
// accepted commands, so a burst cannot extend its own window.
func (s *Service) admit(bypass bool) bool {
	if s.destroyed {
		return false
	}
	if bypass {
		return true
	}
	now := s.now()
	if !s.lastCmd.IsZero() && now.Sub(s.lastCmd) < s.config.Debounce {
		return false
	}
	s.lastCmd = now
	return true
}
