package player

import (
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/hashstructure/v2"
)

// snapshotCache holds the published read-slices. Each slice keeps its
// own dirty-check key so a reader of one slice sees a stable pointer
// while the other slice churns: a component that only displays metadata
// must not observe a new snapshot on every progress tick.
//
// The third read-slice of the contract, the commands themselves, is the
// *Service pointer: its identity never changes for the life of the
// process, so command-only consumers never re-render.
type snapshotCache struct {
	session atomic.Pointer[Session]
	meta    atomic.Pointer[Metadata]

	sessionKey uint64
	metaKey    uint64
}

// init seeds both slices so Snapshot never returns nil.
func (c *snapshotCache) init(session Session, meta Metadata) {
	c.sessionKey = sliceKey(session)
	c.metaKey = sliceKey(meta)
	c.session.Store(&session)
	c.meta.Store(&meta)
}

// refresh republishes any slice whose fields changed. Caller holds the
// service mutex; readers go through the atomic pointers and need no
// lock at all.
func (c *snapshotCache) refresh(session Session, meta Metadata) {
	if key := sliceKey(session); key != c.sessionKey {
		c.sessionKey = key
		cp := session
		c.session.Store(&cp)
	}
	if key := sliceKey(meta); key != c.metaKey {
		c.metaKey = key
		cp := meta
		c.meta.Store(&cp)
	}
}

// sliceKey computes the dirty-check key over a slice's fields.
func sliceKey(v interface{}) uint64 {
	key, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		// Hashing plain value structs cannot realistically fail; fall
		// back to always-dirty rather than publishing stale state.
		log.Warn("snapshot hash failed", "err", err)
		return 0
	}
	return key
}

// Snapshot returns the current playback slice. The pointer is stable
// across calls while none of State, Src, Position, Duration, or Err
// changed, so consumers can detect "no update needed" by reference
// equality. The returned value must be treated as immutable.
func (s *Service) Snapshot() *Session {
	return s.snapshots.session.Load()
}

// MetadataSnapshot returns the current metadata slice, with the same
// stable-reference contract as Snapshot.
func (s *Service) MetadataSnapshot() *Metadata {
	return s.snapshots.meta.Load()
}

// Subscribe registers a listener invoked after every committed state
// mutation, in mutation order. It returns an unsubscribe function.
// Listeners run on the mutating goroutine and must not invoke service
// commands reentrantly; read snapshots and hand off instead.
func (s *Service) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// commitLocked publishes the mutation: it refreshes the snapshot
// slices, then notifies subscribers. The notify mutex is acquired
// before the state mutex is released so notifications observe commits
// in order; no subscriber can see a stale snapshot after a newer one
// has been committed. Releases s.mu.
func (s *Service) commitLocked() {
	s.snapshots.refresh(s.session, s.meta)

	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	s.notifyMu.Unlock()
}
