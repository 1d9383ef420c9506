package player

import "time"

// Resource is the native playback primitive behind the service: the one
// thing that actually decodes and emits sound. The service owns exactly
// one Resource and treats it as ground truth for whether audio is
// playing; commands only request transitions, the Resource reports them
// through its Handler.
type Resource interface {
	// Load begins fetching and preparing the given source. It returns
	// immediately; readiness or failure is reported through the Handler.
	// A Load while a previous source is in flight supersedes it, and no
	// further events may be emitted for the superseded source.
	Load(src string)

	// Play requests playback to start. The returned error is the
	// platform's rejection of the start request (autoplay policy,
	// device unavailable); success is reported via Handler.Started.
	Play() error

	// Pause requests playback to stop while retaining the position.
	// The resulting stop is reported via Handler.Stopped.
	Pause() error

	// Seek moves the playback position. Callers clamp; implementations
	// may further clamp to decodable boundaries.
	Seek(pos time.Duration)

	// Position returns the current playback position.
	Position() time.Duration

	// Duration returns the total duration, or 0 before metadata loads.
	Duration() time.Duration

	// SetHandler registers the event handler. Must be called before
	// Load. Implementations invoke handler callbacks from their own
	// goroutines; the service serializes them.
	SetHandler(h Handler)

	// Release stops playback and discards the current source.
	Release()

	// Close releases the underlying audio device.
	Close() error
}

// Handler carries the event classes a Resource reports back to the
// service. Nil callbacks are skipped. These callbacks are the only
// legal source of playing/paused/ended transitions that originate from
// the resource itself.
type Handler struct {
	// Ready fires once the resource is buffered enough to report its
	// duration. It does not imply playback has started.
	Ready func(duration time.Duration)

	// Progress fires periodically with the advancing position.
	Progress func(pos time.Duration)

	// Started fires when playback actually begins.
	Started func()

	// Stopped fires when playback stops short of the end.
	Stopped func()

	// Ended fires when playback reaches the end of the source.
	Ended func()

	// Error fires when the fetch, decode, or device fails. The message
	// may be empty, in which case the kind's default text applies.
	Error func(kind ErrorKind, message string)
}
