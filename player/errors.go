package player

import "errors"

// Common errors for the playback service.
var (
	ErrInvalidScheme    = errors.New("invalid audio URL scheme")
	ErrNoResource       = errors.New("no resource loaded")
	ErrServiceDestroyed = errors.New("playback service has been destroyed")
	ErrSuperseded       = errors.New("load superseded by a newer load")
	ErrReadyTimeout     = errors.New("timed out waiting for resource readiness")
)

// ErrorKind classifies playback failures surfaced to subscribers.
// All kinds are non-fatal to the process; the session recovers via
// Clear or a fresh Load.
type ErrorKind int

const (
	// KindAborted indicates the fetch was aborted before completion.
	KindAborted ErrorKind = iota
	// KindNetwork indicates the resource could not be fetched.
	KindNetwork
	// KindDecode indicates the resource data is corrupt.
	KindDecode
	// KindUnsupported indicates the resource format is not playable.
	KindUnsupported
	// KindInvalidScheme indicates the URL is not http or https.
	KindInvalidScheme
	// KindRejected indicates the start-playback request was refused.
	KindRejected
	// KindTimeout indicates a composite load-and-play wait expired.
	KindTimeout
)

// String returns the identifier for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindAborted:
		return "aborted"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindUnsupported:
		return "unsupported-format"
	case KindInvalidScheme:
		return "invalid-url-scheme"
	case KindRejected:
		return "playback-rejected"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Message returns the human-readable text shown to subscribers when no
// more specific message accompanies the failure.
func (k ErrorKind) Message() string {
	switch k {
	case KindAborted:
		return "Audio loading was aborted"
	case KindNetwork:
		return "Network error while loading audio"
	case KindDecode:
		return "Audio file is corrupted and cannot be decoded"
	case KindUnsupported:
		return "Audio format is not supported"
	case KindInvalidScheme:
		return "Invalid audio URL: only HTTP/HTTPS protocols are allowed"
	case KindRejected:
		return "Playback was rejected"
	case KindTimeout:
		return "Timed out waiting for audio to become ready"
	default:
		return "Unknown audio error"
	}
}
