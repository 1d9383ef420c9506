package player

import "time"

// Session is the authoritative snapshot of the playback mechanics.
// Exactly one Session exists per Service; its fields are overwritten on
// every new load and reset by Clear. Position stays within
// [0, Duration] once the duration is known, and Err is non-empty iff
// State == StateError.
type Session struct {
	State    State
	Src      string
	Position time.Duration
	Duration time.Duration
	Err      string
}

// Metadata is the descriptive text attached to the current audio,
// independent of playback mechanics. It survives Clear: stopping
// playback does not wipe what the user was listening to.
type Metadata struct {
	// PrimaryText is the headline, e.g. a character or voice name.
	PrimaryText string
	// SecondaryText is the subtext, e.g. a provider name.
	SecondaryText string
	// DownloadFilename is the suggested export filename; empty when
	// the audio is not downloadable.
	DownloadFilename string
}
