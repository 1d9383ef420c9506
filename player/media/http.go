package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/tableread/tableread/player"
)

const (
	// fetchTimeout bounds the whole download of one audio file.
	fetchTimeout = 60 * time.Second

	// maxAudioBytes caps a download; anything larger is not a voice
	// line or preview.
	maxAudioBytes = 64 << 20

	// progressInterval is how often the monitor reports position.
	progressInterval = 200 * time.Millisecond

	// bytesPerFrame is go-mp3's fixed output: 16-bit stereo.
	bytesPerFrame = 4
)

// HTTPResource implements player.Resource over an HTTP(S) MP3 source.
// It downloads the file, decodes it with go-mp3, and plays it through
// a lazily created oto context. The device context is created at the
// first stream's sample rate; later streams must match it, which holds
// for any one backend's output.
type HTTPResource struct {
	mu      sync.Mutex
	handler player.Handler
	client  *http.Client

	// gen tags the current load; events for a superseded generation
	// are dropped, never delivered.
	gen    uint64
	cancel context.CancelFunc

	device     *oto.Context
	sampleRate int

	stream    *mp3Stream
	otoPlayer *oto.Player
	duration  time.Duration
	playing   bool
	monitor   uint64
}

// NewHTTPResource creates an HTTP-backed playable resource.
func NewHTTPResource() *HTTPResource {
	return &HTTPResource{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// SetHandler implements player.Resource.
func (r *HTTPResource) SetHandler(h player.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// Load implements player.Resource. The fetch and decode run on their
// own goroutine; readiness or failure arrives through the handler.
func (r *HTTPResource) Load(src string) {
	r.mu.Lock()
	r.supersedeLocked()
	r.gen++
	gen := r.gen
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	go r.fetch(ctx, gen, src)
}

func (r *HTTPResource) fetch(ctx context.Context, gen uint64, src string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		r.emitError(gen, player.KindNetwork, fmt.Sprintf("Invalid audio request: %v", err))
		return
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.emitError(gen, player.KindAborted, "")
			return
		}
		r.emitError(gen, player.KindNetwork, fmt.Sprintf("Network error while loading audio: %v", err))
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		r.emitError(gen, player.KindNetwork, fmt.Sprintf("Network error while loading audio: HTTP status %d", resp.StatusCode))
		return
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/") {
		r.emitError(gen, player.KindUnsupported, fmt.Sprintf("Audio format is not supported: %s", ct))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.emitError(gen, player.KindAborted, "")
			return
		}
		r.emitError(gen, player.KindNetwork, fmt.Sprintf("Network error while loading audio: %v", err))
		return
	}
	if len(data) > maxAudioBytes {
		r.emitError(gen, player.KindUnsupported, "Audio file exceeds the size limit")
		return
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		r.emitError(gen, player.KindDecode, "")
		return
	}

	frames := dec.Length() / bytesPerFrame
	duration := time.Duration(float64(frames) / float64(dec.SampleRate()) * float64(time.Second))

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}
	if r.device == nil {
		device, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   dec.SampleRate(),
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			r.mu.Unlock()
			r.emitError(gen, player.KindRejected, fmt.Sprintf("Audio device unavailable: %v", err))
			return
		}
		<-ready
		r.device = device
		r.sampleRate = dec.SampleRate()
	} else if r.sampleRate != dec.SampleRate() {
		r.mu.Unlock()
		r.emitError(gen, player.KindUnsupported, fmt.Sprintf("Audio sample rate %d does not match device rate %d", dec.SampleRate(), r.sampleRate))
		return
	}

	r.stream = &mp3Stream{dec: dec}
	r.duration = duration
	r.mu.Unlock()

	log.Debug("audio ready", "src", src, "duration", duration)
	r.emit(gen, func(h player.Handler) {
		if h.Ready != nil {
			h.Ready(duration)
		}
	})
}

// Play implements player.Resource.
func (r *HTTPResource) Play() error {
	r.mu.Lock()
	if r.stream == nil {
		r.mu.Unlock()
		return errors.New("no audio loaded")
	}
	if r.playing {
		r.mu.Unlock()
		return nil
	}
	if r.otoPlayer == nil {
		r.otoPlayer = r.device.NewPlayer(r.stream)
	}
	r.otoPlayer.Play()
	r.playing = true
	r.monitor++
	gen := r.gen
	monitor := r.monitor
	r.mu.Unlock()

	r.emit(gen, func(h player.Handler) {
		if h.Started != nil {
			h.Started()
		}
	})
	go r.watch(gen, monitor)
	return nil
}

// Pause implements player.Resource.
func (r *HTTPResource) Pause() error {
	r.mu.Lock()
	if !r.playing || r.otoPlayer == nil {
		r.mu.Unlock()
		return nil
	}
	r.otoPlayer.Pause()
	r.playing = false
	gen := r.gen
	r.mu.Unlock()

	r.emit(gen, func(h player.Handler) {
		if h.Stopped != nil {
			h.Stopped()
		}
	})
	return nil
}

// Seek implements player.Resource.
func (r *HTTPResource) Seek(pos time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return
	}

	offset := int64(pos.Seconds()*float64(r.sampleRate)) * bytesPerFrame
	if offset < 0 {
		offset = 0
	}
	var err error
	if r.otoPlayer != nil {
		_, err = r.otoPlayer.Seek(offset, io.SeekStart)
	} else {
		_, err = r.stream.Seek(offset, io.SeekStart)
	}
	if err != nil {
		log.Debug("audio seek failed", "offset", offset, "err", err)
	}
}

// Position implements player.Resource.
func (r *HTTPResource) Position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positionLocked()
}

func (r *HTTPResource) positionLocked() time.Duration {
	if r.stream == nil || r.sampleRate == 0 {
		return 0
	}
	consumed := r.stream.Pos()
	if r.otoPlayer != nil {
		consumed -= int64(r.otoPlayer.BufferedSize())
	}
	if consumed < 0 {
		consumed = 0
	}
	return time.Duration(float64(consumed) / bytesPerFrame / float64(r.sampleRate) * float64(time.Second))
}

// Duration implements player.Resource.
func (r *HTTPResource) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration
}

// Release implements player.Resource.
func (r *HTTPResource) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supersedeLocked()
}

// supersedeLocked silences the current source: in-flight fetches are
// canceled and generation-tagged so nothing they emit gets through.
func (r *HTTPResource) supersedeLocked() {
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.otoPlayer != nil {
		if err := r.otoPlayer.Close(); err != nil {
			log.Debug("audio player close failed", "err", err)
		}
		r.otoPlayer = nil
	}
	r.stream = nil
	r.duration = 0
	r.playing = false
}

// Close implements player.Resource. The oto context has no close; the
// device is suspended instead.
func (r *HTTPResource) Close() error {
	r.mu.Lock()
	r.supersedeLocked()
	device := r.device
	r.mu.Unlock()

	if device != nil {
		return device.Suspend()
	}
	return nil
}

// watch reports progress and detects the natural end of the source.
func (r *HTTPResource) watch(gen, monitor uint64) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		if r.gen != gen || r.monitor != monitor || !r.playing {
			r.mu.Unlock()
			return
		}
		pos := r.positionLocked()
		ended := r.stream.EOF() && r.otoPlayer != nil && !r.otoPlayer.IsPlaying()
		if ended {
			r.playing = false
		}
		r.mu.Unlock()

		if ended {
			r.emit(gen, func(h player.Handler) {
				if h.Ended != nil {
					h.Ended()
				}
			})
			// Rewind so a later Play starts over.
			r.Seek(0)
			return
		}

		r.emit(gen, func(h player.Handler) {
			if h.Progress != nil {
				h.Progress(pos)
			}
		})
	}
}

// emit invokes fn with the handler unless the generation was
// superseded in the meantime.
func (r *HTTPResource) emit(gen uint64, fn func(player.Handler)) {
	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}
	h := r.handler
	r.mu.Unlock()
	fn(h)
}

// emitError is emit for the error callback, defaulting the message to
// the kind's canonical text.
func (r *HTTPResource) emitError(gen uint64, kind player.ErrorKind, message string) {
	r.emit(gen, func(h player.Handler) {
		if h.Error != nil {
			h.Error(kind, message)
		}
	})
}

// mp3Stream wraps a go-mp3 decoder with position and EOF tracking so
// the monitor can compute the playback position without racing the
// device's reads.
type mp3Stream struct {
	mu  sync.Mutex
	dec *mp3.Decoder
	pos int64
	eof bool
}

// Read implements io.Reader.
func (s *mp3Stream) Read(p []byte) (int, error) {
	n, err := s.dec.Read(p)
	s.mu.Lock()
	s.pos += int64(n)
	if errors.Is(err, io.EOF) {
		s.eof = true
	}
	s.mu.Unlock()
	return n, err
}

// Seek implements io.Seeker.
func (s *mp3Stream) Seek(offset int64, whence int) (int64, error) {
	n, err := s.dec.Seek(offset, whence)
	if err != nil {
		return n, fmt.Errorf("mp3 seek: %w", err)
	}
	s.mu.Lock()
	s.pos = n
	s.eof = false
	s.mu.Unlock()
	return n, nil
}

// Pos returns the number of decoded bytes consumed so far.
func (s *mp3Stream) Pos() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// EOF reports whether the decoder ran out of data.
func (s *mp3Stream) EOF() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eof
}
