// Package tasks watches backend generation tasks until they finish.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/tableread/tableread/internal/api"
)

const (
	// DefaultInterval is the minimum spacing between status requests.
	DefaultInterval = 500 * time.Millisecond

	// DefaultTimeout caps how long a single task may stay non-terminal.
	DefaultTimeout = 10 * time.Minute

	// maxConsecutiveErrors bounds transient status-fetch failures
	// before the watch gives up.
	maxConsecutiveErrors = 5
)

// StatusFetcher is the slice of the backend client the poller needs.
type StatusFetcher interface {
	TaskStatus(ctx context.Context, taskID string) (*api.TaskInfo, error)
}

// Meta carries the display information attached to a watched task. It
// travels with the completion so the player can show what is playing.
type Meta struct {
	TaskID           string
	PrimaryText      string
	SecondaryText    string
	DownloadFilename string
}

// Completion is delivered when a watched task finishes successfully.
type Completion struct {
	Meta
	AudioURL  string
	AudioURLs []string
}

// Events are the poller's callbacks. Nil callbacks are skipped. They
// run on the watching goroutine.
type Events struct {
	Completed func(Completion)
	Failed    func(meta Meta, reason string)
	Progress  func(taskID string, fraction float64)
}

// Config holds poller tunables.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Poller polls task status at a bounded rate until the task reaches a
// terminal state.
type Poller struct {
	fetcher StatusFetcher
	limiter *rate.Limiter
	timeout time.Duration
	events  Events
}

// NewPoller creates a poller over the given status source.
func NewPoller(fetcher StatusFetcher, config Config, events Events) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Poller{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Every(config.Interval), 1),
		timeout: config.Timeout,
		events:  events,
	}
}

// Watch blocks until the task finishes, fails, times out, or ctx is
// cancelled. Terminal outcomes are delivered through the events; the
// returned error reports only why the watch itself stopped early.
func (p *Poller) Watch(ctx context.Context, meta Meta) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	consecutiveErrors := 0
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			if ctx.Err() == context.Canceled {
				// The caller asked to stop; no failure event.
				return ctx.Err()
			}
			// The limiter refuses waits that cannot finish before
			// the deadline, erroring while ctx.Err() is still nil.
			// Either way this watch is out of time.
			p.fail(meta, "timed out waiting for task to finish")
			return context.DeadlineExceeded
		}

		info, err := p.fetcher.TaskStatus(ctx, meta.TaskID)
		if err != nil {
			if ctx.Err() != nil {
				p.expire(ctx, meta)
				return ctx.Err()
			}
			consecutiveErrors++
			log.Debug("task status fetch failed", "task", meta.TaskID, "err", err, "consecutive", consecutiveErrors)
			if consecutiveErrors >= maxConsecutiveErrors {
				p.fail(meta, fmt.Sprintf("status polling failed: %v", err))
				return nil
			}
			continue
		}
		consecutiveErrors = 0

		if info.Progress != nil && p.events.Progress != nil {
			p.events.Progress(meta.TaskID, *info.Progress)
		}

		switch info.Status {
		case api.TaskCompleted:
			if len(info.AudioURLs) == 0 {
				p.fail(meta, "task completed without audio")
				return nil
			}
			log.Debug("task completed", "task", meta.TaskID, "files", len(info.AudioURLs))
			if p.events.Completed != nil {
				p.events.Completed(Completion{
					Meta:      meta,
					AudioURL:  info.AudioURLs[0],
					AudioURLs: info.AudioURLs,
				})
			}
			return nil
		case api.TaskFailed:
			reason := info.Error
			if reason == "" {
				reason = info.Message
			}
			if reason == "" {
				reason = "task failed"
			}
			p.fail(meta, reason)
			return nil
		}
	}
}

// expire reports a timeout as a task failure; plain cancellation is
// silent since the caller asked to stop.
func (p *Poller) expire(ctx context.Context, meta Meta) {
	if ctx.Err() == context.DeadlineExceeded {
		p.fail(meta, "timed out waiting for task to finish")
	}
}

func (p *Poller) fail(meta Meta, reason string) {
	log.Debug("task failed", "task", meta.TaskID, "reason", reason)
	if p.events.Failed != nil {
		p.events.Failed(meta, reason)
	}
}
