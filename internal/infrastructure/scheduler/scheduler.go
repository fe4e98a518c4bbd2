// Package scheduler provides a registry of one-shot, cancellable deferred
// actions keyed by package id. It backs the paid → processing auto-advance:
// timers run concurrently with request handling and are lost if the process
// terminates before they fire (the startup recovery sweep narrows, but does
// not close, that gap).
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pvzlink/parcel-system/internal/api/metrics"
)

// Timers schedules deferred actions. Scheduling never blocks the caller; the
// action runs on its own goroutine when the timer fires.
type Timers struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	log     zerolog.Logger
}

func New(log zerolog.Logger) *Timers {
	return &Timers{
		pending: make(map[string]*time.Timer),
		log:     log,
	}
}

// Schedule arms a one-shot timer for key. An existing timer for the same key
// is replaced; its action will not run.
func (t *Timers) Schedule(key string, delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		t.log.Warn().Str("key", key).Msg("scheduler stopped, deferred action dropped")
		return
	}

	if prev, ok := t.pending[key]; ok {
		prev.Stop()
	}

	t.pending[key] = time.AfterFunc(delay, func() {
		t.remove(key)
		fn()
	})
	metrics.SchedulerActiveTimers.Set(float64(len(t.pending)))
}

// Cancel stops the pending timer for key and reports whether one existed.
// A timer whose action has already started cannot be cancelled.
func (t *Timers) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.pending[key]
	if !ok {
		return false
	}
	delete(t.pending, key)
	metrics.SchedulerActiveTimers.Set(float64(len(t.pending)))
	return timer.Stop()
}

// Stop cancels all pending timers and rejects further scheduling. Used at
// shutdown; in-flight actions are not interrupted.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	for key, timer := range t.pending {
		timer.Stop()
		delete(t.pending, key)
	}
	metrics.SchedulerActiveTimers.Set(0)
}

// Len returns the number of pending timers.
func (t *Timers) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *Timers) remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, key)
	metrics.SchedulerActiveTimers.Set(float64(len(t.pending)))
}
