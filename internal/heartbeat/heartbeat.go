// Package heartbeat implements the two independent interval timers of
// spec.md §4.8: an emitter that writes one IDLE byte every HEARTBEAT_TIME,
// and a watchdog that fires after HEARTBEAT_TIMEOUT of silence unless reset
// by an observed IDLE.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"github/sabouaram/breaknet/runner/ticker"
)

// Emitter fires onTick every interval. Used to write an IDLE frame.
type Emitter struct {
	t ticker.Ticker
}

// NewEmitter builds an Emitter invoking onTick on every tick of interval.
func NewEmitter(interval time.Duration, onTick func() error) *Emitter {
	return &Emitter{
		t: ticker.New(interval, func(_ context.Context, _ *time.Ticker) error {
			if onTick == nil {
				return nil
			}
			return onTick()
		}),
	}
}

func (e *Emitter) Start(ctx context.Context) error { return e.t.Start(ctx) }
func (e *Emitter) Stop(ctx context.Context) error  { return e.t.Stop(ctx) }

// Watchdog fires onTimeout if it is not Reset within timeout of its last
// fire (or of NewWatchdog, where its ticker starts). Unlike Emitter, it cannot be built on ticker.Ticker: that
// package only hands its internal *time.Ticker to the tick callback, which
// does not run until the first interval has already elapsed, so Reset would
// be a no-op for the entire first window. Watchdog instead owns its
// *time.Ticker from construction, so Reset is live immediately.
type Watchdog struct {
	timeout   time.Duration
	onTimeout func()

	mu     sync.Mutex
	tck    *time.Ticker
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatchdog builds a Watchdog that calls onTimeout every timeout unless
// Reset is called in the interim.
func NewWatchdog(timeout time.Duration, onTimeout func()) *Watchdog {
	return &Watchdog{
		timeout:   timeout,
		onTimeout: onTimeout,
		tck:       time.NewTicker(timeout),
	}
}

// Start begins watching for silence; safe to call again after Stop.
func (w *Watchdog) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()

	if ctx == nil {
		ctx = context.Background()
	}

	cctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	tck := w.tck

	go func() {
		defer close(done)
		for {
			select {
			case <-cctx.Done():
				return
			case <-tck.C:
				if w.onTimeout != nil {
					w.onTimeout()
				}
			}
		}
	}()

	return nil
}

// Stop cancels the watchdog goroutine and joins it.
func (w *Watchdog) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
	return nil
}

func (w *Watchdog) stopLocked() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
}

// Reset restarts the countdown, called whenever an IDLE frame is observed.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	tck := w.tck
	w.mu.Unlock()

	tck.Reset(w.timeout)
}
