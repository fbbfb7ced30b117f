/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package ticker

import (
	"context"
	"sync"
	"time"

	libatm "github/sabouaram/breaknet/atomic"
	libpool "github/sabouaram/breaknet/errors/pool"
)

type ticker struct {
	mu sync.Mutex

	period time.Duration
	fn     FuncTick

	running libatm.Value[bool]
	started libatm.Value[time.Time]

	cancel context.CancelFunc
	done   chan struct{}

	errs libpool.Pool
}

func newTicker(d time.Duration, fn FuncTick) *ticker {
	return &ticker{
		period:  d,
		fn:      fn,
		running: libatm.NewValue[bool](),
		started: libatm.NewValue[time.Time](),
		errs:    libpool.New(),
	}
}

func (t *ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	if ctx == nil {
		ctx = context.Background()
	}

	cctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.started.Store(time.Now())
	t.running.Store(true)

	done := t.done
	fn := t.fn
	period := t.period

	go func() {
		defer close(done)
		defer t.running.Store(false)

		tck := time.NewTicker(period)
		defer tck.Stop()

		for {
			select {
			case <-cctx.Done():
				return
			case <-tck.C:
				if fn == nil {
					continue
				}
				if err := fn(cctx, tck); err != nil {
					t.errs.Add(err)
				}
			}
		}
	}()

	return nil
}

func (t *ticker) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	return nil
}

func (t *ticker) stopLocked() {
	if !t.running.Load() {
		return
	}

	if t.cancel != nil {
		t.cancel()
	}

	if t.done != nil {
		<-t.done
	}

	t.started.Store(time.Time{})
}

func (t *ticker) Restart(ctx context.Context) error {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()

	return t.Start(ctx)
}

func (t *ticker) IsRunning() bool {
	return t.running.Load()
}

func (t *ticker) Uptime() time.Duration {
	if !t.running.Load() {
		return 0
	}

	s := t.started.Load()
	if s.IsZero() {
		return 0
	}

	return time.Since(s)
}

func (t *ticker) ErrorsLast() error {
	return t.errs.Last()
}

func (t *ticker) ErrorsList() []error {
	return t.errs.Slice()
}
