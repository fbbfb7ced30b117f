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

package startStop

import (
	"context"
	"errors"
	"sync"
	"time"

	libatm "github/sabouaram/breaknet/atomic"
	libpool "github/sabouaram/breaknet/errors/pool"
)

type runner struct {
	mu sync.Mutex

	fnStart FuncStart
	fnStop  FuncStop

	running libatm.Value[bool]
	started libatm.Value[time.Time]

	cancel context.CancelFunc
	done   chan struct{}

	errs libpool.Pool
}

func newRunner(start FuncStart, stop FuncStop) *runner {
	r := &runner{
		fnStart: start,
		fnStop:  stop,
		running: libatm.NewValue[bool](),
		started: libatm.NewValue[time.Time](),
		errs:    libpool.New(),
	}
	return r
}

func (r *runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked(ctx)

	if ctx == nil {
		ctx = context.Background()
	}

	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started.Store(time.Now())
	r.running.Store(true)

	done := r.done

	go func() {
		defer close(done)
		defer r.running.Store(false)

		if r.fnStart == nil {
			r.errs.Add(errors.New("invalid start function"))
			return
		}

		if err := r.fnStart(cctx); err != nil {
			r.errs.Add(err)
		}
	}()

	return nil
}

func (r *runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked(ctx)
	return nil
}

// stopLocked cancels and joins any running instance, then calls the stop function.
// Caller must hold r.mu.
func (r *runner) stopLocked(ctx context.Context) {
	if !r.running.Load() {
		return
	}

	if r.cancel != nil {
		r.cancel()
	}

	if r.done != nil {
		<-r.done
	}

	r.started.Store(time.Time{})

	if r.fnStop == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := r.fnStop(ctx); err != nil {
		r.errs.Add(err)
	}
}

func (r *runner) Restart(ctx context.Context) error {
	r.mu.Lock()
	r.stopLocked(ctx)
	r.mu.Unlock()

	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	return r.running.Load()
}

func (r *runner) Uptime() time.Duration {
	if !r.running.Load() {
		return 0
	}

	s := r.started.Load()
	if s.IsZero() {
		return 0
	}

	return time.Since(s)
}

func (r *runner) ErrorsLast() error {
	return r.errs.Last()
}

func (r *runner) ErrorsList() []error {
	return r.errs.Slice()
}
