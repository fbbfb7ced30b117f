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

// Package ticker provides a restartable periodic task driven by a time.Ticker,
// with observable running state, uptime and captured errors.
package ticker

import (
	"context"
	"time"
)

// minInterval is the smallest accepted tick period; smaller values fall back to it.
const minInterval = time.Millisecond

// FuncTick is invoked on every tick. It receives the underlying *time.Ticker so
// that it may Reset the period itself (used by the heartbeat watchdog).
type FuncTick func(ctx context.Context, tck *time.Ticker) error

// Ticker is a restartable background periodic task.
type Ticker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

// New creates a Ticker that invokes fn every d (or minInterval, if d is smaller).
// fn may be nil, in which case ticks are silently discarded.
func New(d time.Duration, fn FuncTick) Ticker {
	if d < minInterval {
		d = minInterval
	}

	return newTicker(d, fn)
}
