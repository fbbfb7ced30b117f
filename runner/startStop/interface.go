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

// Package startStop provides a small Start/Stop/Restart lifecycle wrapper around
// a pair of user functions, tracking running state, uptime and captured errors.
package startStop

import (
	"context"
	"time"
)

// FuncStart is invoked by Start, on its own goroutine, with a context cancelled by Stop.
type FuncStart func(ctx context.Context) error

// FuncStop is invoked by Stop once the start function has returned.
type FuncStop func(ctx context.Context) error

// StartStop is a restartable background task with observable lifecycle state.
type StartStop interface {
	// Start launches the start function on its own goroutine. If already running,
	// the previous instance is stopped first. Start never blocks on the start
	// function itself; errors are captured and retrievable via ErrorsLast/ErrorsList.
	Start(ctx context.Context) error
	// Stop cancels the running start function, waits for it to return, then
	// invokes the stop function. Calling Stop when not running is a no-op.
	Stop(ctx context.Context) error
	// Restart stops then starts the runner with the given context.
	Restart(ctx context.Context) error
	// IsRunning reports whether the start function is currently executing.
	IsRunning() bool
	// Uptime returns the duration since the last successful Start, or zero if not running.
	Uptime() time.Duration
	// ErrorsLast returns the most recently captured error, or nil.
	ErrorsLast() error
	// ErrorsList returns every captured error in insertion order.
	ErrorsList() []error
}

// New creates a new StartStop wrapping the given start and stop functions.
// Either may be nil; a nil start function yields a captured error on Start,
// a nil stop function is simply skipped on Stop.
func New(start FuncStart, stop FuncStop) StartStop {
	return newRunner(start, stop)
}
