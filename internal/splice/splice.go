// Package splice implements the bidirectional byte-copy primitive of
// spec.md §4.7: two concurrent half-duplex copies between a pair of
// streams, each with its own half-shutdown on EOF.
package splice

import (
	"io"
	"net"
	"sync"

	"github/sabouaram/breaknet/internal/log"
)

// halfCloser is satisfied by net.TCPConn/tls.Conn: a stream that can shut
// down its write side without tearing down the read side.
type halfCloser interface {
	CloseWrite() error
}

// Run copies bytes both ways between a and b until both directions have
// reached EOF, half-shutting down each write side as its source empties.
// It blocks until both copies finish and logs (rather than returns) I/O
// errors, matching the original's "errors swallowed, logged at info".
func Run(logger log.Logger, a, b net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		copyHalf(logger, b, a)
	}()
	go func() {
		defer wg.Done()
		copyHalf(logger, a, b)
	}()

	wg.Wait()
}

// copyHalf copies src into dst, then half-shuts-down dst's write side (or
// closes it outright if it doesn't support half-close).
func copyHalf(logger log.Logger, dst, src net.Conn) {
	n, err := io.Copy(dst, src)
	if err != nil && logger != nil {
		logger.Info("splice half closed", log.Fields{
			"bytes": n,
			"error": err.Error(),
		})
	}

	if hc, ok := dst.(halfCloser); ok {
		_ = hc.CloseWrite()
	} else {
		_ = dst.Close()
	}
}
