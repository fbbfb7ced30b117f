// Package session implements the per-mapping Session and its ring of
// PendingSlots (spec.md §3/§4.2): the rendezvous point between an external
// socket accepted on the mapped port and the data connection the client
// opens in response to a NEWSOCKET notification.
package session

import (
	"math"
	"net"
	"sync"
	"time"

	libatm "github/sabouaram/breaknet/atomic"
	"github/sabouaram/breaknet/internal/protocol"
)

// pendingSlot is a single-socket rendezvous point with a freshness deadline.
type pendingSlot struct {
	mu    sync.Mutex
	conn  net.Conn
	start int64 // unix seconds; math.MaxInt64 when empty
}

// Session owns one mapping's external listener and its PendingSlot ring.
type Session struct {
	Port     uint16
	Listener net.Listener

	slots [protocol.SessionCap]*pendingSlot

	nextMu sync.Mutex
	next   uint64

	using libatm.Value[bool]

	nowFn func() int64 // overridable for tests
}

// New allocates a Session for the given port and listener, SESSION_CAP empty
// slots, and marks it live.
func New(port uint16, ln net.Listener) *Session {
	s := &Session{
		Port:     port,
		Listener: ln,
		using:    libatm.NewValue[bool](),
		nowFn:    func() int64 { return time.Now().Unix() },
	}

	for i := range s.slots {
		s.slots[i] = &pendingSlot{start: math.MaxInt64}
	}

	s.using.Store(true)
	return s
}

// Using reports whether this Session still accepts new pushes.
func (s *Session) Using() bool {
	return s.using.Load()
}

// Push installs conn into the next available or stale slot, probing up to
// SESSION_CAP slots starting at the session's monotonic counter (spec.md
// §4.2). It returns false if the ring is full of fresh pending sockets, or
// if the Session has been closed.
func (s *Session) Push(conn net.Conn) (slot int, ok bool) {
	if !s.Using() {
		return 0, false
	}

	s.nextMu.Lock()
	start := s.next
	s.next++
	s.nextMu.Unlock()

	now := s.nowFn()

	for i := uint64(0); i < protocol.SessionCap; i++ {
		idx := int((start + i) & protocol.SessionCapMask)
		sl := s.slots[idx]

		sl.mu.Lock()
		switch {
		case sl.conn == nil:
			sl.conn = conn
			sl.start = now
			sl.mu.Unlock()
			return idx, true
		case now-sl.start > protocol.PendingSlotTTLSeconds:
			stale := sl.conn
			sl.conn = conn
			sl.start = now
			sl.mu.Unlock()
			_ = stale.Close()
			return idx, true
		default:
			sl.mu.Unlock()
		}
	}

	return 0, false
}

// Take removes and returns the socket held at slot, if any (spec.md §4.3's
// NEWCONN_SPLICE: "takes its socket ... If the slot is empty, the server
// closes the TLS stream without error").
func (s *Session) Take(slot int) (net.Conn, bool) {
	if slot < 0 || slot >= protocol.SessionCap {
		return nil, false
	}

	sl := s.slots[slot]
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.conn == nil {
		return nil, false
	}

	c := sl.conn
	sl.conn = nil
	sl.start = math.MaxInt64
	return c, true
}

// Close marks the Session dead, wakes a blocked Accept on its listener via a
// self-dial (spec.md §9's documented technique, used here deliberately rather
// than as a bug), and shuts down every still-held pending socket. Safe to
// call more than once.
func (s *Session) Close() {
	if !s.using.CompareAndSwap(true, false) {
		return
	}

	if s.Listener != nil {
		if addr := s.Listener.Addr(); addr != nil {
			if c, err := net.DialTimeout("tcp", addr.String(), time.Second); err == nil {
				_ = c.Close()
			}
		}
		_ = s.Listener.Close()
	}

	for _, sl := range s.slots {
		sl.mu.Lock()
		if sl.conn != nil {
			_ = sl.conn.Close()
		}
		sl.conn = nil
		sl.start = math.MaxInt64
		sl.mu.Unlock()
	}
}
