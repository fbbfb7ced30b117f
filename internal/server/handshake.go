package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github/sabouaram/breaknet/internal/appctx"
	"github/sabouaram/breaknet/internal/config"
	"github/sabouaram/breaknet/internal/errs"
	"github/sabouaram/breaknet/internal/heartbeat"
	"github/sabouaram/breaknet/internal/log"
	"github/sabouaram/breaknet/internal/protocol"
	"github/sabouaram/breaknet/internal/session"
	"github/sabouaram/breaknet/ioutils/mapCloser"
)

// sessionCloser adapts a registry removal into an io.Closer so every
// per-mapping Session can be fanned into a single mapCloser.Closer, rather
// than a hand-rolled removal loop (spec.md §4.4's close cascade).
type sessionCloser struct {
	reg *registry
	id  int
}

func (c sessionCloser) Close() error {
	c.reg.remove(c.id)
	return nil
}

const (
	bindRetries    = 9
	bindRetryDelay = time.Second
)

// handleStart implements START_HANDSHAKE (spec.md §4.4): parse, authenticate,
// apply port policy, create one Session per mapping with rollback on
// capacity exhaustion, bind each listener with conflict-eviction retry, emit
// SUCCESS, then enter STEADY.
func (s *Server) handleStart(ctx context.Context, conn net.Conn, ch *appctx.Channel) {
	payload, err := protocol.ReadStartLenPayload(conn)
	if err != nil {
		return
	}

	var cc config.ClientConfig
	if err := json.Unmarshal(payload, &cc); err != nil {
		_ = protocol.WriteOpcode(conn, protocol.OpError)
		return
	}
	if err := cc.Validate(); err != nil {
		_ = protocol.WriteOpcode(conn, protocol.OpError)
		return
	}

	// Both keys were hashed at config-load time (internal/config.Load), so
	// the wire comparison is a plain equality on the hashed forms.
	if cc.Key != s.cfg.Key {
		_ = protocol.WriteOpcode(conn, protocol.OpErrorPwd)
		s.logger.Warn("rejected start: key mismatch", log.Fields{"remote": ch.RemoteAddr()})
		return
	}

	if s.cfg.LimitPort != nil {
		for _, m := range cc.Map {
			if !s.cfg.PortAllowed(m.Outer) {
				_ = protocol.WriteOpcode(conn, protocol.OpErrorLimitPort)
				s.logger.Warn("rejected start: outer port outside limit", log.Fields{"outer": m.Outer})
				return
			}
		}
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	closer := mapCloser.New(cctx)

	ids, sessions, err := s.createSessions(closer, cc.Map)
	var bindErr *net.OpError
	if errors.As(err, &bindErr) {
		_ = protocol.WriteOpcode(conn, protocol.OpErrorBusy)
		s.logger.Warn("rejected start: outer port still busy after bind retries", log.Fields{"remote": ch.RemoteAddr()})
		return
	}
	if err != nil {
		_ = protocol.WriteOpcode(conn, protocol.OpErrorSessionOver)
		s.logger.Warn("rejected start: session capacity exhausted", log.Fields{"remote": ch.RemoteAddr()})
		return
	}

	if err := protocol.WriteSuccess(conn, ids); err != nil {
		_ = closer.Close()
		return
	}

	ch.SetSessionIDs(ids)
	s.logger.Info("start handshake complete", log.Fields{"remote": ch.RemoteAddr(), "session_ids": ids})

	outbound := make(chan protocol.SlotFrame, 100)

	for i, id := range ids {
		go s.listenerTask(cctx, sessions[i], uint16(id), outbound)
	}

	s.steady(cctx, conn, outbound)
	_ = closer.Close()
}

// createSessions binds a listener and allocates a session_id for every
// mapping, adding each into closer as it commits so a single Closer.Close()
// call rolls back everything already committed if a later mapping fails.
func (s *Server) createSessions(closer mapCloser.Closer, mappings []config.Mapping) (ids []int, sessions []*session.Session, err error) {
	for _, m := range mappings {
		ln, bindErr := s.bindOuter(m.Outer)
		if bindErr != nil {
			_ = closer.Close()
			return nil, nil, bindErr
		}

		sess := session.New(m.Outer, ln)
		id, ok := s.reg.insert(sess)
		if !ok {
			sess.Close()
			_ = closer.Close()
			return nil, nil, errs.ErrSessionSlabFull.Error(nil)
		}

		closer.Add(sessionCloser{reg: s.reg, id: id})
		ids = append(ids, id)
		sessions = append(sessions, sess)
	}

	return ids, sessions, nil
}

// bindOuter binds the mapped external port, evicting a conflicting existing
// session and retrying for up to bindRetries attempts (spec.md §4.4 step 4,
// exercised by scenario S4).
func (s *Server) bindOuter(outer uint16) (net.Listener, error) {
	var lastErr error

	for attempt := 0; attempt < bindRetries; attempt++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(int(outer))))
		if err == nil {
			return ln, nil
		}

		lastErr = err
		s.reg.evictPort(outer)
		time.Sleep(bindRetryDelay)
	}

	return nil, fmt.Errorf("exhausted bind attempts for port %d: %w", outer, lastErr)
}

// steady multiplexes the three sources of spec.md §4.4's STEADY loop:
// the outbound NEWSOCKET queue, inbound IDLE/unknown bytes, and the
// heartbeat watchdog.
func (s *Server) steady(ctx context.Context, conn net.Conn, outbound chan protocol.SlotFrame) {
	watchdog := heartbeat.NewWatchdog(protocol.HeartbeatTimeout*time.Second, func() {
		s.logger.Warn("heartbeat timeout, closing control channel", log.Fields{})
		_ = conn.Close()
	})
	_ = watchdog.Start(ctx)
	defer watchdog.Stop(ctx)

	inbound := make(chan protocol.Opcode, 1)
	inboundErr := make(chan error, 1)
	go func() {
		for {
			op, err := protocol.ReadOpcode(conn)
			if err != nil {
				select {
				case inboundErr <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case inbound <- op:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-outbound:
			if !ok {
				return
			}
			if err := protocol.WriteSlotFrame(conn, frame.Op, frame.SessionID, frame.Slot); err != nil {
				return
			}

		case op := <-inbound:
			switch op {
			case protocol.OpIdle:
				watchdog.Reset()
				if err := protocol.WriteOpcode(conn, protocol.OpIdle); err != nil {
					return
				}
			case protocol.OpKill:
				return
			default:
				// unknown inbound opcode: ignore, per spec.md §4.4.
			}

		case <-inboundErr:
			return
		}
	}
}
