package server

import (
	"context"

	"github/sabouaram/breaknet/internal/log"
	"github/sabouaram/breaknet/internal/protocol"
	"github/sabouaram/breaknet/internal/session"
)

// listenerTask is the producer side of one mapping's Session: it accepts
// external connections on sess.Listener, pushes each into the PendingSlot
// ring, and forwards a NEWSOCKET frame to the owning control channel's
// outbound queue (spec.md §4.2/§4.4). It exits once the listener is closed
// by the close cascade.
func (s *Server) listenerTask(ctx context.Context, sess *session.Session, id uint16, outbound chan<- protocol.SlotFrame) {
	for {
		conn, err := sess.Listener.Accept()
		if err != nil {
			return
		}

		if !sess.Using() {
			_ = conn.Close()
			return
		}

		slot, ok := sess.Push(conn)
		if !ok {
			s.logger.Warn("pending slot ring full, dropping external connection", log.Fields{"session_id": id, "port": sess.Port})
			_ = conn.Close()
			continue
		}

		frame := protocol.SlotFrame{Op: protocol.OpNewSocket, SessionID: id, Slot: byte(slot)}

		select {
		case outbound <- frame:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}
