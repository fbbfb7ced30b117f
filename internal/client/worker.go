package client

import (
	"context"
	"crypto/tls"
	"net"

	"github/sabouaram/breaknet/internal/log"
	"github/sabouaram/breaknet/internal/protocol"
	"github/sabouaram/breaknet/internal/splice"
)

// dialAndSplice implements the worker contract of spec.md §4.6: dial the
// private service first (a failure here costs nothing on the server, whose
// PendingSlot simply expires), then dial the control server back, announce
// NEWCONN, and splice.
func (c *Client) dialAndSplice(ctx context.Context, innerAddr string, sessionID uint16, slot byte) {
	var dialer net.Dialer

	inner, err := dialer.DialContext(ctx, "tcp", innerAddr)
	if err != nil {
		c.logger.Info("inner dial failed, abandoning pending slot", log.Fields{
			"inner": innerAddr, "session_id": sessionID, "slot": slot, "error": err.Error(),
		})
		return
	}

	raw, err := dialer.DialContext(ctx, "tcp", c.cfg.Server)
	if err != nil {
		c.logger.Warn("data-connection dial to server failed", log.Fields{"error": err.Error()})
		_ = inner.Close()
		return
	}

	data := tls.Client(raw, c.tlsCfg)

	if err := protocol.WriteSlotFrame(data, protocol.OpNewConn, sessionID, slot); err != nil {
		_ = inner.Close()
		_ = data.Close()
		return
	}

	splice.Run(c.logger, inner, data)
}
