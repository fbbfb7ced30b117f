// Package server implements the Server state machine of spec.md §4.4: one
// TLS control channel per client, the START handshake, the STEADY
// multiplex loop, and the close cascade.
package server

import (
	"context"
	"crypto/tls"
	"net"

	"github/sabouaram/breaknet/internal/appctx"
	"github/sabouaram/breaknet/internal/config"
	"github/sabouaram/breaknet/internal/log"
	"github/sabouaram/breaknet/internal/protocol"
	"github/sabouaram/breaknet/internal/splice"
)

// Server accepts control connections and runs one state machine per client.
type Server struct {
	cfg    *config.ServerConfig
	tlsCfg *tls.Config
	logger log.Logger

	reg *registry
}

// New builds a Server bound to cfg, ready to serve once given a listener.
func New(cfg *config.ServerConfig, tlsCfg *tls.Config, logger log.Logger) *Server {
	return &Server{
		cfg:    cfg,
		tlsCfg: tlsCfg,
		logger: logger,
		reg:    newRegistry(),
	}
}

// SetSessionLimitForTest overrides the session registry's capacity; it
// exists so integration tests can exercise capacity exhaustion without
// opening protocol.SessionMax real listeners.
func (s *Server) SetSessionLimitForTest(limit int) {
	s.reg.sessions.SetLimit(limit)
}

// Serve runs the control-channel accept loop on ln until ctx is canceled or
// Accept fails. Each accepted connection is TLS-wrapped and handled in its
// own goroutine (spec.md §4.4's ACCEPTING_TLS state).
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		go s.handleConn(ctx, tls.Server(raw, s.tlsCfg))
	}
}

// handleConn reads one opcode and dispatches to the START handshake or the
// stateless NEWCONN_SPLICE handler; any other opcode closes the connection.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	op, err := protocol.ReadOpcode(conn)
	if err != nil {
		return
	}

	switch op {
	case protocol.OpStart:
		ch := appctx.New(ctx, conn.RemoteAddr().String())
		s.handleStart(ctx, conn, ch)
	case protocol.OpNewConn:
		s.handleNewConn(conn)
	default:
		s.logger.Debug("unexpected opcode on fresh control connection", log.Fields{"opcode": op})
	}
}

// handleNewConn implements NEWCONN_SPLICE: stateless lookup of the pending
// external socket and an unconditional splice (spec.md §4.3).
func (s *Server) handleNewConn(conn net.Conn) {
	id, slot, err := protocol.ReadNewConnHeader(conn)
	if err != nil {
		return
	}

	sess, ok := s.reg.get(int(id))
	if !ok {
		return
	}

	external, ok := sess.Take(int(slot))
	if !ok {
		return
	}

	splice.Run(s.logger, external, conn)
}
