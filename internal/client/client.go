// Package client implements the Client state machine of spec.md §4.5: the
// reconnect supervisor, the START handshake, the STEADY multiplex loop, and
// the dial-inner-and-splice worker.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"time"

	"github/sabouaram/breaknet/internal/config"
	"github/sabouaram/breaknet/internal/errs"
	"github/sabouaram/breaknet/internal/heartbeat"
	"github/sabouaram/breaknet/internal/log"
	"github/sabouaram/breaknet/internal/protocol"
	"github/sabouaram/breaknet/ioutils/mapCloser"
)

// reconnectDelay is the supervisor's backoff between sessions (spec.md §4.5).
const reconnectDelay = time.Second

// Client drives the outbound control connection for one ClientConfig.
type Client struct {
	cfg    *config.ClientConfig
	tlsCfg *tls.Config
	logger log.Logger
}

// New builds a Client that will repeatedly connect to cfg.Server.
func New(cfg *config.ClientConfig, tlsCfg *tls.Config, logger log.Logger) *Client {
	return &Client{cfg: cfg, tlsCfg: tlsCfg, logger: logger}
}

// Run is the supervisor loop: connect, run one session, sleep, repeat, until
// ctx is canceled (spec.md §4.5's "Supervisor: infinite loop").
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.runSession(ctx); err != nil {
			c.logger.Warn("control session ended", log.Fields{"error": err.Error()})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// RunOnce performs a single connect/handshake/STEADY cycle without the
// supervisor's reconnect loop, useful for tooling that wants to surface the
// handshake outcome directly (and for tests).
func (c *Client) RunOnce(ctx context.Context) error {
	return c.runSession(ctx)
}

// runSession performs one TCP-connect/TLS-wrap/handshake/STEADY cycle.
func (c *Client) runSession(ctx context.Context) error {
	raw, err := net.Dial("tcp", c.cfg.Server)
	if err != nil {
		return errs.ErrClientDialServer.Error(err)
	}

	conn := tls.Client(raw, c.tlsCfg)
	defer conn.Close()

	inner, err := c.handshake(conn)
	if err != nil {
		return err
	}

	c.logger.Info("handshake succeeded", log.Fields{"server": c.cfg.Server, "sessions": len(inner)})

	return c.steady(ctx, conn, inner)
}

// handshake sends START and reads the SUCCESS (or error) response, building
// the session_id → inner-address map (spec.md §4.5 steps 1–3).
func (c *Client) handshake(conn net.Conn) (map[uint16]string, error) {
	payload, err := json.Marshal(c.cfg)
	if err != nil {
		return nil, errs.ErrClientHandshakeRejected.Error(err)
	}

	if err := protocol.WriteStart(conn, payload); err != nil {
		return nil, errs.ErrClientDialServer.Error(err)
	}

	op, err := protocol.ReadOpcode(conn)
	if err != nil {
		return nil, errs.ErrClientHandshakeRejected.Error(err)
	}

	if op != protocol.OpSuccess {
		return nil, errs.ErrClientHandshakeRejected.Error(nil)
	}

	ids, err := protocol.ReadSessionIDs(conn, len(c.cfg.Map))
	if err != nil {
		return nil, errs.ErrClientHandshakeRejected.Error(err)
	}

	inner := make(map[uint16]string, len(ids))
	for i, id := range ids {
		inner[id] = c.cfg.Map[i].Inner
	}
	return inner, nil
}

// tickerCloser adapts a started heartbeat ticker's Stop method into an
// io.Closer so it can be fanned into the same mapCloser.Closer as the
// control connection itself, rather than a hand-rolled defer chain.
type tickerCloser struct {
	stop func(context.Context) error
}

func (t tickerCloser) Close() error { return t.stop(context.Background()) }

// steady multiplexes inbound NEWSOCKET/IDLE frames against the heartbeat
// emitter and watchdog (spec.md §4.5 step 5). The control connection, the
// emitter and the watchdog are this session's per-mapping-independent
// resources; they are registered into one mapCloser.Closer so ending the
// session is a single Close() call. In-flight dialAndSplice workers are
// deliberately NOT registered here: spec.md §9 calls for active data
// splices to keep running after the control channel dies, since each is an
// independent TCP flow that needs no control channel.
func (c *Client) steady(ctx context.Context, conn net.Conn, inner map[uint16]string) error {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	closer := mapCloser.New(cctx)
	defer closer.Close()

	watchdog := heartbeat.NewWatchdog(protocol.HeartbeatTimeout*time.Second, func() {
		c.logger.Warn("heartbeat timeout, closing control session", log.Fields{})
		_ = conn.Close()
	})
	_ = watchdog.Start(cctx)
	closer.Add(tickerCloser{stop: watchdog.Stop})

	emitter := heartbeat.NewEmitter(protocol.HeartbeatTime*time.Second, func() error {
		return protocol.WriteOpcode(conn, protocol.OpIdle)
	})
	_ = emitter.Start(cctx)
	closer.Add(tickerCloser{stop: emitter.Stop})

	frames := make(chan protocol.SlotFrame, 1)
	readErr := make(chan error, 1)
	go func() {
		for {
			op, err := protocol.ReadOpcode(conn)
			if err != nil {
				select {
				case readErr <- err:
				case <-cctx.Done():
				}
				return
			}

			if op == protocol.OpNewSocket {
				sessionID, slot, err := protocol.ReadNewConnHeader(conn)
				if err != nil {
					select {
					case readErr <- err:
					case <-cctx.Done():
					}
					return
				}
				select {
				case frames <- protocol.SlotFrame{Op: op, SessionID: sessionID, Slot: slot}:
				case <-cctx.Done():
					return
				}
				continue
			}

			select {
			case frames <- protocol.SlotFrame{Op: op}:
			case <-cctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return err

		case frame := <-frames:
			switch frame.Op {
			case protocol.OpNewSocket:
				addr, ok := inner[frame.SessionID]
				if !ok {
					continue
				}
				go c.dialAndSplice(cctx, addr, frame.SessionID, frame.Slot)
			case protocol.OpIdle:
				watchdog.Reset()
			default:
				// unknown inbound opcode: ignore.
			}
		}
	}
}
