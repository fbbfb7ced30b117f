// Package appctx carries per-control-channel metadata (remote address,
// negotiated session ids, connection start time) alongside the standard
// context.Context, grounded on the teacher's typed context.Config map.
package appctx

import (
	"context"
	"time"

	libctx "github/sabouaram/breaknet/context"
)

// Key names the well-known fields stored on a Channel.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeySessionIDs Key = "session_ids"
	KeyStartedAt  Key = "started_at"
)

// Channel is the metadata carrier for one control connection's lifetime.
type Channel struct {
	libctx.Config[Key]
}

// New builds a Channel rooted at ctx (or context.Background if nil),
// pre-populated with the peer's remote address and the start time.
func New(ctx context.Context, remoteAddr string) *Channel {
	cfg := libctx.New[Key](ctx)
	cfg.Store(KeyRemoteAddr, remoteAddr)
	cfg.Store(KeyStartedAt, time.Now())

	return &Channel{Config: cfg}
}

// RemoteAddr returns the peer address recorded at construction.
func (c *Channel) RemoteAddr() string {
	v, ok := c.Load(KeyRemoteAddr)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// StartedAt returns the time this Channel was created.
func (c *Channel) StartedAt() time.Time {
	v, ok := c.Load(KeyStartedAt)
	if !ok {
		return time.Time{}
	}
	t, _ := v.(time.Time)
	return t
}

// SetSessionIDs records the session ids negotiated during START.
func (c *Channel) SetSessionIDs(ids []uint16) {
	c.Store(KeySessionIDs, ids)
}

// SessionIDs returns the session ids negotiated during START, if any.
func (c *Channel) SessionIDs() []uint16 {
	v, ok := c.Load(KeySessionIDs)
	if !ok {
		return nil
	}
	ids, _ := v.([]uint16)
	return ids
}
