// Package protocol implements the control-channel wire codec of spec.md §4.3:
// a 1-byte opcode, an 8-byte big-endian length for the START handshake's JSON
// payload, and 4-byte NEWSOCKET/NEWCONN frames. All integers are big-endian.
//
// Two of the three open questions in spec.md §9 are resolved here (see
// DESIGN.md): the length prefix is emitted as correct big-endian rather than
// the original's double-byte-3 encoding, and the session-id high byte is the
// true (id>>8)&0xff rather than a boolean.
package protocol

import (
	"encoding/binary"
	"io"

	"github/sabouaram/breaknet/internal/errs"
)

// Opcode is one control-channel frame tag (spec.md §4.3).
type Opcode byte

const (
	OpStart            Opcode = 1
	OpNewSocket        Opcode = 2
	OpNewConn          Opcode = 3
	OpError            Opcode = 4
	OpSuccess          Opcode = 5
	OpIdle             Opcode = 6
	OpKill             Opcode = 7
	OpErrorPwd         Opcode = 8
	OpErrorBusy        Opcode = 9
	OpErrorLimitPort   Opcode = 10
	OpErrorSessionOver Opcode = 11
)

// MaxStartLen is the cap on the START payload length (spec.md §3 invariant 5).
const MaxStartLen = 1 << 20

// SessionCap is the number of PendingSlots per Session (spec.md §3/§4.2);
// SessionCapMask extracts the ring index from a monotonic counter.
const (
	SessionCap     = 8
	SessionCapMask = SessionCap - 1
)

// SessionMax bounds the number of live sessions (spec.md §3).
const SessionMax = 1 << 16

// HeartbeatTime and HeartbeatTimeout are the heartbeat periods of spec.md §4.8.
const (
	HeartbeatTime    = 3 // seconds
	HeartbeatTimeout = 6 // seconds
)

// PendingSlotTTLSeconds is the PendingSlot freshness deadline (spec.md §3).
const PendingSlotTTLSeconds = 10

// WriteOpcode writes a single opcode byte, used for IDLE/KILL/ERROR* frames.
func WriteOpcode(w io.Writer, op Opcode) error {
	_, err := w.Write([]byte{byte(op)})
	return err
}

// ReadOpcode reads a single opcode byte.
func ReadOpcode(r io.Reader) (Opcode, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errs.ErrProtocolShortRead.Error(err)
	}
	return Opcode(b[0]), nil
}

// WriteStart writes the START frame: opcode, 8-byte big-endian length, payload.
func WriteStart(w io.Writer, payload []byte) error {
	if len(payload) > MaxStartLen {
		return errs.ErrProtocolOversizedLength.Error(nil)
	}

	var hdr [9]byte
	hdr[0] = byte(OpStart)
	binary.BigEndian.PutUint64(hdr[1:], uint64(len(payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadStartLenPayload reads the 8-byte length and the JSON payload that follow
// a START opcode already consumed by the caller.
func ReadStartLenPayload(r io.Reader) ([]byte, error) {
	var lb [8]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return nil, errs.ErrProtocolShortRead.Error(err)
	}

	n := binary.BigEndian.Uint64(lb[:])
	if n > MaxStartLen {
		return nil, errs.ErrProtocolOversizedLength.Error(nil)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errs.ErrProtocolShortRead.Error(err)
	}

	return payload, nil
}

// WriteSuccess writes SUCCESS followed by two bytes per session id, high byte
// first. Unlike the original, the high byte is the true (id>>8)&0xff.
func WriteSuccess(w io.Writer, ids []uint16) error {
	buf := make([]byte, 1+2*len(ids))
	buf[0] = byte(OpSuccess)
	for i, id := range ids {
		buf[1+2*i] = byte(id >> 8)
		buf[1+2*i+1] = byte(id)
	}
	_, err := w.Write(buf)
	return err
}

// ReadSessionIDs reads n big-endian uint16 session ids following a consumed
// SUCCESS opcode.
func ReadSessionIDs(r io.Reader, n int) ([]uint16, error) {
	buf := make([]byte, 2*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errs.ErrProtocolShortRead.Error(err)
	}

	ids := make([]uint16, n)
	for i := 0; i < n; i++ {
		ids[i] = uint16(buf[2*i])<<8 | uint16(buf[2*i+1])
	}
	return ids, nil
}

// SlotFrame is the decoded form of a 4-byte NEWSOCKET/NEWCONN frame.
type SlotFrame struct {
	Op        Opcode
	SessionID uint16
	Slot      byte
}

// WriteSlotFrame writes a 4-byte [opcode, id_hi, id_lo, slot] frame.
func WriteSlotFrame(w io.Writer, op Opcode, sessionID uint16, slot byte) error {
	buf := [4]byte{byte(op), byte(sessionID >> 8), byte(sessionID), slot}
	_, err := w.Write(buf[:])
	return err
}

// ReadSlotFrame reads a 4-byte [opcode, id_hi, id_lo, slot] frame.
func ReadSlotFrame(r io.Reader) (SlotFrame, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return SlotFrame{}, errs.ErrProtocolShortRead.Error(err)
	}
	return SlotFrame{
		Op:        Opcode(buf[0]),
		SessionID: uint16(buf[1])<<8 | uint16(buf[2]),
		Slot:      buf[3],
	}, nil
}

// ReadNewConnHeader reads the 3 bytes [id_hi, id_lo, slot] that follow a
// consumed NEWCONN opcode (spec.md §4.3's data-connection handshake).
func ReadNewConnHeader(r io.Reader) (sessionID uint16, slot byte, err error) {
	var buf [3]byte
	if _, err = io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, errs.ErrProtocolShortRead.Error(err)
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), buf[2], nil
}

// IsErrorOpcode reports whether op is one of the documented error replies.
func IsErrorOpcode(op Opcode) bool {
	switch op {
	case OpError, OpErrorPwd, OpErrorBusy, OpErrorLimitPort, OpErrorSessionOver:
		return true
	default:
		return false
	}
}
