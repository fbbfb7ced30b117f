// Package errs carries the numeric error-code taxonomy for the tunnel, grounded
// on the vendored errors package's CodeError pattern: each failing subsystem
// registers its own code range and message function, and wraps underlying
// causes instead of returning bare strings.
package errs

import (
	liberr "github/sabouaram/breaknet/errors"
)

// Code ranges, one per subsystem, spaced the way errors/modules.go spaces
// MinPkgXxx constants for the vendored packages.
const (
	MinConfig   = 100
	MinProtocol = 200
	MinSession  = 300
	MinServer   = 400
	MinClient   = 500
	MinTLS      = 600
)

const (
	ErrConfigRead liberr.CodeError = iota + MinConfig
	ErrConfigParse
	ErrConfigValidate
	ErrConfigEmptyMap
	ErrConfigDecodeBase64
)

const (
	ErrProtocolShortRead liberr.CodeError = iota + MinProtocol
	ErrProtocolOversizedLength
	ErrProtocolMalformedFrame
	ErrProtocolUnknownOpcode
)

const (
	ErrSessionSlabFull liberr.CodeError = iota + MinSession
	ErrSessionPortConflict
	ErrSessionClosed
	ErrSessionSlotEmpty
)

const (
	ErrServerBindExhausted liberr.CodeError = iota + MinServer
	ErrServerAuth
	ErrServerPortPolicy
	ErrServerHandshake
)

const (
	ErrClientDialInner liberr.CodeError = iota + MinClient
	ErrClientDialServer
	ErrClientHandshakeRejected
)

const (
	ErrTLSLoadMaterial liberr.CodeError = iota + MinTLS
)

var isRegistered = false

func init() {
	isRegistered = liberr.ExistInMapMessage(ErrConfigRead)
	liberr.RegisterIdFctMessage(ErrConfigRead, message)
}

// IsRegistered reports whether this package's message function is installed.
func IsRegistered() bool {
	return isRegistered
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrConfigRead:
		return "cannot read configuration source"
	case ErrConfigParse:
		return "cannot parse configuration JSON"
	case ErrConfigValidate:
		return "configuration failed validation"
	case ErrConfigEmptyMap:
		return "client configuration map is empty"
	case ErrConfigDecodeBase64:
		return "cannot decode base64 configuration"

	case ErrProtocolShortRead:
		return "short read on control channel"
	case ErrProtocolOversizedLength:
		return "start payload exceeds maximum length"
	case ErrProtocolMalformedFrame:
		return "malformed protocol frame"
	case ErrProtocolUnknownOpcode:
		return "unknown opcode"

	case ErrSessionSlabFull:
		return "session registry at capacity"
	case ErrSessionPortConflict:
		return "outer port already bound by another session"
	case ErrSessionClosed:
		return "session is closed"
	case ErrSessionSlotEmpty:
		return "pending slot is empty"

	case ErrServerBindExhausted:
		return "exhausted bind attempts for outer port"
	case ErrServerAuth:
		return "shared key mismatch"
	case ErrServerPortPolicy:
		return "outer port outside configured limit"
	case ErrServerHandshake:
		return "start handshake failed"

	case ErrClientDialInner:
		return "cannot dial inner service"
	case ErrClientDialServer:
		return "cannot dial control server"
	case ErrClientHandshakeRejected:
		return "server rejected start handshake"

	case ErrTLSLoadMaterial:
		return "cannot load TLS material"
	}

	return ""
}
