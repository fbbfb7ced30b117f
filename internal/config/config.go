// Package config defines the two static configuration shapes consumed by the
// server and client binaries (spec.md §3/§6), validated with the vendored
// go-playground/validator dependency the way certificates/config.go validates
// its own struct, and permission-checked with the vendored file/perm package
// (a supplemented hardening not present in the original tool; see
// SPEC_FULL.md §12).
package config

import (
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"

	"github/sabouaram/breaknet/file/perm"
	"github/sabouaram/breaknet/internal/errs"
	"github/sabouaram/breaknet/internal/keyhash"
	"github/sabouaram/breaknet/internal/log"
)

// PortLimit is the closed interval [Low, High] restricting permissible outer
// ports (spec.md §3/§6, the server's optional "-limit-port": [lo, hi]).
type PortLimit struct {
	Low  uint16
	High uint16
}

// UnmarshalJSON decodes the documented 2-element JSON array form, e.g.
// [9100, 9110], rather than a JSON object.
func (p *PortLimit) UnmarshalJSON(data []byte) error {
	var pair [2]uint16
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Low, p.High = pair[0], pair[1]
	return nil
}

// MarshalJSON encodes PortLimit back to its documented 2-element array form.
func (p PortLimit) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint16{p.Low, p.High})
}

// ServerConfig is the server-side configuration (spec.md §3/§6).
type ServerConfig struct {
	Key       string     `json:"key" validate:"required"`
	Port      uint16     `json:"port" validate:"required"`
	LimitPort *PortLimit `json:"-limit-port,omitempty"`
}

// Mapping is one (inner, outer) pair (spec.md §3).
type Mapping struct {
	Inner string `json:"inner" validate:"required,hostname_port|ip4_addr"`
	Outer uint16 `json:"outer" validate:"required"`
}

// ClientConfig is the client-side configuration (spec.md §3/§6).
type ClientConfig struct {
	Key    string    `json:"key" validate:"required"`
	Server string    `json:"server" validate:"required"`
	Map    []Mapping `json:"map" validate:"required,min=1,dive"`
}

// Root is the on-disk config document; exactly one of Server/Client is set
// (spec.md §6).
type Root struct {
	Server *ServerConfig `json:"server,omitempty"`
	Client *ClientConfig `json:"client,omitempty"`
}

var validate = validator.New()

// Validate checks a ClientConfig against its struct tags, and rejects an
// empty map explicitly per spec.md §4.4 step 1 ("reject if map.len() == 0").
func (c *ClientConfig) Validate() error {
	if len(c.Map) == 0 {
		return errs.ErrConfigEmptyMap.Error(nil)
	}
	if err := validate.Struct(c); err != nil {
		return errs.ErrConfigValidate.Error(err)
	}
	return nil
}

// Validate checks a ServerConfig against its struct tags.
func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.ErrConfigValidate.Error(err)
	}
	return nil
}

// PortAllowed reports whether outer satisfies the configured limit_port, if any.
func (c *ServerConfig) PortAllowed(outer uint16) bool {
	if c.LimitPort == nil {
		return true
	}
	return outer >= c.LimitPort.Low && outer <= c.LimitPort.High
}

// Load reads a Root document either from a JSON file (typeOf==1) or from a
// base64-encoded JSON string (typeOf==2), per spec.md §6's -t/-j/-b flags,
// and rewrites both Key fields to their hashed comparison form.
func Load(typeOf int, jsonFile, base64Config string, logger log.Logger) (*Root, error) {
	var raw []byte
	var err error

	switch typeOf {
	case 2:
		raw, err = base64.StdEncoding.DecodeString(base64Config)
		if err != nil {
			return nil, errs.ErrConfigDecodeBase64.Error(err)
		}
	default:
		if logger != nil {
			warnIfWorldReadable(jsonFile, logger)
		}
		raw, err = os.ReadFile(jsonFile)
		if err != nil {
			return nil, errs.ErrConfigRead.Error(err)
		}
	}

	root := &Root{}
	if err = json.Unmarshal(raw, root); err != nil {
		return nil, errs.ErrConfigParse.Error(err)
	}

	if root.Server != nil {
		root.Server.Key = keyhash.Hash(root.Server.Key)
	}
	if root.Client != nil {
		root.Client.Key = keyhash.Hash(root.Client.Key)
	}

	return root, nil
}

// warnIfWorldReadable logs (not fails: spec.md specifies no exit code for
// this case) when the config file grants read access beyond the owner.
func warnIfWorldReadable(path string, logger log.Logger) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	mode := perm.ParseFileMode(info.Mode())

	if mode&0o077 != 0 {
		logger.Warn("config file is group or world readable", log.Fields{"path": path, "mode": mode.String()})
	}
}
