// Package keyhash rewrites a configured shared secret to a stable comparison
// form, the way the original tool rewrites its key to a hex digest on load
// (spec.md §6). This implementation uses SHA-256 rather than the original's
// non-cryptographic 64-bit hash (see DESIGN.md, open question 1), composing
// the vendored sha256 and hexa encoding.Coder implementations exactly as the
// examples chain them.
package keyhash

import (
	enchex "github/sabouaram/breaknet/encoding/hexa"
	encsha "github/sabouaram/breaknet/encoding/sha256"
)

// Hash returns the lowercase hex-encoded SHA-256 digest of key's UTF-8 bytes.
func Hash(key string) string {
	digest := encsha.New().Encode([]byte(key))
	return string(enchex.New().Encode(digest))
}

// Equal reports whether a raw secret matches an already-hashed digest.
func Equal(rawKey, hashedKey string) bool {
	return Hash(rawKey) == hashedKey
}
