// Package fingerprint derives opaque per-visitor identifiers.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns a stable, non-reversible visitor identifier derived from the
// client IP and user-agent, or nil when no IP is available: without a stable
// identity source the fingerprint would be meaningless.
//
// The digest input is "ip|ua". Only the hex digest ever leaves this package;
// the raw IP is not recoverable from it and must not be stored elsewhere.
func Hash(ip, userAgent string) *string {
	if ip == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	h := hex.EncodeToString(sum[:])
	return &h
}
