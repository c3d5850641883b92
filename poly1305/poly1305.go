// Package poly1305 computes one-time message authentication codes.
//
// A key must never be used for more than one message.
package poly1305

import "golang.org/x/crypto/poly1305"

const (
	KeySize = 32
	MACSize = poly1305.TagSize
)

// Compute returns the MAC of msg under key.
func Compute(key *[KeySize]byte, msg []byte) [MACSize]byte {
	var out [MACSize]byte
	poly1305.Sum(&out, msg, key)
	return out
}

// Verify reports, in constant time, whether mac authenticates msg under key.
func Verify(mac *[MACSize]byte, msg []byte, key *[KeySize]byte) bool {
	return poly1305.Verify(mac, msg, key)
}
