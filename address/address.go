// Package address defines the stable 64-bit logical address of a node.
package address

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Address is a node's stable logical identifier in the overlay.
//
// The zero value is the nil address and never names a real node.
type Address uint64

// Nil is the reserved nil address.
const Nil Address = 0

// FromPublicKey derives the address of an identity from its public key bytes:
// the first eight bytes of SHA3-256(pub), big-endian.
func FromPublicKey(pub []byte) Address {
	sum := sha3.Sum256(pub)
	return Address(binary.BigEndian.Uint64(sum[:8]))
}

// Parse parses a hex address with an optional 0x prefix.
func Parse(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return Nil, fmt.Errorf("address: empty")
	}
	if len(s) > 16 {
		return Nil, fmt.Errorf("address: %q longer than 16 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return Nil, fmt.Errorf("address: %w", err)
	}
	return Address(v), nil
}

// MustParse calls Parse(s) and panics on error.
// It is intended for use in tests with hard-coded strings.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsNil reports whether a is the reserved nil address.
func (a Address) IsNil() bool { return a == Nil }

func (a Address) String() string {
	return fmt.Sprintf("%016x", uint64(a))
}

// Set implements the flag.Value and pflag.Value interfaces.
func (a *Address) Set(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Type implements pflag.Value.
func (a *Address) Type() string { return "address" }
