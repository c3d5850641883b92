// Package identity provides node identities: a keypair bound to the 64-bit
// address derived from its public key.
//
// Identities here only delegate to library signature primitives. Each scheme
// registers itself in init(); see Register.
package identity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"xdao.co/locator/address"
)

var (
	ErrNoPrivateKey  = errors.New("identity: no private key")
	ErrUnknownScheme = errors.New("identity: unknown scheme")
	ErrInvalidKey    = errors.New("identity: invalid key")
)

// Identity is a node identity. Public-only identities verify but cannot sign.
//
// Implementations must be safe for concurrent use.
type Identity interface {
	// Scheme is the registered scheme name, e.g. "ed25519".
	Scheme() string
	Address() address.Address
	PublicKey() []byte
	HasPrivate() bool
	Sign(msg []byte) ([]byte, error)
	Verify(msg, sig []byte) bool
}

// PublicString encodes the public half of id as "<scheme>:<base64(pub)>".
func PublicString(id Identity) string {
	return id.Scheme() + ":" + base64.StdEncoding.EncodeToString(id.PublicKey())
}

// ParsePublic decodes the output of PublicString into a public-only identity.
func ParsePublic(s string) (Identity, error) {
	name, enc, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing scheme prefix", ErrInvalidKey)
	}
	sc, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return sc.ParsePublic(pub)
}

// FromSeed constructs a full identity of the named scheme from seed.
func FromSeed(scheme string, seed []byte) (Identity, error) {
	sc, ok := Lookup(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	return sc.FromSeed(seed)
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
