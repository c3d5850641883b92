package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"xdao.co/locator/address"
)

const SchemeEd25519 = "ed25519"

func init() {
	MustRegister(Scheme{
		Name:        SchemeEd25519,
		Description: "Ed25519 over SHA-256(message)",
		SeedSize:    ed25519.SeedSize,
		FromSeed: func(seed []byte) (Identity, error) {
			return NewEd25519FromSeed(seed)
		},
		ParsePublic: func(pub []byte) (Identity, error) {
			return NewEd25519Public(pub)
		},
	})
}

// Ed25519 is an Ed25519 identity. The signed message is sha256(msg).
type Ed25519 struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
	addr address.Address
}

var _ Identity = (*Ed25519)(nil)

// NewEd25519FromSeed returns the identity for a 32 byte Ed25519 seed.
func NewEd25519FromSeed(seed []byte) (*Ed25519, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: ed25519 seed must be %d bytes, got %d", ErrInvalidKey, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Ed25519{pub: pub, priv: priv, addr: address.FromPublicKey(pub)}, nil
}

// NewEd25519Public returns a public-only identity.
func NewEd25519Public(pub []byte) (*Ed25519, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, l)
	}
	p := append(ed25519.PublicKey(nil), pub...)
	return &Ed25519{pub: p, addr: address.FromPublicKey(p)}, nil
}

func (id *Ed25519) Scheme() string           { return SchemeEd25519 }
func (id *Ed25519) Address() address.Address { return id.addr }
func (id *Ed25519) PublicKey() []byte        { return append([]byte(nil), id.pub...) }
func (id *Ed25519) HasPrivate() bool         { return id.priv != nil }

// Public returns a public-only copy of id.
func (id *Ed25519) Public() *Ed25519 {
	return &Ed25519{pub: id.pub, addr: id.addr}
}

func (id *Ed25519) Sign(msg []byte) ([]byte, error) {
	if id.priv == nil {
		return nil, ErrNoPrivateKey
	}
	digest := sha256.Sum256(msg)
	return ed25519.Sign(id.priv, digest[:]), nil
}

func (id *Ed25519) Verify(msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	digest := sha256.Sum256(msg)
	return ed25519.Verify(id.pub, digest[:], sig)
}
