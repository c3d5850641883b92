package identity

import (
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"xdao.co/locator/address"
)

const SchemeDilithium3 = "dilithium3"

func init() {
	MustRegister(Scheme{
		Name:        SchemeDilithium3,
		Description: "Dilithium3 (post-quantum) over SHA3-256(message)",
		SeedSize:    mode3.SeedSize,
		FromSeed: func(seed []byte) (Identity, error) {
			return NewDilithium3FromSeed(seed)
		},
		ParsePublic: func(pub []byte) (Identity, error) {
			return NewDilithium3Public(pub)
		},
	})
}

// Dilithium3 is a post-quantum identity. The signed message is sha3-256(msg).
type Dilithium3 struct {
	pub    *mode3.PublicKey
	priv   *mode3.PrivateKey
	pubRaw []byte
	addr   address.Address
}

var _ Identity = (*Dilithium3)(nil)

func NewDilithium3FromSeed(seed []byte) (*Dilithium3, error) {
	if len(seed) != mode3.SeedSize {
		return nil, fmt.Errorf("%w: dilithium3 seed must be %d bytes, got %d", ErrInvalidKey, mode3.SeedSize, len(seed))
	}
	var s [mode3.SeedSize]byte
	copy(s[:], seed)
	pk, sk := mode3.NewKeyFromSeed(&s)
	raw := pk.Bytes()
	return &Dilithium3{pub: pk, priv: sk, pubRaw: raw, addr: address.FromPublicKey(raw)}, nil
}

func NewDilithium3Public(pub []byte) (*Dilithium3, error) {
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return nil, fmt.Errorf("%w: dilithium3 public key: %v", ErrInvalidKey, err)
	}
	raw := append([]byte(nil), pub...)
	return &Dilithium3{pub: &pk, pubRaw: raw, addr: address.FromPublicKey(raw)}, nil
}

func (id *Dilithium3) Scheme() string           { return SchemeDilithium3 }
func (id *Dilithium3) Address() address.Address { return id.addr }
func (id *Dilithium3) PublicKey() []byte        { return append([]byte(nil), id.pubRaw...) }
func (id *Dilithium3) HasPrivate() bool         { return id.priv != nil }

func (id *Dilithium3) Sign(msg []byte) ([]byte, error) {
	if id.priv == nil {
		return nil, ErrNoPrivateKey
	}
	digest := sha3.Sum256(msg)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(id.priv, digest[:], sig)
	return sig, nil
}

func (id *Dilithium3) Verify(msg, sig []byte) bool {
	if len(sig) != mode3.SignatureSize {
		return false
	}
	digest := sha3.Sum256(msg)
	return mode3.Verify(id.pub, digest[:], sig)
}
