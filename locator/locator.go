// Package locator implements the signed record that tells other nodes where a
// node, or its proxy, can currently be reached.
//
// A Locator binds a subject address to a set of transport endpoints and a
// timestamp, signed by a signer identity. When the signer is the subject the
// locator is self-signed; otherwise it is proxy-signed, e.g. by a root on
// behalf of a node that cannot sign for itself. Locators are immutable values:
// the only producers are Create and Unmarshal.
package locator

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"xdao.co/locator/address"
	"xdao.co/locator/buffer"
	"xdao.co/locator/endpoint"
	"xdao.co/locator/protocol"
)

// MaxEndpoints is the maximum number of endpoints in a Locator.
const MaxEndpoints = 32

// Identity is the signing capability a Locator needs from a node identity.
type Identity interface {
	Address() address.Address
	Sign(msg []byte) ([]byte, error)
	Verify(msg, sig []byte) bool
}

// Locator is a signed statement of where a node can be reached.
type Locator struct {
	subject   address.Address
	signer    address.Address
	timestamp int64
	endpoints []endpoint.Endpoint
	signature []byte
}

// Create builds and signs a new locator.
//
// A node creating its own locator passes its own address as subject. Proxy
// signing, where signer.Address() differs from subject, is done by roots for
// nodes that do not create their own; proxy locators are always superseded by
// self-signed ones.
//
// Endpoints are sorted and deduplicated. Create fails if more than
// MaxEndpoints are supplied, if the unsigned form does not fit in a packet, or
// if signer cannot sign.
func Create(signer Identity, subject address.Address, ts int64, endpoints []endpoint.Endpoint) (*Locator, error) {
	if len(endpoints) > MaxEndpoints {
		return nil, newError(KindLimit, ruleTooManyEndpoints,
			fmt.Sprintf("too many endpoints: %d > %d", len(endpoints), MaxEndpoints))
	}

	eps := slices.Clone(endpoints)
	slices.SortFunc(eps, endpoint.Compare)
	eps = slices.Compact(eps)

	loc := &Locator{
		subject:   subject,
		signer:    signer.Address(),
		timestamp: ts,
		endpoints: eps,
	}

	b := buffer.New(protocol.PacketSizeMax)
	defer b.Release()
	if err := loc.marshal(b, true); err != nil {
		return nil, wrapError(KindEncode, ruleEncode, "encode unsigned locator", err)
	}
	sig, err := signer.Sign(b.Bytes())
	if err != nil {
		return nil, wrapError(KindCrypto, ruleSign, "sign locator", err)
	}
	if len(sig) == 0 || len(sig) > 0xffff {
		return nil, newError(KindCrypto, ruleSign, fmt.Sprintf("unusable signature length %d", len(sig)))
	}
	loc.signature = sig
	return loc, nil
}

func (l *Locator) Subject() address.Address { return l.subject }
func (l *Locator) Signer() address.Address  { return l.signer }
func (l *Locator) Timestamp() int64         { return l.timestamp }

// IsProxySigned reports whether the locator was signed by a node other than
// its subject.
func (l *Locator) IsProxySigned() bool { return l.subject != l.signer }

// Endpoints returns a copy of the endpoint list.
func (l *Locator) Endpoints() []endpoint.Endpoint { return slices.Clone(l.endpoints) }

// Signature returns a copy of the signature bytes.
func (l *Locator) Signature() []byte { return bytes.Clone(l.signature) }

// ShouldReplace reports whether l should replace other, a locator already
// held for the same subject.
//
// Self-signed locators always win over proxy-signed ones. Otherwise the newer
// timestamp wins; equal timestamps keep the existing locator.
func (l *Locator) ShouldReplace(other *Locator) bool {
	switch {
	case !l.IsProxySigned() && other.IsProxySigned():
		return true
	case l.IsProxySigned() && !other.IsProxySigned():
		return false
	default:
		return l.timestamp > other.timestamp
	}
}

// Verify reports whether l carries a valid signature by signer. signer must
// be the identity whose address is l.Signer(); any other identity is rejected
// even if its key would accept the signature bytes.
func (l *Locator) Verify(signer Identity) bool {
	b := buffer.New(protocol.PacketSizeMax)
	defer b.Release()
	if err := l.marshal(b, true); err != nil {
		return false
	}
	if signer.Address() != l.signer {
		return false
	}
	return signer.Verify(b.Bytes(), l.signature)
}

// Equal reports whether l and other are identical in every field.
func (l *Locator) Equal(other *Locator) bool {
	return Compare(l, other) == 0
}

// Compare orders locators lexicographically by subject, signer, timestamp,
// endpoints and signature.
func Compare(a, b *Locator) int {
	if c := cmp.Compare(a.subject, b.subject); c != 0 {
		return c
	}
	if c := cmp.Compare(a.signer, b.signer); c != 0 {
		return c
	}
	if c := cmp.Compare(a.timestamp, b.timestamp); c != 0 {
		return c
	}
	if c := slices.CompareFunc(a.endpoints, b.endpoints, endpoint.Compare); c != 0 {
		return c
	}
	return bytes.Compare(a.signature, b.signature)
}

func (l *Locator) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "locator{subject=%s signer=%s ts=%d endpoints=[", l.subject, l.signer, l.timestamp)
	for i, e := range l.endpoints {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.String())
	}
	fmt.Fprintf(&sb, "] sig=%dB}", len(l.signature))
	return sb.String()
}
