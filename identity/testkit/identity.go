// Package testkit holds a behavioral suite every identity scheme must pass.
package testkit

import (
	"bytes"
	"testing"

	"xdao.co/locator/identity"
)

// NewIdentity constructs a deterministic full identity from a seed index.
// Different indexes MUST yield different keys.
type NewIdentity func(t *testing.T, index byte) identity.Identity

func RunConformance(t *testing.T, newIdentity NewIdentity) {
	t.Helper()

	t.Run("SignVerifyRoundTrip", func(t *testing.T) {
		id := newIdentity(t, 1)
		msg := []byte("locator bytes")
		sig, err := id.Sign(msg)
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if len(sig) == 0 {
			t.Fatalf("empty signature")
		}
		if !id.Verify(msg, sig) {
			t.Fatalf("signature did not verify")
		}
	})

	t.Run("RejectsTamperedMessageAndSignature", func(t *testing.T) {
		id := newIdentity(t, 2)
		msg := []byte("locator bytes")
		sig, err := id.Sign(msg)
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if id.Verify([]byte("locator bytez"), sig) {
			t.Fatalf("tampered message verified")
		}
		bad := append([]byte(nil), sig...)
		bad[0] ^= 0x01
		if id.Verify(msg, bad) {
			t.Fatalf("tampered signature verified")
		}
		if id.Verify(msg, sig[:len(sig)-1]) {
			t.Fatalf("truncated signature verified")
		}
		if id.Verify(msg, nil) {
			t.Fatalf("empty signature verified")
		}
	})

	t.Run("OtherKeyRejects", func(t *testing.T) {
		a := newIdentity(t, 3)
		b := newIdentity(t, 4)
		if a.Address() == b.Address() {
			t.Fatalf("distinct keys share address %s", a.Address())
		}
		msg := []byte("locator bytes")
		sig, err := a.Sign(msg)
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if b.Verify(msg, sig) {
			t.Fatalf("signature verified under another key")
		}
	})

	t.Run("PublicOnlyRoundTrip", func(t *testing.T) {
		id := newIdentity(t, 5)
		pub, err := identity.ParsePublic(identity.PublicString(id))
		if err != nil {
			t.Fatalf("ParsePublic failed: %v", err)
		}
		if pub.HasPrivate() {
			t.Fatalf("public-only identity claims a private key")
		}
		if pub.Address() != id.Address() {
			t.Fatalf("address mismatch: %s vs %s", pub.Address(), id.Address())
		}
		if !bytes.Equal(pub.PublicKey(), id.PublicKey()) {
			t.Fatalf("public key mismatch")
		}
		msg := []byte("locator bytes")
		sig, err := id.Sign(msg)
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if !pub.Verify(msg, sig) {
			t.Fatalf("public-only identity failed to verify")
		}
		if _, err := pub.Sign(msg); err == nil {
			t.Fatalf("public-only identity signed")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a := newIdentity(t, 6)
		b := newIdentity(t, 6)
		if a.Address() != b.Address() {
			t.Fatalf("same seed produced different addresses")
		}
	})
}
