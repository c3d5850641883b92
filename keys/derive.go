package keys

import (
	"fmt"

	"golang.org/x/crypto/sha3"

	"xdao.co/locator/identity"
)

const deriveContext = "xdao-locator-keys-v1"

// DeriveRoleSeed deterministically derives a role-specific seed from a root
// seed of the given scheme. The derived seed has the scheme's seed size.
func DeriveRoleSeed(scheme string, rootSeed []byte, role string) ([]byte, error) {
	sc, ok := identity.Lookup(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %q", identity.ErrUnknownScheme, scheme)
	}
	if len(rootSeed) != sc.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", sc.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha3.NewShake256()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(deriveContext))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(scheme))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	out := make([]byte, sc.SeedSize)
	_, _ = h.Read(out)
	return out, nil
}
