package identity

import (
	"fmt"
	"sort"
	"sync"
)

// Scheme is a signature scheme that can build identities.
//
// Schemes register themselves in init():
//
//	identity.MustRegister(identity.Scheme{ ... })
type Scheme struct {
	Name        string
	Description string

	// SeedSize is the number of seed bytes FromSeed expects.
	SeedSize int

	// FromSeed deterministically derives a full identity from seed.
	FromSeed func(seed []byte) (Identity, error)

	// ParsePublic builds a public-only identity from raw public key bytes.
	ParsePublic func(pub []byte) (Identity, error)
}

var (
	mu      sync.RWMutex
	schemes = map[string]Scheme{}
)

// Register registers a scheme.
func Register(s Scheme) error {
	if s.Name == "" {
		return fmt.Errorf("identity: scheme name is required")
	}
	if s.FromSeed == nil {
		return fmt.Errorf("identity: scheme %q missing FromSeed", s.Name)
	}
	if s.ParsePublic == nil {
		return fmt.Errorf("identity: scheme %q missing ParsePublic", s.Name)
	}
	if s.SeedSize <= 0 {
		return fmt.Errorf("identity: scheme %q missing SeedSize", s.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := schemes[s.Name]; exists {
		return fmt.Errorf("identity: scheme %q already registered", s.Name)
	}
	schemes[s.Name] = s
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(s Scheme) {
	if err := Register(s); err != nil {
		panic(err)
	}
}

// Lookup returns the named scheme.
func Lookup(name string) (Scheme, bool) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := schemes[name]
	return s, ok
}

// Schemes returns all registered schemes, sorted by name.
func Schemes() []Scheme {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Scheme, 0, len(schemes))
	for _, s := range schemes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns registered scheme names, sorted.
func Names() []string {
	ss := Schemes()
	n := make([]string, 0, len(ss))
	for _, s := range ss {
		n = append(n, s.Name)
	}
	return n
}
