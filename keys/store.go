package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/locator/address"
	"xdao.co/locator/identity"
)

// KeyStore is a directory of identity seeds.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name    string
	Scheme  string
	Address address.Address
	Roles   []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "locator", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) roleKeyPath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func checkToken(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, kind)
	}
	return nil
}

func CheckKeyName(name string) error { return checkToken("key name", name) }
func CheckRole(role string) error    { return checkToken("role", role) }

// ParseSeedHex decodes a hex seed and checks it has the size scheme expects.
func ParseSeedHex(scheme, seedHex string) ([]byte, error) {
	sc, ok := identity.Lookup(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: %q", identity.ErrUnknownScheme, scheme)
	}
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != sc.SeedSize {
		return nil, fmt.Errorf("expected %s seed length of %d bytes, got %d", scheme, sc.SeedSize, len(data))
	}
	return data, nil
}

func saveSeed(path, scheme string, seed []byte, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(scheme + ":" + hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func loadSeed(path string) (scheme string, seed []byte, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	scheme, seedHex, ok := strings.Cut(strings.TrimSpace(string(data)), ":")
	if !ok {
		return "", nil, fmt.Errorf("%s: missing scheme prefix", path)
	}
	seed, err = ParseSeedHex(scheme, seedHex)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return scheme, seed, nil
}

// LoadFile reads the identity stored in a key file.
func LoadFile(path string) (identity.Identity, error) {
	scheme, seed, err := loadSeed(path)
	if err != nil {
		return nil, err
	}
	return identity.FromSeed(scheme, seed)
}

// Initialize stores seed as the root key of name. It refuses to replace an
// existing key unless overwrite is set.
func (ks *KeyStore) Initialize(name, scheme string, seed []byte, overwrite bool) (identity.Identity, string, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, "", err
	}
	id, err := identity.FromSeed(scheme, seed)
	if err != nil {
		return nil, "", err
	}
	path := ks.rootKeyPath(name)
	if err := saveSeed(path, scheme, seed, overwrite); err != nil {
		return nil, "", err
	}
	return id, path, nil
}

// Derive stores the role key derived from the root key of from.
func (ks *KeyStore) Derive(from, role string, overwrite bool) (identity.Identity, string, error) {
	if err := CheckKeyName(from); err != nil {
		return nil, "", err
	}
	if err := CheckRole(role); err != nil {
		return nil, "", err
	}
	scheme, rootSeed, err := loadSeed(ks.rootKeyPath(from))
	if err != nil {
		return nil, "", err
	}
	roleSeed, err := DeriveRoleSeed(scheme, rootSeed, role)
	if err != nil {
		return nil, "", err
	}
	id, err := identity.FromSeed(scheme, roleSeed)
	if err != nil {
		return nil, "", err
	}
	path := ks.roleKeyPath(from, role)
	if err := saveSeed(path, scheme, roleSeed, overwrite); err != nil {
		return nil, "", err
	}
	return id, path, nil
}

// Load returns the identity stored under name, or its role key when role is
// not empty.
func (ks *KeyStore) Load(name, role string) (identity.Identity, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	if role == "" {
		return LoadFile(ks.rootKeyPath(name))
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	return LoadFile(ks.roleKeyPath(name, role))
}

// List returns every stored root key, sorted by name.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		id, err := LoadFile(ks.rootKeyPath(name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		var roles []string
		if roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, name, "roles")); rerr == nil {
			for _, roleEntry := range roleEntries {
				if !roleEntry.IsDir() && strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Name: name, Scheme: id.Scheme(), Address: id.Address(), Roles: roles})
	}
	return result, nil
}
