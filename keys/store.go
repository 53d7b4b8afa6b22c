package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore persists nym root seeds on the local filesystem.
//
// Layout:
//
//	<Directory>/<name>/root.key           "<alg> <seed hex>"
//	<Directory>/<name>/roles/<role>.key   role-derived child nyms
//
// Files are written 0600 inside 0700 directories.
type KeyStore struct {
	Directory string
}

// KeyEntry describes one stored nym and its derived roles.
type KeyEntry struct {
	Name  string
	Roles []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "purse", "nyms"), nil
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

// ParseSeedHex decodes a hex seed, tolerating surrounding space and a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveSeed(path string, alg Algorithm, seed []byte, overwrite bool) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
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
	if _, err := file.WriteString(string(alg) + " " + hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(path string) (Algorithm, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	alg, seedHex, ok := strings.Cut(strings.TrimSpace(string(data)), " ")
	if !ok {
		return "", nil, fmt.Errorf("malformed key file %s", path)
	}
	seed, err := ParseSeedHex(seedHex)
	if err != nil {
		return "", nil, err
	}
	return Algorithm(alg), seed, nil
}

// InitializeNym stores seed under name and returns the nym it expands to.
func (ks *KeyStore) InitializeNym(name string, seed []byte, alg Algorithm, overwrite bool) (*Nym, string, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, "", err
	}
	nym, err := NymFromSeed(seed, alg)
	if err != nil {
		return nil, "", err
	}
	path := ks.rootKeyPath(name)
	if err := ks.saveSeed(path, alg, seed, overwrite); err != nil {
		return nil, "", err
	}
	return nym, path, nil
}

// DeriveNym derives a role-specific child of the nym stored under from and
// persists its seed.
func (ks *KeyStore) DeriveNym(from, role string, overwrite bool) (*Nym, string, error) {
	if err := CheckKeyName(from); err != nil {
		return nil, "", err
	}
	if err := CheckRole(role); err != nil {
		return nil, "", err
	}
	alg, rootSeed, err := ks.loadSeed(ks.rootKeyPath(from))
	if err != nil {
		return nil, "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return nil, "", err
	}
	nym, err := NymFromSeed(roleSeed, alg)
	if err != nil {
		return nil, "", err
	}
	path := ks.roleKeyPath(from, role)
	if err := ks.saveSeed(path, alg, roleSeed, overwrite); err != nil {
		return nil, "", err
	}
	return nym, path, nil
}

// LoadNym loads the nym stored under name, or its role child when role is set.
func (ks *KeyStore) LoadNym(name, role string) (*Nym, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, err
	}
	path := ks.rootKeyPath(name)
	if role != "" {
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		path = ks.roleKeyPath(name, role)
	}
	alg, seed, err := ks.loadSeed(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no nym %q (role %q) in key store", name, role)
		}
		return nil, err
	}
	return NymFromSeed(seed, alg)
}

// ListNyms returns stored nyms sorted by name, each with its sorted roles.
func (ks *KeyStore) ListNyms() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
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
		roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, name, "roles"))
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Name: name, Roles: roles})
	}
	return result, nil
}
