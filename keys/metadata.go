package keys

import "fmt"

// Key types carried in signature metadata.
const (
	KeyTypeAuth       byte = 'A'
	KeyTypeEncryption byte = 'E'
	KeyTypeSigning    byte = 'S'
)

// Metadata is the four-character hint attached to keys and signatures: the key
// type and the first characters of the nym, master credential and
// sub-credential identifiers. It lets verification skip keys that cannot have
// produced a signature without touching the crypto provider.
type Metadata struct {
	KeyType      byte
	NymID        byte
	MasterCredID byte
	SubCredID    byte
}

// HasMetadata reports whether m was populated.
func (m Metadata) HasMetadata() bool { return m.KeyType != 0 }

// Set validates and stores the four metadata characters.
func (m *Metadata) Set(keyType, nymID, masterCredID, subCredID byte) error {
	switch keyType {
	case KeyTypeAuth, KeyTypeEncryption, KeyTypeSigning:
	default:
		return fmt.Errorf("invalid key type %q", keyType)
	}
	for _, c := range []byte{nymID, masterCredID, subCredID} {
		if !isBase62(c) {
			return fmt.Errorf("invalid metadata character %q", c)
		}
	}
	*m = Metadata{KeyType: keyType, NymID: nymID, MasterCredID: masterCredID, SubCredID: subCredID}
	return nil
}

// String renders the metadata as its four characters.
func (m Metadata) String() string {
	if !m.HasMetadata() {
		return ""
	}
	return string([]byte{m.KeyType, m.NymID, m.MasterCredID, m.SubCredID})
}

func isBase62(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
