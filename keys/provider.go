package keys

// Provider is the set of cryptographic operations contracts, tokens and purses
// depend on. Default implements it with the functions in this package.
type Provider interface {
	Sign(message []byte, signer *Nym, hashType string) (string, error)
	Verify(message []byte, nym *Nym, signature string, hashType string) bool
	Digest(hashType string, data []byte) ([]byte, error)
	Seal(to *Nym, plaintext []byte) ([]byte, error)
	Open(nym *Nym, envelope []byte) ([]byte, error)
	SymmetricEncrypt(key *SymmetricKey, passphrase, plaintext []byte) ([]byte, error)
	SymmetricDecrypt(key *SymmetricKey, passphrase, ciphertext []byte) ([]byte, error)
}

type defaultProvider struct{}

// Default is the package-level Provider.
var Default Provider = defaultProvider{}

func (defaultProvider) Sign(message []byte, signer *Nym, hashType string) (string, error) {
	return Sign(message, signer, hashType)
}

func (defaultProvider) Verify(message []byte, nym *Nym, signature string, hashType string) bool {
	return Verify(message, nym, signature, hashType)
}

func (defaultProvider) Digest(hashType string, data []byte) ([]byte, error) {
	return Digest(hashType, data)
}

func (defaultProvider) Seal(to *Nym, plaintext []byte) ([]byte, error) { return Seal(to, plaintext) }

func (defaultProvider) Open(nym *Nym, envelope []byte) ([]byte, error) { return Open(nym, envelope) }

func (defaultProvider) SymmetricEncrypt(key *SymmetricKey, passphrase, plaintext []byte) ([]byte, error) {
	return key.Encrypt(passphrase, plaintext)
}

func (defaultProvider) SymmetricDecrypt(key *SymmetricKey, passphrase, ciphertext []byte) ([]byte, error) {
	return key.Decrypt(passphrase, ciphertext)
}
