// Package keys provides the key material and cryptographic operations used by
// contracts, tokens and purses.
//
// A Nym is an identity: a signing key pair (ed25519 or dilithium3) plus a
// curve25519 box key pair used to seal envelopes addressed to it. A
// SymmetricKey is a random secret wrapped under a passphrase-derived key.
// Provider bundles the operations the rest of the module consumes so they can
// be substituted in tests.
//
// KeyStore is a local, filesystem-backed convenience for persisting nym seeds.
// It is not part of the serialized contract format.
package keys
