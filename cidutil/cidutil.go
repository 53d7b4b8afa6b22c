// Package cidutil derives content identifiers for contracts and stored blobs.
package cidutil

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// multihashCode maps a contract hash type name to its multihash code.
func multihashCode(hashType string) (uint64, error) {
	switch strings.ToUpper(hashType) {
	case "SHA256", "SHA2-256", "":
		return multihash.SHA2_256, nil
	case "SHA512", "SHA2-512":
		return multihash.SHA2_512, nil
	case "SHA3-256":
		return multihash.SHA3_256, nil
	default:
		return 0, fmt.Errorf("cidutil: unsupported hash type %q", hashType)
	}
}

// Sum returns a CIDv1 using the "raw" multicodec and the multihash selected by
// hashType (SHA256, SHA512 or SHA3-256).
func Sum(hashType string, data []byte) (cid.Cid, error) {
	code, err := multihashCode(hashType)
	if err != nil {
		return cid.Undef, err
	}
	sum, err := multihash.Sum(data, code, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	return Sum("SHA256", data)
}

// Parse decodes a CID string and rejects undefined results.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, fmt.Errorf("cidutil: undefined cid")
	}
	return id, nil
}

// Matches reports whether id is the identifier of data under the hash
// function id itself names.
func Matches(id cid.Cid, data []byte) bool {
	if !id.Defined() {
		return false
	}
	pref := id.Prefix()
	got, err := pref.Sum(data)
	if err != nil {
		return false
	}
	return got.Equals(id)
}
