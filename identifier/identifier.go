// SPDX-License-Identifier: ISC

// Package identifier renders raw hashes and public keys as prefixed
// base58check strings (mh_, kh_, bs_, ak_, bx_, th_, cb_) and parses them
// back. The checksum scheme mirrors account.ED25519Account.String() in
// the wider node SDK: a truncated sha3-256 digest of the payload appended
// before base58 encoding, so a mistyped or corrupted identifier is
// rejected rather than silently accepted.
package identifier

import (
	"golang.org/x/crypto/sha3"

	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/util"
)

// Tag is the two-letter prefix identifying an identifier's kind.
type Tag string

// defined tags
const (
	TagKeyBlock   Tag = "kh_" // key block hash
	TagMicroBlock Tag = "mh_" // micro block hash
	TagState      Tag = "bs_" // block state root
	TagTxRoot     Tag = "bx_" // block tx root
	TagAccount    Tag = "ak_" // account public key
	TagTx         Tag = "th_" // transaction hash
	TagContract   Tag = "cb_" // contract bytearray

	checksumLength = 4
)

// Encode renders payload as tag_<base58check>.
func Encode(tag Tag, payload []byte) string {
	buffer := append([]byte(nil), payload...)
	checksum := sha3.Sum256(buffer)
	buffer = append(buffer, checksum[:checksumLength]...)
	return string(tag) + util.ToBase58(buffer)
}

// Decode parses an identifier string, verifying its tag and checksum.
func Decode(expected Tag, s string) ([]byte, error) {
	if len(s) < 3 || Tag(s[:3]) != expected {
		return nil, fault.ErrUnknownIdentifierType
	}
	decoded := util.FromBase58(s[3:])
	if len(decoded) <= checksumLength {
		return nil, fault.ErrWrongChecksum
	}

	payload := decoded[:len(decoded)-checksumLength]
	checksum := decoded[len(decoded)-checksumLength:]
	expectedChecksum := sha3.Sum256(payload)
	for i := 0; i < checksumLength; i++ {
		if checksum[i] != expectedChecksum[i] {
			return nil, fault.ErrWrongChecksum
		}
	}
	return payload, nil
}

// TagOf extracts the three-character prefix from an identifier without
// validating its checksum; useful for routing before a full decode.
func TagOf(s string) Tag {
	if len(s) < 3 {
		return ""
	}
	return Tag(s[:3])
}
