// SPDX-License-Identifier: ISC

package util

import (
	"github.com/mr-tron/base58"
)

// ToBase58 encodes a byte slice using the Bitcoin base58 alphabet.
func ToBase58(data []byte) string {
	return base58.Encode(data)
}

// FromBase58 decodes a base58 string, returning nil on malformed input
// (matching the teacher convention of signalling failure with a zero
// length result rather than an error, since accounts.go treats an empty
// decode as "cannot decode").
func FromBase58(s string) []byte {
	decoded, err := base58.Decode(s)
	if nil != err {
		return nil
	}
	return decoded
}
