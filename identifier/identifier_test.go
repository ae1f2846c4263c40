// SPDX-License-Identifier: ISC

package identifier_test

import (
	"bytes"
	"testing"

	"github.com/coreward/listenerd/identifier"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 32)

	s := identifier.Encode(identifier.TagKeyBlock, payload)
	if "kh_" != s[:3] {
		t.Fatalf("expected kh_ prefix, got %q", s[:3])
	}

	decoded, err := identifier.Decode(identifier.TagKeyBlock, s)
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("payload mismatch: %x vs %x", decoded, payload)
	}
}

func TestWrongTagRejected(t *testing.T) {
	s := identifier.Encode(identifier.TagKeyBlock, []byte{1, 2, 3})
	if _, err := identifier.Decode(identifier.TagMicroBlock, s); nil == err {
		t.Error("expected error decoding with wrong tag")
	}
}

func TestCorruptedChecksumRejected(t *testing.T) {
	s := identifier.Encode(identifier.TagAccount, []byte{1, 2, 3, 4})
	corrupted := s[:len(s)-1] + "9"
	if corrupted == s {
		corrupted = s[:len(s)-1] + "8"
	}
	if _, err := identifier.Decode(identifier.TagAccount, corrupted); nil == err {
		t.Error("expected checksum error on corrupted identifier")
	}
}
