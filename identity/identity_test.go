// SPDX-License-Identifier: ISC

package identity_test

import (
	"testing"

	"github.com/coreward/listenerd/identity"
)

func TestSeedRoundTrip(t *testing.T) {
	seed, err := identity.NewSeed()
	if nil != err {
		t.Fatalf("NewSeed error: %s", err)
	}

	original, err := identity.FromSeed(seed)
	if nil != err {
		t.Fatalf("FromSeed error: %s", err)
	}

	again, err := identity.FromSeed(seed)
	if nil != err {
		t.Fatalf("second FromSeed error: %s", err)
	}

	if original.PublicKey != again.PublicKey {
		t.Error("deriving from the same seed twice produced different public keys")
	}
	if original.PrivateKey != again.PrivateKey {
		t.Error("deriving from the same seed twice produced different private keys")
	}
}

func TestGenerateProducesDistinctKeys(t *testing.T) {
	a, err := identity.Generate()
	if nil != err {
		t.Fatalf("Generate error: %s", err)
	}
	b, err := identity.Generate()
	if nil != err {
		t.Fatalf("Generate error: %s", err)
	}
	if a.PublicKey == b.PublicKey {
		t.Error("two independent Generate() calls produced the same public key")
	}
}

func TestFromSeedRejectsCorruption(t *testing.T) {
	seed, err := identity.NewSeed()
	if nil != err {
		t.Fatalf("NewSeed error: %s", err)
	}
	corrupted := seed[:len(seed)-1] + "z"
	if _, err := identity.FromSeed(corrupted); nil == err {
		t.Error("expected error decoding a corrupted seed")
	}
}
