// SPDX-License-Identifier: ISC

// Package identity holds the node's static Curve25519 keypair: the same
// key doubles as the Noise_XK static key (§4.4 of the handshake design)
// and as the 32-byte public identifier peers use to address this node.
// Generation follows the seed pattern in the wider node SDK's
// keypair.NewSeed: random core material, a fixed header byte, and a
// truncated sha3-256 checksum, all base58 encoded so a seed can be
// copy-pasted without silently corrupting.
package identity

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/sha3"

	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/util"
)

const (
	seedHeader     = byte(0x5a)
	seedCoreLength = 32
	checksumLength = 4
)

// KeyPair is a Curve25519 static keypair.
type KeyPair struct {
	PublicKey  [32]byte
	PrivateKey [32]byte
}

// Generate creates a new random keypair.
func Generate() (*KeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); nil != err {
		return nil, err
	}
	return fromScalar(priv)
}

// NewSeed creates a new base58check-encoded seed suitable for
// FromSeed, following the checksum layout the wider node SDK uses for
// its own account seeds.
func NewSeed() (string, error) {
	core := make([]byte, seedCoreLength)
	if _, err := rand.Read(core); nil != err {
		return "", err
	}
	packed := append([]byte{seedHeader}, core...)
	checksum := sha3.Sum256(packed)
	packed = append(packed, checksum[:checksumLength]...)
	return util.ToBase58(packed), nil
}

// FromSeed reconstructs a keypair from a seed produced by NewSeed.
func FromSeed(seed string) (*KeyPair, error) {
	decoded := util.FromBase58(seed)
	if len(decoded) != 1+seedCoreLength+checksumLength {
		return nil, fault.ErrShortSeed
	}
	if seedHeader != decoded[0] {
		return nil, fault.ErrShortSeed
	}
	packed := decoded[:1+seedCoreLength]
	checksum := decoded[1+seedCoreLength:]
	expected := sha3.Sum256(packed)
	for i := 0; i < checksumLength; i++ {
		if checksum[i] != expected[i] {
			return nil, fault.ErrWrongChecksum
		}
	}
	var priv [32]byte
	copy(priv[:], packed[1:])
	return fromScalar(priv)
}

// FromPrivateKey wraps a raw 32-byte Curve25519 scalar, e.g. one read
// from configuration.
func FromPrivateKey(priv []byte) (*KeyPair, error) {
	if 32 != len(priv) {
		return nil, fault.ErrInvalidPublicKey
	}
	var scalar [32]byte
	copy(scalar[:], priv)
	return fromScalar(scalar)
}

func fromScalar(priv [32]byte) (*KeyPair, error) {
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if nil != err {
		return nil, err
	}
	kp := &KeyPair{PrivateKey: priv}
	copy(kp.PublicKey[:], pub)
	return kp, nil
}
