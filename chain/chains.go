// SPDX-License-Identifier: ISC

// Package chain names the two networks this listener can join and
// resolves a chain name to its genesis hash (§6).
package chain

import "github.com/coreward/listenerd/handshake"

// names of the supported networks
const (
	Mainnet = "mainnet"
	Testnet = "testnet"
)

// Valid reports whether name is a supported chain.
func Valid(name string) bool {
	switch name {
	case Mainnet, Testnet:
		return true
	default:
		return false
	}
}

// GenesisHash returns the fixed genesis hash identifying name on the
// wire (§6); the caller must check Valid first.
func GenesisHash(name string) [32]byte {
	switch name {
	case Mainnet:
		return handshake.Mainnet
	default:
		return handshake.Testnet
	}
}
