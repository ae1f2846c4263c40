// SPDX-License-Identifier: ISC

// Package configuration reads the Lua configuration file this listener
// starts from: the local identity, network selection, listening port,
// and the initial set of peers to dial before the registry has
// discovered any of its own (§9's Configuration section).
package configuration

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"github.com/coreward/listenerd/chain"
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/identity"
	"github.com/coreward/listenerd/util"
)

const (
	defaultPidFile    = "listenerd.pid"
	defaultPort       = 3015
	defaultLogFile    = "listenerd.log"
	defaultLogCount   = 10
	defaultLogSize    = 1048576
	defaultLogChannel = "main"
)

var defaultLogLevels = map[string]string{
	defaultLogChannel: "info",
	"peerconn":        "info",
	"registry":        "info",
	logger.DefaultTag: "critical",
}

// Peer names one entry of the initial peer list; PublicKey is the raw
// 32-byte Curve25519 key, hex-encoded, matching the wire representation
// exchanged in ping messages rather than a base58check identifier.
type Peer struct {
	PublicKey string `gluamapper:"public_key"`
	Host      string `gluamapper:"host"`
	Port      uint64 `gluamapper:"port"`
}

// Configuration is the entire startup surface of this listener: no
// other file or database is consulted, other than the optional
// peer-cache file named by CacheFile.
type Configuration struct {
	PidFile    string               `gluamapper:"pidfile"`
	Chain      string               `gluamapper:"chain"`
	Port       uint64               `gluamapper:"port"`
	PublicKey  string               `gluamapper:"public_key"`
	PrivateKey string               `gluamapper:"private_key"`
	CacheFile  string               `gluamapper:"cache_file"`
	Connect    []Peer               `gluamapper:"connect"`
	Logging    logger.Configuration `gluamapper:"logging"`
}

// GetConfiguration reads and validates a listenerd Lua configuration
// file, reconstructing the node's static keypair from PrivateKey.
func GetConfiguration(fileName string) (*Configuration, *identity.KeyPair, error) {
	fileName, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, nil, err
	}

	options := &Configuration{
		PidFile: defaultPidFile,
		Chain:   chain.Testnet,
		Port:    defaultPort,
		Logging: logger.Configuration{
			Directory: filepath.Dir(fileName),
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(fileName, options); nil != err {
		return nil, nil, err
	}

	if !chain.Valid(options.Chain) {
		return nil, nil, fault.ErrInvalidChain
	}

	if "" == options.PrivateKey {
		return nil, nil, fault.ErrRequiredIdentity
	}
	rawPrivate, err := hex.DecodeString(options.PrivateKey)
	if nil != err {
		return nil, nil, fault.ErrInvalidPublicKey
	}
	keyPair, err := identity.FromPrivateKey(rawPrivate)
	if nil != err {
		return nil, nil, err
	}
	if "" != options.PublicKey && options.PublicKey != hex.EncodeToString(keyPair.PublicKey[:]) {
		return nil, nil, fault.ErrInvalidPublicKey
	}

	configDir := filepath.Dir(fileName)
	options.PidFile = util.EnsureAbsolute(configDir, options.PidFile)
	options.Logging.Directory = util.EnsureAbsolute(configDir, options.Logging.Directory)
	if err := os.MkdirAll(options.Logging.Directory, 0700); nil != err {
		return nil, nil, err
	}

	return options, keyPair, nil
}

// DecodePeerKey parses one Peer's hex-encoded public key into the raw
// 32-byte form used throughout wire and registry.
func DecodePeerKey(p Peer) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(p.PublicKey)
	if nil != err || 32 != len(raw) {
		return out, fault.ErrInvalidPublicKey
	}
	copy(out[:], raw)
	return out, nil
}
