// SPDX-License-Identifier: ISC

// Package registry holds the process-wide set of known peers and
// decides when to initiate an outbound session. It follows the wider
// node SDK's p2p.Node.Registers pattern — a map guarded by
// sync.RWMutex — for the live set, and discovery/store.go's
// backup/restore-via-JSON pattern for on-disk persistence across
// restarts.
package registry

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/coreward/listenerd/counter"
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/wire"
)

// dialCooldown is how long TryConnect refuses to redial a peer after a
// dial attempt to it, whether that attempt succeeded or failed.
const dialCooldown = 30 * time.Second

// Peer is one entry of the registry: a known remote node and the last
// time it was seen alive via a completed ping exchange.
type Peer struct {
	PublicKey [32]byte
	Host      string
	Port      uint64
	LastSeen  time.Time
}

// Dialer opens an outbound session to a peer; PeerRegistry calls it
// from TryConnect without knowing anything about Noise or TCP.
type Dialer interface {
	Dial(host string, port uint64, publicKey [32]byte) error
}

// PeerRegistry is the shared, concurrency-safe peer set.
type PeerRegistry struct {
	mutex    sync.RWMutex
	peers    map[[32]byte]*Peer
	self     [32]byte
	dial     Dialer
	added    counter.Counter
	dropped  counter.Counter
	dialedAt *cache.Cache
}

// New creates an empty registry. self is excluded from every add/dial
// so the node never tries to connect to itself.
func New(self [32]byte, dial Dialer) *PeerRegistry {
	return &PeerRegistry{
		peers:    make(map[[32]byte]*Peer),
		self:     self,
		dial:     dial,
		dialedAt: cache.New(dialCooldown, 2*dialCooldown),
	}
}

// HavePeer reports whether publicKey is already registered.
func (r *PeerRegistry) HavePeer(publicKey [32]byte) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.peers[publicKey]
	return ok
}

// AddPeer inserts or refreshes a peer's LastSeen time.
func (r *PeerRegistry) AddPeer(publicKey [32]byte, host string, port uint64) {
	if publicKey == r.self {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if p, ok := r.peers[publicKey]; ok {
		p.Host = host
		p.Port = port
		p.LastSeen = time.Now()
		return
	}
	r.peers[publicKey] = &Peer{
		PublicKey: publicKey,
		Host:      host,
		Port:      port,
		LastSeen:  time.Now(),
	}
	r.added.Increment()
}

// RemovePeer deletes publicKey from the registry, e.g. when its
// connection closes.
func (r *PeerRegistry) RemovePeer(publicKey [32]byte) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.peers[publicKey]; ok {
		delete(r.peers, publicKey)
		r.dropped.Increment()
	}
}

// Stats reports lifetime add/drop counts alongside the live count, for
// a status endpoint or periodic log line.
func (r *PeerRegistry) Stats() (live int, added uint64, dropped uint64) {
	return r.Count(), r.added.Uint64(), r.dropped.Uint64()
}

// TryConnect dials publicKey unless it is already known, is this
// node's own identity, or was already dialed within the last
// dialCooldown. It is the sole path by which the registry
// initiates outbound sessions (§2).
func (r *PeerRegistry) TryConnect(addr wire.PeerAddr) error {
	if addr.PublicKey == r.self || r.HavePeer(addr.PublicKey) {
		return nil
	}
	key := hex.EncodeToString(addr.PublicKey[:])
	if _, found := r.dialedAt.Get(key); found {
		return nil
	}
	r.dialedAt.SetDefault(key, struct{}{})
	if nil == r.dial {
		return fault.ErrNotInitialised
	}
	return r.dial.Dial(addr.Host, addr.Port, addr.PublicKey)
}

// Peers returns a snapshot of the current registry contents.
func (r *PeerRegistry) Peers() []Peer {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	return out
}

// Count returns the number of registered peers.
func (r *PeerRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.peers)
}

// persistedPeer is the on-disk shape written by SaveTo, following
// discovery.PeerItem's json-backed backup/restore convention.
type persistedPeer struct {
	PublicKey string `json:"public_key"`
	Host      string `json:"host"`
	Port      uint64 `json:"port"`
	Timestamp int64  `json:"timestamp"`
}

// SaveTo writes the current registry contents to path as JSON, the way
// discovery.backupPeers snapshots its peer tree before shutdown.
func (r *PeerRegistry) SaveTo(path string) error {
	r.mutex.RLock()
	list := make([]persistedPeer, 0, len(r.peers))
	for _, p := range r.peers {
		list = append(list, persistedPeer{
			PublicKey: hex.EncodeToString(p.PublicKey[:]),
			Host:      p.Host,
			Port:      p.Port,
			Timestamp: p.LastSeen.Unix(),
		})
	}
	r.mutex.RUnlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if nil != err {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(list)
}

// LoadFrom restores peers previously written by SaveTo. A missing file
// is not an error — discovery.restorePeers treats a first-run absence
// of the peer file the same way.
func (r *PeerRegistry) LoadFrom(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY, 0600)
	if nil != err {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var list []persistedPeer
	if err := json.NewDecoder(f).Decode(&list); nil != err {
		return err
	}

	for _, p := range list {
		raw, err := hex.DecodeString(p.PublicKey)
		if nil != err || 32 != len(raw) {
			continue
		}
		var publicKey [32]byte
		copy(publicKey[:], raw)
		r.AddPeer(publicKey, p.Host, p.Port)
	}
	return nil
}
