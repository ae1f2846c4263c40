// SPDX-License-Identifier: ISC

package wire

import (
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/rlp"
)

// ShareCount is the advisory cap on peers to share in a ping, fixed by
// the protocol.
const ShareCount = 32

// SyncAllowed is the outbound value of the ping's sync-allowed byte.
// The wider node SDK's own comments call hard-coding this out
// deliberate, to avoid triggering a full sync from peers; it is
// preserved verbatim rather than exposed as a setting.
const SyncAllowed = byte(0x00)

// PeerAddr is one entry of a ping's peer list: {pubkey, host, port}.
type PeerAddr struct {
	PublicKey [32]byte
	Host      string
	Port      uint64
}

// Ping is the handshake ping payload (§3).
type Ping struct {
	Version      uint64
	Port         uint64
	Share        uint64
	GenesisHash  [32]byte
	Difficulty   uint64
	BestHash     [32]byte
	SyncAllowed  byte
	Peers        []PeerAddr
}

// Encode renders a Ping as its RLP payload: a list of eight items.
func (p Ping) Encode() []byte {
	return rlp.EncodeList(
		rlp.Bytes(rlp.RawUint64(p.Version)),
		rlp.Bytes(rlp.RawUint64(p.Port)),
		rlp.Bytes(rlp.RawUint64(p.Share)),
		rlp.Bytes(p.GenesisHash[:]),
		rlp.Bytes(rlp.RawUint64(p.Difficulty)),
		rlp.Bytes(p.BestHash[:]),
		rlp.Bytes([]byte{p.SyncAllowed}),
		encodePeerList(p.Peers),
	)
}

// DecodePing parses a ping's RLP payload.
func DecodePing(payload []byte) (Ping, error) {
	item, err := rlp.Decode(payload)
	if nil != err {
		return Ping{}, err
	}
	list, ok := rlp.AsList(item)
	if !ok || 8 != len(list) {
		return Ping{}, fault.ErrUnsupportedRLPValue
	}

	version, err := decodeUint(list[0])
	if nil != err {
		return Ping{}, err
	}
	port, err := decodeUint(list[1])
	if nil != err {
		return Ping{}, err
	}
	share, err := decodeUint(list[2])
	if nil != err {
		return Ping{}, err
	}
	genesisHash, err := decodeHash32(list[3])
	if nil != err {
		return Ping{}, err
	}
	difficulty, err := decodeUint(list[4])
	if nil != err {
		return Ping{}, err
	}
	bestHash, err := decodeHash32(list[5])
	if nil != err {
		return Ping{}, err
	}
	syncBytes, ok := rlp.AsBytes(list[6])
	if !ok || 1 != len(syncBytes) {
		return Ping{}, fault.ErrUnsupportedRLPValue
	}
	peerList, ok := rlp.AsList(list[7])
	if !ok {
		return Ping{}, fault.ErrUnsupportedRLPValue
	}
	peers, err := decodePeerList(peerList)
	if nil != err {
		return Ping{}, err
	}

	return Ping{
		Version:     version,
		Port:        port,
		Share:       share,
		GenesisHash: genesisHash,
		Difficulty:  difficulty,
		BestHash:    bestHash,
		SyncAllowed: syncBytes[0],
		Peers:       peers,
	}, nil
}

func decodeUint(item rlp.Item) (uint64, error) {
	b, ok := rlp.AsBytes(item)
	if !ok {
		return 0, fault.ErrUnsupportedRLPValue
	}
	return rlp.DecodeUint64(b), nil
}

func decodeHash32(item rlp.Item) ([32]byte, error) {
	var out [32]byte
	b, ok := rlp.AsBytes(item)
	if !ok || 32 != len(b) {
		return out, fault.ErrUnsupportedRLPValue
	}
	copy(out[:], b)
	return out, nil
}

// encodePeerList / decodePeerList are the canonical peer-list codec
// (rlp_decode_peers in the design notes); peerconn hands the PeerAddr
// values this returns to registry.TryConnect.
func encodePeerList(peers []PeerAddr) rlp.Item {
	items := make(rlp.List, len(peers))
	for i := range peers {
		items[i] = rlp.List{
			rlp.Bytes(peers[i].PublicKey[:]),
			rlp.Bytes([]byte(peers[i].Host)),
			rlp.Bytes(rlp.RawUint64(peers[i].Port)),
		}
	}
	return items
}

func decodePeerList(list rlp.List) ([]PeerAddr, error) {
	out := make([]PeerAddr, 0, len(list))
	for _, entry := range list {
		tuple, ok := rlp.AsList(entry)
		if !ok || 3 != len(tuple) {
			return nil, fault.ErrUnsupportedRLPValue
		}
		pub, ok := rlp.AsBytes(tuple[0])
		if !ok || 32 != len(pub) {
			return nil, fault.ErrUnsupportedRLPValue
		}
		host, ok := rlp.AsBytes(tuple[1])
		if !ok {
			return nil, fault.ErrUnsupportedRLPValue
		}
		port, err := decodeUint(tuple[2])
		if nil != err {
			return nil, err
		}
		var addr PeerAddr
		copy(addr.PublicKey[:], pub)
		addr.Host = string(host)
		addr.Port = port
		out = append(out, addr)
	}
	return out, nil
}
