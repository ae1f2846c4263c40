// SPDX-License-Identifier: ISC

package wire_test

import (
	"bytes"
	"testing"

	"github.com/coreward/listenerd/util"
	"github.com/coreward/listenerd/wire"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e := wire.Envelope{Type: wire.MsgPing, Payload: []byte("hello")}
	encoded := e.Encode()
	decoded, err := wire.DecodeEnvelope(encoded)
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if decoded.Type != e.Type || !bytes.Equal(decoded.Payload, e.Payload) {
		t.Errorf("round trip mismatch: %+v\n%s", decoded, util.FormatBytes("encoded", encoded))
	}
}

func TestReservedTypeDropped(t *testing.T) {
	if !wire.MsgType(9).IsDropped() {
		t.Error("type 9 should be reported as dropped")
	}
	if wire.MsgPing.IsDropped() {
		t.Error("ping should not be reported as dropped")
	}
}

func TestPingRoundTrip(t *testing.T) {
	var genesis, best [32]byte
	for i := range genesis {
		genesis[i] = byte(i)
	}
	copy(best[:], genesis[:])

	p := wire.Ping{
		Version:     3,
		Port:        3015,
		Share:       wire.ShareCount,
		GenesisHash: genesis,
		Difficulty:  0,
		BestHash:    best,
		SyncAllowed: wire.SyncAllowed,
		Peers: []wire.PeerAddr{
			{PublicKey: [32]byte{1, 2, 3}, Host: "127.0.0.1", Port: 3015},
		},
	}

	decoded, err := wire.DecodePing(p.Encode())
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if decoded.Version != p.Version || decoded.Port != p.Port {
		t.Errorf("scalar field mismatch: %+v", decoded)
	}
	if decoded.GenesisHash != p.GenesisHash {
		t.Errorf("genesis hash mismatch")
	}
	if 0x00 != decoded.SyncAllowed {
		t.Errorf("expected sync-allowed 0x00, got %#x", decoded.SyncAllowed)
	}
	if 1 != len(decoded.Peers) || "127.0.0.1" != decoded.Peers[0].Host {
		t.Fatalf("peer list mismatch: %+v", decoded.Peers)
	}
}

func TestPingRejectsWrongShape(t *testing.T) {
	if _, err := wire.DecodePing([]byte{0x80}); nil == err {
		t.Error("expected error decoding a non-list ping payload")
	}
}

func TestP2PResponseRoundTrip(t *testing.T) {
	r := wire.P2PResponse{
		Version:   1,
		Result:    true,
		InnerType: wire.MsgPing,
		Reason:    "",
		Object:    []byte("payload"),
	}
	decoded, err := wire.DecodeP2PResponse(r.Encode())
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if decoded.Result != r.Result || decoded.InnerType != r.InnerType {
		t.Errorf("mismatch: %+v", decoded)
	}
	if !bytes.Equal(decoded.Object, r.Object) {
		t.Errorf("object mismatch")
	}
}

func TestBlockTxsRoundTrip(t *testing.T) {
	bt := wire.BlockTxs{
		Version:   1,
		BlockHash: []byte{1, 2, 3},
		Txs: []wire.SignedTx{
			{TxBody: []byte("tx-a"), TxTypeTag: 4},
			{TxBody: []byte("tx-b"), TxTypeTag: 5},
		},
	}
	decoded, err := wire.DecodeBlockTxs(bt.Encode())
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if 2 != len(decoded.Txs) {
		t.Fatalf("expected 2 txs, got %d", len(decoded.Txs))
	}
	if 4 != decoded.Txs[0].TxTypeTag {
		t.Errorf("tx type tag mismatch")
	}
}

func TestGetBlockTxsRoundTrip(t *testing.T) {
	g := wire.GetBlockTxs{
		Version:    wire.GetBlockTxsVersion,
		HeaderHash: []byte{1, 2, 3, 4},
		TxHashes:   [][]byte{{5, 6}, {7, 8}},
	}
	decoded, err := wire.DecodeGetBlockTxs(g.Encode())
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if decoded.Version != g.Version {
		t.Errorf("version mismatch")
	}
	if !bytes.Equal(decoded.HeaderHash, g.HeaderHash) {
		t.Errorf("header hash mismatch")
	}
	if 2 != len(decoded.TxHashes) {
		t.Fatalf("expected 2 tx hashes, got %d", len(decoded.TxHashes))
	}
}

func TestFragmentRoundTrip(t *testing.T) {
	datagram := wire.EncodeFragment(2, 3, []byte("chunk"))
	if !wire.IsFragment(datagram) {
		t.Fatal("expected fragment marker")
	}
	header, chunk, err := wire.DecodeFragment(datagram)
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if 2 != header.Index || 3 != header.Total {
		t.Errorf("header mismatch: %+v", header)
	}
	if "chunk" != string(chunk) {
		t.Errorf("chunk mismatch: %q", chunk)
	}
}
