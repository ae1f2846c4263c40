// SPDX-License-Identifier: ISC

package blockcodec_test

import (
	"testing"

	"github.com/coreward/listenerd/blockcodec"
)

func TestKeyBlockRoundTrip(t *testing.T) {
	kb := &blockcodec.KeyBlock{
		VersionTag: 1,
		Header:     sampleKeyHeader(),
	}
	kb.Header.Raw = blockcodec.MarshalKeyBlockHeader(kb.Header)

	encoded := kb.Encode()
	decoded, err := blockcodec.DecodeKeyBlock(encoded)
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if decoded.VersionTag != kb.VersionTag {
		t.Errorf("version tag mismatch")
	}
	if decoded.Header.Height != kb.Header.Height {
		t.Errorf("height mismatch")
	}

	ids := decoded.Identifiers()
	if "kh_" != ids["hash"][:3] {
		t.Errorf("expected kh_ prefixed hash, got %s", ids["hash"])
	}
	if "ak_" != ids["miner"][:3] {
		t.Errorf("expected ak_ prefixed miner, got %s", ids["miner"])
	}
}

func TestMicroBlockRoundTripPlain(t *testing.T) {
	header := &blockcodec.MicroBlockHeader{Version: 1, Height: 3, Time: 100}
	header.Raw = blockcodec.MarshalMicroBlockHeader(header)

	mb := &blockcodec.MicroBlock{VersionTag: 1, Header: header}
	encoded := mb.Encode()

	decoded, err := blockcodec.DecodeMicroBlock(encoded)
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if decoded.IsLight {
		t.Error("expected non-light micro block")
	}
	if decoded.Header.Height != header.Height {
		t.Errorf("height mismatch")
	}
}

func TestMicroBlockRoundTripLight(t *testing.T) {
	header := &blockcodec.MicroBlockHeader{Version: 1, Height: 3, Time: 100, HasPoF: true}
	header.Raw = blockcodec.MarshalMicroBlockHeader(header)

	mb := &blockcodec.MicroBlock{
		VersionTag: 1,
		IsLight:    true,
		Header:     header,
		TxHashes:   [][]byte{{1, 2, 3}, {4, 5, 6}},
		PoF:        [][]byte{{9, 9}},
	}
	encoded := mb.Encode()

	decoded, err := blockcodec.DecodeMicroBlock(encoded)
	if nil != err {
		t.Fatalf("decode error: %s", err)
	}
	if !decoded.IsLight {
		t.Error("expected light micro block")
	}
	if 2 != len(decoded.TxHashes) {
		t.Fatalf("expected 2 tx hashes, got %d", len(decoded.TxHashes))
	}
	if 1 != len(decoded.PoF) {
		t.Fatalf("expected 1 pof entry, got %d", len(decoded.PoF))
	}
}
