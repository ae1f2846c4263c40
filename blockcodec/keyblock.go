// SPDX-License-Identifier: ISC

package blockcodec

import (
	"bytes"

	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/identifier"
	"github.com/coreward/listenerd/rlp"
)

// KeyBlock is the outer RLP envelope around a key block header: an RLP
// list of [version_tag, header_bytes] (§4.1).
type KeyBlock struct {
	VersionTag uint64
	Header     *KeyBlockHeader
}

// DecodeKeyBlock parses the outer RLP wrapper and the inner bit-packed
// header in one step.
func DecodeKeyBlock(payload []byte) (*KeyBlock, error) {
	item, err := rlp.Decode(payload)
	if nil != err {
		return nil, err
	}
	list, ok := rlp.AsList(item)
	if !ok || 2 != len(list) {
		return nil, fault.ErrUnsupportedRLPValue
	}
	tagBytes, ok := rlp.AsBytes(list[0])
	if !ok {
		return nil, fault.ErrUnsupportedRLPValue
	}
	headerBytes, ok := rlp.AsBytes(list[1])
	if !ok {
		return nil, fault.ErrUnsupportedRLPValue
	}

	header, err := ParseKeyBlockHeader(headerBytes)
	if nil != err {
		return nil, err
	}

	return &KeyBlock{
		VersionTag: rlp.DecodeUint64(tagBytes),
		Header:     header,
	}, nil
}

// Encode re-serialises a key block to its outer RLP wrapper.
func (kb *KeyBlock) Encode() []byte {
	headerBytes := MarshalKeyBlockHeader(kb.Header)
	return rlp.EncodeList(
		rlp.Bytes(rlp.RawUint64(kb.VersionTag)),
		rlp.Bytes(headerBytes),
	)
}

// Hash is the Blake2b-256 digest of the raw bit-packed header, i.e. the
// value carried in a kh_ identifier.
func (kb *KeyBlock) Hash() [32]byte {
	return HeaderHash(kb.Header.Raw)
}

// Identifiers renders every hash-shaped field of the header as its
// prefixed base58check identifier. prev_hash is tagged mh_ unless it is
// equal to prev_key_hash (the genesis-adjacent case), in which case it
// is itself a key block and is tagged kh_.
func (kb *KeyBlock) Identifiers() map[string]string {
	h := kb.Header
	prevTag := identifier.TagMicroBlock
	if bytes.Equal(h.PrevHash[:], h.PrevKeyHash[:]) {
		prevTag = identifier.TagKeyBlock
	}

	hash := kb.Hash()
	out := map[string]string{
		"hash":          identifier.Encode(identifier.TagKeyBlock, hash[:]),
		"prev_hash":     identifier.Encode(prevTag, h.PrevHash[:]),
		"prev_key_hash": identifier.Encode(identifier.TagKeyBlock, h.PrevKeyHash[:]),
		"root_hash":     identifier.Encode(identifier.TagState, h.RootHash[:]),
		"miner":         identifier.Encode(identifier.TagAccount, h.Miner[:]),
		"beneficiary":   identifier.Encode(identifier.TagAccount, h.Beneficiary[:]),
	}
	if 0 < len(h.Info) {
		out["info"] = identifier.Encode(identifier.TagContract, h.Info)
	}
	return out
}
