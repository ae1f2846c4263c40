// SPDX-License-Identifier: ISC

package blockcodec

import (
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/identifier"
	"github.com/coreward/listenerd/rlp"
)

// MicroBlock is the outer RLP envelope around a micro block header: an
// RLP list of [version_tag, header_bytes, is_light_flag] (§4.1). When
// is_light_flag is set the header carries a light-micro template of
// {header, tx_hashes, pof} instead of the plain header bytes; this
// mirrors the "external chain-object deserializer" collaborator named
// in the design notes, scoped here to only that one template shape.
type MicroBlock struct {
	VersionTag uint64
	IsLight    bool
	Header     *MicroBlockHeader
	TxHashes   [][]byte
	PoF        [][]byte
}

// DecodeMicroBlock parses the outer RLP wrapper, dispatching to the
// light-template decoder when the light flag is set.
func DecodeMicroBlock(payload []byte) (*MicroBlock, error) {
	item, err := rlp.Decode(payload)
	if nil != err {
		return nil, err
	}
	list, ok := rlp.AsList(item)
	if !ok || 3 != len(list) {
		return nil, fault.ErrUnsupportedRLPValue
	}
	tagBytes, ok := rlp.AsBytes(list[0])
	if !ok {
		return nil, fault.ErrUnsupportedRLPValue
	}
	flagBytes, ok := rlp.AsBytes(list[2])
	if !ok {
		return nil, fault.ErrUnsupportedRLPValue
	}

	mb := &MicroBlock{
		VersionTag: rlp.DecodeUint64(tagBytes),
		IsLight:    0 != rlp.DecodeUint64(flagBytes),
	}

	if !mb.IsLight {
		headerBytes, ok := rlp.AsBytes(list[1])
		if !ok {
			return nil, fault.ErrUnsupportedRLPValue
		}
		header, err := ParseMicroBlockHeader(headerBytes)
		if nil != err {
			return nil, err
		}
		mb.Header = header
		return mb, nil
	}

	template, ok := rlp.AsList(list[1])
	if !ok || 3 != len(template) {
		return nil, fault.ErrUnsupportedRLPValue
	}
	headerBytes, ok := rlp.AsBytes(template[0])
	if !ok {
		return nil, fault.ErrUnsupportedRLPValue
	}
	header, err := ParseMicroBlockHeader(headerBytes)
	if nil != err {
		return nil, err
	}
	mb.Header = header

	txHashList, ok := rlp.AsList(template[1])
	if !ok {
		return nil, fault.ErrUnsupportedRLPValue
	}
	for _, item := range txHashList {
		b, ok := rlp.AsBytes(item)
		if !ok {
			return nil, fault.ErrUnsupportedRLPValue
		}
		mb.TxHashes = append(mb.TxHashes, []byte(b))
	}

	pofList, ok := rlp.AsList(template[2])
	if !ok {
		return nil, fault.ErrUnsupportedRLPValue
	}
	for _, item := range pofList {
		b, ok := rlp.AsBytes(item)
		if !ok {
			return nil, fault.ErrUnsupportedRLPValue
		}
		mb.PoF = append(mb.PoF, []byte(b))
	}

	return mb, nil
}

// Encode re-serialises a micro block to its outer RLP wrapper.
func (mb *MicroBlock) Encode() []byte {
	headerBytes := MarshalMicroBlockHeader(mb.Header)
	flag := uint64(0)
	if mb.IsLight {
		flag = 1
	}

	var body rlp.Item
	if !mb.IsLight {
		body = rlp.Bytes(headerBytes)
	} else {
		txHashes := make([]rlp.Item, len(mb.TxHashes))
		for i, h := range mb.TxHashes {
			txHashes[i] = rlp.Bytes(h)
		}
		pof := make([]rlp.Item, len(mb.PoF))
		for i, p := range mb.PoF {
			pof[i] = rlp.Bytes(p)
		}
		body = rlp.List{
			rlp.Bytes(headerBytes),
			rlp.List(txHashes),
			rlp.List(pof),
		}
	}

	return rlp.EncodeList(
		rlp.Bytes(rlp.RawUint64(mb.VersionTag)),
		body,
		rlp.Bytes(rlp.RawUint64(flag)),
	)
}

// Hash is the Blake2b-256 digest of the raw bit-packed header (§4.1's
// header_hash).
func (mb *MicroBlock) Hash() [32]byte {
	return HeaderHash(mb.Header.Raw)
}

// Identifiers renders every hash-shaped field of the header as its
// prefixed base58check identifier.
func (mb *MicroBlock) Identifiers() map[string]string {
	h := mb.Header
	hash := mb.Hash()
	return map[string]string{
		"hash":          identifier.Encode(identifier.TagMicroBlock, hash[:]),
		"prev_hash":     identifier.Encode(identifier.TagMicroBlock, h.PrevHash[:]),
		"prev_key_hash": identifier.Encode(identifier.TagKeyBlock, h.PrevKeyHash[:]),
		"root_hash":     identifier.Encode(identifier.TagState, h.RootHash[:]),
		"txs_hash":      identifier.Encode(identifier.TagTxRoot, h.TxsHash[:]),
	}
}
