// SPDX-License-Identifier: ISC

package wire

import (
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/rlp"
)

// GetBlockTxsVersion is the fixed leading byte of a get_block_txs
// request (§4.4's "u8(1)").
const GetBlockTxsVersion = byte(1)

// GetBlockTxs requests the transactions of a micro block by header
// hash, optionally naming which tx hashes are wanted when the
// triggering micro block carried a light template.
type GetBlockTxs struct {
	Version    byte
	HeaderHash []byte
	TxHashes   [][]byte
}

// Encode renders a GetBlockTxs request: `[u8(1), header_hash, tx_hashes]`.
func (g GetBlockTxs) Encode() []byte {
	txHashes := make(rlp.List, len(g.TxHashes))
	for i, h := range g.TxHashes {
		txHashes[i] = rlp.Bytes(h)
	}
	return rlp.EncodeList(
		rlp.Bytes([]byte{g.Version}),
		rlp.Bytes(g.HeaderHash),
		txHashes,
	)
}

// DecodeGetBlockTxs parses a get_block_txs payload.
func DecodeGetBlockTxs(payload []byte) (GetBlockTxs, error) {
	item, err := rlp.Decode(payload)
	if nil != err {
		return GetBlockTxs{}, err
	}
	list, ok := rlp.AsList(item)
	if !ok || 3 != len(list) {
		return GetBlockTxs{}, fault.ErrUnsupportedRLPValue
	}
	versionBytes, ok := rlp.AsBytes(list[0])
	if !ok || 1 != len(versionBytes) {
		return GetBlockTxs{}, fault.ErrUnsupportedRLPValue
	}
	headerHash, ok := rlp.AsBytes(list[1])
	if !ok {
		return GetBlockTxs{}, fault.ErrUnsupportedRLPValue
	}
	txHashList, ok := rlp.AsList(list[2])
	if !ok {
		return GetBlockTxs{}, fault.ErrUnsupportedRLPValue
	}
	txHashes := make([][]byte, 0, len(txHashList))
	for _, entry := range txHashList {
		b, ok := rlp.AsBytes(entry)
		if !ok {
			return GetBlockTxs{}, fault.ErrUnsupportedRLPValue
		}
		txHashes = append(txHashes, []byte(b))
	}
	return GetBlockTxs{Version: versionBytes[0], HeaderHash: []byte(headerHash), TxHashes: txHashes}, nil
}

// SignedTx is a signed-transaction envelope; the source protocol
// resolves it further via an external serializer into {tx_body,
// tx_type_tag}, which this listener does not need to interpret to
// satisfy its read-only observer role — it is carried opaquely.
type SignedTx struct {
	TxBody    []byte
	TxTypeTag uint64
}

// BlockTxs is the response to GetBlockTxs: `[vsn, block_hash, txs]`.
type BlockTxs struct {
	Version   uint64
	BlockHash []byte
	Txs       []SignedTx
}

// DecodeBlockTxs parses a block_txs payload.
func DecodeBlockTxs(payload []byte) (BlockTxs, error) {
	item, err := rlp.Decode(payload)
	if nil != err {
		return BlockTxs{}, err
	}
	list, ok := rlp.AsList(item)
	if !ok || 3 != len(list) {
		return BlockTxs{}, fault.ErrUnsupportedRLPValue
	}
	version, err := decodeUint(list[0])
	if nil != err {
		return BlockTxs{}, err
	}
	blockHash, ok := rlp.AsBytes(list[1])
	if !ok {
		return BlockTxs{}, fault.ErrUnsupportedRLPValue
	}
	txList, ok := rlp.AsList(list[2])
	if !ok {
		return BlockTxs{}, fault.ErrUnsupportedRLPValue
	}

	txs := make([]SignedTx, 0, len(txList))
	for _, entry := range txList {
		tuple, ok := rlp.AsList(entry)
		if !ok || 2 != len(tuple) {
			return BlockTxs{}, fault.ErrUnsupportedRLPValue
		}
		body, ok := rlp.AsBytes(tuple[0])
		if !ok {
			return BlockTxs{}, fault.ErrUnsupportedRLPValue
		}
		tag, err := decodeUint(tuple[1])
		if nil != err {
			return BlockTxs{}, err
		}
		txs = append(txs, SignedTx{TxBody: []byte(body), TxTypeTag: tag})
	}

	return BlockTxs{Version: version, BlockHash: []byte(blockHash), Txs: txs}, nil
}

// Encode renders a BlockTxs response.
func (b BlockTxs) Encode() []byte {
	txs := make(rlp.List, len(b.Txs))
	for i, tx := range b.Txs {
		txs[i] = rlp.List{
			rlp.Bytes(tx.TxBody),
			rlp.Bytes(rlp.RawUint64(tx.TxTypeTag)),
		}
	}
	return rlp.EncodeList(
		rlp.Bytes(rlp.RawUint64(b.Version)),
		rlp.Bytes(b.BlockHash),
		txs,
	)
}

// P2PResponse correlates back to an outstanding request by echoing
// InnerType (§4.1, §5's positional correlation). Reason is a UTF-8
// diagnostic string, empty when Result is true. Object is the
// RLP-encoded body of the message named by InnerType, or empty.
type P2PResponse struct {
	Version   uint64
	Result    bool
	InnerType MsgType
	Reason    string
	Object    []byte
}

// Encode renders a p2p_response.
func (r P2PResponse) Encode() []byte {
	result := byte(0x00)
	if r.Result {
		result = 0x01
	}
	return rlp.EncodeList(
		rlp.Bytes(rlp.RawUint64(r.Version)),
		rlp.Bytes([]byte{result}),
		rlp.Bytes(rlp.RawUint64(uint64(r.InnerType))),
		rlp.Bytes([]byte(r.Reason)),
		rlp.Bytes(r.Object),
	)
}

// DecodeP2PResponse parses a p2p_response payload.
func DecodeP2PResponse(payload []byte) (P2PResponse, error) {
	item, err := rlp.Decode(payload)
	if nil != err {
		return P2PResponse{}, err
	}
	list, ok := rlp.AsList(item)
	if !ok || 5 != len(list) {
		return P2PResponse{}, fault.ErrUnsupportedRLPValue
	}
	version, err := decodeUint(list[0])
	if nil != err {
		return P2PResponse{}, err
	}
	resultBytes, ok := rlp.AsBytes(list[1])
	if !ok || 1 != len(resultBytes) {
		return P2PResponse{}, fault.ErrUnsupportedRLPValue
	}
	innerType, err := decodeUint(list[2])
	if nil != err {
		return P2PResponse{}, err
	}
	reason, ok := rlp.AsBytes(list[3])
	if !ok {
		return P2PResponse{}, fault.ErrUnsupportedRLPValue
	}
	object, ok := rlp.AsBytes(list[4])
	if !ok {
		return P2PResponse{}, fault.ErrUnsupportedRLPValue
	}

	return P2PResponse{
		Version:   version,
		Result:    0x00 != resultBytes[0],
		InnerType: MsgType(innerType),
		Reason:    string(reason),
		Object:    []byte(object),
	}, nil
}
