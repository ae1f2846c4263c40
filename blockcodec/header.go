// SPDX-License-Identifier: ISC

// Package blockcodec parses the bit-packed key block and micro block
// header layouts and re-expresses their fields as prefixed identifiers
// (see package identifier) the way the wider node SDK's blockheader
// package unpacks bitmark's own block headers — but bit-exact to this
// listener's wire format rather than bitmark's.
package blockcodec

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/coreward/listenerd/fault"
)

const (
	// PowEvidenceLength is the number of u32 words in pow_evidence.
	PowEvidenceLength = 42

	keyBlockFixedLength = 8 + 8 + 32 + 32 + 32 + 32 + 32 + 4 + PowEvidenceLength*4 + 8 + 8

	microBlockFixedLength = 8 + 8 + 32 + 32 + 32 + 32 + 8
)

// KeyBlockHeader is the parsed bit layout of a key block header (§3).
type KeyBlockHeader struct {
	Version      uint32
	InfoFlag     bool
	Height       uint64
	PrevHash     [32]byte
	PrevKeyHash  [32]byte
	RootHash     [32]byte
	Miner        [32]byte
	Beneficiary  [32]byte
	Target       uint32
	PowEvidence  [PowEvidenceLength]uint32
	Nonce        uint64
	Time         uint64
	Info         []byte
	Raw          []byte
}

// MicroBlockHeader is the parsed bit layout of a micro block header (§3).
type MicroBlockHeader struct {
	Version     uint32
	HasPoF      bool
	Height      uint64
	PrevHash    [32]byte
	PrevKeyHash [32]byte
	RootHash    [32]byte
	TxsHash     [32]byte
	Time        uint64
	Trailing    []byte
	Raw         []byte
}

// headerTypeKey / headerTypeMicro are the values of the header-type bit
// (bit 31 of the leading 64-bit word) for key and micro blocks.
const (
	headerTypeKey   = 1
	headerTypeMicro = 0
)

// splitHeaderWord decodes the leading 64-bit word shared by both header
// kinds: 32-bit version, 1-bit header type, 1-bit flag (info-flag for
// key blocks, pof_tag for micro blocks), 30 reserved zero bits.
func splitHeaderWord(word uint64) (version uint32, headerType int, flag bool) {
	version = uint32(word >> 32)
	headerType = int((word >> 31) & 0x1)
	flag = 0 != (word>>30)&0x1
	return
}

func buildHeaderWord(version uint32, headerType int, flag bool) uint64 {
	word := uint64(version) << 32
	word |= uint64(headerType&0x1) << 31
	if flag {
		word |= 1 << 30
	}
	return word
}

// ParseKeyBlockHeader decodes the raw bit-packed key block header bytes.
func ParseKeyBlockHeader(raw []byte) (*KeyBlockHeader, error) {
	if len(raw) < keyBlockFixedLength {
		return nil, fault.ErrUnsupportedRLPValue
	}

	word := binary.BigEndian.Uint64(raw[0:8])
	version, headerType, infoFlag := splitHeaderWord(word)
	if headerTypeKey != headerType {
		return nil, fault.ErrUnknownMessageType
	}

	h := &KeyBlockHeader{
		Version:  version,
		InfoFlag: infoFlag,
		Raw:      append([]byte(nil), raw...),
	}

	offset := 8
	h.Height = binary.BigEndian.Uint64(raw[offset : offset+8])
	offset += 8
	copy(h.PrevHash[:], raw[offset:offset+32])
	offset += 32
	copy(h.PrevKeyHash[:], raw[offset:offset+32])
	offset += 32
	copy(h.RootHash[:], raw[offset:offset+32])
	offset += 32
	copy(h.Miner[:], raw[offset:offset+32])
	offset += 32
	copy(h.Beneficiary[:], raw[offset:offset+32])
	offset += 32
	h.Target = binary.BigEndian.Uint32(raw[offset : offset+4])
	offset += 4
	for i := 0; i < PowEvidenceLength; i++ {
		h.PowEvidence[i] = binary.BigEndian.Uint32(raw[offset : offset+4])
		offset += 4
	}
	h.Nonce = binary.BigEndian.Uint64(raw[offset : offset+8])
	offset += 8
	h.Time = binary.BigEndian.Uint64(raw[offset : offset+8])
	offset += 8

	if offset < len(raw) {
		h.Info = append([]byte(nil), raw[offset:]...)
	}

	return h, nil
}

// MarshalKeyBlockHeader is the inverse of ParseKeyBlockHeader.
func MarshalKeyBlockHeader(h *KeyBlockHeader) []byte {
	raw := make([]byte, keyBlockFixedLength, keyBlockFixedLength+len(h.Info))

	binary.BigEndian.PutUint64(raw[0:8], buildHeaderWord(h.Version, headerTypeKey, h.InfoFlag))
	offset := 8
	binary.BigEndian.PutUint64(raw[offset:offset+8], h.Height)
	offset += 8
	copy(raw[offset:offset+32], h.PrevHash[:])
	offset += 32
	copy(raw[offset:offset+32], h.PrevKeyHash[:])
	offset += 32
	copy(raw[offset:offset+32], h.RootHash[:])
	offset += 32
	copy(raw[offset:offset+32], h.Miner[:])
	offset += 32
	copy(raw[offset:offset+32], h.Beneficiary[:])
	offset += 32
	binary.BigEndian.PutUint32(raw[offset:offset+4], h.Target)
	offset += 4
	for i := 0; i < PowEvidenceLength; i++ {
		binary.BigEndian.PutUint32(raw[offset:offset+4], h.PowEvidence[i])
		offset += 4
	}
	binary.BigEndian.PutUint64(raw[offset:offset+8], h.Nonce)
	offset += 8
	binary.BigEndian.PutUint64(raw[offset:offset+8], h.Time)

	raw = append(raw, h.Info...)
	return raw
}

// ParseMicroBlockHeader decodes the raw bit-packed micro block header
// bytes.
func ParseMicroBlockHeader(raw []byte) (*MicroBlockHeader, error) {
	if len(raw) < microBlockFixedLength {
		return nil, fault.ErrUnsupportedRLPValue
	}

	word := binary.BigEndian.Uint64(raw[0:8])
	version, headerType, hasPoF := splitHeaderWord(word)
	if headerTypeMicro != headerType {
		return nil, fault.ErrUnknownMessageType
	}

	h := &MicroBlockHeader{
		Version: version,
		HasPoF:  hasPoF,
		Raw:     append([]byte(nil), raw...),
	}

	offset := 8
	h.Height = binary.BigEndian.Uint64(raw[offset : offset+8])
	offset += 8
	copy(h.PrevHash[:], raw[offset:offset+32])
	offset += 32
	copy(h.PrevKeyHash[:], raw[offset:offset+32])
	offset += 32
	copy(h.RootHash[:], raw[offset:offset+32])
	offset += 32
	copy(h.TxsHash[:], raw[offset:offset+32])
	offset += 32
	h.Time = binary.BigEndian.Uint64(raw[offset : offset+8])
	offset += 8

	if offset < len(raw) {
		h.Trailing = append([]byte(nil), raw[offset:]...)
	}

	return h, nil
}

// MarshalMicroBlockHeader is the inverse of ParseMicroBlockHeader.
func MarshalMicroBlockHeader(h *MicroBlockHeader) []byte {
	raw := make([]byte, microBlockFixedLength, microBlockFixedLength+len(h.Trailing))

	binary.BigEndian.PutUint64(raw[0:8], buildHeaderWord(h.Version, headerTypeMicro, h.HasPoF))
	offset := 8
	binary.BigEndian.PutUint64(raw[offset:offset+8], h.Height)
	offset += 8
	copy(raw[offset:offset+32], h.PrevHash[:])
	offset += 32
	copy(raw[offset:offset+32], h.PrevKeyHash[:])
	offset += 32
	copy(raw[offset:offset+32], h.RootHash[:])
	offset += 32
	copy(raw[offset:offset+32], h.TxsHash[:])
	offset += 32
	binary.BigEndian.PutUint64(raw[offset:offset+8], h.Time)

	raw = append(raw, h.Trailing...)
	return raw
}

// HeaderHash is Blake2b-256 over the raw header bytes, as used for
// micro block header_hash (§4.1) and, by the same construction, for key
// block identification.
func HeaderHash(raw []byte) [32]byte {
	return blake2b.Sum256(raw)
}
