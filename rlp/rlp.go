// SPDX-License-Identifier: ISC

// Package rlp implements recursive length-prefix encoding: byte strings
// and arbitrarily nested lists of byte strings, each self-delimited by a
// length header. It mirrors the wire encoding used by devp2p-family
// peer-to-peer protocols (see the RLP note in go-ethereum's p2p package
// documentation) but carries none of that package's node/discovery
// machinery — this is the bare codec the listener core needs.
package rlp

import (
	"github.com/coreward/listenerd/fault"
)

// Item is a decoded RLP value: either a byte string (Bytes) or an
// ordered list of items (List). It is the only shape RLP knows about;
// higher layers impose structure on top of it.
type Item interface {
	isItem()
}

// Bytes is an RLP byte string.
type Bytes []byte

func (Bytes) isItem() {}

// List is an ordered sequence of RLP items.
type List []Item

func (List) isItem() {}

const (
	offsetShortString = 0x80
	offsetLongString  = 0xb7
	offsetShortList   = 0xc0
	offsetLongList    = 0xf7
)

// Encode serialises an Item to its RLP wire form.
func Encode(item Item) []byte {
	switch v := item.(type) {
	case Bytes:
		return encodeBytes(v)
	case List:
		return encodeList(v)
	default:
		return nil
	}
}

// EncodeBytes is a convenience wrapper for encoding a single byte string.
func EncodeBytes(b []byte) []byte {
	return encodeBytes(b)
}

// EncodeList is a convenience wrapper for encoding a list of items.
func EncodeList(items ...Item) []byte {
	return encodeList(List(items))
}

func encodeBytes(b []byte) []byte {
	if 1 == len(b) && b[0] < offsetShortString {
		return []byte{b[0]}
	}
	return append(encodeLength(len(b), offsetShortString, offsetLongString), b...)
}

func encodeList(items List) []byte {
	payload := make([]byte, 0)
	for _, item := range items {
		payload = append(payload, Encode(item)...)
	}
	return append(encodeLength(len(payload), offsetShortList, offsetLongList), payload...)
}

func encodeLength(n int, shortOffset int, longOffset int) []byte {
	if n < 56 {
		return []byte{byte(shortOffset + n)}
	}
	lengthBytes := minimalBigEndian(uint64(n))
	header := append([]byte{byte(longOffset + len(lengthBytes))}, lengthBytes...)
	return header
}

func minimalBigEndian(v uint64) []byte {
	if 0 == v {
		return []byte{0}
	}
	var b [8]byte
	n := 8
	for v > 0 {
		n--
		b[n] = byte(v)
		v >>= 8
	}
	return b[n:]
}

// Decode parses a single RLP item, requiring the whole buffer to be
// consumed.
func Decode(data []byte) (Item, error) {
	item, rest, err := decodeItem(data)
	if nil != err {
		return nil, err
	}
	if 0 != len(rest) {
		return nil, fault.ErrUnsupportedRLPValue
	}
	return item, nil
}

// DecodePrefix parses a single RLP item from the front of data and
// returns whatever bytes remain after it — used by callers that decode
// several RLP values back-to-back from one buffer.
func DecodePrefix(data []byte) (Item, []byte, error) {
	return decodeItem(data)
}

func decodeItem(data []byte) (Item, []byte, error) {
	if 0 == len(data) {
		return nil, nil, fault.ErrUnsupportedRLPValue
	}

	first := data[0]
	switch {
	case first < offsetShortString:
		return Bytes{first}, data[1:], nil

	case first < offsetLongString+1:
		length := int(first) - offsetShortString
		if len(data) < 1+length {
			return nil, nil, fault.ErrUnsupportedRLPValue
		}
		return Bytes(append([]byte(nil), data[1:1+length]...)), data[1+length:], nil

	case first < offsetShortList:
		lengthOfLength := int(first) - offsetLongString
		if len(data) < 1+lengthOfLength {
			return nil, nil, fault.ErrUnsupportedRLPValue
		}
		length := beUint(data[1 : 1+lengthOfLength])
		start := 1 + lengthOfLength
		if len(data) < start+length {
			return nil, nil, fault.ErrUnsupportedRLPValue
		}
		return Bytes(append([]byte(nil), data[start:start+length]...)), data[start+length:], nil

	case first < offsetLongList+1:
		length := int(first) - offsetShortList
		if len(data) < 1+length {
			return nil, nil, fault.ErrUnsupportedRLPValue
		}
		return decodeListPayload(data[1 : 1+length]), data[1+length:], nil

	default:
		lengthOfLength := int(first) - offsetLongList
		if len(data) < 1+lengthOfLength {
			return nil, nil, fault.ErrUnsupportedRLPValue
		}
		length := beUint(data[1 : 1+lengthOfLength])
		start := 1 + lengthOfLength
		if len(data) < start+length {
			return nil, nil, fault.ErrUnsupportedRLPValue
		}
		return decodeListPayload(data[start : start+length]), data[start+length:], nil
	}
}

func decodeListPayload(payload []byte) List {
	items := List{}
	for 0 != len(payload) {
		item, rest, err := decodeItem(payload)
		if nil != err {
			return items
		}
		items = append(items, item)
		payload = rest
	}
	return items
}

func beUint(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// EncodeUint64 renders v as a minimal-length big-endian RLP byte string,
// per the convention that integers are encoded as their shortest byte
// representation (no leading zero bytes, zero itself is the empty string).
func EncodeUint64(v uint64) []byte {
	if 0 == v {
		return encodeBytes(nil)
	}
	var b [8]byte
	n := 8
	for v > 0 {
		n--
		b[n] = byte(v)
		v >>= 8
	}
	return encodeBytes(b[n:])
}

// RawUint64 renders v as a minimal-length big-endian byte string with
// no RLP framing of its own — zero renders as the empty slice. Wrap the
// result in Bytes before embedding it as a List element; Encode applies
// the length prefix exactly once when the list is serialised. Use
// EncodeUint64 instead when v is itself the whole message to encode.
func RawUint64(v uint64) []byte {
	if 0 == v {
		return nil
	}
	var b [8]byte
	n := 8
	for v > 0 {
		n--
		b[n] = byte(v)
		v >>= 8
	}
	return append([]byte(nil), b[n:]...)
}

// DecodeUint64 interprets an RLP byte string as an unsigned big-endian
// integer; the empty string decodes to zero.
func DecodeUint64(b Bytes) uint64 {
	v := uint64(0)
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// AsBytes type-asserts an Item to Bytes, returning ok=false for a List.
func AsBytes(item Item) (Bytes, bool) {
	b, ok := item.(Bytes)
	return b, ok
}

// AsList type-asserts an Item to List, returning ok=false for Bytes.
func AsList(item Item) (List, bool) {
	l, ok := item.(List)
	return l, ok
}
