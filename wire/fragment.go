// SPDX-License-Identifier: ISC

package wire

import (
	"encoding/binary"

	"github.com/coreward/listenerd/fault"
)

// MaxPacketSize bounds an unfragmented message (§3): framing sends a
// message of at most MaxPacketSize-2 bytes as one datagram and
// fragments anything longer. Inbound datagram sizes are not checked
// against it.
const MaxPacketSize = 511

// FragmentSize is the chunk payload length used by every fragment
// except the last (§3). A full fragment datagram is FragmentSize plus
// the 6-byte fragment header, 513 bytes.
const FragmentSize = 507

const fragmentHeaderLength = 6

// FragmentHeader is the `[0x0000][fragment_index][total_fragments]`
// prefix of a fragment datagram; fragment_index is 1-based.
type FragmentHeader struct {
	Index uint16
	Total uint16
}

// EncodeFragment renders one fragment datagram.
func EncodeFragment(index, total uint16, chunk []byte) []byte {
	out := make([]byte, fragmentHeaderLength+len(chunk))
	binary.BigEndian.PutUint16(out[0:2], uint16(MsgFragment))
	binary.BigEndian.PutUint16(out[2:4], index)
	binary.BigEndian.PutUint16(out[4:6], total)
	copy(out[fragmentHeaderLength:], chunk)
	return out
}

// IsFragment reports whether the leading 16 bits of a datagram mark it
// as a fragment rather than a directly-dispatchable message.
func IsFragment(datagram []byte) bool {
	return 2 <= len(datagram) && MsgFragment == MsgType(binary.BigEndian.Uint16(datagram[:2]))
}

// DecodeFragment parses a fragment datagram into its header and chunk.
func DecodeFragment(datagram []byte) (FragmentHeader, []byte, error) {
	if len(datagram) < fragmentHeaderLength {
		return FragmentHeader{}, nil, fault.ErrUnsupportedRLPValue
	}
	header := FragmentHeader{
		Index: binary.BigEndian.Uint16(datagram[2:4]),
		Total: binary.BigEndian.Uint16(datagram[4:6]),
	}
	return header, datagram[fragmentHeaderLength:], nil
}
