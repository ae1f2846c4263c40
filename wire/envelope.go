// SPDX-License-Identifier: ISC

// Package wire defines the message envelope and the typed messages
// that ride inside it (§3, §4.1). It mirrors the way the wider node
// SDK's peer package keeps one small dispatch table per message kind
// rather than a generic reflection-based decoder.
package wire

import (
	"encoding/binary"

	"github.com/coreward/listenerd/fault"
)

// MsgType identifies the payload carried by an Envelope.
type MsgType uint16

// defined message types (§3)
const (
	MsgFragment     MsgType = 0
	MsgPing         MsgType = 1
	MsgGetBlockTxs  MsgType = 7
	MsgReserved9    MsgType = 9
	MsgKeyBlock     MsgType = 10
	MsgMicroBlock   MsgType = 11
	MsgBlockTxs     MsgType = 13
	MsgP2PResponse  MsgType = 100
)

const envelopeHeaderLength = 2

// Envelope is the outer `[msg_type: u16 big-endian][payload]` wrapper
// carried over the framed Noise stream.
type Envelope struct {
	Type    MsgType
	Payload []byte
}

// Encode serialises the envelope to wire bytes.
func (e Envelope) Encode() []byte {
	out := make([]byte, envelopeHeaderLength+len(e.Payload))
	binary.BigEndian.PutUint16(out[:2], uint16(e.Type))
	copy(out[2:], e.Payload)
	return out
}

// DecodeEnvelope parses the outer wrapper without interpreting the
// payload.
func DecodeEnvelope(data []byte) (Envelope, error) {
	if len(data) < envelopeHeaderLength {
		return Envelope{}, fault.ErrUnknownMessageType
	}
	return Envelope{
		Type:    MsgType(binary.BigEndian.Uint16(data[:2])),
		Payload: data[2:],
	}, nil
}

// IsDropped reports whether msg_type is the reserved, silently-dropped
// type 9.
func (t MsgType) IsDropped() bool {
	return MsgReserved9 == t
}
