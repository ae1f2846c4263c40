// SPDX-License-Identifier: ISC

// Package framing implements the application-level fragmentation layer
// that sits directly on top of a Noise datagram stream (§4.2): a single
// public send operation that splits an oversized message into ordered
// fragments, and a per-connection reassembler that enforces strict
// in-order delivery on the receive side. The Noise session below
// already preserves datagram boundaries, so framing only worries about
// how many datagrams one logical message spans.
package framing

import (
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/wire"
)

// DatagramWriter is the minimal capability framing needs from a
// transport session: send one already-bounded datagram.
type DatagramWriter interface {
	WriteDatagram(datagram []byte) error
}

// SendMessage transmits msg verbatim if it fits in a single datagram,
// otherwise splits it into wire.FragmentSize chunks and sends each as
// its own fragment datagram.
func SendMessage(w DatagramWriter, msg []byte) error {
	if len(msg) <= wire.MaxPacketSize-2 {
		return w.WriteDatagram(msg)
	}

	total := (len(msg) + wire.FragmentSize - 1) / wire.FragmentSize
	for i := 0; i < total; i++ {
		start := i * wire.FragmentSize
		end := start + wire.FragmentSize
		if end > len(msg) {
			end = len(msg)
		}
		datagram := wire.EncodeFragment(uint16(i+1), uint16(total), msg[start:end])
		if err := w.WriteDatagram(datagram); nil != err {
			return err
		}
	}
	return nil
}

// Reassembler accumulates fragments for one connection. It is not safe
// for concurrent use; callers serialize inbound datagrams for a given
// connection the way the rest of the design serializes outbound sends.
type Reassembler struct {
	total  uint16
	chunks [][]byte
}

// NewReassembler returns an empty reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// inProgress reports whether a fragmented message is currently being
// accumulated.
func (r *Reassembler) inProgress() bool {
	return 0 < r.total
}

// Feed processes one inbound datagram. If it is not a fragment, it is
// returned as a complete message immediately, unless a fragmented
// message is in progress, in which case the reassembler is reset and
// fault.ErrFragmentOutOfOrder is reported. If it is a fragment that
// completes the sequence, the reassembled message is returned. An
// out-of-order index or a total mismatching the one seen in the first
// fragment resets the reassembler and reports an error; per §4.2 that
// is a decode failure and the caller should close the connection.
func (r *Reassembler) Feed(datagram []byte) ([]byte, bool, error) {
	if !wire.IsFragment(datagram) {
		if r.inProgress() {
			r.reset()
			return nil, false, fault.ErrFragmentOutOfOrder
		}
		return datagram, true, nil
	}

	header, chunk, err := wire.DecodeFragment(datagram)
	if nil != err {
		r.reset()
		return nil, false, err
	}

	expectedIndex := uint16(len(r.chunks) + 1)
	if header.Index != expectedIndex {
		r.reset()
		return nil, false, fault.ErrFragmentOutOfOrder
	}

	if 1 == header.Index {
		r.total = header.Total
	} else if header.Total != r.total {
		r.reset()
		return nil, false, fault.ErrFragmentTotalMismatch
	}

	r.chunks = append(r.chunks, append([]byte(nil), chunk...))

	if uint16(len(r.chunks)) < r.total {
		return nil, false, nil
	}

	message := make([]byte, 0)
	for _, c := range r.chunks {
		message = append(message, c...)
	}
	r.reset()
	return message, true, nil
}

func (r *Reassembler) reset() {
	r.total = 0
	r.chunks = nil
}
