// SPDX-License-Identifier: ISC

package framing_test

import (
	"bytes"
	"testing"

	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/framing"
	"github.com/coreward/listenerd/wire"
)

type recordingWriter struct {
	datagrams [][]byte
}

func (w *recordingWriter) WriteDatagram(d []byte) error {
	w.datagrams = append(w.datagrams, append([]byte(nil), d...))
	return nil
}

func TestSendMessageSingleFrame(t *testing.T) {
	w := &recordingWriter{}
	msg := bytes.Repeat([]byte{0x01}, wire.MaxPacketSize-2)
	if err := framing.SendMessage(w, msg); nil != err {
		t.Fatalf("send error: %s", err)
	}
	if 1 != len(w.datagrams) {
		t.Fatalf("expected exactly-fitting message to be sent as one frame, got %d", len(w.datagrams))
	}
	if !bytes.Equal(w.datagrams[0], msg) {
		t.Error("single-frame datagram does not match original message")
	}
}

func TestSendMessageFragments(t *testing.T) {
	w := &recordingWriter{}
	msg := bytes.Repeat([]byte{0x02}, 1500)
	if err := framing.SendMessage(w, msg); nil != err {
		t.Fatalf("send error: %s", err)
	}
	if 3 != len(w.datagrams) {
		t.Fatalf("expected 3 fragments for 1500 bytes, got %d", len(w.datagrams))
	}

	r := framing.NewReassembler()
	var reassembled []byte
	for _, d := range w.datagrams {
		msg, complete, err := r.Feed(d)
		if nil != err {
			t.Fatalf("feed error: %s", err)
		}
		if complete {
			reassembled = msg
		}
	}
	if !bytes.Equal(reassembled, msg) {
		t.Error("reassembled message does not match original")
	}
}

func TestReassemblerRejectsOutOfOrder(t *testing.T) {
	r := framing.NewReassembler()
	second := wire.EncodeFragment(2, 3, []byte("bbb"))
	if _, _, err := r.Feed(second); !fault.IsErrInvalid(err) {
		t.Fatalf("expected an invalid-error rejecting fragment 2 before fragment 1, got %v", err)
	}
}

func TestReassemblerRejectsTotalMismatch(t *testing.T) {
	r := framing.NewReassembler()
	first := wire.EncodeFragment(1, 3, []byte("aaa"))
	if _, _, err := r.Feed(first); nil != err {
		t.Fatalf("unexpected error on first fragment: %s", err)
	}
	second := wire.EncodeFragment(2, 4, []byte("bbb"))
	if _, _, err := r.Feed(second); nil == err {
		t.Error("expected error when total_fragments changes mid-sequence")
	}
}

func TestPlainMessagePassesThroughUnbuffered(t *testing.T) {
	r := framing.NewReassembler()
	plain := []byte{0x00, 0x01, 'p', 'i', 'n', 'g'}
	msg, complete, err := r.Feed(plain)
	if nil != err {
		t.Fatalf("feed error: %s", err)
	}
	if !complete || !bytes.Equal(msg, plain) {
		t.Error("expected an unfragmented datagram to pass through immediately")
	}
}
