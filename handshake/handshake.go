// SPDX-License-Identifier: ISC

// Package handshake drives the Noise_XK session that authenticates and
// encrypts every peer connection (§4.4). It wraps github.com/flynn/noise
// the way the wider node SDK wraps ZeroMQ's CurveZMQ handshake in
// peer/certificate.go: a thin session type that owns the handshake
// state machine and, once complete, the transport cipher states.
package handshake

import (
	"encoding/binary"
	"errors"
	"net"
	"time"

	"github.com/flynn/noise"

	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/identity"
)

// StaticKeypair converts the node's identity keypair into the shape
// flynn/noise expects; the same Curve25519 key doubles as both.
func StaticKeypair(kp *identity.KeyPair) noise.DHKey {
	return noise.DHKey{Private: append([]byte(nil), kp.PrivateKey[:]...), Public: append([]byte(nil), kp.PublicKey[:]...)}
}

// Timeout is the mandatory Noise handshake deadline (§4.4, §9).
const Timeout = 5 * time.Second

// prologueSuffix is the literal ASCII string mixed into every
// handshake's prologue alongside the protocol version and genesis
// hash.
const prologueSuffix = "my_test"

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2b)

// Mainnet and Testnet are the compile-time genesis hash constants that
// select a network and are mixed into the Noise prologue (§6).
var (
	Mainnet = [32]byte{
		0x6C, 0x15, 0xDA, 0x6E, 0xBF, 0xAF, 0x02, 0x78, 0xFE, 0xAF, 0x4D, 0xF1, 0xB0, 0xF1, 0xA9, 0x82,
		0x55, 0x07, 0xAE, 0x7B, 0x9A, 0x49, 0x4B, 0xC3, 0x4C, 0x91, 0x71, 0x3F, 0x38, 0xDD, 0x57, 0x83,
	}
	Testnet = [32]byte{
		0xAE, 0x24, 0x94, 0xDB, 0xE0, 0xAD, 0xCC, 0x8A, 0x62, 0xB1, 0xDE, 0x13, 0x51, 0x14, 0xF8, 0x79,
		0x22, 0xFB, 0x96, 0x61, 0x0B, 0x0C, 0x82, 0x00, 0x06, 0xBA, 0x8A, 0xEF, 0x45, 0x55, 0x52, 0xCE,
	}
)

// Prologue builds the handshake prologue: 8-byte protocol version,
// 32-byte genesis hash, literal "my_test".
func Prologue(protocolVersion uint64, genesisHash [32]byte) []byte {
	out := make([]byte, 8+32+len(prologueSuffix))
	binary.BigEndian.PutUint64(out[:8], protocolVersion)
	copy(out[8:40], genesisHash[:])
	copy(out[40:], prologueSuffix)
	return out
}

// Session is a completed Noise_XK transport: a datagram-preserving
// read/write pair over an underlying net.Conn, plus the remote's
// static public key learned or confirmed during the handshake.
type Session struct {
	conn         net.Conn
	send         *noise.CipherState
	receive      *noise.CipherState
	RemoteStatic [32]byte
}

// DialInitiator performs the Noise_XK initiator side: the remote's
// static key is known a priori (mutual authentication per §9's
// Noise_XK glossary entry).
func DialInitiator(conn net.Conn, localStatic noise.DHKey, remoteStatic [32]byte, protocolVersion uint64, genesisHash [32]byte) (*Session, error) {
	config := noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXK,
		Initiator:     true,
		Prologue:      Prologue(protocolVersion, genesisHash),
		StaticKeypair: localStatic,
		PeerStatic:    remoteStatic[:],
	}
	return runHandshake(conn, config, remoteStatic)
}

// AcceptResponder performs the Noise_XK responder side; the remote
// static key is learned during the handshake rather than known ahead
// of time.
func AcceptResponder(conn net.Conn, localStatic noise.DHKey, protocolVersion uint64, genesisHash [32]byte) (*Session, error) {
	config := noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXK,
		Initiator:     false,
		Prologue:      Prologue(protocolVersion, genesisHash),
		StaticKeypair: localStatic,
	}
	return runHandshake(conn, config, [32]byte{})
}

// classifyIOError reports a deadline-exceeded I/O error during the
// handshake as fault.ErrHandshakeTimeout rather than letting it surface
// as an opaque net.OpError, so callers can branch on the sentinel.
func classifyIOError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fault.ErrHandshakeTimeout
	}
	return err
}

func runHandshake(conn net.Conn, config noise.Config, expectedRemote [32]byte) (*Session, error) {
	hs, err := noise.NewHandshakeState(config)
	if nil != err {
		return nil, err
	}

	if err := conn.SetDeadline(time.Now().Add(Timeout)); nil != err {
		return nil, err
	}
	defer conn.SetDeadline(time.Time{})

	var send, receive *noise.CipherState

	if config.Initiator {
		msg, _, _, err := hs.WriteMessage(nil, nil)
		if nil != err {
			return nil, fault.ErrHandshakeFailed
		}
		if err := writeFrame(conn, msg); nil != err {
			return nil, classifyIOError(err)
		}

		reply, err := readFrame(conn)
		if nil != err {
			return nil, classifyIOError(err)
		}
		_, cs1, cs2, err := hs.ReadMessage(nil, reply)
		if nil != err {
			return nil, fault.ErrHandshakeFailed
		}

		final, csA, csB, err := hs.WriteMessage(nil, nil)
		if nil != err {
			return nil, fault.ErrHandshakeFailed
		}
		if err := writeFrame(conn, final); nil != err {
			return nil, classifyIOError(err)
		}
		send, receive = pickCipherStates(true, cs1, cs2, csA, csB)
	} else {
		first, err := readFrame(conn)
		if nil != err {
			return nil, classifyIOError(err)
		}
		_, _, _, err = hs.ReadMessage(nil, first)
		if nil != err {
			return nil, fault.ErrHandshakeFailed
		}

		reply, cs1, cs2, err := hs.WriteMessage(nil, nil)
		if nil != err {
			return nil, fault.ErrHandshakeFailed
		}
		if err := writeFrame(conn, reply); nil != err {
			return nil, classifyIOError(err)
		}

		final, err := readFrame(conn)
		if nil != err {
			return nil, classifyIOError(err)
		}
		_, csA, csB, err := hs.ReadMessage(nil, final)
		if nil != err {
			return nil, fault.ErrHandshakeFailed
		}
		send, receive = pickCipherStates(false, cs1, cs2, csA, csB)
	}

	var remote [32]byte
	copy(remote[:], hs.PeerStatic())
	if config.Initiator && remote != expectedRemote {
		return nil, fault.ErrInvalidPublicKey
	}

	return &Session{conn: conn, send: send, receive: receive, RemoteStatic: remote}, nil
}

// pickCipherStates resolves whichever pair of CipherState return values
// from the three-message XK exchange is non-nil into (send, receive)
// from this side's point of view.
func pickCipherStates(initiator bool, cs1, cs2, csA, csB *noise.CipherState) (*noise.CipherState, *noise.CipherState) {
	c1, c2 := cs1, cs2
	if nil == c1 {
		c1, c2 = csA, csB
	}
	if initiator {
		return c1, c2
	}
	return c2, c1
}

const lengthPrefixSize = 2

func writeFrame(conn net.Conn, payload []byte) error {
	header := make([]byte, lengthPrefixSize)
	binary.BigEndian.PutUint16(header, uint16(len(payload)))
	if _, err := conn.Write(header); nil != err {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	header := make([]byte, lengthPrefixSize)
	if _, err := readFull(conn, header); nil != err {
		return nil, err
	}
	length := binary.BigEndian.Uint16(header)
	payload := make([]byte, length)
	if _, err := readFull(conn, payload); nil != err {
		return nil, err
	}
	return payload, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if nil != err {
			return total, err
		}
	}
	return total, nil
}

// WriteDatagram encrypts and sends one application datagram, satisfying
// framing.DatagramWriter.
func (s *Session) WriteDatagram(datagram []byte) error {
	ciphertext, err := s.send.Encrypt(nil, nil, datagram)
	if nil != err {
		return err
	}
	return writeFrame(s.conn, ciphertext)
}

// ReadDatagram receives and decrypts the next application datagram.
func (s *Session) ReadDatagram() ([]byte, error) {
	ciphertext, err := readFrame(s.conn)
	if nil != err {
		return nil, err
	}
	plaintext, err := s.receive.Decrypt(nil, nil, ciphertext)
	if nil != err {
		return nil, fault.ErrHandshakeFailed
	}
	return plaintext, nil
}

// Close releases the underlying socket.
func (s *Session) Close() error {
	return s.conn.Close()
}
