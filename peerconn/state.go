// SPDX-License-Identifier: ISC

// Package peerconn implements the per-socket state machine described
// in the design notes: handshake, then a first-ping gate, then steady
// state dispatch of the small typed message set. It plays the role the
// wider node SDK gives peer/connector_state.go and peer/upstream.go —
// a small state enum plus a struct that owns one socket's lifecycle —
// generalized from ZeroMQ pub/sub to a Noise_XK stream.
package peerconn

// State is one point in a PeerConnection's lifecycle (§4.4).
type State int

// defined states
const (
	Dialing State = iota
	Accepting
	Handshaking
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Dialing:
		return "Dialing"
	case Accepting:
		return "Accepting"
	case Handshaking:
		return "Handshaking"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "*Unknown*"
	}
}
