// SPDX-License-Identifier: ISC

package peerconn

// Manager adapts DialOutbound to registry.Dialer so PeerRegistry.TryConnect
// can open new sessions without knowing anything about Noise or framing.
type Manager struct {
	Config Config
}

// Dial satisfies registry.Dialer.
func (m Manager) Dial(host string, port uint64, publicKey [32]byte) error {
	_, err := DialOutbound(m.Config, host, port, publicKey)
	return err
}
