// SPDX-License-Identifier: ISC

package peerconn_test

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/coreward/listenerd/handshake"
	"github.com/coreward/listenerd/identity"
	"github.com/coreward/listenerd/peerconn"
	"github.com/coreward/listenerd/registry"
)

func TestOutboundDialPingRegisters(t *testing.T) {
	listenerKey, err := identity.Generate()
	if nil != err {
		t.Fatalf("generate listener key: %s", err)
	}
	dialerKey, err := identity.Generate()
	if nil != err {
		t.Fatalf("generate dialer key: %s", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if nil != err {
		t.Fatalf("listen: %s", err)
	}
	defer listener.Close()

	listenerRegistry := registry.New(listenerKey.PublicKey, nil)
	listenerConfig := peerconn.Config{
		Local:       listenerKey,
		GenesisHash: handshake.Testnet,
		ListenPort:  0,
		Registry:    listenerRegistry,
	}

	accepted := make(chan *peerconn.Connection, 1)
	go func() {
		conn, err := listener.Accept()
		if nil != err {
			return
		}
		c, err := peerconn.AcceptInbound(listenerConfig, conn)
		if nil != err {
			return
		}
		accepted <- c
	}()

	dialerRegistry := registry.New(dialerKey.PublicKey, nil)
	dialerConfig := peerconn.Config{
		Local:       dialerKey,
		GenesisHash: handshake.Testnet,
		ListenPort:  3015,
		Registry:    dialerRegistry,
	}

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	if nil != err {
		t.Fatalf("split host port: %s", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 64)
	if nil != err {
		t.Fatalf("parse port: %s", err)
	}

	outbound, err := peerconn.DialOutbound(dialerConfig, host, port, listenerKey.PublicKey)
	if nil != err {
		t.Fatalf("dial error: %s", err)
	}
	defer outbound.Close()

	select {
	case inbound := <-accepted:
		defer inbound.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound accept")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if listenerRegistry.HavePeer(dialerKey.PublicKey) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !listenerRegistry.HavePeer(dialerKey.PublicKey) {
		t.Error("expected listener registry to contain dialer's public key after ping exchange")
	}

	var found bool
	for _, p := range listenerRegistry.Peers() {
		if p.PublicKey == dialerKey.PublicKey {
			found = true
			if "" == p.Host {
				t.Error("expected dialer's registry entry to carry its remote host, got empty string")
			}
		}
	}
	if !found {
		t.Fatal("dialer's public key missing from listener registry snapshot")
	}
}

type stubDialer struct {
	mutex  sync.Mutex
	dialed []string
}

func (d *stubDialer) Dial(host string, port uint64, publicKey [32]byte) error {
	d.mutex.Lock()
	d.dialed = append(d.dialed, host)
	d.mutex.Unlock()
	return nil
}

func (d *stubDialer) dialedHosts() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]string(nil), d.dialed...)
}

// TestSharePeersReportsRegistryContents exercises localPing's Peers
// field end to end: the listener's registry already knows one peer
// before the dialer connects, and that peer's address must arrive in
// the ping response and drive a TryConnect on the dialer's side.
func TestSharePeersReportsRegistryContents(t *testing.T) {
	selfKey, err := identity.Generate()
	if nil != err {
		t.Fatalf("generate key: %s", err)
	}

	reg := registry.New(selfKey.PublicKey, nil)
	var known [32]byte
	known[0] = 9
	reg.AddPeer(known, "10.0.0.9", 3015)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if nil != err {
		t.Fatalf("listen: %s", err)
	}
	defer listener.Close()

	cfg := peerconn.Config{
		Local:       selfKey,
		GenesisHash: handshake.Testnet,
		ListenPort:  0,
		Registry:    reg,
	}

	accepted := make(chan *peerconn.Connection, 1)
	go func() {
		conn, err := listener.Accept()
		if nil != err {
			return
		}
		c, err := peerconn.AcceptInbound(cfg, conn)
		if nil != err {
			return
		}
		accepted <- c
	}()

	peerKey, err := identity.Generate()
	if nil != err {
		t.Fatalf("generate peer key: %s", err)
	}

	dialer := &stubDialer{}
	peerConfig := peerconn.Config{
		Local:       peerKey,
		GenesisHash: handshake.Testnet,
		ListenPort:  3016,
		Registry:    registry.New(peerKey.PublicKey, dialer),
	}

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	if nil != err {
		t.Fatalf("split host port: %s", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 64)
	if nil != err {
		t.Fatalf("parse port: %s", err)
	}

	outbound, err := peerconn.DialOutbound(peerConfig, host, port, selfKey.PublicKey)
	if nil != err {
		t.Fatalf("dial error: %s", err)
	}
	defer outbound.Close()

	select {
	case inbound := <-accepted:
		defer inbound.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound accept")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if 0 != len(dialer.dialedHosts()) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	hosts := dialer.dialedHosts()
	if 1 != len(hosts) || "10.0.0.9" != hosts[0] {
		t.Errorf("expected a dial to the gossiped peer 10.0.0.9, got %v", hosts)
	}
}
