// SPDX-License-Identifier: ISC

package main

import (
	"net"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/coreward/listenerd/peerconn"
)

// acceptRate and acceptBurst cap how fast the accept loop hands new
// sockets off to the handshake goroutine pool, independently of
// peerconn's own per-connection inboundMessageRate limiter — this one
// guards against an accept flood before a peerconn.Connection even
// exists.
const acceptRate = 50
const acceptBurst = 100

// runtimeArgs is shared by every background.Process launched from main.
type runtimeArgs struct {
	listener net.Listener
	config   peerconn.Config
	log      *logger.L
}

// deferredDialer breaks the construction cycle between a PeerRegistry
// (which needs a Dialer up front) and a peerconn.Manager (which needs
// to be built from a Config that already names that same Registry).
type deferredDialer struct {
	manager peerconn.Manager
}

func (d *deferredDialer) Dial(host string, port uint64, publicKey [32]byte) error {
	return d.manager.Dial(host, port, publicKey)
}

// acceptLoop is a background.Process: it accepts inbound TCP
// connections and hands each to peerconn.AcceptInbound in its own
// goroutine, satisfying the one-task-per-connection scheduling model
// (§5). Closing args.listener from the shutdown side unblocks Accept.
func acceptLoop(args interface{}, shutdown <-chan bool, done chan<- bool) {
	a := args.(*runtimeArgs)
	defer close(done)

	go func() {
		<-shutdown
		a.listener.Close()
	}()

	limiter := rate.NewLimiter(acceptRate, acceptBurst)

	for {
		conn, err := a.listener.Accept()
		if nil != err {
			select {
			case <-shutdown:
				return
			default:
				a.log.Errorf("accept error: %s", err)
				return
			}
		}
		if !limiter.Allow() {
			a.log.Warnf("accept rate exceeded, dropping connection from %s", conn.RemoteAddr())
			conn.Close()
			continue
		}
		go func() {
			if _, err := peerconn.AcceptInbound(a.config, conn); nil != err {
				a.log.Errorf("inbound handshake failed from %s: %s", conn.RemoteAddr(), err)
			}
		}()
	}
}
