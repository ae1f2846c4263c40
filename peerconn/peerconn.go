// SPDX-License-Identifier: ISC

package peerconn

import (
	"fmt"
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/coreward/listenerd/blockcodec"
	"github.com/coreward/listenerd/fault"
	"github.com/coreward/listenerd/framing"
	"github.com/coreward/listenerd/handshake"
	"github.com/coreward/listenerd/identity"
	"github.com/coreward/listenerd/messagebus"
	"github.com/coreward/listenerd/registry"
	"github.com/coreward/listenerd/wire"
)

// pendingBlocksSize bounds the LRU of in-flight get_block_txs requests
// per connection, so a peer that keeps announcing micro blocks faster
// than it answers block_txs cannot grow the pending map without limit.
const pendingBlocksSize = 256

// inboundMessageRate and inboundMessageBurst cap how fast one
// connection's dispatch loop accepts messages from its peer, ahead of
// any inner decode cost (§5 concurrency model assumes a well-behaved
// peer; this backstops a misbehaving one).
const inboundMessageRate = 200
const inboundMessageBurst = 400

// Topic names used to publish decoded chain objects onto their buses.
const (
	TopicKeyBlock = "key_block"
	TopicTxs      = "txs"
)

// FirstPingTimeout is the deadline for an inbound connection to
// complete a ping exchange before it is closed (§4.4).
const FirstPingTimeout = 30 * time.Second

// ProtocolVersion is the fixed handshake ping version this listener
// speaks.
const ProtocolVersion = uint64(1)

// Config carries everything a Connection needs beyond its socket:
// local identity, network selection, and the two consumer hooks.
type Config struct {
	Local       *identity.KeyPair
	GenesisHash [32]byte
	ListenPort  uint64
	Registry    *registry.PeerRegistry
	KeyBlocks   *messagebus.Bus
	Txs         *messagebus.Bus
	Log         *logger.L
}

// Connection is one peer socket's state machine (§4.4).
type Connection struct {
	config        Config
	mutex         sync.Mutex
	state         State
	session       *handshake.Session
	reassembler   *framing.Reassembler
	remote        [32]byte
	host          string
	initiator     bool
	pending       map[wire.MsgType][]chan wire.P2PResponse
	pendingLock   sync.Mutex
	pendingBlocks *lru.Cache
	limiter       *rate.Limiter
	closeOnce     sync.Once
	closed        chan struct{}
}

// DialOutbound opens an outbound session to a peer whose static key is
// known a priori, performs the initiator side of the handshake, sends
// the local ping immediately on success, and starts the dispatch loop
// in a new goroutine.
func DialOutbound(cfg Config, host string, port uint64, remotePubKey [32]byte) (*Connection, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), handshake.Timeout)
	if nil != err {
		return nil, err
	}

	c := newConnection(cfg, true)
	c.host = host
	c.setState(Handshaking)

	session, err := handshake.DialInitiator(conn, handshake.StaticKeypair(cfg.Local), remotePubKey, ProtocolVersion, cfg.GenesisHash)
	if nil != err {
		conn.Close()
		c.setState(Closed)
		return nil, err
	}

	c.session = session
	c.remote = session.RemoteStatic
	c.setState(Connected)

	go c.serve()

	if err := c.sendPing(); nil != err {
		c.Close()
		return nil, err
	}

	return c, nil
}

// AcceptInbound wraps an already-accepted TCP connection, performs the
// responder side of the handshake, arms the first-ping gate, and starts
// the dispatch loop.
func AcceptInbound(cfg Config, conn net.Conn) (*Connection, error) {
	c := newConnection(cfg, false)
	c.host = remoteHost(conn)
	c.setState(Handshaking)

	session, err := handshake.AcceptResponder(conn, handshake.StaticKeypair(cfg.Local), ProtocolVersion, cfg.GenesisHash)
	if nil != err {
		conn.Close()
		c.setState(Closed)
		return nil, err
	}

	c.session = session
	c.remote = session.RemoteStatic
	c.setState(Connected)

	go c.serve()
	go c.armFirstPingGate()

	return c, nil
}

// remoteHost extracts the bare IP from an inbound connection's remote
// address, dropping the ephemeral client port that has no meaning as a
// dial-back target.
func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if nil != err {
		return conn.RemoteAddr().String()
	}
	return host
}

func newConnection(cfg Config, initiator bool) *Connection {
	pendingBlocks, _ := lru.New(pendingBlocksSize) // only errors on size <= 0
	initialState := Accepting
	if initiator {
		initialState = Dialing
	}
	return &Connection{
		config:        cfg,
		state:         initialState,
		reassembler:   framing.NewReassembler(),
		initiator:     initiator,
		pending:       make(map[wire.MsgType][]chan wire.P2PResponse),
		pendingBlocks: pendingBlocks,
		limiter:       rate.NewLimiter(inboundMessageRate, inboundMessageBurst),
		closed:        make(chan struct{}),
	}
}

func (c *Connection) setState(s State) {
	c.mutex.Lock()
	c.state = s
	c.mutex.Unlock()
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// RemotePublicKey returns the peer's static key, valid once Connected.
func (c *Connection) RemotePublicKey() [32]byte {
	return c.remote
}

func (c *Connection) armFirstPingGate() {
	select {
	case <-time.After(FirstPingTimeout):
	case <-c.closed:
		return
	}
	if !c.config.Registry.HavePeer(c.remote) {
		c.logf("first-ping timeout, closing")
		c.Close()
	}
}

// serve is the per-connection read loop: one goroutine owns the socket
// from here on, satisfying the one-task-per-connection scheduling
// model (§5).
func (c *Connection) serve() {
	defer c.Close()
	for {
		datagram, err := c.session.ReadDatagram()
		if nil != err {
			c.logf("read error: %s", err)
			return
		}

		message, complete, err := c.reassembler.Feed(datagram)
		if nil != err {
			c.logf("framing error: %s", err)
			return
		}
		if !complete {
			continue
		}

		if !c.limiter.Allow() {
			c.logf("inbound rate exceeded, dropping message")
			continue
		}

		envelope, err := wire.DecodeEnvelope(message)
		if nil != err {
			c.logf("envelope decode error: %s", err)
			return
		}

		if err := c.dispatch(envelope); nil != err {
			c.logf("dispatch error: %s", err)
			return
		}
	}
}

func (c *Connection) dispatch(e wire.Envelope) error {
	if e.Type.IsDropped() {
		return nil
	}

	switch e.Type {
	case wire.MsgPing:
		p, err := wire.DecodePing(e.Payload)
		if nil != err {
			return err
		}
		go c.handlePing(p)

	case wire.MsgP2PResponse:
		r, err := wire.DecodeP2PResponse(e.Payload)
		if nil != err {
			return err
		}
		c.handleP2PResponse(r)

	case wire.MsgKeyBlock:
		kb, err := blockcodec.DecodeKeyBlock(e.Payload)
		if nil != err {
			return err
		}
		if nil != c.config.KeyBlocks {
			c.config.KeyBlocks.Send(TopicKeyBlock, kb)
		}

	case wire.MsgMicroBlock:
		mb, err := blockcodec.DecodeMicroBlock(e.Payload)
		if nil != err {
			return err
		}
		go c.handleMicroBlock(mb)

	case wire.MsgGetBlockTxs, wire.MsgBlockTxs:
		// This observer never serves blocks to others; get_block_txs
		// requests from a peer and stray block_txs outside a pending
		// correlation are logged and dropped.
		c.logf("ignoring inbound %v, observer does not serve blocks", e.Type)

	default:
		c.logf("unknown message type %d", e.Type)
	}

	return nil
}

func (c *Connection) handlePing(p wire.Ping) {
	c.config.Registry.AddPeer(c.remote, c.host, p.Port)

	if p.GenesisHash != c.config.GenesisHash {
		c.logf("%s", fault.ErrWrongNetwork)
	} else {
		for _, addr := range p.Peers {
			if !c.config.Registry.HavePeer(addr.PublicKey) {
				if err := c.config.Registry.TryConnect(addr); nil != err {
					c.logf("try_connect failed for %s: %s", addr.Host, err)
				}
			}
		}
	}

	response := wire.P2PResponse{
		Version:   ProtocolVersion,
		Result:    true,
		InnerType: wire.MsgPing,
		Object:    c.localPing().Encode(),
	}
	if err := c.send(wire.MsgP2PResponse, response.Encode()); nil != err {
		c.logf("failed to send ping response: %s", err)
	}
}

func (c *Connection) handleP2PResponse(r wire.P2PResponse) {
	if delivered := c.resolvePending(r.InnerType, r); delivered {
		return
	}

	if !r.Result {
		c.logf("p2p_response error for %v: %s", r.InnerType, r.Reason)
		return
	}

	switch r.InnerType {
	case wire.MsgPing:
		p, err := wire.DecodePing(r.Object)
		if nil != err {
			c.logf("could not decode enclosed ping: %s", err)
			return
		}
		for _, addr := range p.Peers {
			if !c.config.Registry.HavePeer(addr.PublicKey) {
				if err := c.config.Registry.TryConnect(addr); nil != err {
					c.logf("try_connect failed for %s: %s", addr.Host, err)
				}
			}
		}

	default:
		// no outstanding caller claimed this response; positional
		// correlation requires tolerating and dropping it.
		c.logf("dropping uncorrelated p2p_response for %v", r.InnerType)
	}
}

// handleMicroBlock decodes a micro block, then immediately requests its
// transactions, correlating the eventual p2p_response(inner_type =
// block_txs) back to this request through the pending map.
func (c *Connection) handleMicroBlock(mb *blockcodec.MicroBlock) {
	hash := mb.Hash()

	if c.pendingBlocks.Contains(hash) {
		// a get_block_txs for this hash is already outstanding; a
		// repeated micro_block announcement before the peer answers
		// must not grow the pending map further.
		return
	}
	c.pendingBlocks.Add(hash, struct{}{})

	request := wire.GetBlockTxs{
		Version:    wire.GetBlockTxsVersion,
		HeaderHash: hash[:],
		TxHashes:   mb.TxHashes,
	}

	pending := c.registerPending(wire.MsgBlockTxs)
	if err := c.send(wire.MsgGetBlockTxs, request.Encode()); nil != err {
		c.logf("failed to send get_block_txs: %s", err)
		c.pendingBlocks.Remove(hash)
		return
	}
	go c.awaitBlockTxs(hash, pending)
}

func (c *Connection) awaitBlockTxs(hash [32]byte, pending chan wire.P2PResponse) {
	defer c.pendingBlocks.Remove(hash)
	select {
	case r := <-pending:
		if !r.Result {
			c.logf("get_block_txs failed: %s", r.Reason)
			return
		}
		bt, err := wire.DecodeBlockTxs(r.Object)
		if nil != err {
			c.logf("could not decode block_txs: %s", err)
			return
		}
		if nil != c.config.Txs {
			c.config.Txs.Send(TopicTxs, bt.Txs)
		}
	case <-c.closed:
	}
}

func (c *Connection) localPing() wire.Ping {
	return wire.Ping{
		Version:     ProtocolVersion,
		Port:        c.config.ListenPort,
		Share:       wire.ShareCount,
		GenesisHash: c.config.GenesisHash,
		Difficulty:  0,
		BestHash:    c.config.GenesisHash,
		SyncAllowed: wire.SyncAllowed,
		Peers:       c.sharePeers(),
	}
}

// sharePeers snapshots the registry's known peers for gossip, capped at
// wire.ShareCount per the protocol's advisory limit.
func (c *Connection) sharePeers() []wire.PeerAddr {
	known := c.config.Registry.Peers()
	n := len(known)
	if n > wire.ShareCount {
		n = wire.ShareCount
	}
	out := make([]wire.PeerAddr, n)
	for i := 0; i < n; i++ {
		out[i] = wire.PeerAddr{
			PublicKey: known[i].PublicKey,
			Host:      known[i].Host,
			Port:      known[i].Port,
		}
	}
	return out
}

// sendPing transmits the local ping payload immediately, as required
// of the initiator path on entering Connected.
func (c *Connection) sendPing() error {
	return c.send(wire.MsgPing, c.localPing().Encode())
}

// send serializes one envelope through Framing onto the Noise session;
// only one send may be in flight per connection at a time (§4.4).
func (c *Connection) send(msgType wire.MsgType, payload []byte) error {
	envelope := wire.Envelope{Type: msgType, Payload: payload}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if Closed == c.state {
		return fault.ErrAlreadyConnected
	}
	return framing.SendMessage(c.session, envelope.Encode())
}

// registerPending records a waiting caller for the next p2p_response
// whose inner_type matches. FIFO per inner_type, per the design notes'
// positional correlation.
func (c *Connection) registerPending(innerType wire.MsgType) chan wire.P2PResponse {
	ch := make(chan wire.P2PResponse, 1)
	c.pendingLock.Lock()
	c.pending[innerType] = append(c.pending[innerType], ch)
	c.pendingLock.Unlock()
	return ch
}

func (c *Connection) resolvePending(innerType wire.MsgType, r wire.P2PResponse) bool {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()
	queue := c.pending[innerType]
	if 0 == len(queue) {
		return false
	}
	ch := queue[0]
	c.pending[innerType] = queue[1:]
	ch <- r
	return true
}

// Close tears down the socket, deletes the registry entry, and cancels
// outstanding timers in a single shutdown pass (§5).
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.setState(Closed)
		if nil != c.session {
			c.session.Close()
		}
		c.config.Registry.RemovePeer(c.remote)
	})
}

func (c *Connection) logf(format string, args ...interface{}) {
	if nil == c.config.Log {
		return
	}
	c.config.Log.Infof(format, args...)
}
