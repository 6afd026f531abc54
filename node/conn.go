// Package node is a websocket JSON-RPC client for a Substrate style ledger node.
package node

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/metrics"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to connect to server.
	dialTimeout = 5 * time.Second

	// DefaultMaxQueuedUpdates per subscription before it is terminated
	DefaultMaxQueuedUpdates = 64
)

// State connection state
type State int32

// connection states
const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Options dial options
type Options struct {
	Header           http.Header
	HandshakeTimeout time.Duration
	MaxQueuedUpdates int
}

func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = dialTimeout
	}
	if opts.MaxQueuedUpdates <= 0 {
		opts.MaxQueuedUpdates = DefaultMaxQueuedUpdates
	}
	return opts
}

// Conn is a live session with one node endpoint.
// To close the connection, use Close().
type Conn struct {
	endpoint string
	opts     Options
	ws       *websocket.Conn
	state    int32

	outgoing chan *call
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once

	subsLock sync.Mutex
	subs     map[string]*Subscription

	genesis types.Hash
}

// Dial opens a websocket to endpoint and performs the handshake, which
// fetches the genesis hash. There is no automatic retry. On failure the
// returned Conn is in state Failed and the error is a *ConnectionError.
func Dial(ctx context.Context, endpoint string, opts *Options) (*Conn, error) {
	c := &Conn{
		endpoint: endpoint,
		opts:     opts.withDefaults(),
		state:    int32(Connecting),
		outgoing: make(chan *call),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		subs:     make(map[string]*Subscription),
	}
	log.Info("connecting to node", "endpoint", endpoint)

	u, err := url.Parse(endpoint)
	if err == nil && u.Scheme != "ws" && u.Scheme != "wss" {
		err = errors.New("endpoint scheme must be ws or wss")
	}
	if err != nil {
		c.setState(Failed)
		return c, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, u.String(), c.opts.Header)
	if err != nil {
		c.setState(Failed)
		return c, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	c.ws = ws
	go c.run()

	if c.genesis, err = c.BlockHash(ctx, 0); err != nil {
		c.shutdown()
		c.setState(Failed)
		return c, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	c.setState(Connected)
	log.Info("node connected", "endpoint", endpoint, "genesis", c.genesis)
	return c, nil
}

// Endpoint the dialed url
func (c *Conn) Endpoint() string {
	return c.endpoint
}

// State current connection state
func (c *Conn) State() State {
	if c == nil {
		return Disconnected
	}
	return State(atomic.LoadInt32(&c.state))
}

// IsConnected state is Connected
func (c *Conn) IsConnected() bool {
	return c.State() == Connected
}

// Genesis hash fetched during the handshake
func (c *Conn) Genesis() types.Hash {
	return c.genesis
}

func (c *Conn) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// Close shuts down the session and blocks until all internal goroutines
// have been cleaned up. Any calls pending a response return
// ErrConnectionClosed and every live subscription is terminated.
// Closing a closed or never opened connection is a no-op.
func (c *Conn) Close() error {
	if c == nil || c.ws == nil {
		return nil
	}
	c.shutdown()
	if c.State() != Failed {
		c.setState(Disconnected)
	}
	return nil
}

func (c *Conn) shutdown() {
	c.once.Do(func() { close(c.quit) })
	<-c.done
}

// Call sends one request and waits for its response, which is decoded
// into result unless result is nil
func (c *Conn) Call(ctx context.Context, result interface{}, method string, params ...interface{}) error {
	cl := newCall(method, params)
	raw, err := c.roundTrip(ctx, cl)
	metrics.ObserveNodeCall(method, err)
	if err != nil {
		return err
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, result)
}

func (c *Conn) roundTrip(ctx context.Context, cl *call) (json.RawMessage, error) {
	if c == nil || c.ws == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case c.outgoing <- cl:
	case <-c.done:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case <-cl.ready:
		return cl.result, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run spawns the read/write pumps and then runs until Close() is called
// or the socket fails.
func (c *Conn) run() {
	outbound := make(chan interface{})
	inbound := make(chan []byte)
	writerDone := make(chan struct{})
	pending := make(map[uint64]*call)

	defer func() {
		close(outbound) // Shuts down the writePump
		if c.State() == Connected {
			c.setState(Disconnected)
		}

		// Cancel all pending calls with an error
		for _, cl := range pending {
			cl.fail(ErrConnectionClosed)
		}
		c.terminateSubscriptions(ErrConnectionClosed)

		// Drain the inbound channel and block until it is closed,
		// indicating that the readPump has returned.
		for range inbound {
		}
		close(c.done)
	}()

	go func() {
		defer close(writerDone)
		defer c.ws.Close()
		c.writePump(outbound)
	}()
	go func() {
		defer close(inbound)
		c.readPump(inbound)
	}()

	for {
		select {
		case <-c.quit:
			return

		case cl := <-c.outgoing:
			select {
			case outbound <- cl.req:
				pending[cl.req.ID] = cl
			case <-writerDone:
				cl.fail(ErrConnectionClosed)
				return
			}

		case in, ok := <-inbound:
			if !ok {
				log.Warn("connection closed by node", "endpoint", c.endpoint)
				return
			}
			var msg message
			if err := json.Unmarshal(in, &msg); err != nil {
				log.Warn("invalid message from node", "err", err)
				continue
			}
			if msg.ID == nil {
				c.dispatch(&msg)
				continue
			}
			cl, exist := pending[*msg.ID]
			if !exist {
				log.Warn("unexpected response", "id", *msg.ID)
				continue
			}
			delete(pending, *msg.ID)
			if msg.Error != nil {
				cl.fail(msg.Error)
				continue
			}
			if cl.sub != nil {
				c.register(cl.sub, msg.Result)
			}
			cl.done(msg.Result, nil)
		}
	}
}

// readPump reads from the websocket and sends to inbound channel.
// Expects to receive PONGs at specified interval, or logs an error and returns.
func (c *Conn) readPump(inbound chan<- []byte) {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Debug("node read stopped", "err", err)
			}
			return
		}
		log.Trace("node recv", "msg", string(data))
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		inbound <- data
	}
}

// writePump consumes from the outbound channel and sends them over the
// websocket. Also sends PING messages at the specified interval.
// Returns when outbound channel is closed, or an error is encountered.
func (c *Conn) writePump(outbound <-chan interface{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-outbound:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warn("cannot marshal request", "err", err)
				continue
			}
			log.Trace("node send", "msg", string(data))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("node write failed", "err", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("node ping failed", "err", err)
				return
			}
		}
	}
}
