package node

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
)

// Subscription delivers the status updates of one watched extrinsic in
// arrival order. Updates are queued without blocking the socket reader
// and handed to the consumer one by one through Updates().
type Subscription struct {
	conn        *Conn
	unsubMethod string
	maxQueued   int

	mu     sync.Mutex
	id     string
	queue  []ExtrinsicStatus
	err    error
	closed bool

	signal   chan struct{}
	quit     chan struct{}
	pumpDone chan struct{}
	updates  chan ExtrinsicStatus
	once     sync.Once
}

func newSubscription(conn *Conn, unsubMethod string) *Subscription {
	s := &Subscription{
		conn:        conn,
		unsubMethod: unsubMethod,
		maxQueued:   conn.opts.MaxQueuedUpdates,
		signal:      make(chan struct{}, 1),
		quit:        make(chan struct{}),
		pumpDone:    make(chan struct{}),
		updates:     make(chan ExtrinsicStatus),
	}
	go s.pump()
	return s
}

// ID the node assigned subscription id
func (s *Subscription) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Updates is closed when the subscription ends
func (s *Subscription) Updates() <-chan ExtrinsicStatus {
	return s.updates
}

// Err reports why delivery stopped: nil after Unsubscribe,
// ErrConnectionClosed or ErrSubscriptionOverflow otherwise
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Unsubscribe stops delivery. When it returns Updates() is closed and
// yields no further values. The node is asked to stop watching on a
// best-effort basis. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if !s.terminate(nil) {
		return
	}
	s.conn.forget(s)
	if id := s.ID(); id != "" {
		go s.conn.unwatch(s.unsubMethod, id)
	}
}

// push appends an update; it never blocks
func (s *Subscription) push(update ExtrinsicStatus) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.maxQueued {
		s.mu.Unlock()
		log.Warn("subscription queue overflow", "subscription", s.ID(), "max", s.maxQueued)
		s.conn.forget(s)
		s.terminateAsync(ErrSubscriptionOverflow)
		go s.conn.unwatch(s.unsubMethod, s.ID())
		return
	}
	s.queue = append(s.queue, update)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// terminate stops the pump and waits for it to exit.
// Returns false if the subscription was already terminated.
func (s *Subscription) terminate(err error) bool {
	first := s.stop(err)
	<-s.pumpDone
	return first
}

// terminateAsync is used from the connection run loop, which must not wait
// on a consumer
func (s *Subscription) terminateAsync(err error) {
	s.stop(err)
}

func (s *Subscription) stop(err error) bool {
	first := false
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.err = err
		s.queue = nil
		s.mu.Unlock()
		close(s.quit)
		first = true
	})
	return first
}

func (s *Subscription) pump() {
	defer close(s.pumpDone)
	defer close(s.updates)
	for {
		s.mu.Lock()
		var (
			next ExtrinsicStatus
			have bool
		)
		if len(s.queue) > 0 {
			next, have = s.queue[0], true
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if !have {
			select {
			case <-s.signal:
				continue
			case <-s.quit:
				return
			}
		}
		select {
		case s.updates <- next:
		case <-s.quit:
			return
		}
	}
}

// SubmitAndWatch submits a hex encoded extrinsic and watches its status
func (c *Conn) SubmitAndWatch(ctx context.Context, extrinsicHex string) (*Subscription, error) {
	return c.subscribe(ctx, methodSubmitAndWatch, methodUnwatchExtrinsic, extrinsicHex)
}

func (c *Conn) subscribe(ctx context.Context, method, unsubMethod string, params ...interface{}) (*Subscription, error) {
	if c == nil || c.ws == nil {
		return nil, ErrNotConnected
	}
	cl := newCall(method, params)
	cl.sub = newSubscription(c, unsubMethod)
	_, err := c.roundTrip(ctx, cl)
	if err != nil {
		// the run loop may still register the subscription later
		cl.sub.Unsubscribe()
		return nil, err
	}
	return cl.sub, nil
}

// register is called by the run loop when the subscribe response arrives,
// before the caller is woken, so no notification can be missed
func (c *Conn) register(s *Subscription, result json.RawMessage) {
	id := subscriptionID(result)
	s.mu.Lock()
	s.id = id
	closed := s.closed
	s.mu.Unlock()
	if closed {
		go c.unwatch(s.unsubMethod, id)
		return
	}
	c.subsLock.Lock()
	c.subs[id] = s
	c.subsLock.Unlock()
	log.Debug("subscription registered", "subscription", id)
}

func (c *Conn) forget(s *Subscription) {
	id := s.ID()
	if id == "" {
		return
	}
	c.subsLock.Lock()
	if c.subs[id] == s {
		delete(c.subs, id)
	}
	c.subsLock.Unlock()
}

// dispatch routes a notification to its subscription
func (c *Conn) dispatch(msg *message) {
	var n notification
	if err := json.Unmarshal(msg.Params, &n); err != nil {
		log.Warn("invalid notification", "method", msg.Method, "err", err)
		return
	}
	id := subscriptionID(n.Subscription)
	c.subsLock.Lock()
	s, exist := c.subs[id]
	c.subsLock.Unlock()
	if !exist {
		log.Debug("notification for unknown subscription", "method", msg.Method, "subscription", id)
		return
	}
	var update ExtrinsicStatus
	if err := json.Unmarshal(n.Result, &update); err != nil {
		log.Warn("invalid extrinsic status", "subscription", id, "err", err)
		return
	}
	s.push(update)
}

func (c *Conn) terminateSubscriptions(err error) {
	c.subsLock.Lock()
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.subsLock.Unlock()
	for _, s := range subs {
		s.terminateAsync(err)
	}
}

func (c *Conn) unwatch(method, id string) {
	if c.State() != Connected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := c.Call(ctx, nil, method, id); err != nil {
		log.Debug("unwatch failed", "subscription", id, "err", err)
	}
}
