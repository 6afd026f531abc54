package node

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"testing"
	"time"

	jc "github.com/juju/testing/checkers"
	. "gopkg.in/check.v1"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/common"
	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/testutil/fakenode"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

func Test(t *testing.T) { TestingT(t) }

type ConnSuite struct {
	fake *fakenode.Server
	conn *Conn
	key  ed25519.PrivateKey
}

var _ = Suite(&ConnSuite{})

const waitTimeout = 3 * time.Second

func (s *ConnSuite) SetUpTest(c *C) {
	s.fake = fakenode.New()
	s.fake.SetInterval(time.Millisecond)
	conn, err := Dial(context.Background(), s.fake.URL(), nil)
	c.Assert(err, jc.ErrorIsNil)
	s.conn = conn
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 1
	s.key = ed25519.NewKeyFromSeed(seed)
}

func (s *ConnSuite) TearDownTest(c *C) {
	c.Assert(s.conn.Close(), jc.ErrorIsNil)
	s.fake.Close()
}

func (s *ConnSuite) signer() types.Hash {
	return types.BytesToHash(s.key.Public().(ed25519.PublicKey))
}

func (s *ConnSuite) extrinsic(c *C, nonce uint64, op types.Opcode) string {
	contract := types.BytesToHash([]byte{0xc0, 0x17})
	req, err := types.NewTransactionRequest(contract, 10, 5, op)
	c.Assert(err, jc.ErrorIsNil)
	call := codec.NewExecuteCall(fakenode.DefaultCallIndex, req).Encode()
	extra := codec.SignedExtra{
		Nonce:              nonce,
		SpecVersion:        fakenode.SpecVersion,
		TransactionVersion: fakenode.TransactionVersion,
		GenesisHash:        fakenode.Genesis,
	}
	sig := ed25519.Sign(s.key, codec.PayloadToSign(codec.SigningPayload(call, extra)))
	ext, err := codec.EncodeSignedExtrinsic(s.signer(), sig, call, extra)
	c.Assert(err, jc.ErrorIsNil)
	return common.ToHex(ext)
}

func next(c *C, sub *Subscription) (ExtrinsicStatus, bool) {
	select {
	case u, ok := <-sub.Updates():
		return u, ok
	case <-time.After(waitTimeout):
		c.Fatal("timeout waiting for update")
	}
	return ExtrinsicStatus{}, false
}

func eventually(c *C, cond func() bool) {
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (s *ConnSuite) TestHandshake(c *C) {
	c.Assert(s.conn.State(), Equals, Connected)
	c.Assert(s.conn.IsConnected(), jc.IsTrue)
	c.Assert(s.conn.Genesis(), Equals, fakenode.Genesis)
}

func (s *ConnSuite) TestCalls(c *C) {
	ctx := context.Background()
	rv, err := s.conn.RuntimeVersion(ctx)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(rv.SpecVersion, Equals, uint32(fakenode.SpecVersion))
	c.Assert(rv.TransactionVersion, Equals, uint32(fakenode.TransactionVersion))

	_, err = s.conn.BlockHash(ctx, 99)
	c.Assert(err, NotNil)

	value, err := s.conn.GetStorage(ctx, []byte{0xde, 0xad})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(value, IsNil)

	err = s.conn.Call(ctx, nil, "no_suchMethod")
	var rpcErr *RPCError
	c.Assert(errors.As(err, &rpcErr), jc.IsTrue)
	c.Assert(rpcErr.Code, Equals, -32601)
}

func (s *ConnSuite) TestSubmitAndWatchOrdered(c *C) {
	sub, err := s.conn.SubmitAndWatch(context.Background(), s.extrinsic(c, 0, types.OpAdd))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(sub.ID(), Not(Equals), "")

	var kinds []string
	for len(kinds) < 3 {
		u, ok := next(c, sub)
		c.Assert(ok, jc.IsTrue)
		kinds = append(kinds, u.Kind)
	}
	c.Assert(kinds, jc.DeepEquals, []string{ExtrinsicReady, ExtrinsicInBlock, ExtrinsicFinalized})

	sub.Unsubscribe()
	_, ok := <-sub.Updates()
	c.Assert(ok, jc.IsFalse)
	c.Assert(sub.Err(), jc.ErrorIsNil)

	value, found := s.fake.Result(types.BytesToHash([]byte{0xc0, 0x17}), s.signer())
	c.Assert(found, jc.IsTrue)
	c.Assert(value, Equals, int64(15))
}

func (s *ConnSuite) TestSubmitRejected(c *C) {
	// stale nonce
	_, err := s.conn.SubmitAndWatch(context.Background(), s.extrinsic(c, 5, types.OpAdd))
	var rpcErr *RPCError
	c.Assert(errors.As(err, &rpcErr), jc.IsTrue)
	c.Assert(rpcErr.Code, Equals, 1010)
	c.Assert(s.fake.Submitted(), Equals, 0)
}

func (s *ConnSuite) TestUnsubscribeStopsDelivery(c *C) {
	s.fake.Hold()
	defer s.fake.Release()

	sub, err := s.conn.SubmitAndWatch(context.Background(), s.extrinsic(c, 0, types.OpMultiply))
	c.Assert(err, jc.ErrorIsNil)
	u, ok := next(c, sub)
	c.Assert(ok, jc.IsTrue)
	c.Assert(u.Kind, Equals, ExtrinsicReady)

	sub.Unsubscribe()
	sub.Unsubscribe()
	s.fake.Release()

	select {
	case u, ok := <-sub.Updates():
		c.Assert(ok, jc.IsFalse, Commentf("unexpected update %v", u))
	case <-time.After(waitTimeout):
		c.Fatal("updates channel not closed")
	}
	eventually(c, func() bool { return s.fake.Unwatched(sub.ID()) })
}

func (s *ConnSuite) TestUnsubscribeAfterFinalized(c *C) {
	s.fake.SetTrailing(5)

	sub, err := s.conn.SubmitAndWatch(context.Background(), s.extrinsic(c, 0, types.OpAdd))
	c.Assert(err, jc.ErrorIsNil)
	for {
		u, ok := next(c, sub)
		c.Assert(ok, jc.IsTrue)
		if u.Kind == ExtrinsicFinalized {
			break
		}
	}

	sub.Unsubscribe()
	eventually(c, func() bool { return s.fake.TrailingSent() == 5 })

	// the trailing notifications reach the connection but not the subscriber
	_, err = s.conn.RuntimeVersion(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	select {
	case u, ok := <-sub.Updates():
		c.Assert(ok, jc.IsFalse, Commentf("unexpected update %v", u))
	case <-time.After(waitTimeout):
		c.Fatal("updates channel not closed")
	}
	c.Assert(sub.Err(), jc.ErrorIsNil)
}

func (s *ConnSuite) TestSlowConsumerOverflow(c *C) {
	s.fake.SetFlood(DefaultMaxQueuedUpdates * 3)
	sub, err := s.conn.SubmitAndWatch(context.Background(), s.extrinsic(c, 0, types.OpAdd))
	c.Assert(err, jc.ErrorIsNil)

	eventually(c, func() bool { return sub.Err() != nil })
	c.Assert(sub.Err(), Equals, ErrSubscriptionOverflow)
	for range sub.Updates() {
	}

	// the reader was never blocked, the connection keeps serving calls
	_, err = s.conn.RuntimeVersion(context.Background())
	c.Assert(err, jc.ErrorIsNil)
}

func (s *ConnSuite) TestCloseTerminates(c *C) {
	s.fake.Hold()
	defer s.fake.Release()

	sub, err := s.conn.SubmitAndWatch(context.Background(), s.extrinsic(c, 0, types.OpAdd))
	c.Assert(err, jc.ErrorIsNil)
	_, ok := next(c, sub)
	c.Assert(ok, jc.IsTrue)

	c.Assert(s.conn.Close(), jc.ErrorIsNil)
	c.Assert(s.conn.Close(), jc.ErrorIsNil)
	c.Assert(s.conn.State(), Equals, Disconnected)

	for range sub.Updates() {
	}
	c.Assert(sub.Err(), Equals, ErrConnectionClosed)

	err = s.conn.Call(context.Background(), nil, "state_getRuntimeVersion")
	c.Assert(err, Equals, ErrConnectionClosed)
}

func (s *ConnSuite) TestNodeDropsConnection(c *C) {
	s.fake.DropClients()
	eventually(c, func() bool { return s.conn.State() == Disconnected })
	_, err := s.conn.RuntimeVersion(context.Background())
	c.Assert(err, Equals, ErrConnectionClosed)
}

func (s *ConnSuite) TestCallContextCancel(c *C) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.conn.Call(ctx, nil, "state_getRuntimeVersion")
	c.Assert(err, Equals, context.Canceled)
}

type DialSuite struct{}

var _ = Suite(&DialSuite{})

func (s *DialSuite) TestInvalidEndpoint(c *C) {
	for _, endpoint := range []string{"not a url ::", "http://127.0.0.1:1/socket", "ws://127.0.0.1:1/socket"} {
		conn, err := Dial(context.Background(), endpoint, &Options{HandshakeTimeout: time.Second})
		var connErr *ConnectionError
		c.Assert(errors.As(err, &connErr), jc.IsTrue, Commentf(endpoint))
		c.Assert(connErr.Endpoint, Equals, endpoint)
		c.Assert(conn.State(), Equals, Failed)
		c.Assert(conn.IsConnected(), jc.IsFalse)
		c.Assert(conn.Close(), jc.ErrorIsNil)
	}
}

func (s *DialSuite) TestNilConn(c *C) {
	var conn *Conn
	c.Assert(conn.Close(), jc.ErrorIsNil)
	c.Assert(conn.State(), Equals, Disconnected)
	_, err := conn.SubmitAndWatch(context.Background(), "0x00")
	c.Assert(err, Equals, ErrNotConnected)
}

type StatusSuite struct{}

var _ = Suite(&StatusSuite{})

func (s *StatusSuite) TestParseAndMap(c *C) {
	block := types.BytesToHash([]byte{0xbb})
	cases := []struct {
		raw  string
		want types.TransactionStatus
		ok   bool
	}{
		{`"future"`, types.Submitted, true},
		{`"ready"`, types.Submitted, true},
		{`{"broadcast":["peer1"]}`, types.Submitted, true},
		{`{"inBlock":"` + block.String() + `"}`, types.InBlock(block), true},
		{`{"retracted":"` + block.String() + `"}`, types.TransactionStatus{}, false},
		{`{"finalized":"` + block.String() + `"}`, types.Finalized(block), true},
		{`"dropped"`, types.Failed("transaction dropped"), true},
		{`"invalid"`, types.Failed("transaction invalid"), true},
	}
	for _, tc := range cases {
		var st ExtrinsicStatus
		c.Assert(json.Unmarshal([]byte(tc.raw), &st), jc.ErrorIsNil, Commentf(tc.raw))
		got, ok := st.TransactionStatus()
		c.Assert(ok, Equals, tc.ok, Commentf(tc.raw))
		c.Assert(got, Equals, tc.want, Commentf(tc.raw))

		data, err := json.Marshal(st)
		c.Assert(err, jc.ErrorIsNil)
		var back ExtrinsicStatus
		c.Assert(json.Unmarshal(data, &back), jc.ErrorIsNil)
		c.Assert(back, jc.DeepEquals, st)
	}

	var st ExtrinsicStatus
	c.Assert(json.Unmarshal([]byte(`{"a":"x","b":"y"}`), &st), NotNil)
	c.Assert(json.Unmarshal([]byte(`{"inBlock":"0x12"}`), &st), NotNil)
}

func (s *StatusSuite) TestSubscriptionID(c *C) {
	c.Assert(subscriptionID(json.RawMessage(`"abc"`)), Equals, "abc")
	c.Assert(subscriptionID(json.RawMessage(`42`)), Equals, "42")
}
