// Package fakenode is an in-process ledger node for tests. It speaks the
// websocket JSON-RPC subset the client uses, verifies signed execute
// extrinsics, runs the calculation and stores its result.
package fakenode

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/common"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// chain constants served by the fake node
const (
	SpecVersion        = 105
	TransactionVersion = 1
	PalletName         = "QfPolkaVM"
	StorageItem        = "CalculationResult"
	EventsMethod       = "qfPolkaVM_blockEvents"
)

// DefaultCallIndex of qfPolkaVM.execute
var DefaultCallIndex = codec.CallIndex{Pallet: 51, Call: 1}

// Genesis hash of the fake chain
var Genesis = types.BytesToHash([]byte("fakenode genesis"))

// Event decoded event returned by the events method
type Event struct {
	Section string `json:"section"`
	Method  string `json:"method"`
}

// DefaultEvents emitted in every block that includes an execute call
var DefaultEvents = []Event{
	{Section: "balances", Method: "Withdraw"},
	{Section: "qfPolkaVM", Method: "Executed"},
	{Section: "transactionPayment", Method: "TransactionFeePaid"},
	{Section: "system", Method: "ExtrinsicSuccess"},
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Server fake node
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	nonces     map[types.Hash]uint64
	storage    map[string][]byte
	blocks     map[types.Hash][]Event
	unwatched  map[string]bool
	peers      map[*peer]struct{}
	events     []Event
	failStatus string
	flood      int
	trailing   int
	trailSent  int
	hold       chan struct{}
	interval   time.Duration
	submitted  int

	subCounter   uint64
	blockCounter uint64
}

type peer struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (p *peer) write(v interface{}) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.ws.WriteJSON(v)
}

// New starts a fake node
func New() *Server {
	s := &Server{
		nonces:    make(map[types.Hash]uint64),
		storage:   make(map[string][]byte),
		blocks:    make(map[types.Hash][]Event),
		unwatched: make(map[string]bool),
		peers:     make(map[*peer]struct{}),
		events:    DefaultEvents,
		interval:  5 * time.Millisecond,
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveWS))
	return s
}

// URL websocket endpoint
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Close stops the server and drops every client
func (s *Server) Close() {
	s.DropClients()
	s.srv.Close()
}

// DropClients closes every open websocket
func (s *Server) DropClients() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()
	for _, p := range peers {
		_ = p.ws.Close()
	}
}

// SetEvents replaces the events of future blocks
func (s *Server) SetEvents(events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// SetFailStatus makes future submissions end with the given status
// ("invalid", "dropped") after ready
func (s *Server) SetFailStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// SetFlood makes future submissions emit n ready updates and nothing else
func (s *Server) SetFlood(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flood = n
}

// SetTrailing makes future submissions keep emitting n finalized updates
// after the client unwatched them, like a node that ignores the unwatch
func (s *Server) SetTrailing(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trailing = n
}

// TrailingSent number of updates written after an unwatch
func (s *Server) TrailingSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trailSent
}

// Hold pauses future submissions after ready until Release
func (s *Server) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
}

// Release resumes held submissions
func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold != nil {
		close(s.hold)
		s.hold = nil
	}
}

// SetInterval delay between two status updates
func (s *Server) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// SetResult stores a calculation result
func (s *Server) SetResult(contract, account types.Hash, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage[resultKey(contract, account)] = codec.EncodeI64(value)
}

// Result stored calculation result
func (s *Server) Result(contract, account types.Hash) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, exist := s.storage[resultKey(contract, account)]
	if !exist {
		return 0, false
	}
	v, err := codec.DecodeInt(raw)
	return v, err == nil
}

// Submitted number of accepted extrinsics
func (s *Server) Submitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Unwatched reports whether a subscription was unwatched by the client
func (s *Server) Unwatched(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unwatched[id]
}

// Nonce next index of account
func (s *Server) Nonce(account types.Hash) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonces[account]
}

func resultKey(contract, account types.Hash) string {
	return common.ToHex(codec.StorageKey(PalletName, StorageItem, contract[:], account[:]))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{ws: ws}
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		var req rpcRequest
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		result, after, rerr := s.handle(&req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		if err := p.write(resp); err != nil {
			return
		}
		if after != nil {
			go after(p)
		}
	}
}

func (s *Server) handle(req *rpcRequest) (interface{}, func(*peer), *rpcError) {
	switch req.Method {
	case "chain_getBlockHash":
		var n uint64
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params[0], &n); err != nil {
				return nil, nil, invalidParams(err)
			}
		}
		if n != 0 {
			return nil, nil, nil
		}
		return Genesis.String(), nil, nil

	case "state_getRuntimeVersion":
		return map[string]interface{}{
			"specName":           "qf-runtime",
			"specVersion":        SpecVersion,
			"transactionVersion": TransactionVersion,
		}, nil, nil

	case "system_accountNextIndex":
		var address string
		if err := param(req, 0, &address); err != nil {
			return nil, nil, invalidParams(err)
		}
		pub, _, err := codec.SS58Decode(address)
		if err != nil {
			return nil, nil, invalidParams(err)
		}
		return s.Nonce(types.BytesToHash(pub)), nil, nil

	case "state_getStorage":
		var key string
		if err := param(req, 0, &key); err != nil {
			return nil, nil, invalidParams(err)
		}
		s.mu.Lock()
		value, exist := s.storage[strings.ToLower(key)]
		s.mu.Unlock()
		if !exist {
			return nil, nil, nil
		}
		return common.ToHex(value), nil, nil

	case EventsMethod:
		var hash string
		if err := param(req, 0, &hash); err != nil {
			return nil, nil, invalidParams(err)
		}
		h, err := types.ParseHash(hash)
		if err != nil {
			return nil, nil, invalidParams(err)
		}
		s.mu.Lock()
		events := s.blocks[h]
		s.mu.Unlock()
		if events == nil {
			events = []Event{}
		}
		return events, nil, nil

	case "author_submitAndWatchExtrinsic":
		return s.submit(req)

	case "author_unwatchExtrinsic":
		var id string
		if err := param(req, 0, &id); err != nil {
			return nil, nil, invalidParams(err)
		}
		s.mu.Lock()
		s.unwatched[id] = true
		s.mu.Unlock()
		return true, nil, nil
	}
	return nil, nil, &rpcError{Code: -32601, Message: "Method not found"}
}

func (s *Server) submit(req *rpcRequest) (interface{}, func(*peer), *rpcError) {
	var extHex string
	if err := param(req, 0, &extHex); err != nil {
		return nil, nil, invalidParams(err)
	}
	raw, err := common.FromHex(extHex)
	if err != nil {
		return nil, nil, invalidParams(err)
	}
	ext, err := codec.DecodeExtrinsic(raw)
	if err != nil {
		return nil, nil, &rpcError{Code: 1002, Message: "Verification Error", Data: err.Error()}
	}
	call, err := codec.DecodeExecuteCall(ext.Call)
	if err != nil || call.Index != DefaultCallIndex {
		return nil, nil, &rpcError{Code: 1010, Message: "Invalid Transaction", Data: "Could not decode call"}
	}
	payload := codec.SigningPayload(ext.Call, codec.SignedExtra{
		Nonce:              ext.Nonce,
		Tip:                ext.Tip,
		SpecVersion:        SpecVersion,
		TransactionVersion: TransactionVersion,
		GenesisHash:        Genesis,
	})
	if !ed25519.Verify(ext.Signer[:], codec.PayloadToSign(payload), ext.Signature) {
		return nil, nil, &rpcError{Code: 1010, Message: "Invalid Transaction", Data: "Transaction has a bad signature"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if next := s.nonces[ext.Signer]; ext.Nonce != next {
		return nil, nil, &rpcError{Code: 1010, Message: "Invalid Transaction", Data: fmt.Sprintf("Transaction is outdated, nonce %d want %d", ext.Nonce, next)}
	}
	s.nonces[ext.Signer]++
	s.submitted++

	subID := strconv.FormatUint(atomic.AddUint64(&s.subCounter, 1), 10)
	txHash := codec.ExtrinsicHash(raw)
	script := s.script(call, ext.Signer, txHash)
	return subID, func(p *peer) { script(p, subID) }, nil
}

// script snapshots the current behaviour for one submission
func (s *Server) script(call codec.ExecuteCall, signer, txHash types.Hash) func(*peer, string) {
	flood, failStatus, hold, interval, trailing := s.flood, s.failStatus, s.hold, s.interval, s.trailing
	events := append([]Event(nil), s.events...)

	return func(p *peer, subID string) {
		write := func(status interface{}) bool {
			err := p.write(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "author_extrinsicUpdate",
				"params":  map[string]interface{}{"subscription": subID, "result": status},
			})
			return err == nil
		}
		send := func(status interface{}) bool {
			if s.Unwatched(subID) {
				return false
			}
			return write(status)
		}
		if flood > 0 {
			for i := 0; i < flood; i++ {
				if !send("ready") {
					return
				}
			}
			return
		}
		time.Sleep(interval)
		if !send("ready") {
			return
		}
		if failStatus != "" {
			time.Sleep(interval)
			send(failStatus)
			return
		}
		if hold != nil {
			<-hold
		}

		block := types.BytesToHash(codec.Blake2_128(append(txHash[:], byte(atomic.AddUint64(&s.blockCounter, 1)))))
		s.mu.Lock()
		s.storage[resultKey(call.Contract, signer)] = codec.EncodeI64(call.Op.Apply(call.A, call.B))
		s.blocks[block] = events
		s.mu.Unlock()

		time.Sleep(interval)
		if !send(map[string]string{"inBlock": block.String()}) {
			return
		}
		time.Sleep(interval)
		if !send(map[string]string{"finalized": block.String()}) || trailing == 0 {
			return
		}

		deadline := time.Now().Add(2 * time.Second)
		for !s.Unwatched(subID) {
			if time.Now().After(deadline) {
				return
			}
			time.Sleep(time.Millisecond)
		}
		for i := 0; i < trailing; i++ {
			if !write(map[string]string{"finalized": block.String()}) {
				return
			}
			s.mu.Lock()
			s.trailSent++
			s.mu.Unlock()
		}
	}
}

func param(req *rpcRequest, i int, v interface{}) error {
	if len(req.Params) <= i {
		return fmt.Errorf("missing param %d", i)
	}
	return json.Unmarshal(req.Params[i], v)
}

func invalidParams(err error) *rpcError {
	return &rpcError{Code: -32602, Message: "Invalid params", Data: err.Error()}
}
