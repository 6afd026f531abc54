package node

import (
	"bytes"
	"encoding/json"
	"strconv"
	"sync/atomic"
)

const jsonrpcVersion = "2.0"

var counter uint64

type request struct {
	Version string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// message is any inbound frame: a response or a subscription notification
type message struct {
	Version string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type notification struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// call is one pending request; ready is signalled exactly once by the run loop
type call struct {
	req    request
	result json.RawMessage
	err    error
	ready  chan struct{}

	// set for subscribe calls, registered by the run loop before done
	sub *Subscription
}

func newCall(method string, params []interface{}) *call {
	if params == nil {
		params = []interface{}{}
	}
	return &call{
		req: request{
			Version: jsonrpcVersion,
			ID:      atomic.AddUint64(&counter, 1),
			Method:  method,
			Params:  params,
		},
		ready: make(chan struct{}, 1),
	}
}

func (c *call) done(result json.RawMessage, err error) {
	c.result, c.err = result, err
	c.ready <- struct{}{}
}

func (c *call) fail(err error) {
	c.done(nil, err)
}

// subscriptionID normalizes string and numeric subscription ids
func subscriptionID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if s, err := strconv.Unquote(string(raw)); err == nil {
			return s
		}
	}
	return string(raw)
}
