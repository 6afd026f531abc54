package node

import (
	"errors"
	"fmt"
)

// node errors
var (
	ErrConnectionClosed     = errors.New("node connection closed")
	ErrSubscriptionOverflow = errors.New("subscription update queue overflow")
	ErrNotConnected         = errors.New("node not connected")
)

// ConnectionError is returned by Dial when the endpoint cannot be reached
// or the handshake fails
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying dial or handshake error
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RPCError is an error object returned by the node
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
