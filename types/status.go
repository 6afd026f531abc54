package types

import (
	"fmt"
)

// -----------------------------------------------
// transaction status change graph
//
// Idle -> Connecting -> Submitted -> InBlock -> Finalized
//   |          |            |           |
//   +----------+------------+-----------+-----> Failed
//
// Finalized and Failed are terminal.
// InBlock -> InBlock is allowed (re-inclusion after a retracted block).
// -----------------------------------------------

// StatusKind transaction status kind
type StatusKind uint8

// status kinds, ordered by lifecycle progress (Failed excluded)
const (
	StatusIdle       StatusKind = iota // 0
	StatusConnecting                   // 1
	StatusSubmitted                    // 2
	StatusInBlock                      // 3
	StatusFinalized                    // 4
	StatusFailed                       // 5
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "Idle"
	case StatusConnecting:
		return "Connecting"
	case StatusSubmitted:
		return "Submitted"
	case StatusInBlock:
		return "InBlock"
	case StatusFinalized:
		return "Finalized"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("unknown status %d", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *StatusKind) UnmarshalText(text []byte) error {
	for kind := StatusIdle; kind <= StatusFailed; kind++ {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown status kind %q", string(text))
}

// TransactionStatus is the externally observable state of one submission
type TransactionStatus struct {
	Kind      StatusKind `json:"kind"`
	BlockHash Hash       `json:"blockHash,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Status constructors
var (
	Idle       = TransactionStatus{Kind: StatusIdle}
	Connecting = TransactionStatus{Kind: StatusConnecting}
	Submitted  = TransactionStatus{Kind: StatusSubmitted}
)

// InBlock status
func InBlock(blockHash Hash) TransactionStatus {
	return TransactionStatus{Kind: StatusInBlock, BlockHash: blockHash}
}

// Finalized status
func Finalized(blockHash Hash) TransactionStatus {
	return TransactionStatus{Kind: StatusFinalized, BlockHash: blockHash}
}

// Failed status
func Failed(reason string) TransactionStatus {
	return TransactionStatus{Kind: StatusFailed, Reason: reason}
}

// IsTerminal no more transitions follow
func (s TransactionStatus) IsTerminal() bool {
	return s.Kind == StatusFinalized || s.Kind == StatusFailed
}

// CanTransitionTo reports whether next keeps the lifecycle monotonic
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next.Kind == StatusFailed {
		return true
	}
	return next.Kind >= s.Kind
}

func (s TransactionStatus) String() string {
	switch s.Kind {
	case StatusInBlock:
		return "In block: " + s.BlockHash.String()
	case StatusFinalized:
		return "Finalized: " + s.BlockHash.String()
	case StatusFailed:
		return "Failed: " + s.Reason
	default:
		return s.Kind.String()
	}
}
