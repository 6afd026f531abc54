package node

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// extrinsic status kinds reported by author_extrinsicUpdate
const (
	ExtrinsicFuture          = "future"
	ExtrinsicReady           = "ready"
	ExtrinsicBroadcast       = "broadcast"
	ExtrinsicInBlock         = "inBlock"
	ExtrinsicRetracted       = "retracted"
	ExtrinsicFinalityTimeout = "finalityTimeout"
	ExtrinsicFinalized       = "finalized"
	ExtrinsicUsurped         = "usurped"
	ExtrinsicDropped         = "dropped"
	ExtrinsicInvalid         = "invalid"
)

// ExtrinsicStatus is one raw status update. It is either a bare string
// ("ready") or a single key object ({"inBlock": "0x.."}).
type ExtrinsicStatus struct {
	Kind      string
	BlockHash types.Hash
	Peers     []string
}

// UnmarshalJSON implements json.Unmarshaler
func (s *ExtrinsicStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Kind)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if len(obj) != 1 {
		return fmt.Errorf("extrinsic status has %d keys", len(obj))
	}
	for kind, value := range obj {
		s.Kind = kind
		switch kind {
		case ExtrinsicBroadcast:
			return json.Unmarshal(value, &s.Peers)
		case ExtrinsicInBlock, ExtrinsicRetracted, ExtrinsicFinalityTimeout, ExtrinsicFinalized, ExtrinsicUsurped:
			var hash string
			if err := json.Unmarshal(value, &hash); err != nil {
				return err
			}
			h, err := types.ParseHash(hash)
			if err != nil {
				return err
			}
			s.BlockHash = h
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (s ExtrinsicStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ExtrinsicBroadcast:
		peers := s.Peers
		if peers == nil {
			peers = []string{}
		}
		return json.Marshal(map[string][]string{s.Kind: peers})
	case ExtrinsicInBlock, ExtrinsicRetracted, ExtrinsicFinalityTimeout, ExtrinsicFinalized, ExtrinsicUsurped:
		return json.Marshal(map[string]string{s.Kind: s.BlockHash.String()})
	default:
		return json.Marshal(s.Kind)
	}
}

// TransactionStatus maps a node update onto the lifecycle.
// ok is false for updates that do not change the lifecycle (retracted).
func (s ExtrinsicStatus) TransactionStatus() (status types.TransactionStatus, ok bool) {
	switch s.Kind {
	case ExtrinsicFuture, ExtrinsicReady, ExtrinsicBroadcast:
		return types.Submitted, true
	case ExtrinsicInBlock:
		return types.InBlock(s.BlockHash), true
	case ExtrinsicFinalized:
		return types.Finalized(s.BlockHash), true
	case ExtrinsicInvalid:
		return types.Failed("transaction invalid"), true
	case ExtrinsicDropped:
		return types.Failed("transaction dropped"), true
	case ExtrinsicUsurped:
		return types.Failed("transaction usurped by " + s.BlockHash.String()), true
	case ExtrinsicFinalityTimeout:
		return types.Failed("finality timeout in block " + s.BlockHash.String()), true
	default:
		return types.TransactionStatus{}, false
	}
}

func (s ExtrinsicStatus) String() string {
	if s.BlockHash.IsZero() {
		return s.Kind
	}
	return s.Kind + " " + s.BlockHash.String()
}
