package node

import (
	"context"
	"fmt"

	"github.com/QuantumFusion-network/pvm-dapp-demo/common"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// node rpc methods
const (
	methodBlockHash        = "chain_getBlockHash"
	methodRuntimeVersion   = "state_getRuntimeVersion"
	methodAccountNextIndex = "system_accountNextIndex"
	methodGetStorage       = "state_getStorage"
	methodSubmitAndWatch   = "author_submitAndWatchExtrinsic"
	methodUnwatchExtrinsic = "author_unwatchExtrinsic"

	// DefaultEventsMethod returns the decoded events of a block
	DefaultEventsMethod = "qfPolkaVM_blockEvents"
)

// RuntimeVersion subset of state_getRuntimeVersion used for signing
type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	SpecVersion        uint32 `json:"specVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

// Event is one decoded runtime event
type Event struct {
	Section string `json:"section"`
	Method  string `json:"method"`
}

func (e Event) String() string {
	return e.Section + "." + e.Method
}

// BlockHash hash of block number n
func (c *Conn) BlockHash(ctx context.Context, n uint64) (types.Hash, error) {
	var res *string
	if err := c.Call(ctx, &res, methodBlockHash, n); err != nil {
		return types.Hash{}, err
	}
	if res == nil {
		return types.Hash{}, fmt.Errorf("block %d not found", n)
	}
	return types.ParseHash(*res)
}

// RuntimeVersion at the best block
func (c *Conn) RuntimeVersion(ctx context.Context) (*RuntimeVersion, error) {
	var res RuntimeVersion
	if err := c.Call(ctx, &res, methodRuntimeVersion); err != nil {
		return nil, err
	}
	return &res, nil
}

// AccountNextIndex next nonce of an ss58 address, pool included
func (c *Conn) AccountNextIndex(ctx context.Context, address string) (uint64, error) {
	var nonce uint64
	if err := c.Call(ctx, &nonce, methodAccountNextIndex, address); err != nil {
		return 0, err
	}
	return nonce, nil
}

// GetStorage raw storage value at the best block, nil if absent
func (c *Conn) GetStorage(ctx context.Context, key []byte) ([]byte, error) {
	var res *string
	if err := c.Call(ctx, &res, methodGetStorage, common.ToHex(key)); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return common.FromHex(*res)
}

// BlockEvents decoded events of a block through method
func (c *Conn) BlockEvents(ctx context.Context, method string, blockHash types.Hash) ([]Event, error) {
	if method == "" {
		method = DefaultEventsMethod
	}
	var events []Event
	if err := c.Call(ctx, &events, method, blockHash.String()); err != nil {
		return nil, err
	}
	return events, nil
}
