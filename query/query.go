// Package query reads calculation results back from chain storage.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// storage location of calculation results
const (
	DefaultPallet      = "QfPolkaVM"
	DefaultStorageItem = "CalculationResult"
)

// ErrNotFound no result stored for the contract and account
var ErrNotFound = errors.New("calculation result not found")

// QueryError is a transport or decoding failure
type QueryError struct {
	Contract types.Hash
	Account  types.Hash
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query result of %s for %s failed: %v", e.Contract, e.Account, e.Err)
}

// Unwrap returns the underlying error
func (e *QueryError) Unwrap() error {
	return e.Err
}

// StorageReader reads raw storage values, nil when absent
type StorageReader interface {
	GetStorage(ctx context.Context, key []byte) ([]byte, error)
}

// Result a stored calculation result
type Result struct {
	Contract types.Hash `json:"contract"`
	Account  types.Hash `json:"account"`
	Value    int64      `json:"value"`
}

// Service looks up results; every call goes to the node
type Service struct {
	reader StorageReader
	pallet string
	item   string
}

// NewService empty pallet or item use the defaults
func NewService(reader StorageReader, pallet, item string) *Service {
	if pallet == "" {
		pallet = DefaultPallet
	}
	if item == "" {
		item = DefaultStorageItem
	}
	return &Service{reader: reader, pallet: pallet, item: item}
}

// Key storage key of the result of contract for account
func (s *Service) Key(contract, account types.Hash) []byte {
	return codec.StorageKey(s.pallet, s.item, contract[:], account[:])
}

// Query fetches the latest result of contract for account
func (s *Service) Query(ctx context.Context, contract, account types.Hash) (*Result, error) {
	raw, err := s.reader.GetStorage(ctx, s.Key(contract, account))
	if err != nil {
		return nil, &QueryError{Contract: contract, Account: account, Err: err}
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	value, err := codec.DecodeInt(raw)
	if err != nil {
		return nil, &QueryError{Contract: contract, Account: account, Err: err}
	}
	log.Debug("calculation result", "contract", contract, "account", account, "value", value)
	return &Result{Contract: contract, Account: account, Value: value}, nil
}
