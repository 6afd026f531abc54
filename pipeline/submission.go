package pipeline

import (
	"sync"

	"github.com/QuantumFusion-network/pvm-dapp-demo/common"
	"github.com/QuantumFusion-network/pvm-dapp-demo/node"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

// Submission is one signed calculation and its lifecycle
type Submission struct {
	id        string
	request   *types.TransactionRequest
	account   wallet.Account
	timestamp int64

	mu      sync.RWMutex
	nonce   uint64
	txHash  types.Hash
	status  types.TransactionStatus
	history []types.TransactionStatus
	logs    []string
	result  *int64
	err     error
	sub     *node.Subscription

	done chan struct{}
}

func newSubmission(id string, req *types.TransactionRequest, account *wallet.Account) *Submission {
	return &Submission{
		id:        id,
		request:   req,
		account:   *account,
		timestamp: common.Now(),
		status:    types.Idle,
		history:   []types.TransactionStatus{types.Idle},
		done:      make(chan struct{}),
	}
}

// ID unique submission id
func (s *Submission) ID() string {
	return s.id
}

// Request the validated request
func (s *Submission) Request() *types.TransactionRequest {
	return s.request
}

// Account the signing account
func (s *Submission) Account() wallet.Account {
	return s.account
}

// Status latest observed status
func (s *Submission) Status() types.TransactionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// History every applied status in order
func (s *Submission) History() []types.TransactionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.TransactionStatus(nil), s.history...)
}

// TxHash blake2-256 of the submitted extrinsic, zero before submission
func (s *Submission) TxHash() types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txHash
}

// Result the value read back on inclusion
func (s *Submission) Result() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return 0, false
	}
	return *s.result, true
}

// Logs the event log lines written for this submission
func (s *Submission) Logs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.logs...)
}

// Err the last non fatal error (result query, subscription loss)
func (s *Submission) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// StatusText is the status line shown to the user
func (s *Submission) StatusText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statusText(s.status, s.txHash)
}

// Done is closed once tracking stops
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe stops tracking; no status changes are applied afterwards
func (s *Submission) Unsubscribe() {
	s.mu.RLock()
	sub := s.sub
	s.mu.RUnlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Record a persistable snapshot
func (s *Submission) Record() *types.SubmissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := &types.SubmissionRecord{
		ID:        s.id,
		Address:   s.account.Address,
		Contract:  s.request.Contract.String(),
		OperandA:  s.request.OperandA,
		OperandB:  s.request.OperandB,
		Opcode:    s.request.Opcode.String(),
		Nonce:     s.nonce,
		Status:    s.status.Kind,
		Reason:    s.status.Reason,
		Logs:      append([]string(nil), s.logs...),
		Timestamp: s.timestamp,
		UpdatedAt: common.Now(),
	}
	if !s.txHash.IsZero() {
		rec.TxHash = s.txHash.String()
	}
	if !s.status.BlockHash.IsZero() {
		rec.BlockHash = s.status.BlockHash.String()
	}
	if s.result != nil {
		v := *s.result
		rec.Result = &v
	}
	return rec
}

// transition applies status unless it would move the lifecycle backwards
func (s *Submission) transition(status types.TransactionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.CanTransitionTo(status) {
		return false
	}
	s.status = status
	s.history = append(s.history, status)
	return true
}

func (s *Submission) setSubmitted(nonce uint64, txHash types.Hash, sub *node.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce = nonce
	s.txHash = txHash
	s.sub = sub
}

func (s *Submission) setOutcome(logs []string, result *int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = logs
	s.result = result
	if err != nil {
		s.err = err
	}
}

func (s *Submission) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func statusText(status types.TransactionStatus, txHash types.Hash) string {
	switch status.Kind {
	case types.StatusConnecting:
		return "Connecting to node..."
	case types.StatusSubmitted:
		return "Submitted: " + txHash.String()
	default:
		return status.String()
	}
}
