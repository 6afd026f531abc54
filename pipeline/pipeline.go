// Package pipeline builds, signs and submits calculation extrinsics and
// tracks each submission through inclusion and finality.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/pborman/uuid"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/common"
	"github.com/QuantumFusion-network/pvm-dapp-demo/eventlog"
	"github.com/QuantumFusion-network/pvm-dapp-demo/metrics"
	"github.com/QuantumFusion-network/pvm-dapp-demo/node"
	"github.com/QuantumFusion-network/pvm-dapp-demo/query"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

const maxRetainedSubmissions = 1000

// ErrClosed the pipeline was closed
var ErrClosed = errors.New("pipeline closed")

// Backend is the node surface used by the pipeline
type Backend interface {
	IsConnected() bool
	Genesis() types.Hash
	RuntimeVersion(ctx context.Context) (*node.RuntimeVersion, error)
	AccountNextIndex(ctx context.Context, address string) (uint64, error)
	SubmitAndWatch(ctx context.Context, extrinsicHex string) (*node.Subscription, error)
	BlockEvents(ctx context.Context, method string, blockHash types.Hash) ([]node.Event, error)
	GetStorage(ctx context.Context, key []byte) ([]byte, error)
}

// BackendFunc returns the current node connection, which may be nil
type BackendFunc func() Backend

// Signer signs payloads with the connected account
type Signer interface {
	Sign(ctx context.Context, payload []byte) ([]byte, error)
}

// HistoryStore persists submission records
type HistoryStore interface {
	SaveSubmission(rec *types.SubmissionRecord) error
	GetSubmission(id string) (*types.SubmissionRecord, error)
	FindSubmissions(address string, offset, limit int) ([]*types.SubmissionRecord, error)
	Close() error
}

// Notifier is told about failed submissions
type Notifier interface {
	Notify(rec *types.SubmissionRecord) error
}

// Config of the submitted call
type Config struct {
	Contract     types.Hash
	CallIndex    codec.CallIndex
	Tip          uint64
	EventsMethod string
	Pallet       string
	StorageItem  string
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithHistory persists every status change to store
func WithHistory(store HistoryStore) Option {
	return func(p *Pipeline) { p.history = store }
}

// WithNotifier reports failed submissions to n
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// Pipeline submits calculations. Submissions are independent of each
// other and share one event log where the last writer wins.
type Pipeline struct {
	cfg      Config
	backend  BackendFunc
	signer   Signer
	events   *eventlog.Log
	history  HistoryStore
	notifier Notifier

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	submissions map[string]*Submission
	order       []string
	latest      *Submission
	closed      bool

	inFlight mapset.Set
	wg       sync.WaitGroup
}

// New pipeline reading the connection through backend on every submission
func New(cfg Config, backend BackendFunc, signer Signer, events *eventlog.Log, opts ...Option) *Pipeline {
	if events == nil {
		events = eventlog.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cfg:         cfg,
		backend:     backend,
		signer:      signer,
		events:      events,
		ctx:         ctx,
		cancel:      cancel,
		submissions: make(map[string]*Submission),
		inFlight:    mapset.NewSet(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Events the shared event log
func (p *Pipeline) Events() *eventlog.Log {
	return p.events
}

// Submit validates the operands, signs the call with account and submits
// it. Tracking continues in the background until a terminal status or
// Unsubscribe. Validation errors are returned before any network traffic;
// later failures return the Failed submission together with the error.
func (p *Pipeline) Submit(ctx context.Context, account *wallet.Account, a, b float64, op types.Opcode) (*Submission, error) {
	req, err := types.NewTransactionRequest(p.cfg.Contract, a, b, op)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, wallet.ErrNoAccount
	}

	s := newSubmission(uuid.New(), req, account)
	if err := p.register(s); err != nil {
		return nil, err
	}
	metrics.ObserveSubmission(op.String())
	logPipeline("submit", "start submission", "id", s.id, "account", account.Address, "request", req)
	p.apply(s, types.Connecting)

	backend := p.backend()
	if backend == nil || !backend.IsConnected() {
		return s, p.abort(s, "node not connected", node.ErrNotConnected)
	}

	nonce, err := backend.AccountNextIndex(ctx, account.Address)
	if err != nil {
		return s, p.abort(s, "get nonce failed", err)
	}
	version, err := backend.RuntimeVersion(ctx)
	if err != nil {
		return s, p.abort(s, "get runtime version failed", err)
	}

	call := codec.NewExecuteCall(p.cfg.CallIndex, req).Encode()
	extra := codec.SignedExtra{
		Nonce:              nonce,
		Tip:                p.cfg.Tip,
		SpecVersion:        version.SpecVersion,
		TransactionVersion: version.TransactionVersion,
		GenesisHash:        backend.Genesis(),
	}
	signature, err := p.signer.Sign(ctx, codec.PayloadToSign(codec.SigningPayload(call, extra)))
	if err != nil {
		return s, p.abort(s, "signing failed", err)
	}
	extrinsic, err := codec.EncodeSignedExtrinsic(account.PublicKey, signature, call, extra)
	if err != nil {
		return s, p.abort(s, "encode extrinsic failed", err)
	}
	txHash := codec.ExtrinsicHash(extrinsic)

	sub, err := backend.SubmitAndWatch(ctx, common.ToHex(extrinsic))
	if err != nil {
		return s, p.abort(s, "submit failed", err)
	}
	s.setSubmitted(nonce, txHash, sub)
	p.apply(s, types.Submitted)
	logPipeline("submit", "extrinsic submitted", "id", s.id, "txhash", txHash, "nonce", nonce)

	if !p.startTracking() {
		sub.Unsubscribe()
		return s, p.abort(s, "pipeline closed", ErrClosed)
	}
	go p.track(s, backend, sub)
	return s, nil
}

func (p *Pipeline) startTracking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

// abort fails a submission that never reached the node
func (p *Pipeline) abort(s *Submission, reason string, err error) error {
	logPipelineError("submit", reason, err, "id", s.id)
	s.setErr(err)
	p.apply(s, types.Failed(fmt.Sprintf("%s: %v", reason, err)))
	p.finish(s)
	return err
}

func (p *Pipeline) track(s *Submission, backend Backend, sub *node.Subscription) {
	defer p.wg.Done()
	defer p.finish(s)
	for update := range sub.Updates() {
		status, ok := update.TransactionStatus()
		if !ok {
			logPipelineTrace("track", "ignore update", "id", s.id, "update", update)
			continue
		}
		if !p.apply(s, status) {
			logPipelineTrace("track", "ignore backward status", "id", s.id, "current", s.Status(), "update", status)
			continue
		}
		if status.Kind == types.StatusInBlock {
			p.collect(s, backend, status.BlockHash)
		}
		if status.IsTerminal() {
			sub.Unsubscribe()
			return
		}
	}
	if err := sub.Err(); err != nil {
		s.setErr(err)
		p.apply(s, types.Failed(err.Error()))
	}
}

// collect replaces the event log with the block events of s followed by
// exactly one result line
func (p *Pipeline) collect(s *Submission, backend Backend, blockHash types.Hash) {
	events, err := backend.BlockEvents(p.ctx, p.cfg.EventsMethod, blockHash)
	if err != nil {
		logPipelineWarn("track", "get block events failed", "id", s.id, "block", blockHash, "err", err)
	}
	lines := make([]string, 0, len(events)+1)
	for _, ev := range events {
		lines = append(lines, eventlog.EventLine(ev.Section, ev.Method))
	}

	var (
		result   *int64
		queryErr error
	)
	res, err := query.NewService(backend, p.cfg.Pallet, p.cfg.StorageItem).Query(p.ctx, p.cfg.Contract, s.account.PublicKey)
	switch {
	case err == nil:
		value := res.Value
		result = &value
		lines = append(lines, eventlog.ResultLine(value))
	case errors.Is(err, query.ErrNotFound):
		lines = append(lines, eventlog.MissingResultLine())
	default:
		logPipelineError("track", "query result failed", err, "id", s.id)
		queryErr = err
		lines = append(lines, eventlog.MissingResultLine())
	}

	p.events.Replace(lines)
	s.setOutcome(lines, result, queryErr)
	p.save(s)
	logPipeline("track", "result collected", "id", s.id, "block", blockHash, "events", len(events), "found", result != nil)
}

// apply is the only place a submission status changes
func (p *Pipeline) apply(s *Submission, status types.TransactionStatus) bool {
	if !s.transition(status) {
		return false
	}
	metrics.ObserveTransition(status.Kind.String())
	p.setLatest(s)
	logPipeline("track", "status changed", "id", s.id, "status", s.StatusText())
	p.save(s)
	return true
}

func (p *Pipeline) finish(s *Submission) {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	p.inFlight.Remove(s.id)
	metrics.SubmissionDone()

	if s.Status().Kind == types.StatusFailed && p.notifier != nil {
		if err := p.notifier.Notify(s.Record()); err != nil {
			logPipelineWarn("track", "notify failed submission failed", "id", s.id, "err", err)
		}
	}
	logPipeline("track", "tracking stopped", "id", s.id, "status", s.StatusText())
}

func (p *Pipeline) save(s *Submission) {
	if p.history == nil {
		return
	}
	if err := p.history.SaveSubmission(s.Record()); err != nil {
		logPipelineWarn("track", "save submission failed", "id", s.id, "err", err)
	}
}

func (p *Pipeline) register(s *Submission) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.submissions[s.id] = s
	p.order = append(p.order, s.id)
	p.latest = s
	p.inFlight.Add(s.id)
	p.prune()
	return nil
}

// prune drops the oldest finished submissions beyond the retention limit
func (p *Pipeline) prune() {
	if len(p.order) <= maxRetainedSubmissions {
		return
	}
	kept := p.order[:0]
	excess := len(p.order) - maxRetainedSubmissions
	for _, id := range p.order {
		if excess > 0 && !p.inFlight.Contains(id) && id != p.latest.id {
			delete(p.submissions, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept
}

func (p *Pipeline) setLatest(s *Submission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exist := p.submissions[s.id]; exist {
		p.latest = s
	}
}

// Latest the submission whose status changed most recently
func (p *Pipeline) Latest() *Submission {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Get a tracked submission by id
func (p *Pipeline) Get(id string) (*Submission, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, exist := p.submissions[id]
	return s, exist
}

// GetRecord looks in memory first, then in the history store
func (p *Pipeline) GetRecord(id string) (*types.SubmissionRecord, error) {
	if s, exist := p.Get(id); exist {
		return s.Record(), nil
	}
	if p.history == nil {
		return nil, types.ErrRecordNotFound
	}
	return p.history.GetSubmission(id)
}

// FindRecords submissions of address, newest first
func (p *Pipeline) FindRecords(address string, offset, limit int) ([]*types.SubmissionRecord, error) {
	if p.history != nil {
		return p.history.FindSubmissions(address, offset, limit)
	}
	p.mu.RLock()
	var records []*types.SubmissionRecord
	for i := len(p.order) - 1; i >= 0; i-- {
		s := p.submissions[p.order[i]]
		if s.account.Address == address {
			records = append(records, s.Record())
		}
	}
	p.mu.RUnlock()
	if offset >= len(records) {
		return nil, nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// InFlight ids of submissions still being tracked
func (p *Pipeline) InFlight() []string {
	ids := make([]string, 0, p.inFlight.Cardinality())
	for _, id := range p.inFlight.ToSlice() {
		ids = append(ids, id.(string))
	}
	return ids
}

// UnsubscribeAll stops tracking every live submission
func (p *Pipeline) UnsubscribeAll() {
	for _, id := range p.InFlight() {
		if s, exist := p.Get(id); exist {
			s.Unsubscribe()
		}
	}
}

// Close stops all tracking and waits for it to finish. Further
// submissions fail with ErrClosed.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.UnsubscribeAll()
	p.wg.Wait()
}
