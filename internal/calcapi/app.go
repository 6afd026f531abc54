// Package calcapi holds the App session object shared by the api server
// and the command line tools: one node connection, one wallet session,
// one submission pipeline and one event log.
package calcapi

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/QuantumFusion-network/pvm-dapp-demo/eventlog"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/node"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/pipeline"
	"github.com/QuantumFusion-network/pvm-dapp-demo/query"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

// status lines shown before any submission
const (
	StatusIdle      = "Idle"
	StatusNoAccount = "No accounts found. Please create one first."

	connectNetworkFailedPrefix = "Failed to connect to network: "
	connectWalletFailedPrefix  = "Failed to connect: "
)

// Options of an App. Config is required, everything else is optional.
type Options struct {
	Config     *params.CalcConfig
	Registry   *wallet.Registry
	History    pipeline.HistoryStore
	Notifier   pipeline.Notifier
	Publishers []eventlog.Publisher
	// Closers are closed last on Teardown
	Closers []io.Closer
}

// App is the single session of the dapp client
type App struct {
	cfg     *params.CalcConfig
	session *wallet.Session
	events  *eventlog.Log
	history pipeline.HistoryStore
	closers []io.Closer

	pipeline *pipeline.Pipeline

	initMu     sync.Mutex
	mu         sync.RWMutex
	conn       *node.Conn
	status     string
	submission *pipeline.Submission
	torndown   bool
}

// New app, call Init to connect to the node
func New(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = params.NewDefaultConfig()
	}
	registry := opts.Registry
	if registry == nil {
		registry = wallet.NewRegistry()
	}
	a := &App{
		cfg:     cfg,
		session: wallet.NewSession(registry, cfg.Wallet.Provider, cfg.Wallet.Origin),
		events:  eventlog.New(opts.Publishers...),
		history: opts.History,
		closers: opts.Closers,
		status:  StatusIdle,
	}

	var pipeOpts []pipeline.Option
	if opts.History != nil {
		pipeOpts = append(pipeOpts, pipeline.WithHistory(opts.History))
	}
	if opts.Notifier != nil {
		pipeOpts = append(pipeOpts, pipeline.WithNotifier(opts.Notifier))
	}
	pipeCfg := pipeline.Config{
		Contract:     cfg.Contract.GetContractAddress(),
		CallIndex:    cfg.Contract.GetCallIndex(),
		Tip:          cfg.Contract.Tip,
		EventsMethod: cfg.Node.EventsMethod,
		Pallet:       cfg.Contract.Pallet,
		StorageItem:  cfg.Contract.StorageItem,
	}
	a.pipeline = pipeline.New(pipeCfg, a.backend, a.session, a.events, pipeOpts...)
	return a
}

// backend reads the connection through the App on every use
func (a *App) backend() pipeline.Backend {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.conn == nil {
		return nil
	}
	return a.conn
}

func (a *App) setStatus(status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
	a.submission = nil
}

// Init connects to the configured node. A previous connection is closed
// before dialing. On failure the status line is set and the connection
// stays in state Failed; there is no retry.
func (a *App) Init(ctx context.Context) error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	a.mu.Lock()
	old := a.conn
	a.conn = nil
	a.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	opts := &node.Options{
		MaxQueuedUpdates: a.cfg.Node.MaxQueuedUpdates,
		HandshakeTimeout: time.Duration(a.cfg.Node.HandshakeTimeout) * time.Second,
	}
	conn, err := node.Dial(ctx, a.cfg.Node.Endpoint, opts)

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	if err != nil {
		log.Error("connect to network failed", "endpoint", a.cfg.Node.Endpoint, "err", err)
		a.setStatus(connectNetworkFailedPrefix + err.Error())
		return err
	}
	return nil
}

// NodeState state of the current connection
func (a *App) NodeState() node.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.conn.State()
}

// Endpoint the configured node endpoint
func (a *App) Endpoint() string {
	return a.cfg.Node.Endpoint
}

// ConnectWallet enables the configured provider and selects its first account
func (a *App) ConnectWallet(ctx context.Context) (*wallet.Account, error) {
	a.setStatus(wallet.StatusText(nil))
	acc, err := a.session.Connect(ctx)
	switch {
	case err == nil:
		a.setStatus(wallet.StatusText(acc))
	case errors.Is(err, wallet.ErrNoAccount):
		a.setStatus(StatusNoAccount)
	default:
		a.setStatus(connectWalletFailedPrefix + err.Error())
	}
	return acc, err
}

// DisconnectWallet forgets the selected account
func (a *App) DisconnectWallet() {
	a.session.Disconnect()
	a.setStatus(StatusIdle)
}

// Account the connected account, nil when none
func (a *App) Account() *wallet.Account {
	return a.session.Account()
}

// Submit signs and submits a calculation with the connected account
func (a *App) Submit(ctx context.Context, operandA, operandB float64, op types.Opcode) (*pipeline.Submission, error) {
	acc := a.session.Account()
	if acc == nil {
		a.setStatus("Failed: " + wallet.ErrNotConnected.Error())
		return nil, wallet.ErrNotConnected
	}
	s, err := a.pipeline.Submit(ctx, acc, operandA, operandB, op)
	if s == nil {
		a.setStatus("Failed: " + err.Error())
		return nil, err
	}
	a.mu.Lock()
	a.submission = s
	a.mu.Unlock()
	return s, err
}

// Submission a tracked submission by id
func (a *App) Submission(id string) (*pipeline.Submission, bool) {
	return a.pipeline.Get(id)
}

// Record of a submission, also looked up in the history store
func (a *App) Record(id string) (*types.SubmissionRecord, error) {
	return a.pipeline.GetRecord(id)
}

// History submissions of address, newest first
func (a *App) History(address string, offset, limit int) ([]*types.SubmissionRecord, error) {
	return a.pipeline.FindRecords(address, offset, limit)
}

// QueryResult reads the stored result of account, the connected account
// when account is zero
func (a *App) QueryResult(ctx context.Context, account types.Hash) (*query.Result, error) {
	if account.IsZero() {
		acc := a.session.Account()
		if acc == nil {
			return nil, wallet.ErrNotConnected
		}
		account = acc.PublicKey
	}
	backend := a.backend()
	if backend == nil || !backend.IsConnected() {
		return nil, node.ErrNotConnected
	}
	svc := query.NewService(backend, a.cfg.Contract.Pallet, a.cfg.Contract.StorageItem)
	return svc.Query(ctx, a.cfg.Contract.GetContractAddress(), account)
}

// StatusText the single status line: the latest submission status when
// one was made after the last wallet or network event
func (a *App) StatusText() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.submission != nil {
		return a.submission.StatusText()
	}
	return a.status
}

// Logs the current event log
func (a *App) Logs() []string {
	return a.events.Current()
}

// Config the app config
func (a *App) Config() *params.CalcConfig {
	return a.cfg
}

// Teardown unsubscribes every live submission, then closes the node
// connection, then the stores. Safe to call more than once.
func (a *App) Teardown() {
	a.mu.Lock()
	if a.torndown {
		a.mu.Unlock()
		return
	}
	a.torndown = true
	a.mu.Unlock()

	a.pipeline.Close()

	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}

	a.session.Disconnect()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Warn("close history store failed", "err", err)
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn("close resource failed", "err", err)
		}
	}
	log.Info("app teardown finished")
}
