package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// wallet errors
var (
	ErrWalletUnavailable = errors.New("wallet provider not available")
	ErrNoAccount         = errors.New("wallet has no accounts")
	ErrNotConnected      = errors.New("wallet not connected")
)

// SigningError is returned when the provider fails or refuses to sign
type SigningError struct {
	Address string
	Err     error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing with %s failed: %v", e.Address, e.Err)
}

// Unwrap returns the provider error
func (e *SigningError) Unwrap() error {
	return e.Err
}

// Account is the account held by a connected session
type Account struct {
	Address   string     `json:"address"`
	PublicKey types.Hash `json:"publicKey"`
	Name      string     `json:"name,omitempty"`
	Provider  string     `json:"provider"`
}

// Session is a wallet connection for one origin
type Session struct {
	registry *Registry
	provider string
	origin   string

	mu      sync.RWMutex
	account *Account
	signer  Signer
}

// NewSession uses the named provider from registry
func NewSession(registry *Registry, provider, origin string) *Session {
	if provider == "" {
		provider = DefaultProvider
	}
	return &Session{registry: registry, provider: provider, origin: origin}
}

// Connect enables the provider and selects its first account.
// A connected session returns its account without asking the wallet again.
// On failure the session stays disconnected.
func (s *Session) Connect(ctx context.Context) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account != nil {
		acc := *s.account
		return &acc, nil
	}

	provider, exist := s.registry.Get(s.provider)
	if !exist {
		log.Warn("wallet provider not installed", "provider", s.provider)
		return nil, ErrWalletUnavailable
	}
	injected, err := provider.Enable(ctx, s.origin)
	if err != nil {
		return nil, fmt.Errorf("%w: enable %s: %v", ErrWalletUnavailable, s.provider, err)
	}
	accounts, err := injected.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s accounts: %w", s.provider, err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccount
	}
	first := accounts[0]
	s.account = &Account{
		Address:   first.Address,
		PublicKey: first.PublicKey,
		Name:      first.Name,
		Provider:  s.provider,
	}
	s.signer = injected.Signer()
	log.Info("wallet connected", "provider", s.provider, "address", first.Address)
	acc := *s.account
	return &acc, nil
}

// Account returns the held account, nil when disconnected
func (s *Session) Account() *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil
	}
	acc := *s.account
	return &acc
}

// IsConnected an account is held
func (s *Session) IsConnected() bool {
	return s.Account() != nil
}

// Sign asks the provider to sign payload with the held account
func (s *Session) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	s.mu.RLock()
	account, signer := s.account, s.signer
	s.mu.RUnlock()
	if account == nil {
		return nil, ErrNotConnected
	}
	if signer == nil {
		return nil, &SigningError{Address: account.Address, Err: errors.New("provider has no signer")}
	}
	sig, err := signer.SignPayload(ctx, account.Address, payload)
	if err != nil {
		return nil, &SigningError{Address: account.Address, Err: err}
	}
	return sig, nil
}

// Disconnect discards the held account
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account != nil {
		log.Info("wallet disconnected", "address", s.account.Address)
	}
	s.account, s.signer = nil, nil
}

// StatusText is the wallet line shown to the user
func StatusText(acc *Account) string {
	if acc == nil {
		return "Connecting to wallet..."
	}
	return "Wallet connected: " + acc.Address
}
