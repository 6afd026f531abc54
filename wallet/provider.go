// Package wallet connects to a signing wallet provider and holds the
// selected account for the lifetime of a session.
package wallet

import (
	"context"
	"sort"
	"sync"

	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// DefaultProvider name of the provider used when none is configured
const DefaultProvider = "polkadot-js"

// Provider is an installed wallet extension
type Provider interface {
	Name() string
	// Enable asks the wallet to grant origin access to its accounts
	Enable(ctx context.Context, origin string) (Injected, error)
}

// Injected is the access granted by an enabled provider
type Injected interface {
	Accounts(ctx context.Context) ([]InjectedAccount, error)
	Signer() Signer
}

// InjectedAccount is an account exposed by a provider
type InjectedAccount struct {
	Address   string
	PublicKey types.Hash
	Name      string
}

// Signer signs raw payloads for one of the provider's addresses
type Signer interface {
	SignPayload(ctx context.Context, address string, payload []byte) ([]byte, error)
}

// Registry of installed providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry with the given providers installed
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register installs or replaces a provider
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get looks up a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exist := r.providers[name]
	return p, exist
}

// Names of installed providers, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
