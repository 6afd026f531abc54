package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

type mockProvider struct {
	name      string
	enableErr error
	accounts  []InjectedAccount
	signErr   error
	enabled   int
}

func (p *mockProvider) Name() string { return p.name }

func (p *mockProvider) Enable(ctx context.Context, origin string) (Injected, error) {
	p.enabled++
	if p.enableErr != nil {
		return nil, p.enableErr
	}
	return p, nil
}

func (p *mockProvider) Accounts(ctx context.Context) ([]InjectedAccount, error) {
	return p.accounts, nil
}

func (p *mockProvider) Signer() Signer { return p }

func (p *mockProvider) SignPayload(ctx context.Context, address string, payload []byte) ([]byte, error) {
	if p.signErr != nil {
		return nil, p.signErr
	}
	return append([]byte(address+":"), payload...), nil
}

var (
	alice = InjectedAccount{Address: "5Alice", PublicKey: types.BytesToHash([]byte{1}), Name: "alice"}
	bob   = InjectedAccount{Address: "5Bob", PublicKey: types.BytesToHash([]byte{2}), Name: "bob"}
)

func TestConnectWithoutProvider(t *testing.T) {
	s := NewSession(NewRegistry(), "", "calc")
	acc, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWalletUnavailable)
	assert.Nil(t, acc)
	assert.Nil(t, s.Account())
	assert.False(t, s.IsConnected())

	_, err = s.Sign(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectEnableRefused(t *testing.T) {
	p := &mockProvider{name: DefaultProvider, enableErr: errors.New("user rejected")}
	s := NewSession(NewRegistry(p), DefaultProvider, "calc")
	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWalletUnavailable)
	assert.Nil(t, s.Account())
}

func TestConnectNoAccounts(t *testing.T) {
	p := &mockProvider{name: DefaultProvider}
	s := NewSession(NewRegistry(p), DefaultProvider, "calc")
	_, err := s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoAccount)
	assert.False(t, s.IsConnected())
}

func TestConnectSelectsFirstAccountOnce(t *testing.T) {
	p := &mockProvider{name: DefaultProvider, accounts: []InjectedAccount{alice, bob}}
	s := NewSession(NewRegistry(p), DefaultProvider, "calc")

	acc, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5Alice", acc.Address)
	assert.Equal(t, DefaultProvider, acc.Provider)
	assert.Equal(t, "Wallet connected: 5Alice", StatusText(acc))

	again, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, acc, again)
	assert.Equal(t, 1, p.enabled)

	sig, err := s.Sign(context.Background(), []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte("5Alice:payload"), sig)

	s.Disconnect()
	assert.Nil(t, s.Account())
	assert.Equal(t, "Connecting to wallet...", StatusText(s.Account()))
}

func TestSignFailure(t *testing.T) {
	p := &mockProvider{name: "other", accounts: []InjectedAccount{bob}, signErr: errors.New("cancelled")}
	s := NewSession(NewRegistry(p), "other", "calc")
	_, err := s.Connect(context.Background())
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), []byte("x"))
	var signErr *SigningError
	require.True(t, errors.As(err, &signErr))
	assert.Equal(t, "5Bob", signErr.Address)
	assert.EqualError(t, errors.Unwrap(err), "cancelled")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&mockProvider{name: "b"}, &mockProvider{name: "a"})
	assert.Equal(t, []string{"a", "b"}, r.Names())
	_, ok := r.Get("a")
	assert.True(t, ok)
	_, ok = r.Get("c")
	assert.False(t, ok)

	var nilRegistry *Registry
	_, ok = nilRegistry.Get("a")
	assert.False(t, ok)
}
