package calcapi

import (
	"strings"

	"github.com/QuantumFusion-network/pvm-dapp-demo/codec"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// GetServerInfo api
func (a *App) GetServerInfo() *ServerInfo {
	log.Debug("[api] receive GetServerInfo")
	return &ServerInfo{
		Identifier: a.cfg.Identifier,
		Version:    params.VersionWithMeta,
		Endpoint:   a.cfg.Node.Endpoint,
		NodeState:  a.NodeState().String(),
		Contract:   a.cfg.Contract.GetContractAddress().String(),
		CallIndex:  a.cfg.Contract.GetCallIndex().String(),
		Provider:   a.cfg.Wallet.Provider,
		Account:    a.Account(),
		InFlight:   len(a.pipeline.InFlight()),
	}
}

// GetStatus api
func (a *App) GetStatus() *StatusInfo {
	info := &StatusInfo{
		Status:    a.StatusText(),
		NodeState: a.NodeState().String(),
	}
	if acc := a.Account(); acc != nil {
		info.Account = acc.Address
	}
	a.mu.RLock()
	s := a.submission
	a.mu.RUnlock()
	info.Submission = ConvertSubmission(s)
	return info
}

// ParseAccount accepts a 0x hex public key or an ss58 address.
// The empty string is the zero account.
func ParseAccount(s string) (types.Hash, error) {
	if s == "" {
		return types.Hash{}, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return types.ParseHash(s)
	}
	pub, _, err := codec.SS58Decode(s)
	if err != nil {
		return types.Hash{}, &types.InvalidRequestError{Field: "account", Reason: err.Error()}
	}
	return types.BytesToHash(pub), nil
}
