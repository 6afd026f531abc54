package rpcapi

import (
	"net/http"

	"github.com/QuantumFusion-network/pvm-dapp-demo/internal/calcapi"
	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/params"
	"github.com/QuantumFusion-network/pvm-dapp-demo/query"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

// RPCAPI rpc api handler
type RPCAPI struct {
	app *calcapi.App
}

// NewRPCAPI serves app
func NewRPCAPI(app *calcapi.App) *RPCAPI {
	return &RPCAPI{app: app}
}

// RPCNullArgs null args
type RPCNullArgs struct{}

// RPCSubmitArgs submit args
type RPCSubmitArgs struct {
	A  float64       `json:"a"`
	B  float64       `json:"b"`
	Op *types.Opcode `json:"op"`
}

// RPCQueryArgs query args, account may be hex or ss58
type RPCQueryArgs struct {
	Account string `json:"account"`
}

// RPCHistoryArgs history args
type RPCHistoryArgs struct {
	Address string `json:"address"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
}

// GetVersionInfo api
func (s *RPCAPI) GetVersionInfo(r *http.Request, args *RPCNullArgs, result *string) error {
	version := params.VersionWithMeta
	*result = version
	return nil
}

// GetServerInfo api
func (s *RPCAPI) GetServerInfo(r *http.Request, args *RPCNullArgs, result *calcapi.ServerInfo) error {
	*result = *s.app.GetServerInfo()
	return nil
}

// ConnectWallet api
func (s *RPCAPI) ConnectWallet(r *http.Request, args *RPCNullArgs, result *wallet.Account) error {
	acc, err := s.app.ConnectWallet(r.Context())
	if err != nil {
		return toRPCError(err)
	}
	*result = *acc
	return nil
}

// DisconnectWallet api
func (s *RPCAPI) DisconnectWallet(r *http.Request, args *RPCNullArgs, result *string) error {
	s.app.DisconnectWallet()
	*result = "Success"
	return nil
}

// Submit api
func (s *RPCAPI) Submit(r *http.Request, args *RPCSubmitArgs, result *calcapi.SubmissionInfo) error {
	op, err := types.RequireOpcode(args.Op)
	if err != nil {
		return toRPCError(err)
	}
	log.Debug("[api] receive Submit", "a", args.A, "b", args.B, "op", op)
	// tracking outlives the http request
	sub, err := s.app.Submit(r.Context(), args.A, args.B, op)
	if err != nil {
		return toRPCError(err)
	}
	*result = *calcapi.ConvertSubmission(sub)
	return nil
}

// GetStatus api
func (s *RPCAPI) GetStatus(r *http.Request, args *RPCNullArgs, result *calcapi.StatusInfo) error {
	*result = *s.app.GetStatus()
	return nil
}

// GetLogs api
func (s *RPCAPI) GetLogs(r *http.Request, args *RPCNullArgs, result *[]string) error {
	*result = s.app.Logs()
	return nil
}

// QueryResult api
func (s *RPCAPI) QueryResult(r *http.Request, args *RPCQueryArgs, result *query.Result) error {
	account, err := calcapi.ParseAccount(args.Account)
	if err != nil {
		return toRPCError(err)
	}
	res, err := s.app.QueryResult(r.Context(), account)
	if err != nil {
		return toRPCError(err)
	}
	*result = *res
	return nil
}

// GetSubmission api
func (s *RPCAPI) GetSubmission(r *http.Request, id *string, result *types.SubmissionRecord) error {
	if id == nil || *id == "" {
		return errSubmissionNotFound
	}
	rec, err := s.app.Record(*id)
	if err != nil {
		return toRPCError(err)
	}
	*result = *rec
	return nil
}

// GetHistory api
func (s *RPCAPI) GetHistory(r *http.Request, args *RPCHistoryArgs, result *[]*types.SubmissionRecord) error {
	address := args.Address
	if address == "" {
		if acc := s.app.Account(); acc != nil {
			address = acc.Address
		}
	}
	res, err := s.app.History(address, args.Offset, args.Limit)
	if err != nil {
		return toRPCError(err)
	}
	*result = res
	return nil
}
