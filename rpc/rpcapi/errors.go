package rpcapi

import (
	"errors"

	rpcjson "github.com/gorilla/rpc/v2/json2"

	"github.com/QuantumFusion-network/pvm-dapp-demo/node"
	"github.com/QuantumFusion-network/pvm-dapp-demo/pipeline"
	"github.com/QuantumFusion-network/pvm-dapp-demo/query"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

// error codes returned to rpc callers
const (
	codeInternal         rpcjson.ErrorCode = -32000
	codeNotFound         rpcjson.ErrorCode = -32099
	codeNodeNotConnected rpcjson.ErrorCode = -32098
	codeWalletNotReady   rpcjson.ErrorCode = -32097
	codeSigningFailed    rpcjson.ErrorCode = -32096
	codeClosed           rpcjson.ErrorCode = -32095
)

var errSubmissionNotFound = newRPCError(codeNotFound, "submission not found")

func newRPCError(ec rpcjson.ErrorCode, message string) error {
	return &rpcjson.Error{
		Code:    ec,
		Message: message,
	}
}

func newRPCInternalError(err error) error {
	return newRPCError(codeInternal, "rpcError: "+err.Error())
}

// toRPCError attaches an error code by category
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	var invalid *types.InvalidRequestError
	var signing *wallet.SigningError
	switch {
	case errors.As(err, &invalid):
		return newRPCError(rpcjson.E_INVALID_REQ, err.Error())
	case errors.As(err, &signing):
		return newRPCError(codeSigningFailed, err.Error())
	case errors.Is(err, types.ErrRecordNotFound), errors.Is(err, query.ErrNotFound):
		return newRPCError(codeNotFound, err.Error())
	case errors.Is(err, node.ErrNotConnected), errors.Is(err, node.ErrConnectionClosed):
		return newRPCError(codeNodeNotConnected, err.Error())
	case errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, wallet.ErrNoAccount),
		errors.Is(err, wallet.ErrWalletUnavailable):
		return newRPCError(codeWalletNotReady, err.Error())
	case errors.Is(err, pipeline.ErrClosed):
		return newRPCError(codeClosed, err.Error())
	}
	return newRPCInternalError(err)
}
