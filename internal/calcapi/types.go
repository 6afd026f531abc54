package calcapi

import (
	"github.com/QuantumFusion-network/pvm-dapp-demo/pipeline"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
	"github.com/QuantumFusion-network/pvm-dapp-demo/wallet"
)

// ServerInfo server info
type ServerInfo struct {
	Identifier string          `json:"identifier"`
	Version    string          `json:"version"`
	Endpoint   string          `json:"endpoint"`
	NodeState  string          `json:"nodeState"`
	Contract   string          `json:"contract"`
	CallIndex  string          `json:"callIndex"`
	Provider   string          `json:"provider"`
	Account    *wallet.Account `json:"account,omitempty"`
	InFlight   int             `json:"inFlight"`
}

// StatusInfo the status line and what it refers to
type StatusInfo struct {
	Status     string          `json:"status"`
	NodeState  string          `json:"nodeState"`
	Account    string          `json:"account,omitempty"`
	Submission *SubmissionInfo `json:"submission,omitempty"`
}

// SubmissionInfo a tracked submission
type SubmissionInfo struct {
	ID         string                    `json:"id"`
	Account    string                    `json:"account"`
	Request    *types.TransactionRequest `json:"request"`
	Expression string                    `json:"expression"`
	TxHash     string                    `json:"txHash,omitempty"`
	Status     types.TransactionStatus   `json:"status"`
	StatusText string                    `json:"statusText"`
	Result     *int64                    `json:"result,omitempty"`
	Logs       []string                  `json:"logs,omitempty"`
	History    []types.TransactionStatus `json:"history"`
	Error      string                    `json:"error,omitempty"`
}

// ConvertSubmission to api info
func ConvertSubmission(s *pipeline.Submission) *SubmissionInfo {
	if s == nil {
		return nil
	}
	info := &SubmissionInfo{
		ID:         s.ID(),
		Account:    s.Account().Address,
		Request:    s.Request(),
		Expression: s.Request().String(),
		Status:     s.Status(),
		StatusText: s.StatusText(),
		Logs:       s.Logs(),
		History:    s.History(),
	}
	if h := s.TxHash(); !h.IsZero() {
		info.TxHash = h.String()
	}
	if v, ok := s.Result(); ok {
		info.Result = &v
	}
	if err := s.Err(); err != nil {
		info.Error = err.Error()
	}
	return info
}
