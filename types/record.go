package types

import "errors"

// ErrRecordNotFound no submission record with the given key
var ErrRecordNotFound = errors.New("submission record not found")

// SubmissionRecord is the persisted summary of one submission
type SubmissionRecord struct {
	ID        string     `json:"id" bson:"_id"`
	Address   string     `json:"address" bson:"address"`
	Contract  string     `json:"contract" bson:"contract"`
	OperandA  uint32     `json:"a" bson:"a"`
	OperandB  uint32     `json:"b" bson:"b"`
	Opcode    string     `json:"op" bson:"op"`
	Nonce     uint64     `json:"nonce" bson:"nonce"`
	TxHash    string     `json:"txHash,omitempty" bson:"txHash"`
	Status    StatusKind `json:"status" bson:"status"`
	BlockHash string     `json:"blockHash,omitempty" bson:"blockHash"`
	Reason    string     `json:"reason,omitempty" bson:"reason"`
	Result    *int64     `json:"result,omitempty" bson:"result,omitempty"`
	Logs      []string   `json:"logs,omitempty" bson:"logs"`
	Timestamp int64      `json:"timestamp" bson:"timestamp"`
	UpdatedAt int64      `json:"updatedAt" bson:"updatedAt"`
}
