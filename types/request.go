package types

import (
	"fmt"
	"math"
)

// InvalidRequestError is returned before any network interaction
// when operands or opcode are malformed
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// TransactionRequest is one execute call against the calculator contract
type TransactionRequest struct {
	Contract Hash   `json:"contract"`
	OperandA uint32 `json:"a"`
	OperandB uint32 `json:"b"`
	Opcode   Opcode `json:"op"`
}

// NewTransactionRequest validates operands and opcode.
// Operands must be finite integral numbers in the uint32 range and a
// product must fit in int64.
func NewTransactionRequest(contract Hash, a, b float64, op Opcode) (*TransactionRequest, error) {
	if contract.IsZero() {
		return nil, &InvalidRequestError{Field: "contract", Reason: "is empty"}
	}
	operandA, err := toOperand("a", a)
	if err != nil {
		return nil, err
	}
	operandB, err := toOperand("b", b)
	if err != nil {
		return nil, err
	}
	if !op.IsValid() {
		return nil, &InvalidRequestError{Field: "opcode", Reason: op.String()}
	}
	// the result is read back as a signed 64-bit value
	if op == OpMultiply && uint64(operandA)*uint64(operandB) > math.MaxInt64 {
		return nil, &InvalidRequestError{Field: "b", Reason: fmt.Sprintf("%d * %d overflows int64", operandA, operandB)}
	}
	return &TransactionRequest{
		Contract: contract,
		OperandA: operandA,
		OperandB: operandB,
		Opcode:   op,
	}, nil
}

func toOperand(field string, v float64) (uint32, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, &InvalidRequestError{Field: field, Reason: "is not a finite number"}
	case v != math.Trunc(v):
		return 0, &InvalidRequestError{Field: field, Reason: fmt.Sprintf("%v is not an integer", v)}
	case v < 0 || v > math.MaxUint32:
		return 0, &InvalidRequestError{Field: field, Reason: fmt.Sprintf("%v is out of range [0, %d]", v, uint32(math.MaxUint32))}
	}
	return uint32(v), nil
}

// Expected is the value the contract stores for this request
func (r *TransactionRequest) Expected() int64 {
	return r.Opcode.Apply(r.OperandA, r.OperandB)
}

func (r *TransactionRequest) String() string {
	return fmt.Sprintf("%d %s %d", r.OperandA, r.Opcode.Symbol(), r.OperandB)
}
