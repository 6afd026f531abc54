package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Opcode selects the calculation executed by the contract
type Opcode uint8

// opcode values, as encoded on chain
const (
	OpAdd      Opcode = iota // 0
	OpSubtract               // 1
	OpMultiply               // 2
)

// AllOpcodes lists every valid opcode in wire order
var AllOpcodes = []Opcode{OpAdd, OpSubtract, OpMultiply}

// IsValid is one of the known opcodes
func (op Opcode) IsValid() bool {
	return op <= OpMultiply
}

func (op Opcode) String() string {
	switch op {
	case OpAdd:
		return "Add"
	case OpSubtract:
		return "Subtract"
	case OpMultiply:
		return "Multiply"
	default:
		return fmt.Sprintf("unknown opcode %d", uint8(op))
	}
}

// Symbol returns the arithmetic symbol shown on the calculator buttons
func (op Opcode) Symbol() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	default:
		return "?"
	}
}

// Apply computes what the contract computes for this opcode. Products
// beyond int64 wrap; NewTransactionRequest refuses them.
func (op Opcode) Apply(a, b uint32) int64 {
	x, y := int64(a), int64(b)
	switch op {
	case OpAdd:
		return x + y
	case OpSubtract:
		return x - y
	case OpMultiply:
		return x * y
	default:
		return 0
	}
}

// ParseOpcode accepts the wire number, the name or the symbol
func ParseOpcode(s string) (Opcode, error) {
	s = strings.TrimSpace(s)
	for _, op := range AllOpcodes {
		if strings.EqualFold(s, op.String()) || s == op.Symbol() {
			return op, nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && Opcode(n).IsValid() {
		return Opcode(n), nil
	}
	switch strings.ToLower(s) {
	case "sub":
		return OpSubtract, nil
	case "mul":
		return OpMultiply, nil
	}
	return 0, &InvalidRequestError{Field: "opcode", Reason: fmt.Sprintf("unknown opcode %q", s)}
}

// MarshalText implements encoding.TextMarshaler
func (op Opcode) MarshalText() ([]byte, error) {
	if !op.IsValid() {
		return nil, &InvalidRequestError{Field: "opcode", Reason: op.String()}
	}
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (op *Opcode) UnmarshalText(text []byte) error {
	parsed, err := ParseOpcode(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// UnmarshalJSON accepts the wire number as well as any form ParseOpcode
// accepts, so {"op":2} and {"op":"Multiply"} decode alike
func (op *Opcode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return &InvalidRequestError{Field: "opcode", Reason: "is missing"}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return op.UnmarshalText([]byte(s))
	}
	n, err := strconv.ParseUint(string(data), 10, 8)
	if err != nil || !Opcode(n).IsValid() {
		return &InvalidRequestError{Field: "opcode", Reason: fmt.Sprintf("unknown opcode %s", data)}
	}
	*op = Opcode(n)
	return nil
}

// RequireOpcode dereferences an optional opcode field, absent is invalid
func RequireOpcode(op *Opcode) (Opcode, error) {
	if op == nil {
		return 0, &InvalidRequestError{Field: "opcode", Reason: "is missing"}
	}
	return *op, nil
}
