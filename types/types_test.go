package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoContract = "0x248e8fa75194f1dd671bdb220b59936a13fed06f8bd29ed1e5e06e6de2b974e6"

func TestParseOpcode(t *testing.T) {
	cases := map[string]Opcode{
		"0": OpAdd, "add": OpAdd, "+": OpAdd, "Add": OpAdd,
		"1": OpSubtract, "sub": OpSubtract, "-": OpSubtract,
		"2": OpMultiply, "mul": OpMultiply, "*": OpMultiply, "MULTIPLY": OpMultiply,
	}
	for in, want := range cases {
		got, err := ParseOpcode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"3", "", "div", "/", "-1"} {
		_, err := ParseOpcode(bad)
		var ire *InvalidRequestError
		assert.True(t, errors.As(err, &ire), bad)
	}
}

func TestOpcodeApply(t *testing.T) {
	assert.Equal(t, int64(15), OpAdd.Apply(10, 5))
	assert.Equal(t, int64(5), OpSubtract.Apply(10, 5))
	assert.Equal(t, int64(-5), OpSubtract.Apply(5, 10))
	assert.Equal(t, int64(50), OpMultiply.Apply(10, 5))
	assert.Equal(t, int64(math.MaxInt32)*int64(math.MaxUint32), OpMultiply.Apply(math.MaxInt32, math.MaxUint32))
	assert.Equal(t, int64(math.MaxUint32), OpAdd.Apply(math.MaxUint32, 0))
}

func TestOpcodeJSON(t *testing.T) {
	data, err := json.Marshal(struct{ Op Opcode }{OpMultiply})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Op":"Multiply"}`, string(data))

	var v struct{ Op Opcode }
	require.NoError(t, json.Unmarshal([]byte(`{"Op":"1"}`), &v))
	assert.Equal(t, OpSubtract, v.Op)

	_, err = json.Marshal(struct{ Op Opcode }{Opcode(7)})
	assert.Error(t, err)

	for in, want := range map[string]Opcode{
		`{"op":0}`: OpAdd, `{"op":2}`: OpMultiply, `{"op":"Subtract"}`: OpSubtract, `{"op":"*"}`: OpMultiply,
	} {
		var body struct {
			Op *Opcode `json:"op"`
		}
		require.NoError(t, json.Unmarshal([]byte(in), &body), in)
		op, err := RequireOpcode(body.Op)
		require.NoError(t, err, in)
		assert.Equal(t, want, op, in)
	}

	for _, in := range []string{`{"op":3}`, `{"op":-1}`, `{"op":1.5}`, `{"op":"div"}`, `{"op":true}`} {
		var body struct {
			Op *Opcode `json:"op"`
		}
		assert.Error(t, json.Unmarshal([]byte(in), &body), in)
	}

	var missing struct {
		Op *Opcode `json:"op"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1}`), &missing))
	_, err = RequireOpcode(missing.Op)
	var ire *InvalidRequestError
	assert.True(t, errors.As(err, &ire))

	var plain struct{ Op Opcode }
	err = json.Unmarshal([]byte(`{"Op":null}`), &plain)
	assert.True(t, errors.As(err, &ire))
}

func TestParseHash(t *testing.T) {
	h, err := ParseHash(demoContract)
	require.NoError(t, err)
	assert.Equal(t, demoContract, h.String())
	assert.Equal(t, byte(0x24), h[0])
	assert.Equal(t, byte(0xe6), h[31])

	_, err = ParseHash("0x1234")
	assert.Error(t, err)
	_, err = ParseHash("0xzz8e8fa75194f1dd671bdb220b59936a13fed06f8bd29ed1e5e06e6de2b974e6")
	assert.Error(t, err)

	assert.True(t, Hash{}.IsZero())
	assert.Equal(t, byte(1), BytesToHash([]byte{1})[31])
}

func TestNewTransactionRequest(t *testing.T) {
	contract, err := ParseHash(demoContract)
	require.NoError(t, err)

	req, err := NewTransactionRequest(contract, 10, 5, OpAdd)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), req.OperandA)
	assert.Equal(t, uint32(5), req.OperandB)
	assert.Equal(t, int64(15), req.Expected())
	assert.Equal(t, "10 + 5", req.String())

	bad := []struct {
		a, b float64
		op   Opcode
	}{
		{math.NaN(), 5, OpAdd},
		{10, math.Inf(1), OpAdd},
		{1.5, 5, OpAdd},
		{-1, 5, OpAdd},
		{10, math.MaxUint32 + 1, OpAdd},
		{10, 5, Opcode(3)},
		{math.MaxUint32, math.MaxUint32, OpMultiply},
		{math.MaxUint32, 1<<31 + 1, OpMultiply},
	}
	req, err = NewTransactionRequest(contract, math.MaxUint32, math.MaxInt32, OpMultiply)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxUint32)*int64(math.MaxInt32), req.Expected())
	_, err = NewTransactionRequest(contract, math.MaxUint32, math.MaxUint32, OpAdd)
	require.NoError(t, err)

	for _, c := range bad {
		_, err := NewTransactionRequest(contract, c.a, c.b, c.op)
		var ire *InvalidRequestError
		assert.True(t, errors.As(err, &ire), "%v %v %v", c.a, c.b, c.op)
	}

	_, err = NewTransactionRequest(Hash{}, 1, 2, OpAdd)
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	block := BytesToHash([]byte{0xaa})

	assert.True(t, Idle.CanTransitionTo(Connecting))
	assert.True(t, Connecting.CanTransitionTo(Submitted))
	assert.True(t, Submitted.CanTransitionTo(Submitted))
	assert.True(t, Submitted.CanTransitionTo(InBlock(block)))
	assert.True(t, InBlock(block).CanTransitionTo(InBlock(block)))
	assert.True(t, InBlock(block).CanTransitionTo(Finalized(block)))
	assert.True(t, Submitted.CanTransitionTo(Failed("dropped")))

	assert.False(t, InBlock(block).CanTransitionTo(Submitted))
	assert.False(t, Finalized(block).CanTransitionTo(Failed("late")))
	assert.False(t, Failed("x").CanTransitionTo(InBlock(block)))

	assert.True(t, Finalized(block).IsTerminal())
	assert.True(t, Failed("x").IsTerminal())
	assert.False(t, InBlock(block).IsTerminal())

	assert.Equal(t, "In block: "+block.String(), InBlock(block).String())
	assert.Equal(t, "Failed: invalid", Failed("invalid").String())
}

func TestStatusJSON(t *testing.T) {
	block := BytesToHash([]byte{0x01})
	data, err := json.Marshal(InBlock(block))
	require.NoError(t, err)

	var back TransactionStatus
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, InBlock(block), back)
	assert.Contains(t, string(data), `"kind":"InBlock"`)
}
