package tools

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

func TestNotify(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "bot@example.com", "Calc Bot", "secret", []string{"ops@example.com"}, nil)
	var (
		sent *email.Email
		addr string
	)
	n.send = func(e *email.Email, a string, _ smtp.Auth) error {
		sent, addr = e, a
		return nil
	}

	rec := &types.SubmissionRecord{
		ID:       "abc",
		Address:  "5Grw",
		OperandA: 10,
		OperandB: 5,
		Opcode:   "Add",
		Status:   types.StatusFailed,
		Reason:   "transaction invalid",
	}
	require.NoError(t, n.Notify(rec))
	require.NotNil(t, sent)
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, "Calc Bot <bot@example.com>", sent.From)
	assert.Equal(t, []string{"ops@example.com"}, sent.To)
	assert.Equal(t, "[calc] submission abc failed", sent.Subject)
	assert.Contains(t, string(sent.Text), "reason: transaction invalid")
	assert.Contains(t, string(sent.Text), "request: 10 Add 5")
	assert.NotContains(t, string(sent.Text), "txhash")

	n.send = func(*email.Email, string, smtp.Auth) error { return errors.New("refused") }
	assert.Error(t, n.Notify(rec))
}
