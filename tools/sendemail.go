// Package tools holds the e-mail failure notifier.
package tools

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

// EmailNotifier mails a report for every failed submission
type EmailNotifier struct {
	smtpServerURL string
	auth          smtp.Auth
	fromWithName  string
	to, cc        []string

	send func(e *email.Email, addr string, a smtp.Auth) error
}

// NewEmailNotifier init email config
func NewEmailNotifier(server string, port int, from, name, password string, to, cc []string) *EmailNotifier {
	n := &EmailNotifier{
		smtpServerURL: net.JoinHostPort(server, fmt.Sprintf("%d", port)),
		auth:          smtp.PlainAuth("", from, password, server),
		fromWithName:  from,
		to:            to,
		cc:            cc,
		send: func(e *email.Email, addr string, a smtp.Auth) error {
			return e.Send(addr, a)
		},
	}
	if name != "" {
		n.fromWithName = fmt.Sprintf("%s <%s>", name, from)
	}
	return n
}

// SendEmail send email
func (n *EmailNotifier) SendEmail(subject, content string) error {
	e := email.NewEmail()
	e.From = n.fromWithName
	e.To = n.to
	e.Cc = n.cc
	e.Subject = subject
	e.Text = []byte(content)
	return n.send(e, n.smtpServerURL, n.auth)
}

// Notify implements the pipeline notifier
func (n *EmailNotifier) Notify(rec *types.SubmissionRecord) error {
	err := n.SendEmail(FailureSubject(rec), FailureReport(rec))
	if err != nil {
		log.Warn("send failure email failed", "id", rec.ID, "err", err)
		return err
	}
	log.Info("send failure email success", "id", rec.ID, "to", n.to)
	return nil
}

// FailureSubject mail subject of a failed submission
func FailureSubject(rec *types.SubmissionRecord) string {
	return fmt.Sprintf("[calc] submission %s failed", rec.ID)
}

// FailureReport mail body of a failed submission
func FailureReport(rec *types.SubmissionRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "id: %s\n", rec.ID)
	fmt.Fprintf(&sb, "account: %s\n", rec.Address)
	fmt.Fprintf(&sb, "contract: %s\n", rec.Contract)
	fmt.Fprintf(&sb, "request: %d %s %d\n", rec.OperandA, rec.Opcode, rec.OperandB)
	fmt.Fprintf(&sb, "nonce: %d\n", rec.Nonce)
	if rec.TxHash != "" {
		fmt.Fprintf(&sb, "txhash: %s\n", rec.TxHash)
	}
	fmt.Fprintf(&sb, "reason: %s\n", rec.Reason)
	return sb.String()
}
