package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject snapshots are published on
const DefaultSubject = "calc.eventlog"

// NatsPublisher publishes snapshots as json to a NATS subject
type NatsPublisher struct {
	conn    *nats.Conn
	subject string
}

type snapshotMessage struct {
	Timestamp int64    `json:"timestamp"`
	Entries   []string `json:"entries"`
}

// NewNatsPublisher connects to url
func NewNatsPublisher(url, subject string) (*NatsPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("calcserver eventlog"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsPublisher{conn: conn, subject: subject}, nil
}

// Publish implements Publisher
func (p *NatsPublisher) Publish(entries []string) error {
	data, err := json.Marshal(&snapshotMessage{
		Timestamp: time.Now().Unix(),
		Entries:   entries,
	})
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (p *NatsPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
