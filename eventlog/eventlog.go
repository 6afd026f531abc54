// Package eventlog holds the lines shown to the user for the most recent
// block inclusion. Each update replaces the whole log.
package eventlog

import (
	"fmt"
	"sync"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
)

// ResultPrefix starts the trailing result line
const ResultPrefix = "TRANSACTION RESULT: "

// Publisher receives every replaced snapshot
type Publisher interface {
	Publish(entries []string) error
}

// Log is safe for concurrent use; the last Replace wins
type Log struct {
	mu         sync.RWMutex
	entries    []string
	publishers []Publisher
}

// New log with optional snapshot publishers
func New(publishers ...Publisher) *Log {
	return &Log{publishers: publishers}
}

// Replace swaps the whole log
func (l *Log) Replace(entries []string) {
	snapshot := append([]string(nil), entries...)
	l.mu.Lock()
	l.entries = snapshot
	publishers := l.publishers
	l.mu.Unlock()

	for _, p := range publishers {
		if err := p.Publish(snapshot); err != nil {
			log.Warn("publish event log failed", "err", err)
		}
	}
}

// Current returns a copy of the entries
func (l *Log) Current() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.entries...)
}

// Clear empties the log without publishing
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// EventLine formats one runtime event
func EventLine(section, method string) string {
	return fmt.Sprintf("Event: %s.%s", section, method)
}

// MissingResultLine is written when no result could be read
func MissingResultLine() string {
	return ResultPrefix + "not found"
}

// ResultLine formats the calculation result
func ResultLine(value int64) string {
	return fmt.Sprintf("%s%d", ResultPrefix, value)
}
