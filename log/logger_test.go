package log

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now = time.Now().Unix()
	err = fmt.Errorf("error message")
)

// Fatal Fatalf is not test
func TestLogger(t *testing.T) {
	SetLogger(6, false, true)

	WithFields("timestamp", now, "err", err).Tracef("test WithFields Tracef at %v", now)
	WithFields("timestamp", now, "err", err).Debugf("test WithFields Debugf at %v", now)
	WithFields("timestamp", now, "err", err).Infof("test WithFields Infof at %v", now)
	WithFields("timestamp", now, "err", err).Warnf("test WithFields Warnf at %v", now)
	WithFields("timestamp", now, "err", err).Errorf("test WithFields Errorf at %v", now)
	assert.Panics(t, func() { WithFields("timestamp", now, "err", err).Panicf("test WithFields Panicf at %v", now) }, "not panic")

	Trace("test Trace", "timestamp", now, "err", err)
	Debug("test Debug", "timestamp", now, "err", err)
	Info("test Info", "timestamp", now, "err", err)
	Warn("test Warn", "timestamp", now, "err", err)
	Error("test Error", "timestamp", now, "err", err)
	Printf("test Printf, timestamp=%v err=%v", now, err)

	// odd number of fields and non string keys are tolerated
	Info("test odd fields", "timestamp")
	Info("test bad key", 1, 2)

	assert.Panics(t, func() { Panic("test Panic", "timestamp", now, "err", err) }, "not panic")
	assert.Panics(t, func() { Panicf("test Panicf, timestamp=%v err=%v", now, err) }, "not panic")
}

func TestJSONFormat(t *testing.T) {
	SetLogger(4, true, false)
	assert.True(t, JSONFormat)
	SetLogger(4, false, false)
	assert.False(t, JSONFormat)
}

func TestSetLogFile(t *testing.T) {
	defer SetLogger(4, false, false)

	require.NoError(t, SetLogFile("", 0, 0))

	logFile := filepath.Join(t.TempDir(), "calc.log")
	require.NoError(t, SetLogFile(logFile, 1, 1))
	Info("written to file", "key", "value")

	_, statErr := os.Lstat(logFile)
	assert.NoError(t, statErr, "link to current log file should exist")
}
