package paylog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	waitFor = 200 * time.Millisecond
	tick    = 5 * time.Millisecond
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *recordingSink) Write(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func TestLogger_RespectsMinLevel(t *testing.T) {
	sink := &recordingSink{}
	l := New(Config{EnableConsole: false, MinLevel: LevelWarn, Sink: sink, Service: "test"})

	l.Debug("ignored")
	l.Info("ignored")
	l.Warn("kept")

	assert.Eventually(t, func() bool { return sink.count() == 1 }, waitFor, tick)
}

func TestLogger_ContextFieldsPropagate(t *testing.T) {
	sink := &recordingSink{}
	l := New(Config{EnableConsole: false, MinLevel: LevelDebug, Sink: sink})

	l.Info("flow started", LogContext{SessionID: "sess-1", PaymentID: "pay-1", Tool: "add", Provider: "stub"})

	assert.Eventually(t, func() bool { return sink.count() == 1 }, waitFor, tick)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	entry := sink.entries[0]
	assert.Equal(t, "sess-1", entry.SessionID)
	assert.Equal(t, "pay-1", entry.PaymentID)
	assert.Equal(t, "add", entry.Tool)
	assert.Equal(t, "stub", entry.Provider)
}

func TestContextLogger_WithField(t *testing.T) {
	sink := &recordingSink{}
	l := New(Config{EnableConsole: false, MinLevel: LevelDebug, Sink: sink})
	cl := l.WithContext(LogContext{SessionID: "sess-2"}).WithField("attempt", 3)
	cl.Info("retrying")

	assert.Eventually(t, func() bool { return sink.count() == 1 }, waitFor, tick)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 3, sink.entries[0].Fields["attempt"])
}
