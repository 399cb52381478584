package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "paymcp_test.db")
	s, err := NewSQLiteStore(dbPath, "test", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_PutGet(t *testing.T) {
	s := newTestSQLiteStore(t, time.Hour)

	require.NoError(t, s.Put("sess_1", &PaymentState{SessionID: "sess_1", PaymentID: "pay_1", ToolName: "gen"}))

	got, ok := s.Get("sess_1")
	require.True(t, ok)
	assert.Equal(t, "pay_1", got.PaymentID)
	assert.Equal(t, "gen", got.ToolName)
}

func TestSQLiteStore_GetMissingKeyReturnsFalse(t *testing.T) {
	s := newTestSQLiteStore(t, time.Hour)
	_, ok := s.Get("nope")
	assert.False(t, ok)
}

// TestSQLiteStore_IndexConsistency covers testable property #5: for
// every state present in the store, GetByPaymentID(state.payment_id)
// returns that same state, and after Delete neither lookup returns it.
func TestSQLiteStore_IndexConsistency(t *testing.T) {
	s := newTestSQLiteStore(t, time.Hour)
	require.NoError(t, s.Put("sess_1", &PaymentState{SessionID: "sess_1", PaymentID: "pay_1"}))

	byKey, ok := s.Get("sess_1")
	require.True(t, ok)
	byIndex, ok := s.GetByPaymentID("pay_1")
	require.True(t, ok)
	assert.Equal(t, byKey.PaymentID, byIndex.PaymentID)

	require.NoError(t, s.Delete("sess_1"))

	_, ok = s.Get("sess_1")
	assert.False(t, ok)
	_, ok = s.GetByPaymentID("pay_1")
	assert.False(t, ok)
}

func TestSQLiteStore_PutReindexesOnPaymentIDChange(t *testing.T) {
	s := newTestSQLiteStore(t, time.Hour)
	require.NoError(t, s.Put("sess_1", &PaymentState{SessionID: "sess_1", PaymentID: "pay_1"}))
	require.NoError(t, s.Put("sess_1", &PaymentState{SessionID: "sess_1", PaymentID: "pay_2"}))

	_, ok := s.GetByPaymentID("pay_1")
	assert.False(t, ok, "stale index entry for the replaced payment id must not survive")

	state, ok := s.GetByPaymentID("pay_2")
	require.True(t, ok)
	assert.Equal(t, "sess_1", state.SessionID)
}

func TestSQLiteStore_DeleteUnknownKeyIsNoop(t *testing.T) {
	s := newTestSQLiteStore(t, time.Hour)
	assert.NoError(t, s.Delete("nope"))
}

// TestSQLiteStore_TTLExpiry covers testable property #6: a state
// written at t is invisible to all operations at t+TTL+ε. SQLite's
// expires_at is a Unix millisecond timestamp; this uses a one-second
// TTL and sleeps past it.
func TestSQLiteStore_TTLExpiry(t *testing.T) {
	s := newTestSQLiteStore(t, time.Second)
	require.NoError(t, s.Put("sess_1", &PaymentState{SessionID: "sess_1", PaymentID: "pay_1"}))

	_, ok := s.Get("sess_1")
	require.True(t, ok, "state must be visible before TTL elapses")

	time.Sleep(1200 * time.Millisecond)

	_, ok = s.Get("sess_1")
	assert.False(t, ok, "Get must not return a state past its TTL")
	_, ok = s.GetByPaymentID("pay_1")
	assert.False(t, ok, "GetByPaymentID must not return a state past its TTL")
}

func TestSQLiteStore_ZeroTTLNeverExpires(t *testing.T) {
	s := newTestSQLiteStore(t, 0)
	require.NoError(t, s.Put("sess_1", &PaymentState{SessionID: "sess_1", PaymentID: "pay_1"}))
	time.Sleep(10 * time.Millisecond)

	_, ok := s.Get("sess_1")
	assert.True(t, ok)
}

func TestSQLiteStore_Stats(t *testing.T) {
	s := newTestSQLiteStore(t, time.Hour)
	require.NoError(t, s.Put("sess_1", &PaymentState{SessionID: "sess_1", PaymentID: "pay_1"}))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["entries"])
}
