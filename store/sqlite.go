package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/paymcp/paymcp-go/paylog"
)

// SQLiteStore is the spec's required "External KV" backend, given a
// concrete realization with a real embedded database rather than left
// abstract: a primary table keyed by the namespaced state key plus an
// index table mapping payment id back to that key, each row carrying
// its own expires_at.
//
// Grounded on the multi-process-tuned SQLite storage the teacher uses
// for tenant configuration (WAL mode, busy-timeout pragmas, retry on
// SQLITE_BUSY), repointed at PaymentState persistence.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	prefix string
	mu     sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed state
// store at dbPath. prefix namespaces primary keys as "<prefix>:<key>".
// Index rows live in the separate paymcp_state_index table keyed by
// the bare payment id; the prefix is not applied to them.
func NewSQLiteStore(dbPath, prefix string, ttl time.Duration) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	s := &SQLiteStore{db: db, path: dbPath, ttl: ttl, prefix: prefix}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS paymcp_state (
		key         TEXT PRIMARY KEY,
		payment_id  TEXT NOT NULL,
		state_json  TEXT NOT NULL,
		expires_at  INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS paymcp_state_index (
		payment_id  TEXT PRIMARY KEY,
		key         TEXT NOT NULL,
		expires_at  INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) retry(op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= 3; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "SQLITE_BUSY") && !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		if attempt < 3 {
			time.Sleep(time.Duration(10*(1<<attempt)) * time.Millisecond)
		}
	}
	return fmt.Errorf("store: operation failed after retries: %w", lastErr)
}

func (s *SQLiteStore) nsKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *SQLiteStore) expiresAt() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return time.Now().Add(s.ttl).UnixMilli()
}

// Put writes state primary-then-index, per §4.2's ordering guarantee.
func (s *SQLiteStore) Put(key string, state *PaymentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := state.Clone()
	stored.Timestamp = time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.Timestamp
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}
	nsk := s.nsKey(key)
	exp := s.expiresAt()

	return s.retry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var oldPaymentID string
		_ = tx.QueryRow(`SELECT payment_id FROM paymcp_state WHERE key = ?`, nsk).Scan(&oldPaymentID)

		if _, err := tx.Exec(`
			INSERT INTO paymcp_state (key, payment_id, state_json, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				payment_id = excluded.payment_id,
				state_json = excluded.state_json,
				expires_at = excluded.expires_at
		`, nsk, stored.PaymentID, string(payload), exp); err != nil {
			return fmt.Errorf("write primary: %w", err)
		}

		if oldPaymentID != "" && oldPaymentID != stored.PaymentID {
			if _, err := tx.Exec(`DELETE FROM paymcp_state_index WHERE payment_id = ?`, oldPaymentID); err != nil {
				return fmt.Errorf("clear stale index: %w", err)
			}
		}
		if stored.PaymentID != "" {
			if _, err := tx.Exec(`
				INSERT INTO paymcp_state_index (payment_id, key, expires_at)
				VALUES (?, ?, ?)
				ON CONFLICT(payment_id) DO UPDATE SET key = excluded.key, expires_at = excluded.expires_at
			`, stored.PaymentID, nsk, exp); err != nil {
				return fmt.Errorf("write index: %w", err)
			}
		}
		return tx.Commit()
	})
}

func (s *SQLiteStore) Get(key string) (*PaymentState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nsk := s.nsKey(key)
	var stateJSON string
	var expiresAt int64
	err := s.retry(func() error {
		return s.db.QueryRow(`SELECT state_json, expires_at FROM paymcp_state WHERE key = ?`, nsk).Scan(&stateJSON, &expiresAt)
	})
	if err != nil {
		if err != sql.ErrNoRows {
			paylog.GetGlobalLogger().Warn("store: sqlite get failed", paylog.LogContext{Fields: map[string]any{"error": err.Error()}})
		}
		return nil, false
	}
	if s.isExpired(expiresAt) {
		s.deleteLocked(nsk)
		return nil, false
	}
	var state PaymentState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, false
	}
	return &state, true
}

func (s *SQLiteStore) GetByPaymentID(paymentID string) (*PaymentState, bool) {
	s.mu.Lock()
	var key string
	var idxExpiresAt int64
	err := s.retry(func() error {
		return s.db.QueryRow(`SELECT key, expires_at FROM paymcp_state_index WHERE payment_id = ?`, paymentID).Scan(&key, &idxExpiresAt)
	})
	s.mu.Unlock()
	if err != nil {
		return nil, false
	}
	if s.isExpired(idxExpiresAt) {
		s.mu.Lock()
		_, _ = s.db.Exec(`DELETE FROM paymcp_state_index WHERE payment_id = ?`, paymentID)
		s.mu.Unlock()
		return nil, false
	}
	// key is already namespaced in storage; strip prefix for Get's re-namespacing.
	unprefixed := strings.TrimPrefix(key, s.prefix+":")
	return s.Get(unprefixed)
}

func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(s.nsKey(key))
}

// deleteLocked removes index-then-primary, per §4.2's delete ordering
// guarantee. Caller must hold s.mu.
func (s *SQLiteStore) deleteLocked(nsk string) error {
	return s.retry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM paymcp_state_index WHERE key = ?`, nsk); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM paymcp_state WHERE key = ?`, nsk); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (s *SQLiteStore) isExpired(expiresAt int64) bool {
	return expiresAt > 0 && time.Now().UnixMilli() > expiresAt
}

// Stats reports row counts for the admin /stats surface.
func (s *SQLiteStore) Stats() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM paymcp_state`).Scan(&total); err != nil {
		return nil, err
	}
	stats := map[string]any{"entries": total, "db_path": s.path}
	if fi, err := os.Stat(s.path); err == nil {
		stats["db_size_bytes"] = fi.Size()
	}
	return stats, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
