// Package store implements PayMCP's only persistence boundary: a
// keyed, TTL-bounded map of PaymentState with a secondary index on
// provider payment id.
package store

import (
	"time"

	"github.com/paymcp/paymcp-go/paylog"
	"github.com/paymcp/paymcp-go/provider"
)

// Status is the flow-local tracking status of a PaymentState. Unlike
// provider.Status, it also records states the provider never reports
// (requested, timeout) that only the flow engine assigns.
type Status string

const (
	StatusRequested Status = "requested"
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
	StatusTimeout   Status = "timeout"
)

// PaymentState is the sole persisted entity in PayMCP.
type PaymentState struct {
	SessionID  string
	PaymentID  string
	PaymentURL string
	ToolName   string
	ToolArgs   map[string]any
	Status     Status
	CreatedAt  time.Time
	// Timestamp is the TTL anchor; refreshed on every write.
	Timestamp time.Time
}

// Clone returns a deep-enough copy so that callers holding onto a
// PaymentState returned from Get cannot mutate the store's internal
// copy through the ToolArgs map.
func (s *PaymentState) Clone() *PaymentState {
	if s == nil {
		return nil
	}
	out := *s
	if s.ToolArgs != nil {
		out.ToolArgs = make(map[string]any, len(s.ToolArgs))
		for k, v := range s.ToolArgs {
			out.ToolArgs[k] = v
		}
	}
	return &out
}

// Store is the four-operation persistence contract every backend
// (in-memory, external KV) must satisfy.
type Store interface {
	// Put writes state under key with the store's TTL, indexing
	// state.PaymentID -> key in the same operation. Overwrites are
	// total; if the previously-stored state under key had a different
	// PaymentID, that stale index entry is removed as part of the
	// write.
	Put(key string, state *PaymentState) error

	// Get returns the state stored under key, or (nil, false) if
	// absent or expired. Expired entries are removed lazily.
	Get(key string) (*PaymentState, bool)

	// GetByPaymentID returns the state indexed under paymentID, or
	// (nil, false) if the index is stale or the target has expired.
	GetByPaymentID(paymentID string) (*PaymentState, bool)

	// Delete removes the state under key and its payment-id index
	// entry, if any. No-op if absent.
	Delete(key string) error
}

// ProviderStatusToStoreStatus maps a provider-reported status onto the
// store's richer status vocabulary. Unrecognized provider statuses are
// conservatively treated as pending, per spec: "Any other string is
// reported as pending (conservative) and logged."
func ProviderStatusToStoreStatus(s provider.Status) Status {
	switch s {
	case provider.StatusSucceeded:
		return StatusPaid
	case provider.StatusCanceled:
		return StatusCanceled
	case provider.StatusFailed:
		return StatusFailed
	case provider.StatusExpired:
		return StatusExpired
	case provider.StatusPending, provider.StatusProcessing:
		return StatusPending
	default:
		paylog.Warn("store: unrecognized provider status, treating as pending", paylog.LogContext{
			Fields: map[string]any{"status": string(s)},
		})
		return StatusPending
	}
}
