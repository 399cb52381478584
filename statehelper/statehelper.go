// Package statehelper implements the session-recovery logic that
// lets a payment survive a client disconnect: check for an
// in-progress payment before creating a new one, persist enough to
// resume after a timeout, track status as it progresses, and clean up
// once a payment reaches a terminal state. Grounded on the original
// implementation's utils/state.py.
package statehelper

import (
	"context"
	"time"

	"github.com/paymcp/paymcp-go/paylog"
	"github.com/paymcp/paymcp-go/provider"
	"github.com/paymcp/paymcp-go/store"
)

// CheckResult is the outcome of CheckExistingPayment.
type CheckResult struct {
	// PaymentID/PaymentURL are set when an existing payment was found
	// and should be reused (still pending) or reported (already paid).
	PaymentID  string
	PaymentURL string
	// StoredArgs is the original tool call's arguments, only populated
	// when the found payment already succeeded and was raised for the
	// same tool, so the original call can be replayed verbatim.
	StoredArgs map[string]any
	// ExecuteImmediately is true when the existing payment already
	// succeeded, so the wrapped tool should run right away instead of
	// starting a new payment flow.
	ExecuteImmediately bool
}

// CheckExistingPayment looks up any payment already on file for
// sessionID and reconciles it against the provider's live status
// before deciding whether to reuse it, skip straight to execution, or
// let the caller start a fresh payment. A nil store or empty sessionID
// disables recovery entirely (returns a zero CheckResult).
func CheckExistingPayment(ctx context.Context, st store.Store, p provider.Provider, sessionID, toolName string) CheckResult {
	if sessionID == "" || st == nil {
		return CheckResult{}
	}

	state, ok := st.Get(sessionID)
	if !ok {
		return CheckResult{}
	}

	paylog.Info("found existing payment state", paylog.LogContext{SessionID: sessionID, PaymentID: state.PaymentID})

	status, err := p.GetPaymentStatus(ctx, state.PaymentID)
	if err != nil {
		paylog.Warn("error checking payment status, discarding stale state", paylog.LogContext{
			SessionID: sessionID, PaymentID: state.PaymentID, Fields: map[string]any{"error": err.Error()},
		})
		_ = st.Delete(sessionID)
		return CheckResult{}
	}

	switch status.Status {
	case provider.StatusSucceeded:
		paylog.Info("previous payment already completed, executing original request", paylog.LogContext{
			SessionID: sessionID, PaymentID: state.PaymentID,
		})
		_ = st.Delete(sessionID)
		if state.ToolName == toolName {
			return CheckResult{
				PaymentID:          state.PaymentID,
				PaymentURL:         state.PaymentURL,
				StoredArgs:         state.ToolArgs,
				ExecuteImmediately: true,
			}
		}
		// Different tool: the payment covers the session, not the
		// specific call, so replay with the caller's current args.
		return CheckResult{
			PaymentID:          state.PaymentID,
			PaymentURL:         state.PaymentURL,
			ExecuteImmediately: true,
		}

	case provider.StatusPending, provider.StatusProcessing:
		paylog.Info("payment still pending, reusing existing payment", paylog.LogContext{
			SessionID: sessionID, PaymentID: state.PaymentID,
		})
		return CheckResult{PaymentID: state.PaymentID, PaymentURL: state.PaymentURL}

	case provider.StatusCanceled, provider.StatusFailed, provider.StatusExpired:
		paylog.Info("previous payment in terminal failure state, creating new payment", paylog.LogContext{
			SessionID: sessionID, PaymentID: state.PaymentID,
		})
		_ = st.Delete(sessionID)
		return CheckResult{}
	}

	return CheckResult{PaymentID: state.PaymentID, PaymentURL: state.PaymentURL}
}

// SavePaymentState persists a freshly created payment so it can be
// recovered after a client disconnect. A nil store or empty sessionID
// makes this a no-op: recovery is simply unavailable for the call.
func SavePaymentState(st store.Store, sessionID, paymentID, paymentURL, toolName string, toolArgs map[string]any, status store.Status) {
	if sessionID == "" || st == nil {
		return
	}
	paylog.Info("storing payment state", paylog.LogContext{SessionID: sessionID, PaymentID: paymentID})
	now := time.Now()
	_ = st.Put(sessionID, &store.PaymentState{
		SessionID:  sessionID,
		PaymentID:  paymentID,
		PaymentURL: paymentURL,
		ToolName:   toolName,
		ToolArgs:   toolArgs,
		Status:     status,
		CreatedAt:  now,
		Timestamp:  now,
	})
}

// UpdatePaymentStatus updates the status field of an existing session's
// state without disturbing the rest of it. A no-op if no state exists
// for sessionID.
func UpdatePaymentStatus(st store.Store, sessionID string, status store.Status) {
	if sessionID == "" || st == nil {
		return
	}
	state, ok := st.Get(sessionID)
	if !ok {
		paylog.Warn("no state found to update", paylog.LogContext{SessionID: sessionID})
		return
	}
	state.Status = status
	state.Timestamp = time.Now()
	_ = st.Put(sessionID, state)
	paylog.Debug("updated payment status", paylog.LogContext{SessionID: sessionID, PaymentID: state.PaymentID, Fields: map[string]any{"status": string(status)}})
}

// CleanupPaymentState removes a session's payment state. Call this
// after a successful execution, a cancellation, or a non-recoverable
// failure — never after a plain timeout, since the payment might
// still complete.
func CleanupPaymentState(st store.Store, sessionID string) {
	if sessionID == "" || st == nil {
		return
	}
	_ = st.Delete(sessionID)
}
