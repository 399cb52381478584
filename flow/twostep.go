package flow

import (
	"context"
	"fmt"

	"github.com/paymcp/paymcp-go/ctxadapter"
	"github.com/paymcp/paymcp-go/paylog"
	"github.com/paymcp/paymcp-go/price"
	"github.com/paymcp/paymcp-go/provider"
	"github.com/paymcp/paymcp-go/response"
	"github.com/paymcp/paymcp-go/statehelper"
	"github.com/paymcp/paymcp-go/store"
)

// ConfirmToolName is the companion tool the registrar must additionally
// register under two-step flow, alongside the wrapped initiate
// handler.
func ConfirmToolName(toolName string) string {
	return fmt.Sprintf("confirm_%s_payment", toolName)
}

// NewTwoStep builds the initiate-step wrapper for toolName. The
// returned handler never blocks: it either returns a pending envelope
// pointing at ConfirmToolName(toolName), or (when a prior payment for
// this session already succeeded) executes immediately.
func NewTwoStep(deps Deps, toolName string, info price.Info, handler price.Handler) price.Handler {
	return func(ctx context.Context, hostCtx any, args map[string]any) (any, error) {
		adapted := ctxadapter.Extract(hostCtx)

		pre, env, err := runPreamble(ctx, adapted, deps, toolName, args, handler, hostCtx)
		if err != nil {
			return nil, err
		}
		if env != nil {
			return *env, nil
		}

		paymentID, paymentURL, err := createOrReusePayment(ctx, pre, deps, toolName, info, args)
		if err != nil {
			paylog.Error("two-step: failed to create payment", paylog.LogContext{
				SessionID: adapted.SessionID, Tool: toolName, Fields: map[string]any{"error": err.Error()},
			})
			env := response.Error(fmt.Sprintf("Failed to create payment: %v", err), response.ReasonProviderUnavailable)
			return env, nil
		}

		message := paymentMessage(deps.Webview, paymentURL, info.Price, info.Currency)
		env2 := response.Pending(message, paymentID, paymentURL, ConfirmToolName(toolName), fmt.Sprintf("%.2f", info.Price), info.Currency)
		return env2, nil
	}
}

// NewTwoStepConfirm builds the companion confirm_<tool>_payment
// handler. It takes a single "payment_id" argument.
func NewTwoStepConfirm(deps Deps, toolName string, handler price.Handler) price.Handler {
	return func(ctx context.Context, hostCtx any, args map[string]any) (any, error) {
		paymentID, _ := args["payment_id"].(string)

		paylog.Info("confirm_tool: received payment_id", paylog.LogContext{PaymentID: paymentID, Tool: toolName})

		state, sessionKey, ok := lookupByPaymentID(deps.Store, paymentID)
		if !ok {
			return response.Error("Unknown or expired payment_id", response.ReasonInvalidPaymentID), nil
		}

		status, err := deps.Provider.GetPaymentStatus(ctx, paymentID)
		if err != nil {
			paylog.Error("confirm_tool: failed to check payment status", paylog.LogContext{
				PaymentID: paymentID, Tool: toolName, Fields: map[string]any{"error": err.Error()},
			})
			return response.Error(fmt.Sprintf("Failed to check payment status: %v", err), response.ReasonProviderError), nil
		}

		if status.Status != provider.StatusSucceeded {
			return response.Error(fmt.Sprintf("Payment status is %s, expected 'paid'", status.Status), response.ReasonPaymentNotComplete), nil
		}

		result, err := handler(ctx, hostCtx, state.ToolArgs)
		if err != nil {
			return nil, err
		}

		statehelper.CleanupPaymentState(deps.Store, sessionKey)

		return response.Success("Tool completed after payment", paymentID, result), nil
	}
}

// lookupByPaymentID resolves stored args for a payment_id, preferring
// the store's payment-id index; it falls back to treating paymentID
// itself as the storage key for backends where that is how the state
// was written.
func lookupByPaymentID(st store.Store, paymentID string) (*store.PaymentState, string, bool) {
	if st == nil || paymentID == "" {
		return nil, "", false
	}
	if state, ok := st.GetByPaymentID(paymentID); ok {
		key := state.SessionID
		if key == "" {
			key = paymentID
		}
		return state, key, true
	}
	if state, ok := st.Get(paymentID); ok {
		return state, paymentID, true
	}
	return nil, "", false
}
