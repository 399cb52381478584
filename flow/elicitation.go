package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/paymcp/paymcp-go/ctxadapter"
	"github.com/paymcp/paymcp-go/paylog"
	"github.com/paymcp/paymcp-go/price"
	"github.com/paymcp/paymcp-go/provider"
	"github.com/paymcp/paymcp-go/response"
	"github.com/paymcp/paymcp-go/statehelper"
	"github.com/paymcp/paymcp-go/store"
)

const defaultElicitAttempts = 5

// ErrNoElicitCapability describes a host context without elicitation
// support. NewElicitation does not check for the capability at
// construction (it depends on the per-call context, not the tool);
// instead the wrapper checks each call's context and, when the
// capability is missing, returns an error envelope carrying this
// error's text without touching the provider or the store.
var ErrNoElicitCapability = errors.New("flow: host context does not support elicitation")

// NewElicitation builds the elicitation-flow wrapper for toolName. It
// blocks for the call's duration, repeatedly prompting the user via
// the adapter's elicit capability and checking provider status
// between prompts, up to ElicitAttempts tries.
func NewElicitation(deps Deps, toolName string, info price.Info, handler price.Handler) price.Handler {
	attempts := deps.ElicitAttempts
	if attempts <= 0 {
		attempts = defaultElicitAttempts
	}

	return func(ctx context.Context, hostCtx any, args map[string]any) (any, error) {
		adapted := ctxadapter.Extract(hostCtx)
		if !adapted.HasElicit() {
			return response.Error(ErrNoElicitCapability.Error(), response.ReasonProviderUnavailable), nil
		}

		pre, env, err := runPreamble(ctx, adapted, deps, toolName, args, handler, hostCtx)
		if err != nil {
			return nil, err
		}
		if env != nil {
			return *env, nil
		}

		paymentID, paymentURL, err := createOrReusePayment(ctx, pre, deps, toolName, info, args)
		if err != nil {
			paylog.Error("elicitation: failed to create payment", paylog.LogContext{
				SessionID: adapted.SessionID, Tool: toolName, Fields: map[string]any{"error": err.Error()},
			})
			return response.Error(fmt.Sprintf("Failed to create payment: %v", err), response.ReasonProviderUnavailable), nil
		}

		message := paymentMessage(deps.Webview, paymentURL, info.Price, info.Currency)

		var finalStatus provider.Status
		reachedTerminal := false

		for i := 0; i < attempts; i++ {
			result, err := adapted.Elicit(ctx, message)
			if err != nil {
				statehelper.UpdatePaymentStatus(deps.Store, adapted.SessionID, store.StatusTimeout)
				return nil, fmt.Errorf("elicitation: %w", err)
			}

			if result.Action == ctxadapter.ElicitCancel || result.Action == ctxadapter.ElicitDecline {
				statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
				return response.Canceled("Payment canceled by user"), nil
			}

			status, err := deps.Provider.GetPaymentStatus(ctx, paymentID)
			if err != nil {
				paylog.Error("elicitation: provider status check failed", paylog.LogContext{
					SessionID: adapted.SessionID, PaymentID: paymentID, Tool: toolName, Fields: map[string]any{"error": err.Error()},
				})
				continue
			}

			switch status.Status {
			case provider.StatusSucceeded, provider.StatusCanceled, provider.StatusFailed, provider.StatusExpired:
				finalStatus = status.Status
				reachedTerminal = true
			}
			if reachedTerminal {
				break
			}
		}

		if reachedTerminal && finalStatus == provider.StatusSucceeded {
			statehelper.UpdatePaymentStatus(deps.Store, adapted.SessionID, store.StatusPaid)
			result, err := handler(ctx, hostCtx, args)
			if err != nil {
				return nil, err
			}
			statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
			return response.Success("Tool completed after payment", paymentID, result), nil
		}

		if reachedTerminal {
			statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
			return response.Canceled(fmt.Sprintf("Payment %s", finalStatus)), nil
		}

		// Attempts exhausted without reaching a terminal state: retain
		// state and let the client retry by calling this same tool again.
		statehelper.UpdatePaymentStatus(deps.Store, adapted.SessionID, store.StatusPending)
		pendingEnv := response.Pending(
			"Still waiting for payment confirmation, please try again",
			paymentID, paymentURL, toolName,
			fmt.Sprintf("%.2f", info.Price), info.Currency,
		)
		return pendingEnv, nil
	}
}
