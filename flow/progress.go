package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/paymcp/paymcp-go/ctxadapter"
	"github.com/paymcp/paymcp-go/paylog"
	"github.com/paymcp/paymcp-go/price"
	"github.com/paymcp/paymcp-go/provider"
	"github.com/paymcp/paymcp-go/response"
	"github.com/paymcp/paymcp-go/statehelper"
	"github.com/paymcp/paymcp-go/store"
)

const defaultPollInterval = 3 * time.Second
const defaultMaxWait = 15 * time.Minute

// NewProgress builds the progress-flow wrapper for toolName. Unlike
// two-step, this handler blocks for the call's duration: it opens a
// payment, then polls the provider while pushing progress
// notifications, invoking the underlying tool only once the provider
// reports the payment paid.
func NewProgress(deps Deps, toolName string, info price.Info, handler price.Handler) price.Handler {
	pollInterval := deps.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxWait := deps.MaxWait
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}

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
			paylog.Error("progress: failed to create payment", paylog.LogContext{
				SessionID: adapted.SessionID, Tool: toolName, Fields: map[string]any{"error": err.Error()},
			})
			return response.Error(fmt.Sprintf("Failed to create payment: %v", err), response.ReasonProviderUnavailable), nil
		}

		message := paymentMessage(deps.Webview, paymentURL, info.Price, info.Currency)
		_ = adapted.ReportProgress(ctx, message, 0)

		start := time.Now()
		for {
			elapsed := time.Since(start)
			if elapsed >= maxWait {
				paylog.Warn("progress: budget exhausted, payment left pending for recovery", paylog.LogContext{
					SessionID: adapted.SessionID, PaymentID: paymentID, Tool: toolName,
				})
				statehelper.UpdatePaymentStatus(deps.Store, adapted.SessionID, store.StatusTimeout)
				return response.Error("Payment timed out", response.ReasonTimeout), nil
			}

			select {
			case <-ctx.Done():
				statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
				return response.Canceled("Payment canceled"), nil
			case <-time.After(pollInterval):
			}

			if adapted.Aborted() {
				paylog.Info("progress: client aborted, cleaning up", paylog.LogContext{
					SessionID: adapted.SessionID, PaymentID: paymentID, Tool: toolName,
				})
				statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
				return response.Canceled("Payment canceled"), nil
			}

			status, err := deps.Provider.GetPaymentStatus(ctx, paymentID)
			if err != nil {
				paylog.Error("progress: provider status check failed", paylog.LogContext{
					SessionID: adapted.SessionID, PaymentID: paymentID, Tool: toolName, Fields: map[string]any{"error": err.Error()},
				})
				statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
				return response.Error(fmt.Sprintf("Failed to check payment status: %v", err), response.ReasonProviderUnavailable), nil
			}

			switch status.Status {
			case provider.StatusSucceeded:
				statehelper.UpdatePaymentStatus(deps.Store, adapted.SessionID, store.StatusPaid)
				_ = adapted.ReportProgress(ctx, "Payment received", 100)

				result, err := handler(ctx, hostCtx, args)
				if err != nil {
					return nil, err
				}
				statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
				return response.Success("Tool completed after payment", paymentID, result), nil

			case provider.StatusCanceled, provider.StatusFailed, provider.StatusExpired:
				statehelper.CleanupPaymentState(deps.Store, adapted.SessionID)
				return response.Canceled(fmt.Sprintf("Payment %s", status.Status)), nil

			default:
				pct := int(elapsed * 99 / maxWait)
				if pct > 99 {
					pct = 99
				}
				_ = adapted.ReportProgress(ctx, "Waiting for payment completion", pct)
			}
		}
	}
}
