// Package flow implements the three payment-completion protocols a
// priced tool can run under: two-step (flow/twostep.go), progress
// (flow/progress.go), and elicitation (flow/elicitation.go). All three
// share the preamble in this file and the guarantee that the
// underlying tool is invoked exactly once per successful payment.
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

// WebviewOpener is a narrow hook a host runtime can supply to open a
// payment URL in an embedded browser view. Returning true tells the
// preamble to use the "a window should already be open" phrasing
// instead of "click this link"; the default (nil) always uses the
// link phrasing. This is the only surface through which the core
// touches anything resembling a GUI.
type WebviewOpener func(paymentURL string) bool

func noopWebviewOpener(string) bool { return false }

// Deps bundles the collaborators and tuning parameters every flow
// needs. Coordinator builds one Deps per registered tool, sharing the
// Provider/Store/Webview/timing fields across every tool it manages.
type Deps struct {
	Provider provider.Provider
	Store    store.Store
	Webview  WebviewOpener

	// PollInterval paces the progress flow's status-check loop.
	PollInterval time.Duration
	// MaxWait bounds the progress flow's total loop budget.
	MaxWait time.Duration
	// ElicitAttempts bounds the elicitation flow's retry loop.
	ElicitAttempts int
}

// Type is the closed enum of supported flows, chosen once per
// coordinator and applied uniformly to every priced tool it manages.
type Type string

const (
	TwoStep     Type = "two_step"
	Progress    Type = "progress"
	Elicitation Type = "elicitation"
)

// preamble is what every flow learns before branching into its own
// protocol.
type preamble struct {
	sessionID  string
	paymentID  string
	paymentURL string
	// reused is true when an existing pending payment was found and
	// should be shown again rather than a newly created one.
	reused bool
}

// runPreamble executes the session lookup and existing-payment check
// shared by all flows; creating a new payment is left to
// createOrReusePayment. If the immediate-execution branch fires (a
// prior payment for this session already succeeded), env is non-nil
// and the caller must return it without entering its own protocol. If
// err is non-nil, the underlying handler failed during that immediate
// execution and the caller returns the error unchanged.
func runPreamble(
	ctx context.Context,
	adapted ctxadapter.Adapted,
	deps Deps,
	toolName string,
	args map[string]any,
	handler price.Handler,
	hostCtx any,
) (*preamble, *response.Envelope, error) {
	sessionID := adapted.SessionID

	check := statehelper.CheckExistingPayment(ctx, deps.Store, deps.Provider, sessionID, toolName)

	if check.ExecuteImmediately {
		paylog.Info("preamble: prior payment already completed, executing immediately", paylog.LogContext{
			SessionID: sessionID, PaymentID: check.PaymentID, Tool: toolName,
		})
		merged := mergeArgs(args, check.StoredArgs)
		result, err := handler(ctx, hostCtx, merged)
		if err != nil {
			return nil, nil, err
		}
		env := response.Success("Tool completed after payment", check.PaymentID, result)
		return nil, &env, nil
	}

	if check.PaymentID != "" {
		return &preamble{sessionID: sessionID, paymentID: check.PaymentID, paymentURL: check.PaymentURL, reused: true}, nil, nil
	}

	return &preamble{sessionID: sessionID}, nil, nil
}

// mergeArgs layers stored over current, stored winning on collision,
// per "stored_args wins over current when a recovered session
// resumes".
func mergeArgs(current, stored map[string]any) map[string]any {
	if stored == nil {
		return current
	}
	merged := make(map[string]any, len(current)+len(stored))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range stored {
		merged[k] = v
	}
	return merged
}

// paymentMessage synthesizes the user-facing payment prompt, varying
// only by whether a webview popped open for paymentURL.
func paymentMessage(webview WebviewOpener, paymentURL string, amount float64, currency string) string {
	if webview == nil {
		webview = noopWebviewOpener
	}
	if webview(paymentURL) {
		return fmt.Sprintf(
			"To run this tool, please pay %.2f %s.\nA payment window should be open. If not, you can use this link:\n\n%s\n\nAfter completing the payment, come back and confirm.",
			amount, currency, paymentURL,
		)
	}
	return fmt.Sprintf(
		"To run this tool, please pay %.2f %s using the link below:\n\n%s\n\nAfter completing the payment, come back and confirm.",
		amount, currency, paymentURL,
	)
}

// createOrReusePayment returns the payment to show the user: the
// preamble's reused pending payment, or a freshly created one
// persisted under status=requested.
func createOrReusePayment(ctx context.Context, pre *preamble, deps Deps, toolName string, info price.Info, args map[string]any) (paymentID, paymentURL string, err error) {
	if pre.reused {
		return pre.paymentID, pre.paymentURL, nil
	}

	result, err := deps.Provider.CreatePayment(ctx, provider.CreateRequest{
		Amount:      info.Price,
		Currency:    info.Currency,
		Description: fmt.Sprintf("Payment for %s", toolName),
	})
	if err != nil {
		return "", "", err
	}

	statehelper.SavePaymentState(deps.Store, pre.sessionID, result.PaymentID, result.PaymentURL, toolName, args, store.StatusRequested)
	return result.PaymentID, result.PaymentURL, nil
}
