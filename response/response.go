// Package response builds the canonical envelope PayMCP's flows
// return to the host runtime, grounded on the teacher's standardized
// {code, success, message, data} API response shape, generalized to
// the four-status envelope the flow engine needs.
package response

// Status is the closed set of terminal/non-terminal outcomes an
// Envelope can carry. Clients distinguish terminal (Success, Canceled,
// Error) from non-terminal (Pending) by this field.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusPending  Status = "pending"
	StatusCanceled Status = "canceled"
	StatusError    Status = "error"
)

// Reason enumerates the error-envelope reasons the core distinguishes
// (§7 of the spec this implements).
type Reason string

const (
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonProviderError       Reason = "provider_error"
	ReasonPaymentNotComplete  Reason = "payment_not_complete"
	ReasonInvalidPaymentID    Reason = "invalid_payment_id"
	ReasonTimeout             Reason = "timeout"
)

// StructuredContent is the two-step pending envelope's machine-
// readable payload, duplicated under Envelope.Data for clients that
// read `data` instead of `structured_content`.
type StructuredContent struct {
	PaymentURL string `json:"payment_url,omitempty"`
	PaymentID  string `json:"payment_id,omitempty"`
	NextStep   string `json:"next_step,omitempty"`
	Status     string `json:"status,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
}

// Envelope is the transient, non-persisted response shape every flow
// returns.
type Envelope struct {
	Message           string             `json:"message"`
	Status            Status             `json:"status"`
	PaymentID         string             `json:"payment_id,omitempty"`
	PaymentURL        string             `json:"payment_url,omitempty"`
	NextStep          string             `json:"next_step,omitempty"`
	Reason            Reason             `json:"reason,omitempty"`
	Amount            string             `json:"amount,omitempty"`
	Currency          string             `json:"currency,omitempty"`
	Raw               any                `json:"raw,omitempty"`
	StructuredContent *StructuredContent `json:"structured_content,omitempty"`
	// Data duplicates StructuredContent for client compatibility, per
	// §4.7 ("duplicated as data for client-compat").
	Data any `json:"data,omitempty"`
}

// Success wraps a tool's own result. If result is already map-shaped,
// a copy of it is annotated with payment_id and a default status
// without overwriting any key the tool itself set — success wrapping
// is idempotent. Otherwise the raw result is carried under Raw.
func Success(message, paymentID string, result any) Envelope {
	env := Envelope{Message: message, Status: StatusSuccess, PaymentID: paymentID}

	if m, ok := result.(map[string]any); ok {
		annotated := make(map[string]any, len(m)+2)
		for k, v := range m {
			annotated[k] = v
		}
		if _, exists := annotated["payment_id"]; !exists && paymentID != "" {
			annotated["payment_id"] = paymentID
		}
		if _, exists := annotated["status"]; !exists {
			annotated["status"] = string(StatusSuccess)
		}
		env.Raw = annotated
		return env
	}

	env.Raw = result
	return env
}

// Pending builds a two-step (or elicitation-retry) pending envelope.
func Pending(message, paymentID, paymentURL, nextStep, amount, currency string) Envelope {
	sc := &StructuredContent{
		PaymentURL: paymentURL,
		PaymentID:  paymentID,
		NextStep:   nextStep,
		Status:     "payment_required",
		Amount:     amount,
		Currency:   currency,
	}
	return Envelope{
		Message:           message,
		Status:            StatusPending,
		PaymentID:         paymentID,
		PaymentURL:        paymentURL,
		NextStep:          nextStep,
		Amount:            amount,
		Currency:          currency,
		StructuredContent: sc,
		Data:              sc,
	}
}

// Canceled builds a canceled envelope.
func Canceled(message string) Envelope {
	return Envelope{Message: message, Status: StatusCanceled}
}

// Error builds an error envelope carrying a message and a reason. The
// envelope has no separate field for a provider status; where one is
// relevant, it appears only in the message text.
func Error(message string, reason Reason) Envelope {
	return Envelope{Message: message, Status: StatusError, Reason: reason}
}
