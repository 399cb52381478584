package statehelper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymcp/paymcp-go/provider"
	"github.com/paymcp/paymcp-go/store"
)

type stubStatusProvider struct {
	status provider.Status
	err    error
}

func (s *stubStatusProvider) Name() string { return "stub" }
func (s *stubStatusProvider) CreatePayment(ctx context.Context, req provider.CreateRequest) (*provider.CreateResult, error) {
	return nil, errors.New("not used")
}
func (s *stubStatusProvider) GetPaymentStatus(ctx context.Context, paymentID string) (*provider.StatusResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &provider.StatusResult{PaymentID: paymentID, Status: s.status}, nil
}

func TestCheckExistingPayment_NoSessionOrStore(t *testing.T) {
	res := CheckExistingPayment(context.Background(), nil, &stubStatusProvider{}, "sess_1", "generate")
	assert.Equal(t, CheckResult{}, res)
}

func TestCheckExistingPayment_NoExistingState(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	res := CheckExistingPayment(context.Background(), st, &stubStatusProvider{}, "sess_1", "generate")
	assert.Equal(t, CheckResult{}, res)
}

func TestCheckExistingPayment_SucceededSameTool(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	SavePaymentState(st, "sess_1", "pay_1", "https://pay/1", "generate", map[string]any{"prompt": "hi"}, store.StatusRequested)

	res := CheckExistingPayment(context.Background(), st, &stubStatusProvider{status: provider.StatusSucceeded}, "sess_1", "generate")

	require.True(t, res.ExecuteImmediately)
	assert.Equal(t, "pay_1", res.PaymentID)
	assert.Equal(t, map[string]any{"prompt": "hi"}, res.StoredArgs)

	_, ok := st.Get("sess_1")
	assert.False(t, ok, "state should be cleaned up after completion")
}

func TestCheckExistingPayment_SucceededDifferentTool(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	SavePaymentState(st, "sess_1", "pay_1", "https://pay/1", "generate", map[string]any{"prompt": "hi"}, store.StatusRequested)

	res := CheckExistingPayment(context.Background(), st, &stubStatusProvider{status: provider.StatusSucceeded}, "sess_1", "summarize")

	assert.True(t, res.ExecuteImmediately)
	assert.Nil(t, res.StoredArgs)
}

func TestCheckExistingPayment_StillPending(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	SavePaymentState(st, "sess_1", "pay_1", "https://pay/1", "generate", nil, store.StatusRequested)

	res := CheckExistingPayment(context.Background(), st, &stubStatusProvider{status: provider.StatusProcessing}, "sess_1", "generate")

	assert.False(t, res.ExecuteImmediately)
	assert.Equal(t, "pay_1", res.PaymentID)
	_, ok := st.Get("sess_1")
	assert.True(t, ok, "pending state must be kept for reuse")
}

func TestCheckExistingPayment_FailedClearsState(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	SavePaymentState(st, "sess_1", "pay_1", "https://pay/1", "generate", nil, store.StatusRequested)

	res := CheckExistingPayment(context.Background(), st, &stubStatusProvider{status: provider.StatusFailed}, "sess_1", "generate")

	assert.Equal(t, CheckResult{}, res)
	_, ok := st.Get("sess_1")
	assert.False(t, ok)
}

func TestCheckExistingPayment_ProviderErrorIsConservative(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	SavePaymentState(st, "sess_1", "pay_1", "https://pay/1", "generate", nil, store.StatusRequested)

	res := CheckExistingPayment(context.Background(), st, &stubStatusProvider{err: errors.New("timeout")}, "sess_1", "generate")

	assert.Equal(t, CheckResult{}, res)
	_, ok := st.Get("sess_1")
	assert.False(t, ok)
}

func TestUpdatePaymentStatus(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	SavePaymentState(st, "sess_1", "pay_1", "https://pay/1", "generate", nil, store.StatusRequested)

	UpdatePaymentStatus(st, "sess_1", store.StatusPaid)

	state, ok := st.Get("sess_1")
	require.True(t, ok)
	assert.Equal(t, store.StatusPaid, state.Status)
}

func TestUpdatePaymentStatus_NoExistingStateIsNoop(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	UpdatePaymentStatus(st, "sess_missing", store.StatusPaid)
	_, ok := st.Get("sess_missing")
	assert.False(t, ok)
}

func TestCleanupPaymentState(t *testing.T) {
	st := store.NewMemoryStore(time.Hour)
	SavePaymentState(st, "sess_1", "pay_1", "https://pay/1", "generate", nil, store.StatusRequested)

	CleanupPaymentState(st, "sess_1")

	_, ok := st.Get("sess_1")
	assert.False(t, ok)
}
