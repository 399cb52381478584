package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	return &CreateResult{PaymentID: "pay_stub", Status: StatusPending}, nil
}
func (s *stubProvider) GetPaymentStatus(ctx context.Context, paymentID string) (*StatusResult, error) {
	return &StatusResult{PaymentID: paymentID, Status: StatusSucceeded}, nil
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func() Provider { return &stubProvider{name: "stub"} })

	p, err := r.Create("stub")
	require.NoError(t, err)
	assert.Equal(t, "stub", p.Name())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func() Provider { return &stubProvider{name: "a"} })
	r.Register("b", func() Provider { return &stubProvider{name: "b"} })
	names := r.Names()
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestError_Unwrap(t *testing.T) {
	base := assert.AnError
	err := NewTransportError("stub", "CreatePayment", base)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "transport")

	bErr := NewBusinessError("stub", "CreatePayment", base)
	assert.Contains(t, bErr.Error(), "business")
}
