package wrapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymcp/paymcp-go/flow"
	"github.com/paymcp/paymcp-go/price"
	"github.com/paymcp/paymcp-go/provider"
)

type fakeProvider struct{}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) CreatePayment(ctx context.Context, req provider.CreateRequest) (*provider.CreateResult, error) {
	return &provider.CreateResult{PaymentID: "pay_1", PaymentURL: "https://pay/1", Status: provider.StatusPending}, nil
}
func (f *fakeProvider) GetPaymentStatus(ctx context.Context, paymentID string) (*provider.StatusResult, error) {
	return &provider.StatusResult{PaymentID: paymentID, Status: provider.StatusPending}, nil
}

// testRegistry returns a fresh registry with "fake" registered, so
// tests never depend on (or pollute) provider.DefaultRegistry.
func testRegistry() *provider.Registry {
	reg := provider.NewRegistry()
	reg.Register("fake", func() provider.Provider { return &fakeProvider{} })
	return reg
}

type recordingRuntime struct {
	registered map[string]string // name -> description
}

func newRecordingRuntime() *recordingRuntime {
	return &recordingRuntime{registered: map[string]string{}}
}

func (r *recordingRuntime) RegisterTool(name, description string, handler price.Handler) error {
	r.registered[name] = description
	return nil
}

func TestNewCoordinator_RequiresAtLeastOneProvider(t *testing.T) {
	_, err := NewCoordinator(CoordinatorOptions{FlowType: flow.TwoStep})
	assert.Error(t, err)
}

// TestNewCoordinator_RejectsUnknownProvider covers spec's E5 scenario:
// constructing a coordinator with a provider name that resolves to
// nothing in the registry fails construction, registering no tool.
func TestNewCoordinator_RejectsUnknownProvider(t *testing.T) {
	_, err := NewCoordinator(CoordinatorOptions{
		Providers: map[string]ProviderConfig{"fakepay": {}},
		Registry:  testRegistry(),
		FlowType:  flow.TwoStep,
	})
	assert.Error(t, err)
}

func TestNewCoordinator_RejectsUnknownFlowType(t *testing.T) {
	_, err := NewCoordinator(CoordinatorOptions{
		Providers: map[string]ProviderConfig{"fake": {}},
		Registry:  testRegistry(),
		FlowType:  "bogus",
	})
	assert.Error(t, err)
}

func TestNewCoordinator_AppliesDefaults(t *testing.T) {
	c, err := NewCoordinator(CoordinatorOptions{
		Providers: map[string]ProviderConfig{"fake": {}},
		Registry:  testRegistry(),
		FlowType:  flow.Progress,
	})
	require.NoError(t, err)
	assert.NotZero(t, c.opts.PollInterval)
	assert.NotZero(t, c.opts.MaxWait)
	assert.NotZero(t, c.opts.ElicitAttempts)
	assert.NotNil(t, c.resolved)
}

func TestRegisterPaidTool_TwoStepRegistersConfirmCompanion(t *testing.T) {
	c, err := NewCoordinator(CoordinatorOptions{
		Providers: map[string]ProviderConfig{"fake": {}},
		Registry:  testRegistry(),
		FlowType:  flow.TwoStep,
	})
	require.NoError(t, err)

	rt := newRecordingRuntime()
	noop := func(ctx context.Context, hostCtx any, args map[string]any) (any, error) { return nil, nil }
	ph := price.Attach(noop, price.Info{Price: 0.19, Currency: "USD"})

	err = c.RegisterPaidTool(rt, "add", "Adds two numbers", ph)
	require.NoError(t, err)

	assert.Contains(t, rt.registered, "add")
	assert.Contains(t, rt.registered, "confirm_add_payment")
	assert.Contains(t, rt.registered["add"], "This is a paid function")
	assert.Contains(t, rt.registered["add"], "Adds two numbers")
}

func TestRegisterPaidTool_RejectsInvalidPrice(t *testing.T) {
	c, err := NewCoordinator(CoordinatorOptions{
		Providers: map[string]ProviderConfig{"fake": {}},
		Registry:  testRegistry(),
		FlowType:  flow.Progress,
	})
	require.NoError(t, err)

	rt := newRecordingRuntime()
	noop := func(ctx context.Context, hostCtx any, args map[string]any) (any, error) { return nil, nil }
	ph := price.Attach(noop, price.Info{Price: -1, Currency: "US"})

	err = c.RegisterPaidTool(rt, "add", "Adds two numbers", ph)
	assert.Error(t, err)
	assert.Empty(t, rt.registered)
}

func TestRegisterTool_UnpricedHandlerPassesThroughUnchanged(t *testing.T) {
	c, err := NewCoordinator(CoordinatorOptions{
		Providers: map[string]ProviderConfig{"fake": {}},
		Registry:  testRegistry(),
		FlowType:  flow.Elicitation,
	})
	require.NoError(t, err)

	rt := newRecordingRuntime()
	noop := price.Handler(func(ctx context.Context, hostCtx any, args map[string]any) (any, error) { return nil, nil })

	err = c.RegisterTool(rt, "ping", "Health check", noop)
	require.NoError(t, err)
	assert.Equal(t, "Health check", rt.registered["ping"])
}

func TestRegisterWithRuntime_MixedPricedAndUnpriced(t *testing.T) {
	rt := newRecordingRuntime()
	noop := func(ctx context.Context, hostCtx any, args map[string]any) (any, error) { return nil, nil }
	info := price.Info{Price: 2.50, Currency: "USD"}

	_, err := RegisterWithRuntime(rt, CoordinatorOptions{
		Providers: map[string]ProviderConfig{"fake": {}},
		Registry:  testRegistry(),
		FlowType:  flow.Progress,
	}, map[string]ToolSpec{
		"gen":  {Description: "Generates content", Handler: noop, Price: &info},
		"ping": {Description: "Health check", Handler: noop},
	})
	require.NoError(t, err)

	assert.Contains(t, rt.registered["gen"], "paid function")
	assert.Equal(t, "Health check", rt.registered["ping"])
}
