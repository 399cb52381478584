// Package provider defines the abstraction PayMCP uses to talk to a
// payment backend. Concrete integrations (Stripe, PayPal, a sandbox
// mock, ...) live outside this package and outside this module's
// core — see examples/ for a Stripe-backed implementation.
package provider

import (
	"context"
	"fmt"
	"sync"
)

// Status is the provider-reported lifecycle stage of a payment.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "paid"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
	StatusRefunded   Status = "refunded"
)

// CreateRequest describes the payment PayMCP wants the provider to open.
type CreateRequest struct {
	Amount      float64
	Currency    string
	Description string
	// Metadata is passed through verbatim to the provider and is not
	// interpreted by the core; providers may use it for reconciliation.
	Metadata map[string]string
}

// CreateResult is the provider's answer to a CreateRequest.
type CreateResult struct {
	PaymentID string
	// PaymentURL is where the end user completes the payment, when the
	// provider requires a hosted checkout step (progress/elicitation
	// flows surface this to the caller).
	PaymentURL string
	Status     Status
}

// StatusResult is the provider's answer to a status poll.
type StatusResult struct {
	PaymentID string
	Status    Status
}

// Provider is the minimal capability PayMCP's flows require: open a
// payment and later ask whether it has settled. Everything else a
// real payment gateway can do (refunds, captures, webhooks) is an
// optional capability a provider may additionally implement.
type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*StatusResult, error)
}

// Capturer is implemented by providers that support a separate
// capture step after authorization. Not required by the core.
type Capturer interface {
	Capture(ctx context.Context, paymentID string) error
}

// Refunder is implemented by providers that support refunds. Not
// required by the core.
type Refunder interface {
	Refund(ctx context.Context, paymentID string, amount float64) error
}

// Error wraps a provider failure, distinguishing a transport-level
// failure (network, timeout, malformed response) from a business
// rejection the provider itself returned (declined, invalid request).
type Error struct {
	Provider  string
	Operation string
	Business  bool
	Err       error
}

func (e *Error) Error() string {
	kind := "transport"
	if e.Business {
		kind = "business"
	}
	return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Operation, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewTransportError wraps err as a provider-side transport failure.
func NewTransportError(providerName, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Provider: providerName, Operation: op, Business: false, Err: err}
}

// NewBusinessError wraps err as a provider-reported business rejection.
func NewBusinessError(providerName, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Provider: providerName, Operation: op, Business: true, Err: err}
}

// Factory constructs a fresh Provider instance. Providers register a
// Factory with the default Registry via an init() side-effect import,
// mirroring the teacher's provider-registration convention.
type Factory func() Provider

// Registry is a name -> Factory lookup. The zero value is not usable;
// use NewRegistry.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a provider factory under name, replacing any existing
// registration for the same name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("provider: %q is not registered", name)
	}
	return factory, nil
}

// Create instantiates a fresh provider by name.
func (r *Registry) Create(name string) (Provider, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}

// Names returns all registered provider names, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry is the process-wide registry providers self-register
// into from their package init().
var DefaultRegistry = NewRegistry()

// Register registers a factory with DefaultRegistry.
func Register(name string, factory Factory) { DefaultRegistry.Register(name, factory) }

// Get retrieves a factory from DefaultRegistry.
func Get(name string) (Factory, error) { return DefaultRegistry.Get(name) }

// Create instantiates a provider from DefaultRegistry.
func Create(name string) (Provider, error) { return DefaultRegistry.Create(name) }
