// Package wrapper is the registrar: it intercepts tool registration on
// the host runtime, and for every handler carrying price metadata,
// replaces it with a flow-specific wrapper built from the core's
// provider, store, and flow packages. Unpriced handlers pass through
// unchanged.
//
// This replaces the source implementation's monkey-patch of the host's
// tool decorator with an explicit entry point: the host calls into
// PayMCP, not the other way around.
package wrapper

import (
	"fmt"
	"sort"
	"time"

	"github.com/paymcp/paymcp-go/flow"
	"github.com/paymcp/paymcp-go/payconfig"
	"github.com/paymcp/paymcp-go/payvalidate"
	"github.com/paymcp/paymcp-go/price"
	"github.com/paymcp/paymcp-go/provider"
	"github.com/paymcp/paymcp-go/store"
)

// Runtime is the minimal surface PayMCP requires of a host: the
// ability to register a named, described handler. Concrete host
// adapters (e.g. an MCP SDK server) implement this directly.
type Runtime interface {
	RegisterTool(name, description string, handler price.Handler) error
}

// ProviderConfig is a provider's per-instance configuration, keyed by
// name in CoordinatorOptions.Providers and resolved against a
// Registry at construction time. Registered provider.Factory values
// currently take no arguments (credentials are read from the
// environment, e.g. examples/stripe), so Settings is reserved for a
// future config-driven Factory signature; its presence in the map is
// what matters today.
type ProviderConfig struct {
	Settings map[string]any
}

// CoordinatorOptions configures a Coordinator. Providers must contain
// at least one entry, each naming a provider registered in Registry;
// the first (by sorted name) is used for every priced tool, per §4.6
// ("provider selection per tool is out of scope"). An unregistered
// name fails construction (§7 "Input-invalid ... surface at
// registration time").
type CoordinatorOptions struct {
	Providers map[string]ProviderConfig
	// Registry resolves Providers' names to a provider.Provider.
	// Defaults to provider.DefaultRegistry, the registry providers
	// self-register into from their package init().
	Registry       *provider.Registry
	FlowType       flow.Type
	Store          store.Store
	PollInterval   time.Duration
	MaxWait        time.Duration
	ElicitAttempts int
	TTL            time.Duration
	Webview        flow.WebviewOpener
}

// Coordinator holds the resolved provider, flow type, and state store
// and installs wrapped handlers onto a Runtime.
type Coordinator struct {
	opts     CoordinatorOptions
	chosen   provider.Provider
	resolved store.Store
}

// NewCoordinator validates opts and resolves defaults. Validation
// failures are input-invalid errors surfaced at construction, never
// mid-flow, per §7.
func NewCoordinator(opts CoordinatorOptions) (*Coordinator, error) {
	if len(opts.Providers) == 0 {
		return nil, fmt.Errorf("wrapper: at least one provider is required")
	}
	switch opts.FlowType {
	case flow.TwoStep, flow.Progress, flow.Elicitation:
	default:
		return nil, fmt.Errorf("wrapper: unknown flow_type %q", opts.FlowType)
	}

	cfg := payconfig.App()
	if opts.PollInterval <= 0 {
		opts.PollInterval = cfg.PollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = cfg.MaxWait
	}
	if opts.ElicitAttempts <= 0 {
		opts.ElicitAttempts = cfg.ElicitAttempts
	}
	if opts.TTL <= 0 {
		opts.TTL = cfg.TTL
	}
	if err := payvalidate.Validate(struct {
		PollInterval   time.Duration `validate:"gt=0"`
		MaxWait        time.Duration `validate:"gt=0"`
		ElicitAttempts int           `validate:"gt=0"`
		TTL            time.Duration `validate:"gt=0"`
	}{opts.PollInterval, opts.MaxWait, opts.ElicitAttempts, opts.TTL}); err != nil {
		return nil, fmt.Errorf("wrapper: invalid coordinator options: %w", err)
	}

	resolvedStore := opts.Store
	if resolvedStore == nil {
		resolvedStore = store.NewMemoryStore(opts.TTL)
	}

	registry := opts.Registry
	if registry == nil {
		registry = provider.DefaultRegistry
	}

	// Provider selection per tool is out of scope (§4.6): the first
	// provider wins, "first" made deterministic by sorting names
	// rather than relying on Go's randomized map iteration order.
	names := make([]string, 0, len(opts.Providers))
	for name := range opts.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	chosen, err := registry.Create(names[0])
	if err != nil {
		return nil, fmt.Errorf("wrapper: resolving provider %q: %w", names[0], err)
	}

	return &Coordinator{opts: opts, chosen: chosen, resolved: resolvedStore}, nil
}

// deps builds the flow.Deps shared by every priced tool this
// coordinator wraps.
func (c *Coordinator) deps() flow.Deps {
	return flow.Deps{
		Provider:       c.chosen,
		Store:          c.resolved,
		Webview:        c.opts.Webview,
		PollInterval:   c.opts.PollInterval,
		MaxWait:        c.opts.MaxWait,
		ElicitAttempts: c.opts.ElicitAttempts,
	}
}

// RegisterPaidTool wraps handler per this coordinator's flow type and
// registers it (and, for two-step, its companion confirm tool) under
// runtime. name must match the name the handler will be invoked under;
// description is the tool's own description, without price text
// (RegisterPaidTool appends it).
func (c *Coordinator) RegisterPaidTool(runtime Runtime, name, description string, ph price.PricedHandler) error {
	if err := payvalidate.Validate(ph.Info); err != nil {
		return fmt.Errorf("wrapper: invalid price metadata for %q: %w", name, err)
	}

	pricedDescription := fmt.Sprintf(
		"%s\nThis is a paid function: %.2f %s. Payment will be requested during execution.",
		description, ph.Info.Price, ph.Info.Currency,
	)

	deps := c.deps()

	switch c.opts.FlowType {
	case flow.TwoStep:
		initiate := flow.NewTwoStep(deps, name, ph.Info, ph.Handler)
		if err := runtime.RegisterTool(name, pricedDescription, initiate); err != nil {
			return err
		}
		confirm := flow.NewTwoStepConfirm(deps, name, ph.Handler)
		confirmName := flow.ConfirmToolName(name)
		return runtime.RegisterTool(confirmName, fmt.Sprintf("Confirm payment and execute %s()", name), confirm)

	case flow.Progress:
		wrapped := flow.NewProgress(deps, name, ph.Info, ph.Handler)
		return runtime.RegisterTool(name, pricedDescription, wrapped)

	case flow.Elicitation:
		wrapped := flow.NewElicitation(deps, name, ph.Info, ph.Handler)
		return runtime.RegisterTool(name, pricedDescription, wrapped)
	}

	return fmt.Errorf("wrapper: unreachable flow_type %q", c.opts.FlowType)
}

// RegisterTool registers handler under runtime, gating it behind this
// coordinator's flow if handler carries price metadata (i.e. is a
// price.PricedHandler), otherwise registering it unchanged. This is
// the decorator the source implementation achieves by monkey-wrapping
// the host's own registration function; here the host calls it
// directly instead.
func (c *Coordinator) RegisterTool(runtime Runtime, name, description string, handler any) error {
	if ph, ok := handler.(price.PricedHandler); ok {
		return c.RegisterPaidTool(runtime, name, description, ph)
	}
	if h, ok := handler.(price.Handler); ok {
		return runtime.RegisterTool(name, description, h)
	}
	return fmt.Errorf("wrapper: handler for %q is neither price.Handler nor price.PricedHandler", name)
}

// RegisterWithRuntime is the single inbound entry point named in §6:
// it builds a Coordinator from opts and registers every tool in tools
// (keyed by name, valued by a ToolSpec whose Price decides whether the
// handler is gated) onto runtime.
func RegisterWithRuntime(runtime Runtime, opts CoordinatorOptions, tools map[string]ToolSpec) (*Coordinator, error) {
	c, err := NewCoordinator(opts)
	if err != nil {
		return nil, err
	}
	for name, spec := range tools {
		if spec.Price != nil {
			ph := price.Attach(spec.Handler, *spec.Price)
			if err := c.RegisterPaidTool(runtime, name, spec.Description, ph); err != nil {
				return nil, err
			}
			continue
		}
		if err := runtime.RegisterTool(name, spec.Description, spec.Handler); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ToolSpec is one entry in the map RegisterWithRuntime registers. A
// nil Price registers Handler unchanged.
type ToolSpec struct {
	Description string
	Handler     price.Handler
	Price       *price.Info
}
