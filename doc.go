// Package paymcp turns a priced MCP tool into a payment-gated one: it
// intercepts tool registration on a host MCP runtime and wraps any
// handler carrying price metadata in a payment flow before the host
// ever sees it.
//
// # Overview
//
// An MCP server exposes tools an LLM agent can call. PayMCP sits
// between tool registration and tool invocation: a priced handler is
// never called directly. Instead, on first invocation PayMCP creates a
// payment with a provider, persists pending state, and returns a
// response telling the caller how to complete payment; only once the
// provider reports the payment succeeded does PayMCP call the real
// handler and return its result.
//
// # Flows
//
// Three flows cover the ways a host can surface "payment needed" to an
// agent, selected per coordinator, not per tool:
//
//	two_step     caller gets a payment_url and must call a companion
//	             "confirm_<tool>_payment" tool once payment completes
//	progress     the tool call blocks, polling the provider and
//	             reporting progress notifications until paid or timed
//	             out
//	elicitation  the tool call drives the host's interactive elicit
//	             capability in a loop, asking the caller to confirm
//	             payment was completed
//
// See package flow for the concrete implementations and package
// wrapper for how a handler gets routed into one of them.
//
// # Packages
//
//	provider     payment provider abstraction + self-registering registry
//	store        TTL-bounded payment state store (session -> payment)
//	ctxadapter   probes an opaque host context for session id,
//	             elicitation, and progress-reporting capabilities
//	statehelper  idempotency/recovery primitives shared by every flow
//	price        price-metadata attachment for a tool handler
//	flow         the three payment flows
//	wrapper      the registrar: Runtime interface + Coordinator
//	adminhttp    operational HTTP side-channel (health, store stats)
//	paylog       structured logging
//	payconfig    process-wide configuration singleton
//	payvalidate  struct validation
//	response     the tagged envelope every wrapped tool call returns
//
// Concrete host and provider integrations (a real MCP SDK adapter, a
// real Stripe provider) live under examples/, since wiring a specific
// third-party API is a host application's concern, not the core's.
package paymcp
