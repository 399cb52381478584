// Package price attaches price metadata to a tool handler without
// touching its arity, return type, or parameter names, per the core's
// registration-time price annotation.
package price

import "context"

// Info is the price metadata a priced handler carries.
type Info struct {
	Price    float64 `validate:"gt=0"`
	Currency string  `validate:"len=3"`
}

// Handler is the shape every tool handler takes: an opaque host
// context plus the call's arguments in, a result or error out.
type Handler func(ctx context.Context, hostCtx any, args map[string]any) (any, error)

// Priced is implemented by anything the registrar can read price
// metadata from. The attribute is read exactly once, at registration.
type Priced interface {
	PriceInfo() Info
}

// PricedHandler pairs a Handler with its Info, the single source of
// truth the registrar consults when deciding whether to gate a tool
// behind a payment flow.
type PricedHandler struct {
	Handler Handler
	Info    Info
}

// PriceInfo implements Priced.
func (p PricedHandler) PriceInfo() Info { return p.Info }

// Attach decorates handler with info, producing a PricedHandler the
// registrar will wrap at registration time. It never alters handler's
// signature.
func Attach(handler Handler, info Info) PricedHandler {
	return PricedHandler{Handler: handler, Info: info}
}
