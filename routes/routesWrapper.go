// Package routes binds handlers to URL paths with their middleware.
package routes

import (
	"context"
	"time"

	"storefront/cart"
	"storefront/checkout"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/notify"
	"storefront/orders"
	"storefront/pay"
	"storefront/products"
	"storefront/ratelim"

	"github.com/julienschmidt/httprouter"
)

// IdempotencyTTL is how long a completed checkout response can be replayed.
const IdempotencyTTL = 24 * time.Hour

// Deps carries everything the routes need. It is assembled once in main.
type Deps struct {
	Auth        *middleware.Auth
	RateLimiter *ratelim.RateLimiter
	Metrics     *metrics.Metrics
	Idempotency middleware.IdempotencyStore
	Ping        func(ctx context.Context) error

	Products *products.Handlers
	Cart     *cart.Handlers
	Checkout *checkout.Handlers
	Orders   *orders.Handlers
	Payments *pay.Handlers

	Hub           *notify.Hub
	PaymentLookup notify.PaymentLookup
}

func RoutesWrapper(router *httprouter.Router, d *Deps) {
	AddHealthRoutes(router, d)
	AddProductRoutes(router, d)
	AddCartRoutes(router, d)
	AddCheckoutRoutes(router, d)
	AddOrderRoutes(router, d)
	AddPayRoutes(router, d)
}

// public wraps handlers that need no identity.
func public(d *Deps, name string, h httprouter.Handle) httprouter.Handle {
	return middleware.Chain(
		d.RateLimiter.Limit,
		d.Metrics.Instrument(name),
	)(h)
}

// authed wraps handlers that require a valid bearer token, plus any extra
// middleware after authentication.
func authed(d *Deps, name string, h httprouter.Handle, extra ...middleware.Middleware) httprouter.Handle {
	mws := []middleware.Middleware{
		d.RateLimiter.Limit,
		d.Metrics.Instrument(name),
		d.Auth.Authenticate,
	}
	return middleware.Chain(append(mws, extra...)...)(h)
}
