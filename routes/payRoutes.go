package routes

import (
	"storefront/middleware"
	"storefront/notify"

	"github.com/julienschmidt/httprouter"
)

// AddPayRoutes registers the payment endpoints and the status websocket.
func AddPayRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/payments", authed(d, "payments.list", d.Payments.ListPayments))
	router.POST("/api/payments", authed(d, "payments.create", d.Payments.CreatePayment))
	router.GET("/api/payments/:paymentId", authed(d, "payments.get", d.Payments.GetPayment))
	router.PUT("/api/payments/:paymentId", authed(d, "payments.update", d.Payments.UpdatePayment))
	// the socket skips instrumentation: the upgrade needs the raw ResponseWriter
	router.GET("/api/payments/:paymentId/ws", middleware.Chain(
		d.RateLimiter.Limit,
		d.Auth.Authenticate,
	)(notify.PaymentSocket(d.Hub, d.PaymentLookup)))
}
