package routes

import (
	"context"
	"net/http"
	"time"

	"storefront/middleware"
	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

func AddHealthRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if d.Ping != nil {
			if err := d.Ping(ctx); err != nil {
				utils.RespondWithError(w, http.StatusServiceUnavailable, "unavailable", "store unreachable")
				return
			}
		}
		utils.RespondWithData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
	})
	if d.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
}

func AddProductRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/products", public(d, "products.list", d.Products.ListProducts))
	router.GET("/api/products/:productId", public(d, "products.get", d.Products.GetProductDetails))
}

func AddCartRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/cart", authed(d, "cart.get", d.Cart.GetCart))
	router.POST("/api/cart", authed(d, "cart.add", d.Cart.AddToCart))
	router.PUT("/api/cart", authed(d, "cart.update", d.Cart.UpdateCart))
	router.DELETE("/api/cart", authed(d, "cart.remove", d.Cart.RemoveFromCart))
	router.POST("/api/cart/cleanup", authed(d, "cart.cleanup", d.Cart.CleanupCarts,
		middleware.RequireRoles(models.RoleAdmin)))
}

func AddCheckoutRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/checkout", authed(d, "checkout", d.Checkout.PlaceOrder,
		middleware.Idempotency(d.Idempotency, IdempotencyTTL)))
}

func AddOrderRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/orders", authed(d, "orders.list", d.Orders.ListOrders))
	router.GET("/api/orders/:orderId", authed(d, "orders.get", d.Orders.GetOrder))
	router.PUT("/api/orders/:orderId", authed(d, "orders.update", d.Orders.UpdateOrder))
	router.DELETE("/api/orders/:orderId", authed(d, "orders.delete", d.Orders.DeleteOrder,
		middleware.RequireRoles(models.RoleAdmin)))
	router.GET("/api/orders/:orderId/invoice", authed(d, "orders.invoice", d.Orders.PrintInvoice))
}
