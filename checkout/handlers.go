package checkout

import (
	"context"
	"net/http"
	"time"

	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type checkoutRequest struct {
	ShippingAddress string `json:"shippingAddress"`
}

// PlaceOrder checks out the caller's cart.
func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	var req checkoutRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.HandleError(w, r, err)
		return
	}
	order, err := h.svc.Checkout(ctx, utils.GetUserIDFromRequest(r), req.ShippingAddress)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, order, "Order placed successfully")
}
