package cart

import (
	"context"
	"net/http"
	"time"

	"storefront/errs"
	"storefront/inventory"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type itemRequest struct {
	Product  string `json:"product"`
	Quantity *int   `json:"quantity"`
}

func decodeItem(r *http.Request) (string, int, error) {
	var req itemRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return "", 0, err
	}
	if req.Product == "" || req.Quantity == nil {
		return "", 0, errs.Validation("Please provide product and quantity")
	}
	if *req.Quantity > inventory.MaxStock {
		return "", 0, errs.Validation("Quantity must not exceed %d", inventory.MaxStock)
	}
	return req.Product, *req.Quantity, nil
}

// GetCart returns the caller's cart, creating it on first access.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.svc.View(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view, "")
}

// AddToCart increments quantity if the item exists, or appends a new line.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, qty, err := decodeItem(r)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	view, err := h.svc.AddItem(ctx, utils.GetUserIDFromRequest(r), product, qty)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view, "")
}

// UpdateCart sets a line's quantity; zero removes the line.
func (h *Handlers) UpdateCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product, qty, err := decodeItem(r)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	view, err := h.svc.SetQuantity(ctx, utils.GetUserIDFromRequest(r), product, qty)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view, "")
}

// RemoveFromCart drops ?product= from the cart.
func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	product := r.URL.Query().Get("product")
	if product == "" {
		utils.HandleError(w, r, errs.Validation("Please provide product ID"))
		return
	}
	view, err := h.svc.RemoveItem(ctx, utils.GetUserIDFromRequest(r), product)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view, "")
}

// CleanupCarts deletes carts that have lost their owner.
func (h *Handlers) CleanupCarts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	n, err := h.svc.CleanupOrphans(ctx)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, map[string]int64{"deletedCount": n},
		"Cleaned up invalid carts")
}
