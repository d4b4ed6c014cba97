package pay

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

// ListPayments returns the caller's payments; ?order= narrows to one order.
func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, utils.GetPrincipalFromRequest(r), r.URL.Query().Get("order"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, list, "")
}

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.HandleError(w, r, err)
		return
	}
	view, err := h.svc.Create(ctx, utils.GetPrincipalFromRequest(r), req)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusCreated, view, "Payment created")
}

func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.svc.Get(ctx, utils.GetPrincipalFromRequest(r), ps.ByName("paymentId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view, "")
}

// UpdatePayment applies {"action":"process"} or {"action":"cancel"}.
func (h *Handlers) UpdatePayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body struct {
		Action string `json:"action"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.HandleError(w, r, err)
		return
	}
	view, err := h.svc.Apply(ctx, utils.GetPrincipalFromRequest(r), ps.ByName("paymentId"), body.Action)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	msg := "Payment cancelled"
	if body.Action == ActionProcess {
		msg = "Payment processing initiated"
	}
	utils.RespondWithData(w, http.StatusOK, view, msg)
}
