package orders

import (
	"context"
	"net/http"
	"time"

	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc      *Service
	invoicer *Invoicer
}

func NewHandlers(svc *Service, invoicer *Invoicer) *Handlers {
	return &Handlers{svc: svc, invoicer: invoicer}
}

// ListOrders returns the caller's orders; admins may pass ?user=.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.List(ctx, utils.GetPrincipalFromRequest(r), r.URL.Query().Get("user"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, list, "")
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.svc.Get(ctx, utils.GetPrincipalFromRequest(r), ps.ByName("orderId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view, "")
}

// UpdateOrder changes status and/or shipping address.
func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var u Update
	if err := utils.DecodeJSON(r, &u); err != nil {
		utils.HandleError(w, r, err)
		return
	}
	view, err := h.svc.Update(ctx, utils.GetPrincipalFromRequest(r), ps.ByName("orderId"), u)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, view, "")
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, utils.GetPrincipalFromRequest(r), ps.ByName("orderId")); err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, nil, "Order deleted successfully")
}

// PrintInvoice streams the order invoice as a PDF attachment.
func (h *Handlers) PrintInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.svc.Get(ctx, utils.GetPrincipalFromRequest(r), ps.ByName("orderId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	pdf, err := h.invoicer.Render(view)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+view.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
