package products

import (
	"context"
	"log"
	"net/http"
	"time"

	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
)

// Catalog is the read side of the product catalog. Lookups of unknown IDs fail
// with errs.ErrNoDocument.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
}

type Handlers struct {
	catalog Catalog
}

func NewHandlers(catalog Catalog) *Handlers {
	return &Handlers{catalog: catalog}
}

// ListProducts returns the catalog, optionally narrowed by ?seller= and ?category=.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	list, err := h.catalog.ListProducts(ctx, models.ProductFilter{
		Seller:   q.Get("seller"),
		Category: q.Get("category"),
	})
	if err != nil {
		log.Println("ListProducts error:", err)
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, list, "")
}

func (h *Handlers) GetProductDetails(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id, err := utils.ParseID("product", ps.ByName("productId"))
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		utils.HandleError(w, r, err)
		return
	}
	utils.RespondWithData(w, http.StatusOK, product, "")
}
