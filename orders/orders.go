// Package orders serves order queries and management actions.
package orders

import (
	"context"
	"errors"
	"log"
	"strings"

	"storefront/errs"
	"storefront/inventory"
	"storefront/models"
	"storefront/products"
	"storefront/utils"
)

// Repository stores orders. UpdateStatus returns the order as it was before
// the write; with from given it only writes while the status is one of them
// and otherwise fails with errs.ErrStale.
type Repository interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, to models.OrderStatus, from ...models.OrderStatus) (*models.Order, error)
	UpdateShippingAddress(ctx context.Context, id, address string) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

// TxRunner runs fn in one store transaction when the store supports it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	orders  Repository
	catalog products.Catalog
	ledger  inventory.Ledger
	tx      TxRunner
	policy  TransitionPolicy
}

func NewService(orders Repository, catalog products.Catalog, ledger inventory.Ledger, tx TxRunner, policy TransitionPolicy) *Service {
	if policy == nil {
		policy = Permissive
	}
	return &Service{orders: orders, catalog: catalog, ledger: ledger, tx: tx, policy: policy}
}

func (s *Service) find(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, errs.ErrNoDocument) {
		return nil, errs.NotFound("Order not found").Wrap(err)
	}
	return o, err
}

// load fetches an order the caller may see. Existence is checked before
// ownership so a forbidden answer never hides a missing order.
func (s *Service) load(ctx context.Context, p models.Principal, rawID string) (*models.Order, error) {
	if p.UserID == "" {
		return nil, errs.Unauthorized("Unauthorized")
	}
	id, err := utils.ParseID("order", rawID)
	if err != nil {
		return nil, err
	}
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(o.UserID) {
		return nil, errs.Forbidden("You do not have access to this order")
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, p models.Principal, id string) (*models.OrderView, error) {
	o, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, o)
}

func (s *Service) view(ctx context.Context, o *models.Order) (*models.OrderView, error) {
	views, err := s.expand(ctx, []models.Order{*o})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns the caller's orders, newest first. Admins see every order, or
// one customer's when userFilter is set.
func (s *Service) List(ctx context.Context, p models.Principal, userFilter string) ([]models.OrderView, error) {
	if p.UserID == "" {
		return nil, errs.Unauthorized("Unauthorized")
	}
	f := models.OrderFilter{UserID: p.UserID}
	if p.IsAdmin() {
		f.UserID = userFilter
	}
	list, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, list)
}

func (s *Service) expand(ctx context.Context, list []models.Order) ([]models.OrderView, error) {
	var ids []string
	for _, o := range list {
		for _, it := range o.Items {
			ids = append(ids, it.ProductID)
		}
	}
	byID, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.OrderView, len(list))
	for i, o := range list {
		lines := make([]models.OrderLineView, len(o.Items))
		for j, it := range o.Items {
			lines[j] = models.OrderLineView{OrderItem: it, Product: byID[it.ProductID].Summary()}
		}
		views[i] = models.OrderView{
			ID:              o.ID,
			UserID:          o.UserID,
			Items:           lines,
			Total:           o.Total,
			ShippingAddress: o.ShippingAddress,
			Status:          o.Status,
			CreatedAt:       o.CreatedAt,
			UpdatedAt:       o.UpdatedAt,
		}
	}
	return views, nil
}

func parseStatus(raw string) (models.OrderStatus, error) {
	st := models.OrderStatus(raw)
	if !st.Valid() {
		names := make([]string, len(models.OrderStatuses))
		for i, v := range models.OrderStatuses {
			names[i] = string(v)
		}
		return "", errs.Validation("Invalid status. Must be one of: %s", strings.Join(names, ", "))
	}
	return st, nil
}

func canManage(p models.Principal) bool {
	return p.Role == models.RoleAdmin || p.Role == models.RoleSeller
}

// UpdateStatus moves an order to raw. Cancelling returns the order's stock to
// the ledger; leaving cancelled reserves it again and fails if the stock is
// gone.
func (s *Service) UpdateStatus(ctx context.Context, p models.Principal, id, raw string) (*models.OrderView, error) {
	to, err := parseStatus(raw)
	if err != nil {
		return nil, err
	}
	if !canManage(p) {
		return nil, errs.Forbidden("Only sellers and admins can change order status")
	}
	orderID, err := utils.ParseID("order", id)
	if err != nil {
		return nil, err
	}
	o, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.policy(o.Status, to); err != nil {
		return nil, err
	}
	if o.Status != to {
		if err := s.transition(ctx, o, to); err != nil {
			return nil, err
		}
	}
	if o, err = s.find(ctx, orderID); err != nil {
		return nil, err
	}
	return s.view(ctx, o)
}

func (s *Service) transition(ctx context.Context, o *models.Order, to models.OrderStatus) error {
	from := o.Status
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		switch {
		case to == models.OrderCancelled:
			if _, err := s.orders.UpdateStatus(ctx, o.ID, to, from); err != nil {
				return err
			}
			if err := inventory.ReleaseAll(ctx, s.ledger, o.Items); err != nil {
				// the order stays cancelled; lines for deleted products cannot be restocked
				log.Printf("[Orders] releasing stock of cancelled order %s: %v", o.ID, err)
			}
			return nil

		case from == models.OrderCancelled:
			if err := inventory.ReserveAll(ctx, s.ledger, o.Items); err != nil {
				return err
			}
			if _, err := s.orders.UpdateStatus(ctx, o.ID, to, from); err != nil {
				if rerr := inventory.ReleaseAll(context.WithoutCancel(ctx), s.ledger, o.Items); rerr != nil {
					log.Printf("[Orders] compensation for order %s: %v", o.ID, rerr)
				}
				return err
			}
			return nil

		default:
			_, err := s.orders.UpdateStatus(ctx, o.ID, to, from)
			return err
		}
	})
	if errors.Is(err, errs.ErrStale) {
		return errs.Conflict("Order status changed concurrently, please retry").Wrap(err)
	}
	return err
}

// UpdateShippingAddress changes where an order ships while it has not left
// the warehouse.
func (s *Service) UpdateShippingAddress(ctx context.Context, p models.Principal, id, address string) (*models.OrderView, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errs.Validation("Shipping address is required")
	}
	o, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if o.Status != models.OrderPending && o.Status != models.OrderProcessing {
		return nil, errs.Conflict("Cannot change the shipping address of a %s order", o.Status)
	}
	updated, err := s.orders.UpdateShippingAddress(ctx, o.ID, address)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, updated)
}

// Delete removes an order. It is an administrative clean-up and does not touch
// stock or payments.
func (s *Service) Delete(ctx context.Context, p models.Principal, rawID string) error {
	if !p.IsAdmin() {
		return errs.Forbidden("Only admins can delete orders")
	}
	id, err := utils.ParseID("order", rawID)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNoDocument) {
			return errs.NotFound("Order not found").Wrap(err)
		}
		return err
	}
	return nil
}

// Update carries the mutable fields of an order; empty fields are left alone.
type Update struct {
	Status          string `json:"status"`
	ShippingAddress string `json:"shippingAddress"`
}

// Update applies u after validating every field, so a bad status never leaves
// a half-applied update behind.
func (s *Service) Update(ctx context.Context, p models.Principal, id string, u Update) (*models.OrderView, error) {
	if u.Status == "" && strings.TrimSpace(u.ShippingAddress) == "" {
		return nil, errs.Validation("Please provide status or shippingAddress")
	}
	if u.Status != "" {
		if _, err := parseStatus(u.Status); err != nil {
			return nil, err
		}
	}
	var (
		view *models.OrderView
		err  error
	)
	if u.ShippingAddress != "" {
		if view, err = s.UpdateShippingAddress(ctx, p, id, u.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if u.Status != "" {
		if view, err = s.UpdateStatus(ctx, p, id, u.Status); err != nil {
			return nil, err
		}
	}
	return view, nil
}
