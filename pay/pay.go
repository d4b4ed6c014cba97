// Package pay owns the payment record of an order and its simulated gateway
// lifecycle.
package pay

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/errs"
	"storefront/models"
	"storefront/mq"
	"storefront/utils"
)

// Repository persists payments. Transition is a conditional write: it fails
// with errs.ErrStale when the payment is no longer in t.From.
type Repository interface {
	Insert(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	List(ctx context.Context, f models.PaymentFilter) ([]models.Payment, error)
	Transition(ctx context.Context, id string, t models.PaymentTransition) (*models.Payment, error)
	ListStuck(ctx context.Context, before time.Time) ([]models.Payment, error)
	ListCompleted(ctx context.Context, since time.Time) ([]models.Payment, error)
}

// OrderStore is the slice of the order repository payments need.
type OrderStore interface {
	FindByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, to models.OrderStatus, from ...models.OrderStatus) (*models.Order, error)
}

// Scheduler queues a processing payment for deferred resolution.
type Scheduler interface {
	Schedule(paymentID string)
}

const (
	ActionProcess = "process"
	ActionCancel  = "cancel"
)

type CreateRequest struct {
	OrderID     string               `json:"orderId"`
	Method      models.PaymentMethod `json:"method"`
	Provider    string               `json:"provider,omitempty"`
	PhoneNumber string               `json:"phoneNumber,omitempty"`
}

type Service struct {
	payments Repository
	orders   OrderStore
	sched    Scheduler
	emitter  mq.Emitter
	now      func() time.Time
}

func NewService(payments Repository, orders OrderStore, sched Scheduler, emitter mq.Emitter) *Service {
	if emitter == nil {
		emitter = mq.Nop{}
	}
	return &Service{payments: payments, orders: orders, sched: sched, emitter: emitter, now: time.Now}
}

// validate checks the request shape before anything is read or written.
func (req *CreateRequest) validate() error {
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" || req.Method == "" {
		return errs.Validation("Please provide order ID and payment method")
	}
	if _, err := utils.ParseID("order", req.OrderID); err != nil {
		return err
	}
	if !req.Method.Valid() {
		return errs.Validation("Invalid payment method %q", req.Method)
	}
	if req.Method != models.MethodMobileMoney {
		req.Provider, req.PhoneNumber = "", ""
		return nil
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.Provider == "" || req.PhoneNumber == "" {
		return errs.Validation("Please provide provider and phone number for mobile money")
	}
	if !models.MobileMoneyProviders[req.Provider] {
		return errs.Validation("Unsupported mobile money provider %q", req.Provider)
	}
	return nil
}

// Create opens the single payment of an order in pending, charging the order
// total as stored.
func (s *Service) Create(ctx context.Context, p models.Principal, req CreateRequest) (*models.PaymentView, error) {
	if p.UserID == "" {
		return nil, errs.Unauthorized("Unauthorized")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, req.OrderID)
	if errors.Is(err, errs.ErrNoDocument) {
		return nil, errs.NotFound("Order not found").Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(order.UserID) {
		return nil, errs.Forbidden("You do not have access to this order")
	}
	if order.Status == models.OrderCancelled {
		return nil, errs.Conflict("Order %s is cancelled", order.ID)
	}

	if _, err := s.payments.FindByOrder(ctx, order.ID); err == nil {
		return nil, errs.Conflict("Payment already exists for this order")
	} else if !errors.Is(err, errs.ErrNoDocument) {
		return nil, err
	}

	now := s.now()
	payment := &models.Payment{
		ID:          utils.GetUUID(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		Amount:      order.Total,
		Method:      req.Method,
		Provider:    req.Provider,
		PhoneNumber: req.PhoneNumber,
		Status:      models.PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return nil, errs.Conflict("Payment already exists for this order").Wrap(err)
		}
		return nil, err
	}
	s.emitter.Emit(ctx, mq.PaymentEvent(payment))
	return &models.PaymentView{Payment: *payment, Order: order}, nil
}

// load fetches a payment the caller may see; not-found is decided before
// ownership.
func (s *Service) load(ctx context.Context, p models.Principal, rawID string) (*models.Payment, error) {
	if p.UserID == "" {
		return nil, errs.Unauthorized("Unauthorized")
	}
	id, err := utils.ParseID("payment", rawID)
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.FindByID(ctx, id)
	if errors.Is(err, errs.ErrNoDocument) {
		return nil, errs.NotFound("Payment not found").Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(payment.UserID) {
		return nil, errs.Forbidden("You do not have access to this payment")
	}
	return payment, nil
}

func (s *Service) view(ctx context.Context, payment *models.Payment) (*models.PaymentView, error) {
	v := &models.PaymentView{Payment: *payment}
	order, err := s.orders.FindByID(ctx, payment.OrderID)
	switch {
	case err == nil:
		v.Order = order
	case !errors.Is(err, errs.ErrNoDocument):
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, p models.Principal, id string) (*models.PaymentView, error) {
	payment, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, payment)
}

// List returns payments newest first, optionally for one order. Non-admins
// only ever see their own.
func (s *Service) List(ctx context.Context, p models.Principal, orderID string) ([]models.PaymentView, error) {
	if p.UserID == "" {
		return nil, errs.Unauthorized("Unauthorized")
	}
	f := models.PaymentFilter{OrderID: strings.TrimSpace(orderID)}
	if !p.IsAdmin() {
		f.UserID = p.UserID
	}
	list, err := s.payments.List(ctx, f)
	if err != nil {
		return nil, err
	}
	views := make([]models.PaymentView, 0, len(list))
	for i := range list {
		v, err := s.view(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// Process hands a pending payment to the gateway. It returns as soon as the
// payment is processing; the outcome arrives later through the Scheduler.
func (s *Service) Process(ctx context.Context, p models.Principal, id string) (*models.PaymentView, error) {
	payment, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	payment, err = s.transition(ctx, payment, models.PaymentTransition{
		From:          models.PaymentPending,
		To:            models.PaymentProcessing,
		TransactionID: utils.TransactionID(now),
		At:            now,
	})
	if err != nil {
		return nil, err
	}
	s.sched.Schedule(payment.ID)
	return s.view(ctx, payment)
}

// Cancel abandons a pending payment. The order is not touched.
func (s *Service) Cancel(ctx context.Context, p models.Principal, id string) (*models.PaymentView, error) {
	payment, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	payment, err = s.transition(ctx, payment, models.PaymentTransition{
		From: models.PaymentPending,
		To:   models.PaymentCancelled,
		At:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, payment)
}

// Apply runs a named action from the PUT endpoint.
func (s *Service) Apply(ctx context.Context, p models.Principal, id, action string) (*models.PaymentView, error) {
	switch action {
	case ActionProcess:
		return s.Process(ctx, p, id)
	case ActionCancel:
		return s.Cancel(ctx, p, id)
	default:
		return nil, errs.Validation("Invalid action")
	}
}

func (s *Service) transition(ctx context.Context, payment *models.Payment, t models.PaymentTransition) (*models.Payment, error) {
	if payment.Status != t.From {
		return nil, errs.Conflict("Cannot move payment from %s to %s", payment.Status, t.To)
	}
	updated, err := s.payments.Transition(ctx, payment.ID, t)
	if errors.Is(err, errs.ErrStale) {
		return nil, errs.Conflict("Payment was updated concurrently; it is no longer %s", t.From).Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, mq.PaymentEvent(updated))
	return updated, nil
}
