package orders

import (
	"fmt"

	"storefront/errs"
	"storefront/models"
)

// TransitionPolicy decides whether an order may move from one status to
// another. Status membership is checked before the policy runs.
type TransitionPolicy func(from, to models.OrderStatus) error

// Permissive allows any status to move to any other.
func Permissive(from, to models.OrderStatus) error { return nil }

var strictGraph = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
}

// Strict follows the fulfilment flow pending → processing → shipped →
// delivered, with cancellation only before shipping.
func Strict(from, to models.OrderStatus) error {
	if from == to {
		return nil
	}
	for _, next := range strictGraph[from] {
		if next == to {
			return nil
		}
	}
	return errs.Conflict("Cannot move order from %s to %s", from, to)
}

// PolicyByName resolves the ORDER_TRANSITIONS setting.
func PolicyByName(name string) (TransitionPolicy, error) {
	switch name {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	}
	return nil, fmt.Errorf("unknown order transition policy %q", name)
}
