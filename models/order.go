package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every valid order status.
var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// OrderItem is a copied snapshot; Price is the unit price at purchase time.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Price     float64 `json:"price" bson:"price"`
}

type Order struct {
	ID              string      `json:"id" bson:"_id"`
	UserID          string      `json:"userId" bson:"userId"`
	Items           []OrderItem `json:"items" bson:"items"`
	Total           float64     `json:"total" bson:"total"`
	ShippingAddress string      `json:"shippingAddress" bson:"shippingAddress"`
	Status          OrderStatus `json:"status" bson:"status"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// SumItems returns Σ quantity × price over a snapshot, summed in decimal so the
// stored total does not pick up binary rounding drift.
func SumItems(items []OrderItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	return total.InexactFloat64()
}

// OrderFilter selects orders for listing. Empty fields match everything.
type OrderFilter struct {
	UserID string
}

// OrderLineView pairs a snapshot line with the live catalog entry, if any.
type OrderLineView struct {
	OrderItem
	Product *ProductSummary `json:"product"`
}

// OrderView is the expanded order returned to callers.
type OrderView struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderLineView `json:"items"`
	Total           float64         `json:"total"`
	ShippingAddress string          `json:"shippingAddress"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
