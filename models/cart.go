package models

import "time"

// CartItem is a pending line: a product reference and a quantity, no price.
type CartItem struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart is the single staging area of one customer. Version increments on every
// item write and guards concurrent read-modify-write cycles.
type Cart struct {
	ID        string     `json:"id" bson:"_id"`
	UserID    string     `json:"userId" bson:"userId"`
	Items     []CartItem `json:"items" bson:"items"`
	Version   int64      `json:"version" bson:"version"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a copy whose Items slice can be mutated independently.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]CartItem(nil), c.Items...)
	return &cp
}

// IndexOf returns the position of productID in the cart, or -1.
func (c *Cart) IndexOf(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// CartLineView is a cart line with its product materialised. Product is nil when
// the catalog no longer knows the product.
type CartLineView struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   *ProductSummary `json:"product"`
}

// CartView is the expanded cart returned to callers.
type CartView struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Items     []CartLineView `json:"items"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
