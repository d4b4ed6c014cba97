package models

import "time"

// Product is owned by the catalog. The core reads it for price and stock truth and
// only ever changes Stock, through the inventory ledger.
type Product struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Price       float64   `json:"price" bson:"price"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Seller      string    `json:"seller,omitempty" bson:"seller,omitempty"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	Stock       int       `json:"stock" bson:"stock"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ProductFilter narrows catalog listings server-side.
type ProductFilter struct {
	Seller   string
	Category string
}

// ProductSummary is the slice of a product embedded in expanded views.
type ProductSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
	Stock int     `json:"stock"`
}

func (p *Product) Summary() *ProductSummary {
	if p == nil {
		return nil
	}
	return &ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image, Stock: p.Stock}
}
