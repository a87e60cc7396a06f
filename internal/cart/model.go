package cart

import (
	"time"

	"github.com/gemBekele/zeritu/internal/product"
)

// Item is a row in a user's cart. Unique per (user, product); re-adding
// the same product increments quantity.
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Product *product.Product `json:"product,omitempty"`
}

// Line is a cart item priced against the live catalog, ready to be frozen
// onto an order.
type Line struct {
	ProductID string
	Quantity  int
	Price     float64
}
