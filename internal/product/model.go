package product

import "time"

type Category string

const (
	CategoryBooks Category = "Books"
	CategoryMusic Category = "Music"
	CategoryMerch Category = "Merch"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryBooks, CategoryMusic, CategoryMerch:
		return true
	}
	return false
}

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    Category  `json:"category"`
	Image       string    `json:"image"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilter narrows public catalog listings.
type ListFilter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}
