package cart

import (
	"context"
	"errors"
)

// ErrEmptyCart is returned when a snapshot is requested for a user with no
// cart items.
var ErrEmptyCart = errors.New("cart is empty")

// Service materializes cart snapshots for order creation. Prices come from
// the live catalog at snapshot time; the caller freezes them onto the order.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Snapshot reads the user's cart and computes the total. It never mutates
// the cart; clearing happens only after a successful order handoff.
func (s *Service) Snapshot(ctx context.Context, userID string) ([]Line, float64, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, ErrEmptyCart
	}

	lines := make([]Line, 0, len(items))
	total := 0.0
	for _, it := range items {
		line := Line{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Product.Price,
		}
		lines = append(lines, line)
		total += line.Price * float64(line.Quantity)
	}

	return lines, total, nil
}

// Clear removes all cart items for the user.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}
