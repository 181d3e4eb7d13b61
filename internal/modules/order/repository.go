package order

import "context"

// Repository defines data access for orders.
type Repository interface {
	// CreateOrder persists a new order.
	CreateOrder(ctx context.Context, o *Order) error

	// GetOrderByID returns the order or an apperr.NotFoundError.
	GetOrderByID(ctx context.Context, id string) (*Order, error)

	// ListOrders returns the orders matching f, newest first.
	ListOrders(ctx context.Context, f Filter) ([]*Order, error)

	// UpdateOrder replaces a stored order or returns an apperr.NotFoundError.
	UpdateOrder(ctx context.Context, o *Order) error

	// DeleteOrder removes the order or returns an apperr.NotFoundError.
	DeleteOrder(ctx context.Context, id string) error
}
