package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// Update updates an existing order. The update is a single atomic
	// write of the full row.
	Update(ctx context.Context, order *domain.Order) error

	// ListByRider retrieves a rider's orders, newest first. An empty
	// status means all statuses.
	ListByRider(ctx context.Context, riderID string, status domain.OrderStatus) ([]*domain.Order, error)

	// ListByDriver retrieves a driver's orders, newest first. An empty
	// status means all statuses.
	ListByDriver(ctx context.Context, driverID string, status domain.OrderStatus) ([]*domain.Order, error)

	// GetActiveByDriverID retrieves the driver's ASSIGNED or ON_TRIP
	// order. Returns nil if none exists.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Order, error)

	// ListDueScheduled retrieves SCHEDULED orders whose requested-for
	// time is at or before the given instant.
	ListDueScheduled(ctx context.Context, before time.Time) ([]*domain.Order, error)

	// ListReviews retrieves reviews projected from completed, rated
	// orders. driverID narrows to one driver when non-empty; minRating
	// filters when > 0.
	ListReviews(ctx context.Context, driverID string, minRating int) ([]*domain.ReviewEntry, error)
}
