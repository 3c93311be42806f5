package repository

import (
	"context"

	"dispatch/internal/domain"
)

// PlanRepository defines the persistence operations for scheduled plans.
type PlanRepository interface {
	// Create persists a new plan with its entries.
	Create(ctx context.Context, plan *domain.ScheduledPlan) error

	// GetByID retrieves a plan by ID.
	GetByID(ctx context.Context, id string) (*domain.ScheduledPlan, error)

	// ListByOwner retrieves all plans owned by a user.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.ScheduledPlan, error)

	// GetAll retrieves every plan. Used by the materializer tick.
	GetAll(ctx context.Context) ([]*domain.ScheduledPlan, error)

	// Update replaces the plan's name and entry list wholesale.
	Update(ctx context.Context, plan *domain.ScheduledPlan) error

	// Delete removes a plan. Already-materialized orders and execution
	// rows are unaffected.
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository is the materialization idempotency ledger.
type ExecutionRepository interface {
	// Insert records an execution. It returns false with a nil error
	// when a row for the same (plan id, entry index, occurrence date)
	// already exists; exactly one concurrent insert per key succeeds.
	Insert(ctx context.Context, exec *domain.PlanExecution) (bool, error)

	// ListByPlan retrieves the fired executions of a plan, newest first.
	ListByPlan(ctx context.Context, planID string) ([]*domain.PlanExecution, error)
}
