package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PlanRepository is a PostgreSQL implementation of repository.PlanRepository.
type PlanRepository struct {
	q Querier
}

// NewPlanRepository creates a new PostgreSQL plan repository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{q: db}
}

// Create persists a new plan with its entries.
func (r *PlanRepository) Create(ctx context.Context, plan *domain.ScheduledPlan) error {
	query := `
		INSERT INTO scheduled_plans (id, owner_id, name, entries, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	entries, err := json.Marshal(plan.Entries)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query, plan.ID, plan.OwnerID, plan.Name, entries, plan.CreatedAt)
	return err
}

// GetByID retrieves a plan by ID.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledPlan, error) {
	query := `SELECT id, owner_id, name, entries, created_at FROM scheduled_plans WHERE id = $1`

	plan, err := scanPlan(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return plan, nil
}

// ListByOwner retrieves all plans owned by a user.
func (r *PlanRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.ScheduledPlan, error) {
	query := `SELECT id, owner_id, name, entries, created_at FROM scheduled_plans WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.listPlans(ctx, query, ownerID)
}

// GetAll retrieves every plan.
func (r *PlanRepository) GetAll(ctx context.Context) ([]*domain.ScheduledPlan, error) {
	query := `SELECT id, owner_id, name, entries, created_at FROM scheduled_plans ORDER BY created_at`
	return r.listPlans(ctx, query)
}

func (r *PlanRepository) listPlans(ctx context.Context, query string, args ...any) ([]*domain.ScheduledPlan, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*domain.ScheduledPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// Update replaces the plan's name and entry list wholesale.
func (r *PlanRepository) Update(ctx context.Context, plan *domain.ScheduledPlan) error {
	query := `UPDATE scheduled_plans SET name = $1, entries = $2 WHERE id = $3`

	entries, err := json.Marshal(plan.Entries)
	if err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, query, plan.Name, entries, plan.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a plan. Execution rows are retained as history.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM scheduled_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanPlan(row rowScanner) (*domain.ScheduledPlan, error) {
	var plan domain.ScheduledPlan
	var entries []byte

	if err := row.Scan(&plan.ID, &plan.OwnerID, &plan.Name, &entries, &plan.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(entries, &plan.Entries); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Ensure PlanRepository implements repository.PlanRepository.
var _ repository.PlanRepository = (*PlanRepository)(nil)
