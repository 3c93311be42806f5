package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// ExecutionRepository is a PostgreSQL implementation of the
// materialization idempotency ledger.
type ExecutionRepository struct {
	q Querier
}

// NewExecutionRepository creates a new PostgreSQL execution repository.
func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{q: db}
}

// Insert records an execution. The table carries a unique constraint on
// (plan_id, entry_index, occurrence_date); ON CONFLICT DO NOTHING makes
// the insert a race-safe check-and-set, so exactly one concurrent caller
// per occurrence key observes inserted == true.
func (r *ExecutionRepository) Insert(ctx context.Context, exec *domain.PlanExecution) (bool, error) {
	query := `
		INSERT INTO plan_executions (plan_id, entry_index, occurrence_date, order_id, fired_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (plan_id, entry_index, occurrence_date) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		exec.PlanID,
		exec.EntryIndex,
		exec.OccurrenceDate,
		exec.OrderID,
		exec.FiredAt,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// ListByPlan retrieves the fired executions of a plan, newest first.
func (r *ExecutionRepository) ListByPlan(ctx context.Context, planID string) ([]*domain.PlanExecution, error) {
	query := `
		SELECT plan_id, entry_index, occurrence_date, order_id, fired_at
		FROM plan_executions
		WHERE plan_id = $1
		ORDER BY fired_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var execs []*domain.PlanExecution
	for rows.Next() {
		var exec domain.PlanExecution
		if err := rows.Scan(&exec.PlanID, &exec.EntryIndex, &exec.OccurrenceDate, &exec.OrderID, &exec.FiredAt); err != nil {
			return nil, err
		}
		execs = append(execs, &exec)
	}
	return execs, rows.Err()
}

// Ensure ExecutionRepository implements repository.ExecutionRepository.
var _ repository.ExecutionRepository = (*ExecutionRepository)(nil)
