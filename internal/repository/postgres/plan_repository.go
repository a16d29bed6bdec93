package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
)

type planRepository struct {
	q queryer
}

const planColumns = `id, user_id, template_id, principal_amount, daily_rate, is_locked,
	start_date, end_date, last_interest_calc_date, interest_earned_total, status, created_at, updated_at`

func (r *planRepository) Create(ctx context.Context, plan *models.SavingsPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}

	query := `INSERT INTO savings_plans (id, user_id, template_id, principal_amount, daily_rate,
			is_locked, start_date, end_date, interest_earned_total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9)
		RETURNING created_at, updated_at`

	err := r.q.QueryRowContext(ctx, query,
		plan.ID,
		plan.UserID,
		plan.TemplateID,
		plan.PrincipalAmount,
		plan.DailyRate,
		plan.IsLocked,
		plan.StartDate,
		plan.EndDate,
		plan.Status,
	).Scan(&plan.CreatedAt, &plan.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create savings plan: %w", err)
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*models.SavingsPlan, error) {
	query := `SELECT ` + planColumns + ` FROM savings_plans WHERE id = $1`

	plan, err := scanPlan(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get savings plan by ID: %w", err)
	}
	return plan, nil
}

func (r *planRepository) ListByUserID(ctx context.Context, userID string) ([]*models.SavingsPlan, error) {
	query := `SELECT ` + planColumns + ` FROM savings_plans
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *planRepository) ListActive(ctx context.Context) ([]*models.SavingsPlan, error) {
	query := `SELECT ` + planColumns + ` FROM savings_plans
		WHERE status = $1
		ORDER BY created_at`
	return r.list(ctx, query, models.PlanStatusActive)
}

func (r *planRepository) ListActiveEndedBy(ctx context.Context, date time.Time) ([]*models.SavingsPlan, error) {
	query := `SELECT ` + planColumns + ` FROM savings_plans
		WHERE status = $1 AND end_date <= $2
		ORDER BY end_date`
	return r.list(ctx, query, models.PlanStatusActive, date)
}

func (r *planRepository) MarkMatured(ctx context.Context, id string) (bool, error) {
	query := `UPDATE savings_plans
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = $3`

	result, err := r.q.ExecContext(ctx, query, models.PlanStatusMatured, id, models.PlanStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to mark savings plan matured: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected after marking savings plan matured: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM savings_plans WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, fmt.Errorf("failed to check if savings plan exists: %w", err)
		}
		if !exists {
			return false, errors.ErrPlanNotFound
		}
		// already terminal, maturity is a no-op
		return false, nil
	}
	return true, nil
}

func (r *planRepository) ApplyInterest(ctx context.Context, id string, amount decimal.Decimal, calcDate time.Time) error {
	query := `UPDATE savings_plans
		SET interest_earned_total = interest_earned_total + $1,
			last_interest_calc_date = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = $4`

	result, err := r.q.ExecContext(ctx, query, amount, calcDate, id, models.PlanStatusActive)
	if err != nil {
		return fmt.Errorf("failed to apply interest to savings plan: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after applying interest: %w", err)
	}
	if rows == 0 {
		return errors.ErrStorageConflict
	}
	return nil
}

func (r *planRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.SavingsPlan, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list savings plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.SavingsPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, scanErr("savings plan", err)
		}
		plans = append(plans, plan)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over savings plans: %w", err)
	}
	return plans, nil
}

func scanPlan(row rowScanner) (*models.SavingsPlan, error) {
	plan := &models.SavingsPlan{}
	var lastCalc sql.NullTime

	err := row.Scan(
		&plan.ID, &plan.UserID, &plan.TemplateID, &plan.PrincipalAmount, &plan.DailyRate,
		&plan.IsLocked, &plan.StartDate, &plan.EndDate, &lastCalc,
		&plan.InterestEarnedTotal, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastCalc.Valid {
		plan.LastInterestCalcDate = &lastCalc.Time
	}
	return plan, nil
}
