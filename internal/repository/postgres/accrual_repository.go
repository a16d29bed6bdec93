package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
)

type accrualRepository struct {
	q queryer
}

// Create relies on the UNIQUE (plan_id, calculation_date) constraint: a
// duplicate insert surfaces as ErrDuplicateAccrual, which is what makes a
// re-run of the accrual job safe.
func (r *accrualRepository) Create(ctx context.Context, record *models.InterestAccrualRecord) error {
	query := `INSERT INTO interest_accrual_records (plan_id, user_id, calculation_date, interest_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.q.QueryRowContext(ctx, query,
		record.PlanID,
		record.UserID,
		record.CalculationDate,
		record.InterestAmount,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrDuplicateAccrual
		}
		return fmt.Errorf("failed to create interest accrual record: %w", err)
	}
	return nil
}

func (r *accrualRepository) ListByPlanID(ctx context.Context, planID string) ([]*models.InterestAccrualRecord, error) {
	query := `SELECT id, plan_id, user_id, calculation_date, interest_amount, created_at
		FROM interest_accrual_records
		WHERE plan_id = $1
		ORDER BY calculation_date`

	rows, err := r.q.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interest accrual records: %w", err)
	}
	defer rows.Close()

	var records []*models.InterestAccrualRecord
	for rows.Next() {
		record := &models.InterestAccrualRecord{}
		err := rows.Scan(
			&record.ID, &record.PlanID, &record.UserID,
			&record.CalculationDate, &record.InterestAmount, &record.CreatedAt,
		)
		if err != nil {
			return nil, scanErr("interest accrual record", err)
		}
		records = append(records, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over interest accrual records: %w", err)
	}
	return records, nil
}
