package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
)

type templateRepository struct {
	q queryer
}

const templateColumns = `id, name, min_amount, duration_days, daily_rate, is_locked, active`

func (r *templateRepository) GetByID(ctx context.Context, id string) (*models.PlanTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM plan_templates WHERE id = $1`

	template := &models.PlanTemplate{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&template.ID, &template.Name, &template.MinAmount, &template.DurationDays,
		&template.DailyRate, &template.IsLocked, &template.Active,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get plan template by ID: %w", err)
	}
	return template, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*models.PlanTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM plan_templates WHERE active ORDER BY min_amount`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.PlanTemplate
	for rows.Next() {
		template := &models.PlanTemplate{}
		err := rows.Scan(
			&template.ID, &template.Name, &template.MinAmount, &template.DurationDays,
			&template.DailyRate, &template.IsLocked, &template.Active,
		)
		if err != nil {
			return nil, scanErr("plan template", err)
		}
		templates = append(templates, template)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over plan templates: %w", err)
	}
	return templates, nil
}
