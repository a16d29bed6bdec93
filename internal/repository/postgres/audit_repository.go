package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/riteshkumar/savings-ledger/internal/models"
)

type auditRepository struct {
	q queryer
}

// Create inserts a new audit entry. The table is append-only; no update or
// delete statement exists anywhere in this package.
func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	query := `INSERT INTO audit_log (action, actor, actor_id, reference_id, description, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	var oldValue, newValue interface{}
	if entry.OldValue != nil {
		oldValue = entry.OldValue
	}
	if entry.NewValue != nil {
		newValue = entry.NewValue
	}

	err := r.q.QueryRowContext(ctx, query,
		entry.Action,
		entry.Actor,
		entry.ActorID,
		entry.ReferenceID,
		entry.Description,
		oldValue,
		newValue,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByReferenceID(ctx context.Context, referenceID string, limit int) ([]*models.AuditEntry, error) {
	query := `SELECT id, action, actor, actor_id, reference_id, description, old_value, new_value, created_at
		FROM audit_log
		WHERE reference_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, referenceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries by reference ID: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		var oldValue, newValue []byte

		err := rows.Scan(
			&entry.ID, &entry.Action, &entry.Actor, &entry.ActorID,
			&entry.ReferenceID, &entry.Description, &oldValue, &newValue, &entry.CreatedAt,
		)
		if err != nil {
			return nil, scanErr("audit entry", err)
		}

		if oldValue != nil {
			entry.OldValue = json.RawMessage(oldValue)
		}
		if newValue != nil {
			entry.NewValue = json.RawMessage(newValue)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over audit entries: %w", err)
	}
	return entries, nil
}
