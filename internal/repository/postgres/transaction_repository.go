package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
)

type transactionRepository struct {
	q queryer
}

const transactionColumns = `id, user_id, type, amount, status, requested_at, reviewed_at, reviewed_by, note`

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	// Generate UUID if not set
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	query := `INSERT INTO transactions (id, user_id, type, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING requested_at`

	err := r.q.QueryRowContext(ctx, query,
		transaction.ID,
		transaction.UserID,
		transaction.Type,
		transaction.Amount,
		transaction.Status,
	).Scan(&transaction.RequestedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	transaction, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}
	return transaction, nil
}

// MarkReviewed only matches a row still PENDING, so a second decision on
// the same transaction can never overwrite the first.
func (r *transactionRepository) MarkReviewed(ctx context.Context, id string, status models.TransactionStatus, adminID, note string, reviewedAt time.Time) error {
	query := `UPDATE transactions
		SET status = $1, reviewed_by = $2, note = $3, reviewed_at = $4
		WHERE id = $5 AND status = $6`

	result, err := r.q.ExecContext(ctx, query, status, adminID, note, reviewedAt, id, models.TransactionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark transaction reviewed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after marking transaction reviewed: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check if transaction exists: %w", err)
		}
		if !exists {
			return errors.ErrTransactionNotFound
		}
		return errors.ErrAlreadyReviewed
	}
	return nil
}

func (r *transactionRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by user ID: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, scanErr("transaction", err)
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	var reviewedAt sql.NullTime
	var reviewedBy, note sql.NullString

	err := row.Scan(
		&transaction.ID, &transaction.UserID, &transaction.Type, &transaction.Amount,
		&transaction.Status, &transaction.RequestedAt, &reviewedAt, &reviewedBy, &note,
	)
	if err != nil {
		return nil, err
	}

	if reviewedAt.Valid {
		transaction.ReviewedAt = &reviewedAt.Time
	}
	transaction.ReviewedBy = reviewedBy.String
	transaction.Note = note.String
	return transaction, nil
}
