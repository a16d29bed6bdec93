package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

type accountRepository struct {
	q queryer
}

const accountColumns = `user_id, balance, available_balance, locked_balance,
	total_deposits, total_withdrawals, total_interest_earned, status, created_at, updated_at`

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (user_id, balance, available_balance, locked_balance,
			total_deposits, total_withdrawals, total_interest_earned, status)
		VALUES ($1, 0, 0, 0, 0, 0, 0, $2)
		RETURNING created_at, updated_at`

	err := r.q.QueryRowContext(ctx, query, account.UserID, account.Status).
		Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`

	account := &models.Account{}
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&account.UserID, &account.Balance, &account.AvailableBalance, &account.LockedBalance,
		&account.TotalDeposits, &account.TotalWithdrawals, &account.TotalInterestEarned,
		&account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by user ID: %w", err)
	}
	return account, nil
}

// Credit has no balance precondition, so zero rows affected can only mean
// the account row does not exist.
func (r *accountRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal, bucket repository.CreditBucket) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}

	var query string
	switch bucket {
	case repository.CreditBucketInterest:
		query = `UPDATE accounts
			SET available_balance = available_balance + $1,
				balance = balance + $1,
				total_interest_earned = total_interest_earned + $1,
				updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $2`
	default:
		query = `UPDATE accounts
			SET available_balance = available_balance + $1,
				balance = balance + $1,
				total_deposits = total_deposits + $1,
				updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $2`
	}

	rows, err := r.exec(ctx, "credit account", query, amount, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

// Debit embeds the funds check in the update itself: the statement matches
// no row when the available balance is too small at commit time, so two
// concurrent debits can never both pass against a stale read.
func (r *accountRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}

	query := `UPDATE accounts
		SET available_balance = available_balance - $1,
			balance = balance - $1,
			total_withdrawals = total_withdrawals + $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $2 AND available_balance >= $1`

	rows, err := r.exec(ctx, "debit account", query, amount, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.preconditionFailure(ctx, userID, errors.ErrInsufficientFunds)
	}
	return nil
}

func (r *accountRepository) Lock(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}

	query := `UPDATE accounts
		SET available_balance = available_balance - $1,
			locked_balance = locked_balance + $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $2 AND available_balance >= $1`

	rows, err := r.exec(ctx, "lock funds", query, amount, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.preconditionFailure(ctx, userID, errors.ErrInsufficientFunds)
	}
	return nil
}

func (r *accountRepository) Unlock(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}

	query := `UPDATE accounts
		SET available_balance = available_balance + $1,
			locked_balance = locked_balance - $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $2 AND locked_balance >= $1`

	rows, err := r.exec(ctx, "unlock funds", query, amount, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.preconditionFailure(ctx, userID, errors.ErrInsufficientLockedFunds)
	}
	return nil
}

func (r *accountRepository) exec(ctx context.Context, operation, query string, amount decimal.Decimal, userID string) (int64, error) {
	result, err := r.q.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", operation, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected after %s: %w", operation, err)
	}
	return rows, nil
}

// preconditionFailure distinguishes a missing account from a failed funds
// precondition after a zero-rows update.
func (r *accountRepository) preconditionFailure(ctx context.Context, userID string, insufficient error) error {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if account exists: %w", err)
	}
	if !exists {
		return errors.ErrAccountNotFound
	}
	return insufficient
}
