package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so the same repository
// code runs standalone or inside an atomic unit.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type ops struct {
	q queryer
}

func (o ops) Accounts() repository.AccountRepository         { return &accountRepository{q: o.q} }
func (o ops) Transactions() repository.TransactionRepository { return &transactionRepository{q: o.q} }
func (o ops) Plans() repository.PlanRepository               { return &planRepository{q: o.q} }
func (o ops) Templates() repository.TemplateRepository       { return &templateRepository{q: o.q} }
func (o ops) Accruals() repository.AccrualRepository         { return &accrualRepository{q: o.q} }
func (o ops) Audit() repository.AuditRepository              { return &auditRepository{q: o.q} }

// Store is the durable backend over Postgres.
type Store struct {
	ops
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{ops: ops{q: db}, db: db}
}

// Atomic runs fn inside a database transaction with SERIALIZABLE isolation.
// Any error from fn rolls everything back. Serialization failures are retried
// a bounded number of times before surfacing as a storage conflict.
func (s *Store) Atomic(ctx context.Context, fn func(ops repository.Ops) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * txRetryBaseDelay):
			}
		}

		err = s.runTx(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", errors.ErrStorageConflict, err)
}

const (
	maxTxAttempts    = 3
	txRetryBaseDelay = 50 * time.Millisecond
)

func (s *Store) runTx(ctx context.Context, fn func(ops repository.Ops) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.NewStorageError("begin", err)
	}

	// Ensure rollback on error
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	if err := fn(ops{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("commit", err)
	}

	// Nullify tx to avoid rollback in defer
	tx = nil
	return nil
}

// Postgres aborts one of two conflicting serializable transactions with
// SQLSTATE 40001 (serialization_failure) or 40P01 (deadlock_detected).
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func (s *Store) Close() error {
	return s.db.Close()
}

func scanErr(entity string, err error) error {
	return fmt.Errorf("failed to scan %s: %w", entity, err)
}
