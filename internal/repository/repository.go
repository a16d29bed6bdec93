package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/models"
)

// CreditBucket names which running total a credit bumps alongside the
// balance itself.
type CreditBucket string

const (
	CreditBucketDeposit  CreditBucket = "DEPOSIT"
	CreditBucketInterest CreditBucket = "INTEREST"
)

// AccountRepository is the ledger store: the only place account balances
// are mutated. Every mutation is a single precondition-guarded update; a
// failed precondition surfaces as a typed error, never as silent success.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)

	// Credit adds amount to the available balance and to the bucket's
	// running total. Fails with ErrInvalidAmount when amount <= 0.
	Credit(ctx context.Context, userID string, amount decimal.Decimal, bucket CreditBucket) error

	// Debit removes amount from the available balance. Fails with
	// ErrInsufficientFunds when the available balance is smaller at
	// commit time.
	Debit(ctx context.Context, userID string, amount decimal.Decimal) error

	// Lock moves amount from available to locked.
	Lock(ctx context.Context, userID string, amount decimal.Decimal) error

	// Unlock moves amount from locked back to available. Fails with
	// ErrInsufficientLockedFunds when the locked balance is smaller.
	Unlock(ctx context.Context, userID string, amount decimal.Decimal) error
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)

	// MarkReviewed flips a PENDING transaction to a terminal status.
	// Fails with ErrAlreadyReviewed when the transaction is no longer
	// PENDING, ErrTransactionNotFound when it does not exist.
	MarkReviewed(ctx context.Context, id string, status models.TransactionStatus, adminID, note string, reviewedAt time.Time) error

	ListByUserID(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *models.SavingsPlan) error
	GetByID(ctx context.Context, id string) (*models.SavingsPlan, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.SavingsPlan, error)
	ListActive(ctx context.Context) ([]*models.SavingsPlan, error)

	// ListActiveEndedBy returns ACTIVE plans whose end date is on or
	// before the given date, i.e. plans due for maturity.
	ListActiveEndedBy(ctx context.Context, date time.Time) ([]*models.SavingsPlan, error)

	// MarkMatured flips an ACTIVE plan to MATURED. Returns false without
	// error when the plan was already terminal, so maturity is idempotent.
	MarkMatured(ctx context.Context, id string) (bool, error)

	// ApplyInterest bumps interest_earned_total and advances
	// last_interest_calc_date for an ACTIVE plan.
	ApplyInterest(ctx context.Context, id string, amount decimal.Decimal, calcDate time.Time) error
}

type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*models.PlanTemplate, error)
	List(ctx context.Context) ([]*models.PlanTemplate, error)
}

// AccrualRepository stores the per-(plan, calendar-day) idempotency records.
type AccrualRepository interface {
	// Create inserts the record. Fails with ErrDuplicateAccrual when a
	// record for (plan_id, calculation_date) already exists.
	Create(ctx context.Context, record *models.InterestAccrualRecord) error
	ListByPlanID(ctx context.Context, planID string) ([]*models.InterestAccrualRecord, error)
}

// AuditRepository is append-only; there is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListByReferenceID(ctx context.Context, referenceID string, limit int) ([]*models.AuditEntry, error)
}

// Ops bundles the repositories sharing one storage context.
type Ops interface {
	Accounts() AccountRepository
	Transactions() TransactionRepository
	Plans() PlanRepository
	Templates() TemplateRepository
	Accruals() AccrualRepository
	Audit() AuditRepository
}

// Store is the storage backend selected at startup. Direct Ops calls run
// standalone; Atomic runs fn so that either every mutation inside commits
// or none does. Services rely on Atomic for multi-row state transitions
// (decision + balance, accrual record + credit + plan bump).
type Store interface {
	Ops
	Atomic(ctx context.Context, fn func(ops Ops) error) error
	Close() error
}
