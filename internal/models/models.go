package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusFrozen AccountStatus = "FROZEN"
)

// Account holds one user's balances. Invariant: Balance always equals
// AvailableBalance + LockedBalance, and no component is negative.
type Account struct {
	UserID              string          `json:"user_id"`
	Balance             decimal.Decimal `json:"balance"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
	LockedBalance       decimal.Decimal `json:"locked_balance"`
	TotalDeposits       decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals    decimal.Decimal `json:"total_withdrawals"`
	TotalInterestEarned decimal.Decimal `json:"total_interest_earned"`
	Status              AccountStatus   `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
)

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusApproved TransactionStatus = "APPROVED"
	TransactionStatusRejected TransactionStatus = "REJECTED"
)

// Transaction is one deposit or withdrawal request. It is created PENDING
// and transitions exactly once to APPROVED or REJECTED.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	RequestedAt time.Time         `json:"requested_at"`
	ReviewedAt  *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedBy  string            `json:"reviewed_by,omitempty"`
	Note        string            `json:"note,omitempty"`
}

type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusMatured   PlanStatus = "MATURED"
	PlanStatusCancelled PlanStatus = "CANCELLED"
)

// SavingsPlan is a fixed-term commitment of principal against a template.
// Interest accrues once per calendar day in [StartDate, EndDate); locked
// principal returns to the available balance at maturity.
type SavingsPlan struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	TemplateID           string          `json:"template_id"`
	PrincipalAmount      decimal.Decimal `json:"principal_amount"`
	DailyRate            decimal.Decimal `json:"daily_rate"`
	IsLocked             bool            `json:"is_locked"`
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
	LastInterestCalcDate *time.Time      `json:"last_interest_calc_date,omitempty"`
	InterestEarnedTotal  decimal.Decimal `json:"interest_earned_total"`
	Status               PlanStatus      `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// PlanTemplate is a catalog entry. Templates referenced by a live plan are
// immutable; plans copy DailyRate and IsLocked at open time.
type PlanTemplate struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	DurationDays int             `json:"duration_days"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	IsLocked     bool            `json:"is_locked"`
	Active       bool            `json:"active"`
}

type AuditActor string

const (
	AuditActorUser   AuditActor = "USER"
	AuditActorAdmin  AuditActor = "ADMIN"
	AuditActorSystem AuditActor = "SYSTEM"
)

const (
	AuditActionAccountCreated     = "ACCOUNT_CREATED"
	AuditActionTransactionCreated = "TRANSACTION_CREATED"
	AuditActionTransactionDecided = "TRANSACTION_DECIDED"
	AuditActionPlanOpened         = "PLAN_OPENED"
	AuditActionPlanMatured        = "PLAN_MATURED"
	AuditActionInterestAccrued    = "INTEREST_ACCRUED"
)

// AuditEntry is append-only; rows are never updated or deleted.
type AuditEntry struct {
	ID          int64           `json:"id"`
	Action      string          `json:"action"`
	Actor       AuditActor      `json:"actor"`
	ActorID     string          `json:"actor_id"`
	ReferenceID string          `json:"reference_id"`
	Description string          `json:"description"`
	OldValue    json.RawMessage `json:"old_value,omitempty"`
	NewValue    json.RawMessage `json:"new_value,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InterestAccrualRecord marks one day's interest for one plan as applied.
// (PlanID, CalculationDate) is unique; once written it is never recomputed.
type InterestAccrualRecord struct {
	ID              int64           `json:"id"`
	PlanID          string          `json:"plan_id"`
	UserID          string          `json:"user_id"`
	CalculationDate time.Time       `json:"calculation_date"`
	InterestAmount  decimal.Decimal `json:"interest_amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AccrualRunSummary reports one accrual pass.
type AccrualRunSummary struct {
	AsOfDate       time.Time       `json:"as_of_date"`
	PlansVisited   int             `json:"plans_visited"`
	PlansSkipped   int             `json:"plans_skipped"`
	CreditsApplied int             `json:"credits_applied"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
}

// Request/response payloads for the HTTP surface.

type RegisterAccountRequest struct {
	UserID string `json:"user_id"`
}

type BalanceResponse struct {
	UserID              string          `json:"user_id"`
	Balance             decimal.Decimal `json:"balance"`
	AvailableBalance    decimal.Decimal `json:"available_balance"`
	LockedBalance       decimal.Decimal `json:"locked_balance"`
	TotalDeposits       decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals    decimal.Decimal `json:"total_withdrawals"`
	TotalInterestEarned decimal.Decimal `json:"total_interest_earned"`
	Status              AccountStatus   `json:"status"`
}

type CreateTransactionRequest struct {
	UserID string          `json:"user_id"`
	Type   TransactionType `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type DecideTransactionRequest struct {
	Approve bool   `json:"approve"`
	AdminID string `json:"admin_id"`
	Note    string `json:"note"`
}

type OpenPlanRequest struct {
	UserID     string          `json:"user_id"`
	TemplateID string          `json:"template_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AccountBalanceSnapshot is the JSON shape stored in audit old/new values.
type AccountBalanceSnapshot struct {
	UserID           string          `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	LockedBalance    decimal.Decimal `json:"locked_balance"`
}

func SnapshotOf(a *Account) AccountBalanceSnapshot {
	return AccountBalanceSnapshot{
		UserID:           a.UserID,
		Balance:          a.Balance,
		AvailableBalance: a.AvailableBalance,
		LockedBalance:    a.LockedBalance,
	}
}
