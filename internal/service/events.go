package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/models"
)

// Events emitted after a state change commits. The notification
// collaborator (chat messages, email) formats and delivers them; the
// engine only supplies the data.

type TransactionDecidedEvent struct {
	Transaction *models.Transaction
	Account     *models.Account
	Approved    bool
	Reason      string
}

type PlanOpenedEvent struct {
	Plan    *models.SavingsPlan
	Account *models.Account
}

type PlanMaturedEvent struct {
	Plan    *models.SavingsPlan
	Account *models.Account
}

type InterestCreditedEvent struct {
	PlanID          string
	UserID          string
	CalculationDate time.Time
	Amount          decimal.Decimal
	InterestTotal   decimal.Decimal
}

type Notifier interface {
	TransactionDecided(ctx context.Context, event TransactionDecidedEvent)
	PlanOpened(ctx context.Context, event PlanOpenedEvent)
	PlanMatured(ctx context.Context, event PlanMaturedEvent)
	InterestCredited(ctx context.Context, event InterestCreditedEvent)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) TransactionDecided(context.Context, TransactionDecidedEvent) {}
func (NopNotifier) PlanOpened(context.Context, PlanOpenedEvent)                 {}
func (NopNotifier) PlanMatured(context.Context, PlanMaturedEvent)               {}
func (NopNotifier) InterestCredited(context.Context, InterestCreditedEvent)     {}

// LogNotifier writes each event as a structured log line. It stands in for
// a real delivery collaborator in deployments that have none wired.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) TransactionDecided(ctx context.Context, event TransactionDecidedEvent) {
	n.Logger.Info("event: transaction decided",
		"transaction_id", event.Transaction.ID,
		"user_id", event.Transaction.UserID,
		"type", event.Transaction.Type,
		"amount", event.Transaction.Amount.String(),
		"status", event.Transaction.Status,
		"approved", event.Approved,
		"reason", event.Reason,
		"available_balance", event.Account.AvailableBalance.String(),
	)
}

func (n LogNotifier) PlanOpened(ctx context.Context, event PlanOpenedEvent) {
	n.Logger.Info("event: plan opened",
		"plan_id", event.Plan.ID,
		"user_id", event.Plan.UserID,
		"template_id", event.Plan.TemplateID,
		"principal", event.Plan.PrincipalAmount.String(),
		"end_date", event.Plan.EndDate.Format(time.DateOnly),
		"available_balance", event.Account.AvailableBalance.String(),
		"locked_balance", event.Account.LockedBalance.String(),
	)
}

func (n LogNotifier) PlanMatured(ctx context.Context, event PlanMaturedEvent) {
	n.Logger.Info("event: plan matured",
		"plan_id", event.Plan.ID,
		"user_id", event.Plan.UserID,
		"principal", event.Plan.PrincipalAmount.String(),
		"interest_earned_total", event.Plan.InterestEarnedTotal.String(),
		"available_balance", event.Account.AvailableBalance.String(),
	)
}

func (n LogNotifier) InterestCredited(ctx context.Context, event InterestCreditedEvent) {
	n.Logger.Info("event: interest credited",
		"plan_id", event.PlanID,
		"user_id", event.UserID,
		"calculation_date", event.CalculationDate.Format(time.DateOnly),
		"amount", event.Amount.String(),
		"interest_total", event.InterestTotal.String(),
	)
}
