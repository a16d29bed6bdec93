package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

type AccrualService interface {
	// RunAccrual credits one day's interest per active plan per missed
	// calendar day, at most once per (plan, day).
	RunAccrual(ctx context.Context) (*models.AccrualRunSummary, error)
}

type AccrualServiceImpl struct {
	store    repository.Store
	notifier Notifier
	clock    Clock
	logger   *slog.Logger

	// runMu keeps two accrual passes from overlapping in this process;
	// the (plan_id, calculation_date) uniqueness constraint guards
	// against duplicates from any other process.
	runMu sync.Mutex
}

func NewAccrualService(store repository.Store, notifier Notifier, clock Clock, logger *slog.Logger) *AccrualServiceImpl {
	return &AccrualServiceImpl{
		store:    store,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

func (s *AccrualServiceImpl) RunAccrual(ctx context.Context) (*models.AccrualRunSummary, error) {
	if !s.runMu.TryLock() {
		return nil, errors.ErrAccrualInProgress
	}
	defer s.runMu.Unlock()

	summary := &models.AccrualRunSummary{
		AsOfDate:      DateOnly(s.clock()),
		TotalInterest: decimal.Zero,
		StartedAt:     time.Now(),
	}

	plans, err := s.store.Plans().ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list active plans for accrual", "error", err.Error())
		return nil, err
	}

	for _, plan := range plans {
		summary.PlansVisited++
		if err := s.accruePlan(ctx, plan, summary); err != nil {
			// one bad plan must not block interest for the others
			summary.PlansSkipped++
			s.logger.Error("accrual skipping plan",
				"plan_id", plan.ID,
				"user_id", plan.UserID,
				"error", err.Error(),
			)
		}
	}

	summary.FinishedAt = time.Now()
	s.logger.Info("interest accrual run finished",
		"as_of_date", summary.AsOfDate.Format(time.DateOnly),
		"plans_visited", summary.PlansVisited,
		"plans_skipped", summary.PlansSkipped,
		"credits_applied", summary.CreditsApplied,
		"total_interest", summary.TotalInterest.String(),
		"duration_ms", summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	)
	return summary, nil
}

// accruePlan applies every missed day for one plan, each day in its own
// atomic unit, so a crash mid-way resumes exactly where it stopped.
func (s *AccrualServiceImpl) accruePlan(ctx context.Context, plan *models.SavingsPlan, summary *models.AccrualRunSummary) error {
	credits, total, err := creditMissedDays(ctx, s.store, s.notifier, plan, summary.AsOfDate)
	summary.CreditsApplied += credits
	summary.TotalInterest = summary.TotalInterest.Add(total)
	return err
}

// creditMissedDays credits every eligible, still-uncredited calendar day
// for the plan, oldest first, each in its own atomic unit. The scheduled
// run uses it for catch-up; maturity uses it so a plan cannot be released
// while it is still owed interest. Returns the credits applied and their
// sum; a partial failure reports what was applied before it.
func creditMissedDays(ctx context.Context, store repository.Store, notifier Notifier, plan *models.SavingsPlan, asOf time.Time) (int, decimal.Decimal, error) {
	credits := 0
	total := decimal.Zero

	for _, date := range missingAccrualDates(plan, asOf) {
		interest := plan.PrincipalAmount.Mul(plan.DailyRate).Round(2)

		err := store.Atomic(ctx, func(ops repository.Ops) error {
			record := &models.InterestAccrualRecord{
				PlanID:          plan.ID,
				UserID:          plan.UserID,
				CalculationDate: date,
				InterestAmount:  interest,
			}
			if err := ops.Accruals().Create(ctx, record); err != nil {
				return err
			}
			if interest.IsPositive() {
				if err := ops.Accounts().Credit(ctx, plan.UserID, interest, repository.CreditBucketInterest); err != nil {
					return err
				}
			}
			if err := ops.Plans().ApplyInterest(ctx, plan.ID, interest, date); err != nil {
				return err
			}

			newValue, _ := json.Marshal(record)
			return ops.Audit().Create(ctx, &models.AuditEntry{
				Action:      models.AuditActionInterestAccrued,
				Actor:       models.AuditActorSystem,
				ActorID:     "accrual",
				ReferenceID: plan.ID,
				Description: "daily interest credited for " + date.Format(time.DateOnly),
				NewValue:    newValue,
			})
		})
		if err != nil {
			if errors.IsDuplicateAccrual(err) {
				// another run got here first; nothing was credited
				continue
			}
			return credits, total, err
		}

		plan.InterestEarnedTotal = plan.InterestEarnedTotal.Add(interest)
		credits++
		total = total.Add(interest)

		notifier.InterestCredited(ctx, InterestCreditedEvent{
			PlanID:          plan.ID,
			UserID:          plan.UserID,
			CalculationDate: date,
			Amount:          interest,
			InterestTotal:   plan.InterestEarnedTotal,
		})
	}
	return credits, total, nil
}

// missingAccrualDates returns every calendar date the plan still has to
// accrue, oldest first. Eligible dates run from the start date through the
// day before the end date, capped at asOf, so a plan earns exactly one
// credit per day of its term. Catch-up after downtime falls out naturally:
// each missed day is its own entry.
func missingAccrualDates(plan *models.SavingsPlan, asOf time.Time) []time.Time {
	first := plan.StartDate
	if plan.LastInterestCalcDate != nil {
		first = plan.LastInterestCalcDate.AddDate(0, 0, 1)
	}

	last := asOf
	if lastEligible := plan.EndDate.AddDate(0, 0, -1); lastEligible.Before(last) {
		last = lastEligible
	}

	var dates []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
