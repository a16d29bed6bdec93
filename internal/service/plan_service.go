package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

type PlanService interface {
	OpenPlan(ctx context.Context, req *models.OpenPlanRequest) (*models.SavingsPlan, error)
	MaturePlan(ctx context.Context, planID string) (*models.SavingsPlan, error)
	MatureDuePlans(ctx context.Context) (int, error)
	GetPlans(ctx context.Context, userID string) ([]*models.SavingsPlan, error)
	ListTemplates(ctx context.Context) ([]*models.PlanTemplate, error)
}

type PlanServiceImpl struct {
	store    repository.Store
	notifier Notifier
	clock    Clock
	logger   *slog.Logger
}

func NewPlanService(store repository.Store, notifier Notifier, clock Clock, logger *slog.Logger) *PlanServiceImpl {
	return &PlanServiceImpl{
		store:    store,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// OpenPlan commits principal against a template. For a locked template the
// principal moves to the locked balance in the same atomic unit that
// creates the plan; for an unlocked one the funds stay available but the
// plan still earns interest on them.
func (s *PlanServiceImpl) OpenPlan(ctx context.Context, req *models.OpenPlanRequest) (*models.SavingsPlan, error) {
	if req.UserID == "" {
		return nil, errors.NewValidationError("user_id", "must be non-empty")
	}
	if req.TemplateID == "" {
		return nil, errors.NewValidationError("template_id", "must be non-empty")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.ErrInvalidAmount
	}

	var plan *models.SavingsPlan
	var account *models.Account

	err := s.store.Atomic(ctx, func(ops repository.Ops) error {
		template, err := ops.Templates().GetByID(ctx, req.TemplateID)
		if err != nil {
			return err
		}
		if !template.Active {
			return errors.ErrTemplateNotFound
		}
		if req.Amount.LessThan(template.MinAmount) {
			return errors.ErrBelowMinimum
		}

		current, err := ops.Accounts().GetByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if current.Status == models.AccountStatusFrozen {
			return errors.ErrAccountFrozen
		}

		if template.IsLocked {
			// the lock carries the funds check
			if err := ops.Accounts().Lock(ctx, req.UserID, req.Amount); err != nil {
				return err
			}
		} else if current.AvailableBalance.LessThan(req.Amount) {
			return errors.ErrInsufficientFunds
		}

		startDate := DateOnly(s.clock())
		plan = &models.SavingsPlan{
			UserID:          req.UserID,
			TemplateID:      template.ID,
			PrincipalAmount: req.Amount,
			DailyRate:       template.DailyRate,
			IsLocked:        template.IsLocked,
			StartDate:       startDate,
			EndDate:         startDate.AddDate(0, 0, template.DurationDays),
			Status:          models.PlanStatusActive,
		}
		if err := ops.Plans().Create(ctx, plan); err != nil {
			return err
		}

		account, err = ops.Accounts().GetByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}

		oldValue, _ := json.Marshal(models.SnapshotOf(current))
		newValue, _ := json.Marshal(models.SnapshotOf(account))
		return ops.Audit().Create(ctx, &models.AuditEntry{
			Action:      models.AuditActionPlanOpened,
			Actor:       models.AuditActorUser,
			ActorID:     req.UserID,
			ReferenceID: plan.ID,
			Description: "savings plan opened against template " + template.ID,
			OldValue:    oldValue,
			NewValue:    newValue,
		})
	})
	if err != nil {
		s.logger.Warn("failed to open savings plan",
			"user_id", req.UserID,
			"template_id", req.TemplateID,
			"amount", req.Amount.String(),
			"error", err.Error(),
		)
		return nil, err
	}

	s.logger.Info("savings plan opened",
		"plan_id", plan.ID,
		"user_id", req.UserID,
		"template_id", req.TemplateID,
		"principal", req.Amount.String(),
		"end_date", plan.EndDate.Format(time.DateOnly),
	)

	s.notifier.PlanOpened(ctx, PlanOpenedEvent{Plan: plan, Account: account})
	return plan, nil
}

// MaturePlan releases a plan whose term has ended. A plan already MATURED
// is a no-op, not an error. Any eligible days the daily job missed are
// credited first: maturity establishes that the plan is fully accrued, it
// never assumes it, so a late sweep or a lazy read cannot forfeit interest.
func (s *PlanServiceImpl) MaturePlan(ctx context.Context, planID string) (*models.SavingsPlan, error) {
	if planID == "" {
		return nil, errors.NewValidationError("plan_id", "must be non-empty")
	}

	plan, err := s.store.Plans().GetByID(ctx, planID)
	if err != nil {
		s.logger.Error("failed to load savings plan for maturity",
			"plan_id", planID,
			"error", err.Error(),
		)
		return nil, err
	}
	if plan.Status != models.PlanStatusActive {
		return plan, nil
	}
	today := DateOnly(s.clock())
	if today.Before(plan.EndDate) {
		return nil, errors.NewValidationError("plan_id", "plan has not reached its end date")
	}

	if _, _, err := creditMissedDays(ctx, s.store, s.notifier, plan, today); err != nil {
		s.logger.Error("failed to credit outstanding interest before maturity",
			"plan_id", planID,
			"error", err.Error(),
		)
		return nil, err
	}

	var account *models.Account
	var flipped bool

	err = s.store.Atomic(ctx, func(ops repository.Ops) error {
		var err error
		plan, err = ops.Plans().GetByID(ctx, planID)
		if err != nil {
			return err
		}
		if plan.Status != models.PlanStatusActive {
			return nil
		}

		flipped, err = ops.Plans().MarkMatured(ctx, planID)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		plan.Status = models.PlanStatusMatured

		oldAccount, err := ops.Accounts().GetByUserID(ctx, plan.UserID)
		if err != nil {
			return err
		}

		if plan.IsLocked {
			if err := ops.Accounts().Unlock(ctx, plan.UserID, plan.PrincipalAmount); err != nil {
				return err
			}
		}

		account, err = ops.Accounts().GetByUserID(ctx, plan.UserID)
		if err != nil {
			return err
		}

		oldValue, _ := json.Marshal(models.SnapshotOf(oldAccount))
		newValue, _ := json.Marshal(models.SnapshotOf(account))
		return ops.Audit().Create(ctx, &models.AuditEntry{
			Action:      models.AuditActionPlanMatured,
			Actor:       models.AuditActorSystem,
			ActorID:     "scheduler",
			ReferenceID: plan.ID,
			Description: "savings plan matured",
			OldValue:    oldValue,
			NewValue:    newValue,
		})
	})
	if err != nil {
		s.logger.Error("failed to mature savings plan",
			"plan_id", planID,
			"error", err.Error(),
		)
		return nil, err
	}

	if flipped {
		s.logger.Info("savings plan matured",
			"plan_id", plan.ID,
			"user_id", plan.UserID,
			"principal", plan.PrincipalAmount.String(),
			"interest_earned_total", plan.InterestEarnedTotal.String(),
		)
		s.notifier.PlanMatured(ctx, PlanMaturedEvent{Plan: plan, Account: account})
	}
	return plan, nil
}

// MatureDuePlans sweeps every ACTIVE plan past its end date. One plan's
// failure is logged and skipped so it cannot block the rest.
func (s *PlanServiceImpl) MatureDuePlans(ctx context.Context) (int, error) {
	due, err := s.store.Plans().ListActiveEndedBy(ctx, DateOnly(s.clock()))
	if err != nil {
		s.logger.Error("failed to list plans due for maturity", "error", err.Error())
		return 0, err
	}

	matured := 0
	for _, plan := range due {
		if _, err := s.MaturePlan(ctx, plan.ID); err != nil {
			s.logger.Error("maturity sweep skipping plan",
				"plan_id", plan.ID,
				"error", err.Error(),
			)
			continue
		}
		matured++
	}
	return matured, nil
}

// GetPlans lists a user's plans, lazily maturing any that ended before the
// scheduled sweep got to them.
func (s *PlanServiceImpl) GetPlans(ctx context.Context, userID string) ([]*models.SavingsPlan, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "must be non-empty")
	}

	plans, err := s.store.Plans().ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list savings plans",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}

	today := DateOnly(s.clock())
	for i, plan := range plans {
		if plan.Status != models.PlanStatusActive || plan.EndDate.After(today) {
			continue
		}
		matured, err := s.MaturePlan(ctx, plan.ID)
		if err != nil {
			continue
		}
		plans[i] = matured
	}
	return plans, nil
}

func (s *PlanServiceImpl) ListTemplates(ctx context.Context) ([]*models.PlanTemplate, error) {
	templates, err := s.store.Templates().List(ctx)
	if err != nil {
		s.logger.Error("failed to list plan templates", "error", err.Error())
		return nil, err
	}
	return templates, nil
}
