package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
)

func TestOpenLockedPlanMovesFundsToLocked(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "1000.00")

	plan, err := env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID:     "user-1",
		TemplateID: "silver",
		Amount:     dec("1000.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusActive, plan.Status)
	assert.True(t, plan.IsLocked)
	assert.Equal(t, "2025-06-01", plan.StartDate.Format(time.DateOnly))
	assert.Equal(t, "2025-06-08", plan.EndDate.Format(time.DateOnly))
	assert.Nil(t, plan.LastInterestCalcDate)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.IsZero())
	assert.True(t, account.LockedBalance.Equal(dec("1000.00")))
	assert.True(t, account.Balance.Equal(dec("1000.00")), "lock must not create or destroy money")
}

func TestOpenUnlockedPlanLeavesFundsAvailable(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "500.00")

	plan, err := env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID:     "user-1",
		TemplateID: "bronze",
		Amount:     dec("200.00"),
	})
	require.NoError(t, err)
	assert.False(t, plan.IsLocked)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("500.00")))
	assert.True(t, account.LockedBalance.IsZero())
}

func TestOpenPlanValidation(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "500.00")

	testCases := []struct {
		name string
		req  *models.OpenPlanRequest
		want error
	}{
		{
			name: "below template minimum",
			req:  &models.OpenPlanRequest{UserID: "user-1", TemplateID: "silver", Amount: dec("500.00")},
			want: errors.ErrBelowMinimum,
		},
		{
			name: "insufficient funds for locked template",
			req:  &models.OpenPlanRequest{UserID: "user-1", TemplateID: "silver", Amount: dec("1000.00")},
			want: errors.ErrInsufficientFunds,
		},
		{
			name: "insufficient funds for unlocked template",
			req:  &models.OpenPlanRequest{UserID: "user-1", TemplateID: "bronze", Amount: dec("600.00")},
			want: errors.ErrInsufficientFunds,
		},
		{
			name: "unknown template",
			req:  &models.OpenPlanRequest{UserID: "user-1", TemplateID: "platinum", Amount: dec("100.00")},
			want: errors.ErrTemplateNotFound,
		},
		{
			name: "unknown user",
			req:  &models.OpenPlanRequest{UserID: "ghost", TemplateID: "bronze", Amount: dec("100.00")},
			want: errors.ErrAccountNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.plans.OpenPlan(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// failed opens must leave balances untouched
	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("500.00")))
	assert.True(t, account.LockedBalance.IsZero())
}

func TestLockedPrincipalCannotBeWithdrawn(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "1000.00")

	_, err = env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID:     "user-1",
		TemplateID: "silver",
		Amount:     dec("1000.00"),
	})
	require.NoError(t, err)

	transaction, err := env.transactions.Request(ctx, &models.CreateTransactionRequest{
		UserID: "user-1",
		Type:   models.TransactionTypeWithdraw,
		Amount: dec("1000.00"),
	})
	require.NoError(t, err)

	result, err := env.transactions.Decide(ctx, transaction.ID, true, "admin-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusRejected, result.Transaction.Status)
	assert.True(t, result.Account.LockedBalance.Equal(dec("1000.00")))
}

func TestMaturePlanReleasesLockedPrincipal(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "1000.00")

	plan, err := env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID:     "user-1",
		TemplateID: "silver",
		Amount:     dec("1000.00"),
	})
	require.NoError(t, err)

	// before the end date maturity is refused
	_, err = env.plans.MaturePlan(ctx, plan.ID)
	assert.True(t, errors.IsValidationError(err))

	env.clock.AdvanceDays(7)

	matured, err := env.plans.MaturePlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusMatured, matured.Status)

	// principal unlocked plus the 7 days of interest maturity backfilled
	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("1084.00")), "got %s", account.AvailableBalance)
	assert.True(t, account.LockedBalance.IsZero())

	// maturing again is a no-op, not an error, and does not double-unlock
	again, err := env.plans.MaturePlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusMatured, again.Status)

	account, err = env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("1084.00")))
	assert.True(t, account.Balance.Equal(dec("1084.00")))
}

func TestMatureDuePlansSweep(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "2000.00")

	_, err = env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID: "user-1", TemplateID: "silver", Amount: dec("1000.00"),
	})
	require.NoError(t, err)
	_, err = env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID: "user-1", TemplateID: "bronze", Amount: dec("100.00"),
	})
	require.NoError(t, err)

	// bronze (3 days) is due, silver (7 days) is not
	env.clock.AdvanceDays(3)

	matured, err := env.plans.MatureDuePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, matured)

	plans, err := env.plans.GetPlans(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	for _, plan := range plans {
		if plan.TemplateID == "bronze" {
			assert.Equal(t, models.PlanStatusMatured, plan.Status)
		} else {
			assert.Equal(t, models.PlanStatusActive, plan.Status)
		}
	}
}

// A plan read past its end date while the daily job is behind must be
// credited for the missed days before it matures; maturing it first would
// forfeit them, since catch-up only looks at ACTIVE plans.
func TestLazyMaturityCreditsMissedDaysFirst(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()
	plan := openSilverPlan(t, env, "user-1")

	summary, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.CreditsApplied)

	// the daily job goes dark past the end of the 7-day term
	env.clock.AdvanceDays(10)

	plans, err := env.plans.GetPlans(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, models.PlanStatusMatured, plans[0].Status)
	assert.True(t, plans[0].InterestEarnedTotal.Equal(dec("84.00")),
		"full-term interest must survive lazy maturity, got %s", plans[0].InterestEarnedTotal)

	records, err := env.store.Accruals().ListByPlanID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, records, 7)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("1084.00")), "got %s", account.AvailableBalance)
	assert.True(t, account.LockedBalance.IsZero())
	assert.True(t, account.TotalInterestEarned.Equal(dec("84.00")))

	// the next scheduled run finds nothing left owed
	summary, err = env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CreditsApplied)
}

// Same hole via the sweep: a maturity sweep running after missed days must
// not outrun the interest those days earned.
func TestMaturitySweepCreditsMissedDaysFirst(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()
	plan := openSilverPlan(t, env, "user-1")

	env.clock.AdvanceDays(8)

	matured, err := env.plans.MatureDuePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, matured)

	fresh, err := env.store.Plans().GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusMatured, fresh.Status)
	assert.True(t, fresh.InterestEarnedTotal.Equal(dec("84.00")), "got %s", fresh.InterestEarnedTotal)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("1084.00")))
}

func TestGetPlansLazyMaturity(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "1000.00")

	_, err = env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID: "user-1", TemplateID: "silver", Amount: dec("1000.00"),
	})
	require.NoError(t, err)

	// well past the end date with no sweep having run
	env.clock.AdvanceDays(10)

	plans, err := env.plans.GetPlans(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, models.PlanStatusMatured, plans[0].Status)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("1084.00")), "got %s", account.AvailableBalance)
}
