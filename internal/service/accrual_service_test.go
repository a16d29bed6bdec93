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

func openSilverPlan(t *testing.T, env *testEnv, userID string) *models.SavingsPlan {
	t.Helper()

	_, err := env.accounts.Register(context.Background(), userID)
	require.NoError(t, err)
	deposit(t, env, userID, "1000.00")

	plan, err := env.plans.OpenPlan(context.Background(), &models.OpenPlanRequest{
		UserID:     userID,
		TemplateID: "silver",
		Amount:     dec("1000.00"),
	})
	require.NoError(t, err)
	return plan
}

func TestAccrualCreditsOneDay(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()
	plan := openSilverPlan(t, env, "user-1")

	summary, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CreditsApplied)
	assert.True(t, summary.TotalInterest.Equal(dec("12.00")), "1000.00 * 0.0120 = 12.00, got %s", summary.TotalInterest)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("12.00")), "interest is credited to the available balance")
	assert.True(t, account.LockedBalance.Equal(dec("1000.00")))
	assert.True(t, account.TotalInterestEarned.Equal(dec("12.00")))

	fresh, err := env.store.Plans().GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, fresh.InterestEarnedTotal.Equal(dec("12.00")))
	require.NotNil(t, fresh.LastInterestCalcDate)
	assert.Equal(t, "2025-06-01", fresh.LastInterestCalcDate.Format(time.DateOnly))
}

func TestAccrualIsIdempotentWithinADay(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()
	plan := openSilverPlan(t, env, "user-1")

	first, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.CreditsApplied)

	// immediate re-run is a no-op for the already-recorded plan-day
	second, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreditsApplied)
	assert.True(t, second.TotalInterest.IsZero())

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.TotalInterestEarned.Equal(dec("12.00")))

	records, err := env.store.Accruals().ListByPlanID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAccrualCatchUpAfterMissedDays(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()
	plan := openSilverPlan(t, env, "user-1")

	_, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)

	// the job does not run for 3 days, then runs once
	env.clock.AdvanceDays(3)

	summary, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.CreditsApplied, "one credit per missed date, not one lump")
	assert.True(t, summary.TotalInterest.Equal(dec("36.00")))

	records, err := env.store.Accruals().ListByPlanID(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for i, record := range records {
		wantDate := plan.StartDate.AddDate(0, 0, i)
		assert.Equal(t, wantDate.Format(time.DateOnly), record.CalculationDate.Format(time.DateOnly))
		assert.True(t, record.InterestAmount.Equal(dec("12.00")))
	}
}

func TestFullPlanLifecycle(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()
	plan := openSilverPlan(t, env, "user-1")

	// one accrual run per day of the 7-day term
	for day := 0; day < 7; day++ {
		summary, err := env.accrual.RunAccrual(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.CreditsApplied, "day %d", day)
		env.clock.AdvanceDays(1)
	}

	fresh, err := env.store.Plans().GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, fresh.InterestEarnedTotal.Equal(dec("84.00")), "1000 * 0.012 * 7 = 84.00, got %s", fresh.InterestEarnedTotal)

	// a run on the end date itself earns nothing further
	summary, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CreditsApplied)

	matured, err := env.plans.MaturePlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusMatured, matured.Status)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("1084.00")), "principal plus interest, got %s", account.AvailableBalance)
	assert.True(t, account.LockedBalance.IsZero())
	assert.True(t, account.Balance.Equal(account.AvailableBalance.Add(account.LockedBalance)))
}

func TestAccrualStopsAtEndDate(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()
	plan := openSilverPlan(t, env, "user-1")

	// far past the end of the 7-day term
	env.clock.AdvanceDays(30)

	summary, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.CreditsApplied, "catch-up is capped at the term")

	records, err := env.store.Accruals().ListByPlanID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, records, 7)
}

func TestAccrualRoundsToCents(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "333.33")

	_, err = env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID:     "user-1",
		TemplateID: "bronze",
		Amount:     dec("333.33"),
	})
	require.NoError(t, err)

	summary, err := env.accrual.RunAccrual(ctx)
	require.NoError(t, err)
	// 333.33 * 0.0100 = 3.3333, rounded at the point of crediting
	assert.True(t, summary.TotalInterest.Equal(dec("3.33")), "got %s", summary.TotalInterest)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.TotalInterestEarned.Equal(dec("3.33")))
}

func TestUnlockedPlanStillEarnsInterest(t *testing.T) {
	env := newTestEnv("2025-06-01")
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, "user-1")
	require.NoError(t, err)
	deposit(t, env, "user-1", "200.00")

	_, err = env.plans.OpenPlan(ctx, &models.OpenPlanRequest{
		UserID:     "user-1",
		TemplateID: "bronze",
		Amount:     dec("200.00"),
	})
	require.NoError(t, err)

	_, err = env.accrual.RunAccrual(ctx)
	require.NoError(t, err)

	account, err := env.accounts.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, account.AvailableBalance.Equal(dec("202.00")))
	assert.True(t, account.LockedBalance.IsZero())
}

func TestAccrualRefusesOverlappingRun(t *testing.T) {
	env := newTestEnv("2025-06-01")

	env.accrual.runMu.Lock()
	defer env.accrual.runMu.Unlock()

	_, err := env.accrual.RunAccrual(context.Background())
	assert.ErrorIs(t, err, errors.ErrAccrualInProgress)
}

func TestMissingAccrualDates(t *testing.T) {
	start := mustDate("2025-06-01")
	end := mustDate("2025-06-08")

	newPlan := func(lastCalc string) *models.SavingsPlan {
		plan := &models.SavingsPlan{StartDate: start, EndDate: end}
		if lastCalc != "" {
			d := mustDate(lastCalc)
			plan.LastInterestCalcDate = &d
		}
		return plan
	}

	testCases := []struct {
		name string
		plan *models.SavingsPlan
		asOf string
		want []string
	}{
		{
			name: "first day",
			plan: newPlan(""),
			asOf: "2025-06-01",
			want: []string{"2025-06-01"},
		},
		{
			name: "steady state",
			plan: newPlan("2025-06-02"),
			asOf: "2025-06-03",
			want: []string{"2025-06-03"},
		},
		{
			name: "nothing missing",
			plan: newPlan("2025-06-03"),
			asOf: "2025-06-03",
			want: nil,
		},
		{
			name: "catch-up",
			plan: newPlan("2025-06-01"),
			asOf: "2025-06-04",
			want: []string{"2025-06-02", "2025-06-03", "2025-06-04"},
		},
		{
			name: "capped at day before end date",
			plan: newPlan("2025-06-05"),
			asOf: "2025-06-20",
			want: []string{"2025-06-06", "2025-06-07"},
		},
		{
			name: "fully accrued",
			plan: newPlan("2025-06-07"),
			asOf: "2025-06-20",
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dates := missingAccrualDates(tc.plan, mustDate(tc.asOf))
			var got []string
			for _, d := range dates {
				got = append(got, d.Format(time.DateOnly))
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}
