package service

import (
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository/memory"
)

// testClock is advanced by hand so tests can walk through calendar days.
type testClock struct {
	now time.Time
}

func newTestClock(date string) *testClock {
	parsed, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic(err)
	}
	return &testClock{now: parsed}
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) AdvanceDays(days int) {
	c.now = c.now.AddDate(0, 0, days)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	silverTemplate = &models.PlanTemplate{
		ID:           "silver",
		Name:         "Silver",
		MinAmount:    dec("1000.00"),
		DurationDays: 7,
		DailyRate:    dec("0.0120"),
		IsLocked:     true,
		Active:       true,
	}
	bronzeTemplate = &models.PlanTemplate{
		ID:           "bronze",
		Name:         "Bronze",
		MinAmount:    dec("100.00"),
		DurationDays: 3,
		DailyRate:    dec("0.0100"),
		IsLocked:     false,
		Active:       true,
	}
)

type testEnv struct {
	store        *memory.Store
	clock        *testClock
	accounts     *AccountServiceImpl
	transactions *TransactionServiceImpl
	plans        *PlanServiceImpl
	accrual      *AccrualServiceImpl
}

func newTestEnv(startDate string) *testEnv {
	store := memory.NewStore()
	store.SeedTemplate(silverTemplate)
	store.SeedTemplate(bronzeTemplate)

	clock := newTestClock(startDate)
	logger := testLogger()
	notifier := NopNotifier{}

	return &testEnv{
		store:        store,
		clock:        clock,
		accounts:     NewAccountService(store, logger),
		transactions: NewTransactionService(store, notifier, clock.Now, dec("1000000.00"), logger),
		plans:        NewPlanService(store, notifier, clock.Now, logger),
		accrual:      NewAccrualService(store, notifier, clock.Now, logger),
	}
}
