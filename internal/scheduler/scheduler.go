package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/riteshkumar/savings-ledger/internal/service"
)

// Scheduler fires the daily accrual pass at a configured cutoff time in a
// fixed reference timezone, then sweeps plans due for maturity. The engine
// itself has no timer; this is the collaborator that drives it.
type Scheduler struct {
	accrual  service.AccrualService
	plans    service.PlanService
	location *time.Location
	hour     int
	minute   int
	logger   *slog.Logger
}

func New(accrual service.AccrualService, plans service.PlanService, location *time.Location, hour, minute int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		accrual:  accrual,
		plans:    plans,
		location: location,
		hour:     hour,
		minute:   minute,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, firing once per day at the cutoff.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.nextCutoff(time.Now().In(s.location))
		s.logger.Info("accrual scheduled",
			"next_run", next.Format(time.RFC3339),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return
		case <-timer.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one accrual pass followed by the maturity sweep. Exported so
// operators can trigger the same path by hand.
func (s *Scheduler) Tick(ctx context.Context) {
	if _, err := s.accrual.RunAccrual(ctx); err != nil {
		s.logger.Error("scheduled accrual run failed", "error", err.Error())
	}
	matured, err := s.plans.MatureDuePlans(ctx)
	if err != nil {
		s.logger.Error("scheduled maturity sweep failed", "error", err.Error())
		return
	}
	if matured > 0 {
		s.logger.Info("maturity sweep finished", "plans_matured", matured)
	}
}

// nextCutoff returns the first cutoff instant strictly after now.
func (s *Scheduler) nextCutoff(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
