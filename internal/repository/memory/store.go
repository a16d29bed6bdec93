package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

// Store is the non-durable backend: mutex-guarded maps. It is selected
// explicitly by configuration (tests, local development), never as an
// implicit fallback when the database is unreachable.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	accounts     map[string]*models.Account
	transactions map[string]*models.Transaction
	plans        map[string]*models.SavingsPlan
	templates    map[string]*models.PlanTemplate
	accruals     map[string]map[string]*models.InterestAccrualRecord // plan ID -> date key
	accrualSeq   int64
	audit        []*models.AuditEntry
	auditSeq     int64
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		accounts:     make(map[string]*models.Account),
		transactions: make(map[string]*models.Transaction),
		plans:        make(map[string]*models.SavingsPlan),
		templates:    make(map[string]*models.PlanTemplate),
		accruals:     make(map[string]map[string]*models.InterestAccrualRecord),
	}
}

// SeedTemplate installs a plan template. Postgres seeds templates through
// migrations; the memory backend seeds them at wiring time.
func (s *Store) SeedTemplate(template *models.PlanTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := *template
	s.state.templates[t.ID] = &t
}

// Atomic takes the store lock for the whole of fn and restores the prior
// state when fn fails, so a partial multi-row mutation never survives.
func (s *Store) Atomic(ctx context.Context, fn func(ops repository.Ops) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(lockedOps{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Standalone ops lock per call; lockedOps run inside Atomic with the lock
// already held.

func (s *Store) Accounts() repository.AccountRepository { return &accountRepository{s: s, lock: true} }
func (s *Store) Transactions() repository.TransactionRepository {
	return &transactionRepository{s: s, lock: true}
}
func (s *Store) Plans() repository.PlanRepository         { return &planRepository{s: s, lock: true} }
func (s *Store) Templates() repository.TemplateRepository { return &templateRepository{s: s, lock: true} }
func (s *Store) Accruals() repository.AccrualRepository   { return &accrualRepository{s: s, lock: true} }
func (s *Store) Audit() repository.AuditRepository        { return &auditRepository{s: s, lock: true} }

type lockedOps struct {
	s *Store
}

func (o lockedOps) Accounts() repository.AccountRepository { return &accountRepository{s: o.s} }
func (o lockedOps) Transactions() repository.TransactionRepository {
	return &transactionRepository{s: o.s}
}
func (o lockedOps) Plans() repository.PlanRepository         { return &planRepository{s: o.s} }
func (o lockedOps) Templates() repository.TemplateRepository { return &templateRepository{s: o.s} }
func (o lockedOps) Accruals() repository.AccrualRepository   { return &accrualRepository{s: o.s} }
func (o lockedOps) Audit() repository.AuditRepository        { return &auditRepository{s: o.s} }

// guard acquires the store lock for standalone calls and returns the
// release func; inside Atomic it is a no-op.
func guard(s *Store, lock bool) func() {
	if !lock {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func dateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.accounts {
		a := *v
		c.accounts[k] = &a
	}
	for k, v := range st.transactions {
		t := *v
		if v.ReviewedAt != nil {
			r := *v.ReviewedAt
			t.ReviewedAt = &r
		}
		c.transactions[k] = &t
	}
	for k, v := range st.plans {
		p := *v
		if v.LastInterestCalcDate != nil {
			d := *v.LastInterestCalcDate
			p.LastInterestCalcDate = &d
		}
		c.plans[k] = &p
	}
	for k, v := range st.templates {
		t := *v
		c.templates[k] = &t
	}
	for planID, byDate := range st.accruals {
		inner := make(map[string]*models.InterestAccrualRecord, len(byDate))
		for k, v := range byDate {
			r := *v
			inner[k] = &r
		}
		c.accruals[planID] = inner
	}
	c.accrualSeq = st.accrualSeq
	c.audit = make([]*models.AuditEntry, len(st.audit))
	copy(c.audit, st.audit)
	c.auditSeq = st.auditSeq
	return c
}
