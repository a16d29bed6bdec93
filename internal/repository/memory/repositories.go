package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

type accountRepository struct {
	s    *Store
	lock bool
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	defer guard(r.s, r.lock)()

	if _, ok := r.s.state.accounts[account.UserID]; ok {
		return errors.ErrAccountAlreadyExists
	}

	now := time.Now()
	account.Balance = decimal.Zero
	account.AvailableBalance = decimal.Zero
	account.LockedBalance = decimal.Zero
	account.TotalDeposits = decimal.Zero
	account.TotalWithdrawals = decimal.Zero
	account.TotalInterestEarned = decimal.Zero
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	r.s.state.accounts[account.UserID] = &stored
	return nil
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	defer guard(r.s, r.lock)()

	stored, ok := r.s.state.accounts[userID]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	account := *stored
	return &account, nil
}

func (r *accountRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal, bucket repository.CreditBucket) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}
	defer guard(r.s, r.lock)()

	account, ok := r.s.state.accounts[userID]
	if !ok {
		return errors.ErrAccountNotFound
	}

	account.AvailableBalance = account.AvailableBalance.Add(amount)
	account.Balance = account.Balance.Add(amount)
	switch bucket {
	case repository.CreditBucketInterest:
		account.TotalInterestEarned = account.TotalInterestEarned.Add(amount)
	default:
		account.TotalDeposits = account.TotalDeposits.Add(amount)
	}
	account.UpdatedAt = time.Now()
	return nil
}

func (r *accountRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}
	defer guard(r.s, r.lock)()

	account, ok := r.s.state.accounts[userID]
	if !ok {
		return errors.ErrAccountNotFound
	}
	if account.AvailableBalance.LessThan(amount) {
		return errors.ErrInsufficientFunds
	}

	account.AvailableBalance = account.AvailableBalance.Sub(amount)
	account.Balance = account.Balance.Sub(amount)
	account.TotalWithdrawals = account.TotalWithdrawals.Add(amount)
	account.UpdatedAt = time.Now()
	return nil
}

func (r *accountRepository) Lock(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}
	defer guard(r.s, r.lock)()

	account, ok := r.s.state.accounts[userID]
	if !ok {
		return errors.ErrAccountNotFound
	}
	if account.AvailableBalance.LessThan(amount) {
		return errors.ErrInsufficientFunds
	}

	account.AvailableBalance = account.AvailableBalance.Sub(amount)
	account.LockedBalance = account.LockedBalance.Add(amount)
	account.UpdatedAt = time.Now()
	return nil
}

func (r *accountRepository) Unlock(ctx context.Context, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}
	defer guard(r.s, r.lock)()

	account, ok := r.s.state.accounts[userID]
	if !ok {
		return errors.ErrAccountNotFound
	}
	if account.LockedBalance.LessThan(amount) {
		return errors.ErrInsufficientLockedFunds
	}

	account.LockedBalance = account.LockedBalance.Sub(amount)
	account.AvailableBalance = account.AvailableBalance.Add(amount)
	account.UpdatedAt = time.Now()
	return nil
}

type transactionRepository struct {
	s    *Store
	lock bool
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	defer guard(r.s, r.lock)()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	transaction.RequestedAt = time.Now()

	stored := *transaction
	r.s.state.transactions[transaction.ID] = &stored
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	defer guard(r.s, r.lock)()

	stored, ok := r.s.state.transactions[id]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	transaction := *stored
	return &transaction, nil
}

func (r *transactionRepository) MarkReviewed(ctx context.Context, id string, status models.TransactionStatus, adminID, note string, reviewedAt time.Time) error {
	defer guard(r.s, r.lock)()

	transaction, ok := r.s.state.transactions[id]
	if !ok {
		return errors.ErrTransactionNotFound
	}
	if transaction.Status != models.TransactionStatusPending {
		return errors.ErrAlreadyReviewed
	}

	transaction.Status = status
	transaction.ReviewedBy = adminID
	transaction.Note = note
	transaction.ReviewedAt = &reviewedAt
	return nil
}

func (r *transactionRepository) ListByUserID(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	defer guard(r.s, r.lock)()

	var transactions []*models.Transaction
	for _, stored := range r.s.state.transactions {
		if stored.UserID != userID {
			continue
		}
		transaction := *stored
		transactions = append(transactions, &transaction)
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].RequestedAt.After(transactions[j].RequestedAt)
	})
	if limit > 0 && len(transactions) > limit {
		transactions = transactions[:limit]
	}
	return transactions, nil
}

type planRepository struct {
	s    *Store
	lock bool
}

func (r *planRepository) Create(ctx context.Context, plan *models.SavingsPlan) error {
	defer guard(r.s, r.lock)()

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	stored := *plan
	r.s.state.plans[plan.ID] = &stored
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*models.SavingsPlan, error) {
	defer guard(r.s, r.lock)()
	return r.getLocked(id)
}

func (r *planRepository) getLocked(id string) (*models.SavingsPlan, error) {
	stored, ok := r.s.state.plans[id]
	if !ok {
		return nil, errors.ErrPlanNotFound
	}
	plan := *stored
	if stored.LastInterestCalcDate != nil {
		d := *stored.LastInterestCalcDate
		plan.LastInterestCalcDate = &d
	}
	return &plan, nil
}

func (r *planRepository) ListByUserID(ctx context.Context, userID string) ([]*models.SavingsPlan, error) {
	return r.listWhere(func(p *models.SavingsPlan) bool { return p.UserID == userID })
}

func (r *planRepository) ListActive(ctx context.Context) ([]*models.SavingsPlan, error) {
	return r.listWhere(func(p *models.SavingsPlan) bool { return p.Status == models.PlanStatusActive })
}

func (r *planRepository) ListActiveEndedBy(ctx context.Context, date time.Time) ([]*models.SavingsPlan, error) {
	return r.listWhere(func(p *models.SavingsPlan) bool {
		return p.Status == models.PlanStatusActive && !p.EndDate.After(date)
	})
}

func (r *planRepository) listWhere(match func(*models.SavingsPlan) bool) ([]*models.SavingsPlan, error) {
	defer guard(r.s, r.lock)()

	var plans []*models.SavingsPlan
	for id, stored := range r.s.state.plans {
		if !match(stored) {
			continue
		}
		plan, _ := r.getLocked(id)
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.Before(plans[j].CreatedAt)
	})
	return plans, nil
}

func (r *planRepository) MarkMatured(ctx context.Context, id string) (bool, error) {
	defer guard(r.s, r.lock)()

	plan, ok := r.s.state.plans[id]
	if !ok {
		return false, errors.ErrPlanNotFound
	}
	if plan.Status != models.PlanStatusActive {
		return false, nil
	}

	plan.Status = models.PlanStatusMatured
	plan.UpdatedAt = time.Now()
	return true, nil
}

func (r *planRepository) ApplyInterest(ctx context.Context, id string, amount decimal.Decimal, calcDate time.Time) error {
	defer guard(r.s, r.lock)()

	plan, ok := r.s.state.plans[id]
	if !ok || plan.Status != models.PlanStatusActive {
		return errors.ErrStorageConflict
	}

	plan.InterestEarnedTotal = plan.InterestEarnedTotal.Add(amount)
	d := calcDate
	plan.LastInterestCalcDate = &d
	plan.UpdatedAt = time.Now()
	return nil
}

type templateRepository struct {
	s    *Store
	lock bool
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*models.PlanTemplate, error) {
	defer guard(r.s, r.lock)()

	stored, ok := r.s.state.templates[id]
	if !ok {
		return nil, errors.ErrTemplateNotFound
	}
	template := *stored
	return &template, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*models.PlanTemplate, error) {
	defer guard(r.s, r.lock)()

	var templates []*models.PlanTemplate
	for _, stored := range r.s.state.templates {
		if !stored.Active {
			continue
		}
		template := *stored
		templates = append(templates, &template)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].MinAmount.LessThan(templates[j].MinAmount)
	})
	return templates, nil
}

type accrualRepository struct {
	s    *Store
	lock bool
}

func (r *accrualRepository) Create(ctx context.Context, record *models.InterestAccrualRecord) error {
	defer guard(r.s, r.lock)()

	byDate := r.s.state.accruals[record.PlanID]
	if byDate == nil {
		byDate = make(map[string]*models.InterestAccrualRecord)
		r.s.state.accruals[record.PlanID] = byDate
	}

	key := dateKey(record.CalculationDate)
	if _, ok := byDate[key]; ok {
		return errors.ErrDuplicateAccrual
	}

	r.s.state.accrualSeq++
	record.ID = r.s.state.accrualSeq
	record.CreatedAt = time.Now()

	stored := *record
	byDate[key] = &stored
	return nil
}

func (r *accrualRepository) ListByPlanID(ctx context.Context, planID string) ([]*models.InterestAccrualRecord, error) {
	defer guard(r.s, r.lock)()

	var records []*models.InterestAccrualRecord
	for _, stored := range r.s.state.accruals[planID] {
		record := *stored
		records = append(records, &record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CalculationDate.Before(records[j].CalculationDate)
	})
	return records, nil
}

type auditRepository struct {
	s    *Store
	lock bool
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	defer guard(r.s, r.lock)()

	r.s.state.auditSeq++
	entry.ID = r.s.state.auditSeq
	entry.CreatedAt = time.Now()

	stored := *entry
	r.s.state.audit = append(r.s.state.audit, &stored)
	return nil
}

func (r *auditRepository) ListByReferenceID(ctx context.Context, referenceID string, limit int) ([]*models.AuditEntry, error) {
	defer guard(r.s, r.lock)()

	var entries []*models.AuditEntry
	for i := len(r.s.state.audit) - 1; i >= 0; i-- {
		stored := r.s.state.audit[i]
		if stored.ReferenceID != referenceID {
			continue
		}
		entry := *stored
		entries = append(entries, &entry)
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}
