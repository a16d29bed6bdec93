package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

type TransactionService interface {
	Request(ctx context.Context, req *models.CreateTransactionRequest) (*models.Transaction, error)
	Decide(ctx context.Context, transactionID string, approve bool, adminID, note string) (*DecisionResult, error)
}

// DecisionResult reports what the decision actually did. RejectedReason is
// set when an approval was converted into a rejection (unfunded withdrawal).
type DecisionResult struct {
	Transaction    *models.Transaction
	Account        *models.Account
	RejectedReason string
}

type TransactionServiceImpl struct {
	store     repository.Store
	notifier  Notifier
	clock     Clock
	maxAmount decimal.Decimal
	logger    *slog.Logger
}

func NewTransactionService(store repository.Store, notifier Notifier, clock Clock, maxAmount decimal.Decimal, logger *slog.Logger) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		store:     store,
		notifier:  notifier,
		clock:     clock,
		maxAmount: maxAmount,
		logger:    logger,
	}
}

// Request records a PENDING deposit or withdrawal. Withdrawal funds are not
// reserved here: the balance is checked only at approval time, so competing
// requests against the same balance race and the first approval wins.
func (s *TransactionServiceImpl) Request(ctx context.Context, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	if err := s.validateRequest(req); err != nil {
		s.logger.Warn("invalid transaction request",
			"user_id", req.UserID,
			"type", req.Type,
			"amount", req.Amount.String(),
			"error", err.Error(),
		)
		return nil, err
	}

	transaction := &models.Transaction{
		UserID: req.UserID,
		Type:   req.Type,
		Amount: req.Amount,
		Status: models.TransactionStatusPending,
	}

	err := s.store.Atomic(ctx, func(ops repository.Ops) error {
		account, err := ops.Accounts().GetByUserID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if account.Status == models.AccountStatusFrozen {
			return errors.ErrAccountFrozen
		}

		if err := ops.Transactions().Create(ctx, transaction); err != nil {
			return err
		}

		newValue, _ := json.Marshal(transaction)
		return ops.Audit().Create(ctx, &models.AuditEntry{
			Action:      models.AuditActionTransactionCreated,
			Actor:       models.AuditActorUser,
			ActorID:     req.UserID,
			ReferenceID: transaction.ID,
			Description: "transaction requested",
			NewValue:    newValue,
		})
	})
	if err != nil {
		s.logger.Error("failed to create transaction",
			"user_id", req.UserID,
			"type", req.Type,
			"amount", req.Amount.String(),
			"error", err.Error(),
		)
		return nil, err
	}

	s.logger.Info("transaction requested",
		"transaction_id", transaction.ID,
		"user_id", req.UserID,
		"type", req.Type,
		"amount", req.Amount.String(),
	)
	return transaction, nil
}

// Decide applies an admin decision. The status transition and the balance
// mutation commit together: a crash between them leaves the transaction
// PENDING, never approved-without-effect. Approving a withdrawal the
// balance cannot cover marks the transaction REJECTED instead, and the
// result says so rather than silently swallowing it.
func (s *TransactionServiceImpl) Decide(ctx context.Context, transactionID string, approve bool, adminID, note string) (*DecisionResult, error) {
	if transactionID == "" {
		return nil, errors.NewValidationError("transaction_id", "must be non-empty")
	}
	if adminID == "" {
		return nil, errors.NewValidationError("admin_id", "must be non-empty")
	}

	result := &DecisionResult{}

	err := s.store.Atomic(ctx, func(ops repository.Ops) error {
		transaction, err := ops.Transactions().GetByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if transaction.Status != models.TransactionStatusPending {
			return errors.ErrAlreadyReviewed
		}

		oldAccount, err := ops.Accounts().GetByUserID(ctx, transaction.UserID)
		if err != nil {
			return err
		}

		status := models.TransactionStatusRejected
		finalNote := note

		if approve {
			switch transaction.Type {
			case models.TransactionTypeDeposit:
				if err := ops.Accounts().Credit(ctx, transaction.UserID, transaction.Amount, repository.CreditBucketDeposit); err != nil {
					return err
				}
				status = models.TransactionStatusApproved
			case models.TransactionTypeWithdraw:
				err := ops.Accounts().Debit(ctx, transaction.UserID, transaction.Amount)
				switch {
				case err == nil:
					status = models.TransactionStatusApproved
				case errors.IsInsufficientFunds(err):
					// approval cannot force an overdraft
					result.RejectedReason = errors.ErrInsufficientFunds.Error()
					if finalNote == "" {
						finalNote = result.RejectedReason
					} else {
						finalNote += "; " + result.RejectedReason
					}
				default:
					return err
				}
			}
		}

		reviewedAt := s.clock()
		if err := ops.Transactions().MarkReviewed(ctx, transactionID, status, adminID, finalNote, reviewedAt); err != nil {
			return err
		}

		transaction.Status = status
		transaction.ReviewedBy = adminID
		transaction.Note = finalNote
		transaction.ReviewedAt = &reviewedAt
		result.Transaction = transaction

		newAccount, err := ops.Accounts().GetByUserID(ctx, transaction.UserID)
		if err != nil {
			return err
		}
		result.Account = newAccount

		oldValue, _ := json.Marshal(models.SnapshotOf(oldAccount))
		newValue, _ := json.Marshal(models.SnapshotOf(newAccount))
		return ops.Audit().Create(ctx, &models.AuditEntry{
			Action:      models.AuditActionTransactionDecided,
			Actor:       models.AuditActorAdmin,
			ActorID:     adminID,
			ReferenceID: transactionID,
			Description: "transaction " + string(status),
			OldValue:    oldValue,
			NewValue:    newValue,
		})
	})
	if err != nil {
		if errors.IsAlreadyReviewed(err) || errors.IsNotFound(err) {
			s.logger.Warn("transaction decision rejected",
				"transaction_id", transactionID,
				"admin_id", adminID,
				"error", err.Error(),
			)
			return nil, err
		}
		s.logger.Error("failed to decide transaction",
			"transaction_id", transactionID,
			"admin_id", adminID,
			"error", err.Error(),
		)
		return nil, err
	}

	s.logger.Info("transaction decided",
		"transaction_id", transactionID,
		"admin_id", adminID,
		"status", result.Transaction.Status,
		"rejected_reason", result.RejectedReason,
	)

	s.notifier.TransactionDecided(ctx, TransactionDecidedEvent{
		Transaction: result.Transaction,
		Account:     result.Account,
		Approved:    result.Transaction.Status == models.TransactionStatusApproved,
		Reason:      result.RejectedReason,
	})
	return result, nil
}

func (s *TransactionServiceImpl) validateRequest(req *models.CreateTransactionRequest) error {
	if req.UserID == "" {
		return errors.NewValidationError("user_id", "must be non-empty")
	}
	if req.Type != models.TransactionTypeDeposit && req.Type != models.TransactionTypeWithdraw {
		return errors.NewValidationError("type", "must be DEPOSIT or WITHDRAW")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.ErrInvalidAmount
	}
	if s.maxAmount.IsPositive() && req.Amount.GreaterThan(s.maxAmount) {
		return errors.ErrInvalidAmount
	}
	return nil
}
