package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

type AccountService interface {
	Register(ctx context.Context, userID string) (*models.Account, error)
	GetBalance(ctx context.Context, userID string) (*models.Account, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
	GetAuditTrail(ctx context.Context, referenceID string, limit int) ([]*models.AuditEntry, error)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type AccountServiceImpl struct {
	store  repository.Store
	logger *slog.Logger
}

func NewAccountService(store repository.Store, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		store:  store,
		logger: logger,
	}
}

// Register creates the account with zero balances. Every later operation
// can then assume the row exists.
func (s *AccountServiceImpl) Register(ctx context.Context, userID string) (*models.Account, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "must be non-empty")
	}

	account := &models.Account{
		UserID: userID,
		Status: models.AccountStatusActive,
	}

	err := s.store.Atomic(ctx, func(ops repository.Ops) error {
		if err := ops.Accounts().Create(ctx, account); err != nil {
			return err
		}

		newValue, _ := json.Marshal(models.SnapshotOf(account))
		return ops.Audit().Create(ctx, &models.AuditEntry{
			Action:      models.AuditActionAccountCreated,
			Actor:       models.AuditActorUser,
			ActorID:     userID,
			ReferenceID: userID,
			Description: "account registered",
			NewValue:    newValue,
		})
	})
	if err != nil {
		if errors.IsAlreadyExists(err) {
			s.logger.Warn("account already exists",
				"user_id", userID,
			)
			return nil, err
		}
		s.logger.Error("failed to register account",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}

	s.logger.Info("account registered",
		"user_id", userID,
	)
	return account, nil
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, userID string) (*models.Account, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "must be non-empty")
	}

	account, err := s.store.Accounts().GetByUserID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("account not found",
				"user_id", userID,
			)
			return nil, err
		}
		s.logger.Error("failed to get account",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}
	return account, nil
}

func (s *AccountServiceImpl) GetHistory(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "must be non-empty")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	transactions, err := s.store.Transactions().ListByUserID(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list transaction history",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, err
	}
	return transactions, nil
}

// GetAuditTrail lists audit entries for a reference (a user, transaction
// or plan ID), newest first. Disputes are resolved from this trail.
func (s *AccountServiceImpl) GetAuditTrail(ctx context.Context, referenceID string, limit int) ([]*models.AuditEntry, error) {
	if referenceID == "" {
		return nil, errors.NewValidationError("reference_id", "must be non-empty")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := s.store.Audit().ListByReferenceID(ctx, referenceID, limit)
	if err != nil {
		s.logger.Error("failed to list audit trail",
			"reference_id", referenceID,
			"error", err.Error(),
		)
		return nil, err
	}
	return entries, nil
}
