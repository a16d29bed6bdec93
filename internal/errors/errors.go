package errors

import (
	"errors"
	"fmt"
)

// Domain errors for the savings ledger. Callers branch on these with the
// Is* helpers; the HTTP layer maps them to status codes.
var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrAccountAlreadyExists    = errors.New("account already exists")
	ErrAccountFrozen           = errors.New("account is frozen")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrPlanNotFound            = errors.New("savings plan not found")
	ErrTemplateNotFound        = errors.New("plan template not found")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFunds       = errors.New("insufficient available funds")
	ErrInsufficientLockedFunds = errors.New("insufficient locked funds")
	ErrBelowMinimum            = errors.New("amount below template minimum")
	ErrAlreadyReviewed         = errors.New("transaction already reviewed")
	ErrDuplicateAccrual        = errors.New("interest already accrued for this plan-day")
	ErrAccrualInProgress       = errors.New("interest accrual run already in progress")
	ErrStorageConflict         = errors.New("storage conflict, state changed concurrently")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// StorageError wraps a failure inside an atomic storage operation with the
// operation name for logging.
type StorageError struct {
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during '%s': %v", e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func NewStorageError(operation string, cause error) error {
	return &StorageError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsInsufficientLockedFunds(err error) bool {
	return errors.Is(err, ErrInsufficientLockedFunds)
}

func IsAlreadyReviewed(err error) bool {
	return errors.Is(err, ErrAlreadyReviewed)
}

func IsDuplicateAccrual(err error) bool {
	return errors.Is(err, ErrDuplicateAccrual)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAccountAlreadyExists)
}

func IsStorageConflict(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
