package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/repository"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDebitZeroRowsMeansInsufficientFunds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// the conditional update matches nothing, but the account exists:
	// the precondition failed and must surface as a typed error
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewStore(db)
	err = store.Accounts().Debit(context.Background(), "user-1", dec("50.00"))
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitZeroRowsMissingAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	store := NewStore(db)
	err = store.Accounts().Debit(context.Background(), "ghost", dec("50.00"))
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	err = store.Accounts().Debit(context.Background(), "user-1", dec("50.00"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRejectsNonPositiveAmountWithoutQuerying(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	err = store.Accounts().Credit(context.Background(), "user-1", dec("0"), repository.CreditBucketDeposit)
	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement may reach the database")
}

func TestUnlockZeroRowsMeansInsufficientLockedFunds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewStore(db)
	err = store.Accounts().Unlock(context.Background(), "user-1", dec("25.00"))
	assert.ErrorIs(t, err, errors.ErrInsufficientLockedFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO accounts").
		WillReturnError(&pq.Error{Code: "23505"})

	store := NewStore(db)
	err = store.Accounts().Create(context.Background(), &models.Account{
		UserID: "user-1",
		Status: models.AccountStatusActive,
	})
	assert.ErrorIs(t, err, errors.ErrAccountAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReviewedZeroRowsMeansAlreadyReviewed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE transactions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewStore(db)
	err = store.Transactions().MarkReviewed(context.Background(), "tx-1",
		models.TransactionStatusApproved, "admin-1", "", time.Now())
	assert.ErrorIs(t, err, errors.ErrAlreadyReviewed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccrualDuplicateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO interest_accrual_records").
		WillReturnError(&pq.Error{Code: "23505"})

	store := NewStore(db)
	err = store.Accruals().Create(context.Background(), &models.InterestAccrualRecord{
		PlanID:          "plan-1",
		UserID:          "user-1",
		CalculationDate: time.Now(),
		InterestAmount:  dec("12.00"),
	})
	assert.ErrorIs(t, err, errors.ErrDuplicateAccrual)
	assert.NoError(t, mock.ExpectationsWereMet())
}
