package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riteshkumar/savings-ledger/internal/models"
)

func TestBalancePayload(t *testing.T) {
	account := &models.Account{
		UserID:              "user-1",
		Balance:             decimal.RequireFromString("1084.00"),
		AvailableBalance:    decimal.RequireFromString("84.00"),
		LockedBalance:       decimal.RequireFromString("1000.00"),
		TotalDeposits:       decimal.RequireFromString("1000.00"),
		TotalInterestEarned: decimal.RequireFromString("84.00"),
		Status:              models.AccountStatusActive,
	}

	payload := BalancePayload(account)
	assert.Equal(t, "user-1", payload.UserID)
	assert.True(t, payload.Balance.Equal(account.Balance))
	assert.True(t, payload.AvailableBalance.Equal(account.AvailableBalance))
	assert.True(t, payload.LockedBalance.Equal(account.LockedBalance))
	assert.True(t, payload.TotalInterestEarned.Equal(account.TotalInterestEarned))
	assert.Equal(t, models.AccountStatusActive, payload.Status)
}

func TestWriteError(t *testing.T) {
	recorder := httptest.NewRecorder()
	WriteError(recorder, http.StatusConflict, "already processed", "transaction has already been reviewed")

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "already processed", body.Error)
	assert.Equal(t, "transaction has already been reviewed", body.Message)
}
