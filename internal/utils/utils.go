package utils

import (
	"encoding/json"
	"net/http"

	"github.com/riteshkumar/savings-ledger/internal/models"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func WriteError(w http.ResponseWriter, status int, errorMsg, details string) {
	response := models.ErrorResponse{
		Error:   errorMsg,
		Message: details,
	}
	WriteJSON(w, status, response)
}

// BalancePayload shapes an account for the wire. Every handler that
// returns balances goes through it so the field set stays uniform.
func BalancePayload(account *models.Account) models.BalanceResponse {
	return models.BalanceResponse{
		UserID:              account.UserID,
		Balance:             account.Balance,
		AvailableBalance:    account.AvailableBalance,
		LockedBalance:       account.LockedBalance,
		TotalDeposits:       account.TotalDeposits,
		TotalWithdrawals:    account.TotalWithdrawals,
		TotalInterestEarned: account.TotalInterestEarned,
		Status:              account.Status,
	}
}
