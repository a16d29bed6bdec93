package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/service"
	u "github.com/riteshkumar/savings-ledger/internal/utils"
)

type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

func NewTransactionHandler(transactionService service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	router.HandleFunc("/transactions/{id}/decision", h.DecideTransaction).Methods(http.MethodPost)
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid create transaction request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	transaction, err := h.transactionService.Request(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "create transaction")
		return
	}

	u.WriteJSON(w, http.StatusCreated, transaction)
}

// DecisionResponse tells the admin what actually happened, including an
// approval that was converted into a rejection for insufficient funds.
type DecisionResponse struct {
	Transaction    *models.Transaction    `json:"transaction"`
	Balance        models.BalanceResponse `json:"balance"`
	RejectedReason string                 `json:"rejected_reason,omitempty"`
}

func (h *TransactionHandler) DecideTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := mux.Vars(r)["id"]

	var req models.DecideTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid decide transaction request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	result, err := h.transactionService.Decide(r.Context(), transactionID, req.Approve, req.AdminID, req.Note)
	if err != nil {
		h.handleServiceError(w, err, "decide transaction")
		return
	}

	u.WriteJSON(w, http.StatusOK, DecisionResponse{
		Transaction:    result.Transaction,
		Balance:        u.BalancePayload(result.Account),
		RejectedReason: result.RejectedReason,
	})
}

func (h *TransactionHandler) handleServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "not found", err.Error())
	case errors.IsAlreadyReviewed(err):
		u.WriteError(w, http.StatusConflict, "already processed", "transaction has already been reviewed")
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case err == errors.ErrInvalidAmount:
		u.WriteError(w, http.StatusBadRequest, "invalid amount", err.Error())
	case err == errors.ErrAccountFrozen:
		u.WriteError(w, http.StatusForbidden, "account frozen", err.Error())
	default:
		h.logger.Error("internal server error during "+action, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
