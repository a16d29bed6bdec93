package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/models"
	"github.com/riteshkumar/savings-ledger/internal/service"
	u "github.com/riteshkumar/savings-ledger/internal/utils"
)

type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{user_id}/balance", h.GetBalance).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{user_id}/history", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/audit/{reference_id}", h.GetAuditTrail).Methods(http.MethodGet)
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register account request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	account, err := h.accountService.Register(r.Context(), req.UserID)
	if err != nil {
		h.handleServiceError(w, err, "register account")
		return
	}

	u.WriteJSON(w, http.StatusCreated, u.BalancePayload(account))
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	account, err := h.accountService.GetBalance(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "get balance")
		return
	}

	u.WriteJSON(w, http.StatusOK, u.BalancePayload(account))
}

func (h *AccountHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			u.WriteError(w, http.StatusBadRequest, "invalid limit", err.Error())
			return
		}
		limit = parsed
	}

	transactions, err := h.accountService.GetHistory(r.Context(), userID, limit)
	if err != nil {
		h.handleServiceError(w, err, "get history")
		return
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}

	u.WriteJSON(w, http.StatusOK, transactions)
}

func (h *AccountHandler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	referenceID := mux.Vars(r)["reference_id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			u.WriteError(w, http.StatusBadRequest, "invalid limit", err.Error())
			return
		}
		limit = parsed
	}

	entries, err := h.accountService.GetAuditTrail(r.Context(), referenceID, limit)
	if err != nil {
		h.handleServiceError(w, err, "get audit trail")
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}

	u.WriteJSON(w, http.StatusOK, entries)
}

func (h *AccountHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "account not found", "")
	case errors.IsAlreadyExists(err):
		u.WriteError(w, http.StatusConflict, "account already exists", "")
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	default:
		h.logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

