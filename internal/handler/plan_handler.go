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

type PlanHandler struct {
	planService service.PlanService
	logger      *slog.Logger
}

func NewPlanHandler(planService service.PlanService, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{
		planService: planService,
		logger:      logger,
	}
}

func (h *PlanHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/plans/templates", h.ListTemplates).Methods(http.MethodGet)
	router.HandleFunc("/plans", h.OpenPlan).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{user_id}/plans", h.GetPlans).Methods(http.MethodGet)
}

func (h *PlanHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.planService.ListTemplates(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list templates")
		return
	}
	if templates == nil {
		templates = []*models.PlanTemplate{}
	}
	u.WriteJSON(w, http.StatusOK, templates)
}

func (h *PlanHandler) OpenPlan(w http.ResponseWriter, r *http.Request) {
	var req models.OpenPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid open plan request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	plan, err := h.planService.OpenPlan(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "open plan")
		return
	}

	u.WriteJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	plans, err := h.planService.GetPlans(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "get plans")
		return
	}
	if plans == nil {
		plans = []*models.SavingsPlan{}
	}

	u.WriteJSON(w, http.StatusOK, plans)
}

func (h *PlanHandler) handleServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "not found", err.Error())
	case errors.IsInsufficientFunds(err):
		u.WriteError(w, http.StatusBadRequest, "insufficient funds", "available balance does not cover the principal")
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case err == errors.ErrBelowMinimum:
		u.WriteError(w, http.StatusBadRequest, "below template minimum", err.Error())
	case err == errors.ErrInvalidAmount:
		u.WriteError(w, http.StatusBadRequest, "invalid amount", err.Error())
	case err == errors.ErrAccountFrozen:
		u.WriteError(w, http.StatusForbidden, "account frozen", err.Error())
	default:
		h.logger.Error("internal server error during "+action, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
