package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/savings-ledger/internal/errors"
	"github.com/riteshkumar/savings-ledger/internal/service"
	u "github.com/riteshkumar/savings-ledger/internal/utils"
)

// AccrualHandler exposes the accrual entry point for the scheduler
// collaborator and for manual operator runs. Re-running is always safe.
type AccrualHandler struct {
	accrualService service.AccrualService
	logger         *slog.Logger
}

func NewAccrualHandler(accrualService service.AccrualService, logger *slog.Logger) *AccrualHandler {
	return &AccrualHandler{
		accrualService: accrualService,
		logger:         logger,
	}
}

func (h *AccrualHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accrual/run", h.Run).Methods(http.MethodPost)
}

func (h *AccrualHandler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.accrualService.RunAccrual(r.Context())
	if err != nil {
		if err == errors.ErrAccrualInProgress {
			u.WriteError(w, http.StatusConflict, "accrual run in progress", err.Error())
			return
		}
		h.logger.Error("internal server error during accrual run", "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	u.WriteJSON(w, http.StatusOK, summary)
}
