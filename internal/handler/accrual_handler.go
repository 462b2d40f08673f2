package handler

import (
	"net/http"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AccrualHandler exposes the batch accrual scheduler to admins
type AccrualHandler struct {
	scheduler *service.AccrualScheduler
}

// NewAccrualHandler creates a new AccrualHandler
func NewAccrualHandler(scheduler *service.AccrualScheduler) *AccrualHandler {
	return &AccrualHandler{scheduler: scheduler}
}

// AccrualResultResponse is one loan's outcome in a batch run
type AccrualResultResponse struct {
	LoanID   uuid.UUID          `json:"loanId"`
	Status   *domain.LoanStatus `json:"status,omitempty"`
	Interest string             `json:"interest"`
	Error    string             `json:"error,omitempty"`
}

// AccrueAllResponse is the result of a manual batch run
type AccrueAllResponse struct {
	Run     *domain.AccrualRun      `json:"run"`
	Results []AccrualResultResponse `json:"results"`
}

// AccrueAll handles POST /api/v1/admin/loans/accrue-all
func (h *AccrualHandler) AccrueAll(c echo.Context) error {
	results, run, err := h.scheduler.RunNow(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to run accrual")
	}

	return c.JSON(http.StatusOK, AccrueAllResponse{
		Run:     run,
		Results: toAccrualResultResponses(results),
	})
}

// GetLatestRun handles GET /api/v1/admin/accrual-runs/latest
func (h *AccrualHandler) GetLatestRun(c echo.Context) error {
	run, err := h.scheduler.LatestRun(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to get accrual run")
	}

	return c.JSON(http.StatusOK, run)
}

func toAccrualResultResponses(results []domain.AccrualResult) []AccrualResultResponse {
	out := make([]AccrualResultResponse, len(results))
	for i, r := range results {
		out[i] = AccrualResultResponse{
			LoanID:   r.LoanID,
			Interest: r.Interest.StringFixed(2),
		}
		if r.Loan != nil {
			status := r.Loan.Status
			out[i].Status = &status
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}
