package handler

import (
	"net/http"
	"strconv"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
	"github.com/dafibh/kredo/kredo-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// DashboardHandler handles dashboard and loan listing HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard handles GET /api/v1/users/:userId/dashboard
func (h *DashboardHandler) GetDashboard(c echo.Context) error {
	userID, err := parseUUIDParam(c, "userId")
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{
			{Field: "userId", Message: "Must be a valid UUID"},
		})
	}

	principal := middleware.GetPrincipal(c)
	if principal == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	if !principal.CanAccessUser(userID) {
		return NewForbiddenError(c, "Cannot view another user's dashboard")
	}

	summary, err := h.dashboardService.GetDashboard(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to get dashboard")
	}

	return c.JSON(http.StatusOK, summary)
}

// GetUserLoans handles GET /api/v1/users/:userId/loans
func (h *DashboardHandler) GetUserLoans(c echo.Context) error {
	userID, err := parseUUIDParam(c, "userId")
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{
			{Field: "userId", Message: "Must be a valid UUID"},
		})
	}

	principal := middleware.GetPrincipal(c)
	if principal == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	if !principal.CanAccessUser(userID) {
		return NewForbiddenError(c, "Cannot list another user's loans")
	}

	filters, errs := parseLoanFilters(c)
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	page, err := h.dashboardService.GetUserLoanList(c.Request().Context(), userID, filters)
	if err != nil {
		return respondError(c, err, "Failed to list loans")
	}

	return c.JSON(http.StatusOK, page)
}

// GetAdminLoans handles GET /api/v1/admin/loans
func (h *DashboardHandler) GetAdminLoans(c echo.Context) error {
	filters, errs := parseLoanFilters(c)
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	page, err := h.dashboardService.GetAdminLoanList(c.Request().Context(), filters)
	if err != nil {
		return respondError(c, err, "Failed to list loans")
	}

	return c.JSON(http.StatusOK, page)
}

// GetAdminSummary handles GET /api/v1/admin/summary
func (h *DashboardHandler) GetAdminSummary(c echo.Context) error {
	summary, err := h.dashboardService.GetAdminSummary(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to get summary")
	}

	return c.JSON(http.StatusOK, summary)
}

// parseLoanFilters reads the list query string. Page and limit bounds are
// applied later by LoanFilters.Normalize.
func parseLoanFilters(c echo.Context) (domain.LoanFilters, []ValidationError) {
	var (
		filters domain.LoanFilters
		errs    []ValidationError
	)

	if v := c.QueryParam("status"); v != "" {
		status := domain.LoanStatus(v)
		if status.IsValid() {
			filters.Status = &status
		} else {
			errs = append(errs, ValidationError{Field: "status", Message: "Must be one of ACTIVE, OVERDUE, CLOSED"})
		}
	}

	if v := c.QueryParam("frequency"); v != "" {
		frequency := domain.PaymentFrequency(v)
		if frequency.IsValid() {
			filters.Frequency = &frequency
		} else {
			errs = append(errs, ValidationError{Field: "frequency", Message: "Unknown payment frequency"})
		}
	}

	if v := c.QueryParam("overdue"); v != "" {
		overdue, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "overdue", Message: "Must be true or false"})
		}
		filters.OverdueOnly = overdue
	}

	for _, field := range []struct {
		name   string
		target **decimal.Decimal
	}{
		{"minOutstanding", &filters.MinOutstanding},
		{"maxOutstanding", &filters.MaxOutstanding},
	} {
		v := c.QueryParam(field.name)
		if v == "" {
			continue
		}
		amount, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: field.name, Message: "Must be a valid decimal number"})
			continue
		}
		*field.target = &amount
	}

	if v := c.QueryParam("createdFrom"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "createdFrom", Message: "Must be RFC 3339 or YYYY-MM-DD"})
		} else {
			filters.CreatedFrom = &t
		}
	}

	if v := c.QueryParam("createdTo"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "createdTo", Message: "Must be RFC 3339 or YYYY-MM-DD"})
		} else {
			filters.CreatedTo = &t
		}
	}

	if v := c.QueryParam("sort"); v != "" {
		sort := domain.LoanSort(v)
		if sort.IsValid() {
			filters.Sort = sort
		} else {
			errs = append(errs, ValidationError{Field: "sort", Message: "Unknown sort key"})
		}
	}

	if v := c.QueryParam("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "page", Message: "Must be a valid integer"})
		}
		filters.Page = page
	}

	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: "limit", Message: "Must be a valid integer"})
		}
		filters.Limit = limit
	}

	return filters, errs
}
