package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/service"
	"github.com/dafibh/kredo/kredo-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDashboardHandler() (*DashboardHandler, *testutil.MockLoanRepository, *testutil.MockUserRepository) {
	loanRepo := testutil.NewMockLoanRepository()
	userRepo := testutil.NewMockUserRepository()
	dashboardService := service.NewDashboardService(loanRepo, userRepo)
	dashboardService.SetClock(func() time.Time { return handlerTestNow })
	return NewDashboardHandler(dashboardService), loanRepo, userRepo
}

func TestGetDashboard_Self(t *testing.T) {
	h, loanRepo, _ := setupDashboardHandler()
	userID := uuid.New()
	addHandlerTestLoan(loanRepo, userID, 1000)
	addHandlerTestLoan(loanRepo, userID, 500)
	addHandlerTestLoan(loanRepo, uuid.New(), 9999)

	c, rec := newRequestContext(http.MethodGet, "/api/v1/users/"+userID.String()+"/dashboard", "", "userId", userID.String())
	setPrincipal(c, userID, domain.RoleClient)

	require.NoError(t, h.GetDashboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary domain.DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.ActiveLoanCount)
	assert.True(t, summary.TotalOutstanding.Equal(decimal.NewFromInt(1500)))
	require.NotNil(t, summary.NextPaymentDate)
	assert.True(t, summary.NextPaymentDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestGetDashboard_OtherUserForbidden(t *testing.T) {
	h, _, _ := setupDashboardHandler()
	userID := uuid.New()

	c, rec := newRequestContext(http.MethodGet, "/api/v1/users/"+userID.String()+"/dashboard", "", "userId", userID.String())
	setPrincipal(c, uuid.New(), domain.RoleClient)

	require.NoError(t, h.GetDashboard(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetDashboard_AdminMaySeeAnyUser(t *testing.T) {
	h, _, _ := setupDashboardHandler()
	userID := uuid.New()

	c, rec := newRequestContext(http.MethodGet, "/api/v1/users/"+userID.String()+"/dashboard", "", "userId", userID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	require.NoError(t, h.GetDashboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary domain.DashboardSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 0, summary.ActiveLoanCount)
	assert.NotNil(t, summary.Loans)
}

func TestGetDashboard_Unauthenticated(t *testing.T) {
	h, _, _ := setupDashboardHandler()
	userID := uuid.New()

	c, rec := newRequestContext(http.MethodGet, "/api/v1/users/"+userID.String()+"/dashboard", "", "userId", userID.String())

	require.NoError(t, h.GetDashboard(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserLoans_FiltersAndPaging(t *testing.T) {
	h, loanRepo, _ := setupDashboardHandler()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		addHandlerTestLoan(loanRepo, userID, int64(100*(i+1)))
	}

	c, rec := newRequestContext(http.MethodGet, "/api/v1/users/"+userID.String()+"/loans?sort=outstanding_desc&limit=2", "", "userId", userID.String())
	setPrincipal(c, userID, domain.RoleClient)

	require.NoError(t, h.GetUserLoans(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var page domain.PaginatedLoans
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "300", page.Data[0].Outstanding.String())

	require.NotNil(t, loanRepo.LastFilters.UserID)
	assert.Equal(t, userID, *loanRepo.LastFilters.UserID)
}

func TestGetUserLoans_InvalidQuery(t *testing.T) {
	h, _, _ := setupDashboardHandler()
	userID := uuid.New()

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"bad status", "?status=LATE", "status"},
		{"bad sort", "?sort=name_asc", "sort"},
		{"bad page", "?page=first", "page"},
		{"bad min outstanding", "?minOutstanding=lots", "minOutstanding"},
		{"bad created from", "?createdFrom=yesterday", "createdFrom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newRequestContext(http.MethodGet, "/api/v1/users/"+userID.String()+"/loans"+tt.query, "", "userId", userID.String())
			setPrincipal(c, userID, domain.RoleClient)

			require.NoError(t, h.GetUserLoans(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var problem ProblemDetails
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Len(t, problem.Errors, 1)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}

func TestGetAdminLoans_OverdueFilter(t *testing.T) {
	h, loanRepo, _ := setupDashboardHandler()
	addHandlerTestLoan(loanRepo, uuid.New(), 100)
	overdue := addHandlerTestLoan(loanRepo, uuid.New(), 200)
	overdue.Status = domain.LoanStatusOverdue
	loanRepo.AddLoan(overdue)

	c, rec := newRequestContext(http.MethodGet, "/api/v1/admin/loans?overdue=true&limit=500", "")
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	require.NoError(t, h.GetAdminLoans(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var page domain.PaginatedLoans
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.TotalItems)
	assert.Equal(t, domain.MaxLoanLimit, page.Limit)
	require.Len(t, page.Data, 1)
	assert.Equal(t, overdue.ID, page.Data[0].ID)
}

func TestGetAdminSummary(t *testing.T) {
	h, loanRepo, userRepo := setupDashboardHandler()
	userRepo.AddUser(&domain.User{ID: uuid.New(), Role: domain.RoleClient, Status: domain.UserStatusActive})
	userRepo.AddUser(&domain.User{ID: uuid.New(), Role: domain.RoleClient, Status: domain.UserStatusPending})
	addHandlerTestLoan(loanRepo, uuid.New(), 100)

	c, rec := newRequestContext(http.MethodGet, "/api/v1/admin/summary", "")
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	require.NoError(t, h.GetAdminSummary(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary domain.AdminSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(2), summary.TotalUsers)
	assert.Equal(t, int64(1), summary.PendingUsers)
	assert.Equal(t, int64(1), summary.TotalLoans)
}

func TestGetAdminSummary_RepositoryError(t *testing.T) {
	h, loanRepo, _ := setupDashboardHandler()
	loanRepo.GetStatsFn = func() (*domain.LoanStats, error) {
		return nil, echo.ErrInternalServerError
	}

	c, rec := newRequestContext(http.MethodGet, "/api/v1/admin/summary", "")
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	require.NoError(t, h.GetAdminSummary(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
