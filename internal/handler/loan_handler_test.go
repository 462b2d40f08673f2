package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
	"github.com/dafibh/kredo/kredo-backend/internal/service"
	"github.com/dafibh/kredo/kredo-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handlerTestNow = time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

type loanHandlerFixture struct {
	handler     *LoanHandler
	loanRepo    *testutil.MockLoanRepository
	paymentRepo *testutil.MockPaymentRepository
	userRepo    *testutil.MockUserRepository
}

func setupLoanHandler() *loanHandlerFixture {
	loanRepo := testutil.NewMockLoanRepository()
	paymentRepo := testutil.NewMockPaymentRepository()
	userRepo := testutil.NewMockUserRepository()
	txManager := testutil.NewMockTxManager(loanRepo, paymentRepo)

	loanService := service.NewLoanService(txManager, loanRepo, paymentRepo, userRepo)
	loanService.SetClock(func() time.Time { return handlerTestNow })

	return &loanHandlerFixture{
		handler:     NewLoanHandler(loanService),
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
	}
}

// newRequestContext builds an echo context for method/path with a JSON body
// and path params given as name, value pairs
func newRequestContext(method, path, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func setPrincipal(c echo.Context, userID uuid.UUID, role domain.UserRole) {
	ctx := middleware.WithPrincipal(c.Request().Context(), &middleware.Principal{UserID: userID, Role: role})
	c.SetRequest(c.Request().WithContext(ctx))
}

func addHandlerTestLoan(repo *testutil.MockLoanRepository, userID uuid.UUID, principal int64) *domain.Loan {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := &domain.Loan{
		ID:               uuid.New(),
		UserID:           userID,
		Principal:        decimal.NewFromInt(principal),
		AnnualRatePct:    decimal.NewFromInt(12),
		TermDays:         30,
		PaymentFrequency: domain.FrequencyMonthly,
		StartDate:        start,
		DueDate:          start.AddDate(0, 0, 30),
		Outstanding:      decimal.NewFromInt(principal),
		InterestAccrued:  decimal.Zero,
		Status:           domain.LoanStatusActive,
		CreatedAt:        start,
		UpdatedAt:        start,
	}
	next := start.AddDate(0, 1, 0)
	loan.NextPaymentDate = &next
	repo.AddLoan(loan)
	return loan
}

func TestCreateLoan_Success(t *testing.T) {
	f := setupLoanHandler()
	userID := uuid.New()
	f.userRepo.AddUser(&domain.User{ID: userID, Email: "client@example.com", Role: domain.RoleClient, Status: domain.UserStatusActive})

	body := `{"principal":"10000","annualRate":"12","termDays":30,"startDate":"2025-03-01","paymentFrequency":"MONTHLY"}`
	c, rec := newRequestContext(http.MethodPost, "/api/v1/admin/users/"+userID.String()+"/loans", body, "userId", userID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	err := f.handler.CreateLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var loan domain.Loan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loan))
	assert.Equal(t, userID, loan.UserID)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Equal(t, domain.FrequencyMonthly, loan.PaymentFrequency)
	assert.True(t, loan.Outstanding.Equal(decimal.NewFromInt(10000)))
	require.NotNil(t, loan.NextPaymentDate)
	assert.True(t, loan.NextPaymentDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, loan.DueDate.Equal(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestCreateLoan_ValidationErrors(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"zero principal", `{"principal":"0","annualRate":"12","termDays":30}`, "principal"},
		{"bad principal", `{"principal":"lots","annualRate":"12","termDays":30}`, "principal"},
		{"sub-cent principal", `{"principal":"10.001","annualRate":"12","termDays":30}`, "principal"},
		{"principal too large", `{"principal":"1000000000000","annualRate":"12","termDays":30}`, "principal"},
		{"negative rate", `{"principal":"100","annualRate":"-1","termDays":30}`, "annualRate"},
		{"rate at 1000", `{"principal":"100","annualRate":"1000","termDays":30}`, "annualRate"},
		{"rate too precise", `{"principal":"100","annualRate":"12.00001","termDays":30}`, "annualRate"},
		{"zero term", `{"principal":"100","annualRate":"12","termDays":0}`, "termDays"},
		{"bad start date", `{"principal":"100","annualRate":"12","termDays":30,"startDate":"01/03/2025"}`, "startDate"},
		{"unknown frequency", `{"principal":"100","annualRate":"12","termDays":30,"paymentFrequency":"FORTNIGHTLY"}`, "paymentFrequency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupLoanHandler()
			f.userRepo.AddUser(&domain.User{ID: userID, Role: domain.RoleClient, Status: domain.UserStatusActive})

			c, rec := newRequestContext(http.MethodPost, "/api/v1/admin/users/"+userID.String()+"/loans", tt.body, "userId", userID.String())
			setPrincipal(c, uuid.New(), domain.RoleAdmin)

			err := f.handler.CreateLoan(c)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var problem ProblemDetails
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.wantField, problem.Errors[0].Field)
		})
	}
}

func TestCreateLoan_UnknownUser(t *testing.T) {
	f := setupLoanHandler()
	userID := uuid.New()

	body := `{"principal":"100","annualRate":"12","termDays":30}`
	c, rec := newRequestContext(http.MethodPost, "/api/v1/admin/users/"+userID.String()+"/loans", body, "userId", userID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	err := f.handler.CreateLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateLoan_InvalidUserID(t *testing.T) {
	f := setupLoanHandler()

	c, rec := newRequestContext(http.MethodPost, "/api/v1/admin/users/nope/loans", `{}`, "userId", "nope")
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	err := f.handler.CreateLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccrueLoan_WithUpTo(t *testing.T) {
	f := setupLoanHandler()
	loan := addHandlerTestLoan(f.loanRepo, uuid.New(), 10000)

	c, rec := newRequestContext(http.MethodPost, "/api/v1/admin/loans/"+loan.ID.String()+"/accrue", `{"upTo":"2025-03-11T00:00:00Z"}`, "loanId", loan.ID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	err := f.handler.AccrueLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Loan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "32.88", updated.InterestAccrued.StringFixed(2))
	assert.Equal(t, "10032.88", updated.Outstanding.StringFixed(2))
}

func TestAccrueLoan_NoBodyUsesNow(t *testing.T) {
	f := setupLoanHandler()
	loan := addHandlerTestLoan(f.loanRepo, uuid.New(), 10000)

	c, rec := newRequestContext(http.MethodPost, "/api/v1/admin/loans/"+loan.ID.String()+"/accrue", "", "loanId", loan.ID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	err := f.handler.AccrueLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "32.88", f.loanRepo.Get(loan.ID).InterestAccrued.StringFixed(2))
}

func TestAccrueLoan_NotFound(t *testing.T) {
	f := setupLoanHandler()
	id := uuid.New()

	c, rec := newRequestContext(http.MethodPost, "/api/v1/admin/loans/"+id.String()+"/accrue", "", "loanId", id.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	err := f.handler.AccrueLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayLoan_OwnerCanPay(t *testing.T) {
	f := setupLoanHandler()
	ownerID := uuid.New()
	loan := addHandlerTestLoan(f.loanRepo, ownerID, 1000)

	c, rec := newRequestContext(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/payments", `{"amount":"250.50","type":"PARTIAL"}`, "loanId", loan.ID.String())
	setPrincipal(c, ownerID, domain.RoleClient)

	err := f.handler.PayLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var result domain.PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "250.50", result.PaymentApplied.StringFixed(2))
	assert.Equal(t, domain.PaymentTypePartial, result.Payment.Type)
	assert.Equal(t, "749.50", result.UpdatedLoan.Outstanding.StringFixed(2))
	assert.Equal(t, 1, f.paymentRepo.Count())
}

func TestPayLoan_FullPaymentCloses(t *testing.T) {
	f := setupLoanHandler()
	loan := addHandlerTestLoan(f.loanRepo, uuid.New(), 1000)

	c, rec := newRequestContext(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/payments", `{"amount":"1000"}`, "loanId", loan.ID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	require.NoError(t, f.handler.PayLoan(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.LoanStatusClosed, f.loanRepo.Get(loan.ID).Status)

	// A closed loan refuses further payments
	c, rec = newRequestContext(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/payments", `{"amount":"1"}`, "loanId", loan.ID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	require.NoError(t, f.handler.PayLoan(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPayLoan_OtherUserForbidden(t *testing.T) {
	f := setupLoanHandler()
	loan := addHandlerTestLoan(f.loanRepo, uuid.New(), 1000)

	c, rec := newRequestContext(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/payments", `{"amount":"100"}`, "loanId", loan.ID.String())
	setPrincipal(c, uuid.New(), domain.RoleClient)

	err := f.handler.PayLoan(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, f.paymentRepo.Count())
}

func TestPayLoan_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{}`},
		{"zero amount", `{"amount":"0"}`},
		{"negative amount", `{"amount":"-5"}`},
		{"sub-cent amount", `{"amount":"0.005"}`},
		{"three decimals", `{"amount":"12.345"}`},
		{"amount too large", `{"amount":"1000000000000"}`},
		{"unknown type", `{"amount":"5","type":"REFUND"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupLoanHandler()
			loan := addHandlerTestLoan(f.loanRepo, uuid.New(), 1000)

			c, rec := newRequestContext(http.MethodPost, "/api/v1/loans/"+loan.ID.String()+"/payments", tt.body, "loanId", loan.ID.String())
			setPrincipal(c, uuid.New(), domain.RoleAdmin)

			require.NoError(t, f.handler.PayLoan(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPayLoan_UnknownLoan(t *testing.T) {
	f := setupLoanHandler()
	id := uuid.New()

	c, rec := newRequestContext(http.MethodPost, "/api/v1/loans/"+id.String()+"/payments", `{"amount":"100"}`, "loanId", id.String())
	setPrincipal(c, uuid.New(), domain.RoleClient)

	require.NoError(t, f.handler.PayLoan(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLoanPayments(t *testing.T) {
	f := setupLoanHandler()
	ownerID := uuid.New()
	loan := addHandlerTestLoan(f.loanRepo, ownerID, 1000)
	f.paymentRepo.AddPayment(&domain.Payment{ID: uuid.New(), LoanID: loan.ID, Amount: decimal.NewFromInt(100), Type: domain.PaymentTypeEMI, CreatedAt: handlerTestNow})

	c, rec := newRequestContext(http.MethodGet, "/api/v1/loans/"+loan.ID.String()+"/payments", "", "loanId", loan.ID.String())
	setPrincipal(c, ownerID, domain.RoleClient)

	require.NoError(t, f.handler.GetLoanPayments(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var payments []domain.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "100", payments[0].Amount.String())

	c, rec = newRequestContext(http.MethodGet, "/api/v1/loans/"+loan.ID.String()+"/payments", "", "loanId", loan.ID.String())
	setPrincipal(c, uuid.New(), domain.RoleClient)

	require.NoError(t, f.handler.GetLoanPayments(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetUserLoans_Admin(t *testing.T) {
	f := setupLoanHandler()
	userID := uuid.New()
	addHandlerTestLoan(f.loanRepo, userID, 1000)
	addHandlerTestLoan(f.loanRepo, userID, 2000)
	addHandlerTestLoan(f.loanRepo, uuid.New(), 3000)

	c, rec := newRequestContext(http.MethodGet, "/api/v1/admin/users/"+userID.String()+"/loans", "", "userId", userID.String())
	setPrincipal(c, uuid.New(), domain.RoleAdmin)

	require.NoError(t, f.handler.GetUserLoans(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var loans []service.LoanWithPayments
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loans))
	assert.Len(t, loans, 2)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2025-03-01T10:30:00Z", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), false},
		{"2025-03-01T10:30:00+02:00", time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC), false},
		{"March 1", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v", got)
		})
	}
}
