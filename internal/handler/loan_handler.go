package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
	"github.com/dafibh/kredo/kredo-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan ledger HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents the create loan request body
type CreateLoanRequest struct {
	Principal        string  `json:"principal"`
	AnnualRate       string  `json:"annualRate"`
	TermDays         int32   `json:"termDays"`
	StartDate        *string `json:"startDate,omitempty"`
	PaymentFrequency *string `json:"paymentFrequency,omitempty"`
}

// AccrueRequest represents the optional accrue request body
type AccrueRequest struct {
	UpTo *string `json:"upTo,omitempty"`
}

// PayLoanRequest represents the payment request body
type PayLoanRequest struct {
	Amount string  `json:"amount"`
	Type   *string `json:"type,omitempty"`
}

// CreateLoan handles POST /api/v1/admin/users/:userId/loans
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	userID, err := parseUUIDParam(c, "userId")
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{
			{Field: "userId", Message: "Must be a valid UUID"},
		})
	}

	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var errs []ValidationError

	principal, err := decimal.NewFromString(req.Principal)
	switch {
	case err != nil || !principal.IsPositive():
		errs = append(errs, ValidationError{Field: "principal", Message: "Must be a decimal greater than zero"})
	case !fitsScale(principal, moneyScale) || principal.GreaterThanOrEqual(maxMoney):
		errs = append(errs, ValidationError{Field: "principal", Message: "Must have at most 2 decimal places and 12 integer digits"})
	}

	rate, err := decimal.NewFromString(req.AnnualRate)
	switch {
	case err != nil || rate.IsNegative():
		errs = append(errs, ValidationError{Field: "annualRate", Message: "Must be a decimal of at least zero"})
	case !fitsScale(rate, rateScale) || rate.GreaterThanOrEqual(maxAnnualRatePct):
		errs = append(errs, ValidationError{Field: "annualRate", Message: "Must be below 1000 with at most 4 decimal places"})
	}

	if req.TermDays <= 0 {
		errs = append(errs, ValidationError{Field: "termDays", Message: "Must be greater than zero"})
	}

	input := service.CreateLoanInput{
		UserID:        userID,
		Principal:     principal,
		AnnualRatePct: rate,
		TermDays:      req.TermDays,
	}

	if req.StartDate != nil && *req.StartDate != "" {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			errs = append(errs, ValidationError{Field: "startDate", Message: "Must be RFC 3339 or YYYY-MM-DD"})
		} else {
			input.StartDate = &start
		}
	}

	if req.PaymentFrequency != nil && *req.PaymentFrequency != "" {
		frequency := domain.PaymentFrequency(*req.PaymentFrequency)
		if !frequency.IsValid() {
			errs = append(errs, ValidationError{Field: "paymentFrequency", Message: "Unknown payment frequency"})
		} else {
			input.PaymentFrequency = &frequency
		}
	}

	if len(errs) > 0 {
		return NewValidationError(c, "Invalid loan terms", errs)
	}

	loan, err := h.loanService.CreateLoan(c.Request().Context(), input)
	if err != nil {
		return respondError(c, err, "Failed to create loan")
	}

	return c.JSON(http.StatusCreated, loan)
}

// GetUserLoans handles GET /api/v1/admin/users/:userId/loans
func (h *LoanHandler) GetUserLoans(c echo.Context) error {
	userID, err := parseUUIDParam(c, "userId")
	if err != nil {
		return NewValidationError(c, "Invalid user ID", []ValidationError{
			{Field: "userId", Message: "Must be a valid UUID"},
		})
	}

	loans, err := h.loanService.GetUserLoans(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to get loans")
	}

	return c.JSON(http.StatusOK, loans)
}

// AccrueLoan handles POST /api/v1/admin/loans/:loanId/accrue
func (h *LoanHandler) AccrueLoan(c echo.Context) error {
	loanID, err := parseUUIDParam(c, "loanId")
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "loanId", Message: "Must be a valid UUID"},
		})
	}

	var req AccrueRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return NewValidationError(c, "Invalid request body", nil)
		}
	}

	var upTo *time.Time
	if req.UpTo != nil && *req.UpTo != "" {
		t, err := parseDate(*req.UpTo)
		if err != nil {
			return NewValidationError(c, "Invalid accrual date", []ValidationError{
				{Field: "upTo", Message: "Must be RFC 3339 or YYYY-MM-DD"},
			})
		}
		upTo = &t
	}

	loan, err := h.loanService.AccrueInterestForLoan(c.Request().Context(), loanID, upTo)
	if err != nil {
		return respondError(c, err, "Failed to accrue interest")
	}

	return c.JSON(http.StatusOK, loan)
}

// PayLoan handles POST /api/v1/loans/:loanId/payments
func (h *LoanHandler) PayLoan(c echo.Context) error {
	loanID, err := parseUUIDParam(c, "loanId")
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "loanId", Message: "Must be a valid UUID"},
		})
	}

	var req PayLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a decimal greater than zero"},
		})
	}
	if !fitsScale(amount, moneyScale) || amount.GreaterThanOrEqual(maxMoney) {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must have at most 2 decimal places and 12 integer digits"},
		})
	}

	paymentType := domain.PaymentTypeEMI
	if req.Type != nil && *req.Type != "" {
		paymentType = domain.PaymentType(*req.Type)
		if !paymentType.IsValid() {
			return NewValidationError(c, "Invalid payment type", []ValidationError{
				{Field: "type", Message: "Must be one of EMI, PARTIAL, PREPAYMENT"},
			})
		}
	}

	if ok, err := h.authorizeLoan(c, loanID); !ok {
		return err
	}

	result, err := h.loanService.PayLoan(c.Request().Context(), loanID, amount, paymentType)
	if err != nil {
		return respondError(c, err, "Failed to apply payment")
	}

	return c.JSON(http.StatusCreated, result)
}

// GetLoanPayments handles GET /api/v1/loans/:loanId/payments
func (h *LoanHandler) GetLoanPayments(c echo.Context) error {
	loanID, err := parseUUIDParam(c, "loanId")
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "loanId", Message: "Must be a valid UUID"},
		})
	}

	if ok, err := h.authorizeLoan(c, loanID); !ok {
		return err
	}

	payments, err := h.loanService.GetLoanPayments(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err, "Failed to get payments")
	}

	return c.JSON(http.StatusOK, payments)
}

// authorizeLoan passes admins and the loan's owner. Otherwise it writes the
// error response and returns false.
func (h *LoanHandler) authorizeLoan(c echo.Context, loanID uuid.UUID) (bool, error) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		return false, NewUnauthorizedError(c, "Authentication required")
	}
	if principal.IsAdmin() {
		return true, nil
	}

	loan, err := h.loanService.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return false, respondError(c, err, "Failed to get loan")
	}
	if !principal.CanAccessUser(loan.UserID) {
		log.Warn().
			Str("user_id", principal.UserID.String()).
			Str("loan_id", loanID.String()).
			Msg("Loan access denied")
		return false, NewForbiddenError(c, "Loan belongs to another user")
	}
	return true, nil
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates, in UTC
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

// Column limits of the ledger tables: NUMERIC(14, 2) money, NUMERIC(7, 4) rates
const (
	moneyScale = 2
	rateScale  = 4
)

var (
	maxMoney         = decimal.New(1, 12)
	maxAnnualRatePct = decimal.NewFromInt(1000)
)

// fitsScale reports whether d has at most places digits after the point
func fitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}
