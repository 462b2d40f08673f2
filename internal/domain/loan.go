package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusActive  LoanStatus = "ACTIVE"
	LoanStatusOverdue LoanStatus = "OVERDUE"
	LoanStatusClosed  LoanStatus = "CLOSED" // terminal
)

// IsValid reports whether s is a known loan status
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusActive, LoanStatusOverdue, LoanStatusClosed:
		return true
	}
	return false
}

// PaymentFrequency controls how the next payment date advances
type PaymentFrequency string

const (
	FrequencyDaily      PaymentFrequency = "DAILY"
	FrequencyWeekly     PaymentFrequency = "WEEKLY"
	FrequencyMonthly    PaymentFrequency = "MONTHLY"
	FrequencyQuarterly  PaymentFrequency = "QUARTERLY"
	FrequencyHalfYearly PaymentFrequency = "HALF_YEARLY"
	FrequencyYearly     PaymentFrequency = "YEARLY"
	FrequencyFlexible   PaymentFrequency = "FLEXIBLE" // no schedule
)

// IsValid reports whether f is a known payment frequency
func (f PaymentFrequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
		FrequencyHalfYearly, FrequencyYearly, FrequencyFlexible:
		return true
	}
	return false
}

// Loan is an interest-bearing loan owned by a single borrower
type Loan struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"userId"`
	Principal        decimal.Decimal  `json:"principal"`
	AnnualRatePct    decimal.Decimal  `json:"annualRate"`
	TermDays         int32            `json:"termDays"`
	PaymentFrequency PaymentFrequency `json:"paymentFrequency"`
	StartDate        time.Time        `json:"startDate"`
	DueDate          time.Time        `json:"dueDate"`
	NextPaymentDate  *time.Time       `json:"nextPaymentDate,omitempty"`
	Outstanding      decimal.Decimal  `json:"outstanding"`
	InterestAccrued  decimal.Decimal  `json:"interestAccrued"`
	LastAccruedAt    *time.Time       `json:"lastAccruedAt,omitempty"`
	Status           LoanStatus       `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// IsClosed returns true once the loan has been fully repaid
func (l *Loan) IsClosed() bool {
	return l.Status == LoanStatusClosed
}

// AccrualAnchor returns the instant interest was last accrued up to,
// falling back to the start date for a loan that never accrued
func (l *Loan) AccrualAnchor() time.Time {
	if l.LastAccruedAt != nil {
		return *l.LastAccruedAt
	}
	return l.StartDate
}

// IsPastDue reports whether the due date, or the scheduled payment date for
// non-flexible loans, lies before now
func (l *Loan) IsPastDue(now time.Time) bool {
	if now.After(l.DueDate) {
		return true
	}
	if l.PaymentFrequency != FrequencyFlexible && l.NextPaymentDate != nil && now.After(*l.NextPaymentDate) {
		return true
	}
	return false
}

// LoanSort is one of the fixed sort keys accepted by loan listings
type LoanSort string

const (
	LoanSortCreatedAtAsc    LoanSort = "createdAt_asc"
	LoanSortCreatedAtDesc   LoanSort = "createdAt_desc"
	LoanSortOutstandingAsc  LoanSort = "outstanding_asc"
	LoanSortOutstandingDesc LoanSort = "outstanding_desc"
)

// IsValid reports whether s is a supported sort key
func (s LoanSort) IsValid() bool {
	switch s {
	case LoanSortCreatedAtAsc, LoanSortCreatedAtDesc, LoanSortOutstandingAsc, LoanSortOutstandingDesc:
		return true
	}
	return false
}

// Listing limits
const (
	DefaultUserLoanLimit  = 10
	DefaultAdminLoanLimit = 20
	MaxLoanLimit          = 100
)

// LoanFilters holds the predicates, sort and pagination for loan listings.
// Nil fields do not filter.
type LoanFilters struct {
	UserID         *uuid.UUID
	Status         *LoanStatus
	Frequency      *PaymentFrequency
	OverdueOnly    bool
	MinOutstanding *decimal.Decimal
	MaxOutstanding *decimal.Decimal
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Sort           LoanSort
	Page           int
	Limit          int
}

// Normalize applies pagination defaults and folds OverdueOnly into Status
func (f *LoanFilters) Normalize(defaultLimit int) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > MaxLoanLimit {
		f.Limit = MaxLoanLimit
	}
	if !f.Sort.IsValid() {
		f.Sort = LoanSortCreatedAtDesc
	}
	if f.OverdueOnly {
		overdue := LoanStatusOverdue
		f.Status = &overdue
	}
}

// Offset returns the row offset for the current page
func (f LoanFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// PaginatedLoans is a page of loans with totals
type PaginatedLoans struct {
	Data       []*Loan `json:"data"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalItems int64   `json:"totalItems"`
	TotalPages int     `json:"totalPages"`
}

// NewPaginatedLoans builds a page, computing the page count from the total
func NewPaginatedLoans(data []*Loan, page, limit int, total int64) *PaginatedLoans {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	if data == nil {
		data = []*Loan{}
	}
	return &PaginatedLoans{
		Data:       data,
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// LoanStats aggregates loan counts and balances across all borrowers
type LoanStats struct {
	TotalLoans       int64
	ActiveLoans      int64
	OverdueLoans     int64
	TotalOutstanding decimal.Decimal
}

// LoanRepository defines read and insert operations on loans outside a ledger transaction
type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Loan, error)
	GetByStatus(ctx context.Context, status LoanStatus) ([]*Loan, error)
	List(ctx context.Context, filters LoanFilters) ([]*Loan, int64, error)
	GetStats(ctx context.Context) (*LoanStats, error)
}

// LoanLedger is the loan persistence available inside a ledger transaction
type LoanLedger interface {
	// GetForUpdate reads the loan and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Loan, error)
	Update(ctx context.Context, loan *Loan) (*Loan, error)
}
