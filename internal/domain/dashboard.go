package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary aggregates a borrower's loans
type DashboardSummary struct {
	ActiveLoanCount      int             `json:"activeLoanCount"`
	TotalOutstanding     decimal.Decimal `json:"totalOutstanding"`
	TotalInterestAccrued decimal.Decimal `json:"totalInterestAccrued"`
	NextPaymentDate      *time.Time      `json:"nextPaymentDate"`
	Loans                []*Loan         `json:"loans"`
}

// AdminSummary aggregates users and loans across the whole book
type AdminSummary struct {
	TotalUsers       int64           `json:"totalUsers"`
	PendingUsers     int64           `json:"pendingUsers"`
	ActiveUsers      int64           `json:"activeUsers"`
	TotalLoans       int64           `json:"totalLoans"`
	ActiveLoans      int64           `json:"activeLoans"`
	OverdueLoans     int64           `json:"overdueLoans"`
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
}
