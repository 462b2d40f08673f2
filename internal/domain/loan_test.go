package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoanStatusValuesMatchDatabaseConstraints(t *testing.T) {
	// CHECK (status IN ('ACTIVE', 'OVERDUE', 'CLOSED'))
	tests := []struct {
		status   LoanStatus
		expected string
	}{
		{LoanStatusActive, "ACTIVE"},
		{LoanStatusOverdue, "OVERDUE"},
		{LoanStatusClosed, "CLOSED"},
	}

	for _, tt := range tests {
		if string(tt.status) != tt.expected {
			t.Errorf("LoanStatus = %s, want %s", tt.status, tt.expected)
		}
		if !tt.status.IsValid() {
			t.Errorf("LoanStatus %s should be valid", tt.status)
		}
	}

	if LoanStatus("PAID").IsValid() {
		t.Error("Unknown status should not be valid")
	}
}

func TestPaymentFrequency_IsValid(t *testing.T) {
	valid := []PaymentFrequency{
		FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
		FrequencyHalfYearly, FrequencyYearly, FrequencyFlexible,
	}
	for _, f := range valid {
		if !f.IsValid() {
			t.Errorf("Frequency %s should be valid", f)
		}
	}
	if PaymentFrequency("BIWEEKLY").IsValid() {
		t.Error("BIWEEKLY should not be valid")
	}
	if PaymentFrequency("").IsValid() {
		t.Error("Empty frequency should not be valid")
	}
}

func TestLoan_AccrualAnchor(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	loan := &Loan{StartDate: start}

	if !loan.AccrualAnchor().Equal(start) {
		t.Errorf("Expected start date anchor, got %v", loan.AccrualAnchor())
	}

	accrued := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	loan.LastAccruedAt = &accrued
	if !loan.AccrualAnchor().Equal(accrued) {
		t.Errorf("Expected last accrued anchor, got %v", loan.AccrualAnchor())
	}
}

func TestLoan_IsPastDue(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	due := start.AddDate(0, 0, 30)
	next := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		frequency PaymentFrequency
		next      *time.Time
		now       time.Time
		expected  bool
	}{
		{"before everything", FrequencyMonthly, &next, start.AddDate(0, 0, 10), false},
		{"after due date", FrequencyMonthly, nil, due.Add(time.Hour), true},
		{"after next payment", FrequencyMonthly, &start, start.AddDate(0, 0, 1), true},
		{"flexible ignores next payment", FrequencyFlexible, &start, start.AddDate(0, 0, 1), false},
		{"exactly at due date", FrequencyFlexible, nil, due, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := &Loan{
				PaymentFrequency: tt.frequency,
				StartDate:        start,
				DueDate:          due,
				NextPaymentDate:  tt.next,
			}
			if got := loan.IsPastDue(tt.now); got != tt.expected {
				t.Errorf("IsPastDue() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoanFilters_Normalize(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		f := LoanFilters{}
		f.Normalize(DefaultUserLoanLimit)

		if f.Page != 1 || f.Limit != DefaultUserLoanLimit {
			t.Errorf("Expected page 1 limit %d, got page %d limit %d", DefaultUserLoanLimit, f.Page, f.Limit)
		}
		if f.Sort != LoanSortCreatedAtDesc {
			t.Errorf("Expected default sort %s, got %s", LoanSortCreatedAtDesc, f.Sort)
		}
		if f.Status != nil {
			t.Error("Expected no status filter")
		}
	})

	t.Run("caps limit", func(t *testing.T) {
		f := LoanFilters{Limit: 500, Page: 3}
		f.Normalize(DefaultAdminLoanLimit)
		if f.Limit != MaxLoanLimit {
			t.Errorf("Expected limit %d, got %d", MaxLoanLimit, f.Limit)
		}
		if f.Offset() != 2*MaxLoanLimit {
			t.Errorf("Expected offset %d, got %d", 2*MaxLoanLimit, f.Offset())
		}
	})

	t.Run("overdue only forces status", func(t *testing.T) {
		active := LoanStatusActive
		f := LoanFilters{Status: &active, OverdueOnly: true}
		f.Normalize(DefaultAdminLoanLimit)
		if f.Status == nil || *f.Status != LoanStatusOverdue {
			t.Errorf("Expected OVERDUE status filter, got %v", f.Status)
		}
	})

	t.Run("keeps valid sort", func(t *testing.T) {
		f := LoanFilters{Sort: LoanSortOutstandingAsc}
		f.Normalize(DefaultAdminLoanLimit)
		if f.Sort != LoanSortOutstandingAsc {
			t.Errorf("Expected sort %s, got %s", LoanSortOutstandingAsc, f.Sort)
		}
	})
}

func TestNewPaginatedLoans(t *testing.T) {
	page := NewPaginatedLoans(nil, 2, 10, 21)
	if page.TotalPages != 3 {
		t.Errorf("Expected 3 pages, got %d", page.TotalPages)
	}
	if page.Data == nil {
		t.Error("Expected empty slice, got nil")
	}

	empty := NewPaginatedLoans([]*Loan{{Outstanding: decimal.Zero}}, 1, 10, 0)
	if empty.TotalPages != 0 {
		t.Errorf("Expected 0 pages, got %d", empty.TotalPages)
	}
}

func TestNotFoundErrorsWrapBase(t *testing.T) {
	for _, err := range []error{ErrLoanNotFound, ErrUserNotFound, ErrRunNotFound} {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%v should wrap ErrNotFound", err)
		}
	}
}
