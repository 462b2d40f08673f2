package service

import (
	"context"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardService builds read-only portfolio views for clients and admins
type DashboardService struct {
	loanRepo domain.LoanRepository
	userRepo domain.UserRepository
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(loanRepo domain.LoanRepository, userRepo domain.UserRepository) *DashboardService {
	return &DashboardService{
		loanRepo: loanRepo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock used for "now"
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

// GetDashboard summarizes all of a user's loans, closed ones included.
// Totals cover every loan, ActiveLoanCount counts only ACTIVE loans, and
// NextPaymentDate is the earliest scheduled payment strictly after now.
func (s *DashboardService) GetDashboard(ctx context.Context, userID uuid.UUID) (*domain.DashboardSummary, error) {
	loans, err := s.loanRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &domain.DashboardSummary{
		TotalOutstanding:     decimal.Zero,
		TotalInterestAccrued: decimal.Zero,
		Loans:                make([]*domain.Loan, 0, len(loans)),
	}

	for _, loan := range loans {
		summary.Loans = append(summary.Loans, loan)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(loan.Outstanding)
		summary.TotalInterestAccrued = summary.TotalInterestAccrued.Add(loan.InterestAccrued)
		if loan.Status == domain.LoanStatusActive {
			summary.ActiveLoanCount++
		}

		next := loan.NextPaymentDate
		if next == nil || !next.After(now) {
			continue
		}
		if summary.NextPaymentDate == nil || next.Before(*summary.NextPaymentDate) {
			d := *next
			summary.NextPaymentDate = &d
		}
	}

	return summary, nil
}

// GetUserLoanList pages through one user's loans. The user filter is always
// forced to userID whatever the caller passed.
func (s *DashboardService) GetUserLoanList(ctx context.Context, userID uuid.UUID, filters domain.LoanFilters) (*domain.PaginatedLoans, error) {
	filters.UserID = &userID
	filters.Normalize(domain.DefaultUserLoanLimit)
	return s.list(ctx, filters)
}

// GetAdminLoanList pages through loans across all users
func (s *DashboardService) GetAdminLoanList(ctx context.Context, filters domain.LoanFilters) (*domain.PaginatedLoans, error) {
	filters.Normalize(domain.DefaultAdminLoanLimit)
	return s.list(ctx, filters)
}

func (s *DashboardService) list(ctx context.Context, filters domain.LoanFilters) (*domain.PaginatedLoans, error) {
	loans, total, err := s.loanRepo.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedLoans(loans, filters.Page, filters.Limit, total), nil
}

// GetAdminSummary returns platform-wide user and loan counts
func (s *DashboardService) GetAdminSummary(ctx context.Context) (*domain.AdminSummary, error) {
	userStats, err := s.userRepo.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	loanStats, err := s.loanRepo.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.AdminSummary{
		TotalUsers:       userStats.TotalUsers,
		PendingUsers:     userStats.PendingUsers,
		ActiveUsers:      userStats.ActiveUsers,
		TotalLoans:       loanStats.TotalLoans,
		ActiveLoans:      loanStats.ActiveLoans,
		OverdueLoans:     loanStats.OverdueLoans,
		TotalOutstanding: loanStats.TotalOutstanding,
	}, nil
}
