package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/dafibh/kredo/kredo-backend/internal/metrics"
	"github.com/dafibh/kredo/kredo-backend/internal/util"
	"github.com/dafibh/kredo/kredo-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LoanService owns the loan ledger: creation, accrual, payments and status transitions
type LoanService struct {
	txManager      domain.TxManager
	loanRepo       domain.LoanRepository
	paymentRepo    domain.PaymentRepository
	userRepo       domain.UserRepository
	eventPublisher websocket.EventPublisher
	metrics        *metrics.LedgerMetrics
	now            func() time.Time
}

// NewLoanService creates a new LoanService
func NewLoanService(txManager domain.TxManager, loanRepo domain.LoanRepository, paymentRepo domain.PaymentRepository, userRepo domain.UserRepository) *LoanService {
	return &LoanService{
		txManager:   txManager,
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the collectors updated by ledger mutations
func (s *LoanService) SetMetrics(m *metrics.LedgerMetrics) {
	s.metrics = m
}

// SetClock replaces the wall clock used for "now"
func (s *LoanService) SetClock(now func() time.Time) {
	s.now = now
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *LoanService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// CreateLoanInput holds the terms of a new loan
type CreateLoanInput struct {
	UserID           uuid.UUID
	Principal        decimal.Decimal
	AnnualRatePct    decimal.Decimal
	TermDays         int32
	StartDate        *time.Time
	PaymentFrequency *domain.PaymentFrequency
}

// CreateLoan opens a loan for an existing user. Range validation of the terms
// is the caller's job.
func (s *LoanService) CreateLoan(ctx context.Context, input CreateLoanInput) (*domain.Loan, error) {
	if _, err := s.userRepo.GetByID(ctx, input.UserID); err != nil {
		return nil, err
	}

	start := s.now().UTC()
	if input.StartDate != nil {
		start = input.StartDate.UTC()
	}

	frequency := domain.FrequencyFlexible
	if input.PaymentFrequency != nil && *input.PaymentFrequency != "" {
		frequency = *input.PaymentFrequency
	}

	loan := &domain.Loan{
		UserID:           input.UserID,
		Principal:        input.Principal,
		AnnualRatePct:    input.AnnualRatePct,
		TermDays:         input.TermDays,
		PaymentFrequency: frequency,
		StartDate:        start,
		DueDate:          start.AddDate(0, 0, int(input.TermDays)),
		NextPaymentDate:  util.NextPaymentDate(&start, frequency),
		Outstanding:      input.Principal,
		InterestAccrued:  decimal.Zero,
		Status:           domain.LoanStatusActive,
	}

	created, err := s.loanRepo.Create(ctx, loan)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", created.ID.String()).
		Str("user_id", created.UserID.String()).
		Str("principal", created.Principal.StringFixed(2)).
		Str("frequency", string(created.PaymentFrequency)).
		Msg("Loan created")

	s.publishEvent(websocket.LoanCreated(created))

	return created, nil
}

// AccrueInterestForLoan accrues simple daily interest on the loan's outstanding
// balance from its last accrual up to upTo (now when nil), then flags the loan
// OVERDUE when its due or next payment date has passed. The whole mutation
// runs in one transaction holding the loan row lock. Closed loans are returned
// unchanged.
func (s *LoanService) AccrueInterestForLoan(ctx context.Context, loanID uuid.UUID, upTo *time.Time) (*domain.Loan, error) {
	loan, _, err := s.accrue(ctx, loanID, upTo)
	return loan, err
}

// accrue is AccrueInterestForLoan that also reports the interest added
func (s *LoanService) accrue(ctx context.Context, loanID uuid.UUID, upTo *time.Time) (*domain.Loan, decimal.Decimal, error) {
	var (
		updated       *domain.Loan
		interest      decimal.Decimal
		changed       bool
		becameOverdue bool
	)

	err := s.txManager.WithinTx(ctx, func(tx domain.LedgerTx) error {
		// Reset per attempt; the manager may retry fn
		interest, changed, becameOverdue = decimal.Zero, false, false

		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		if loan.IsClosed() {
			updated = loan
			return nil
		}

		now := s.now()
		current := now
		if upTo != nil {
			current = *upTo
		}

		// Never move the accrual anchor backwards
		lastDate := loan.AccrualAnchor()
		if current.After(lastDate) {
			interest = util.InterestForPeriod(loan.Outstanding, loan.AnnualRatePct, lastDate, current)
			loan.Outstanding = loan.Outstanding.Add(interest)
			loan.InterestAccrued = loan.InterestAccrued.Add(interest)
			accruedAt := current.UTC()
			loan.LastAccruedAt = &accruedAt
			changed = true
		}

		// One-way: OVERDUE is never cleared here
		if loan.Status == domain.LoanStatusActive && loan.IsPastDue(now) {
			loan.Status = domain.LoanStatusOverdue
			becameOverdue = true
			changed = true
		}

		if !changed {
			updated = loan
			return nil
		}

		updated, err = tx.Loans().Update(ctx, loan)
		return err
	})
	s.metrics.ObserveAccrual(err, interest)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if changed {
		log.Debug().
			Str("loan_id", loanID.String()).
			Str("interest", interest.StringFixed(2)).
			Str("outstanding", updated.Outstanding.StringFixed(2)).
			Msg("Interest accrued")
		s.publishEvent(websocket.LoanAccrued(updated))
	}

	if becameOverdue {
		log.Info().
			Str("loan_id", loanID.String()).
			Str("user_id", updated.UserID.String()).
			Msg("Loan is overdue")
		s.metrics.ObserveTransition(string(domain.LoanStatusOverdue))
		s.publishEvent(websocket.LoanOverdue(updated))
	}

	return updated, interest, nil
}

// AccrueAllLoans accrues every ACTIVE loan up to the same instant, each in its
// own transaction. A failing loan is reported in its result and does not stop
// the batch; only listing errors and context cancellation abort it.
func (s *LoanService) AccrueAllLoans(ctx context.Context) ([]domain.AccrualResult, error) {
	loans, err := s.loanRepo.GetByStatus(ctx, domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	now := s.now()
	results := make([]domain.AccrualResult, 0, len(loans))

	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		updated, interest, err := s.accrue(ctx, loan.ID, &now)
		if err != nil {
			log.Error().
				Err(err).
				Str("loan_id", loan.ID.String()).
				Msg("Failed to accrue loan")
			results = append(results, domain.AccrualResult{LoanID: loan.ID, Err: err})
			continue
		}

		results = append(results, domain.AccrualResult{LoanID: loan.ID, Loan: updated, Interest: interest})
	}

	return results, nil
}

// PayLoan records a payment and applies it to the outstanding balance, which
// never goes below zero. The next payment date advances one period from the
// current scheduled date, or from now once that date has passed. A balance of
// zero closes the loan.
func (s *LoanService) PayLoan(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, paymentType domain.PaymentType) (*domain.PaymentResult, error) {
	if paymentType == "" {
		paymentType = domain.PaymentTypeEMI
	}
	// Ledger amounts are stored to the cent. The sign is not checked here.
	if !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("%w: amount has more than 2 decimal places", domain.ErrInvalidInput)
	}

	var (
		result *domain.PaymentResult
		closed bool
	)

	err := s.txManager.WithinTx(ctx, func(tx domain.LedgerTx) error {
		closed = false

		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		if loan.IsClosed() {
			return domain.ErrLoanClosed
		}

		payment, err := tx.Payments().Create(ctx, &domain.Payment{
			LoanID: loanID,
			Amount: amount,
			Type:   paymentType,
		})
		if err != nil {
			return err
		}

		newOutstanding := loan.Outstanding.Sub(amount)
		if newOutstanding.IsNegative() {
			newOutstanding = decimal.Zero
		}

		now := s.now()
		anchor := now
		if loan.NextPaymentDate != nil && loan.NextPaymentDate.After(now) {
			anchor = *loan.NextPaymentDate
		}
		loan.NextPaymentDate = util.NextPaymentDate(&anchor, loan.PaymentFrequency)

		loan.Outstanding = newOutstanding
		if !newOutstanding.IsPositive() {
			loan.Status = domain.LoanStatusClosed
			closed = true
		}

		updated, err := tx.Loans().Update(ctx, loan)
		if err != nil {
			return err
		}

		result = &domain.PaymentResult{
			PaymentApplied:  amount,
			Payment:         payment,
			InterestAccrued: updated.InterestAccrued,
			UpdatedLoan:     updated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObservePayment(string(paymentType), amount)

	log.Info().
		Str("loan_id", loanID.String()).
		Str("amount", amount.StringFixed(2)).
		Str("type", string(paymentType)).
		Str("outstanding", result.UpdatedLoan.Outstanding.StringFixed(2)).
		Msg("Payment applied")

	s.publishEvent(websocket.LoanPaid(result))
	if closed {
		s.metrics.ObserveTransition(string(domain.LoanStatusClosed))
		s.publishEvent(websocket.LoanClosed(result.UpdatedLoan))
	}

	return result, nil
}

// GetLoan retrieves a loan by ID
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, loanID)
}

// LoanWithPayments is a loan together with its payment ledger
type LoanWithPayments struct {
	*domain.Loan
	Payments []*domain.Payment `json:"payments"`
}

// GetUserLoans returns all of a user's loans, newest first, each with its payments
func (s *LoanService) GetUserLoans(ctx context.Context, userID uuid.UUID) ([]*LoanWithPayments, error) {
	loans, err := s.loanRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*LoanWithPayments, len(loans))
	for i, loan := range loans {
		payments, err := s.paymentRepo.GetByLoanID(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		result[i] = &LoanWithPayments{Loan: loan, Payments: payments}
	}
	return result, nil
}

// GetLoanPayments returns a loan's payments, oldest first
func (s *LoanService) GetLoanPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetByLoanID(ctx, loanID)
}
