package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	mu         sync.Mutex
	ByID       map[uuid.UUID]*domain.User
	GetStatsFn func() (*domain.UserStats, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		ByID: make(map[uuid.UUID]*domain.User),
	}
}

// GetByID retrieves a user by ID
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.ByID[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.ByID[user.ID] = user
	return user, nil
}

// GetStats counts users by status
func (m *MockUserRepository) GetStats(ctx context.Context) (*domain.UserStats, error) {
	if m.GetStatsFn != nil {
		return m.GetStatsFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.UserStats{}
	for _, u := range m.ByID {
		stats.TotalUsers++
		switch u.Status {
		case domain.UserStatusPending:
			stats.PendingUsers++
		case domain.UserStatusActive:
			stats.ActiveUsers++
		}
	}
	return stats, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ByID[user.ID] = user
}

// MockLoanRepository is a mock implementation of domain.LoanRepository.
// It stores copies so callers cannot change persisted state without Update.
type MockLoanRepository struct {
	mu             sync.Mutex
	Loans          map[uuid.UUID]*domain.Loan
	GetByStatusFn  func(status domain.LoanStatus) ([]*domain.Loan, error)
	GetForUpdateFn func(id uuid.UUID) (*domain.Loan, error)
	UpdateFn       func(loan *domain.Loan) (*domain.Loan, error)
	ListFn         func(filters domain.LoanFilters) ([]*domain.Loan, int64, error)
	GetStatsFn     func() (*domain.LoanStats, error)
	LastFilters    *domain.LoanFilters
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans: make(map[uuid.UUID]*domain.Loan),
	}
}

// Create stores a new loan
func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := CopyLoan(loan)
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.Loans[stored.ID] = stored
	return CopyLoan(stored), nil
}

// GetByID retrieves a loan by ID
func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan, ok := m.Loans[id]; ok {
		return CopyLoan(loan), nil
	}
	return nil, domain.ErrLoanNotFound
}

// GetByUserID retrieves a user's loans, newest first
func (m *MockLoanRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Loan
	for _, loan := range m.Loans {
		if loan.UserID == userID {
			result = append(result, CopyLoan(loan))
		}
	}
	sortLoans(result, domain.LoanSortCreatedAtDesc)
	return result, nil
}

// GetByStatus retrieves all loans with status, oldest first
func (m *MockLoanRepository) GetByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	if m.GetByStatusFn != nil {
		return m.GetByStatusFn(status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Loan
	for _, loan := range m.Loans {
		if loan.Status == status {
			result = append(result, CopyLoan(loan))
		}
	}
	sortLoans(result, domain.LoanSortCreatedAtAsc)
	return result, nil
}

// List applies filters, sort and pagination in memory
func (m *MockLoanRepository) List(ctx context.Context, filters domain.LoanFilters) ([]*domain.Loan, int64, error) {
	m.mu.Lock()
	m.LastFilters = &filters
	m.mu.Unlock()
	if m.ListFn != nil {
		return m.ListFn(filters)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Loan
	for _, loan := range m.Loans {
		if matchesFilters(loan, filters) {
			matched = append(matched, CopyLoan(loan))
		}
	}
	sortLoans(matched, filters.Sort)

	total := int64(len(matched))
	start := filters.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filters.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// GetStats aggregates loan counts and outstanding balance
func (m *MockLoanRepository) GetStats(ctx context.Context) (*domain.LoanStats, error) {
	if m.GetStatsFn != nil {
		return m.GetStatsFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.LoanStats{TotalOutstanding: decimal.Zero}
	for _, loan := range m.Loans {
		stats.TotalLoans++
		switch loan.Status {
		case domain.LoanStatusActive:
			stats.ActiveLoans++
		case domain.LoanStatusOverdue:
			stats.OverdueLoans++
		}
		stats.TotalOutstanding = stats.TotalOutstanding.Add(loan.Outstanding)
	}
	return stats, nil
}

// AddLoan adds a loan to the mock repository (helper for tests)
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	m.Loans[loan.ID] = CopyLoan(loan)
}

// Get returns the persisted copy of a loan (helper for tests)
func (m *MockLoanRepository) Get(id uuid.UUID) *domain.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan, ok := m.Loans[id]; ok {
		return CopyLoan(loan)
	}
	return nil
}

func (m *MockLoanRepository) getForUpdate(id uuid.UUID) (*domain.Loan, error) {
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan, ok := m.Loans[id]; ok {
		return CopyLoan(loan), nil
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) put(loan *domain.Loan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Loans[loan.ID] = CopyLoan(loan)
}

func matchesFilters(loan *domain.Loan, f domain.LoanFilters) bool {
	if f.UserID != nil && loan.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && loan.Status != *f.Status {
		return false
	}
	if f.Frequency != nil && loan.PaymentFrequency != *f.Frequency {
		return false
	}
	if f.MinOutstanding != nil && loan.Outstanding.LessThan(*f.MinOutstanding) {
		return false
	}
	if f.MaxOutstanding != nil && loan.Outstanding.GreaterThan(*f.MaxOutstanding) {
		return false
	}
	if f.CreatedFrom != nil && loan.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && loan.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func sortLoans(loans []*domain.Loan, by domain.LoanSort) {
	sort.SliceStable(loans, func(i, j int) bool {
		a, b := loans[i], loans[j]
		switch by {
		case domain.LoanSortCreatedAtAsc:
			return a.CreatedAt.Before(b.CreatedAt)
		case domain.LoanSortOutstandingAsc:
			return a.Outstanding.LessThan(b.Outstanding)
		case domain.LoanSortOutstandingDesc:
			return a.Outstanding.GreaterThan(b.Outstanding)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

// CopyLoan returns a deep copy of loan
func CopyLoan(loan *domain.Loan) *domain.Loan {
	c := *loan
	if loan.NextPaymentDate != nil {
		d := *loan.NextPaymentDate
		c.NextPaymentDate = &d
	}
	if loan.LastAccruedAt != nil {
		d := *loan.LastAccruedAt
		c.LastAccruedAt = &d
	}
	return &c
}

// MockPaymentRepository is a mock implementation of domain.PaymentRepository
type MockPaymentRepository struct {
	mu            sync.Mutex
	ByLoanID      map[uuid.UUID][]*domain.Payment
	CreateFn      func(payment *domain.Payment) (*domain.Payment, error)
	GetByLoanIDFn func(loanID uuid.UUID) ([]*domain.Payment, error)
}

// NewMockPaymentRepository creates a new MockPaymentRepository
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		ByLoanID: make(map[uuid.UUID][]*domain.Payment),
	}
}

// GetByLoanID retrieves a loan's payments in insertion order
func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(loanID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	payments := m.ByLoanID[loanID]
	result := make([]*domain.Payment, len(payments))
	copy(result, payments)
	return result, nil
}

// AddPayment adds a payment to the mock repository (helper for tests)
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	m.ByLoanID[payment.LoanID] = append(m.ByLoanID[payment.LoanID], payment)
}

// Count returns the total number of persisted payments (helper for tests)
func (m *MockPaymentRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, payments := range m.ByLoanID {
		n += len(payments)
	}
	return n
}

// MockTxManager is a mock implementation of domain.TxManager. Writes made
// inside fn are staged and only reach the repositories when fn returns nil.
// Transactions run one at a time, which stands in for row locking.
type MockTxManager struct {
	mu         sync.Mutex
	loans      *MockLoanRepository
	payments   *MockPaymentRepository
	Calls      int
	WithinTxFn func(ctx context.Context, fn func(tx domain.LedgerTx) error) error
}

// NewMockTxManager creates a MockTxManager committing into the given repositories
func NewMockTxManager(loans *MockLoanRepository, payments *MockPaymentRepository) *MockTxManager {
	return &MockTxManager{
		loans:    loans,
		payments: payments,
	}
}

// WithinTx runs fn against a staging transaction
func (m *MockTxManager) WithinTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	tx := &mockLedgerTx{
		m:     m,
		loans: make(map[uuid.UUID]*domain.Loan),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for _, loan := range tx.loans {
		m.loans.put(loan)
	}
	for _, p := range tx.payments {
		m.payments.AddPayment(p)
	}
	return nil
}

type mockLedgerTx struct {
	m        *MockTxManager
	loans    map[uuid.UUID]*domain.Loan
	payments []*domain.Payment
}

func (tx *mockLedgerTx) Loans() domain.LoanLedger       { return (*mockLoanLedger)(tx) }
func (tx *mockLedgerTx) Payments() domain.PaymentLedger { return (*mockPaymentLedger)(tx) }

type mockLoanLedger mockLedgerTx

func (l *mockLoanLedger) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	if staged, ok := l.loans[id]; ok {
		return CopyLoan(staged), nil
	}
	return l.m.loans.getForUpdate(id)
}

func (l *mockLoanLedger) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if l.m.loans.UpdateFn != nil {
		return l.m.loans.UpdateFn(loan)
	}
	staged := CopyLoan(loan)
	staged.UpdatedAt = time.Now()
	l.loans[staged.ID] = staged
	return CopyLoan(staged), nil
}

type mockPaymentLedger mockLedgerTx

func (p *mockPaymentLedger) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if p.m.payments.CreateFn != nil {
		return p.m.payments.CreateFn(payment)
	}
	created := *payment
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	p.payments = append(p.payments, &created)
	result := created
	return &result, nil
}

// MockAccrualRunRepository is a mock implementation of domain.AccrualRunRepository
type MockAccrualRunRepository struct {
	mu       sync.Mutex
	Runs     []*domain.AccrualRun
	NextID   int64
	CreateFn func(run *domain.AccrualRun) (*domain.AccrualRun, error)
}

// NewMockAccrualRunRepository creates a new MockAccrualRunRepository
func NewMockAccrualRunRepository() *MockAccrualRunRepository {
	return &MockAccrualRunRepository{
		NextID: 1,
	}
}

// Create records a run
func (m *MockAccrualRunRepository) Create(ctx context.Context, run *domain.AccrualRun) (*domain.AccrualRun, error) {
	if m.CreateFn != nil {
		return m.CreateFn(run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	stored.ID = m.NextID
	m.NextID++
	m.Runs = append(m.Runs, &stored)
	result := stored
	return &result, nil
}

// GetLatest returns the most recently recorded run
func (m *MockAccrualRunRepository) GetLatest(ctx context.Context) (*domain.AccrualRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Runs) == 0 {
		return nil, domain.ErrRunNotFound
	}
	return m.Runs[len(m.Runs)-1], nil
}

// GetByDate returns the runs recorded for a calendar day
func (m *MockAccrualRunRepository) GetByDate(ctx context.Context, runDate time.Time) ([]*domain.AccrualRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.AccrualRun
	for _, run := range m.Runs {
		if run.RunDate.Equal(runDate) {
			result = append(result, run)
		}
	}
	return result, nil
}

// Count returns the number of recorded runs (helper for tests)
func (m *MockAccrualRunRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Runs)
}

// MockRunLock is an in-memory stand-in for the distributed run lock
type MockRunLock struct {
	mu         sync.Mutex
	Held       bool
	AcquireErr error
	Acquired   int
	Released   int
}

// Acquire takes the lock unless it is held
func (m *MockRunLock) Acquire(ctx context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return "", false, m.AcquireErr
	}
	if m.Held {
		return "", false, nil
	}
	m.Held = true
	m.Acquired++
	return uuid.NewString(), true, nil
}

// Release frees the lock
func (m *MockRunLock) Release(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Held = false
	m.Released++
	return nil
}

// MockRunArchiver records archived runs in memory
type MockRunArchiver struct {
	mu   sync.Mutex
	Runs []*domain.AccrualRun
	Err  error
}

// ArchiveRun stores the run unless Err is set
func (m *MockRunArchiver) ArchiveRun(ctx context.Context, run *domain.AccrualRun) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Runs = append(m.Runs, run)
	return fmt.Sprintf("accrual-runs/%d.json", run.ID), nil
}
