package postgres

import (
	"context"
	"fmt"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const loanColumns = `id, user_id, principal, annual_rate_pct, term_days, payment_frequency,
	start_date, due_date, next_payment_date, outstanding, interest_accrued, last_accrued_at,
	status, created_at, updated_at`

// Every predicate is skipped when its argument is NULL
const loanFilterWhere = `WHERE ($1::uuid IS NULL OR user_id = $1)
	AND ($2::text IS NULL OR status = $2)
	AND ($3::text IS NULL OR payment_frequency = $3)
	AND ($4::numeric IS NULL OR outstanding >= $4)
	AND ($5::numeric IS NULL OR outstanding <= $5)
	AND ($6::timestamptz IS NULL OR created_at >= $6)
	AND ($7::timestamptz IS NULL OR created_at <= $7)`

var loanOrderBy = map[domain.LoanSort]string{
	domain.LoanSortCreatedAtAsc:    "created_at ASC, id ASC",
	domain.LoanSortCreatedAtDesc:   "created_at DESC, id DESC",
	domain.LoanSortOutstandingAsc:  "outstanding ASC, id ASC",
	domain.LoanSortOutstandingDesc: "outstanding DESC, id DESC",
}

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

// Create inserts a new loan; the database assigns its ID and timestamps
func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return nil, fmt.Errorf("invalid principal: %w", err)
	}
	rate, err := decimalToPgNumeric(loan.AnnualRatePct)
	if err != nil {
		return nil, fmt.Errorf("invalid rate: %w", err)
	}
	outstanding, err := decimalToPgNumeric(loan.Outstanding)
	if err != nil {
		return nil, fmt.Errorf("invalid outstanding: %w", err)
	}
	interest, err := decimalToPgNumeric(loan.InterestAccrued)
	if err != nil {
		return nil, fmt.Errorf("invalid interest: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO loans (user_id, principal, annual_rate_pct, term_days, payment_frequency,
			start_date, due_date, next_payment_date, outstanding, interest_accrued, last_accrued_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+loanColumns,
		uuidToPg(loan.UserID), principal, rate, loan.TermDays, string(loan.PaymentFrequency),
		loan.StartDate, loan.DueDate, loan.NextPaymentDate, outstanding, interest, loan.LastAccruedAt,
		string(loan.Status),
	)
	return scanLoan(row)
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, uuidToPg(id))
	loan, err := scanLoan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// GetByUserID retrieves a user's loans, newest first
func (r *LoanRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, uuidToPg(userID))
	if err != nil {
		return nil, err
	}
	return collectLoans(rows)
}

// GetByStatus retrieves all loans with the given status, oldest first
func (r *LoanRepository) GetByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE status = $1
		ORDER BY created_at ASC, id ASC`, string(status))
	if err != nil {
		return nil, err
	}
	return collectLoans(rows)
}

// List returns one page of loans matching filters plus the total match count.
// Filters are expected to be normalized.
func (r *LoanRepository) List(ctx context.Context, filters domain.LoanFilters) ([]*domain.Loan, int64, error) {
	args, err := loanFilterArgs(filters)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM loans `+loanFilterWhere, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy, ok := loanOrderBy[filters.Sort]
	if !ok {
		orderBy = loanOrderBy[domain.LoanSortCreatedAtDesc]
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		`+loanFilterWhere+`
		ORDER BY `+orderBy+`
		LIMIT $8 OFFSET $9`,
		append(args, filters.Limit, filters.Offset())...,
	)
	if err != nil {
		return nil, 0, err
	}

	loans, err := collectLoans(rows)
	if err != nil {
		return nil, 0, err
	}
	return loans, total, nil
}

// GetStats aggregates loan counts and the outstanding balance of the book
func (r *LoanRepository) GetStats(ctx context.Context) (*domain.LoanStats, error) {
	var (
		stats       domain.LoanStats
		outstanding pgtype.Numeric
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE status = 'OVERDUE'),
			COALESCE(SUM(outstanding), 0)
		FROM loans`,
	).Scan(&stats.TotalLoans, &stats.ActiveLoans, &stats.OverdueLoans, &outstanding)
	if err != nil {
		return nil, err
	}
	stats.TotalOutstanding = pgNumericToDecimal(outstanding)
	return &stats, nil
}

// loanLedger implements domain.LoanLedger on an open transaction
type loanLedger struct {
	q DBTX
}

// GetForUpdate reads the loan and holds its row lock until the transaction ends
func (l *loanLedger) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := l.q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, uuidToPg(id))
	loan, err := scanLoan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// Update writes the mutable ledger fields of a loan
func (l *loanLedger) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	outstanding, err := decimalToPgNumeric(loan.Outstanding)
	if err != nil {
		return nil, fmt.Errorf("invalid outstanding: %w", err)
	}
	interest, err := decimalToPgNumeric(loan.InterestAccrued)
	if err != nil {
		return nil, fmt.Errorf("invalid interest: %w", err)
	}

	row := l.q.QueryRow(ctx, `
		UPDATE loans SET
			next_payment_date = $2,
			outstanding = $3,
			interest_accrued = $4,
			last_accrued_at = $5,
			status = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+loanColumns,
		uuidToPg(loan.ID), loan.NextPaymentDate, outstanding, interest, loan.LastAccruedAt, string(loan.Status),
	)
	updated, err := scanLoan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return updated, nil
}

func loanFilterArgs(f domain.LoanFilters) ([]any, error) {
	args := make([]any, 7)

	if f.UserID != nil {
		args[0] = uuidToPg(*f.UserID)
	}
	if f.Status != nil {
		args[1] = string(*f.Status)
	}
	if f.Frequency != nil {
		args[2] = string(*f.Frequency)
	}
	if f.MinOutstanding != nil {
		n, err := decimalToPgNumeric(*f.MinOutstanding)
		if err != nil {
			return nil, fmt.Errorf("invalid minOutstanding: %w", err)
		}
		args[3] = n
	}
	if f.MaxOutstanding != nil {
		n, err := decimalToPgNumeric(*f.MaxOutstanding)
		if err != nil {
			return nil, fmt.Errorf("invalid maxOutstanding: %w", err)
		}
		args[4] = n
	}
	if f.CreatedFrom != nil {
		args[5] = *f.CreatedFrom
	}
	if f.CreatedTo != nil {
		args[6] = *f.CreatedTo
	}
	return args, nil
}

func collectLoans(rows pgx.Rows) ([]*domain.Loan, error) {
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		loan                                   domain.Loan
		id, userID                             pgtype.UUID
		principal, rate, outstanding, interest pgtype.Numeric
		frequency, status                      string
	)

	err := row.Scan(
		&id, &userID, &principal, &rate, &loan.TermDays, &frequency,
		&loan.StartDate, &loan.DueDate, &loan.NextPaymentDate, &outstanding, &interest, &loan.LastAccruedAt,
		&status, &loan.CreatedAt, &loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	loan.ID = pgToUUID(id)
	loan.UserID = pgToUUID(userID)
	loan.Principal = pgNumericToDecimal(principal)
	loan.AnnualRatePct = pgNumericToDecimal(rate)
	loan.Outstanding = pgNumericToDecimal(outstanding)
	loan.InterestAccrued = pgNumericToDecimal(interest)
	loan.PaymentFrequency = domain.PaymentFrequency(frequency)
	loan.Status = domain.LoanStatus(status)
	loan.StartDate = loan.StartDate.UTC()
	loan.DueDate = loan.DueDate.UTC()
	if loan.NextPaymentDate != nil {
		t := loan.NextPaymentDate.UTC()
		loan.NextPaymentDate = &t
	}
	if loan.LastAccruedAt != nil {
		t := loan.LastAccruedAt.UTC()
		loan.LastAccruedAt = &t
	}
	return &loan, nil
}
