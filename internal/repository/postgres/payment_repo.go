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

const paymentColumns = `id, loan_id, amount, type, created_at`

// PaymentRepository implements domain.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// GetByLoanID retrieves a loan's payments, oldest first
func (r *PaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE loan_id = $1
		ORDER BY created_at ASC, id ASC`, uuidToPg(loanID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// paymentLedger implements domain.PaymentLedger on an open transaction
type paymentLedger struct {
	q DBTX
}

// Create appends a payment to the ledger
func (l *paymentLedger) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	amount, err := decimalToPgNumeric(payment.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := l.q.QueryRow(ctx, `
		INSERT INTO payments (loan_id, amount, type)
		VALUES ($1, $2, $3)
		RETURNING `+paymentColumns,
		uuidToPg(payment.LoanID), amount, string(payment.Type),
	)
	return scanPayment(row)
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p           domain.Payment
		id, loanID  pgtype.UUID
		amount      pgtype.Numeric
		paymentType string
	)
	if err := row.Scan(&id, &loanID, &amount, &paymentType, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ID = pgToUUID(id)
	p.LoanID = pgToUUID(loanID)
	p.Amount = pgNumericToDecimal(amount)
	p.Type = domain.PaymentType(paymentType)
	return &p, nil
}
