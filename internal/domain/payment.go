package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType classifies a payment ledger entry
type PaymentType string

const (
	PaymentTypeEMI        PaymentType = "EMI"
	PaymentTypePartial    PaymentType = "PARTIAL"
	PaymentTypePrepayment PaymentType = "PREPAYMENT"
)

// IsValid reports whether t is a known payment type
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeEMI, PaymentTypePartial, PaymentTypePrepayment:
		return true
	}
	return false
}

// Payment is an append-only ledger entry against a loan
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	LoanID    uuid.UUID       `json:"loanId"`
	Amount    decimal.Decimal `json:"amount"`
	Type      PaymentType     `json:"type"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PaymentResult is returned after a payment has been applied
type PaymentResult struct {
	PaymentApplied  decimal.Decimal `json:"paymentApplied"`
	Payment         *Payment        `json:"payment"`
	InterestAccrued decimal.Decimal `json:"interestAccrued"`
	UpdatedLoan     *Loan           `json:"updatedLoan"`
}

// PaymentRepository reads payments outside a ledger transaction
type PaymentRepository interface {
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*Payment, error)
}

// PaymentLedger is the payment persistence available inside a ledger transaction
type PaymentLedger interface {
	Create(ctx context.Context, payment *Payment) (*Payment, error)
}
