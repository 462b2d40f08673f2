package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccrualResult is the per-loan outcome of a batch accrual.
// Exactly one of Loan and Err is set.
type AccrualResult struct {
	LoanID   uuid.UUID
	Loan     *Loan
	Interest decimal.Decimal
	Err      error
}

// OK reports whether the loan accrued successfully
func (r AccrualResult) OK() bool {
	return r.Err == nil
}

// AccrualTrigger records what started a batch run
type AccrualTrigger string

const (
	AccrualTriggerScheduled AccrualTrigger = "scheduled"
	AccrualTriggerManual    AccrualTrigger = "manual"
)

// AccrualRun is the audit record of one batch accrual
type AccrualRun struct {
	ID             int64           `json:"id"`
	RunDate        time.Time       `json:"runDate"`
	Trigger        AccrualTrigger  `json:"trigger"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	LoansProcessed int             `json:"loansProcessed"`
	LoansFailed    int             `json:"loansFailed"`
	TotalInterest  decimal.Decimal `json:"totalInterest"`
	Summary        map[string]any  `json:"summary"`
}

// AccrualRunRepository persists batch run audit records
type AccrualRunRepository interface {
	Create(ctx context.Context, run *AccrualRun) (*AccrualRun, error)
	GetLatest(ctx context.Context) (*AccrualRun, error)
	GetByDate(ctx context.Context, runDate time.Time) ([]*AccrualRun, error)
}
