package websocket

import (
	"encoding/json"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
	"github.com/google/uuid"
)

// Loan stream event types
const (
	EventLoanCreated = "loan.created"
	EventLoanAccrued = "loan.accrued"
	EventLoanPaid    = "loan.paid"
	EventLoanOverdue = "loan.overdue"
	EventLoanClosed  = "loan.closed"
)

// Event is one message on the loan stream.
// Seq is stamped by the hub and grows by one per published event, so a
// subscriber that was dropped and reconnects can tell it missed something.
type Event struct {
	Seq       uint64      `json:"seq"`
	Type      string      `json:"type"`
	UserID    uuid.UUID   `json:"userId"`
	LoanID    uuid.UUID   `json:"loanId"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

func newLoanEvent(eventType string, loan *domain.Loan, payload interface{}) Event {
	return Event{
		Type:      eventType,
		UserID:    loan.UserID,
		LoanID:    loan.ID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LoanCreated creates a loan.created event
func LoanCreated(loan *domain.Loan) Event {
	return newLoanEvent(EventLoanCreated, loan, loan)
}

// LoanAccrued creates a loan.accrued event carrying the updated loan
func LoanAccrued(loan *domain.Loan) Event {
	return newLoanEvent(EventLoanAccrued, loan, loan)
}

// LoanPaid creates a loan.paid event carrying the payment and the updated loan
func LoanPaid(result *domain.PaymentResult) Event {
	return newLoanEvent(EventLoanPaid, result.UpdatedLoan, result)
}

// LoanOverdue creates a loan.overdue event
func LoanOverdue(loan *domain.Loan) Event {
	return newLoanEvent(EventLoanOverdue, loan, loan)
}

// LoanClosed creates a loan.closed event
func LoanClosed(loan *domain.Loan) Event {
	return newLoanEvent(EventLoanClosed, loan, loan)
}
