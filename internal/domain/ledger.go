package domain

import "context"

// LedgerTx exposes the repositories bound to one database transaction
type LedgerTx interface {
	Loans() LoanLedger
	Payments() PaymentLedger
}

// TxManager runs a function inside a database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Implementations may retry fn on serialization conflicts, so fn must not
// have side effects outside the transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}
