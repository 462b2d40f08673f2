package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal error")

	ErrUserNotFound = fmt.Errorf("user: %w", ErrNotFound)
	ErrLoanNotFound = fmt.Errorf("loan: %w", ErrNotFound)
	ErrRunNotFound  = fmt.Errorf("accrual run: %w", ErrNotFound)

	ErrLoanClosed          = errors.New("loan is closed")
	ErrTransactionConflict = errors.New("transaction conflict: retries exhausted")
	ErrAccrualInProgress   = errors.New("accrual run already in progress")
)
