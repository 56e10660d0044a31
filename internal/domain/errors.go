package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("amount is zero or out of range")
	ErrInvalidAddress      = errors.New("account identity is required")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLimitExceeded       = errors.New("borrower limit exceeded")
	ErrNoLenderAvailable   = errors.New("no lender with sufficient coverage")
	ErrLoanNotActive       = errors.New("loan does not exist or is not active")
	ErrNotYourLoan         = errors.New("loan belongs to a different borrower")
	ErrWrongAmount         = errors.New("repayment must equal the exact amount due")
	ErrUnauthorized        = errors.New("unauthorized")

	// ErrInternalInvariant marks a programming-error condition that must
	// never occur in a correctly configured ledger.
	ErrInternalInvariant = errors.New("internal invariant violated")
)

// CollaboratorError wraps a failure from one of the external
// collaborators (credit registry, certificate registry, payout sink).
// Any such failure aborts the enclosing operation with full rollback.
type CollaboratorError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func NewCollaboratorError(collaborator, op string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Op: op, Err: err}
}

// IsCollaboratorError reports whether err originated in a collaborator call.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
