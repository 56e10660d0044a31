package domain

import "time"

// Loan records a matched lending position. A loan is created active by
// origination and flipped to inactive exactly once at repayment; closed
// loans are retained as history and their ids are never reused.
type Loan struct {
	ID        int64      `json:"id"`
	Lender    string     `json:"lender"`
	Borrower  string     `json:"borrower"`
	Principal int64      `json:"principal"`
	AmountDue int64      `json:"amount_due"`
	// Coverage is the credit reserved from the lender's balance at
	// origination (110% of principal under the default policy).
	Coverage  int64      `json:"coverage"`
	Active    bool       `json:"active"`
	CreatedOn time.Time  `json:"created_on"`
	ClosedOn  *time.Time `json:"closed_on,omitempty"`
}
