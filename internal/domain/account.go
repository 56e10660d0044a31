package domain

import "time"

// LenderBalance is a lender's internal credit balance, mutated by
// deposits (+), loan coverage reservation (-) and withdrawals (-).
// Balances never go negative.
type LenderBalance struct {
	Lender    string    `json:"lender"`
	Balance   int64     `json:"balance"`
	UpdatedOn time.Time `json:"updated_on"`
}

// BorrowerLimit is the administrator-set ceiling on a borrower's
// outstanding principal. A limit of zero revokes borrowing.
type BorrowerLimit struct {
	Borrower  string    `json:"borrower"`
	Limit     int64     `json:"limit"`
	UpdatedOn time.Time `json:"updated_on"`
}

// ConservationReport is the money-conservation audit over the whole
// ledger: the sum of lender balances plus the coverage reserved inside
// active loans must never exceed total credit issued minus redeemed.
type ConservationReport struct {
	LenderBalanceTotal int64 `json:"lender_balance_total"`
	ReservedCoverage   int64 `json:"reserved_coverage"`
	CreditIssued       int64 `json:"credit_issued"`
	CreditRedeemed     int64 `json:"credit_redeemed"`
	// TotalsKnown is false when the credit registry in use does not
	// expose issuance totals; the invariant is then not checkable.
	TotalsKnown bool `json:"totals_known"`
	Violated    bool `json:"violated"`
}
