package domain

import "time"

type EventType string

const (
	EventDeposited      EventType = "DEPOSITED"
	EventWithdrawn      EventType = "WITHDRAWN"
	EventLimitSet       EventType = "LIMIT_SET"
	EventLoanOriginated EventType = "LOAN_ORIGINATED"
	EventLoanRepaid     EventType = "LOAN_REPAID"
	EventCreditRedeemed EventType = "CREDIT_REDEEMED"
)

// Event is the single domain event emitted by each successful ledger
// operation. Account is the principal the operation acted for;
// Counterparty is the matched lender on loan events. Amount carries the
// operation's primary quantity, Net and Fee its split where one applies
// (net/commission on redemptions, lender share/platform share on
// repayment).
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty,omitempty"`
	LoanID       *int64    `json:"loan_id,omitempty"`
	Amount       int64     `json:"amount"`
	Net          int64     `json:"net,omitempty"`
	Fee          int64     `json:"fee,omitempty"`
	CreatedOn    time.Time `json:"created_on"`
}
