package service

import (
	"context"

	"lendledger/internal/domain"
)

// LedgerService is the accounting and matching core. Every mutating
// operation validates its preconditions before touching state, runs as
// one indivisible transaction, and emits exactly one domain event on
// success.
type LedgerService interface {
	// Deposit issues credit 1:1 against collateral and credits the
	// depositor's lender balance.
	Deposit(ctx context.Context, depositor string, amount int64) (*domain.Event, error)
	// Withdraw redeems lender credit back into collateral currency,
	// net of the platform commission.
	Withdraw(ctx context.Context, withdrawer string, amount int64) (*domain.Event, error)
	// SetBorrowerLimit sets a borrower's outstanding-principal ceiling.
	// Only the configured administrator principal may call it.
	SetBorrowerLimit(ctx context.Context, caller, borrower string, limit int64) (*domain.Event, error)
	// OriginateLoan matches the borrower against the lender index,
	// reserves coverage, moves principal and issues the loan certificate.
	OriginateLoan(ctx context.Context, borrower string, principal int64) (*domain.Loan, *domain.Event, error)
	// RepayLoan settles an active loan with the exact amount due and
	// closes it terminally.
	RepayLoan(ctx context.Context, payer string, loanID, paid int64) (*domain.Event, error)
	// RedeemBorrowerCredit redeems credit held directly in the credit
	// registry (refunds, bonuses) with the same commission contract as
	// Withdraw.
	RedeemBorrowerCredit(ctx context.Context, borrower string, amount int64) (*domain.Event, error)

	// Inspection surface.
	GetLenderBalance(ctx context.Context, lender string) (int64, error)
	ListLenderBalances(ctx context.Context) ([]domain.LenderBalance, error)
	GetBorrowerLimit(ctx context.Context, borrower string) (int64, error)
	ListBorrowerLimits(ctx context.Context) ([]domain.BorrowerLimit, error)
	GetLoan(ctx context.Context, id int64) (*domain.Loan, error)
	ListLoans(ctx context.Context, activeOnly bool) ([]domain.Loan, error)
	NextLoanID(ctx context.Context) (int64, error)
	ListEvents(ctx context.Context, limit int32) ([]domain.Event, error)
	ConservationReport(ctx context.Context) (*domain.ConservationReport, error)
}

// AuthService authenticates the administrator and mints bearer tokens
// for ledger principals.
type AuthService interface {
	// Login verifies the administrator credential and returns an admin
	// access token.
	Login(ctx context.Context, principal, password string) (string, error)
	// IssueAccountToken mints an access token for an arbitrary
	// principal. Administrator capability required.
	IssueAccountToken(ctx context.Context, caller, account string) (string, error)
}
