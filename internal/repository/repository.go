package repository

import (
	"context"

	"lendledger/internal/domain"
)

type LenderRepository interface {
	// GetBalance returns the lender's balance, zero for unknown lenders.
	GetBalance(ctx context.Context, lender string) (int64, error)
	// AddBalance applies a signed delta to a lender's balance, creating
	// the row on first deposit. The caller validates that debits never
	// push a balance negative.
	AddBalance(ctx context.Context, lender string, delta int64) error
	// SelectCovering picks the matched lender for a loan: the lender
	// with the highest balance >= minBalance, ties broken by lowest
	// lender id in byte order. Returns domain.ErrNoLenderAvailable when
	// no lender qualifies.
	SelectCovering(ctx context.Context, minBalance int64) (string, int64, error)
	List(ctx context.Context) ([]domain.LenderBalance, error)
	TotalBalance(ctx context.Context) (int64, error)
}

type BorrowerRepository interface {
	// GetLimit returns the borrower's limit, zero for unknown borrowers.
	GetLimit(ctx context.Context, borrower string) (int64, error)
	SetLimit(ctx context.Context, borrower string, limit int64) error
	List(ctx context.Context) ([]domain.BorrowerLimit, error)
}

type LoanRepository interface {
	// Create assigns the next loan id and persists the loan.
	Create(ctx context.Context, loan *domain.Loan) error
	// GetByID returns (nil, nil) when no loan has that id.
	GetByID(ctx context.Context, id int64) (*domain.Loan, error)
	// Close flips an active loan to inactive. Closing is terminal.
	Close(ctx context.Context, id int64) error
	List(ctx context.Context, activeOnly bool) ([]domain.Loan, error)
	// NextID reports the id the next origination will receive.
	NextID(ctx context.Context) (int64, error)
	// ActiveCoverageTotal sums the coverage reserved inside active loans.
	ActiveCoverageTotal(ctx context.Context) (int64, error)
}

type EventRepository interface {
	Record(ctx context.Context, event *domain.Event) error
	List(ctx context.Context, limit int32) ([]domain.Event, error)
}

// Store bundles the ledger's repositories behind one transaction
// boundary. WithinTransaction runs fn against a transaction-scoped
// Store; fn returning an error rolls every mutation back. The ledger
// core admits one operation at a time, so stores do not need to guard
// against interleaved transactions beyond what the backend provides.
type Store interface {
	Lenders() LenderRepository
	Borrowers() BorrowerRepository
	Loans() LoanRepository
	Events() EventRepository
	WithinTransaction(ctx context.Context, fn func(Store) error) error
}
