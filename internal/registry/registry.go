package registry

import "context"

// The ledger core consumes three external collaborators. Each call is
// synchronous and all-or-nothing: a failure aborts the enclosing ledger
// operation, which rolls back fully. None of the implementations behind
// these interfaces may be mutated by anything but the ledger core.

// CreditRegistry issues and redeems the fungible internal credit,
// pegged 1:1 against the collateral value unit.
type CreditRegistry interface {
	Issue(ctx context.Context, account string, amount int64) error
	Redeem(ctx context.Context, account string, amount int64) error
	BalanceOf(ctx context.Context, account string) (int64, error)
	TransferReserved(ctx context.Context, from, to string, amount int64) error
}

// CreditReporter is optionally implemented by credit registries that
// can report lifetime issuance totals; the conservation audit uses it
// when available.
type CreditReporter interface {
	Totals(ctx context.Context) (issued, redeemed int64, err error)
}

// CertificateRegistry issues and destroys the unique non-fungible
// certificate bound to a loan id for the loan's active lifetime.
type CertificateRegistry interface {
	Issue(ctx context.Context, owner string, id int64, metadataRef string) error
	Destroy(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// PayoutSink transfers real value out to an account. A payment either
// completes fully or fails with no partial effect.
type PayoutSink interface {
	Pay(ctx context.Context, account string, amount int64) error
}
