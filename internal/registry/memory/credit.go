package memory

import (
	"context"
	"fmt"
	"sync"

	"lendledger/internal/registry"
)

// CreditRegistry is the in-process reference implementation of the
// credit collaborator: a mutex-guarded balance book that also tracks
// lifetime issuance totals for conservation audits.
type CreditRegistry struct {
	mu       sync.Mutex
	balances map[string]int64
	issued   int64
	redeemed int64
}

func NewCreditRegistry() *CreditRegistry {
	return &CreditRegistry{balances: make(map[string]int64)}
}

var _ registry.CreditRegistry = (*CreditRegistry)(nil)
var _ registry.CreditReporter = (*CreditRegistry)(nil)

func (r *CreditRegistry) Issue(ctx context.Context, account string, amount int64) error {
	if account == "" {
		return fmt.Errorf("issue to empty account")
	}
	if amount <= 0 {
		return fmt.Errorf("issue amount must be positive, got %d", amount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[account] += amount
	r.issued += amount
	return nil
}

func (r *CreditRegistry) Redeem(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("redeem amount must be positive, got %d", amount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[account] < amount {
		return fmt.Errorf("redeem %d exceeds balance %d of %q", amount, r.balances[account], account)
	}
	r.balances[account] -= amount
	r.redeemed += amount
	return nil
}

func (r *CreditRegistry) BalanceOf(ctx context.Context, account string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[account], nil
}

func (r *CreditRegistry) TransferReserved(ctx context.Context, from, to string, amount int64) error {
	if from == "" || to == "" {
		return fmt.Errorf("transfer requires both accounts")
	}
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[from] < amount {
		return fmt.Errorf("transfer %d exceeds balance %d of %q", amount, r.balances[from], from)
	}
	r.balances[from] -= amount
	r.balances[to] += amount
	return nil
}

// Totals reports lifetime issued and redeemed credit.
func (r *CreditRegistry) Totals(ctx context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issued, r.redeemed, nil
}
