package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lendledger/internal/registry"
)

// Payment is a settlement instruction recorded by the in-process sink.
type Payment struct {
	Account string
	Amount  int64
	PaidOn  time.Time
}

// PayoutSink is the in-process reference implementation of the payout
// collaborator. It records settlement instructions rather than moving
// real value; an external settlement layer drains the recorded queue.
type PayoutSink struct {
	mu       sync.Mutex
	payments []Payment
}

func NewPayoutSink() *PayoutSink {
	return &PayoutSink{}
}

var _ registry.PayoutSink = (*PayoutSink)(nil)

func (s *PayoutSink) Pay(ctx context.Context, account string, amount int64) error {
	if account == "" {
		return fmt.Errorf("payout to empty account")
	}
	if amount <= 0 {
		return fmt.Errorf("payout amount must be positive, got %d", amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, Payment{Account: account, Amount: amount, PaidOn: time.Now()})
	return nil
}

// Payments returns a copy of all recorded settlement instructions.
func (s *PayoutSink) Payments() []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Payment, len(s.payments))
	copy(out, s.payments)
	return out
}

// TotalPaid sums all payments recorded for an account.
func (s *PayoutSink) TotalPaid(account string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, p := range s.payments {
		if p.Account == account {
			total += p.Amount
		}
	}
	return total
}
