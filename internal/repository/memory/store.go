package memory

import (
	"context"
	"sort"
	"time"

	"lendledger/internal/domain"
	"lendledger/internal/repository"
)

// Store keeps the whole ledger state in process memory. It backs tests
// and the `store.type: memory` dev mode; transactions are implemented
// by snapshotting state and restoring it when the closure fails.
// Serialization is provided by the ledger service, which admits one
// operation at a time.
type Store struct {
	balances   map[string]int64
	limits     map[string]int64
	loans      map[int64]*domain.Loan
	nextLoanID int64
	events     []domain.Event
}

func NewStore() *Store {
	return &Store{
		balances:   make(map[string]int64),
		limits:     make(map[string]int64),
		loans:      make(map[int64]*domain.Loan),
		nextLoanID: 1,
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Lenders() repository.LenderRepository     { return (*lenderRepo)(s) }
func (s *Store) Borrowers() repository.BorrowerRepository { return (*borrowerRepo)(s) }
func (s *Store) Loans() repository.LoanRepository         { return (*loanRepo)(s) }
func (s *Store) Events() repository.EventRepository       { return (*eventRepo)(s) }

func (s *Store) WithinTransaction(ctx context.Context, fn func(repository.Store) error) error {
	snapshot := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type storeState struct {
	balances   map[string]int64
	limits     map[string]int64
	loans      map[int64]*domain.Loan
	nextLoanID int64
	events     []domain.Event
}

func (s *Store) snapshot() storeState {
	st := storeState{
		balances:   make(map[string]int64, len(s.balances)),
		limits:     make(map[string]int64, len(s.limits)),
		loans:      make(map[int64]*domain.Loan, len(s.loans)),
		nextLoanID: s.nextLoanID,
		events:     make([]domain.Event, len(s.events)),
	}
	for k, v := range s.balances {
		st.balances[k] = v
	}
	for k, v := range s.limits {
		st.limits[k] = v
	}
	for k, v := range s.loans {
		cp := *v
		st.loans[k] = &cp
	}
	copy(st.events, s.events)
	return st
}

func (s *Store) restore(st storeState) {
	s.balances = st.balances
	s.limits = st.limits
	s.loans = st.loans
	s.nextLoanID = st.nextLoanID
	s.events = st.events
}

type lenderRepo Store

func (r *lenderRepo) GetBalance(ctx context.Context, lender string) (int64, error) {
	return r.balances[lender], nil
}

func (r *lenderRepo) AddBalance(ctx context.Context, lender string, delta int64) error {
	r.balances[lender] += delta
	return nil
}

func (r *lenderRepo) SelectCovering(ctx context.Context, minBalance int64) (string, int64, error) {
	var best string
	var bestBalance int64 = -1
	for lender, balance := range r.balances {
		if balance < minBalance {
			continue
		}
		if balance > bestBalance || (balance == bestBalance && lender < best) {
			best = lender
			bestBalance = balance
		}
	}
	if bestBalance < 0 {
		return "", 0, domain.ErrNoLenderAvailable
	}
	return best, bestBalance, nil
}

func (r *lenderRepo) List(ctx context.Context) ([]domain.LenderBalance, error) {
	out := make([]domain.LenderBalance, 0, len(r.balances))
	for lender, balance := range r.balances {
		out = append(out, domain.LenderBalance{Lender: lender, Balance: balance})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lender < out[j].Lender })
	return out, nil
}

func (r *lenderRepo) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	for _, balance := range r.balances {
		total += balance
	}
	return total, nil
}

type borrowerRepo Store

func (r *borrowerRepo) GetLimit(ctx context.Context, borrower string) (int64, error) {
	return r.limits[borrower], nil
}

func (r *borrowerRepo) SetLimit(ctx context.Context, borrower string, limit int64) error {
	r.limits[borrower] = limit
	return nil
}

func (r *borrowerRepo) List(ctx context.Context) ([]domain.BorrowerLimit, error) {
	out := make([]domain.BorrowerLimit, 0, len(r.limits))
	for borrower, limit := range r.limits {
		out = append(out, domain.BorrowerLimit{Borrower: borrower, Limit: limit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Borrower < out[j].Borrower })
	return out, nil
}

type loanRepo Store

func (r *loanRepo) Create(ctx context.Context, loan *domain.Loan) error {
	loan.ID = r.nextLoanID
	r.nextLoanID++
	loan.CreatedOn = time.Now()
	cp := *loan
	r.loans[loan.ID] = &cp
	return nil
}

func (r *loanRepo) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	loan, ok := r.loans[id]
	if !ok {
		return nil, nil
	}
	cp := *loan
	return &cp, nil
}

func (r *loanRepo) Close(ctx context.Context, id int64) error {
	loan, ok := r.loans[id]
	if !ok || !loan.Active {
		return domain.ErrLoanNotActive
	}
	now := time.Now()
	loan.Active = false
	loan.ClosedOn = &now
	return nil
}

func (r *loanRepo) List(ctx context.Context, activeOnly bool) ([]domain.Loan, error) {
	out := make([]domain.Loan, 0, len(r.loans))
	for _, loan := range r.loans {
		if activeOnly && !loan.Active {
			continue
		}
		out = append(out, *loan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *loanRepo) NextID(ctx context.Context) (int64, error) {
	return r.nextLoanID, nil
}

func (r *loanRepo) ActiveCoverageTotal(ctx context.Context) (int64, error) {
	var total int64
	for _, loan := range r.loans {
		if loan.Active {
			total += loan.Coverage
		}
	}
	return total, nil
}

type eventRepo Store

func (r *eventRepo) Record(ctx context.Context, event *domain.Event) error {
	r.events = append(r.events, *event)
	return nil
}

func (r *eventRepo) List(ctx context.Context, limit int32) ([]domain.Event, error) {
	n := len(r.events)
	if limit > 0 && int(limit) < n {
		n = int(limit)
	}
	out := make([]domain.Event, 0, n)
	// Newest first.
	for i := len(r.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}
