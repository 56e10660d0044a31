package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lendledger/internal/domain"
	"lendledger/internal/logger"
	"lendledger/internal/registry"
	"lendledger/internal/repository"
	"lendledger/internal/utils"
)

// Policy carries the configurable accounting constants. Rates live in
// utils; these are the deployment-specific knobs.
type Policy struct {
	// FixedSpread is the flat value-unit spread the lender earns on top
	// of principal at repayment.
	FixedSpread int64
	// FeeSinkAccount receives every platform fee payout.
	FeeSinkAccount string
	// AdminPrincipal is the single identity holding the administrator
	// capability.
	AdminPrincipal string
	// MetadataBaseURL is the canonical URI template for certificate
	// metadata references, completed with the loan id.
	MetadataBaseURL string
}

// MetadataRef derives the opaque certificate metadata reference for a
// loan id. The derivation is deterministic so the reference can be
// recomputed for compensation.
func (p Policy) MetadataRef(loanID int64) string {
	return fmt.Sprintf("%s/%d", p.MetadataBaseURL, loanID)
}

type ledgerService struct {
	// mu serializes the six mutating operations: each runs to
	// completion against the shared state before the next is admitted,
	// so check-then-act sequences such as the origination coverage
	// check can never interleave.
	mu      sync.Mutex
	store   repository.Store
	credit  registry.CreditRegistry
	certs   registry.CertificateRegistry
	payouts registry.PayoutSink
	policy  Policy
}

func NewLedgerService(
	store repository.Store,
	credit registry.CreditRegistry,
	certs registry.CertificateRegistry,
	payouts registry.PayoutSink,
	policy Policy,
) LedgerService {
	return &ledgerService{
		store:   store,
		credit:  credit,
		certs:   certs,
		payouts: payouts,
		policy:  policy,
	}
}

func newEvent(t domain.EventType, account string) *domain.Event {
	return &domain.Event{
		ID:        uuid.NewString(),
		Type:      t,
		Account:   account,
		CreatedOn: time.Now(),
	}
}

// runAtomic executes fn inside the store transaction with a
// compensation stack for collaborator calls. Any failure, including a
// failed commit, unwinds the collaborator effects and rolls the store
// back, leaving the whole operation without observable effect.
func (s *ledgerService) runAtomic(ctx context.Context, fn func(st repository.Store, undo *compensator) error) error {
	undo := &compensator{}
	err := s.store.WithinTransaction(ctx, func(st repository.Store) error {
		return fn(st, undo)
	})
	if err != nil {
		undo.rollback(ctx)
		return err
	}
	return nil
}

func (s *ledgerService) Deposit(ctx context.Context, depositor string, amount int64) (*domain.Event, error) {
	logger.EnterMethod("ledgerService.Deposit", "depositor", depositor, "amount", amount)

	if depositor == "" {
		return nil, domain.ErrInvalidAddress
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ev *domain.Event
	err := s.runAtomic(ctx, func(st repository.Store, undo *compensator) error {
		if err := s.credit.Issue(ctx, depositor, amount); err != nil {
			return domain.NewCollaboratorError("credit registry", "issue", err)
		}
		undo.add(func(ctx context.Context) error {
			return s.credit.Redeem(ctx, depositor, amount)
		})

		if err := st.Lenders().AddBalance(ctx, depositor, amount); err != nil {
			return err
		}

		ev = newEvent(domain.EventDeposited, depositor)
		ev.Amount = amount
		return st.Events().Record(ctx, ev)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.Deposit", err, "depositor", depositor)
		return nil, err
	}

	logger.ExitMethod("ledgerService.Deposit", "depositor", depositor, "amount", amount)
	return ev, nil
}

func (s *ledgerService) Withdraw(ctx context.Context, withdrawer string, amount int64) (*domain.Event, error) {
	logger.EnterMethod("ledgerService.Withdraw", "withdrawer", withdrawer, "amount", amount)

	if withdrawer == "" {
		return nil, domain.ErrInvalidAddress
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ev *domain.Event
	err := s.runAtomic(ctx, func(st repository.Store, undo *compensator) error {
		balance, err := st.Lenders().GetBalance(ctx, withdrawer)
		if err != nil {
			return err
		}
		if amount > balance {
			return domain.ErrInsufficientBalance
		}

		net, commission := utils.SplitCommission(amount)

		if err := st.Lenders().AddBalance(ctx, withdrawer, -amount); err != nil {
			return err
		}

		if err := s.credit.Redeem(ctx, withdrawer, amount); err != nil {
			return domain.NewCollaboratorError("credit registry", "redeem", err)
		}
		undo.add(func(ctx context.Context) error {
			return s.credit.Issue(ctx, withdrawer, amount)
		})

		// Payouts are irreversible, so they run last. The fee sink is
		// platform-owned and can be swept back if a later step fails,
		// which the withdrawer's payout cannot; hence fee first.
		if commission > 0 {
			if err := s.payouts.Pay(ctx, s.policy.FeeSinkAccount, commission); err != nil {
				return domain.NewCollaboratorError("payout sink", "pay commission", err)
			}
		}
		if err := s.payouts.Pay(ctx, withdrawer, net); err != nil {
			return domain.NewCollaboratorError("payout sink", "pay net", err)
		}

		ev = newEvent(domain.EventWithdrawn, withdrawer)
		ev.Amount = amount
		ev.Net = net
		ev.Fee = commission
		return st.Events().Record(ctx, ev)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.Withdraw", err, "withdrawer", withdrawer)
		return nil, err
	}

	logger.ExitMethod("ledgerService.Withdraw", "withdrawer", withdrawer, "amount", amount, "net", ev.Net, "commission", ev.Fee)
	return ev, nil
}

func (s *ledgerService) SetBorrowerLimit(ctx context.Context, caller, borrower string, limit int64) (*domain.Event, error) {
	logger.EnterMethod("ledgerService.SetBorrowerLimit", "caller", caller, "borrower", borrower, "limit", limit)

	if caller != s.policy.AdminPrincipal || s.policy.AdminPrincipal == "" {
		return nil, domain.ErrUnauthorized
	}
	if borrower == "" {
		return nil, domain.ErrInvalidAddress
	}
	if limit < 0 {
		return nil, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ev *domain.Event
	err := s.runAtomic(ctx, func(st repository.Store, undo *compensator) error {
		if err := st.Borrowers().SetLimit(ctx, borrower, limit); err != nil {
			return err
		}
		ev = newEvent(domain.EventLimitSet, borrower)
		ev.Amount = limit
		return st.Events().Record(ctx, ev)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.SetBorrowerLimit", err, "borrower", borrower)
		return nil, err
	}

	logger.ExitMethod("ledgerService.SetBorrowerLimit", "borrower", borrower, "limit", limit)
	return ev, nil
}

func (s *ledgerService) OriginateLoan(ctx context.Context, borrower string, principal int64) (*domain.Loan, *domain.Event, error) {
	logger.EnterMethod("ledgerService.OriginateLoan", "borrower", borrower, "principal", principal)

	if borrower == "" {
		return nil, nil, domain.ErrInvalidAddress
	}
	// Below the minimum principal the repayment split would invert, so
	// the inversion is rejected here instead of surfacing later as an
	// invariant violation.
	if principal <= 0 || principal < utils.MinimumPrincipal(s.policy.FixedSpread) {
		return nil, nil, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var loan *domain.Loan
	var ev *domain.Event
	err := s.runAtomic(ctx, func(st repository.Store, undo *compensator) error {
		limit, err := st.Borrowers().GetLimit(ctx, borrower)
		if err != nil {
			return err
		}
		if principal > limit {
			return domain.ErrLimitExceeded
		}

		coverage := utils.RequiredCoverage(principal)
		lender, _, err := st.Lenders().SelectCovering(ctx, coverage)
		if err != nil {
			return err
		}

		if err := st.Lenders().AddBalance(ctx, lender, -coverage); err != nil {
			return err
		}

		if err := s.credit.TransferReserved(ctx, lender, borrower, principal); err != nil {
			return domain.NewCollaboratorError("credit registry", "transfer reserved", err)
		}
		undo.add(func(ctx context.Context) error {
			return s.credit.TransferReserved(ctx, borrower, lender, principal)
		})

		loan = &domain.Loan{
			Lender:    lender,
			Borrower:  borrower,
			Principal: principal,
			AmountDue: utils.AmountDue(principal),
			Coverage:  coverage,
			Active:    true,
		}
		if err := st.Loans().Create(ctx, loan); err != nil {
			return err
		}

		if err := s.certs.Issue(ctx, lender, loan.ID, s.policy.MetadataRef(loan.ID)); err != nil {
			return domain.NewCollaboratorError("certificate registry", "issue", err)
		}
		undo.add(func(ctx context.Context) error {
			return s.certs.Destroy(ctx, loan.ID)
		})

		ev = newEvent(domain.EventLoanOriginated, borrower)
		ev.Counterparty = lender
		ev.LoanID = &loan.ID
		ev.Amount = principal
		ev.Net = loan.AmountDue
		return st.Events().Record(ctx, ev)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.OriginateLoan", err, "borrower", borrower)
		return nil, nil, err
	}

	logger.ExitMethod("ledgerService.OriginateLoan",
		"loan_id", loan.ID, "borrower", borrower, "lender", loan.Lender,
		"principal", principal, "amount_due", loan.AmountDue)
	return loan, ev, nil
}

func (s *ledgerService) RepayLoan(ctx context.Context, payer string, loanID, paid int64) (*domain.Event, error) {
	logger.EnterMethod("ledgerService.RepayLoan", "payer", payer, "loan_id", loanID, "paid", paid)

	if payer == "" {
		return nil, domain.ErrInvalidAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ev *domain.Event
	err := s.runAtomic(ctx, func(st repository.Store, undo *compensator) error {
		loan, err := st.Loans().GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		if loan == nil || !loan.Active {
			return domain.ErrLoanNotActive
		}
		if payer != loan.Borrower {
			return domain.ErrNotYourLoan
		}
		if paid != loan.AmountDue {
			return domain.ErrWrongAmount
		}

		lenderShare := loan.Principal + s.policy.FixedSpread
		if lenderShare > loan.AmountDue {
			return fmt.Errorf("lender share %d exceeds amount due %d on loan %d: %w",
				lenderShare, loan.AmountDue, loan.ID, domain.ErrInternalInvariant)
		}
		platformShare := loan.AmountDue - lenderShare

		if err := st.Loans().Close(ctx, loan.ID); err != nil {
			return err
		}

		if err := s.certs.Destroy(ctx, loan.ID); err != nil {
			return domain.NewCollaboratorError("certificate registry", "destroy", err)
		}
		lender := loan.Lender
		id := loan.ID
		undo.add(func(ctx context.Context) error {
			return s.certs.Issue(ctx, lender, id, s.policy.MetadataRef(id))
		})

		// Irreversible payouts last, platform share ahead of the
		// lender payout for the same reason as in Withdraw.
		if platformShare > 0 {
			if err := s.payouts.Pay(ctx, s.policy.FeeSinkAccount, platformShare); err != nil {
				return domain.NewCollaboratorError("payout sink", "pay platform share", err)
			}
		}
		if err := s.payouts.Pay(ctx, loan.Lender, lenderShare); err != nil {
			return domain.NewCollaboratorError("payout sink", "pay lender share", err)
		}

		ev = newEvent(domain.EventLoanRepaid, loan.Borrower)
		ev.Counterparty = loan.Lender
		ev.LoanID = &loan.ID
		ev.Amount = loan.AmountDue
		ev.Net = lenderShare
		ev.Fee = platformShare
		return st.Events().Record(ctx, ev)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.RepayLoan", err, "loan_id", loanID)
		return nil, err
	}

	logger.ExitMethod("ledgerService.RepayLoan",
		"loan_id", loanID, "amount_due", ev.Amount, "lender_share", ev.Net, "platform_share", ev.Fee)
	return ev, nil
}

func (s *ledgerService) RedeemBorrowerCredit(ctx context.Context, borrower string, amount int64) (*domain.Event, error) {
	logger.EnterMethod("ledgerService.RedeemBorrowerCredit", "borrower", borrower, "amount", amount)

	if borrower == "" {
		return nil, domain.ErrInvalidAddress
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ev *domain.Event
	err := s.runAtomic(ctx, func(st repository.Store, undo *compensator) error {
		// The borrower's credit is tracked by the registry, not by an
		// internally owned balance.
		balance, err := s.credit.BalanceOf(ctx, borrower)
		if err != nil {
			return domain.NewCollaboratorError("credit registry", "balance of", err)
		}
		if amount > balance {
			return domain.ErrInsufficientBalance
		}

		net, commission := utils.SplitCommission(amount)

		if err := s.credit.Redeem(ctx, borrower, amount); err != nil {
			return domain.NewCollaboratorError("credit registry", "redeem", err)
		}
		undo.add(func(ctx context.Context) error {
			return s.credit.Issue(ctx, borrower, amount)
		})

		if commission > 0 {
			if err := s.payouts.Pay(ctx, s.policy.FeeSinkAccount, commission); err != nil {
				return domain.NewCollaboratorError("payout sink", "pay commission", err)
			}
		}
		if err := s.payouts.Pay(ctx, borrower, net); err != nil {
			return domain.NewCollaboratorError("payout sink", "pay net", err)
		}

		ev = newEvent(domain.EventCreditRedeemed, borrower)
		ev.Amount = amount
		ev.Net = net
		ev.Fee = commission
		return st.Events().Record(ctx, ev)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.RedeemBorrowerCredit", err, "borrower", borrower)
		return nil, err
	}

	logger.ExitMethod("ledgerService.RedeemBorrowerCredit", "borrower", borrower, "amount", amount)
	return ev, nil
}

func (s *ledgerService) GetLenderBalance(ctx context.Context, lender string) (int64, error) {
	return s.store.Lenders().GetBalance(ctx, lender)
}

func (s *ledgerService) ListLenderBalances(ctx context.Context) ([]domain.LenderBalance, error) {
	return s.store.Lenders().List(ctx)
}

func (s *ledgerService) GetBorrowerLimit(ctx context.Context, borrower string) (int64, error) {
	return s.store.Borrowers().GetLimit(ctx, borrower)
}

func (s *ledgerService) ListBorrowerLimits(ctx context.Context) ([]domain.BorrowerLimit, error) {
	return s.store.Borrowers().List(ctx)
}

func (s *ledgerService) GetLoan(ctx context.Context, id int64) (*domain.Loan, error) {
	return s.store.Loans().GetByID(ctx, id)
}

func (s *ledgerService) ListLoans(ctx context.Context, activeOnly bool) ([]domain.Loan, error) {
	return s.store.Loans().List(ctx, activeOnly)
}

func (s *ledgerService) NextLoanID(ctx context.Context) (int64, error) {
	return s.store.Loans().NextID(ctx)
}

func (s *ledgerService) ListEvents(ctx context.Context, limit int32) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.Events().List(ctx, limit)
}

func (s *ledgerService) ConservationReport(ctx context.Context) (*domain.ConservationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &domain.ConservationReport{}

	total, err := s.store.Lenders().TotalBalance(ctx)
	if err != nil {
		return nil, err
	}
	report.LenderBalanceTotal = total

	reserved, err := s.store.Loans().ActiveCoverageTotal(ctx)
	if err != nil {
		return nil, err
	}
	report.ReservedCoverage = reserved

	if reporter, ok := s.credit.(registry.CreditReporter); ok {
		issued, redeemed, err := reporter.Totals(ctx)
		if err != nil {
			return nil, domain.NewCollaboratorError("credit registry", "totals", err)
		}
		report.CreditIssued = issued
		report.CreditRedeemed = redeemed
		report.TotalsKnown = true
		report.Violated = total+reserved > issued-redeemed
	}
	return report, nil
}
