package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"lendledger/internal/domain"
	"lendledger/internal/registry"
	regmemory "lendledger/internal/registry/memory"
	repomemory "lendledger/internal/repository/memory"
	"lendledger/internal/service"
)

type testLedger struct {
	svc     service.LedgerService
	credit  *regmemory.CreditRegistry
	certs   *regmemory.CertificateRegistry
	payouts *regmemory.PayoutSink
}

func testPolicy() service.Policy {
	return service.Policy{
		FixedSpread:     5500,
		FeeSinkAccount:  "platform-fees",
		AdminPrincipal:  "admin",
		MetadataBaseURL: "ledger://loans",
	}
}

func newTestLedger() *testLedger {
	tl := &testLedger{
		credit:  regmemory.NewCreditRegistry(),
		certs:   regmemory.NewCertificateRegistry(),
		payouts: regmemory.NewPayoutSink(),
	}
	tl.svc = service.NewLedgerService(repomemory.NewStore(), tl.credit, tl.certs, tl.payouts, testPolicy())
	return tl
}

// MockCertificateRegistry
type MockCertificateRegistry struct {
	mock.Mock
}

var _ registry.CertificateRegistry = (*MockCertificateRegistry)(nil)

func (m *MockCertificateRegistry) Issue(ctx context.Context, owner string, id int64, metadataRef string) error {
	args := m.Called(ctx, owner, id, metadataRef)
	return args.Error(0)
}
func (m *MockCertificateRegistry) Destroy(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockCertificateRegistry) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func TestLedgerService_Deposit(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ev, err := tl.svc.Deposit(ctx, "lender-1", 100000)
		assert.NoError(t, err)
		assert.Equal(t, domain.EventDeposited, ev.Type)
		assert.Equal(t, "lender-1", ev.Account)
		assert.Equal(t, int64(100000), ev.Amount)
		assert.NotEmpty(t, ev.ID)

		balance, err := tl.svc.GetLenderBalance(ctx, "lender-1")
		assert.NoError(t, err)
		assert.Equal(t, int64(100000), balance)

		credit, err := tl.credit.BalanceOf(ctx, "lender-1")
		assert.NoError(t, err)
		assert.Equal(t, int64(100000), credit)
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		_, err := tl.svc.Deposit(ctx, "lender-1", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)

		_, err = tl.svc.Deposit(ctx, "lender-1", -5)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("RejectsEmptyDepositor", func(t *testing.T) {
		_, err := tl.svc.Deposit(ctx, "", 100)
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	})
}

func TestLedgerService_Withdraw(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	_, err := tl.svc.Deposit(ctx, "lender-1", 100000)
	assert.NoError(t, err)

	t.Run("SplitsCommission", func(t *testing.T) {
		ev, err := tl.svc.Withdraw(ctx, "lender-1", 10000)
		assert.NoError(t, err)
		assert.Equal(t, domain.EventWithdrawn, ev.Type)
		assert.Equal(t, int64(10000), ev.Amount)
		assert.Equal(t, int64(9850), ev.Net)
		assert.Equal(t, int64(150), ev.Fee)

		balance, err := tl.svc.GetLenderBalance(ctx, "lender-1")
		assert.NoError(t, err)
		assert.Equal(t, int64(90000), balance)

		assert.Equal(t, int64(9850), tl.payouts.TotalPaid("lender-1"))
		assert.Equal(t, int64(150), tl.payouts.TotalPaid("platform-fees"))
	})

	t.Run("TinyAmountZeroCommission", func(t *testing.T) {
		ev, err := tl.svc.Withdraw(ctx, "lender-1", 66)
		assert.NoError(t, err)
		assert.Equal(t, int64(66), ev.Net)
		assert.Equal(t, int64(0), ev.Fee)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		before := len(tl.payouts.Payments())

		_, err := tl.svc.Withdraw(ctx, "lender-1", 1000000)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

		balance, _ := tl.svc.GetLenderBalance(ctx, "lender-1")
		assert.Equal(t, int64(89934), balance)
		assert.Len(t, tl.payouts.Payments(), before)
	})

	t.Run("RejectsNonPositiveAmount", func(t *testing.T) {
		_, err := tl.svc.Withdraw(ctx, "lender-1", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestLedgerService_SetBorrowerLimit(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	t.Run("AdminSetsLimit", func(t *testing.T) {
		ev, err := tl.svc.SetBorrowerLimit(ctx, "admin", "borrower-1", 30000)
		assert.NoError(t, err)
		assert.Equal(t, domain.EventLimitSet, ev.Type)
		assert.Equal(t, int64(30000), ev.Amount)

		limit, err := tl.svc.GetBorrowerLimit(ctx, "borrower-1")
		assert.NoError(t, err)
		assert.Equal(t, int64(30000), limit)
	})

	t.Run("LoweringToZeroAllowed", func(t *testing.T) {
		_, err := tl.svc.SetBorrowerLimit(ctx, "admin", "borrower-1", 0)
		assert.NoError(t, err)

		limit, _ := tl.svc.GetBorrowerLimit(ctx, "borrower-1")
		assert.Equal(t, int64(0), limit)
	})

	t.Run("NonAdminRejected", func(t *testing.T) {
		_, err := tl.svc.SetBorrowerLimit(ctx, "borrower-1", "borrower-1", 30000)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("NegativeLimitRejected", func(t *testing.T) {
		_, err := tl.svc.SetBorrowerLimit(ctx, "admin", "borrower-1", -1)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})
}

func TestLedgerService_OriginateLoan(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	_, err := tl.svc.Deposit(ctx, "lender-1", 100000)
	assert.NoError(t, err)
	_, err = tl.svc.SetBorrowerLimit(ctx, "admin", "borrower-1", 30000)
	assert.NoError(t, err)

	t.Run("MatchesAndReservesCoverage", func(t *testing.T) {
		loan, ev, err := tl.svc.OriginateLoan(ctx, "borrower-1", 30000)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), loan.ID)
		assert.Equal(t, "lender-1", loan.Lender)
		assert.Equal(t, "borrower-1", loan.Borrower)
		assert.Equal(t, int64(30000), loan.Principal)
		assert.Equal(t, int64(38001), loan.AmountDue)
		assert.Equal(t, int64(33000), loan.Coverage)
		assert.True(t, loan.Active)

		assert.Equal(t, domain.EventLoanOriginated, ev.Type)
		assert.Equal(t, "borrower-1", ev.Account)
		assert.Equal(t, "lender-1", ev.Counterparty)
		assert.Equal(t, int64(30000), ev.Amount)
		assert.Equal(t, int64(38001), ev.Net)

		balance, _ := tl.svc.GetLenderBalance(ctx, "lender-1")
		assert.Equal(t, int64(67000), balance)

		borrowerCredit, _ := tl.credit.BalanceOf(ctx, "borrower-1")
		assert.Equal(t, int64(30000), borrowerCredit)

		owner, ok := tl.certs.Owner(loan.ID)
		assert.True(t, ok)
		assert.Equal(t, "lender-1", owner)
	})

	t.Run("LoanIDsStrictlyIncrease", func(t *testing.T) {
		loan, _, err := tl.svc.OriginateLoan(ctx, "borrower-1", 30000)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), loan.ID)

		next, err := tl.svc.NextLoanID(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), next)
	})

	t.Run("NoLenderCoverage", func(t *testing.T) {
		// lender-1 holds 34000 after two matches; drain below the
		// 33000 coverage a 30000 principal requires.
		_, err := tl.svc.Withdraw(ctx, "lender-1", 20000)
		assert.NoError(t, err)

		balanceBefore, _ := tl.svc.GetLenderBalance(ctx, "lender-1")
		creditBefore, _ := tl.credit.BalanceOf(ctx, "borrower-1")

		_, _, err = tl.svc.OriginateLoan(ctx, "borrower-1", 30000)
		assert.ErrorIs(t, err, domain.ErrNoLenderAvailable)

		balanceAfter, _ := tl.svc.GetLenderBalance(ctx, "lender-1")
		creditAfter, _ := tl.credit.BalanceOf(ctx, "borrower-1")
		assert.Equal(t, balanceBefore, balanceAfter)
		assert.Equal(t, creditBefore, creditAfter)
	})

	t.Run("LimitExceeded", func(t *testing.T) {
		_, _, err := tl.svc.OriginateLoan(ctx, "borrower-2", 30000)
		assert.ErrorIs(t, err, domain.ErrLimitExceeded)
	})

	t.Run("BelowMinimumPrincipal", func(t *testing.T) {
		// Below 20623 the amount due cannot cover principal plus the
		// fixed spread of 5500.
		_, _, err := tl.svc.OriginateLoan(ctx, "borrower-1", 20622)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("RejectsEmptyBorrower", func(t *testing.T) {
		_, _, err := tl.svc.OriginateLoan(ctx, "", 30000)
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	})
}

func TestLedgerService_RepayLoan(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	_, err := tl.svc.Deposit(ctx, "lender-1", 100000)
	assert.NoError(t, err)
	_, err = tl.svc.SetBorrowerLimit(ctx, "admin", "borrower-1", 30000)
	assert.NoError(t, err)
	loan, _, err := tl.svc.OriginateLoan(ctx, "borrower-1", 30000)
	assert.NoError(t, err)

	t.Run("WrongPayer", func(t *testing.T) {
		_, err := tl.svc.RepayLoan(ctx, "borrower-2", loan.ID, loan.AmountDue)
		assert.ErrorIs(t, err, domain.ErrNotYourLoan)
	})

	t.Run("WrongAmountLeavesLoanActive", func(t *testing.T) {
		_, err := tl.svc.RepayLoan(ctx, "borrower-1", loan.ID, loan.AmountDue-1)
		assert.ErrorIs(t, err, domain.ErrWrongAmount)

		_, err = tl.svc.RepayLoan(ctx, "borrower-1", loan.ID, loan.AmountDue+1)
		assert.ErrorIs(t, err, domain.ErrWrongAmount)

		got, err := tl.svc.GetLoan(ctx, loan.ID)
		assert.NoError(t, err)
		assert.True(t, got.Active)
	})

	t.Run("ExactAmountSettles", func(t *testing.T) {
		ev, err := tl.svc.RepayLoan(ctx, "borrower-1", loan.ID, 38001)
		assert.NoError(t, err)
		assert.Equal(t, domain.EventLoanRepaid, ev.Type)
		assert.Equal(t, int64(38001), ev.Amount)
		assert.Equal(t, int64(35500), ev.Net)
		assert.Equal(t, int64(2501), ev.Fee)

		got, err := tl.svc.GetLoan(ctx, loan.ID)
		assert.NoError(t, err)
		assert.False(t, got.Active)
		assert.NotNil(t, got.ClosedOn)

		exists, err := tl.certs.Exists(ctx, loan.ID)
		assert.NoError(t, err)
		assert.False(t, exists)

		assert.Equal(t, int64(35500), tl.payouts.TotalPaid("lender-1"))
		assert.Equal(t, int64(2501), tl.payouts.TotalPaid("platform-fees"))
	})

	t.Run("RepayingClosedLoan", func(t *testing.T) {
		_, err := tl.svc.RepayLoan(ctx, "borrower-1", loan.ID, 38001)
		assert.ErrorIs(t, err, domain.ErrLoanNotActive)
	})

	t.Run("UnknownLoan", func(t *testing.T) {
		_, err := tl.svc.RepayLoan(ctx, "borrower-1", 999, 38001)
		assert.ErrorIs(t, err, domain.ErrLoanNotActive)
	})
}

func TestLedgerService_RedeemBorrowerCredit(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	_, err := tl.svc.Deposit(ctx, "lender-1", 100000)
	assert.NoError(t, err)
	_, err = tl.svc.SetBorrowerLimit(ctx, "admin", "borrower-1", 30000)
	assert.NoError(t, err)
	_, _, err = tl.svc.OriginateLoan(ctx, "borrower-1", 30000)
	assert.NoError(t, err)

	t.Run("SplitsCommission", func(t *testing.T) {
		ev, err := tl.svc.RedeemBorrowerCredit(ctx, "borrower-1", 10000)
		assert.NoError(t, err)
		assert.Equal(t, domain.EventCreditRedeemed, ev.Type)
		assert.Equal(t, int64(9850), ev.Net)
		assert.Equal(t, int64(150), ev.Fee)

		credit, _ := tl.credit.BalanceOf(ctx, "borrower-1")
		assert.Equal(t, int64(20000), credit)
		assert.Equal(t, int64(9850), tl.payouts.TotalPaid("borrower-1"))
	})

	t.Run("InsufficientCredit", func(t *testing.T) {
		_, err := tl.svc.RedeemBorrowerCredit(ctx, "borrower-1", 20001)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})
}

func TestLedgerService_OriginateLoan_CertificateFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	credit := regmemory.NewCreditRegistry()
	certs := new(MockCertificateRegistry)
	payouts := regmemory.NewPayoutSink()
	svc := service.NewLedgerService(repomemory.NewStore(), credit, certs, payouts, testPolicy())

	_, err := svc.Deposit(ctx, "lender-1", 100000)
	assert.NoError(t, err)
	_, err = svc.SetBorrowerLimit(ctx, "admin", "borrower-1", 30000)
	assert.NoError(t, err)

	certs.On("Issue", ctx, "lender-1", int64(1), "ledger://loans/1").
		Return(errors.New("registry unreachable"))

	_, _, err = svc.OriginateLoan(ctx, "borrower-1", 30000)
	assert.Error(t, err)
	assert.True(t, domain.IsCollaboratorError(err))

	// Store state rolled back.
	balance, _ := svc.GetLenderBalance(ctx, "lender-1")
	assert.Equal(t, int64(100000), balance)
	loans, _ := svc.ListLoans(ctx, false)
	assert.Empty(t, loans)
	next, _ := svc.NextLoanID(ctx)
	assert.Equal(t, int64(1), next)

	// Credit transfer compensated.
	borrowerCredit, _ := credit.BalanceOf(ctx, "borrower-1")
	assert.Equal(t, int64(0), borrowerCredit)
	lenderCredit, _ := credit.BalanceOf(ctx, "lender-1")
	assert.Equal(t, int64(100000), lenderCredit)

	certs.AssertExpectations(t)
}

func TestLedgerService_ConservationReport(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	_, err := tl.svc.Deposit(ctx, "lender-1", 100000)
	assert.NoError(t, err)
	_, err = tl.svc.SetBorrowerLimit(ctx, "admin", "borrower-1", 30000)
	assert.NoError(t, err)
	_, _, err = tl.svc.OriginateLoan(ctx, "borrower-1", 30000)
	assert.NoError(t, err)

	report, err := tl.svc.ConservationReport(ctx)
	assert.NoError(t, err)
	assert.True(t, report.TotalsKnown)
	assert.Equal(t, int64(67000), report.LenderBalanceTotal)
	assert.Equal(t, int64(33000), report.ReservedCoverage)
	assert.Equal(t, int64(100000), report.CreditIssued)
	assert.Equal(t, int64(0), report.CreditRedeemed)
	assert.False(t, report.Violated)
}

func TestLedgerService_ListEvents(t *testing.T) {
	tl := newTestLedger()
	ctx := context.Background()

	_, err := tl.svc.Deposit(ctx, "lender-1", 100000)
	assert.NoError(t, err)
	_, err = tl.svc.Withdraw(ctx, "lender-1", 10000)
	assert.NoError(t, err)

	events, err := tl.svc.ListEvents(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, domain.EventWithdrawn, events[0].Type)
	assert.Equal(t, domain.EventDeposited, events[1].Type)
}
