package loan

import (
	"context"
	"testing"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoanRepo is an in-memory LoanRepository. Reads return copies so
// mutations only persist through Update, like the real repository.
type fakeLoanRepo struct {
	chamas      map[uuid.UUID]*models.Chama
	memberships map[uuid.UUID]*models.ChamaMembership
	loans       map[uuid.UUID]*models.Loan
	repayments  map[uuid.UUID]*models.LoanRepayment
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{
		chamas:      make(map[uuid.UUID]*models.Chama),
		memberships: make(map[uuid.UUID]*models.ChamaMembership),
		loans:       make(map[uuid.UUID]*models.Loan),
		repayments:  make(map[uuid.UUID]*models.LoanRepayment),
	}
}

func (f *fakeLoanRepo) Create(l *models.Loan) error {
	for _, ex := range f.loans {
		if ex.LoanNumber == l.LoanNumber {
			return repositories.ErrDuplicateLoan
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	f.loans[l.ID] = &cp
	return nil
}

func (f *fakeLoanRepo) GetByID(id uuid.UUID) (*models.Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, repositories.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLoanRepo) GetByNumber(number string) (*models.Loan, error) {
	for _, l := range f.loans {
		if l.LoanNumber == number {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repositories.ErrLoanNotFound
}

func (f *fakeLoanRepo) Update(l *models.Loan) error {
	cp := *l
	f.loans[l.ID] = &cp
	return nil
}

func (f *fakeLoanRepo) ListByMembership(membershipID uuid.UUID) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range f.loans {
		if l.MembershipID == membershipID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLoanRepo) ListByChama(chamaID uuid.UUID, status string, limit, offset int) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range f.loans {
		if l.ChamaID == chamaID && (status == "" || l.Status == status) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLoanRepo) CreateRepayment(r *models.LoanRepayment) error {
	for _, ex := range f.repayments {
		if ex.TransactionReference == r.TransactionReference {
			return repositories.ErrDuplicateReference
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	f.repayments[r.ID] = &cp
	return nil
}

func (f *fakeLoanRepo) GetRepaymentByReference(ref string) (*models.LoanRepayment, error) {
	for _, r := range f.repayments {
		if r.TransactionReference == ref {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repositories.ErrRepaymentNotFound
}

func (f *fakeLoanRepo) ListRepayments(loanID uuid.UUID) ([]*models.LoanRepayment, error) {
	var out []*models.LoanRepayment
	for _, r := range f.repayments {
		if r.LoanID == loanID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLoanRepo) SumCompletedRepayments(loanID uuid.UUID) (models.Money, error) {
	var total models.Money
	for _, r := range f.repayments {
		if r.LoanID == loanID && r.Status == models.RepaymentStatusCompleted {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

func (f *fakeLoanRepo) GetChama(id uuid.UUID) (*models.Chama, error) {
	c, ok := f.chamas[id]
	if !ok {
		return nil, repositories.ErrChamaNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeLoanRepo) GetMembership(id uuid.UUID) (*models.ChamaMembership, error) {
	m, ok := f.memberships[id]
	if !ok {
		return nil, repositories.ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeLoanRepo) LockLoan(id uuid.UUID) (*models.Loan, error) {
	return f.GetByID(id)
}

func (f *fakeLoanRepo) ExecuteInTransaction(fn func(repositories.LoanRepository) error) error {
	return fn(f)
}

type fakeLoanNotifier struct {
	statuses     []string
	overpayments []models.Money
}

func (n *fakeLoanNotifier) NotifyLoanStatus(_ context.Context, _, _ uuid.UUID, _ string, status string) {
	n.statuses = append(n.statuses, status)
}

func (n *fakeLoanNotifier) NotifyOverpayment(_ context.Context, _, _ uuid.UUID, _ string, excess models.Money) {
	n.overpayments = append(n.overpayments, excess)
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type fixture struct {
	repo       *fakeLoanRepo
	chama      *models.Chama
	applicant  *models.ChamaMembership
	guarantors []*models.ChamaMembership
}

func newFixture(guarantors int) *fixture {
	repo := newFakeLoanRepo()
	chama := &models.Chama{
		ID:                    uuid.New(),
		Name:                  "Test Chama",
		ContributionAmount:    models.MoneyFromShillings(1000),
		ContributionFrequency: models.FrequencyMonthly,
		LoanInterestRate:      models.Percent(10),
		MinGuarantors:         2,
		Status:                models.ChamaStatusActive,
	}
	repo.chamas[chama.ID] = chama

	applicant := &models.ChamaMembership{
		ID:                 uuid.New(),
		ChamaID:            chama.ID,
		UserID:             uuid.New(),
		PositionInRotation: 1,
		Status:             models.MembershipStatusActive,
	}
	repo.memberships[applicant.ID] = applicant

	fx := &fixture{repo: repo, chama: chama, applicant: applicant}
	for i := 0; i < guarantors; i++ {
		g := &models.ChamaMembership{
			ID:                 uuid.New(),
			ChamaID:            chama.ID,
			UserID:             uuid.New(),
			PositionInRotation: i + 2,
			Status:             models.MembershipStatusActive,
		}
		repo.memberships[g.ID] = g
		fx.guarantors = append(fx.guarantors, g)
	}
	return fx
}

func (fx *fixture) guarantorIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, g := range fx.guarantors {
		ids = append(ids, g.ID)
	}
	return ids
}

func applyRequest(fx *fixture, principal models.Money) ApplyRequest {
	return ApplyRequest{
		MembershipID:          fx.applicant.ID,
		Principal:             principal,
		RepaymentPeriodMonths: 6,
		Purpose:               "School fees",
		GuarantorIDs:          fx.guarantorIDs(),
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("interest computed once from chama rate", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		l, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(10000)))
		require.NoError(t, err)

		assert.Equal(t, models.MoneyFromShillings(10000), l.PrincipalAmount)
		assert.Equal(t, models.Percent(10), l.InterestRate)
		assert.Equal(t, models.MoneyFromShillings(1000), l.InterestAmount)
		assert.Equal(t, models.MoneyFromShillings(11000), l.TotalAmount)
		assert.Equal(t, models.Money(0), l.AmountPaid)
		assert.Equal(t, l.TotalAmount, l.Balance)
		assert.Equal(t, models.LoanStatusPending, l.Status)
		assert.NotEmpty(t, l.LoanNumber)
		require.NotNil(t, l.Guarantor1ID)
		require.NotNil(t, l.Guarantor2ID)
		assert.Equal(t, fx.guarantors[0].ID, *l.Guarantor1ID)
		assert.Equal(t, fx.guarantors[1].ID, *l.Guarantor2ID)
	})

	t.Run("later rate change does not touch existing loans", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		l, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(10000)))
		require.NoError(t, err)

		fx.repo.chamas[fx.chama.ID].LoanInterestRate = models.Percent(25)

		stored, err := svc.Get(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, models.Percent(10), stored.InterestRate)
		assert.Equal(t, models.MoneyFromShillings(11000), stored.TotalAmount)
	})

	t.Run("inactive applicant", func(t *testing.T) {
		fx := newFixture(2)
		fx.repo.memberships[fx.applicant.ID].Status = models.MembershipStatusSuspended
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		_, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(10000)))
		assert.ErrorIs(t, err, ErrIneligibleApplicant)
	})

	t.Run("too few guarantors", func(t *testing.T) {
		fx := newFixture(1)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		_, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(10000)))
		assert.ErrorIs(t, err, ErrInsufficientGuarantors)
	})

	t.Run("duplicate guarantor ids collapse", func(t *testing.T) {
		fx := newFixture(1)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		req := applyRequest(fx, models.MoneyFromShillings(10000))
		req.GuarantorIDs = []uuid.UUID{fx.guarantors[0].ID, fx.guarantors[0].ID}
		_, err := svc.Apply(ctx, req)
		assert.ErrorIs(t, err, ErrInsufficientGuarantors)
	})

	t.Run("self guarantee rejected", func(t *testing.T) {
		fx := newFixture(1)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		req := applyRequest(fx, models.MoneyFromShillings(10000))
		req.GuarantorIDs = []uuid.UUID{fx.applicant.ID, fx.guarantors[0].ID}
		_, err := svc.Apply(ctx, req)
		assert.ErrorIs(t, err, ErrInsufficientGuarantors)
	})

	t.Run("inactive guarantor rejected", func(t *testing.T) {
		fx := newFixture(2)
		fx.repo.memberships[fx.guarantors[1].ID].Status = models.MembershipStatusWithdrawn
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		_, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(10000)))
		assert.ErrorIs(t, err, ErrInsufficientGuarantors)
	})

	t.Run("input validation", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		req := applyRequest(fx, models.Money(0))
		_, err := svc.Apply(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		req = applyRequest(fx, models.MoneyFromShillings(10000))
		req.RepaymentPeriodMonths = 0
		_, err = svc.Apply(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidPeriod)

		req = applyRequest(fx, models.MoneyFromShillings(10000))
		req.Purpose = "   "
		_, err = svc.Apply(ctx, req)
		assert.ErrorIs(t, err, ErrMissingPurpose)

		req = applyRequest(fx, models.MoneyFromShillings(10000))
		req.GuarantorIDs = append(req.GuarantorIDs, uuid.New())
		_, err = svc.Apply(ctx, req)
		assert.ErrorIs(t, err, ErrInsufficientGuarantors)
	})
}

func disbursedLoan(t *testing.T, fx *fixture, svc Service, principal models.Money) *models.Loan {
	t.Helper()
	ctx := context.Background()

	l, err := svc.Apply(ctx, applyRequest(fx, principal))
	require.NoError(t, err)
	require.NoError(t, svc.Approve(ctx, l.ID, uuid.New()))
	require.NoError(t, svc.Disburse(ctx, l.ID, testNow, uuid.New()))

	stored, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	return stored
}

func TestApprovalStateMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("approve pending", func(t *testing.T) {
		fx := newFixture(2)
		notifier := &fakeLoanNotifier{}
		svc := NewService(fx.repo, nil, notifier, fixedClock(testNow))

		l, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(5000)))
		require.NoError(t, err)

		approver := uuid.New()
		require.NoError(t, svc.Approve(ctx, l.ID, approver))

		stored := fx.repo.loans[l.ID]
		assert.Equal(t, models.LoanStatusApproved, stored.Status)
		require.NotNil(t, stored.ApprovedByID)
		assert.Equal(t, approver, *stored.ApprovedByID)
		require.NotNil(t, stored.ApprovalDate)
		assert.Equal(t, []string{models.LoanStatusApproved}, notifier.statuses)
	})

	t.Run("reject requires reason", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		l, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(5000)))
		require.NoError(t, err)

		err = svc.Reject(ctx, l.ID, "  ", uuid.New())
		assert.ErrorIs(t, err, ErrMissingReason)

		require.NoError(t, svc.Reject(ctx, l.ID, "insufficient contribution history", uuid.New()))
		stored := fx.repo.loans[l.ID]
		assert.Equal(t, models.LoanStatusRejected, stored.Status)
		assert.Equal(t, "insufficient contribution history", stored.RejectionReason)
	})

	t.Run("approve non-pending rejected", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		l, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(5000)))
		require.NoError(t, err)
		require.NoError(t, svc.Reject(ctx, l.ID, "declined", uuid.New()))

		err = svc.Approve(ctx, l.ID, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("disburse fixes the repayment window", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(5000))
		assert.Equal(t, models.LoanStatusDisbursed, l.Status)
		require.NotNil(t, l.DisbursementDate)
		require.NotNil(t, l.ExpectedCompletionDate)
		assert.Equal(t, testNow.AddDate(0, 6, 0), *l.ExpectedCompletionDate)
	})

	t.Run("disburse requires approval", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		l, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(5000)))
		require.NoError(t, err)

		err = svc.Disburse(ctx, l.ID, testNow, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func repayment(ref string, amount models.Money) RepaymentRequest {
	return RepaymentRequest{
		Amount:               amount,
		PaymentMethod:        models.RepaymentMethodMpesa,
		TransactionReference: ref,
		PaymentDate:          testNow,
		RecordedBy:           uuid.New(),
	}
}

func TestApplyRepayment(t *testing.T) {
	ctx := context.Background()

	t.Run("partial repayment activates and reduces balance", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))

		res, err := svc.ApplyRepayment(ctx, l.ID, repayment("RP-001", models.MoneyFromShillings(4000)))
		require.NoError(t, err)
		assert.Equal(t, models.MoneyFromShillings(7000), res.Balance)
		assert.False(t, res.Overpayment)
		assert.False(t, res.Completed)

		stored := fx.repo.loans[l.ID]
		assert.Equal(t, models.LoanStatusActive, stored.Status)
		assert.Equal(t, models.MoneyFromShillings(4000), stored.AmountPaid)
		assert.Equal(t, models.MoneyFromShillings(7000), stored.Balance)
	})

	t.Run("exact payoff completes the loan", func(t *testing.T) {
		fx := newFixture(2)
		notifier := &fakeLoanNotifier{}
		svc := NewService(fx.repo, nil, notifier, fixedClock(testNow))
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))

		res, err := svc.ApplyRepayment(ctx, l.ID, repayment("RP-002", models.MoneyFromShillings(11000)))
		require.NoError(t, err)
		assert.Equal(t, models.Money(0), res.Balance)
		assert.True(t, res.Completed)
		assert.False(t, res.Overpayment)

		stored := fx.repo.loans[l.ID]
		assert.Equal(t, models.LoanStatusCompleted, stored.Status)
		require.NotNil(t, stored.ActualCompletionDate)
		assert.Contains(t, notifier.statuses, models.LoanStatusCompleted)
	})

	t.Run("overpayment clamps at zero and reports excess", func(t *testing.T) {
		fx := newFixture(2)
		notifier := &fakeLoanNotifier{}
		svc := NewService(fx.repo, nil, notifier, fixedClock(testNow))
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))

		res, err := svc.ApplyRepayment(ctx, l.ID, repayment("RP-003", models.MoneyFromShillings(12000)))
		require.NoError(t, err)
		assert.Equal(t, models.Money(0), res.Balance)
		assert.True(t, res.Overpayment)
		assert.Equal(t, models.MoneyFromShillings(1000), res.Excess)
		assert.True(t, res.Completed)

		stored := fx.repo.loans[l.ID]
		assert.Equal(t, models.Money(0), stored.Balance)
		assert.Equal(t, models.MoneyFromShillings(12000), stored.AmountPaid)

		require.Len(t, notifier.overpayments, 1)
		assert.Equal(t, models.MoneyFromShillings(1000), notifier.overpayments[0])
	})

	t.Run("duplicate reference rejected without skewing the balance", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))

		_, err := svc.ApplyRepayment(ctx, l.ID, repayment("RP-DUP", models.MoneyFromShillings(4000)))
		require.NoError(t, err)
		_, err = svc.ApplyRepayment(ctx, l.ID, repayment("RP-DUP", models.MoneyFromShillings(4000)))
		assert.ErrorIs(t, err, ErrDuplicateReference)

		stored := fx.repo.loans[l.ID]
		assert.Equal(t, models.MoneyFromShillings(4000), stored.AmountPaid)
		assert.Equal(t, models.MoneyFromShillings(7000), stored.Balance)
	})

	t.Run("repayment against non-repayable loan", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))

		l, err := svc.Apply(ctx, applyRequest(fx, models.MoneyFromShillings(10000)))
		require.NoError(t, err)

		_, err = svc.ApplyRepayment(ctx, l.ID, repayment("RP-004", models.MoneyFromShillings(1000)))
		assert.ErrorIs(t, err, ErrLoanNotRepayable)
	})

	t.Run("input validation", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))

		_, err := svc.ApplyRepayment(ctx, l.ID, repayment("RP-005", models.Money(0)))
		assert.ErrorIs(t, err, ErrInvalidAmount)

		req := repayment("RP-005", models.MoneyFromShillings(1000))
		req.PaymentMethod = "GOLD"
		_, err = svc.ApplyRepayment(ctx, l.ID, req)
		assert.ErrorIs(t, err, ErrInvalidMethod)

		_, err = svc.ApplyRepayment(ctx, l.ID, repayment("", models.MoneyFromShillings(1000)))
		assert.ErrorIs(t, err, ErrMissingReference)
	})
}

func TestMarkDefaulted(t *testing.T) {
	ctx := context.Background()

	activate := func(t *testing.T, fx *fixture, svc Service) *models.Loan {
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))
		_, err := svc.ApplyRepayment(ctx, l.ID, repayment("RP-ACT-"+l.ID.String(), models.MoneyFromShillings(1000)))
		require.NoError(t, err)
		return l
	}

	t.Run("lapsed window with balance defaults", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))
		l := activate(t, fx, svc)

		// Move the clock past the expected completion date.
		late := NewService(fx.repo, nil, nil, fixedClock(testNow.AddDate(0, 7, 0)))
		require.NoError(t, late.MarkDefaulted(ctx, l.ID, uuid.New()))
		assert.Equal(t, models.LoanStatusDefaulted, fx.repo.loans[l.ID].Status)
	})

	t.Run("window still open", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))
		l := activate(t, fx, svc)

		err := svc.MarkDefaulted(ctx, l.ID, uuid.New())
		assert.ErrorIs(t, err, ErrNotEligibleForDefault)
	})

	t.Run("non-active loan", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))

		err := svc.MarkDefaulted(ctx, l.ID, uuid.New())
		assert.ErrorIs(t, err, ErrNotEligibleForDefault)
	})

	t.Run("settled loan never defaults", func(t *testing.T) {
		fx := newFixture(2)
		svc := NewService(fx.repo, nil, nil, fixedClock(testNow))
		l := disbursedLoan(t, fx, svc, models.MoneyFromShillings(10000))
		_, err := svc.ApplyRepayment(ctx, l.ID, repayment("RP-FULL", models.MoneyFromShillings(11000)))
		require.NoError(t, err)

		late := NewService(fx.repo, nil, nil, fixedClock(testNow.AddDate(0, 7, 0)))
		err = late.MarkDefaulted(ctx, l.ID, uuid.New())
		assert.ErrorIs(t, err, ErrNotEligibleForDefault)
	})
}
