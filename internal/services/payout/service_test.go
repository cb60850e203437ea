package payout

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

type fakePayoutRepo struct {
	cycles  map[uuid.UUID]*models.ContributionCycle
	payouts map[uuid.UUID]*models.Payout
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{
		cycles:  make(map[uuid.UUID]*models.ContributionCycle),
		payouts: make(map[uuid.UUID]*models.Payout),
	}
}

func (f *fakePayoutRepo) Create(p *models.Payout) error {
	for _, ex := range f.payouts {
		if ex.CycleID == p.CycleID {
			return repositories.ErrDuplicatePayout
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.payouts[p.ID] = &cp
	return nil
}

func (f *fakePayoutRepo) GetByID(id uuid.UUID) (*models.Payout, error) {
	p, ok := f.payouts[id]
	if !ok {
		return nil, repositories.ErrPayoutNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayoutRepo) GetByCycleID(cycleID uuid.UUID) (*models.Payout, error) {
	for _, p := range f.payouts {
		if p.CycleID == cycleID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPayoutNotFound
}

func (f *fakePayoutRepo) Update(p *models.Payout) error {
	cp := *p
	f.payouts[p.ID] = &cp
	return nil
}

func (f *fakePayoutRepo) ListByMembership(membershipID uuid.UUID) ([]*models.Payout, error) {
	var out []*models.Payout
	for _, p := range f.payouts {
		if p.MembershipID == membershipID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePayoutRepo) ListByStatus(status string, limit, offset int) ([]*models.Payout, error) {
	var out []*models.Payout
	for _, p := range f.payouts {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePayoutRepo) GetCycle(id uuid.UUID) (*models.ContributionCycle, error) {
	c, ok := f.cycles[id]
	if !ok {
		return nil, repositories.ErrCycleNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakePayoutRepo) ExecuteInTransaction(fn func(repositories.PayoutRepository) error) error {
	return fn(f)
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func seedCompletedCycle(repo *fakePayoutRepo) *models.ContributionCycle {
	payoutDate := testNow
	c := &models.ContributionCycle{
		ID:              uuid.New(),
		ChamaID:         uuid.New(),
		CycleNumber:     1,
		StartDate:       testNow.AddDate(0, -1, 0),
		EndDate:         testNow,
		ExpectedAmount:  models.MoneyFromShillings(5000),
		CollectedAmount: models.MoneyFromShillings(5000),
		BeneficiaryID:   uuid.New(),
		PayoutAmount:    models.MoneyFromShillings(4750),
		PayoutDate:      &payoutDate,
		Status:          models.CycleStatusCompleted,
	}
	repo.cycles[c.ID] = c
	return c
}

func TestCreateFromCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("derives payout from completed cycle", func(t *testing.T) {
		repo := newFakePayoutRepo()
		c := seedCompletedCycle(repo)
		svc := NewService(repo, nil, func() time.Time { return testNow })

		p, err := svc.CreateFromCycle(ctx, c.ID, models.PayoutMethodMpesa, testNow.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, c.BeneficiaryID, p.MembershipID)
		assert.Equal(t, models.MoneyFromShillings(4750), p.Amount)
		assert.Equal(t, models.PayoutStatusPending, p.Status)
		assert.NotEmpty(t, p.TransactionReference)
	})

	t.Run("one payout per cycle", func(t *testing.T) {
		repo := newFakePayoutRepo()
		c := seedCompletedCycle(repo)
		svc := NewService(repo, nil, func() time.Time { return testNow })

		_, err := svc.CreateFromCycle(ctx, c.ID, models.PayoutMethodMpesa, testNow)
		require.NoError(t, err)
		_, err = svc.CreateFromCycle(ctx, c.ID, models.PayoutMethodBank, testNow)
		assert.ErrorIs(t, err, ErrPayoutAlreadyExists)
	})

	t.Run("open cycle has no payout", func(t *testing.T) {
		repo := newFakePayoutRepo()
		c := seedCompletedCycle(repo)
		repo.cycles[c.ID].Status = models.CycleStatusActive
		svc := NewService(repo, nil, func() time.Time { return testNow })

		_, err := svc.CreateFromCycle(ctx, c.ID, models.PayoutMethodMpesa, testNow)
		assert.ErrorIs(t, err, ErrCycleNotCompleted)
	})

	t.Run("unknown method", func(t *testing.T) {
		repo := newFakePayoutRepo()
		c := seedCompletedCycle(repo)
		svc := NewService(repo, nil, func() time.Time { return testNow })

		_, err := svc.CreateFromCycle(ctx, c.ID, "BARTER", testNow)
		assert.ErrorIs(t, err, ErrInvalidMethod)
	})
}

func TestPayoutStateMachine(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T) (*fakePayoutRepo, Service, *models.Payout) {
		repo := newFakePayoutRepo()
		c := seedCompletedCycle(repo)
		svc := NewService(repo, nil, func() time.Time { return testNow })
		p, err := svc.CreateFromCycle(ctx, c.ID, models.PayoutMethodMpesa, testNow)
		require.NoError(t, err)
		return repo, svc, p
	}

	t.Run("full happy path", func(t *testing.T) {
		repo, svc, p := create(t)
		approver := uuid.New()
		processor := uuid.New()
		actual := testNow.AddDate(0, 0, 2)

		require.NoError(t, svc.Approve(ctx, p.ID, approver))
		require.NoError(t, svc.MarkProcessing(ctx, p.ID, processor))
		require.NoError(t, svc.MarkCompleted(ctx, p.ID, actual))

		stored := repo.payouts[p.ID]
		assert.Equal(t, models.PayoutStatusCompleted, stored.Status)
		require.NotNil(t, stored.ApprovedByID)
		assert.Equal(t, approver, *stored.ApprovedByID)
		require.NotNil(t, stored.ApprovalDate)
		require.NotNil(t, stored.ProcessedByID)
		assert.Equal(t, processor, *stored.ProcessedByID)
		require.NotNil(t, stored.ActualPaymentDate)
		assert.Equal(t, actual, *stored.ActualPaymentDate)
	})

	t.Run("complete directly from approved", func(t *testing.T) {
		repo, svc, p := create(t)
		require.NoError(t, svc.Approve(ctx, p.ID, uuid.New()))
		require.NoError(t, svc.MarkCompleted(ctx, p.ID, testNow))
		assert.Equal(t, models.PayoutStatusCompleted, repo.payouts[p.ID].Status)
	})

	t.Run("processing requires approval", func(t *testing.T) {
		_, svc, p := create(t)
		err := svc.MarkProcessing(ctx, p.ID, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		_, svc, p := create(t)
		err := svc.MarkCompleted(ctx, p.ID, testNow)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("fail from any non-terminal state", func(t *testing.T) {
		repo, svc, p := create(t)
		require.NoError(t, svc.Fail(ctx, p.ID, "gateway timeout"))
		stored := repo.payouts[p.ID]
		assert.Equal(t, models.PayoutStatusFailed, stored.Status)
		assert.Equal(t, "gateway timeout", stored.Notes)
	})

	t.Run("terminal states reject everything", func(t *testing.T) {
		repo, svc, p := create(t)
		require.NoError(t, svc.Approve(ctx, p.ID, uuid.New()))
		require.NoError(t, svc.MarkCompleted(ctx, p.ID, testNow))

		assert.ErrorIs(t, svc.Approve(ctx, p.ID, uuid.New()), ErrInvalidTransition)
		assert.ErrorIs(t, svc.MarkProcessing(ctx, p.ID, uuid.New()), ErrInvalidTransition)
		assert.ErrorIs(t, svc.Fail(ctx, p.ID, "late failure"), ErrInvalidTransition)
		assert.ErrorIs(t, svc.Cancel(ctx, p.ID, "late cancel"), ErrInvalidTransition)
		assert.Equal(t, models.PayoutStatusCompleted, repo.payouts[p.ID].Status)
	})

	t.Run("cancel before completion", func(t *testing.T) {
		repo, svc, p := create(t)
		require.NoError(t, svc.Approve(ctx, p.ID, uuid.New()))
		require.NoError(t, svc.Cancel(ctx, p.ID, "beneficiary withdrew"))
		stored := repo.payouts[p.ID]
		assert.Equal(t, models.PayoutStatusCancelled, stored.Status)
		assert.Equal(t, "beneficiary withdrew", stored.Notes)
	})
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	repo := newFakePayoutRepo()
	svc := NewService(repo, nil, func() time.Time { return testNow })

	for i := 0; i < 3; i++ {
		c := seedCompletedCycle(repo)
		_, err := svc.CreateFromCycle(ctx, c.ID, models.PayoutMethodMpesa, testNow)
		require.NoError(t, err)
	}

	pending, err := svc.ListPending(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}
