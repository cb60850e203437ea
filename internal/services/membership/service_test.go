package membership

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

type fakeMembershipRepo struct {
	chamas      map[uuid.UUID]*models.Chama
	memberships map[uuid.UUID]*models.ChamaMembership
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{
		chamas:      make(map[uuid.UUID]*models.Chama),
		memberships: make(map[uuid.UUID]*models.ChamaMembership),
	}
}

func (f *fakeMembershipRepo) Create(m *models.ChamaMembership) error {
	for _, ex := range f.memberships {
		if ex.ChamaID == m.ChamaID && ex.UserID == m.UserID {
			return repositories.ErrDuplicateMembership
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	f.memberships[m.ID] = &cp
	return nil
}

func (f *fakeMembershipRepo) GetByID(id uuid.UUID) (*models.ChamaMembership, error) {
	m, ok := f.memberships[id]
	if !ok {
		return nil, repositories.ErrMembershipNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembershipRepo) GetByChamaAndUser(chamaID, userID uuid.UUID) (*models.ChamaMembership, error) {
	for _, m := range f.memberships {
		if m.ChamaID == chamaID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrMembershipNotFound
}

func (f *fakeMembershipRepo) Update(m *models.ChamaMembership) error {
	cp := *m
	f.memberships[m.ID] = &cp
	return nil
}

func (f *fakeMembershipRepo) CountByStatus(chamaID uuid.UUID, status string) (int64, error) {
	var n int64
	for _, m := range f.memberships {
		if m.ChamaID == chamaID && m.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeMembershipRepo) MaxPosition(chamaID uuid.UUID) (int, error) {
	max := 0
	for _, m := range f.memberships {
		if m.ChamaID == chamaID && m.PositionInRotation > max {
			max = m.PositionInRotation
		}
	}
	return max, nil
}

func (f *fakeMembershipRepo) ListActiveByRotation(chamaID uuid.UUID) ([]*models.ChamaMembership, error) {
	var out []*models.ChamaMembership
	for _, m := range f.memberships {
		if m.ChamaID == chamaID && m.Status == models.MembershipStatusActive {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) ListByUser(userID uuid.UUID) ([]*models.ChamaMembership, error) {
	var out []*models.ChamaMembership
	for _, m := range f.memberships {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) ClearPayoutFlags(chamaID uuid.UUID) error {
	for _, m := range f.memberships {
		if m.ChamaID == chamaID {
			m.HasReceivedPayout = false
			m.PayoutReceivedDate = nil
		}
	}
	return nil
}

func (f *fakeMembershipRepo) LockChama(chamaID uuid.UUID) (*models.Chama, error) {
	c, ok := f.chamas[chamaID]
	if !ok {
		return nil, repositories.ErrChamaNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeMembershipRepo) ExecuteInTransaction(fn func(repositories.MembershipRepository) error) error {
	return fn(f)
}

func seedChama(repo *fakeMembershipRepo, maxMembers int) *models.Chama {
	chama := &models.Chama{
		ID:                    uuid.New(),
		Name:                  "Test Chama",
		ContributionAmount:    models.MoneyFromShillings(1000),
		ContributionFrequency: models.FrequencyMonthly,
		MaxMembers:            maxMembers,
		Status:                models.ChamaStatusActive,
	}
	repo.chamas[chama.ID] = chama
	return chama
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()

	t.Run("positions assigned sequentially", func(t *testing.T) {
		repo := newFakeMembershipRepo()
		chama := seedChama(repo, 10)
		svc := NewService(repo, nil)

		for i := 1; i <= 3; i++ {
			m, err := svc.Enroll(ctx, chama.ID, uuid.New())
			require.NoError(t, err)
			assert.Equal(t, i, m.PositionInRotation)
			assert.Equal(t, models.MembershipStatusPending, m.Status)
			assert.NotEmpty(t, m.MembershipNumber)
		}
	})

	t.Run("positions never reused after withdrawal", func(t *testing.T) {
		repo := newFakeMembershipRepo()
		chama := seedChama(repo, 10)
		svc := NewService(repo, nil)

		first, err := svc.Enroll(ctx, chama.ID, uuid.New())
		require.NoError(t, err)
		require.NoError(t, svc.Activate(ctx, first.ID, uuid.New()))
		require.NoError(t, svc.Withdraw(ctx, first.ID, time.Now().UTC(), uuid.New()))

		second, err := svc.Enroll(ctx, chama.ID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 2, second.PositionInRotation)
	})

	t.Run("duplicate user rejected", func(t *testing.T) {
		repo := newFakeMembershipRepo()
		chama := seedChama(repo, 10)
		svc := NewService(repo, nil)

		userID := uuid.New()
		_, err := svc.Enroll(ctx, chama.ID, userID)
		require.NoError(t, err)
		_, err = svc.Enroll(ctx, chama.ID, userID)
		assert.ErrorIs(t, err, ErrDuplicateMembership)
	})

	t.Run("capacity counts active members only", func(t *testing.T) {
		repo := newFakeMembershipRepo()
		chama := seedChama(repo, 2)
		svc := NewService(repo, nil)

		for i := 0; i < 2; i++ {
			m, err := svc.Enroll(ctx, chama.ID, uuid.New())
			require.NoError(t, err)
			require.NoError(t, svc.Activate(ctx, m.ID, uuid.New()))
		}

		_, err := svc.Enroll(ctx, chama.ID, uuid.New())
		assert.ErrorIs(t, err, ErrCapacityExceeded)
	})

	t.Run("inactive chama rejects enrollment", func(t *testing.T) {
		repo := newFakeMembershipRepo()
		chama := seedChama(repo, 10)
		repo.chamas[chama.ID].Status = models.ChamaStatusClosed
		svc := NewService(repo, nil)

		_, err := svc.Enroll(ctx, chama.ID, uuid.New())
		assert.ErrorIs(t, err, ErrChamaNotAccepting)
	})
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()

	enroll := func(t *testing.T) (*fakeMembershipRepo, Service, *models.ChamaMembership) {
		repo := newFakeMembershipRepo()
		chama := seedChama(repo, 10)
		svc := NewService(repo, nil)
		m, err := svc.Enroll(ctx, chama.ID, uuid.New())
		require.NoError(t, err)
		return repo, svc, m
	}

	t.Run("pending to active", func(t *testing.T) {
		repo, svc, m := enroll(t)
		require.NoError(t, svc.Activate(ctx, m.ID, uuid.New()))
		assert.Equal(t, models.MembershipStatusActive, repo.memberships[m.ID].Status)
	})

	t.Run("activate twice fails", func(t *testing.T) {
		_, svc, m := enroll(t)
		require.NoError(t, svc.Activate(ctx, m.ID, uuid.New()))
		err := svc.Activate(ctx, m.ID, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("suspend requires active", func(t *testing.T) {
		repo, svc, m := enroll(t)
		err := svc.Suspend(ctx, m.ID, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidTransition)

		require.NoError(t, svc.Activate(ctx, m.ID, uuid.New()))
		require.NoError(t, svc.Suspend(ctx, m.ID, uuid.New()))
		assert.Equal(t, models.MembershipStatusSuspended, repo.memberships[m.ID].Status)
	})

	t.Run("withdraw from active or suspended", func(t *testing.T) {
		repo, svc, m := enroll(t)
		exit := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

		err := svc.Withdraw(ctx, m.ID, exit, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidTransition)

		require.NoError(t, svc.Activate(ctx, m.ID, uuid.New()))
		require.NoError(t, svc.Withdraw(ctx, m.ID, exit, uuid.New()))

		stored := repo.memberships[m.ID]
		assert.Equal(t, models.MembershipStatusWithdrawn, stored.Status)
		require.NotNil(t, stored.ExitDate)
		assert.Equal(t, exit, *stored.ExitDate)
	})

	t.Run("withdrawn is terminal", func(t *testing.T) {
		_, svc, m := enroll(t)
		require.NoError(t, svc.Activate(ctx, m.ID, uuid.New()))
		require.NoError(t, svc.Withdraw(ctx, m.ID, time.Now().UTC(), uuid.New()))

		assert.ErrorIs(t, svc.Activate(ctx, m.ID, uuid.New()), ErrInvalidTransition)
		assert.ErrorIs(t, svc.Suspend(ctx, m.ID, uuid.New()), ErrInvalidTransition)
		assert.ErrorIs(t, svc.Withdraw(ctx, m.ID, time.Now().UTC(), uuid.New()), ErrInvalidTransition)
	})
}

func TestRecordContribution(t *testing.T) {
	ctx := context.Background()
	repo := newFakeMembershipRepo()
	chama := seedChama(repo, 10)
	svc := NewService(repo, nil)

	m, err := svc.Enroll(ctx, chama.ID, uuid.New())
	require.NoError(t, err)

	require.NoError(t, svc.RecordContribution(ctx, m.ID, models.MoneyFromShillings(500)))
	require.NoError(t, svc.RecordContribution(ctx, m.ID, models.MoneyFromShillings(250)))
	assert.Equal(t, models.MoneyFromShillings(750), repo.memberships[m.ID].TotalContributed)

	err = svc.RecordContribution(ctx, m.ID, models.Money(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
