package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Chama{},
		&models.ChamaMembership{},
		&models.ContributionCycle{},
		&models.Contribution{},
		&models.Payout{},
		&models.Loan{},
		&models.Meeting{},
		&models.MeetingAttendance{},
	))
	return db
}

// chamaFixture seeds one chama with two active members, a completed
// cycle (paid out) and an active cycle with mixed contributions.
type chamaFixture struct {
	chama          *models.Chama
	members        []*models.ChamaMembership
	active         *models.ContributionCycle
	userIDs        []uuid.UUID
	refSeq         int
	completedCycle *models.ContributionCycle
}

func seedChama(t *testing.T, db *gorm.DB, name string) *chamaFixture {
	t.Helper()
	f := &chamaFixture{}

	f.chama = &models.Chama{
		Name:                  name,
		ContributionAmount:    models.Money(100000),
		ContributionFrequency: "MONTHLY",
		LoanInterestRate:      10,
		CompletionThreshold:   1.0,
		PayoutRatio:           0.95,
		Status:                models.ChamaStatusActive,
	}
	require.NoError(t, db.Create(f.chama).Error)

	for i := 0; i < 2; i++ {
		userID := uuid.New()
		m := &models.ChamaMembership{
			ChamaID:            f.chama.ID,
			UserID:             userID,
			PositionInRotation: i + 1,
			MembershipNumber:   fmt.Sprintf("%s-%03d", name, i+1),
			Status:             models.MembershipStatusActive,
			JoinedDate:         testNow,
		}
		require.NoError(t, db.Create(m).Error)
		f.members = append(f.members, m)
		f.userIDs = append(f.userIDs, userID)
	}

	f.completedCycle = &models.ContributionCycle{
		ChamaID:         f.chama.ID,
		CycleNumber:     1,
		StartDate:       testNow.AddDate(0, -1, 0),
		EndDate:         testNow.AddDate(0, 0, -1),
		ExpectedAmount:  models.Money(200000),
		CollectedAmount: models.Money(200000),
		BeneficiaryID:   f.members[0].ID,
		PayoutAmount:    models.Money(190000),
		Status:          models.CycleStatusCompleted,
	}
	require.NoError(t, db.Create(f.completedCycle).Error)

	for _, m := range f.members {
		f.seedContribution(t, db, f.completedCycle.ID, m.ID, 100000, models.ContributionStatusCompleted)
	}
	require.NoError(t, db.Create(&models.Payout{
		CycleID:              f.completedCycle.ID,
		MembershipID:         f.members[0].ID,
		Amount:               models.Money(190000),
		PaymentMethod:        models.PayoutMethodMpesa,
		TransactionReference: name + "-PAYOUT-1",
		ScheduledDate:        testNow,
		Status:               models.PayoutStatusCompleted,
	}).Error)

	f.active = &models.ContributionCycle{
		ChamaID:         f.chama.ID,
		CycleNumber:     2,
		StartDate:       testNow,
		EndDate:         testNow.AddDate(0, 1, 0),
		ExpectedAmount:  models.Money(200000),
		CollectedAmount: models.Money(100000),
		BeneficiaryID:   f.members[1].ID,
		Status:          models.CycleStatusActive,
	}
	require.NoError(t, db.Create(f.active).Error)

	f.seedContribution(t, db, f.active.ID, f.members[0].ID, 100000, models.ContributionStatusCompleted)
	f.seedContribution(t, db, f.active.ID, f.members[1].ID, 100000, models.ContributionStatusPending)
	require.NoError(t, db.Create(&models.Payout{
		CycleID:              f.active.ID,
		MembershipID:         f.members[1].ID,
		Amount:               models.Money(190000),
		PaymentMethod:        models.PayoutMethodMpesa,
		TransactionReference: name + "-PAYOUT-2",
		ScheduledDate:        testNow.AddDate(0, 1, 0),
		Status:               models.PayoutStatusPending,
	}).Error)

	return f
}

func (f *chamaFixture) seedContribution(t *testing.T, db *gorm.DB, cycleID, membershipID uuid.UUID, amount models.Money, status string) {
	t.Helper()
	f.refSeq++
	require.NoError(t, db.Create(&models.Contribution{
		CycleID:              cycleID,
		MembershipID:         membershipID,
		Amount:               amount,
		PaymentMethod:        models.PaymentMethodMpesa,
		TransactionReference: fmt.Sprintf("%s-CONTRIB-%d", f.chama.Name, f.refSeq),
		PaymentDate:          testNow,
		Status:               status,
	}).Error)
}

func newTestService(db *gorm.DB) Service {
	return NewService(
		repositories.NewChamaRepository(db),
		repositories.NewMembershipRepository(db),
		repositories.NewMeetingRepository(db),
		nil,
		db,
	)
}

func TestForAdmin(t *testing.T) {
	db := openTestDB(t)
	f := seedChama(t, db, "UMOJA")
	// A second chama proves every aggregate stays scoped to the one
	// being asked about.
	seedChama(t, db, "HARAMBEE")

	require.NoError(t, db.Create(&models.Loan{
		ChamaID:               f.chama.ID,
		MembershipID:          f.members[0].ID,
		LoanNumber:            "LN-UMOJA-1",
		PrincipalAmount:       models.Money(1000000),
		InterestRate:          10,
		InterestAmount:        models.Money(100000),
		TotalAmount:           models.Money(1100000),
		Balance:               models.Money(700000),
		RepaymentPeriodMonths: 6,
		Status:                models.LoanStatusActive,
		Purpose:               "stock",
	}).Error)

	svc := newTestService(db)
	d, err := svc.ForAdmin(context.Background(), f.chama.ID)
	require.NoError(t, err)

	assert.Equal(t, f.chama.ID, d.ChamaID)
	assert.Equal(t, int64(2), d.MembersByStatus[models.MembershipStatusActive])
	assert.Equal(t, int64(1), d.CompletedCycles)
	// Two completed contributions on cycle 1 plus one on cycle 2;
	// the pending one and the other chama's rows stay out.
	assert.Equal(t, models.Money(300000), d.TotalCollected)
	assert.Equal(t, models.Money(190000), d.TotalPaidOut)
	assert.Equal(t, models.Money(700000), d.LoansOutstanding)
	assert.Equal(t, int64(0), d.LoansDefaulted)
}

func TestForTreasurer(t *testing.T) {
	db := openTestDB(t)
	f := seedChama(t, db, "UMOJA")
	other := seedChama(t, db, "HARAMBEE")

	svc := newTestService(db)
	d, err := svc.ForTreasurer(context.Background(), f.chama.ID)
	require.NoError(t, err)

	require.NotNil(t, d.ActiveCycle)
	assert.Equal(t, f.active.ID, d.ActiveCycle.CycleID)
	assert.Equal(t, 2, d.ActiveCycle.CycleNumber)
	assert.Equal(t, f.members[1].ID, d.ActiveCycle.BeneficiaryID)
	assert.InDelta(t, 50.0, d.ActiveCycle.PercentCollected, 0.001)

	assert.Equal(t, int64(1), d.PendingContributions)
	// Each chama carries one pending payout; only ours counts.
	assert.Equal(t, int64(1), d.PendingPayouts)
	assert.Equal(t, int64(2), d.ActiveMembers)

	// The other chama's treasurer sees its own pending payout, not an
	// aggregate across chamas.
	od, err := svc.ForTreasurer(context.Background(), other.chama.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), od.PendingPayouts)
}

func TestForMember(t *testing.T) {
	db := openTestDB(t)
	f := seedChama(t, db, "UMOJA")

	member := f.members[0]
	member.TotalContributed = models.Money(200000)
	member.HasReceivedPayout = true
	require.NoError(t, db.Save(member).Error)

	require.NoError(t, db.Create(&models.Loan{
		ChamaID:               f.chama.ID,
		MembershipID:          member.ID,
		LoanNumber:            "LN-UMOJA-1",
		PrincipalAmount:       models.Money(500000),
		InterestRate:          10,
		InterestAmount:        models.Money(50000),
		TotalAmount:           models.Money(550000),
		Balance:               models.Money(550000),
		RepaymentPeriodMonths: 6,
		Status:                models.LoanStatusDisbursed,
		Purpose:               "school fees",
	}).Error)

	svc := newTestService(db)
	d, err := svc.ForMember(context.Background(), f.userIDs[0], f.chama.ID)
	require.NoError(t, err)

	assert.Equal(t, "UMOJA", d.ChamaName)
	assert.Equal(t, 1, d.PositionInRotation)
	assert.True(t, d.HasReceivedPayout)
	assert.Equal(t, models.Money(200000), d.TotalContributed)
	assert.Equal(t, int64(1), d.ActiveLoans)
	assert.Equal(t, models.Money(550000), d.OutstandingBalance)
	require.NotNil(t, d.ActiveCycle)
	assert.Equal(t, f.active.ID, d.ActiveCycle.CycleID)
}

func TestDashboardForUnknownRole(t *testing.T) {
	db := openTestDB(t)
	svc := newTestService(db)

	_, err := svc.DashboardFor(context.Background(), "AUDITOR", uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrUnknownRole)
}
