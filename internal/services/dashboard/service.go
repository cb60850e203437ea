// Package dashboard builds read-only projections per role. Projections
// are cached in Redis with a short TTL; a cache failure falls through
// to the database.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/repositories/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUnknownRole = errors.New("unknown dashboard role")

// CycleProgress summarizes collection state for one cycle.
type CycleProgress struct {
	CycleID          uuid.UUID    `json:"cycle_id"`
	CycleNumber      int          `json:"cycle_number"`
	ExpectedAmount   models.Money `json:"expected_amount"`
	CollectedAmount  models.Money `json:"collected_amount"`
	PercentCollected float64      `json:"percent_collected"`
	StartDate        time.Time    `json:"start_date"`
	EndDate          time.Time    `json:"end_date"`
	BeneficiaryID    uuid.UUID    `json:"beneficiary_id"`
}

// MemberDashboard is what an ordinary member sees: their own totals and
// rotation standing.
type MemberDashboard struct {
	ChamaID            uuid.UUID      `json:"chama_id"`
	ChamaName          string         `json:"chama_name"`
	MembershipNumber   string         `json:"membership_number"`
	PositionInRotation int            `json:"position_in_rotation"`
	HasReceivedPayout  bool           `json:"has_received_payout"`
	TotalContributed   models.Money   `json:"total_contributed"`
	ActiveCycle        *CycleProgress `json:"active_cycle,omitempty"`
	ActiveLoans        int64          `json:"active_loans"`
	OutstandingBalance models.Money   `json:"outstanding_loan_balance"`
	AttendanceRate     float64        `json:"attendance_rate"`
}

// TreasurerDashboard adds collection progress and the approval queues.
type TreasurerDashboard struct {
	ChamaID              uuid.UUID      `json:"chama_id"`
	ActiveCycle          *CycleProgress `json:"active_cycle,omitempty"`
	PendingContributions int64          `json:"pending_contributions"`
	PendingLoans         int64          `json:"pending_loans"`
	PendingPayouts       int64          `json:"pending_payouts"`
	ActiveMembers        int64          `json:"active_members"`
}

// AdminDashboard is the chama-wide aggregate view.
type AdminDashboard struct {
	ChamaID          uuid.UUID        `json:"chama_id"`
	MembersByStatus  map[string]int64 `json:"members_by_status"`
	CompletedCycles  int64            `json:"completed_cycles"`
	TotalCollected   models.Money     `json:"total_collected"`
	TotalPaidOut     models.Money     `json:"total_paid_out"`
	LoansOutstanding models.Money     `json:"loans_outstanding"`
	LoansDefaulted   int64            `json:"loans_defaulted"`
}

// Service builds the per-role projections.
type Service interface {
	DashboardFor(ctx context.Context, role string, userID, chamaID uuid.UUID) (interface{}, error)
	ForMember(ctx context.Context, userID, chamaID uuid.UUID) (*MemberDashboard, error)
	ForTreasurer(ctx context.Context, chamaID uuid.UUID) (*TreasurerDashboard, error)
	ForAdmin(ctx context.Context, chamaID uuid.UUID) (*AdminDashboard, error)
}

type service struct {
	chamaRepo      repositories.ChamaRepository
	membershipRepo repositories.MembershipRepository
	meetingRepo    repositories.MeetingRepository
	cache          *cache.CacheService
	db             *gorm.DB
}

func NewService(
	chamaRepo repositories.ChamaRepository,
	membershipRepo repositories.MembershipRepository,
	meetingRepo repositories.MeetingRepository,
	cacheService *cache.CacheService,
	db *gorm.DB,
) Service {
	if db == nil {
		panic("dashboard db is required")
	}
	return &service{
		chamaRepo:      chamaRepo,
		membershipRepo: membershipRepo,
		meetingRepo:    meetingRepo,
		cache:          cacheService,
		db:             db,
	}
}

// DashboardFor dispatches on the caller's role. Treasurer and secretary
// share the operational view; admins get the aggregate view.
func (s *service) DashboardFor(ctx context.Context, role string, userID, chamaID uuid.UUID) (interface{}, error) {
	switch role {
	case models.RoleMember:
		return s.ForMember(ctx, userID, chamaID)
	case models.RoleTreasurer, models.RoleSecretary:
		return s.ForTreasurer(ctx, chamaID)
	case models.RoleAdmin:
		return s.ForAdmin(ctx, chamaID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
}

func (s *service) ForMember(ctx context.Context, userID, chamaID uuid.UUID) (*MemberDashboard, error) {
	key := fmt.Sprintf("dashboard:member:%s:%s", chamaID, userID)
	var cached MemberDashboard
	if s.cache != nil {
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	member, err := s.membershipRepo.GetByChamaAndUser(chamaID, userID)
	if err != nil {
		return nil, err
	}
	chama, err := s.chamaRepo.GetByID(chamaID)
	if err != nil {
		return nil, err
	}

	d := &MemberDashboard{
		ChamaID:            chamaID,
		ChamaName:          chama.Name,
		MembershipNumber:   member.MembershipNumber,
		PositionInRotation: member.PositionInRotation,
		HasReceivedPayout:  member.HasReceivedPayout,
		TotalContributed:   member.TotalContributed,
	}

	if cycle, err := s.activeCycle(chamaID); err == nil && cycle != nil {
		d.ActiveCycle = cycle
	}

	err = s.db.Model(&models.Loan{}).
		Where("membership_id = ? AND status IN ?", member.ID,
			[]string{models.LoanStatusDisbursed, models.LoanStatusActive}).
		Count(&d.ActiveLoans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count loans: %w", err)
	}

	var outstanding int64
	err = s.db.Model(&models.Loan{}).
		Where("membership_id = ? AND status IN ?", member.ID,
			[]string{models.LoanStatusDisbursed, models.LoanStatusActive, models.LoanStatusDefaulted}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&outstanding).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum loan balances: %w", err)
	}
	d.OutstandingBalance = models.Money(outstanding)

	if s.meetingRepo != nil {
		if present, total, err := s.meetingRepo.AttendanceCounts(member.ID); err == nil && total > 0 {
			d.AttendanceRate = float64(present) / float64(total)
		}
	}

	if s.cache != nil {
		_ = s.cache.CacheDashboard(ctx, key, d)
	}
	return d, nil
}

func (s *service) ForTreasurer(ctx context.Context, chamaID uuid.UUID) (*TreasurerDashboard, error) {
	key := fmt.Sprintf("dashboard:treasurer:%s", chamaID)
	var cached TreasurerDashboard
	if s.cache != nil {
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	d := &TreasurerDashboard{ChamaID: chamaID}

	cycle, err := s.activeCycle(chamaID)
	if err != nil {
		return nil, err
	}
	d.ActiveCycle = cycle

	if cycle != nil {
		err = s.db.Model(&models.Contribution{}).
			Where("cycle_id = ? AND status IN ?", cycle.CycleID,
				[]string{models.ContributionStatusPending, models.ContributionStatusProcessing}).
			Count(&d.PendingContributions).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count pending contributions: %w", err)
		}
	}

	err = s.db.Model(&models.Loan{}).
		Where("chama_id = ? AND status = ?", chamaID, models.LoanStatusPending).
		Count(&d.PendingLoans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending loans: %w", err)
	}

	// Payouts hang off the cycle, so chama scoping goes through it.
	err = s.db.Model(&models.Payout{}).
		Joins("JOIN contribution_cycles ON contribution_cycles.id = payouts.cycle_id").
		Where("contribution_cycles.chama_id = ? AND payouts.status IN ?", chamaID,
			[]string{models.PayoutStatusPending, models.PayoutStatusApproved, models.PayoutStatusProcessing}).
		Count(&d.PendingPayouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending payouts: %w", err)
	}

	d.ActiveMembers, err = s.membershipRepo.CountByStatus(chamaID, models.MembershipStatusActive)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.CacheDashboard(ctx, key, d)
	}
	return d, nil
}

func (s *service) ForAdmin(ctx context.Context, chamaID uuid.UUID) (*AdminDashboard, error) {
	key := fmt.Sprintf("dashboard:chama:%s", chamaID)
	var cached AdminDashboard
	if s.cache != nil {
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	d := &AdminDashboard{
		ChamaID:         chamaID,
		MembersByStatus: make(map[string]int64),
	}

	rows, err := s.db.Model(&models.ChamaMembership{}).
		Select("status, COUNT(*) as count").
		Where("chama_id = ?", chamaID).
		Group("status").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		d.MembersByStatus[status] = count
	}

	err = s.db.Model(&models.ContributionCycle{}).
		Where("chama_id = ? AND status = ?", chamaID, models.CycleStatusCompleted).
		Count(&d.CompletedCycles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count cycles: %w", err)
	}

	// Contributions and payouts carry no chama column; scope through
	// their cycle.
	var collected int64
	err = s.db.Model(&models.Contribution{}).
		Joins("JOIN contribution_cycles ON contribution_cycles.id = contributions.cycle_id").
		Where("contribution_cycles.chama_id = ? AND contributions.status = ?", chamaID, models.ContributionStatusCompleted).
		Select("COALESCE(SUM(contributions.amount), 0)").
		Scan(&collected).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum contributions: %w", err)
	}
	d.TotalCollected = models.Money(collected)

	var paidOut int64
	err = s.db.Model(&models.Payout{}).
		Joins("JOIN contribution_cycles ON contribution_cycles.id = payouts.cycle_id").
		Where("contribution_cycles.chama_id = ? AND payouts.status = ?", chamaID, models.PayoutStatusCompleted).
		Select("COALESCE(SUM(payouts.amount), 0)").
		Scan(&paidOut).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum payouts: %w", err)
	}
	d.TotalPaidOut = models.Money(paidOut)

	var outstanding int64
	err = s.db.Model(&models.Loan{}).
		Where("chama_id = ? AND status IN ?", chamaID,
			[]string{models.LoanStatusDisbursed, models.LoanStatusActive, models.LoanStatusDefaulted}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&outstanding).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum loan balances: %w", err)
	}
	d.LoansOutstanding = models.Money(outstanding)

	err = s.db.Model(&models.Loan{}).
		Where("chama_id = ? AND status = ?", chamaID, models.LoanStatusDefaulted).
		Count(&d.LoansDefaulted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count defaulted loans: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.CacheDashboard(ctx, key, d)
	}
	return d, nil
}

// activeCycle returns the chama's current ACTIVE cycle, or nil if none.
func (s *service) activeCycle(chamaID uuid.UUID) (*CycleProgress, error) {
	var c models.ContributionCycle
	err := s.db.Where("chama_id = ? AND status = ?", chamaID, models.CycleStatusActive).
		Order("cycle_number DESC").
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active cycle: %w", err)
	}

	p := &CycleProgress{
		CycleID:         c.ID,
		CycleNumber:     c.CycleNumber,
		ExpectedAmount:  c.ExpectedAmount,
		CollectedAmount: c.CollectedAmount,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		BeneficiaryID:   c.BeneficiaryID,
	}
	if c.ExpectedAmount > 0 {
		p.PercentCollected = float64(c.CollectedAmount) / float64(c.ExpectedAmount) * 100
	}
	return p, nil
}
