package repositories

import (
	"errors"
	"fmt"

	"chamapesa/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCycleNotFound        = errors.New("cycle not found")
	ErrContributionNotFound = errors.New("contribution not found")
	ErrDuplicateReference   = errors.New("duplicate transaction reference")
	ErrDuplicateCycle       = errors.New("cycle number already used")
)

// CycleRepository defines contribution-cycle database operations.
// Collected amounts are always recomputed with SumCompletedContributions
// inside the same transaction that mutates the cycle row.
type CycleRepository interface {
	CreateCycle(c *models.ContributionCycle) error
	GetCycleByID(id uuid.UUID) (*models.ContributionCycle, error)
	GetCycleByNumber(chamaID uuid.UUID, number int) (*models.ContributionCycle, error)
	UpdateCycle(c *models.ContributionCycle) error
	ListCyclesByChama(chamaID uuid.UUID, limit, offset int) ([]*models.ContributionCycle, error)

	CreateContribution(c *models.Contribution) error
	GetContributionByID(id uuid.UUID) (*models.Contribution, error)
	GetContributionByReference(ref string) (*models.Contribution, error)
	UpdateContribution(c *models.Contribution) error
	ListContributionsByCycle(cycleID uuid.UUID) ([]*models.Contribution, error)
	SumCompletedContributions(cycleID uuid.UUID) (models.Money, error)

	// Cross-aggregate reads and writes needed inside a cycle transaction:
	// beneficiary selection at open, flag updates at close.
	GetChama(id uuid.UUID) (*models.Chama, error)
	LockChama(id uuid.UUID) (*models.Chama, error)
	ListActiveMemberships(chamaID uuid.UUID) ([]*models.ChamaMembership, error)
	GetMembership(id uuid.UUID) (*models.ChamaMembership, error)
	UpdateMembership(m *models.ChamaMembership) error
	ClearPayoutFlags(chamaID uuid.UUID) error

	LockCycle(id uuid.UUID) (*models.ContributionCycle, error)
	ExecuteInTransaction(fn func(CycleRepository) error) error
}

type cycleRepository struct {
	db *gorm.DB
}

func NewCycleRepository(db *gorm.DB) CycleRepository {
	return &cycleRepository{db: db}
}

func (r *cycleRepository) CreateCycle(c *models.ContributionCycle) error {
	if err := r.db.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCycle
		}
		return fmt.Errorf("failed to create cycle: %w", err)
	}
	return nil
}

func (r *cycleRepository) GetCycleByID(id uuid.UUID) (*models.ContributionCycle, error) {
	var c models.ContributionCycle
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return &c, nil
}

func (r *cycleRepository) GetCycleByNumber(chamaID uuid.UUID, number int) (*models.ContributionCycle, error) {
	var c models.ContributionCycle
	err := r.db.Where("chama_id = ? AND cycle_number = ?", chamaID, number).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return &c, nil
}

func (r *cycleRepository) UpdateCycle(c *models.ContributionCycle) error {
	if err := r.db.Save(c).Error; err != nil {
		return fmt.Errorf("failed to update cycle: %w", err)
	}
	return nil
}

func (r *cycleRepository) ListCyclesByChama(chamaID uuid.UUID, limit, offset int) ([]*models.ContributionCycle, error) {
	var cycles []*models.ContributionCycle
	err := r.db.Where("chama_id = ?", chamaID).
		Order("cycle_number DESC").
		Limit(limit).Offset(offset).
		Find(&cycles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	return cycles, nil
}

func (r *cycleRepository) CreateContribution(c *models.Contribution) error {
	if err := r.db.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create contribution: %w", err)
	}
	return nil
}

func (r *cycleRepository) GetContributionByID(id uuid.UUID) (*models.Contribution, error) {
	var c models.Contribution
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return &c, nil
}

func (r *cycleRepository) GetContributionByReference(ref string) (*models.Contribution, error) {
	var c models.Contribution
	err := r.db.Where("transaction_reference = ?", ref).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return &c, nil
}

func (r *cycleRepository) UpdateContribution(c *models.Contribution) error {
	if err := r.db.Save(c).Error; err != nil {
		return fmt.Errorf("failed to update contribution: %w", err)
	}
	return nil
}

func (r *cycleRepository) ListContributionsByCycle(cycleID uuid.UUID) ([]*models.Contribution, error) {
	var contributions []*models.Contribution
	err := r.db.Where("cycle_id = ?", cycleID).
		Order("payment_date DESC").
		Find(&contributions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return contributions, nil
}

func (r *cycleRepository) SumCompletedContributions(cycleID uuid.UUID) (models.Money, error) {
	var total int64
	err := r.db.Model(&models.Contribution{}).
		Where("cycle_id = ? AND status = ?", cycleID, models.ContributionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum contributions: %w", err)
	}
	return models.Money(total), nil
}

func (r *cycleRepository) GetChama(id uuid.UUID) (*models.Chama, error) {
	var chama models.Chama
	if err := r.db.First(&chama, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChamaNotFound
		}
		return nil, fmt.Errorf("failed to get chama: %w", err)
	}
	return &chama, nil
}

func (r *cycleRepository) LockChama(id uuid.UUID) (*models.Chama, error) {
	var chama models.Chama
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&chama, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChamaNotFound
		}
		return nil, fmt.Errorf("failed to lock chama: %w", err)
	}
	return &chama, nil
}

func (r *cycleRepository) ListActiveMemberships(chamaID uuid.UUID) ([]*models.ChamaMembership, error) {
	var members []*models.ChamaMembership
	err := r.db.Where("chama_id = ? AND status = ?", chamaID, models.MembershipStatusActive).
		Order("position_in_rotation ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active memberships: %w", err)
	}
	return members, nil
}

func (r *cycleRepository) GetMembership(id uuid.UUID) (*models.ChamaMembership, error) {
	var m models.ChamaMembership
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (r *cycleRepository) UpdateMembership(m *models.ChamaMembership) error {
	if err := r.db.Save(m).Error; err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

func (r *cycleRepository) ClearPayoutFlags(chamaID uuid.UUID) error {
	err := r.db.Model(&models.ChamaMembership{}).
		Where("chama_id = ? AND status = ?", chamaID, models.MembershipStatusActive).
		Updates(map[string]interface{}{"has_received_payout": false, "payout_received_date": nil}).Error
	if err != nil {
		return fmt.Errorf("failed to clear payout flags: %w", err)
	}
	return nil
}

func (r *cycleRepository) LockCycle(id uuid.UUID) (*models.ContributionCycle, error) {
	var c models.ContributionCycle
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to lock cycle: %w", err)
	}
	return &c, nil
}

func (r *cycleRepository) ExecuteInTransaction(fn func(CycleRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&cycleRepository{db: tx})
	})
}
