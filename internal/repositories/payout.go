package repositories

import (
	"errors"
	"fmt"

	"chamapesa/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPayoutNotFound  = errors.New("payout not found")
	ErrDuplicatePayout = errors.New("payout already exists for cycle")
)

// PayoutRepository defines payout database operations.
type PayoutRepository interface {
	Create(p *models.Payout) error
	GetByID(id uuid.UUID) (*models.Payout, error)
	GetByCycleID(cycleID uuid.UUID) (*models.Payout, error)
	Update(p *models.Payout) error
	ListByMembership(membershipID uuid.UUID) ([]*models.Payout, error)
	ListByStatus(status string, limit, offset int) ([]*models.Payout, error)

	// GetCycle reads the source cycle inside the payout transaction.
	GetCycle(id uuid.UUID) (*models.ContributionCycle, error)
	ExecuteInTransaction(fn func(PayoutRepository) error) error
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Create(p *models.Payout) error {
	if err := r.db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePayout
		}
		return fmt.Errorf("failed to create payout: %w", err)
	}
	return nil
}

func (r *payoutRepository) GetByID(id uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return &p, nil
}

func (r *payoutRepository) GetByCycleID(cycleID uuid.UUID) (*models.Payout, error) {
	var p models.Payout
	err := r.db.Where("cycle_id = ?", cycleID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return &p, nil
}

func (r *payoutRepository) Update(p *models.Payout) error {
	if err := r.db.Save(p).Error; err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}
	return nil
}

func (r *payoutRepository) ListByMembership(membershipID uuid.UUID) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.Where("membership_id = ?", membershipID).
		Order("scheduled_date DESC").
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, nil
}

func (r *payoutRepository) ListByStatus(status string, limit, offset int) ([]*models.Payout, error) {
	var payouts []*models.Payout
	err := r.db.Where("status = ?", status).
		Order("scheduled_date ASC").
		Limit(limit).Offset(offset).
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, nil
}

func (r *payoutRepository) GetCycle(id uuid.UUID) (*models.ContributionCycle, error) {
	var c models.ContributionCycle
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return &c, nil
}

func (r *payoutRepository) ExecuteInTransaction(fn func(PayoutRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&payoutRepository{db: tx})
	})
}
