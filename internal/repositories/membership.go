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
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrDuplicateMembership = errors.New("membership already exists")
)

// MembershipRepository defines membership-related database operations.
// Position assignment serializes on the chama row: callers that enroll
// must do so inside ExecuteInTransaction after LockChama.
type MembershipRepository interface {
	Create(m *models.ChamaMembership) error
	GetByID(id uuid.UUID) (*models.ChamaMembership, error)
	GetByChamaAndUser(chamaID, userID uuid.UUID) (*models.ChamaMembership, error)
	Update(m *models.ChamaMembership) error

	CountByStatus(chamaID uuid.UUID, status string) (int64, error)
	MaxPosition(chamaID uuid.UUID) (int, error)
	ListActiveByRotation(chamaID uuid.UUID) ([]*models.ChamaMembership, error)
	ListByUser(userID uuid.UUID) ([]*models.ChamaMembership, error)
	ClearPayoutFlags(chamaID uuid.UUID) error

	LockChama(chamaID uuid.UUID) (*models.Chama, error)
	ExecuteInTransaction(fn func(MembershipRepository) error) error
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(m *models.ChamaMembership) error {
	if err := r.db.Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateMembership
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *membershipRepository) GetByID(id uuid.UUID) (*models.ChamaMembership, error) {
	var m models.ChamaMembership
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (r *membershipRepository) GetByChamaAndUser(chamaID, userID uuid.UUID) (*models.ChamaMembership, error) {
	var m models.ChamaMembership
	err := r.db.Where("chama_id = ? AND user_id = ?", chamaID, userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

func (r *membershipRepository) Update(m *models.ChamaMembership) error {
	if err := r.db.Save(m).Error; err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

func (r *membershipRepository) CountByStatus(chamaID uuid.UUID, status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.ChamaMembership{}).
		Where("chama_id = ? AND status = ?", chamaID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

func (r *membershipRepository) MaxPosition(chamaID uuid.UUID) (int, error) {
	var max int
	err := r.db.Model(&models.ChamaMembership{}).
		Where("chama_id = ?", chamaID).
		Select("COALESCE(MAX(position_in_rotation), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max rotation position: %w", err)
	}
	return max, nil
}

func (r *membershipRepository) ListActiveByRotation(chamaID uuid.UUID) ([]*models.ChamaMembership, error) {
	var members []*models.ChamaMembership
	err := r.db.Where("chama_id = ? AND status = ?", chamaID, models.MembershipStatusActive).
		Order("position_in_rotation ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active memberships: %w", err)
	}
	return members, nil
}

func (r *membershipRepository) ListByUser(userID uuid.UUID) ([]*models.ChamaMembership, error) {
	var members []*models.ChamaMembership
	err := r.db.Where("user_id = ?", userID).Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return members, nil
}

func (r *membershipRepository) ClearPayoutFlags(chamaID uuid.UUID) error {
	err := r.db.Model(&models.ChamaMembership{}).
		Where("chama_id = ? AND status = ?", chamaID, models.MembershipStatusActive).
		Updates(map[string]interface{}{"has_received_payout": false, "payout_received_date": nil}).Error
	if err != nil {
		return fmt.Errorf("failed to clear payout flags: %w", err)
	}
	return nil
}

func (r *membershipRepository) LockChama(chamaID uuid.UUID) (*models.Chama, error) {
	var chama models.Chama
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&chama, "id = ?", chamaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChamaNotFound
		}
		return nil, fmt.Errorf("failed to lock chama: %w", err)
	}
	return &chama, nil
}

func (r *membershipRepository) ExecuteInTransaction(fn func(MembershipRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&membershipRepository{db: tx})
	})
}
