package repositories

import (
	"errors"
	"fmt"

	"chamapesa/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrChamaNotFound  = errors.New("chama not found")
	ErrDuplicateChama = errors.New("chama already exists")
)

// ChamaRepository defines chama-related database operations.
type ChamaRepository interface {
	Create(chama *models.Chama) error
	GetByID(id uuid.UUID) (*models.Chama, error)
	GetByName(name string) (*models.Chama, error)
	Update(chama *models.Chama) error
	List(status string, limit, offset int) ([]*models.Chama, error)
}

type chamaRepository struct {
	db *gorm.DB
}

func NewChamaRepository(db *gorm.DB) ChamaRepository {
	return &chamaRepository{db: db}
}

func (r *chamaRepository) Create(chama *models.Chama) error {
	if err := r.db.Create(chama).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateChama
		}
		return fmt.Errorf("failed to create chama: %w", err)
	}
	return nil
}

func (r *chamaRepository) GetByID(id uuid.UUID) (*models.Chama, error) {
	var chama models.Chama
	if err := r.db.First(&chama, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChamaNotFound
		}
		return nil, fmt.Errorf("failed to get chama: %w", err)
	}
	return &chama, nil
}

func (r *chamaRepository) GetByName(name string) (*models.Chama, error) {
	var chama models.Chama
	if err := r.db.Where("name = ?", name).First(&chama).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChamaNotFound
		}
		return nil, fmt.Errorf("failed to get chama: %w", err)
	}
	return &chama, nil
}

func (r *chamaRepository) Update(chama *models.Chama) error {
	if err := r.db.Save(chama).Error; err != nil {
		return fmt.Errorf("failed to update chama: %w", err)
	}
	return nil
}

func (r *chamaRepository) List(status string, limit, offset int) ([]*models.Chama, error) {
	var chamas []*models.Chama
	q := r.db.Order("created_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&chamas).Error; err != nil {
		return nil, fmt.Errorf("failed to list chamas: %w", err)
	}
	return chamas, nil
}
