// Package chama manages chama lifecycle and financial policy settings.
package chama

import (
	"context"
	"errors"
	"fmt"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/repositories/cache"
	"chamapesa/internal/validation"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount     = errors.New("contribution amount below minimum")
	ErrInvalidFrequency  = errors.New("invalid contribution frequency")
	ErrInvalidRate       = errors.New("interest rate must be between 0 and 100")
	ErrInvalidRatio      = errors.New("ratio must be between 0 and 1")
	ErrInvalidGuarantors = errors.New("min guarantors must be between 0 and 2")
	ErrSettingsLocked    = errors.New("chama is closed, settings are immutable")
	ErrInvalidTransition = errors.New("invalid chama status transition")
)

// CreateRequest carries the fields needed to register a chama.
type CreateRequest struct {
	Name                string
	Description         string
	RegistrationNumber  string
	ContributionAmount  models.Money
	Frequency           string
	LatePaymentPenalty  models.Money
	LoanInterestRate    models.Percent
	MaxMembers          int
	MinGuarantors       int
	CompletionThreshold models.Ratio
	PayoutRatio         models.Ratio
	MeetingDay          string
	MeetingLocation     string
	CreatedByID         uuid.UUID
}

// SettingsUpdate holds the mutable financial policy fields. Nil fields
// are left unchanged.
type SettingsUpdate struct {
	ContributionAmount  *models.Money
	LatePaymentPenalty  *models.Money
	LoanInterestRate    *models.Percent
	MaxMembers          *int
	MinGuarantors       *int
	CompletionThreshold *models.Ratio
	PayoutRatio         *models.Ratio
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Chama, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Chama, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.Chama, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, update SettingsUpdate) (*models.Chama, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

type service struct {
	repo  repositories.ChamaRepository
	cache *cache.CacheService
}

func NewService(repo repositories.ChamaRepository, cacheService *cache.CacheService) Service {
	if repo == nil {
		panic("chama repo is required")
	}
	return &service{repo: repo, cache: cacheService}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Chama, error) {
	if req.ContributionAmount < models.MinContributionAmount {
		return nil, ErrInvalidAmount
	}
	if !validation.IsContributionFrequency(req.Frequency) {
		return nil, ErrInvalidFrequency
	}
	if !req.LoanInterestRate.Valid() {
		return nil, ErrInvalidRate
	}
	if req.MinGuarantors < 0 || req.MinGuarantors > 2 {
		return nil, ErrInvalidGuarantors
	}

	c := &models.Chama{
		Name:                  req.Name,
		Description:           req.Description,
		RegistrationNumber:    req.RegistrationNumber,
		ContributionAmount:    req.ContributionAmount,
		ContributionFrequency: req.Frequency,
		LatePaymentPenalty:    req.LatePaymentPenalty,
		LoanInterestRate:      req.LoanInterestRate,
		MaxMembers:            req.MaxMembers,
		MinGuarantors:         req.MinGuarantors,
		CompletionThreshold:   req.CompletionThreshold,
		PayoutRatio:           req.PayoutRatio,
		MeetingDay:            req.MeetingDay,
		MeetingLocation:       req.MeetingLocation,
		Status:                models.ChamaStatusActive,
		CreatedByID:           req.CreatedByID,
	}
	if c.CompletionThreshold == 0 {
		c.CompletionThreshold = models.DefaultCompletionThreshold
	}
	if c.PayoutRatio == 0 {
		c.PayoutRatio = models.DefaultPayoutRatio
	}
	if !c.CompletionThreshold.Valid() || !c.PayoutRatio.Valid() {
		return nil, ErrInvalidRatio
	}

	if err := s.repo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Chama, error) {
	if s.cache != nil {
		if c, err := s.cache.GetChama(ctx, id); err == nil && c != nil {
			return c, nil
		}
	}
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.CacheChama(ctx, c)
	}
	return c, nil
}

func (s *service) List(ctx context.Context, status string, limit, offset int) ([]*models.Chama, error) {
	return s.repo.List(status, limit, offset)
}

// UpdateSettings mutates financial policy. Closed chamas are immutable.
func (s *service) UpdateSettings(ctx context.Context, id uuid.UUID, update SettingsUpdate) (*models.Chama, error) {
	c, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !c.SettingsMutable() {
		return nil, ErrSettingsLocked
	}

	if update.ContributionAmount != nil {
		if *update.ContributionAmount < models.MinContributionAmount {
			return nil, ErrInvalidAmount
		}
		c.ContributionAmount = *update.ContributionAmount
	}
	if update.LatePaymentPenalty != nil {
		c.LatePaymentPenalty = *update.LatePaymentPenalty
	}
	if update.LoanInterestRate != nil {
		if !update.LoanInterestRate.Valid() {
			return nil, ErrInvalidRate
		}
		c.LoanInterestRate = *update.LoanInterestRate
	}
	if update.MaxMembers != nil {
		c.MaxMembers = *update.MaxMembers
	}
	if update.MinGuarantors != nil {
		if *update.MinGuarantors < 0 || *update.MinGuarantors > 2 {
			return nil, ErrInvalidGuarantors
		}
		c.MinGuarantors = *update.MinGuarantors
	}
	if update.CompletionThreshold != nil {
		if !update.CompletionThreshold.Valid() {
			return nil, ErrInvalidRatio
		}
		c.CompletionThreshold = *update.CompletionThreshold
	}
	if update.PayoutRatio != nil {
		if !update.PayoutRatio.Valid() {
			return nil, ErrInvalidRatio
		}
		c.PayoutRatio = *update.PayoutRatio
	}

	if err := s.repo.Update(c); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateChama(ctx, id)
	}
	return c, nil
}

// SetStatus moves the chama between lifecycle states. CLOSED is terminal.
func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	switch status {
	case models.ChamaStatusActive, models.ChamaStatusInactive,
		models.ChamaStatusSuspended, models.ChamaStatusClosed:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, status)
	}

	c, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if c.Status == models.ChamaStatusClosed {
		return fmt.Errorf("%w: chama is closed", ErrInvalidTransition)
	}
	c.Status = status
	if err := s.repo.Update(c); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateChama(ctx, id)
	}
	return nil
}
