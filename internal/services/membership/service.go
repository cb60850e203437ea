// Package membership is the registry of who belongs to which chama.
// It owns rotation positions, membership status transitions, and the
// running total-contributed ledger per member.
package membership

import (
	"context"
	"fmt"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"

	"github.com/google/uuid"
)

// AuditSink records committed mutations. Failures never propagate.
type AuditSink interface {
	Record(ctx context.Context, actorID *uuid.UUID, action, entityType, entityID string, changes map[string]interface{})
}

// Service defines the membership registry operations.
type Service interface {
	Enroll(ctx context.Context, chamaID, userID uuid.UUID) (*models.ChamaMembership, error)
	Activate(ctx context.Context, membershipID uuid.UUID, actorID uuid.UUID) error
	Suspend(ctx context.Context, membershipID uuid.UUID, actorID uuid.UUID) error
	Withdraw(ctx context.Context, membershipID uuid.UUID, exitDate time.Time, actorID uuid.UUID) error
	RecordContribution(ctx context.Context, membershipID uuid.UUID, amount models.Money) error
	Get(ctx context.Context, membershipID uuid.UUID) (*models.ChamaMembership, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.ChamaMembership, error)
}

type service struct {
	repo  repositories.MembershipRepository
	audit AuditSink
}

// NewService creates a new membership registry service.
func NewService(repo repositories.MembershipRepository, audit AuditSink) Service {
	if repo == nil {
		panic("membership repo is required")
	}
	return &service{repo: repo, audit: audit}
}

// Enroll adds a user to a chama in PENDING state, assigning the next
// unused rotation position. Position assignment and the capacity check
// serialize on the chama row so concurrent enrollments cannot collide.
func (s *service) Enroll(ctx context.Context, chamaID, userID uuid.UUID) (*models.ChamaMembership, error) {
	var created *models.ChamaMembership

	err := s.repo.ExecuteInTransaction(func(tx repositories.MembershipRepository) error {
		chama, err := tx.LockChama(chamaID)
		if err != nil {
			return err
		}
		if chama.Status != models.ChamaStatusActive {
			return ErrChamaNotAccepting
		}

		if _, err := tx.GetByChamaAndUser(chamaID, userID); err == nil {
			return ErrDuplicateMembership
		} else if err != repositories.ErrMembershipNotFound {
			return err
		}

		active, err := tx.CountByStatus(chamaID, models.MembershipStatusActive)
		if err != nil {
			return err
		}
		if active >= int64(chama.MaxMembers) {
			return ErrCapacityExceeded
		}

		maxPos, err := tx.MaxPosition(chamaID)
		if err != nil {
			return err
		}
		position := maxPos + 1

		m := &models.ChamaMembership{
			ChamaID:            chamaID,
			UserID:             userID,
			PositionInRotation: position,
			MembershipNumber:   fmt.Sprintf("MBR-%03d", position),
			Status:             models.MembershipStatusPending,
			JoinedDate:         time.Now().UTC(),
		}
		if err := tx.Create(m); err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, nil, models.AuditActionCreate, "ChamaMembership", created.ID.String(),
			map[string]interface{}{"chama_id": chamaID.String(), "user_id": userID.String(), "position": created.PositionInRotation})
	}
	return created, nil
}

// Activate transitions a membership from PENDING to ACTIVE.
func (s *service) Activate(ctx context.Context, membershipID uuid.UUID, actorID uuid.UUID) error {
	return s.transition(ctx, membershipID, actorID, func(m *models.ChamaMembership) error {
		if m.Status != models.MembershipStatusPending {
			return fmt.Errorf("%w: %s -> ACTIVE", ErrInvalidTransition, m.Status)
		}
		m.Status = models.MembershipStatusActive
		return nil
	})
}

// Suspend transitions an ACTIVE membership to SUSPENDED.
func (s *service) Suspend(ctx context.Context, membershipID uuid.UUID, actorID uuid.UUID) error {
	return s.transition(ctx, membershipID, actorID, func(m *models.ChamaMembership) error {
		if m.Status != models.MembershipStatusActive {
			return fmt.Errorf("%w: %s -> SUSPENDED", ErrInvalidTransition, m.Status)
		}
		m.Status = models.MembershipStatusSuspended
		return nil
	})
}

// Withdraw exits a member permanently. The exit date is recorded and the
// member can never be selected as a beneficiary again.
func (s *service) Withdraw(ctx context.Context, membershipID uuid.UUID, exitDate time.Time, actorID uuid.UUID) error {
	return s.transition(ctx, membershipID, actorID, func(m *models.ChamaMembership) error {
		if m.Status != models.MembershipStatusActive && m.Status != models.MembershipStatusSuspended {
			return fmt.Errorf("%w: %s -> WITHDRAWN", ErrInvalidTransition, m.Status)
		}
		m.Status = models.MembershipStatusWithdrawn
		m.ExitDate = &exitDate
		return nil
	})
}

// RecordContribution adds a completed contribution amount to the
// member's running total. Status is untouched.
func (s *service) RecordContribution(ctx context.Context, membershipID uuid.UUID, amount models.Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.repo.ExecuteInTransaction(func(tx repositories.MembershipRepository) error {
		m, err := tx.GetByID(membershipID)
		if err != nil {
			return err
		}
		m.TotalContributed = m.TotalContributed.Add(amount)
		return tx.Update(m)
	})
}

func (s *service) Get(ctx context.Context, membershipID uuid.UUID) (*models.ChamaMembership, error) {
	return s.repo.GetByID(membershipID)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.ChamaMembership, error) {
	return s.repo.ListByUser(userID)
}

func (s *service) transition(ctx context.Context, membershipID uuid.UUID, actorID uuid.UUID, mutate func(*models.ChamaMembership) error) error {
	var before, after string
	err := s.repo.ExecuteInTransaction(func(tx repositories.MembershipRepository) error {
		m, err := tx.GetByID(membershipID)
		if err != nil {
			return err
		}
		before = m.Status
		if err := mutate(m); err != nil {
			return err
		}
		after = m.Status
		return tx.Update(m)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, &actorID, models.AuditActionUpdate, "ChamaMembership", membershipID.String(),
			map[string]interface{}{"status_before": before, "status_after": after})
	}
	return nil
}
