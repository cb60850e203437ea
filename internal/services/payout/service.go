// Package payout implements the disbursement engine: one payout per
// completed cycle, moving through an approval workflow before funds are
// released to the beneficiary.
package payout

import (
	"context"
	"fmt"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/validation"

	"github.com/google/uuid"
)

// AuditSink records committed mutations. Failures never propagate.
type AuditSink interface {
	Record(ctx context.Context, actorID *uuid.UUID, action, entityType, entityID string, changes map[string]interface{})
}

// Service defines the payout engine operations.
//
// State machine: PENDING -> APPROVED -> PROCESSING -> COMPLETED, with
// FAILED/CANCELLED reachable from any pre-COMPLETED state. COMPLETED,
// FAILED and CANCELLED are terminal.
type Service interface {
	CreateFromCycle(ctx context.Context, cycleID uuid.UUID, method string, scheduledDate time.Time) (*models.Payout, error)
	Approve(ctx context.Context, payoutID, approverID uuid.UUID) error
	MarkProcessing(ctx context.Context, payoutID, processorID uuid.UUID) error
	MarkCompleted(ctx context.Context, payoutID uuid.UUID, actualDate time.Time) error
	Fail(ctx context.Context, payoutID uuid.UUID, reason string) error
	Cancel(ctx context.Context, payoutID uuid.UUID, reason string) error
	Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.Payout, error)
}

type service struct {
	repo  repositories.PayoutRepository
	audit AuditSink
	now   func() time.Time
}

// NewService creates a new payout engine.
func NewService(repo repositories.PayoutRepository, audit AuditSink, now func() time.Time) Service {
	if repo == nil {
		panic("payout repo is required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, audit: audit, now: now}
}

// CreateFromCycle derives the payout record for a completed cycle's
// beneficiary. Exactly zero or one payout may exist per cycle.
func (s *service) CreateFromCycle(ctx context.Context, cycleID uuid.UUID, method string, scheduledDate time.Time) (*models.Payout, error) {
	if !validation.IsPayoutMethod(method) {
		return nil, ErrInvalidMethod
	}

	var created *models.Payout

	err := s.repo.ExecuteInTransaction(func(tx repositories.PayoutRepository) error {
		c, err := tx.GetCycle(cycleID)
		if err != nil {
			return err
		}
		if c.Status != models.CycleStatusCompleted {
			return fmt.Errorf("%w: cycle is %s", ErrCycleNotCompleted, c.Status)
		}

		if _, err := tx.GetByCycleID(cycleID); err == nil {
			return ErrPayoutAlreadyExists
		} else if err != repositories.ErrPayoutNotFound {
			return err
		}

		p := &models.Payout{
			CycleID:              c.ID,
			MembershipID:         c.BeneficiaryID,
			Amount:               c.PayoutAmount,
			PaymentMethod:        method,
			TransactionReference: fmt.Sprintf("PYT-%d-%s", s.now().Unix(), c.ID.String()[:8]),
			ScheduledDate:        scheduledDate,
			Status:               models.PayoutStatusPending,
		}
		if err := tx.Create(p); err != nil {
			if err == repositories.ErrDuplicatePayout {
				return ErrPayoutAlreadyExists
			}
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, nil, models.AuditActionCreate, "Payout", created.ID.String(),
			map[string]interface{}{"cycle_id": cycleID.String(), "amount": int64(created.Amount)})
	}
	return created, nil
}

// Approve moves a pending payout to APPROVED, recording who and when.
func (s *service) Approve(ctx context.Context, payoutID, approverID uuid.UUID) error {
	return s.transition(ctx, payoutID, &approverID, models.AuditActionApprove, func(p *models.Payout) error {
		if p.Status != models.PayoutStatusPending {
			return fmt.Errorf("%w: %s -> APPROVED", ErrInvalidTransition, p.Status)
		}
		now := s.now().UTC()
		p.Status = models.PayoutStatusApproved
		p.ApprovedByID = &approverID
		p.ApprovalDate = &now
		return nil
	})
}

// MarkProcessing moves an approved payout into PROCESSING.
func (s *service) MarkProcessing(ctx context.Context, payoutID, processorID uuid.UUID) error {
	return s.transition(ctx, payoutID, &processorID, models.AuditActionUpdate, func(p *models.Payout) error {
		if p.Status != models.PayoutStatusApproved {
			return fmt.Errorf("%w: %s -> PROCESSING", ErrInvalidTransition, p.Status)
		}
		p.Status = models.PayoutStatusProcessing
		p.ProcessedByID = &processorID
		return nil
	})
}

// MarkCompleted finalizes the disbursement with the actual payment date.
func (s *service) MarkCompleted(ctx context.Context, payoutID uuid.UUID, actualDate time.Time) error {
	return s.transition(ctx, payoutID, nil, models.AuditActionUpdate, func(p *models.Payout) error {
		if p.Status != models.PayoutStatusApproved && p.Status != models.PayoutStatusProcessing {
			return fmt.Errorf("%w: %s -> COMPLETED", ErrInvalidTransition, p.Status)
		}
		p.Status = models.PayoutStatusCompleted
		p.ActualPaymentDate = &actualDate
		return nil
	})
}

// Fail marks a not-yet-completed payout as FAILED.
func (s *service) Fail(ctx context.Context, payoutID uuid.UUID, reason string) error {
	return s.transition(ctx, payoutID, nil, models.AuditActionUpdate, func(p *models.Payout) error {
		if p.Terminal() {
			return fmt.Errorf("%w: %s -> FAILED", ErrInvalidTransition, p.Status)
		}
		p.Status = models.PayoutStatusFailed
		p.Notes = reason
		return nil
	})
}

// Cancel abandons a not-yet-completed payout.
func (s *service) Cancel(ctx context.Context, payoutID uuid.UUID, reason string) error {
	return s.transition(ctx, payoutID, nil, models.AuditActionUpdate, func(p *models.Payout) error {
		if p.Terminal() {
			return fmt.Errorf("%w: %s -> CANCELLED", ErrInvalidTransition, p.Status)
		}
		p.Status = models.PayoutStatusCancelled
		p.Notes = reason
		return nil
	})
}

func (s *service) Get(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	return s.repo.GetByID(payoutID)
}

func (s *service) ListPending(ctx context.Context, limit, offset int) ([]*models.Payout, error) {
	return s.repo.ListByStatus(models.PayoutStatusPending, limit, offset)
}

func (s *service) transition(ctx context.Context, payoutID uuid.UUID, actorID *uuid.UUID, action string, mutate func(*models.Payout) error) error {
	var before, after string
	err := s.repo.ExecuteInTransaction(func(tx repositories.PayoutRepository) error {
		p, err := tx.GetByID(payoutID)
		if err != nil {
			return err
		}
		before = p.Status
		if err := mutate(p); err != nil {
			return err
		}
		after = p.Status
		return tx.Update(p)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, action, "Payout", payoutID.String(),
			map[string]interface{}{"status_before": before, "status_after": after})
	}
	return nil
}
