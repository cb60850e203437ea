package cycle

import (
	"context"
	"fmt"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/validation"

	"github.com/google/uuid"
)

// Service defines the contribution-cycle engine operations.
type Service interface {
	OpenCycle(ctx context.Context, req OpenCycleRequest) (*models.ContributionCycle, error)
	RecordPayment(ctx context.Context, cycleID uuid.UUID, req RecordPaymentRequest) (*models.Contribution, error)
	ConfirmPayment(ctx context.Context, contributionID uuid.UUID, status string) error
	CloseCycle(ctx context.Context, cycleID uuid.UUID, actorID uuid.UUID) error
	CancelCycle(ctx context.Context, cycleID uuid.UUID, actorID uuid.UUID) error
	GetCycle(ctx context.Context, cycleID uuid.UUID) (*models.ContributionCycle, error)
	ListCycles(ctx context.Context, chamaID uuid.UUID, limit, offset int) ([]*models.ContributionCycle, error)
	ListContributions(ctx context.Context, cycleID uuid.UUID) ([]*models.Contribution, error)
}

type service struct {
	repo     repositories.CycleRepository
	audit    AuditSink
	notifier Notifier
	now      Clock
}

// NewService creates a new cycle engine. Audit and notifier are optional
// sinks; a nil clock defaults to time.Now.
func NewService(repo repositories.CycleRepository, audit AuditSink, notifier Notifier, now Clock) Service {
	if repo == nil {
		panic("cycle repo is required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, audit: audit, notifier: notifier, now: now}
}

// OpenCycle starts a collection round. The expected amount is the chama
// contribution amount times the active member count at open time, and
// the beneficiary is fixed here, immutably, by rotation order.
func (s *service) OpenCycle(ctx context.Context, req OpenCycleRequest) (*models.ContributionCycle, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, ErrInvalidWindow
	}

	var created *models.ContributionCycle

	err := s.repo.ExecuteInTransaction(func(tx repositories.CycleRepository) error {
		// The chama lock serializes beneficiary selection against
		// concurrent opens and concurrent cycle closes.
		chama, err := tx.LockChama(req.ChamaID)
		if err != nil {
			return err
		}
		if chama.Status != models.ChamaStatusActive {
			return fmt.Errorf("%w: chama is %s", ErrInvalidTransition, chama.Status)
		}

		if _, err := tx.GetCycleByNumber(req.ChamaID, req.CycleNumber); err == nil {
			return ErrDuplicateCycleNumber
		} else if err != repositories.ErrCycleNotFound {
			return err
		}

		members, err := tx.ListActiveMemberships(req.ChamaID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return ErrNoEligibleMembers
		}

		beneficiary, err := s.selectBeneficiary(tx, req.ChamaID, members)
		if err != nil {
			return err
		}

		expected := models.Money(int64(chama.ContributionAmount) * int64(len(members)))

		c := &models.ContributionCycle{
			ChamaID:        req.ChamaID,
			CycleNumber:    req.CycleNumber,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			ExpectedAmount: expected,
			BeneficiaryID:  beneficiary.ID,
			Status:         models.CycleStatusUpcoming,
			Notes:          req.Notes,
		}
		if err := tx.CreateCycle(c); err != nil {
			if err == repositories.ErrDuplicateCycle {
				return ErrDuplicateCycleNumber
			}
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, nil, models.AuditActionCreate, "ContributionCycle", created.ID.String(),
			map[string]interface{}{
				"cycle_number":    created.CycleNumber,
				"expected_amount": int64(created.ExpectedAmount),
				"beneficiary_id":  created.BeneficiaryID.String(),
			})
	}
	return created, nil
}

// selectBeneficiary picks the active membership with the lowest rotation
// position among those that have not received a payout. If every active
// member has received one, the rotation wraps: flags reset and the
// lowest position wins again. Members arrive ordered by position.
func (s *service) selectBeneficiary(tx repositories.CycleRepository, chamaID uuid.UUID, members []*models.ChamaMembership) (*models.ChamaMembership, error) {
	for _, m := range members {
		if !m.HasReceivedPayout {
			return m, nil
		}
	}

	// Full rotation complete: restart.
	if err := tx.ClearPayoutFlags(chamaID); err != nil {
		return nil, err
	}
	return members[0], nil
}

// RecordPayment records one contribution toward an open cycle. The
// collected amount is recomputed from completed contributions inside
// the same transaction, never incremented.
func (s *service) RecordPayment(ctx context.Context, cycleID uuid.UUID, req RecordPaymentRequest) (*models.Contribution, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !validation.IsPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidMethod
	}
	if req.TransactionReference == "" || len(req.TransactionReference) > validation.MaxReferenceLength {
		return nil, ErrMissingReference
	}
	status := req.Status
	if status == "" {
		status = models.ContributionStatusPending
	}
	if !validation.IsContributionStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransition, status)
	}

	var (
		created    *models.Contribution
		lateUserID uuid.UUID
		chamaID    uuid.UUID
		penalty    models.Money
	)

	err := s.repo.ExecuteInTransaction(func(tx repositories.CycleRepository) error {
		c, err := tx.LockCycle(cycleID)
		if err != nil {
			return err
		}
		if !c.Open() {
			return ErrCycleClosed
		}
		chamaID = c.ChamaID

		if _, err := tx.GetContributionByReference(req.TransactionReference); err == nil {
			return ErrDuplicateReference
		} else if err != repositories.ErrContributionNotFound {
			return err
		}

		member, err := tx.GetMembership(req.MembershipID)
		if err != nil {
			return err
		}

		contribution := &models.Contribution{
			CycleID:              c.ID,
			MembershipID:         member.ID,
			Amount:               req.Amount,
			PaymentMethod:        req.PaymentMethod,
			TransactionReference: req.TransactionReference,
			MpesaReceiptNumber:   req.MpesaReceiptNumber,
			PaymentDate:          req.PaymentDate,
			Status:               status,
			RecordedByID:         req.RecordedBy,
		}

		if req.PaymentDate.After(c.EndDate) {
			chama, err := tx.GetChama(c.ChamaID)
			if err != nil {
				return err
			}
			contribution.LatePayment = true
			contribution.PenaltyAmount = chama.LatePaymentPenalty
			lateUserID = member.UserID
			penalty = chama.LatePaymentPenalty
		}

		if err := tx.CreateContribution(contribution); err != nil {
			if err == repositories.ErrDuplicateReference {
				return ErrDuplicateReference
			}
			return err
		}

		if contribution.Status == models.ContributionStatusCompleted {
			if c.Status == models.CycleStatusUpcoming {
				c.Status = models.CycleStatusActive
			}
			member.TotalContributed = member.TotalContributed.Add(contribution.Amount)
			if err := tx.UpdateMembership(member); err != nil {
				return err
			}
		}

		collected, err := tx.SumCompletedContributions(c.ID)
		if err != nil {
			return err
		}
		c.CollectedAmount = collected
		if err := tx.UpdateCycle(c); err != nil {
			return err
		}

		created = contribution
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created.LatePayment && s.notifier != nil {
		s.notifier.NotifyLatePayment(ctx, lateUserID, chamaID, penalty)
	}
	if s.audit != nil {
		s.audit.Record(ctx, &req.RecordedBy, models.AuditActionPayment, "Contribution", created.ID.String(),
			map[string]interface{}{
				"cycle_id":  cycleID.String(),
				"amount":    int64(created.Amount),
				"reference": created.TransactionReference,
				"late":      created.LatePayment,
			})
	}
	return created, nil
}

// ConfirmPayment applies an asynchronous settlement update from the
// payment gateway. Transitions are one-directional: PENDING may move to
// PROCESSING, COMPLETED or FAILED; PROCESSING to COMPLETED or FAILED;
// COMPLETED only to REFUNDED. FAILED and REFUNDED are terminal.
func (s *service) ConfirmPayment(ctx context.Context, contributionID uuid.UUID, status string) error {
	if !validation.IsContributionStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidTransition, status)
	}

	return s.repo.ExecuteInTransaction(func(tx repositories.CycleRepository) error {
		contribution, err := tx.GetContributionByID(contributionID)
		if err != nil {
			return err
		}

		c, err := tx.LockCycle(contribution.CycleID)
		if err != nil {
			return err
		}

		if !contributionTransitionAllowed(contribution.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, contribution.Status, status)
		}

		wasCompleted := contribution.Status == models.ContributionStatusCompleted
		contribution.Status = status
		if err := tx.UpdateContribution(contribution); err != nil {
			return err
		}

		if status == models.ContributionStatusCompleted && !wasCompleted {
			if c.Status == models.CycleStatusUpcoming {
				c.Status = models.CycleStatusActive
			}
			member, err := tx.GetMembership(contribution.MembershipID)
			if err != nil {
				return err
			}
			member.TotalContributed = member.TotalContributed.Add(contribution.Amount)
			if err := tx.UpdateMembership(member); err != nil {
				return err
			}
		}

		collected, err := tx.SumCompletedContributions(c.ID)
		if err != nil {
			return err
		}
		c.CollectedAmount = collected
		return tx.UpdateCycle(c)
	})
}

func contributionTransitionAllowed(from, to string) bool {
	switch from {
	case models.ContributionStatusPending:
		return to == models.ContributionStatusProcessing ||
			to == models.ContributionStatusCompleted ||
			to == models.ContributionStatusFailed
	case models.ContributionStatusProcessing:
		return to == models.ContributionStatusCompleted ||
			to == models.ContributionStatusFailed
	case models.ContributionStatusCompleted:
		return to == models.ContributionStatusRefunded
	}
	return false
}

// CloseCycle completes a round. Allowed when the collected amount has
// reached the chama's completion threshold, or the end date has passed
// (time-boxed close on whatever was actually collected). The beneficiary
// payout flag is set in the same transaction so a concurrent open cannot
// select the same member again.
func (s *service) CloseCycle(ctx context.Context, cycleID uuid.UUID, actorID uuid.UUID) error {
	var (
		closed      *models.ContributionCycle
		beneficiary *models.ChamaMembership
	)

	err := s.repo.ExecuteInTransaction(func(tx repositories.CycleRepository) error {
		c, err := tx.LockCycle(cycleID)
		if err != nil {
			return err
		}
		if !c.Open() {
			return fmt.Errorf("%w: %s -> COMPLETED", ErrInvalidTransition, c.Status)
		}

		if _, err := tx.LockChama(c.ChamaID); err != nil {
			return err
		}
		chama, err := tx.GetChama(c.ChamaID)
		if err != nil {
			return err
		}

		collected, err := tx.SumCompletedContributions(c.ID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		threshold := chama.CompletionThreshold.Of(c.ExpectedAmount)
		if collected < threshold && now.Before(c.EndDate) {
			return fmt.Errorf("%w: collected %s of %s", ErrIncompleteCollection, collected, c.ExpectedAmount)
		}

		member, err := tx.GetMembership(c.BeneficiaryID)
		if err != nil {
			return err
		}

		c.CollectedAmount = collected
		c.PayoutAmount = chama.PayoutRatio.Of(collected)
		c.PayoutDate = &now
		c.Status = models.CycleStatusCompleted
		if err := tx.UpdateCycle(c); err != nil {
			return err
		}

		member.HasReceivedPayout = true
		member.PayoutReceivedDate = &now
		if err := tx.UpdateMembership(member); err != nil {
			return err
		}

		closed = c
		beneficiary = member
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyPayout(ctx, beneficiary.UserID, closed.ChamaID, closed.PayoutAmount, closed.CycleNumber)
	}
	if s.audit != nil {
		s.audit.Record(ctx, &actorID, models.AuditActionUpdate, "ContributionCycle", closed.ID.String(),
			map[string]interface{}{
				"status":           models.CycleStatusCompleted,
				"collected_amount": int64(closed.CollectedAmount),
				"payout_amount":    int64(closed.PayoutAmount),
			})
	}
	return nil
}

// CancelCycle abandons a round that never completed.
func (s *service) CancelCycle(ctx context.Context, cycleID uuid.UUID, actorID uuid.UUID) error {
	err := s.repo.ExecuteInTransaction(func(tx repositories.CycleRepository) error {
		c, err := tx.LockCycle(cycleID)
		if err != nil {
			return err
		}
		if !c.Open() {
			return fmt.Errorf("%w: %s -> CANCELLED", ErrInvalidTransition, c.Status)
		}
		c.Status = models.CycleStatusCancelled
		return tx.UpdateCycle(c)
	})
	if err != nil {
		return err
	}

	if s.audit != nil {
		s.audit.Record(ctx, &actorID, models.AuditActionUpdate, "ContributionCycle", cycleID.String(),
			map[string]interface{}{"status": models.CycleStatusCancelled})
	}
	return nil
}

func (s *service) GetCycle(ctx context.Context, cycleID uuid.UUID) (*models.ContributionCycle, error) {
	return s.repo.GetCycleByID(cycleID)
}

func (s *service) ListCycles(ctx context.Context, chamaID uuid.UUID, limit, offset int) ([]*models.ContributionCycle, error) {
	return s.repo.ListCyclesByChama(chamaID, limit, offset)
}

func (s *service) ListContributions(ctx context.Context, cycleID uuid.UUID) ([]*models.Contribution, error) {
	return s.repo.ListContributionsByCycle(cycleID)
}
