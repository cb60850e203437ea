// Package loan implements the loan lifecycle and balance-accounting
// engine: application with guarantor binding, the approval state
// machine, disbursement, and repayment application.
//
// State machine:
//
//	PENDING -> APPROVED | REJECTED
//	APPROVED -> DISBURSED -> ACTIVE -> COMPLETED | DEFAULTED
//
// Interest, total and balance are derived exactly once at application
// time from the chama's rate, snapshotted against later rate changes.
// The balance is always recomputed as total minus completed repayments,
// clamped at zero, inside a transaction holding the loan row lock.
package loan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/validation"

	"github.com/google/uuid"
)

// Service defines the loan engine operations.
type Service interface {
	Apply(ctx context.Context, req ApplyRequest) (*models.Loan, error)
	Approve(ctx context.Context, loanID, approverID uuid.UUID) error
	Reject(ctx context.Context, loanID uuid.UUID, reason string, actorID uuid.UUID) error
	Disburse(ctx context.Context, loanID uuid.UUID, date time.Time, actorID uuid.UUID) error
	ApplyRepayment(ctx context.Context, loanID uuid.UUID, req RepaymentRequest) (*RepaymentResult, error)
	MarkDefaulted(ctx context.Context, loanID uuid.UUID, actorID uuid.UUID) error
	Get(ctx context.Context, loanID uuid.UUID) (*models.Loan, error)
	ListForMembership(ctx context.Context, membershipID uuid.UUID) ([]*models.Loan, error)
	ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*models.LoanRepayment, error)
}

type service struct {
	repo     repositories.LoanRepository
	audit    AuditSink
	notifier Notifier
	now      Clock
}

// NewService creates a new loan engine. Audit and notifier are optional
// sinks; a nil clock defaults to time.Now.
func NewService(repo repositories.LoanRepository, audit AuditSink, notifier Notifier, now Clock) Service {
	if repo == nil {
		panic("loan repo is required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, audit: audit, notifier: notifier, now: now}
}

// Apply opens a loan application. Interest, total and balance are
// computed here, once, from the chama's current rate; the rate is
// copied onto the loan and never re-read.
func (s *service) Apply(ctx context.Context, req ApplyRequest) (*models.Loan, error) {
	if !req.Principal.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.RepaymentPeriodMonths < 1 {
		return nil, ErrInvalidPeriod
	}
	if strings.TrimSpace(req.Purpose) == "" || len(req.Purpose) > validation.MaxPurposeLength {
		return nil, ErrMissingPurpose
	}
	if len(req.GuarantorIDs) > MaxGuarantors {
		return nil, fmt.Errorf("%w: at most %d guarantors", ErrInsufficientGuarantors, MaxGuarantors)
	}

	var created *models.Loan

	err := s.repo.ExecuteInTransaction(func(tx repositories.LoanRepository) error {
		member, err := tx.GetMembership(req.MembershipID)
		if err != nil {
			return err
		}
		if member.Status != models.MembershipStatusActive {
			return ErrIneligibleApplicant
		}

		chama, err := tx.GetChama(member.ChamaID)
		if err != nil {
			return err
		}

		guarantors, err := s.resolveGuarantors(tx, member, req.GuarantorIDs)
		if err != nil {
			return err
		}
		if len(guarantors) < chama.MinGuarantors {
			return fmt.Errorf("%w: need %d, got %d", ErrInsufficientGuarantors, chama.MinGuarantors, len(guarantors))
		}

		interest := chama.LoanInterestRate.Of(req.Principal)
		total := req.Principal.Add(interest)
		now := s.now().UTC()

		l := &models.Loan{
			ChamaID:               member.ChamaID,
			MembershipID:          member.ID,
			LoanNumber:            fmt.Sprintf("LN-%d-%s", now.Unix(), member.ID.String()[:8]),
			PrincipalAmount:       req.Principal,
			InterestRate:          chama.LoanInterestRate,
			InterestAmount:        interest,
			TotalAmount:           total,
			AmountPaid:            0,
			Balance:               total,
			RepaymentPeriodMonths: req.RepaymentPeriodMonths,
			ApplicationDate:       now,
			Status:                models.LoanStatusPending,
			Purpose:               req.Purpose,
		}
		if len(guarantors) > 0 {
			l.Guarantor1ID = &guarantors[0].ID
		}
		if len(guarantors) > 1 {
			l.Guarantor2ID = &guarantors[1].ID
		}

		if err := tx.Create(l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, nil, models.AuditActionCreate, "Loan", created.ID.String(),
			map[string]interface{}{
				"loan_number":   created.LoanNumber,
				"principal":     int64(created.PrincipalAmount),
				"interest_rate": float64(created.InterestRate),
				"total_amount":  int64(created.TotalAmount),
			})
	}
	return created, nil
}

// resolveGuarantors validates that each supplied guarantor is a
// distinct ACTIVE membership in the applicant's chama and is not the
// applicant.
func (s *service) resolveGuarantors(tx repositories.LoanRepository, applicant *models.ChamaMembership, ids []uuid.UUID) ([]*models.ChamaMembership, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	var out []*models.ChamaMembership
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if id == applicant.ID {
			return nil, fmt.Errorf("%w: applicant cannot guarantee own loan", ErrInsufficientGuarantors)
		}
		g, err := tx.GetMembership(id)
		if err != nil {
			return nil, err
		}
		if g.ChamaID != applicant.ChamaID {
			return nil, fmt.Errorf("%w: guarantor belongs to a different chama", ErrInsufficientGuarantors)
		}
		if g.Status != models.MembershipStatusActive {
			return nil, fmt.Errorf("%w: guarantor is %s", ErrInsufficientGuarantors, g.Status)
		}
		out = append(out, g)
	}
	return out, nil
}

// Approve moves a pending application to APPROVED.
func (s *service) Approve(ctx context.Context, loanID, approverID uuid.UUID) error {
	return s.transition(ctx, loanID, &approverID, models.AuditActionApprove, func(l *models.Loan) error {
		if l.Status != models.LoanStatusPending {
			return fmt.Errorf("%w: %s -> APPROVED", ErrInvalidTransition, l.Status)
		}
		now := s.now().UTC()
		l.Status = models.LoanStatusApproved
		l.ApprovedByID = &approverID
		l.ApprovalDate = &now
		return nil
	})
}

// Reject declines a pending application. A reason is required.
func (s *service) Reject(ctx context.Context, loanID uuid.UUID, reason string, actorID uuid.UUID) error {
	if strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	return s.transition(ctx, loanID, &actorID, models.AuditActionReject, func(l *models.Loan) error {
		if l.Status != models.LoanStatusPending {
			return fmt.Errorf("%w: %s -> REJECTED", ErrInvalidTransition, l.Status)
		}
		l.Status = models.LoanStatusRejected
		l.RejectionReason = reason
		return nil
	})
}

// Disburse releases the approved funds and fixes the repayment window:
// the expected completion date is the disbursement date plus the
// repayment period.
func (s *service) Disburse(ctx context.Context, loanID uuid.UUID, date time.Time, actorID uuid.UUID) error {
	return s.transition(ctx, loanID, &actorID, models.AuditActionUpdate, func(l *models.Loan) error {
		if l.Status != models.LoanStatusApproved {
			return fmt.Errorf("%w: %s -> DISBURSED", ErrInvalidTransition, l.Status)
		}
		expected := date.AddDate(0, l.RepaymentPeriodMonths, 0)
		l.Status = models.LoanStatusDisbursed
		l.DisbursementDate = &date
		l.ExpectedCompletionDate = &expected
		return nil
	})
}

// ApplyRepayment applies one payment to the loan balance. The loan row
// lock serializes concurrent repayments; the paid total is recomputed
// from completed repayments rather than incremented, so a duplicate
// delivery that got rejected can never skew the balance.
func (s *service) ApplyRepayment(ctx context.Context, loanID uuid.UUID, req RepaymentRequest) (*RepaymentResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !validation.IsRepaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidMethod
	}
	if req.TransactionReference == "" || len(req.TransactionReference) > validation.MaxReferenceLength {
		return nil, ErrMissingReference
	}

	var (
		result *RepaymentResult
		member *models.ChamaMembership
		loan   *models.Loan
	)

	err := s.repo.ExecuteInTransaction(func(tx repositories.LoanRepository) error {
		l, err := tx.LockLoan(loanID)
		if err != nil {
			return err
		}
		if !l.Repayable() {
			return fmt.Errorf("%w: loan is %s", ErrLoanNotRepayable, l.Status)
		}

		if _, err := tx.GetRepaymentByReference(req.TransactionReference); err == nil {
			return ErrDuplicateReference
		} else if err != repositories.ErrRepaymentNotFound {
			return err
		}

		rp := &models.LoanRepayment{
			LoanID:               l.ID,
			Amount:               req.Amount,
			PaymentMethod:        req.PaymentMethod,
			TransactionReference: req.TransactionReference,
			PaymentDate:          req.PaymentDate,
			Status:               models.RepaymentStatusCompleted,
			RecordedByID:         req.RecordedBy,
		}
		if err := tx.CreateRepayment(rp); err != nil {
			if err == repositories.ErrDuplicateReference {
				return ErrDuplicateReference
			}
			return err
		}

		if l.Status == models.LoanStatusDisbursed {
			l.Status = models.LoanStatusActive
		}

		paid, err := tx.SumCompletedRepayments(l.ID)
		if err != nil {
			return err
		}

		balance := l.TotalAmount.Sub(paid)
		overpaid := balance < 0
		var excess models.Money
		if overpaid {
			excess = -balance
			balance = 0
		}

		l.AmountPaid = paid
		l.Balance = balance

		completed := false
		if balance == 0 && l.Status == models.LoanStatusActive {
			now := s.now().UTC()
			l.Status = models.LoanStatusCompleted
			l.ActualCompletionDate = &now
			completed = true
		}
		if err := tx.Update(l); err != nil {
			return err
		}

		if m, err := tx.GetMembership(l.MembershipID); err == nil {
			member = m
		}

		loan = l
		result = &RepaymentResult{
			Repayment:   rp,
			Balance:     balance,
			Overpayment: overpaid,
			Excess:      excess,
			Completed:   completed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Overpayment && s.notifier != nil && member != nil {
		s.notifier.NotifyOverpayment(ctx, member.UserID, loan.ChamaID, loan.LoanNumber, result.Excess)
	}
	if result.Completed && s.notifier != nil && member != nil {
		s.notifier.NotifyLoanStatus(ctx, member.UserID, loan.ChamaID, loan.LoanNumber, models.LoanStatusCompleted)
	}
	if s.audit != nil {
		s.audit.Record(ctx, &req.RecordedBy, models.AuditActionPayment, "Loan", loanID.String(),
			map[string]interface{}{
				"repayment":   int64(req.Amount),
				"amount_paid": int64(loan.AmountPaid),
				"balance":     int64(loan.Balance),
				"overpayment": result.Overpayment,
			})
	}
	return result, nil
}

// MarkDefaulted flags an active loan whose repayment window has lapsed
// with money still owed.
func (s *service) MarkDefaulted(ctx context.Context, loanID uuid.UUID, actorID uuid.UUID) error {
	return s.transition(ctx, loanID, &actorID, models.AuditActionUpdate, func(l *models.Loan) error {
		if l.Status != models.LoanStatusActive {
			return fmt.Errorf("%w: loan is %s", ErrNotEligibleForDefault, l.Status)
		}
		now := s.now().UTC()
		if l.ExpectedCompletionDate == nil || !now.After(*l.ExpectedCompletionDate) {
			return fmt.Errorf("%w: repayment window still open", ErrNotEligibleForDefault)
		}
		if l.Balance <= 0 {
			return fmt.Errorf("%w: nothing outstanding", ErrNotEligibleForDefault)
		}
		l.Status = models.LoanStatusDefaulted
		return nil
	})
}

func (s *service) Get(ctx context.Context, loanID uuid.UUID) (*models.Loan, error) {
	return s.repo.GetByID(loanID)
}

func (s *service) ListForMembership(ctx context.Context, membershipID uuid.UUID) ([]*models.Loan, error) {
	return s.repo.ListByMembership(membershipID)
}

func (s *service) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*models.LoanRepayment, error) {
	return s.repo.ListRepayments(loanID)
}

func (s *service) transition(ctx context.Context, loanID uuid.UUID, actorID *uuid.UUID, action string, mutate func(*models.Loan) error) error {
	var (
		before, after string
		loan          *models.Loan
		member        *models.ChamaMembership
	)
	err := s.repo.ExecuteInTransaction(func(tx repositories.LoanRepository) error {
		l, err := tx.LockLoan(loanID)
		if err != nil {
			return err
		}
		before = l.Status
		if err := mutate(l); err != nil {
			return err
		}
		after = l.Status
		if err := tx.Update(l); err != nil {
			return err
		}
		if m, err := tx.GetMembership(l.MembershipID); err == nil {
			member = m
		}
		loan = l
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil && member != nil && before != after {
		s.notifier.NotifyLoanStatus(ctx, member.UserID, loan.ChamaID, loan.LoanNumber, after)
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, action, "Loan", loanID.String(),
			map[string]interface{}{"status_before": before, "status_after": after})
	}
	return nil
}
