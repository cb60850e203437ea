// Package notification persists core engine events as notification rows.
// Delivery and channel selection belong to a separate worker; the core
// only emits. Failures here are logged and never propagated.
package notification

import (
	"context"
	"fmt"
	"log"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"

	"github.com/google/uuid"
)

// Service is the notification sink used by the core engines.
type Service struct {
	repo repositories.NotificationRepository
}

func NewService(repo repositories.NotificationRepository) *Service {
	if repo == nil {
		panic("notification repo is required")
	}
	return &Service{repo: repo}
}

// Notify persists one notification event. Errors are logged, not returned.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, chamaID *uuid.UUID, typ, title, message string, metadata map[string]interface{}) {
	n := &models.Notification{
		UserID:   userID,
		ChamaID:  chamaID,
		Type:     typ,
		Channel:  models.ChannelInApp,
		Title:    title,
		Message:  message,
		Status:   models.NotificationStatusPending,
		Metadata: models.NewJSON(metadata),
	}
	if err := s.repo.Create(n); err != nil {
		log.Printf("notification write failed for user %s: %v", userID, err)
	}
}

// NotifyPayout emits a cycle-completion event for the beneficiary.
func (s *Service) NotifyPayout(ctx context.Context, userID, chamaID uuid.UUID, amount models.Money, cycleNumber int) {
	s.Notify(ctx, userID, &chamaID, models.NotificationPayout,
		"Cycle payout",
		fmt.Sprintf("You are the beneficiary of cycle %d: %s", cycleNumber, amount),
		map[string]interface{}{"cycle_number": cycleNumber, "amount": int64(amount)})
}

// NotifyLoanStatus emits a loan status-change event.
func (s *Service) NotifyLoanStatus(ctx context.Context, userID, chamaID uuid.UUID, loanNumber, status string) {
	typ := models.NotificationLoanStatus
	switch status {
	case models.LoanStatusApproved:
		typ = models.NotificationLoanApproval
	case models.LoanStatusRejected:
		typ = models.NotificationLoanRejection
	}
	s.Notify(ctx, userID, &chamaID, typ,
		"Loan "+status,
		fmt.Sprintf("Loan %s is now %s", loanNumber, status),
		map[string]interface{}{"loan_number": loanNumber, "status": status})
}

// NotifyLatePayment emits a late-contribution event.
func (s *Service) NotifyLatePayment(ctx context.Context, userID, chamaID uuid.UUID, penalty models.Money) {
	s.Notify(ctx, userID, &chamaID, models.NotificationLatePayment,
		"Late contribution",
		fmt.Sprintf("Contribution recorded after the cycle deadline; penalty %s applied", penalty),
		map[string]interface{}{"penalty": int64(penalty)})
}

// NotifyOverpayment emits the overpayment anomaly event. The loan still
// completes; this exists for the audit trail.
func (s *Service) NotifyOverpayment(ctx context.Context, userID, chamaID uuid.UUID, loanNumber string, excess models.Money) {
	s.Notify(ctx, userID, &chamaID, models.NotificationOverpayment,
		"Loan overpayment",
		fmt.Sprintf("Repayment on loan %s exceeds the outstanding balance by %s", loanNumber, excess),
		map[string]interface{}{"loan_number": loanNumber, "excess": int64(excess)})
}
