package loan

import (
	"context"
	"time"

	"chamapesa/internal/models"

	"github.com/google/uuid"
)

// ApplyRequest is a loan application.
type ApplyRequest struct {
	MembershipID          uuid.UUID
	Principal             models.Money
	RepaymentPeriodMonths int
	Purpose               string
	GuarantorIDs          []uuid.UUID
}

// RepaymentRequest records one payment against a loan.
type RepaymentRequest struct {
	Amount               models.Money
	PaymentMethod        string
	TransactionReference string
	PaymentDate          time.Time
	RecordedBy           uuid.UUID
}

// RepaymentResult reports the loan state after a repayment was applied.
// Overpayment is a flagged anomaly, not an error: the balance clamps at
// zero and the excess is reported for audit.
type RepaymentResult struct {
	Repayment   *models.LoanRepayment
	Balance     models.Money
	Overpayment bool
	Excess      models.Money
	Completed   bool
}

// AuditSink records committed mutations. Failures never propagate.
type AuditSink interface {
	Record(ctx context.Context, actorID *uuid.UUID, action, entityType, entityID string, changes map[string]interface{})
}

// Notifier receives loan lifecycle events.
type Notifier interface {
	NotifyLoanStatus(ctx context.Context, userID, chamaID uuid.UUID, loanNumber, status string)
	NotifyOverpayment(ctx context.Context, userID, chamaID uuid.UUID, loanNumber string, excess models.Money)
}

// Clock supplies the current time; tests substitute a fixed one.
type Clock func() time.Time

// MaxGuarantors is the most co-signers a loan record can carry.
const MaxGuarantors = 2
