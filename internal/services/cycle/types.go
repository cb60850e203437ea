package cycle

import (
	"context"
	"time"

	"chamapesa/internal/models"

	"github.com/google/uuid"
)

// OpenCycleRequest starts a new collection round.
type OpenCycleRequest struct {
	ChamaID     uuid.UUID
	CycleNumber int
	StartDate   time.Time
	EndDate     time.Time
	Notes       string
}

// RecordPaymentRequest records one member contribution toward a cycle.
type RecordPaymentRequest struct {
	MembershipID         uuid.UUID
	Amount               models.Money
	PaymentMethod        string
	TransactionReference string
	MpesaReceiptNumber   string
	PaymentDate          time.Time
	Status               string // defaults to PENDING
	RecordedBy           uuid.UUID
}

// AuditSink records committed mutations. Failures never propagate.
type AuditSink interface {
	Record(ctx context.Context, actorID *uuid.UUID, action, entityType, entityID string, changes map[string]interface{})
}

// Notifier receives engine events. Delivery is not the engine's concern.
type Notifier interface {
	NotifyPayout(ctx context.Context, userID, chamaID uuid.UUID, amount models.Money, cycleNumber int)
	NotifyLatePayment(ctx context.Context, userID, chamaID uuid.UUID, penalty models.Money)
}

// Clock supplies the current time; tests substitute a fixed one.
type Clock func() time.Time
