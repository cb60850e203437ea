package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payout statuses
const (
	PayoutStatusPending    = "PENDING"
	PayoutStatusApproved   = "APPROVED"
	PayoutStatusProcessing = "PROCESSING"
	PayoutStatusCompleted  = "COMPLETED"
	PayoutStatusFailed     = "FAILED"
	PayoutStatusCancelled  = "CANCELLED"
)

// Payout payment methods
const (
	PayoutMethodMpesa  = "MPESA"
	PayoutMethodBank   = "BANK"
	PayoutMethodCash   = "CASH"
	PayoutMethodCheque = "CHEQUE"
)

// Payout is the single disbursement tied 1:1 to a completed cycle's
// beneficiary.
type Payout struct {
	ID                   uuid.UUID `gorm:"type:uuid;primarykey"`
	CycleID              uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	MembershipID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount               Money     `gorm:"not null"`
	PaymentMethod        string    `gorm:"not null"`
	TransactionReference string    `gorm:"uniqueIndex;not null"`
	MpesaReceiptNumber   string
	ScheduledDate        time.Time `gorm:"not null"`
	ActualPaymentDate    *time.Time
	Status               string     `gorm:"default:'PENDING';index"`
	ApprovedByID         *uuid.UUID `gorm:"type:uuid"`
	ApprovalDate         *time.Time
	ProcessedByID        *uuid.UUID `gorm:"type:uuid"`
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the payout has reached a final state.
func (p *Payout) Terminal() bool {
	switch p.Status {
	case PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	}
	return false
}
