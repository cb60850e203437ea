package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cycle statuses
const (
	CycleStatusUpcoming  = "UPCOMING"
	CycleStatusActive    = "ACTIVE"
	CycleStatusCompleted = "COMPLETED"
	CycleStatusCancelled = "CANCELLED"
)

// Contribution statuses
const (
	ContributionStatusPending    = "PENDING"
	ContributionStatusProcessing = "PROCESSING"
	ContributionStatusCompleted  = "COMPLETED"
	ContributionStatusFailed     = "FAILED"
	ContributionStatusRefunded   = "REFUNDED"
)

// Contribution payment methods
const (
	PaymentMethodMpesa = "MPESA"
	PaymentMethodBank  = "BANK"
	PaymentMethodCash  = "CASH"
	PaymentMethodCard  = "CARD"
)

// ContributionCycle is one collection-and-payout round. CollectedAmount
// is always recomputed from completed contributions, never incremented;
// BeneficiaryID is immutable once assigned.
type ContributionCycle struct {
	ID              uuid.UUID `gorm:"type:uuid;primarykey"`
	ChamaID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chama_cycle;index"`
	CycleNumber     int       `gorm:"not null;uniqueIndex:idx_chama_cycle"`
	StartDate       time.Time `gorm:"not null"`
	EndDate         time.Time `gorm:"not null"`
	ExpectedAmount  Money     `gorm:"not null"`
	CollectedAmount Money     `gorm:"default:0"`
	BeneficiaryID   uuid.UUID `gorm:"type:uuid;not null"`
	PayoutAmount    Money     `gorm:"default:0"`
	PayoutDate      *time.Time
	Status          string `gorm:"default:'UPCOMING';index"`
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c *ContributionCycle) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Open reports whether the cycle still accepts contributions.
func (c *ContributionCycle) Open() bool {
	return c.Status == CycleStatusUpcoming || c.Status == CycleStatusActive
}

// Contribution is one member payment toward a cycle. The transaction
// reference is globally unique and is the dedup key for at-least-once
// delivery from payment callbacks.
type Contribution struct {
	ID                   uuid.UUID `gorm:"type:uuid;primarykey"`
	CycleID              uuid.UUID `gorm:"type:uuid;not null;index"`
	MembershipID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Amount               Money     `gorm:"not null"`
	PaymentMethod        string    `gorm:"not null"`
	TransactionReference string    `gorm:"uniqueIndex;not null"`
	MpesaReceiptNumber   string
	PaymentDate          time.Time `gorm:"not null;index"`
	Status               string    `gorm:"default:'PENDING';index"`
	LatePayment          bool      `gorm:"default:false"`
	PenaltyAmount        Money     `gorm:"default:0"`
	Notes                string
	RecordedByID         uuid.UUID `gorm:"type:uuid"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (c *Contribution) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
