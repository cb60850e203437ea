package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chama statuses
const (
	ChamaStatusActive    = "ACTIVE"
	ChamaStatusInactive  = "INACTIVE"
	ChamaStatusSuspended = "SUSPENDED"
	ChamaStatusClosed    = "CLOSED"
)

// Contribution frequencies
const (
	FrequencyDaily    = "DAILY"
	FrequencyWeekly   = "WEEKLY"
	FrequencyBiweekly = "BIWEEKLY"
	FrequencyMonthly  = "MONTHLY"
)

// MinContributionAmount is the smallest contribution a chama may set.
const MinContributionAmount = Money(10000) // 100.00

// Policy defaults applied when a chama is created without explicit values.
const (
	DefaultCompletionThreshold = Ratio(1.0)
	DefaultPayoutRatio         = Ratio(0.95)
)

// Chama is a rotating savings and credit group. Financial policy
// (contribution amount, penalty, interest rate, completion threshold,
// payout ratio) lives here and is snapshotted by the engines that use it.
type Chama struct {
	ID                    uuid.UUID `gorm:"type:uuid;primarykey"`
	Name                  string    `gorm:"uniqueIndex;not null"`
	Description           string
	RegistrationNumber    string  `gorm:"uniqueIndex;default:null"`
	ContributionAmount    Money   `gorm:"not null"`
	ContributionFrequency string  `gorm:"not null"`
	LatePaymentPenalty    Money   `gorm:"default:0"`
	LoanInterestRate      Percent `gorm:"not null"`
	MaxMembers            int     `gorm:"default:50"`
	MinGuarantors         int     `gorm:"default:2"`
	CompletionThreshold   Ratio   `gorm:"default:1.0"`
	PayoutRatio           Ratio   `gorm:"default:0.95"`
	MeetingDay            string
	MeetingLocation       string
	Status                string `gorm:"default:'ACTIVE';index"`
	BankAccountName       string
	BankAccountNumber     string
	BankName              string
	MpesaPaybill          string
	MpesaAccountNumber    string
	CreatedByID           uuid.UUID `gorm:"type:uuid"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (c *Chama) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SettingsMutable reports whether financial settings may still change.
func (c *Chama) SettingsMutable() bool {
	return c.Status != ChamaStatusClosed
}
