package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership statuses
const (
	MembershipStatusPending   = "PENDING"
	MembershipStatusActive    = "ACTIVE"
	MembershipStatusSuspended = "SUSPENDED"
	MembershipStatusWithdrawn = "WITHDRAWN"
)

// ChamaMembership joins a user to a chama. PositionInRotation is unique
// within the chama and drives beneficiary selection; TotalContributed is
// a running ledger total that only ever grows while the member is active.
type ChamaMembership struct {
	ID                 uuid.UUID `gorm:"type:uuid;primarykey"`
	ChamaID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chama_user;uniqueIndex:idx_chama_position;index"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chama_user"`
	PositionInRotation int       `gorm:"not null;uniqueIndex:idx_chama_position"`
	MembershipNumber   string    `gorm:"not null"`
	Status             string    `gorm:"default:'PENDING';index"`
	JoinedDate         time.Time
	ExitDate           *time.Time
	HasReceivedPayout  bool `gorm:"default:false"`
	PayoutReceivedDate *time.Time
	TotalContributed   Money `gorm:"default:0"`
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (m *ChamaMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// EligibleForRotation reports whether the member can still be selected
// as a cycle beneficiary.
func (m *ChamaMembership) EligibleForRotation() bool {
	return m.Status == MembershipStatusActive
}
