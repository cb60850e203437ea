package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions
const (
	AuditActionCreate  = "CREATE"
	AuditActionUpdate  = "UPDATE"
	AuditActionApprove = "APPROVE"
	AuditActionReject  = "REJECT"
	AuditActionPayment = "PAYMENT"
)

// AuditLog records a committed mutation: who did what to which entity,
// with a before/after delta. Writing it never rolls back the mutation.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primarykey"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index"`
	Action     string     `gorm:"not null"`
	EntityType string     `gorm:"not null;index:idx_audit_entity"`
	EntityID   string     `gorm:"not null;index:idx_audit_entity"`
	Changes    JSON       `gorm:"type:jsonb"`
	IPAddress  string
	Timestamp  time.Time `gorm:"index"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
