package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationContributionReminder = "CONTRIBUTION_REMINDER"
	NotificationPayout               = "PAYOUT_NOTIFICATION"
	NotificationLoanApproval         = "LOAN_APPROVAL"
	NotificationLoanRejection        = "LOAN_REJECTION"
	NotificationLoanStatus           = "LOAN_STATUS"
	NotificationMeetingReminder      = "MEETING_REMINDER"
	NotificationPaymentReceived      = "PAYMENT_RECEIVED"
	NotificationLatePayment          = "LATE_PAYMENT"
	NotificationOverpayment          = "OVERPAYMENT"
	NotificationGeneral              = "GENERAL"
)

// Notification channels
const (
	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
	ChannelPush  = "PUSH"
	ChannelInApp = "IN_APP"
)

// Notification statuses
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
	NotificationStatusRead    = "READ"
)

// Notification is a persisted event emitted by the core engines.
// Delivery and channel selection are the notification worker's concern.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primarykey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ChamaID   *uuid.UUID `gorm:"type:uuid;index"`
	Type      string     `gorm:"not null"`
	Channel   string     `gorm:"default:'IN_APP'"`
	Title     string     `gorm:"not null"`
	Message   string
	Status    string `gorm:"default:'PENDING';index"`
	SentAt    *time.Time
	ReadAt    *time.Time
	Metadata  JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
