package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meeting statuses
const (
	MeetingStatusScheduled = "SCHEDULED"
	MeetingStatusOngoing   = "ONGOING"
	MeetingStatusCompleted = "COMPLETED"
	MeetingStatusCancelled = "CANCELLED"
)

// Attendance statuses
const (
	AttendancePresent = "PRESENT"
	AttendanceAbsent  = "ABSENT"
	AttendanceExcused = "EXCUSED"
	AttendanceLate    = "LATE"
)

// Meeting tracks one chama meeting.
type Meeting struct {
	ID              uuid.UUID `gorm:"type:uuid;primarykey"`
	ChamaID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Title           string    `gorm:"not null"`
	MeetingNumber   int       `gorm:"not null"`
	ScheduledDate   time.Time `gorm:"not null;index"`
	ActualStartTime *time.Time
	ActualEndTime   *time.Time
	Location        string
	Agenda          string
	Minutes         string
	Status          string    `gorm:"default:'SCHEDULED';index"`
	SecretaryID     uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MeetingAttendance records one member's presence at a meeting.
type MeetingAttendance struct {
	ID           uuid.UUID `gorm:"type:uuid;primarykey"`
	MeetingID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_meeting_member"`
	MembershipID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_meeting_member"`
	Status       string    `gorm:"default:'ABSENT'"`
	ArrivalTime  *time.Time
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *MeetingAttendance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
