// Package meeting manages chama meeting scheduling, lifecycle and
// per-member attendance tracking. Meeting numbers are sequential per
// chama; attendance is unique per meeting and member, with PRESENT and
// LATE both counting toward a member's attendance rate.
package meeting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chamapesa/internal/models"
	"chamapesa/internal/repositories"
	"chamapesa/internal/validation"

	"github.com/google/uuid"
)

// ScheduleRequest carries the fields needed to schedule a meeting.
type ScheduleRequest struct {
	ChamaID       uuid.UUID
	Title         string
	ScheduledDate time.Time
	Location      string
	Agenda        string
	SecretaryID   uuid.UUID
}

// AttendanceRequest records one member's presence.
type AttendanceRequest struct {
	MembershipID uuid.UUID
	Status       string
	ArrivalTime  *time.Time
	Notes        string
}

// Service defines meeting operations.
type Service interface {
	Schedule(ctx context.Context, req ScheduleRequest) (*models.Meeting, error)
	Start(ctx context.Context, meetingID uuid.UUID) error
	Complete(ctx context.Context, meetingID uuid.UUID, minutes string) error
	Cancel(ctx context.Context, meetingID uuid.UUID) error
	RecordAttendance(ctx context.Context, meetingID uuid.UUID, req AttendanceRequest) (*models.MeetingAttendance, error)
	Get(ctx context.Context, meetingID uuid.UUID) (*models.Meeting, error)
	List(ctx context.Context, chamaID uuid.UUID, limit, offset int) ([]*models.Meeting, error)
	Attendance(ctx context.Context, meetingID uuid.UUID) ([]*models.MeetingAttendance, error)
	AttendanceRate(ctx context.Context, membershipID uuid.UUID) (float64, error)
}

type service struct {
	repo repositories.MeetingRepository
	now  func() time.Time
}

func NewService(repo repositories.MeetingRepository, now func() time.Time) Service {
	if repo == nil {
		panic("meeting repo is required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}
}

// Schedule creates a meeting with the next sequential number for the chama.
func (s *service) Schedule(ctx context.Context, req ScheduleRequest) (*models.Meeting, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrMissingTitle
	}

	max, err := s.repo.MaxMeetingNumber(req.ChamaID)
	if err != nil {
		return nil, err
	}

	m := &models.Meeting{
		ChamaID:       req.ChamaID,
		Title:         req.Title,
		MeetingNumber: max + 1,
		ScheduledDate: req.ScheduledDate,
		Location:      req.Location,
		Agenda:        req.Agenda,
		Status:        models.MeetingStatusScheduled,
		SecretaryID:   req.SecretaryID,
	}
	if err := s.repo.CreateMeeting(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) Start(ctx context.Context, meetingID uuid.UUID) error {
	return s.transition(meetingID, func(m *models.Meeting) error {
		if m.Status != models.MeetingStatusScheduled {
			return fmt.Errorf("%w: %s -> ONGOING", ErrInvalidTransition, m.Status)
		}
		now := s.now().UTC()
		m.Status = models.MeetingStatusOngoing
		m.ActualStartTime = &now
		return nil
	})
}

func (s *service) Complete(ctx context.Context, meetingID uuid.UUID, minutes string) error {
	return s.transition(meetingID, func(m *models.Meeting) error {
		if m.Status != models.MeetingStatusOngoing {
			return fmt.Errorf("%w: %s -> COMPLETED", ErrInvalidTransition, m.Status)
		}
		now := s.now().UTC()
		m.Status = models.MeetingStatusCompleted
		m.ActualEndTime = &now
		m.Minutes = minutes
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, meetingID uuid.UUID) error {
	return s.transition(meetingID, func(m *models.Meeting) error {
		if m.Status == models.MeetingStatusCompleted || m.Status == models.MeetingStatusCancelled {
			return fmt.Errorf("%w: %s -> CANCELLED", ErrInvalidTransition, m.Status)
		}
		m.Status = models.MeetingStatusCancelled
		return nil
	})
}

// RecordAttendance registers a member's presence. Only one record per
// member per meeting is accepted, and only while the meeting is
// scheduled or ongoing.
func (s *service) RecordAttendance(ctx context.Context, meetingID uuid.UUID, req AttendanceRequest) (*models.MeetingAttendance, error) {
	if !validation.IsAttendanceStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	m, err := s.repo.GetMeetingByID(meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingStatusScheduled && m.Status != models.MeetingStatusOngoing {
		return nil, fmt.Errorf("%w: meeting is %s", ErrMeetingNotOpen, m.Status)
	}

	a := &models.MeetingAttendance{
		MeetingID:    meetingID,
		MembershipID: req.MembershipID,
		Status:       req.Status,
		ArrivalTime:  req.ArrivalTime,
		Notes:        req.Notes,
	}
	if err := s.repo.CreateAttendance(a); err != nil {
		if err == repositories.ErrDuplicateAttendance {
			return nil, ErrDuplicateAttendance
		}
		return nil, err
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, meetingID uuid.UUID) (*models.Meeting, error) {
	return s.repo.GetMeetingByID(meetingID)
}

func (s *service) List(ctx context.Context, chamaID uuid.UUID, limit, offset int) ([]*models.Meeting, error) {
	return s.repo.ListMeetingsByChama(chamaID, limit, offset)
}

func (s *service) Attendance(ctx context.Context, meetingID uuid.UUID) ([]*models.MeetingAttendance, error) {
	return s.repo.ListAttendance(meetingID)
}

// AttendanceRate returns the fraction of recorded meetings the member
// attended. PRESENT and LATE count as attended. Zero records yields 0.
func (s *service) AttendanceRate(ctx context.Context, membershipID uuid.UUID) (float64, error) {
	present, total, err := s.repo.AttendanceCounts(membershipID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(present) / float64(total), nil
}

func (s *service) transition(meetingID uuid.UUID, mutate func(*models.Meeting) error) error {
	m, err := s.repo.GetMeetingByID(meetingID)
	if err != nil {
		return err
	}
	if err := mutate(m); err != nil {
		return err
	}
	return s.repo.UpdateMeeting(m)
}
