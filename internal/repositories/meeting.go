package repositories

import (
	"errors"
	"fmt"

	"chamapesa/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrDuplicateAttendance = errors.New("attendance already recorded")
)

// MeetingRepository defines meeting and attendance database operations.
type MeetingRepository interface {
	CreateMeeting(m *models.Meeting) error
	GetMeetingByID(id uuid.UUID) (*models.Meeting, error)
	UpdateMeeting(m *models.Meeting) error
	ListMeetingsByChama(chamaID uuid.UUID, limit, offset int) ([]*models.Meeting, error)
	MaxMeetingNumber(chamaID uuid.UUID) (int, error)

	CreateAttendance(a *models.MeetingAttendance) error
	ListAttendance(meetingID uuid.UUID) ([]*models.MeetingAttendance, error)
	AttendanceCounts(membershipID uuid.UUID) (present int64, total int64, err error)
}

type meetingRepository struct {
	db *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) CreateMeeting(m *models.Meeting) error {
	if err := r.db.Create(m).Error; err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

func (r *meetingRepository) GetMeetingByID(id uuid.UUID) (*models.Meeting, error) {
	var m models.Meeting
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &m, nil
}

func (r *meetingRepository) UpdateMeeting(m *models.Meeting) error {
	if err := r.db.Save(m).Error; err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	return nil
}

func (r *meetingRepository) ListMeetingsByChama(chamaID uuid.UUID, limit, offset int) ([]*models.Meeting, error) {
	var meetings []*models.Meeting
	err := r.db.Where("chama_id = ?", chamaID).
		Order("scheduled_date DESC").
		Limit(limit).Offset(offset).
		Find(&meetings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

func (r *meetingRepository) MaxMeetingNumber(chamaID uuid.UUID) (int, error) {
	var max int
	err := r.db.Model(&models.Meeting{}).
		Where("chama_id = ?", chamaID).
		Select("COALESCE(MAX(meeting_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get max meeting number: %w", err)
	}
	return max, nil
}

func (r *meetingRepository) CreateAttendance(a *models.MeetingAttendance) error {
	if err := r.db.Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAttendance
		}
		return fmt.Errorf("failed to create attendance: %w", err)
	}
	return nil
}

func (r *meetingRepository) ListAttendance(meetingID uuid.UUID) ([]*models.MeetingAttendance, error) {
	var attendance []*models.MeetingAttendance
	err := r.db.Where("meeting_id = ?", meetingID).Find(&attendance).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return attendance, nil
}

func (r *meetingRepository) AttendanceCounts(membershipID uuid.UUID) (int64, int64, error) {
	var present, total int64
	err := r.db.Model(&models.MeetingAttendance{}).
		Where("membership_id = ?", membershipID).
		Count(&total).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	err = r.db.Model(&models.MeetingAttendance{}).
		Where("membership_id = ? AND status IN ?", membershipID,
			[]string{models.AttendancePresent, models.AttendanceLate}).
		Count(&present).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return present, total, nil
}
