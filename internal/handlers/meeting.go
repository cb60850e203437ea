package handlers

import (
	"errors"
	"time"

	"chamapesa/internal/repositories"
	"chamapesa/internal/services/meeting"
	"chamapesa/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MeetingHandler struct {
	meetingService meeting.Service
}

func NewMeetingHandler(meetingService meeting.Service) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService}
}

// ScheduleMeeting creates a meeting with the next sequential number.
func (h *MeetingHandler) ScheduleMeeting(c *fiber.Ctx) error {
	chamaID, err := uuid.Parse(c.Params("chamaID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	var input struct {
		Title         string    `json:"title"`
		ScheduledDate time.Time `json:"scheduled_date"`
		Location      string    `json:"location"`
		Agenda        string    `json:"agenda"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Invalid claims")
	}

	created, err := h.meetingService.Schedule(c.Context(), meeting.ScheduleRequest{
		ChamaID:       chamaID,
		Title:         input.Title,
		ScheduledDate: input.ScheduledDate,
		Location:      input.Location,
		Agenda:        input.Agenda,
		SecretaryID:   claims.UserID,
	})
	if err != nil {
		if errors.Is(err, meeting.ErrMissingTitle) {
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalError(c, "Failed to schedule meeting")
	}

	return utils.Created(c, created)
}

// StartMeeting marks the meeting as ongoing.
func (h *MeetingHandler) StartMeeting(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid meeting ID")
	}
	if err := h.meetingService.Start(c.Context(), id); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Meeting started"})
}

// CompleteMeeting finishes the meeting and records the minutes.
func (h *MeetingHandler) CompleteMeeting(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid meeting ID")
	}

	var input struct {
		Minutes string `json:"minutes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	if err := h.meetingService.Complete(c.Context(), id, input.Minutes); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Meeting completed"})
}

// CancelMeeting abandons a scheduled or ongoing meeting.
func (h *MeetingHandler) CancelMeeting(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid meeting ID")
	}
	if err := h.meetingService.Cancel(c.Context(), id); err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "Meeting cancelled"})
}

// RecordAttendance registers a member's presence at the meeting.
func (h *MeetingHandler) RecordAttendance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid meeting ID")
	}

	var input struct {
		MembershipID string     `json:"membership_id"`
		Status       string     `json:"status"`
		ArrivalTime  *time.Time `json:"arrival_time"`
		Notes        string     `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	membershipID, err := uuid.Parse(input.MembershipID)
	if err != nil {
		return utils.BadRequest(c, "Invalid membership ID")
	}

	a, err := h.meetingService.RecordAttendance(c.Context(), id, meeting.AttendanceRequest{
		MembershipID: membershipID,
		Status:       input.Status,
		ArrivalTime:  input.ArrivalTime,
		Notes:        input.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMeetingNotFound):
			return utils.NotFound(c, "Meeting not found")
		case errors.Is(err, meeting.ErrDuplicateAttendance):
			return utils.Conflict(c, err.Error())
		case errors.Is(err, meeting.ErrMeetingNotOpen),
			errors.Is(err, meeting.ErrInvalidStatus):
			return utils.BadRequest(c, err.Error())
		default:
			return utils.InternalError(c, "Failed to record attendance")
		}
	}

	return utils.Created(c, a)
}

// GetMeeting returns one meeting.
func (h *MeetingHandler) GetMeeting(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid meeting ID")
	}

	found, err := h.meetingService.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return utils.Success(c, found)
}

// ListMeetings returns a chama's meetings, newest first.
func (h *MeetingHandler) ListMeetings(c *fiber.Ctx) error {
	chamaID, err := uuid.Parse(c.Params("chamaID"))
	if err != nil {
		return utils.BadRequest(c, "Invalid chama ID")
	}

	p := utils.ParsePageParams(c)
	meetings, err := h.meetingService.List(c.Context(), chamaID, p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "Failed to list meetings")
	}
	return utils.Success(c, fiber.Map{
		"meetings": meetings,
		"page":     p.Page,
		"limit":    p.Limit,
	})
}

// ListAttendance returns attendance records for a meeting.
func (h *MeetingHandler) ListAttendance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid meeting ID")
	}

	attendance, err := h.meetingService.Attendance(c.Context(), id)
	if err != nil {
		return utils.InternalError(c, "Failed to list attendance")
	}
	return utils.Success(c, fiber.Map{"attendance": attendance})
}

func (h *MeetingHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrMeetingNotFound):
		return utils.NotFound(c, "Meeting not found")
	case errors.Is(err, meeting.ErrInvalidTransition):
		return utils.BadRequest(c, err.Error())
	default:
		return utils.InternalError(c, "Meeting operation failed")
	}
}
