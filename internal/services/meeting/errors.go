package meeting

import "errors"

var (
	ErrInvalidTransition   = errors.New("invalid meeting status transition")
	ErrMeetingNotOpen      = errors.New("meeting is not open for attendance")
	ErrDuplicateAttendance = errors.New("attendance already recorded for member")
	ErrInvalidStatus       = errors.New("invalid attendance status")
	ErrMissingTitle        = errors.New("meeting title is required")
)
