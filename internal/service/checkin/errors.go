package checkin

import "errors"

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrPaymentPending    = errors.New("booking is not paid")
	ErrAttendeeNotFound  = errors.New("attendee not found")
	ErrAttendeeExists    = errors.New("user is already an attendee of the event")
	ErrEventOrUserAbsent = errors.New("event or user not found")
	ErrInvalidStatus     = errors.New("invalid check-in status")
)
