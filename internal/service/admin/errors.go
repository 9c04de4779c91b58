package admin

import (
	"errors"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrTicketTypeInUse    = errors.New("ticket type is referenced by bookings or holds")
	ErrDiscountConflict   = errors.New("discount code already exists for event")
	ErrUserConflict       = errors.New("user already exists")
	ErrCapacityBelowSold  = errors.New("capacity below sold and held tickets")
)
