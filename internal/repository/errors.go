package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrSeatsUnavailable      = errors.New("some seats unavailable")
	ErrReservationExpired    = errors.New("reservation expired")
	ErrReservationNotPending = errors.New("reservation not pending")
	ErrDiscountInactive      = errors.New("discount inactive")
	ErrDiscountExhausted     = errors.New("discount exhausted")
	ErrDiscountAlreadyUsed   = errors.New("discount already used")
	ErrCodeCollision         = errors.New("code collision")
	ErrInvalidState          = errors.New("invalid state")
	ErrNotPaid               = errors.New("booking not paid")
	ErrReferenced            = errors.New("still referenced")
	ErrInvariantViolation    = errors.New("invariant violation")
)

// SeatsUnavailableError names the seats that could not be reserved.
type SeatsUnavailableError struct {
	SeatIDs []int64
}

func (e SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

func (e SeatsUnavailableError) Is(target error) bool {
	return target == ErrSeatsUnavailable
}
