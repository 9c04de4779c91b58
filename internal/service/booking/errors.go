package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest           = errors.New("invalid purchase request")
	ErrUserNotFound             = errors.New("user not found")
	ErrEventNotFound            = errors.New("event not found")
	ErrEventNotSellable         = errors.New("event is not on sale")
	ErrTicketTypeMismatch       = errors.New("ticket type does not belong to event")
	ErrInsufficientInventory    = errors.New("insufficient inventory")
	ErrSeatUnavailable          = errors.New("seat unavailable")
	ErrDiscountInvalid          = errors.New("discount code invalid")
	ErrDiscountExhausted        = errors.New("discount code exhausted")
	ErrDiscountAlreadyUsed      = errors.New("discount code already used")
	ErrPurchaseFailed           = errors.New("purchase failed, retry later")
	ErrInvariantViolation       = errors.New("invariant violation")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrInvalidPaymentTransition = errors.New("invalid payment transition")
)

type TicketTypeMismatchError struct {
	TicketTypeID int64
	EventID      int64
}

func (e TicketTypeMismatchError) Error() string {
	return fmt.Sprintf("ticket type %d does not belong to event %d", e.TicketTypeID, e.EventID)
}

func (e TicketTypeMismatchError) Is(target error) bool {
	return target == ErrTicketTypeMismatch
}

type InsufficientInventoryError struct {
	TicketTypeID int64
	Requested    int
}

func (e InsufficientInventoryError) Error() string {
	return fmt.Sprintf("ticket type %d: fewer than %d tickets left", e.TicketTypeID, e.Requested)
}

func (e InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// SeatUnavailableError names the first seat that could not be taken and
// lists all of them.
type SeatUnavailableError struct {
	SeatMapID int64
	SeatIDs   []int64
}

func (e SeatUnavailableError) Error() string {
	return fmt.Sprintf("seat %d unavailable", e.SeatMapID)
}

func (e SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}
