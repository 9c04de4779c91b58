package booking

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	maxLineItems    = 20
	maxItemQuantity = 50
)

var (
	errSeatCount     = errors.New("seat count must equal quantity")
	errDuplicateSeat = errors.New("seat requested more than once")
)

type LineItem struct {
	TicketTypeID int64   `json:"ticket_type_id"`
	Quantity     int     `json:"quantity"`
	SeatIDs      []int64 `json:"seat_ids,omitempty"`
}

func (i LineItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.TicketTypeID, validation.Required, validation.Min(int64(1))),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1), validation.Max(maxItemQuantity)),
		validation.Field(&i.SeatIDs, validation.By(func(any) error {
			if len(i.SeatIDs) > 0 && len(i.SeatIDs) != i.Quantity {
				return errSeatCount
			}
			return nil
		})),
	)
}

type PurchaseRequest struct {
	UserID       int64      `json:"user_id"`
	EventID      int64      `json:"event_id"`
	Items        []LineItem `json:"items"`
	DiscountCode string     `json:"discount_code,omitempty"`
}

// Validate checks the request shape. It never touches storage.
func (r *PurchaseRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.EventID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Items, validation.Required, validation.Length(1, maxLineItems)),
		validation.Field(&r.DiscountCode, validation.Length(0, 64)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	seen := make(map[int64]struct{})
	for _, item := range r.Items {
		for _, id := range item.SeatIDs {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: %v (seat %d)", ErrInvalidRequest, errDuplicateSeat, id)
			}
			seen[id] = struct{}{}
		}
	}

	return nil
}
