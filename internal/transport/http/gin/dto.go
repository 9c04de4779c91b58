package httpgin

import (
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/service/admin"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
)

type LineItemRequest struct {
	TicketTypeID int64   `json:"ticket_type_id" binding:"required"`
	Quantity     int     `json:"quantity" binding:"required,gt=0"`
	SeatIDs      []int64 `json:"seat_ids"`
}

type PurchaseRequest struct {
	UserID       int64             `json:"user_id"`
	EventID      int64             `json:"event_id" binding:"required"`
	Items        []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountCode string            `json:"discount_code"`
}

func (r PurchaseRequest) toService() booking.PurchaseRequest {
	items := make([]booking.LineItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, booking.LineItem{
			TicketTypeID: it.TicketTypeID,
			Quantity:     it.Quantity,
			SeatIDs:      it.SeatIDs,
		})
	}

	return booking.PurchaseRequest{
		UserID:       r.UserID,
		EventID:      r.EventID,
		Items:        items,
		DiscountCode: r.DiscountCode,
	}
}

type MarkFailedRequest struct {
	Reason string `json:"reason"`
}

type CheckInRequest struct {
	Code string `json:"code" binding:"required"`
}

type CreateUserRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

type CreateEventRequest struct {
	OrganizerID int64  `json:"organizer_id"`
	Title       string `json:"title" binding:"required"`
	Location    string `json:"location"`
	StartsAt    string `json:"starts_at" binding:"required"`
	Status      string `json:"status"`
}

type SetEventStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CreateTicketTypeRequest struct {
	Name           string `json:"name" binding:"required"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"gte=0"`
	TotalCapacity  int    `json:"total_capacity" binding:"required,gt=0"`
}

type UpdateTicketTypeRequest struct {
	Name           *string `json:"name"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	TotalCapacity  *int    `json:"total_capacity"`
}

func (r UpdateTicketTypeRequest) toPatch() domain.TicketTypePatch {
	return domain.TicketTypePatch{
		Name:           r.Name,
		UnitPriceCents: r.UnitPriceCents,
		TotalCapacity:  r.TotalCapacity,
	}
}

type CreateSeatsRequest struct {
	Seats []admin.SeatInput `json:"seats" binding:"required,min=1"`
}

type CreateDiscountRequest struct {
	Code     string `json:"code" binding:"required"`
	Type     string `json:"type" binding:"required,oneof=percentage fixed"`
	Value    int64  `json:"value" binding:"required,gt=0"`
	MaxUsage int    `json:"max_usage" binding:"required,gt=0"`
	Status   string `json:"status"`
}

type RegisterAttendeeRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

type UpdateAttendeeRequest struct {
	Status      *string    `json:"check_in_status"`
	CheckInTime *time.Time `json:"check_in_time"`
}

func (r UpdateAttendeeRequest) toPatch() domain.AttendeePatch {
	p := domain.AttendeePatch{CheckInTime: r.CheckInTime}
	if r.Status != nil {
		st := domain.CheckInStatus(*r.Status)
		p.Status = &st
	}
	return p
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type IDResponse struct {
	ID int64 `json:"id"`
}

type CreateSeatsResponse struct {
	Created int     `json:"created"`
	SeatIDs []int64 `json:"seat_ids"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
