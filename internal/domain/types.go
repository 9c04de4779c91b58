package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventCancelled, EventCompleted:
		return true
	}
	return false
}

// Sellable reports whether tickets for an event in this status may be purchased.
func (s EventStatus) Sellable() bool {
	return s == EventPublished
}

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatPending   SeatStatus = "pending"
	SeatBooked    SeatStatus = "booked"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

type TicketStatus string

const (
	TicketValid   TicketStatus = "valid"
	TicketUsed    TicketStatus = "used"
	TicketExpired TicketStatus = "expired"
)

// Terminal reports whether no further transition is allowed out of the status.
func (s TicketStatus) Terminal() bool {
	return s == TicketUsed || s == TicketExpired
}

type UserRole string

const (
	RoleAttendee  UserRole = "attendee"
	RoleOrganizer UserRole = "organizer"
)

type User struct {
	ID    int64
	Email string
	Role  UserRole
}

type Event struct {
	ID          int64       `json:"id"`
	OrganizerID int64       `json:"organizer_id"`
	Title       string      `json:"title"`
	Location    string      `json:"location"`
	StartsAt    time.Time   `json:"starts_at"`
	Status      EventStatus `json:"status"`
}

type TicketType struct {
	ID                int64  `json:"id"`
	EventID           int64  `json:"event_id"`
	Name              string `json:"name"`
	UnitPriceCents    int64  `json:"unit_price_cents"`
	TotalCapacity     int    `json:"total_capacity"`
	RemainingCapacity int    `json:"remaining_capacity"`
}

type SeatMap struct {
	ID            int64      `json:"id"`
	EventID       int64      `json:"event_id"`
	Row           string     `json:"row"`
	SeatNumber    string     `json:"seat_number"`
	Status        SeatStatus `json:"status"`
	ReservationID *uuid.UUID `json:"-"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

// Reservation is a lease on ticket type capacity and, optionally, on seats.
type Reservation struct {
	ID           uuid.UUID
	EventID      int64
	TicketTypeID int64
	Quantity     int
	SeatIDs      []int64
	Status       ReservationStatus
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired reports whether a pending reservation has outlived its lease.
func (r Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationPending && !now.Before(r.ExpiresAt)
}

type ReserveRequest struct {
	EventID      int64
	TicketTypeID int64
	Quantity     int
	SeatIDs      []int64
	TTL          time.Duration
}

type Booking struct {
	ID            uuid.UUID        `json:"id"`
	UserID        int64            `json:"user_id"`
	EventID       int64            `json:"event_id"`
	SubtotalCents int64            `json:"subtotal_cents"`
	DiscountCents int64            `json:"discount_cents"`
	TotalCents    int64            `json:"total_cents"`
	DiscountID    *int64           `json:"discount_id,omitempty"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	QRCode        string           `json:"qr_code"`
	CreatedAt     time.Time        `json:"created_at"`
	Details       []BookingDetail  `json:"details"`
	Tickets       []AttendeeTicket `json:"tickets"`
}

type BookingDetail struct {
	ID             uuid.UUID `json:"id"`
	BookingID      uuid.UUID `json:"booking_id"`
	TicketTypeID   int64     `json:"ticket_type_id"`
	SeatMapID      *int64    `json:"seat_map_id,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
}

// LineTotal is the snapshot price multiplied by the quantity.
func (d BookingDetail) LineTotal() (int64, error) {
	return MulCents(d.UnitPriceCents, d.Quantity)
}

// BookingDraft is everything needed to persist a booking and commit its
// reservations in one atomic step.
type BookingDraft struct {
	Booking        Booking
	ReservationIDs []uuid.UUID
	RedemptionID   *uuid.UUID
}

type AttendeeTicket struct {
	Code            string       `json:"code"`
	BookingID       uuid.UUID    `json:"booking_id"`
	BookingDetailID uuid.UUID    `json:"booking_detail_id"`
	TicketTypeID    int64        `json:"ticket_type_id"`
	EventID         int64        `json:"event_id"`
	UserID          int64        `json:"user_id"`
	Status          TicketStatus `json:"status"`
	UsedAt          *time.Time   `json:"used_at,omitempty"`
}

type Attendee struct {
	ID            int64         `json:"id"`
	EventID       int64         `json:"event_id"`
	UserID        int64         `json:"user_id"`
	CheckInStatus CheckInStatus `json:"check_in_status"`
	CheckInTime   *time.Time    `json:"check_in_time,omitempty"`
}
