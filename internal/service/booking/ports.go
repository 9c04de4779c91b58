package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
)

type Catalog interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	GetEvent(ctx context.Context, id int64) (*domain.Event, error)
	GetTicketType(ctx context.Context, id int64) (*domain.TicketType, error)
	GetDiscountByCode(ctx context.Context, eventID int64, code string) (*domain.Discount, error)
}

type Inventory interface {
	Reserve(ctx context.Context, req domain.ReserveRequest) (*domain.Reservation, error)
	Release(ctx context.Context, id uuid.UUID) error
	ExpireReservations(ctx context.Context) (int64, error)
}

type Ledger interface {
	TryRedeem(ctx context.Context, userID, discountID int64) (*domain.Redemption, error)
	Cancel(ctx context.Context, redemptionID uuid.UUID) error
}

type Bookings interface {
	Create(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.Booking, error)
}

type CodeIssuer interface {
	IssueBookingCode() (string, error)
	IssueTicketCode() (string, error)
}

// Repos groups the storage ports the booking service depends on. Both the
// postgres and the in-memory backends satisfy every port.
type Repos struct {
	Catalog   Catalog
	Inventory Inventory
	Ledger    Ledger
	Bookings  Bookings
}
