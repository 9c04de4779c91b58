package checkin_test

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/tix-booking/internal/codes"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/events"
	"github.com/kirinyoku/tix-booking/internal/repository/memory"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/checkin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setup struct {
	store    *memory.Store
	bookings *booking.Service
	svc      *checkin.Service
	eventID  int64
	userID   int64
}

func newSetup(t *testing.T) *setup {
	t.Helper()

	ctx := context.Background()
	store := memory.New()

	userID, err := store.CreateUser(ctx, domain.User{Email: "guest@example.com", Role: domain.RoleAttendee})
	require.NoError(t, err)

	eventID, err := store.CreateEvent(ctx, domain.Event{Title: "Gig", Status: domain.EventPublished})
	require.NoError(t, err)

	pub := events.NewLogPublisher(nil)
	bookings := booking.New(booking.Repos{
		Catalog:   store,
		Inventory: store,
		Ledger:    store,
		Bookings:  store,
	}, codes.NewIssuer(), nil, pub, nil, booking.Config{})

	return &setup{
		store:    store,
		bookings: bookings,
		svc:      checkin.New(store, nil, nil, nil),
		eventID:  eventID,
		userID:   userID,
	}
}

func (s *setup) purchase(t *testing.T, qty int) *domain.Booking {
	t.Helper()

	ctx := context.Background()
	ttID, err := s.store.CreateTicketType(ctx, domain.TicketType{
		EventID:        s.eventID,
		Name:           "Floor",
		UnitPriceCents: 4200,
		TotalCapacity:  10,
	})
	require.NoError(t, err)

	b, err := s.bookings.Purchase(ctx, booking.PurchaseRequest{
		UserID:  s.userID,
		EventID: s.eventID,
		Items:   []booking.LineItem{{TicketTypeID: ttID, Quantity: qty}},
	})
	require.NoError(t, err)

	return b
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)
	b := s.purchase(t, 2)
	code := b.Tickets[0].Code

	_, err := s.svc.CheckIn(ctx, code)
	require.ErrorIs(t, err, checkin.ErrPaymentPending)

	_, err = s.bookings.MarkPaid(ctx, b.ID)
	require.NoError(t, err)

	first, err := s.svc.CheckIn(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketUsed, first.Status)
	require.NotNil(t, first.UsedAt)

	_, err = s.svc.CheckIn(ctx, code)
	require.ErrorIs(t, err, domain.ErrAlreadyRedeemed)

	var redeemed domain.AlreadyRedeemedError
	require.ErrorAs(t, err, &redeemed)
	assert.Equal(t, domain.TicketUsed, redeemed.Status)

	after, err := s.svc.GetTicket(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, *first.UsedAt, *after.UsedAt)

	_, err = s.svc.CheckIn(ctx, "TK-unknown")
	require.ErrorIs(t, err, checkin.ErrTicketNotFound)
}

func TestExpire(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)
	b := s.purchase(t, 1)
	code := b.Tickets[0].Code

	_, err := s.bookings.MarkPaid(ctx, b.ID)
	require.NoError(t, err)

	expired, err := s.svc.Expire(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketExpired, expired.Status)

	_, err = s.svc.CheckIn(ctx, code)
	require.ErrorIs(t, err, domain.ErrAlreadyRedeemed)

	_, err = s.svc.Expire(ctx, code)
	require.ErrorIs(t, err, domain.ErrAlreadyRedeemed)
}

func TestFailedBookingExpiresTickets(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)
	b := s.purchase(t, 1)

	_, err := s.bookings.MarkFailed(ctx, b.ID, "declined")
	require.NoError(t, err)

	ticket, err := s.svc.GetTicket(ctx, b.Tickets[0].Code)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketExpired, ticket.Status)
}

func TestAttendeeTransitions(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)

	a, err := s.svc.RegisterAttendee(ctx, s.eventID, s.userID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckInPending, a.CheckInStatus)

	_, err = s.svc.RegisterAttendee(ctx, s.eventID, s.userID)
	require.ErrorIs(t, err, checkin.ErrAttendeeExists)

	_, err = s.svc.RegisterAttendee(ctx, 999, s.userID)
	require.ErrorIs(t, err, checkin.ErrEventOrUserAbsent)

	status := func(st domain.CheckInStatus) *domain.CheckInStatus { return &st }

	in, err := s.svc.UpdateAttendee(ctx, a.ID, domain.AttendeePatch{Status: status(domain.CheckedIn)})
	require.NoError(t, err)
	assert.Equal(t, domain.CheckedIn, in.CheckInStatus)
	require.NotNil(t, in.CheckInTime)

	back, err := s.svc.UpdateAttendee(ctx, a.ID, domain.AttendeePatch{Status: status(domain.CheckInPending)})
	require.NoError(t, err)
	assert.Nil(t, back.CheckInTime)

	stamp := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)
	in, err = s.svc.UpdateAttendee(ctx, a.ID, domain.AttendeePatch{Status: status(domain.CheckedIn), CheckInTime: &stamp})
	require.NoError(t, err)
	assert.Equal(t, stamp, *in.CheckInTime)

	_, err = s.svc.UpdateAttendee(ctx, a.ID, domain.AttendeePatch{Status: status(domain.CheckInNoShow)})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.svc.UpdateAttendee(ctx, a.ID, domain.AttendeePatch{Status: status("vip")})
	require.ErrorIs(t, err, checkin.ErrInvalidStatus)

	_, err = s.svc.UpdateAttendee(ctx, 12345, domain.AttendeePatch{Status: status(domain.CheckedIn)})
	require.ErrorIs(t, err, checkin.ErrAttendeeNotFound)

	list, err := s.svc.ListAttendees(ctx, s.eventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.CheckedIn, list[0].CheckInStatus)
}
