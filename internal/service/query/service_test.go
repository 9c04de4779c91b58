package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/tix-booking/internal/codes"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository/memory"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
	"github.com/kirinyoku/tix-booking/internal/service/booking"
	"github.com/kirinyoku/tix-booking/internal/service/query"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	store    *memory.Store
	cache    *redisrepo.Cache
	bookings *booking.Service
	svc      *query.Service
	eventID  int64
	userID   int64
}

func newEnv(t *testing.T, cache *redisrepo.Cache) *env {
	t.Helper()

	ctx := context.Background()
	store := memory.New()

	userID, err := store.CreateUser(ctx, domain.User{Role: domain.RoleAttendee})
	require.NoError(t, err)

	eventID, err := store.CreateEvent(ctx, domain.Event{Title: "Expo", Status: domain.EventPublished})
	require.NoError(t, err)

	return &env{
		store: store,
		cache: cache,
		bookings: booking.New(booking.Repos{
			Catalog:   store,
			Inventory: store,
			Ledger:    store,
			Bookings:  store,
		}, codes.NewIssuer(), cache, nil, nil, booking.Config{}),
		svc:     query.New(store, cache, query.Config{}),
		eventID: eventID,
		userID:  userID,
	}
}

func (e *env) ticketType(t *testing.T, name string, price int64, capacity int) int64 {
	t.Helper()

	id, err := e.store.CreateTicketType(context.Background(), domain.TicketType{
		EventID:        e.eventID,
		Name:           name,
		UnitPriceCents: price,
		TotalCapacity:  capacity,
	})
	require.NoError(t, err)

	return id
}

func (e *env) buy(t *testing.T, ticketTypeID int64, qty int, code string) *domain.Booking {
	t.Helper()

	b, err := e.bookings.Purchase(context.Background(), booking.PurchaseRequest{
		UserID:       e.userID,
		EventID:      e.eventID,
		Items:        []booking.LineItem{{TicketTypeID: ticketTypeID, Quantity: qty}},
		DiscountCode: code,
	})
	require.NoError(t, err)

	return b
}

func TestEventStats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	t1 := e.ticketType(t, "Standard", 2000, 10)
	t2 := e.ticketType(t, "VIP", 10000, 4)

	_, err := e.store.CreateDiscount(ctx, domain.Discount{
		EventID:  e.eventID,
		Code:     "TEN",
		Type:     domain.DiscountFixed,
		Value:    1000,
		MaxUsage: 10,
	})
	require.NoError(t, err)

	e.buy(t, t1, 3, "TEN")
	failed := e.buy(t, t2, 1, "")

	_, err = e.store.Reserve(ctx, domain.ReserveRequest{EventID: e.eventID, TicketTypeID: t1, Quantity: 2})
	require.NoError(t, err)

	_, err = e.bookings.MarkFailed(ctx, failed.ID, "declined")
	require.NoError(t, err)

	stats, err := e.svc.EventStats(ctx, e.eventID)
	require.NoError(t, err)

	assert.Equal(t, 14, stats.TotalTickets)
	assert.Equal(t, 3, stats.TotalSold)
	assert.Equal(t, 2, stats.TotalHeld)
	assert.Equal(t, 9, stats.TotalRemaining)
	assert.Equal(t, int64(6000), stats.GrossRevenueCents)
	assert.Equal(t, int64(5000), stats.NetRevenueCents)
	assert.InDelta(t, 21.43, stats.SalesPercentage, 0.001)
	require.Len(t, stats.TicketTypes, 2)

	std := stats.TicketTypes[0]
	assert.Equal(t, t1, std.TicketTypeID)
	assert.Equal(t, 3, std.Sold)
	assert.Equal(t, 2, std.Held)
	assert.Equal(t, 5, std.Remaining)
	assert.InDelta(t, 30.0, std.SalesPercentage, 0.001)
	assert.True(t, std.OnSale)

	vip, err := e.svc.TicketTypeStats(ctx, t2)
	require.NoError(t, err)
	assert.Equal(t, 0, vip.Sold)
	assert.Equal(t, 4, vip.Remaining)
	assert.Zero(t, vip.RevenueCents)

	_, err = e.svc.EventStats(ctx, 404)
	require.ErrorIs(t, err, query.ErrEventNotFound)

	_, err = e.svc.TicketTypeStats(ctx, 404)
	require.ErrorIs(t, err, query.ErrTicketTypeNotFound)
}

func TestStats_ExpiredLeaseIsNotHeld(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New(memory.WithClock(func() time.Time { return now }))

	eventID, err := store.CreateEvent(ctx, domain.Event{Title: "Gig", Status: domain.EventPublished})
	require.NoError(t, err)
	ttID, err := store.CreateTicketType(ctx, domain.TicketType{EventID: eventID, Name: "GA", UnitPriceCents: 500, TotalCapacity: 1})
	require.NoError(t, err)

	_, err = store.Reserve(ctx, domain.ReserveRequest{EventID: eventID, TicketTypeID: ttID, Quantity: 1, TTL: 30 * time.Second})
	require.NoError(t, err)

	svc := query.New(store, nil, query.Config{})

	st, err := svc.TicketTypeStats(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Held)
	assert.Equal(t, 0, st.Remaining)
	assert.False(t, st.OnSale)

	now = now.Add(time.Hour)

	st, err = svc.TicketTypeStats(ctx, ttID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Held)
	assert.Equal(t, 1, st.Remaining)
	assert.True(t, st.OnSale)

	ev, err := svc.EventStats(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, ev.TotalHeld)
	assert.Equal(t, 1, ev.TotalRemaining)
}

func TestEventStats_CacheInvalidatedByPurchase(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := newEnv(t, redisrepo.New(rdb))
	t1 := e.ticketType(t, "Standard", 1500, 5)

	before, err := e.svc.EventStats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, before.TotalSold)
	assert.True(t, mr.Exists(redisrepo.KeyEventStats(e.eventID)))

	e.buy(t, t1, 2, "")
	assert.False(t, mr.Exists(redisrepo.KeyEventStats(e.eventID)))

	after, err := e.svc.EventStats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.TotalSold)
	assert.Equal(t, 3, after.TotalRemaining)
}

func TestAttendeeStats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	statuses := []domain.CheckInStatus{
		domain.CheckedIn, domain.CheckedIn, domain.CheckedIn,
		domain.CheckInPending, domain.CheckInNoShow,
	}
	for _, st := range statuses {
		uid, err := e.store.CreateUser(ctx, domain.User{Role: domain.RoleAttendee})
		require.NoError(t, err)

		_, err = e.store.CreateAttendee(ctx, domain.Attendee{EventID: e.eventID, UserID: uid, CheckInStatus: st})
		require.NoError(t, err)
	}

	stats, err := e.svc.AttendeeStats(ctx, e.eventID)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.CheckedIn)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.NoShow)
	assert.InDelta(t, 60.0, stats.CheckInRate, 0.001)
}

func TestListEventSeats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	t1 := e.ticketType(t, "Seated", 3000, 10)

	ids, err := e.store.CreateSeats(ctx, e.eventID, []domain.SeatMap{
		{Row: "B", SeatNumber: "1"},
		{Row: "A", SeatNumber: "2"},
		{Row: "A", SeatNumber: "1"},
	})
	require.NoError(t, err)

	_, err = e.bookings.Purchase(ctx, booking.PurchaseRequest{
		UserID:  e.userID,
		EventID: e.eventID,
		Items:   []booking.LineItem{{TicketTypeID: t1, Quantity: 1, SeatIDs: []int64{ids[0]}}},
	})
	require.NoError(t, err)

	all, err := e.svc.ListEventSeats(ctx, e.eventID, false, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Row)
	assert.Equal(t, "1", all[0].SeatNumber)
	assert.Equal(t, domain.SeatBooked, all[2].Status)

	free, err := e.svc.ListEventSeats(ctx, e.eventID, true, 1, 1)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "2", free[0].SeatNumber)

	_, err = e.svc.ListEventSeats(ctx, 404, false, 0, 0)
	require.ErrorIs(t, err, query.ErrEventNotFound)
}
