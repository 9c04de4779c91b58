package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository/memory"
	"github.com/kirinyoku/tix-booking/internal/service/admin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*admin.Service, *memory.Store, int64) {
	t.Helper()

	store := memory.New()
	svc := admin.New(store, nil, nil)

	orgID, err := svc.CreateUser(context.Background(), admin.UserInput{Email: "org@example.com", Role: domain.RoleOrganizer})
	require.NoError(t, err)

	return svc, store, orgID
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	svc, store, orgID := newService(t)

	id, err := svc.CreateEvent(ctx, admin.EventInput{
		OrganizerID: orgID,
		Title:       "Conference",
		StartsAt:    time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)

	ev, err := store.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.EventDraft, ev.Status)

	ev, err = svc.SetEventStatus(ctx, id, domain.EventPublished)
	require.NoError(t, err)
	assert.Equal(t, domain.EventPublished, ev.Status)

	_, err = svc.SetEventStatus(ctx, id, "archived")
	require.ErrorIs(t, err, admin.ErrInvalidInput)

	_, err = svc.SetEventStatus(ctx, 404, domain.EventCancelled)
	require.ErrorIs(t, err, admin.ErrEventNotFound)

	_, err = svc.CreateEvent(ctx, admin.EventInput{OrganizerID: orgID})
	require.ErrorIs(t, err, admin.ErrInvalidInput)
}

func TestTicketTypeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store, orgID := newService(t)

	eventID, err := svc.CreateEvent(ctx, admin.EventInput{
		OrganizerID: orgID,
		Title:       "Festival",
		StartsAt:    time.Now().Add(72 * time.Hour),
		Status:      domain.EventPublished,
	})
	require.NoError(t, err)

	_, err = svc.CreateTicketType(ctx, eventID, admin.TicketTypeInput{Name: "", TotalCapacity: 10})
	require.ErrorIs(t, err, admin.ErrInvalidInput)

	_, err = svc.CreateTicketType(ctx, eventID, admin.TicketTypeInput{
		Name: "Gold", UnitPriceCents: domain.MaxUnitPriceCents + 1, TotalCapacity: 10,
	})
	require.ErrorIs(t, err, admin.ErrInvalidInput)

	_, err = svc.CreateTicketType(ctx, 404, admin.TicketTypeInput{Name: "GA", TotalCapacity: 10})
	require.ErrorIs(t, err, admin.ErrEventNotFound)

	ttID, err := svc.CreateTicketType(ctx, eventID, admin.TicketTypeInput{Name: "GA", UnitPriceCents: 3000, TotalCapacity: 10})
	require.NoError(t, err)

	_, err = store.Reserve(ctx, domain.ReserveRequest{EventID: eventID, TicketTypeID: ttID, Quantity: 6})
	require.NoError(t, err)

	total := 12
	tt, err := svc.UpdateTicketType(ctx, ttID, domain.TicketTypePatch{TotalCapacity: &total})
	require.NoError(t, err)
	assert.Equal(t, 12, tt.TotalCapacity)
	assert.Equal(t, 6, tt.RemainingCapacity)

	total = 5
	_, err = svc.UpdateTicketType(ctx, ttID, domain.TicketTypePatch{TotalCapacity: &total})
	require.ErrorIs(t, err, admin.ErrCapacityBelowSold)

	blank := "  "
	_, err = svc.UpdateTicketType(ctx, ttID, domain.TicketTypePatch{Name: &blank})
	require.ErrorIs(t, err, admin.ErrInvalidInput)

	_, err = svc.UpdateTicketType(ctx, ttID, domain.TicketTypePatch{})
	require.ErrorIs(t, err, admin.ErrInvalidInput)

	err = svc.DeleteTicketType(ctx, ttID)
	require.ErrorIs(t, err, admin.ErrTicketTypeInUse)

	unused, err := svc.CreateTicketType(ctx, eventID, admin.TicketTypeInput{Name: "Late", TotalCapacity: 3})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTicketType(ctx, unused))

	err = svc.DeleteTicketType(ctx, unused)
	require.ErrorIs(t, err, admin.ErrTicketTypeNotFound)
}

func TestCreateSeatsAndDiscounts(t *testing.T) {
	ctx := context.Background()
	svc, store, orgID := newService(t)

	eventID, err := svc.CreateEvent(ctx, admin.EventInput{
		OrganizerID: orgID,
		Title:       "Theatre",
		StartsAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	ids, err := svc.CreateSeats(ctx, eventID, []admin.SeatInput{
		{Row: "A", SeatNumber: "1"},
		{Row: "A", SeatNumber: "2"},
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	again, err := svc.CreateSeats(ctx, eventID, []admin.SeatInput{
		{Row: "A", SeatNumber: "2"},
		{Row: "A", SeatNumber: "3"},
	})
	require.NoError(t, err)
	assert.Len(t, again, 1)

	_, err = svc.CreateSeats(ctx, eventID, []admin.SeatInput{{Row: "A"}})
	require.ErrorIs(t, err, admin.ErrInvalidInput)

	id, err := svc.CreateDiscount(ctx, eventID, admin.DiscountInput{
		Code:     " early ",
		Type:     domain.DiscountPercentage,
		Value:    15,
		MaxUsage: 100,
	})
	require.NoError(t, err)

	d, err := store.GetDiscountByCode(ctx, eventID, "Early")
	require.NoError(t, err)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, "EARLY", d.Code)
	assert.Equal(t, domain.DiscountActive, d.Status)

	_, err = svc.CreateDiscount(ctx, eventID, admin.DiscountInput{
		Code: "EARLY", Type: domain.DiscountFixed, Value: 100, MaxUsage: 1,
	})
	require.ErrorIs(t, err, admin.ErrDiscountConflict)

	_, err = svc.CreateDiscount(ctx, eventID, admin.DiscountInput{
		Code: "TOOMUCH", Type: domain.DiscountPercentage, Value: 120, MaxUsage: 1,
	})
	require.ErrorIs(t, err, admin.ErrInvalidInput)

	_, err = svc.CreateDiscount(ctx, eventID, admin.DiscountInput{
		Code: "NOCAP", Type: domain.DiscountFixed, Value: 100,
	})
	require.ErrorIs(t, err, admin.ErrInvalidInput)
}
