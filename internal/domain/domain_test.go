package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountAmount(t *testing.T) {
	tests := []struct {
		name     string
		d        Discount
		subtotal int64
		want     int64
	}{
		{"percentage", Discount{Type: DiscountPercentage, Value: 50}, 5000, 2500},
		{"percentage rounds down", Discount{Type: DiscountPercentage, Value: 33}, 1001, 330},
		{"full percentage", Discount{Type: DiscountPercentage, Value: 100}, 1234, 1234},
		{"fixed", Discount{Type: DiscountFixed, Value: 700}, 5000, 700},
		{"fixed capped at subtotal", Discount{Type: DiscountFixed, Value: 7000}, 5000, 5000},
		{"zero subtotal", Discount{Type: DiscountFixed, Value: 700}, 0, 0},
		{"unknown type", Discount{Type: "bogo", Value: 10}, 5000, 0},
		{"percentage of huge subtotal", Discount{Type: DiscountPercentage, Value: 50}, math.MaxInt64, math.MaxInt64 / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Amount(tt.subtotal))
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	v, err := MulCents(2500, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), v)

	_, err = MulCents(1<<62, 4)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = MulCents(-1, 1)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	v, err = AddCents(math.MaxInt64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	_, err = AddCents(math.MaxInt64, 1)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = BookingDetail{UnitPriceCents: math.MaxInt64, Quantity: 2}.LineTotal()
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestTicketTypeApply(t *testing.T) {
	tt := TicketType{ID: 1, Name: "GA", UnitPriceCents: 1000, TotalCapacity: 10, RemainingCapacity: 4}

	grow := 15
	out, err := tt.Apply(TicketTypePatch{TotalCapacity: &grow})
	require.NoError(t, err)
	assert.Equal(t, 15, out.TotalCapacity)
	assert.Equal(t, 9, out.RemainingCapacity)

	shrink := 6
	out, err = tt.Apply(TicketTypePatch{TotalCapacity: &shrink})
	require.NoError(t, err)
	assert.Equal(t, 0, out.RemainingCapacity)

	tooSmall := 5
	_, err = tt.Apply(TicketTypePatch{TotalCapacity: &tooSmall})
	assert.ErrorIs(t, err, ErrCapacityBelowSold)

	blank := "  "
	_, err = tt.Apply(TicketTypePatch{Name: &blank})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	neg := int64(-1)
	_, err = tt.Apply(TicketTypePatch{UnitPriceCents: &neg})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	assert.True(t, TicketTypePatch{}.Empty())
}

func TestAttendeeApply(t *testing.T) {
	now := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	a := Attendee{ID: 1, CheckInStatus: CheckInPending}

	checkedIn := CheckedIn
	out, err := a.Apply(AttendeePatch{Status: &checkedIn}, now)
	require.NoError(t, err)
	require.NotNil(t, out.CheckInTime)
	assert.Equal(t, now, *out.CheckInTime)

	pending := CheckInPending
	back, err := out.Apply(AttendeePatch{Status: &pending}, now)
	require.NoError(t, err)
	assert.Nil(t, back.CheckInTime)

	noShow := CheckInNoShow
	_, err = out.Apply(AttendeePatch{Status: &noShow}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	at := now.Add(-time.Hour)
	_, err = a.Apply(AttendeePatch{Status: &noShow, CheckInTime: &at}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	bogus := CheckInStatus("lost")
	_, err = a.Apply(AttendeePatch{Status: &bogus}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTicketRedeem(t *testing.T) {
	now := time.Now()
	tk := AttendeeTicket{Code: "TK-1", Status: TicketValid}

	used, err := tk.Redeem(now)
	require.NoError(t, err)
	assert.Equal(t, TicketUsed, used.Status)
	require.NotNil(t, used.UsedAt)

	_, err = used.Redeem(now.Add(time.Minute))
	var already AlreadyRedeemedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, TicketUsed, already.Status)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)

	expired, err := tk.Expire()
	require.NoError(t, err)
	_, err = expired.Redeem(now)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 21.43, Percentage(3, 14))
	assert.Equal(t, 100.0, Percentage(5, 5))
	assert.Equal(t, 0.0, Percentage(3, 0))
}

func TestReservationExpired(t *testing.T) {
	now := time.Now()
	r := Reservation{Status: ReservationPending, ExpiresAt: now}
	assert.True(t, r.Expired(now))
	assert.False(t, r.Expired(now.Add(-time.Second)))

	r.Status = ReservationCommitted
	assert.False(t, r.Expired(now.Add(time.Hour)))
}
