package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

// Create persists the booking with its details and tickets, links the
// discount usage and commits every reservation in one step. Nothing is
// changed when any check fails.
func (s *Store) Create(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error) {
	const op = "memory.Store.Create"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	reservations := make([]*domain.Reservation, 0, len(draft.ReservationIDs))
	ttIDs := make([]int64, 0, len(draft.ReservationIDs))

	s.regMu.RLock()
	for _, id := range draft.ReservationIDs {
		res, ok := s.reservations[id]
		if !ok {
			s.regMu.RUnlock()
			return nil, fmt.Errorf("%s:%w", op, repository.ErrReservationNotPending)
		}
		reservations = append(reservations, res)
		ttIDs = append(ttIDs, res.TicketTypeID)
	}
	s.regMu.RUnlock()

	_, unlock, err := s.lockTicketTypes(ttIDs)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	defer unlock()

	now := s.now()

	var seatIDs []int64
	for _, res := range reservations {
		if res.Status != domain.ReservationPending {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrReservationNotPending)
		}
		if res.Expired(now) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrReservationExpired)
		}
		seatIDs = append(seatIDs, res.SeatIDs...)
	}

	seats, missing, unlockSeats := s.lockSeats(seatIDs)
	defer unlockSeats()

	if len(missing) > 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInvariantViolation)
	}

	for _, res := range reservations {
		for _, id := range res.SeatIDs {
			seat := seats[id].seat
			if seat.Status != domain.SeatPending || seat.ReservationID == nil || *seat.ReservationID != res.ID {
				return nil, fmt.Errorf("%s:%w", op, repository.ErrReservationExpired)
			}
		}
	}

	var (
		discount   *discountEntry
		redemption *domain.Redemption
	)
	if draft.RedemptionID != nil {
		s.regMu.RLock()
		discountID, ok := s.redemptions[*draft.RedemptionID]
		s.regMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
		}

		discount, ok = s.discountEntry(discountID)
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
		}

		discount.mu.Lock()
		defer discount.mu.Unlock()

		redemption = discount.usages[draft.Booking.UserID]
		if redemption == nil || redemption.ID != *draft.RedemptionID || redemption.BookingID != nil {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
		}
	}

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	b := draft.Booking
	if _, exists := s.bookings[b.ID]; exists {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	if err := s.checkCodesLocked(b); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	for _, res := range reservations {
		res.Status = domain.ReservationCommitted
		if e, ok := s.ticketTypeEntry(res.TicketTypeID); ok {
			delete(e.pending, res.ID)
		}
	}
	for _, e := range seats {
		e.seat.Status = domain.SeatBooked
		e.seat.ReservationID = nil
		e.seat.HoldExpiresAt = nil
	}
	if redemption != nil {
		id := b.ID
		redemption.BookingID = &id
	}

	rec := &bookingRecord{booking: b}
	rec.booking.Details = slices.Clone(b.Details)
	rec.booking.Tickets = nil

	for _, t := range b.Tickets {
		s.tickets[t.Code] = &t
		rec.ticketCodes = append(rec.ticketCodes, t.Code)
	}
	s.bookings[b.ID] = rec

	return s.snapshotLocked(rec), nil
}

func (s *Store) checkCodesLocked(b domain.Booking) error {
	seen := make(map[string]struct{}, len(b.Tickets)+1)
	seen[b.QRCode] = struct{}{}

	for _, rec := range s.bookings {
		if rec.booking.QRCode == b.QRCode {
			return repository.ErrCodeCollision
		}
	}
	if _, taken := s.tickets[b.QRCode]; taken {
		return repository.ErrCodeCollision
	}

	for _, t := range b.Tickets {
		if _, dup := seen[t.Code]; dup {
			return repository.ErrCodeCollision
		}
		if _, taken := s.tickets[t.Code]; taken {
			return repository.ErrCodeCollision
		}
		seen[t.Code] = struct{}{}
	}

	return nil
}

func (s *Store) snapshotLocked(rec *bookingRecord) *domain.Booking {
	out := rec.booking
	out.Details = slices.Clone(rec.booking.Details)
	out.Tickets = make([]domain.AttendeeTicket, 0, len(rec.ticketCodes))
	for _, code := range rec.ticketCodes {
		if t, ok := s.tickets[code]; ok {
			out.Tickets = append(out.Tickets, *t)
		}
	}
	return &out
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.Store.GetBooking"

	s.bookMu.RLock()
	defer s.bookMu.RUnlock()

	rec, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return s.snapshotLocked(rec), nil
}

// MarkPaid moves a pending booking to paid. Marking a paid booking again is a
// no-op.
func (s *Store) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.Store.MarkPaid"

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	rec, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	switch rec.booking.PaymentStatus {
	case domain.PaymentPending:
		rec.booking.PaymentStatus = domain.PaymentPaid
	case domain.PaymentPaid:
	default:
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
	}

	return s.snapshotLocked(rec), nil
}

// MarkFailed moves a pending booking to failed and undoes its effects:
// capacity is restored, seats are freed, tickets expire and the discount
// usage is reversed with an audit row. Failing a failed booking is a no-op.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.Booking, error) {
	const op = "memory.Store.MarkFailed"

	s.bookMu.RLock()
	rec, ok := s.bookings[id]
	if !ok {
		s.bookMu.RUnlock()
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	status := rec.booking.PaymentStatus
	details := slices.Clone(rec.booking.Details)
	discountID := rec.booking.DiscountID
	userID := rec.booking.UserID
	s.bookMu.RUnlock()

	switch status {
	case domain.PaymentFailed:
		return s.GetBooking(ctx, id)
	case domain.PaymentPaid:
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
	}

	var ttIDs, seatIDs []int64
	for _, d := range details {
		ttIDs = append(ttIDs, d.TicketTypeID)
		if d.SeatMapID != nil {
			seatIDs = append(seatIDs, *d.SeatMapID)
		}
	}

	entries, unlock, err := s.lockTicketTypes(ttIDs)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	defer unlock()

	seats, _, unlockSeats := s.lockSeats(seatIDs)
	defer unlockSeats()

	var discount *discountEntry
	if discountID != nil {
		if e, ok := s.discountEntry(*discountID); ok {
			discount = e
			discount.mu.Lock()
			defer discount.mu.Unlock()
		}
	}

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	// Re-check under the full lock set.
	switch rec.booking.PaymentStatus {
	case domain.PaymentFailed:
		return s.snapshotLocked(rec), nil
	case domain.PaymentPaid:
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
	}

	byID := make(map[int64]*ticketTypeEntry, len(entries))
	for _, e := range entries {
		byID[e.tt.ID] = e
	}

	restore := make(map[int64]int)
	for _, d := range details {
		restore[d.TicketTypeID] += d.Quantity
	}
	for ttID, qty := range restore {
		e := byID[ttID]
		if e.tt.RemainingCapacity+qty > e.tt.TotalCapacity {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrInvariantViolation)
		}
	}
	for ttID, qty := range restore {
		byID[ttID].tt.RemainingCapacity += qty
	}

	for _, e := range seats {
		if e.seat.Status == domain.SeatBooked {
			e.seat.Status = domain.SeatAvailable
		}
	}

	for _, code := range rec.ticketCodes {
		t := s.tickets[code]
		if next, err := t.Expire(); err == nil {
			*t = next
		}
	}

	if discount != nil {
		if r, ok := discount.usages[userID]; ok && r.BookingID != nil && *r.BookingID == id {
			delete(discount.usages, userID)
			discount.d.UsedCount--

			s.regMu.Lock()
			delete(s.redemptions, r.ID)
			s.regMu.Unlock()

			s.reversals = append(s.reversals, domain.DiscountReversal{
				DiscountID: discount.d.ID,
				UserID:     userID,
				BookingID:  id,
				Reason:     reason,
				ReversedAt: s.now(),
			})
		}
	}

	rec.booking.PaymentStatus = domain.PaymentFailed

	return s.snapshotLocked(rec), nil
}
