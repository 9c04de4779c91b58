package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

// TicketSales aggregates committed line items of non-failed bookings per
// ticket type of the event.
func (s *Store) TicketSales(ctx context.Context, eventID int64) ([]domain.TicketSales, error) {
	const op = "memory.Store.TicketSales"

	s.bookMu.RLock()
	defer s.bookMu.RUnlock()

	agg := make(map[int64]*domain.TicketSales)
	for _, rec := range s.bookings {
		if rec.booking.EventID != eventID || rec.booking.PaymentStatus == domain.PaymentFailed {
			continue
		}
		for _, d := range rec.booking.Details {
			ts, ok := agg[d.TicketTypeID]
			if !ok {
				ts = &domain.TicketSales{TicketTypeID: d.TicketTypeID}
				agg[d.TicketTypeID] = ts
			}
			line, err := d.LineTotal()
			if err == nil {
				ts.RevenueCents, err = domain.AddCents(ts.RevenueCents, line)
			}
			if err != nil {
				return nil, fmt.Errorf("%s:%w", op, errors.Join(repository.ErrInvariantViolation, err))
			}
			ts.Quantity += d.Quantity
		}
	}

	out := make([]domain.TicketSales, 0, len(agg))
	for _, ts := range agg {
		out = append(out, *ts)
	}
	slices.SortFunc(out, func(a, b domain.TicketSales) int {
		return int(a.TicketTypeID - b.TicketTypeID)
	})

	return out, nil
}

// NetRevenue sums booking totals after discounts for non-failed bookings.
func (s *Store) NetRevenue(ctx context.Context, eventID int64) (int64, error) {
	s.bookMu.RLock()
	defer s.bookMu.RUnlock()

	var total int64
	for _, rec := range s.bookings {
		if rec.booking.EventID == eventID && rec.booking.PaymentStatus != domain.PaymentFailed {
			total += rec.booking.TotalCents
		}
	}

	return total, nil
}

// LiveHolds sums pending, unexpired lease quantities per ticket type of an
// event.
func (s *Store) LiveHolds(ctx context.Context, eventID int64) (map[int64]int, error) {
	s.regMu.RLock()
	entries := make([]*ticketTypeEntry, 0, len(s.ticketTypes))
	for _, e := range s.ticketTypes {
		entries = append(entries, e)
	}
	s.regMu.RUnlock()

	now := s.now()
	out := make(map[int64]int)
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && e.tt.EventID == eventID {
			for _, r := range e.pending {
				if !r.Expired(now) {
					out[e.tt.ID] += r.Quantity
				}
			}
		}
		e.mu.Unlock()
	}

	return out, nil
}

func (s *Store) ListEventSeats(
	ctx context.Context,
	eventID int64,
	onlyAvailable bool,
	limit, offset int,
) ([]domain.SeatMap, error) {
	s.regMu.RLock()
	entries := make([]*seatEntry, 0)
	for _, e := range s.seats {
		entries = append(entries, e)
	}
	s.regMu.RUnlock()

	now := s.now()

	var out []domain.SeatMap
	for _, e := range entries {
		e.mu.Lock()
		seat := e.seat
		e.mu.Unlock()

		if seat.EventID != eventID {
			continue
		}
		if seat.Status == domain.SeatPending && seatFree(seat, now) {
			seat.Status = domain.SeatAvailable
			seat.ReservationID = nil
			seat.HoldExpiresAt = nil
		}
		if onlyAvailable && seat.Status != domain.SeatAvailable {
			continue
		}
		out = append(out, seat)
	}

	slices.SortFunc(out, func(a, b domain.SeatMap) int {
		if c := strings.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		if c := strings.Compare(a.SeatNumber, b.SeatNumber); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}

	return out, nil
}
