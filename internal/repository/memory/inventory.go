package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

func (s *Store) Reserve(ctx context.Context, req domain.ReserveRequest) (*domain.Reservation, error) {
	const op = "memory.Store.Reserve"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
	}

	entries, unlock, err := s.lockTicketTypes([]int64{req.TicketTypeID})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	defer unlock()

	tt := entries[0]
	if tt.deleted || tt.tt.EventID != req.EventID {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	now := s.now()
	s.sweepLocked(tt, now)

	if tt.tt.RemainingCapacity < req.Quantity {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInsufficientInventory)
	}

	seats, missing, unlockSeats := s.lockSeats(req.SeatIDs)
	defer unlockSeats()

	unavailable := slices.Clone(missing)
	for id, e := range seats {
		if e.seat.EventID != req.EventID || !seatFree(e.seat, now) {
			unavailable = append(unavailable, id)
		}
	}
	if len(unavailable) > 0 {
		slices.Sort(unavailable)
		return nil, fmt.Errorf("%s:%w", op, repository.SeatsUnavailableError{SeatIDs: unavailable})
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	res := &domain.Reservation{
		ID:           uuid.New(),
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		Quantity:     req.Quantity,
		SeatIDs:      sortedUnique(req.SeatIDs),
		Status:       domain.ReservationPending,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}

	tt.tt.RemainingCapacity -= req.Quantity
	for _, e := range seats {
		id := res.ID
		exp := res.ExpiresAt
		e.seat.Status = domain.SeatPending
		e.seat.ReservationID = &id
		e.seat.HoldExpiresAt = &exp
	}

	if tt.pending == nil {
		tt.pending = make(map[uuid.UUID]*domain.Reservation)
	}
	tt.pending[res.ID] = res

	s.regMu.Lock()
	s.reservations[res.ID] = res
	s.regMu.Unlock()

	out := *res
	out.SeatIDs = slices.Clone(res.SeatIDs)
	return &out, nil
}

// seatFree reports whether a seat can be taken. A pending hold past its
// expiry no longer blocks.
func seatFree(seat domain.SeatMap, now time.Time) bool {
	switch seat.Status {
	case domain.SeatAvailable:
		return true
	case domain.SeatPending:
		return seat.HoldExpiresAt != nil && !now.Before(*seat.HoldExpiresAt)
	}
	return false
}

func (s *Store) Release(ctx context.Context, id uuid.UUID) error {
	const op = "memory.Store.Release"

	s.regMu.RLock()
	res, ok := s.reservations[id]
	s.regMu.RUnlock()
	if !ok {
		return nil
	}

	entries, unlock, err := s.lockTicketTypes([]int64{res.TicketTypeID})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	defer unlock()

	s.releaseLocked(entries[0], res)

	return nil
}

// releaseLocked returns a pending reservation's capacity and seats. The
// caller holds the ticket type lock.
func (s *Store) releaseLocked(tt *ticketTypeEntry, res *domain.Reservation) bool {
	if res.Status != domain.ReservationPending {
		return false
	}

	seats, _, unlockSeats := s.lockSeats(res.SeatIDs)
	releaseSeatsLocked(seats, res.ID)
	unlockSeats()

	tt.tt.RemainingCapacity += res.Quantity
	res.Status = domain.ReservationReleased
	delete(tt.pending, res.ID)

	return true
}

// sweepLocked releases every expired pending lease of the ticket type.
func (s *Store) sweepLocked(tt *ticketTypeEntry, now time.Time) int {
	var n int
	for _, res := range tt.pending {
		if res.Expired(now) && s.releaseLocked(tt, res) {
			n++
		}
	}
	return n
}

// ExpireReservations releases all expired pending leases and reports how
// many were released.
func (s *Store) ExpireReservations(ctx context.Context) (int64, error) {
	s.regMu.RLock()
	entries := make([]*ticketTypeEntry, 0, len(s.ticketTypes))
	for _, e := range s.ticketTypes {
		entries = append(entries, e)
	}
	s.regMu.RUnlock()

	now := s.now()

	var n int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return n, fmt.Errorf("memory.Store.ExpireReservations:%w", err)
		}
		e.mu.Lock()
		n += int64(s.sweepLocked(e, now))
		e.mu.Unlock()
	}

	return n, nil
}

// GetReservation returns a snapshot of a reservation.
func (s *Store) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "memory.Store.GetReservation"

	s.regMu.RLock()
	res, ok := s.reservations[id]
	s.regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	tt, ok := s.ticketTypeEntry(res.TicketTypeID)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()

	out := *res
	out.SeatIDs = slices.Clone(res.SeatIDs)
	return &out, nil
}
