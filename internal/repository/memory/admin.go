package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

func (s *Store) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if u.ID == 0 {
		u.ID = s.nextID()
	}
	if _, exists := s.users[u.ID]; exists {
		return 0, fmt.Errorf("memory.Store.CreateUser:%w", repository.ErrConflict)
	}
	s.users[u.ID] = u

	return u.ID, nil
}

func (s *Store) CreateEvent(ctx context.Context, e domain.Event) (int64, error) {
	const op = "memory.Store.CreateEvent"

	if e.Status == "" {
		e.Status = domain.EventDraft
	}
	if !e.Status.Valid() {
		return 0, fmt.Errorf("%s:%w", op, domain.ErrInvalidEventStatus)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	e.ID = s.nextID()
	s.events[e.ID] = e

	return e.ID, nil
}

func (s *Store) SetEventStatus(ctx context.Context, id int64, status domain.EventStatus) (*domain.Event, error) {
	const op = "memory.Store.SetEventStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrInvalidEventStatus)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	e.Status = status
	s.events[id] = e

	return &e, nil
}

func (s *Store) CreateTicketType(ctx context.Context, tt domain.TicketType) (int64, error) {
	const op = "memory.Store.CreateTicketType"

	if tt.TotalCapacity < 0 || tt.UnitPriceCents < 0 {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrInvariantViolation)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	if _, ok := s.events[tt.EventID]; !ok {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	tt.ID = s.nextID()
	tt.RemainingCapacity = tt.TotalCapacity
	s.ticketTypes[tt.ID] = &ticketTypeEntry{
		tt:      tt,
		pending: make(map[uuid.UUID]*domain.Reservation),
	}

	return tt.ID, nil
}

// UpdateTicketType applies the patch under the ticket type lock so a
// concurrent reservation can never be lost.
func (s *Store) UpdateTicketType(ctx context.Context, id int64, p domain.TicketTypePatch) (*domain.TicketType, error) {
	const op = "memory.Store.UpdateTicketType"

	entries, unlock, err := s.lockTicketTypes([]int64{id})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	defer unlock()

	e := entries[0]
	if e.deleted {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	s.sweepLocked(e, s.now())

	next, err := e.tt.Apply(p)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	e.tt = next

	return &next, nil
}

// DeleteTicketType removes a ticket type nothing refers to.
func (s *Store) DeleteTicketType(ctx context.Context, id int64) error {
	const op = "memory.Store.DeleteTicketType"

	entries, unlock, err := s.lockTicketTypes([]int64{id})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	defer unlock()

	e := entries[0]
	if e.deleted {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}
	if len(e.pending) > 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrReferenced)
	}

	s.bookMu.RLock()
	for _, rec := range s.bookings {
		for _, d := range rec.booking.Details {
			if d.TicketTypeID == id {
				s.bookMu.RUnlock()
				return fmt.Errorf("%s:%w", op, repository.ErrReferenced)
			}
		}
	}
	s.bookMu.RUnlock()

	e.deleted = true

	s.regMu.Lock()
	delete(s.ticketTypes, id)
	s.regMu.Unlock()

	return nil
}

// CreateSeats adds seats to an event. Seats already present for the same
// row and number are skipped.
func (s *Store) CreateSeats(ctx context.Context, eventID int64, seats []domain.SeatMap) ([]int64, error) {
	const op = "memory.Store.CreateSeats"

	s.regMu.Lock()
	defer s.regMu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	existing := make(map[string]struct{})
	for _, e := range s.seats {
		if e.seat.EventID == eventID {
			existing[e.seat.Row+"/"+e.seat.SeatNumber] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(seats))
	for _, seat := range seats {
		key := seat.Row + "/" + seat.SeatNumber
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}

		seat.ID = s.nextID()
		seat.EventID = eventID
		seat.Status = domain.SeatAvailable
		seat.ReservationID = nil
		seat.HoldExpiresAt = nil
		s.seats[seat.ID] = &seatEntry{seat: seat}
		ids = append(ids, seat.ID)
	}

	return ids, nil
}

func (s *Store) CreateDiscount(ctx context.Context, d domain.Discount) (int64, error) {
	const op = "memory.Store.CreateDiscount"

	s.regMu.Lock()
	defer s.regMu.Unlock()

	if _, ok := s.events[d.EventID]; !ok {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	key := codeKey(d.EventID, d.Code)
	if _, dup := s.codes[key]; dup {
		return 0, fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	d.ID = s.nextID()
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.UsedCount = 0
	if d.Status == "" {
		d.Status = domain.DiscountActive
	}

	s.discounts[d.ID] = &discountEntry{d: d, usages: make(map[int64]*domain.Redemption)}
	s.codes[key] = d.ID

	return d.ID, nil
}

func (s *Store) GetDiscount(ctx context.Context, id int64) (*domain.Discount, error) {
	e, ok := s.discountEntry(id)
	if !ok {
		return nil, fmt.Errorf("memory.Store.GetDiscount:%w", repository.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.d
	return &d, nil
}

func (s *Store) GetSeat(ctx context.Context, id int64) (*domain.SeatMap, error) {
	e, ok := s.seatEntry(id)
	if !ok {
		return nil, fmt.Errorf("memory.Store.GetSeat:%w", repository.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	seat := e.seat
	return &seat, nil
}
