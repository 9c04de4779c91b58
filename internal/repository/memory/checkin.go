package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

func (s *Store) GetTicket(ctx context.Context, code string) (*domain.AttendeeTicket, error) {
	const op = "memory.Store.GetTicket"

	s.bookMu.RLock()
	defer s.bookMu.RUnlock()

	t, ok := s.tickets[code]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	out := *t
	return &out, nil
}

// RedeemTicket marks a valid ticket of a paid booking as used.
func (s *Store) RedeemTicket(ctx context.Context, code string, now time.Time) (*domain.AttendeeTicket, error) {
	const op = "memory.Store.RedeemTicket"

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	t, ok := s.tickets[code]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	if t.Status.Terminal() {
		return nil, fmt.Errorf("%s:%w", op, domain.AlreadyRedeemedError{Code: t.Code, Status: t.Status})
	}

	rec, ok := s.bookings[t.BookingID]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInvariantViolation)
	}
	if rec.booking.PaymentStatus != domain.PaymentPaid {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotPaid)
	}

	next, err := t.Redeem(now)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	*t = next

	out := next
	return &out, nil
}

func (s *Store) ExpireTicket(ctx context.Context, code string) (*domain.AttendeeTicket, error) {
	const op = "memory.Store.ExpireTicket"

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	t, ok := s.tickets[code]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	next, err := t.Expire()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	*t = next

	out := next
	return &out, nil
}

func (s *Store) CreateAttendee(ctx context.Context, a domain.Attendee) (*domain.Attendee, error) {
	const op = "memory.Store.CreateAttendee"

	s.regMu.RLock()
	_, eventOK := s.events[a.EventID]
	_, userOK := s.users[a.UserID]
	s.regMu.RUnlock()
	if !eventOK || !userOK {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	s.attMu.Lock()
	defer s.attMu.Unlock()

	for _, existing := range s.attendees {
		if existing.EventID == a.EventID && existing.UserID == a.UserID {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
	}

	a.ID = s.nextID()
	if a.CheckInStatus == "" {
		a.CheckInStatus = domain.CheckInPending
	}
	s.attendees[a.ID] = a

	return &a, nil
}

func (s *Store) GetAttendee(ctx context.Context, id int64) (*domain.Attendee, error) {
	const op = "memory.Store.GetAttendee"

	s.attMu.Lock()
	defer s.attMu.Unlock()

	a, ok := s.attendees[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return &a, nil
}

// UpdateAttendee applies the patch under the attendee lock.
func (s *Store) UpdateAttendee(ctx context.Context, id int64, p domain.AttendeePatch, now time.Time) (*domain.Attendee, error) {
	const op = "memory.Store.UpdateAttendee"

	s.attMu.Lock()
	defer s.attMu.Unlock()

	a, ok := s.attendees[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	next, err := a.Apply(p, now)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	s.attendees[id] = next

	return &next, nil
}

func (s *Store) AttendeeCounts(ctx context.Context, eventID int64) (map[domain.CheckInStatus]int, error) {
	s.attMu.Lock()
	defer s.attMu.Unlock()

	out := make(map[domain.CheckInStatus]int)
	for _, a := range s.attendees {
		if a.EventID == eventID {
			out[a.CheckInStatus]++
		}
	}

	return out, nil
}

func (s *Store) ListAttendees(ctx context.Context, eventID int64) ([]domain.Attendee, error) {
	s.attMu.Lock()
	defer s.attMu.Unlock()

	var out []domain.Attendee
	for _, a := range s.attendees {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}

	slices.SortFunc(out, func(a, b domain.Attendee) int {
		return int(a.ID - b.ID)
	})

	return out, nil
}
