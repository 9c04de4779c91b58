// Package memory is an in-process implementation of the booking store. It
// keeps the same atomicity guarantees as the postgres store: every entity
// carries its own mutex and multi-entity operations lock ticket types, then
// seats, then discounts (each in ascending ID order) and finally the
// bookings table.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

type ticketTypeEntry struct {
	mu      sync.Mutex
	tt      domain.TicketType
	pending map[uuid.UUID]*domain.Reservation
	deleted bool
}

type seatEntry struct {
	mu   sync.Mutex
	seat domain.SeatMap
}

type discountEntry struct {
	mu     sync.Mutex
	d      domain.Discount
	usages map[int64]*domain.Redemption // by user
}

type bookingRecord struct {
	booking     domain.Booking
	ticketCodes []string
}

type Store struct {
	now func() time.Time
	seq atomic.Int64

	// Registry locks guard map membership only, never a check-and-act.
	regMu        sync.RWMutex
	users        map[int64]domain.User
	events       map[int64]domain.Event
	ticketTypes  map[int64]*ticketTypeEntry
	seats        map[int64]*seatEntry
	discounts    map[int64]*discountEntry
	codes        map[string]int64 // "eventID:CODE" -> discount id
	reservations map[uuid.UUID]*domain.Reservation
	redemptions  map[uuid.UUID]int64 // redemption -> discount id

	attMu     sync.Mutex
	attendees map[int64]domain.Attendee

	bookMu    sync.RWMutex
	bookings  map[uuid.UUID]*bookingRecord
	tickets   map[string]*domain.AttendeeTicket
	reversals []domain.DiscountReversal
}

type Option func(*Store)

// WithClock overrides time.Now, which drives lease expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:          time.Now,
		users:        make(map[int64]domain.User),
		events:       make(map[int64]domain.Event),
		ticketTypes:  make(map[int64]*ticketTypeEntry),
		seats:        make(map[int64]*seatEntry),
		discounts:    make(map[int64]*discountEntry),
		codes:        make(map[string]int64),
		reservations: make(map[uuid.UUID]*domain.Reservation),
		redemptions:  make(map[uuid.UUID]int64),
		attendees:    make(map[int64]domain.Attendee),
		bookings:     make(map[uuid.UUID]*bookingRecord),
		tickets:      make(map[string]*domain.AttendeeTicket),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) nextID() int64 {
	return s.seq.Add(1)
}

func codeKey(eventID int64, code string) string {
	return fmt.Sprintf("%d:%s", eventID, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Store) ticketTypeEntry(id int64) (*ticketTypeEntry, bool) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	e, ok := s.ticketTypes[id]
	return e, ok
}

func (s *Store) seatEntry(id int64) (*seatEntry, bool) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	e, ok := s.seats[id]
	return e, ok
}

func (s *Store) discountEntry(id int64) (*discountEntry, bool) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	e, ok := s.discounts[id]
	return e, ok
}

// lockTicketTypes locks the entries for ids in ascending order.
func (s *Store) lockTicketTypes(ids []int64) ([]*ticketTypeEntry, func(), error) {
	ids = sortedUnique(ids)

	entries := make([]*ticketTypeEntry, 0, len(ids))
	for _, id := range ids {
		e, ok := s.ticketTypeEntry(id)
		if !ok {
			return nil, nil, fmt.Errorf("ticket type %d: %w", id, repository.ErrNotFound)
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		e.mu.Lock()
	}

	return entries, func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}, nil
}

// lockSeats locks the seats for ids in ascending order. Unknown seats are
// reported in missing and are not locked.
func (s *Store) lockSeats(ids []int64) (map[int64]*seatEntry, []int64, func()) {
	ids = sortedUnique(ids)

	entries := make(map[int64]*seatEntry, len(ids))
	var missing []int64
	var locked []*seatEntry

	for _, id := range ids {
		e, ok := s.seatEntry(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		e.mu.Lock()
		entries[id] = e
		locked = append(locked, e)
	}

	return entries, missing, func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
}

func sortedUnique(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// releaseSeatsLocked frees seats still pending under reservation id. The
// caller holds the seat locks.
func releaseSeatsLocked(seats map[int64]*seatEntry, id uuid.UUID) {
	for _, e := range seats {
		if e.seat.Status == domain.SeatPending &&
			e.seat.ReservationID != nil && *e.seat.ReservationID == id {
			e.seat.Status = domain.SeatAvailable
			e.seat.ReservationID = nil
			e.seat.HoldExpiresAt = nil
		}
	}
}

// UserExists implements the identity read used by purchases.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()

	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "memory.Store.GetEvent"

	s.regMu.RLock()
	defer s.regMu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return &e, nil
}

func (s *Store) GetTicketType(ctx context.Context, id int64) (*domain.TicketType, error) {
	const op = "memory.Store.GetTicketType"

	e, ok := s.ticketTypeEntry(id)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	tt := e.tt
	return &tt, nil
}

func (s *Store) TicketTypesByEvent(ctx context.Context, eventID int64) ([]domain.TicketType, error) {
	s.regMu.RLock()
	entries := make([]*ticketTypeEntry, 0)
	for _, e := range s.ticketTypes {
		entries = append(entries, e)
	}
	s.regMu.RUnlock()

	var out []domain.TicketType
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && e.tt.EventID == eventID {
			out = append(out, e.tt)
		}
		e.mu.Unlock()
	}

	slices.SortFunc(out, func(a, b domain.TicketType) int {
		return int(a.ID - b.ID)
	})

	return out, nil
}

func (s *Store) GetDiscountByCode(ctx context.Context, eventID int64, code string) (*domain.Discount, error) {
	const op = "memory.Store.GetDiscountByCode"

	s.regMu.RLock()
	id, ok := s.codes[codeKey(eventID, code)]
	s.regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	e, ok := s.discountEntry(id)
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.d
	return &d, nil
}
