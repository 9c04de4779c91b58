package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
)

type Store interface {
	CreateUser(ctx context.Context, u domain.User) (int64, error)
	CreateEvent(ctx context.Context, e domain.Event) (int64, error)
	SetEventStatus(ctx context.Context, id int64, status domain.EventStatus) (*domain.Event, error)
	CreateTicketType(ctx context.Context, tt domain.TicketType) (int64, error)
	UpdateTicketType(ctx context.Context, id int64, p domain.TicketTypePatch) (*domain.TicketType, error)
	DeleteTicketType(ctx context.Context, id int64) error
	CreateSeats(ctx context.Context, eventID int64, seats []domain.SeatMap) ([]int64, error)
	CreateDiscount(ctx context.Context, d domain.Discount) (int64, error)
	GetTicketType(ctx context.Context, id int64) (*domain.TicketType, error)
}

type Service struct {
	store Store
	cache *redisrepo.Cache
	log   *slog.Logger
}

func New(store Store, cache *redisrepo.Cache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		store: store,
		cache: cache,
		log:   log,
	}
}

// CreateUser registers an identity known to the booking engine.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (int64, error) {
	const op = "service.admin.CreateUser"

	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, invalid(err))
	}

	id, err := s.store.CreateUser(ctx, domain.User{Email: in.Email, Role: in.Role})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, fmt.Errorf("%s: %w", op, ErrUserConflict)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// CreateEvent creates an event record and returns its ID. Events start as
// drafts unless a status is given.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: event attributes.
//
// Returns:
//   - int64: the created event ID on success.
//   - error: admin.ErrInvalidInput if the attributes fail validation.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (int64, error) {
	const op = "service.admin.CreateEvent"

	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, invalid(err))
	}

	id, err := s.store.CreateEvent(ctx, domain.Event{
		OrganizerID: in.OrganizerID,
		Title:       in.Title,
		Location:    in.Location,
		StartsAt:    in.StartsAt.UTC(),
		Status:      in.Status,
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// SetEventStatus moves an event between draft, published, cancelled and
// completed. Only published events sell tickets.
func (s *Service) SetEventStatus(ctx context.Context, eventID int64, status domain.EventStatus) (*domain.Event, error) {
	const op = "service.admin.SetEventStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s: %w", op, invalid(domain.ErrInvalidEventStatus))
	}

	ev, err := s.store.SetEventStatus(ctx, eventID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, eventID)

	return ev, nil
}

// CreateTicketType adds a ticket type with its full capacity remaining.
//
// Returns:
//   - int64: the created ticket type ID.
//   - error: admin.ErrInvalidInput or admin.ErrEventNotFound.
func (s *Service) CreateTicketType(ctx context.Context, eventID int64, in TicketTypeInput) (int64, error) {
	const op = "service.admin.CreateTicketType"

	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, invalid(err))
	}

	id, err := s.store.CreateTicketType(ctx, domain.TicketType{
		EventID:        eventID,
		Name:           in.Name,
		UnitPriceCents: in.UnitPriceCents,
		TotalCapacity:  in.TotalCapacity,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, eventID)

	return id, nil
}

// UpdateTicketType applies a typed patch. A capacity change shifts remaining
// capacity by the same delta and is refused when it would drop below what is
// already sold or held.
//
// Returns:
//   - *domain.TicketType: the updated ticket type.
//   - error: admin.ErrTicketTypeNotFound, admin.ErrInvalidInput or
//     admin.ErrCapacityBelowSold.
func (s *Service) UpdateTicketType(ctx context.Context, id int64, p domain.TicketTypePatch) (*domain.TicketType, error) {
	const op = "service.admin.UpdateTicketType"

	if p.Empty() {
		return nil, fmt.Errorf("%s: %w", op, invalid(domain.ErrInvalidPatch))
	}

	tt, err := s.store.UpdateTicketType(ctx, id, p)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrTicketTypeNotFound)
		case errors.Is(err, domain.ErrCapacityBelowSold):
			return nil, fmt.Errorf("%s: %w: %w", op, ErrCapacityBelowSold, err)
		case errors.Is(err, domain.ErrInvalidPatch):
			return nil, fmt.Errorf("%s: %w", op, invalid(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, tt.EventID, tt.ID)

	return tt, nil
}

// DeleteTicketType removes a ticket type that no booking or live hold
// references.
func (s *Service) DeleteTicketType(ctx context.Context, id int64) error {
	const op = "service.admin.DeleteTicketType"

	tt, err := s.store.GetTicketType(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTicketTypeNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.DeleteTicketType(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s: %w", op, ErrTicketTypeNotFound)
		case errors.Is(err, repository.ErrReferenced):
			return fmt.Errorf("%s: %w", op, ErrTicketTypeInUse)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, tt.EventID, tt.ID)

	return nil
}

// CreateSeats adds seats to an event. Seats that already exist for the same
// row and number are skipped; the returned IDs cover only new seats.
func (s *Service) CreateSeats(ctx context.Context, eventID int64, in []SeatInput) ([]int64, error) {
	const op = "service.admin.CreateSeats"

	if len(in) == 0 {
		return nil, fmt.Errorf("%s: %w", op, invalid(errors.New("no seats")))
	}
	for _, seat := range in {
		if err := seat.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, invalid(err))
		}
	}

	seats := make([]domain.SeatMap, 0, len(in))
	for _, seat := range in {
		seats = append(seats, domain.SeatMap{Row: seat.Row, SeatNumber: seat.SeatNumber})
	}

	ids, err := s.store.CreateSeats(ctx, eventID, seats)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

// CreateDiscount adds a discount code to an event. Codes are
// case-insensitive and unique per event.
func (s *Service) CreateDiscount(ctx context.Context, eventID int64, in DiscountInput) (int64, error) {
	const op = "service.admin.CreateDiscount"

	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, invalid(err))
	}

	id, err := s.store.CreateDiscount(ctx, domain.Discount{
		EventID:  eventID,
		Code:     in.Code,
		Type:     in.Type,
		Value:    in.Value,
		MaxUsage: in.MaxUsage,
		Status:   in.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return 0, fmt.Errorf("%s: %w", op, ErrDiscountConflict)
		case errors.Is(err, repository.ErrNotFound):
			return 0, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.InfoContext(ctx, "discount created",
		slog.Int64("event_id", eventID),
		slog.Int64("discount_id", id),
		slog.Int("max_usage", in.MaxUsage),
	)

	return id, nil
}

func (s *Service) invalidate(ctx context.Context, eventID int64, ticketTypeIDs ...int64) {
	if err := s.cache.InvalidateEvent(ctx, eventID, ticketTypeIDs...); err != nil {
		s.log.WarnContext(ctx, "invalidate cache",
			slog.Int64("event_id", eventID),
			slog.Any("err", err),
		)
	}
}
