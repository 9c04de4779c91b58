package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
	redisrepo "github.com/kirinyoku/tix-booking/internal/repository/redis"
)

type Store interface {
	GetEvent(ctx context.Context, id int64) (*domain.Event, error)
	GetTicketType(ctx context.Context, id int64) (*domain.TicketType, error)
	TicketTypesByEvent(ctx context.Context, eventID int64) ([]domain.TicketType, error)
	TicketSales(ctx context.Context, eventID int64) ([]domain.TicketSales, error)
	LiveHolds(ctx context.Context, eventID int64) (map[int64]int, error)
	NetRevenue(ctx context.Context, eventID int64) (int64, error)
	ListEventSeats(ctx context.Context, eventID int64, onlyAvailable bool, limit, offset int) ([]domain.SeatMap, error)
	AttendeeCounts(ctx context.Context, eventID int64) (map[domain.CheckInStatus]int, error)
}

type Config struct {
	StatsTTL         time.Duration
	DefaultSeatsPage int
	MaxSeatsPage     int
}

type Service struct {
	store Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 15 * time.Second
	}

	if cfg.DefaultSeatsPage <= 0 {
		cfg.DefaultSeatsPage = 100
	}

	if cfg.MaxSeatsPage <= 0 {
		cfg.MaxSeatsPage = 500
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// EventStats reports sold, held and remaining tickets and revenue for every
// ticket type of an event, utilizing a caching layer. Only committed,
// non-failed bookings count as sold.
//
// Parameters:
//   - ctx: request-scoped context.
//   - eventID: ID of the event.
//
// Returns:
//   - *domain.EventStats: the aggregated statistics.
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) EventStats(ctx context.Context, eventID int64) (*domain.EventStats, error) {
	const op = "service.query.EventStats"

	stats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventStats(eventID),
		s.cfg.StatsTTL,
		func(ctx context.Context) (domain.EventStats, error) {
			return s.loadEventStats(ctx, eventID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

func (s *Service) loadEventStats(ctx context.Context, eventID int64) (domain.EventStats, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.EventStats{}, ErrEventNotFound
		}
		return domain.EventStats{}, err
	}

	types, err := s.store.TicketTypesByEvent(ctx, eventID)
	if err != nil {
		return domain.EventStats{}, err
	}

	sales, err := s.salesByType(ctx, eventID)
	if err != nil {
		return domain.EventStats{}, err
	}

	holds, err := s.store.LiveHolds(ctx, eventID)
	if err != nil {
		return domain.EventStats{}, err
	}

	net, err := s.store.NetRevenue(ctx, eventID)
	if err != nil {
		return domain.EventStats{}, err
	}

	out := domain.EventStats{
		EventID:         eventID,
		NetRevenueCents: net,
		TicketTypes:     make([]domain.TicketTypeStats, 0, len(types)),
	}

	for _, tt := range types {
		ts := ticketTypeStats(tt, sales[tt.ID], holds[tt.ID], ev.Status)

		out.TotalTickets += ts.TotalCapacity
		out.TotalSold += ts.Sold
		out.TotalHeld += ts.Held
		out.TotalRemaining += ts.Remaining
		out.GrossRevenueCents += ts.RevenueCents
		out.TicketTypes = append(out.TicketTypes, ts)
	}
	out.SalesPercentage = domain.Percentage(out.TotalSold, out.TotalTickets)

	return out, nil
}

// TicketTypeStats reports the sales status of one ticket type.
func (s *Service) TicketTypeStats(ctx context.Context, ticketTypeID int64) (*domain.TicketTypeStats, error) {
	const op = "service.query.TicketTypeStats"

	stats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyTicketTypeStats(ticketTypeID),
		s.cfg.StatsTTL,
		func(ctx context.Context) (domain.TicketTypeStats, error) {
			tt, err := s.store.GetTicketType(ctx, ticketTypeID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.TicketTypeStats{}, ErrTicketTypeNotFound
				}
				return domain.TicketTypeStats{}, err
			}

			ev, err := s.store.GetEvent(ctx, tt.EventID)
			if err != nil {
				return domain.TicketTypeStats{}, err
			}

			sales, err := s.salesByType(ctx, tt.EventID)
			if err != nil {
				return domain.TicketTypeStats{}, err
			}

			holds, err := s.store.LiveHolds(ctx, tt.EventID)
			if err != nil {
				return domain.TicketTypeStats{}, err
			}

			return ticketTypeStats(*tt, sales[tt.ID], holds[tt.ID], ev.Status), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

func (s *Service) salesByType(ctx context.Context, eventID int64) (map[int64]domain.TicketSales, error) {
	sales, err := s.store.TicketSales(ctx, eventID)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]domain.TicketSales, len(sales))
	for _, ts := range sales {
		out[ts.TicketTypeID] = ts
	}

	return out, nil
}

// ticketTypeStats reports live leases as held. Capacity still taken by
// leases that expired but were not swept yet counts as remaining, the way
// the next reservation would see it.
func ticketTypeStats(tt domain.TicketType, sales domain.TicketSales, held int, status domain.EventStatus) domain.TicketTypeStats {
	held = max(held, 0)

	remaining := tt.RemainingCapacity
	if stale := tt.TotalCapacity - tt.RemainingCapacity - sales.Quantity - held; stale > 0 {
		remaining += stale
	}
	remaining = min(remaining, tt.TotalCapacity)

	return domain.TicketTypeStats{
		TicketTypeID:    tt.ID,
		EventID:         tt.EventID,
		Name:            tt.Name,
		UnitPriceCents:  tt.UnitPriceCents,
		TotalCapacity:   tt.TotalCapacity,
		Sold:            sales.Quantity,
		Held:            held,
		Remaining:       remaining,
		SalesPercentage: domain.Percentage(sales.Quantity, tt.TotalCapacity),
		RevenueCents:    sales.RevenueCents,
		OnSale:          status.Sellable() && remaining > 0,
	}
}

// AttendeeStats counts attendees per check-in status.
func (s *Service) AttendeeStats(ctx context.Context, eventID int64) (*domain.AttendeeStats, error) {
	const op = "service.query.AttendeeStats"

	stats, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyEventAttendeeStats(eventID),
		s.cfg.StatsTTL,
		func(ctx context.Context) (domain.AttendeeStats, error) {
			if _, err := s.store.GetEvent(ctx, eventID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.AttendeeStats{}, ErrEventNotFound
				}
				return domain.AttendeeStats{}, err
			}

			counts, err := s.store.AttendeeCounts(ctx, eventID)
			if err != nil {
				return domain.AttendeeStats{}, err
			}

			out := domain.AttendeeStats{
				EventID:   eventID,
				CheckedIn: counts[domain.CheckedIn],
				Pending:   counts[domain.CheckInPending],
				Cancelled: counts[domain.CheckInCancelled],
				NoShow:    counts[domain.CheckInNoShow],
			}
			out.Total = out.CheckedIn + out.Pending + out.Cancelled + out.NoShow
			out.CheckInRate = domain.Percentage(out.CheckedIn, out.Total)

			return out, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &stats, nil
}

// ListEventSeats retrieves a list of seats for a specific event, with optional filtering
// for only available seats. Pagination is supported via limit and offset parameters.
//
// Parameters:
//   - ctx: request-scoped context.
//   - eventID: ID of the event to list seats for.
//   - onlyAvailable: if true, only seats that can be reserved now are returned.
//   - limit: maximum number of seats to return (default and max limits are enforced).
//   - offset: number of seats to skip for pagination.
//
// Returns:
//   - []domain.SeatMap: list of seats with their status.
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) ListEventSeats(
	ctx context.Context,
	eventID int64,
	onlyAvailable bool,
	limit, offset int,
) ([]domain.SeatMap, error) {
	const op = "service.query.ListEventSeats"

	if limit <= 0 {
		limit = s.cfg.DefaultSeatsPage
	}

	if limit > s.cfg.MaxSeatsPage {
		limit = s.cfg.MaxSeatsPage
	}

	if offset < 0 {
		offset = 0
	}

	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seats, err := s.store.ListEventSeats(ctx, eventID, onlyAvailable, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return seats, nil
}
