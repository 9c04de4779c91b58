package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-booking/internal/domain"
)

// CatalogRepo reads events, ticket types, seats and discounts.
type CatalogRepo struct {
	store *Store
	db    DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.store.pool
}

func (r *CatalogRepo) UserExists(ctx context.Context, id int64) (bool, error) {
	const op = "postgresrepo.CatalogRepo.UserExists"

	var ok bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
		id,
	).Scan(&ok); err != nil {
		return false, wrapDBErr(op, err)
	}

	return ok, nil
}

// GetEvent retrieves an event by its ID.
//
// Returns:
//   - *domain.Event: the event when found.
//   - error: repository.ErrNotFound if the event is not found.
func (r *CatalogRepo) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgresrepo.CatalogRepo.GetEvent"

	var e domain.Event
	err := r.handle().QueryRow(ctx,
		`SELECT id, organizer_id, title, location, starts_at, status
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Location, &e.StartsAt, &e.Status)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

// GetTicketType retrieves a ticket type by its ID.
//
// Returns:
//   - *domain.TicketType: the ticket type when found.
//   - error: repository.ErrNotFound if the ticket type is not found.
func (r *CatalogRepo) GetTicketType(ctx context.Context, id int64) (*domain.TicketType, error) {
	const op = "postgresrepo.CatalogRepo.GetTicketType"

	tt, err := scanTicketType(r.handle().QueryRow(ctx,
		`SELECT id, event_id, name, unit_price_cents, total_capacity, remaining_capacity
		 FROM ticket_types WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return tt, nil
}

func (r *CatalogRepo) TicketTypesByEvent(ctx context.Context, eventID int64) ([]domain.TicketType, error) {
	const op = "postgresrepo.CatalogRepo.TicketTypesByEvent"

	rows, err := r.handle().Query(ctx,
		`SELECT id, event_id, name, unit_price_cents, total_capacity, remaining_capacity
		 FROM ticket_types
		 WHERE event_id = $1
		 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.TicketType
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *tt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetDiscountByCode looks a code up case-insensitively within an event.
func (r *CatalogRepo) GetDiscountByCode(ctx context.Context, eventID int64, code string) (*domain.Discount, error) {
	const op = "postgresrepo.CatalogRepo.GetDiscountByCode"

	d, err := scanDiscount(r.handle().QueryRow(ctx,
		`SELECT id, event_id, code, type, value, max_usage, used_count, status
		 FROM discounts
		 WHERE event_id = $1 AND code = $2`,
		eventID, strings.ToUpper(strings.TrimSpace(code)),
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return d, nil
}

func (r *CatalogRepo) GetDiscount(ctx context.Context, id int64) (*domain.Discount, error) {
	const op = "postgresrepo.CatalogRepo.GetDiscount"

	d, err := scanDiscount(r.handle().QueryRow(ctx,
		`SELECT id, event_id, code, type, value, max_usage, used_count, status
		 FROM discounts WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return d, nil
}

func (r *CatalogRepo) GetSeat(ctx context.Context, id int64) (*domain.SeatMap, error) {
	const op = "postgresrepo.CatalogRepo.GetSeat"

	seat, err := scanSeat(r.handle().QueryRow(ctx,
		`SELECT id, event_id, row_label, seat_number, status, reservation_id, hold_expires_at
		 FROM seat_maps WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return seat, nil
}

func (r *CatalogRepo) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "postgresrepo.CatalogRepo.GetReservation"

	var res domain.Reservation
	err := r.handle().QueryRow(ctx,
		`SELECT id, event_id, ticket_type_id, quantity, seat_ids, status, expires_at, created_at
		 FROM reservations WHERE id = $1`,
		id,
	).Scan(
		&res.ID,
		&res.EventID,
		&res.TicketTypeID,
		&res.Quantity,
		&res.SeatIDs,
		&res.Status,
		&res.ExpiresAt,
		&res.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTicketType(row scanner) (*domain.TicketType, error) {
	var tt domain.TicketType
	if err := row.Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.UnitPriceCents,
		&tt.TotalCapacity,
		&tt.RemainingCapacity,
	); err != nil {
		return nil, err
	}
	return &tt, nil
}

func scanDiscount(row scanner) (*domain.Discount, error) {
	var d domain.Discount
	if err := row.Scan(
		&d.ID,
		&d.EventID,
		&d.Code,
		&d.Type,
		&d.Value,
		&d.MaxUsage,
		&d.UsedCount,
		&d.Status,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanSeat(row scanner) (*domain.SeatMap, error) {
	var s domain.SeatMap
	if err := row.Scan(
		&s.ID,
		&s.EventID,
		&s.Row,
		&s.SeatNumber,
		&s.Status,
		&s.ReservationID,
		&s.HoldExpiresAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
