package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-booking/internal/domain"
)

// QueryRepo serves the read side: sales aggregates and seat listings.
type QueryRepo struct {
	store *Store
	db    DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.store.pool
}

// TicketSales sums committed line items of non-failed bookings per ticket
// type of an event.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - eventID: unique identifier of the event.
//
// Returns:
//   - []domain.TicketSales: one entry per ticket type with sales.
//   - error: if the query fails.
func (r *QueryRepo) TicketSales(ctx context.Context, eventID int64) ([]domain.TicketSales, error) {
	const op = "postgresrepo.QueryRepo.TicketSales"

	rows, err := r.handle().Query(ctx,
		`SELECT d.ticket_type_id,
		        COALESCE(SUM(d.quantity), 0),
		        COALESCE(SUM(d.quantity * d.unit_price_cents), 0)
		 FROM booking_details d
		 JOIN bookings b ON b.id = d.booking_id
		 WHERE b.event_id = $1 AND b.payment_status <> 'failed'
		 GROUP BY d.ticket_type_id
		 ORDER BY d.ticket_type_id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketSales, error) {
		var ts domain.TicketSales
		err := row.Scan(&ts.TicketTypeID, &ts.Quantity, &ts.RevenueCents)
		return ts, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// NetRevenue sums booking totals after discounts for non-failed bookings.
func (r *QueryRepo) NetRevenue(ctx context.Context, eventID int64) (int64, error) {
	const op = "postgresrepo.QueryRepo.NetRevenue"

	var total int64
	if err := r.handle().QueryRow(ctx,
		`SELECT COALESCE(SUM(total_cents), 0)
		 FROM bookings
		 WHERE event_id = $1 AND payment_status <> 'failed'`,
		eventID,
	).Scan(&total); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return total, nil
}

// LiveHolds sums pending lease quantities per ticket type of an event.
// Leases past expires_at are left out even before the reaper releases them.
func (r *QueryRepo) LiveHolds(ctx context.Context, eventID int64) (map[int64]int, error) {
	const op = "postgresrepo.QueryRepo.LiveHolds"

	rows, err := r.handle().Query(ctx,
		`SELECT ticket_type_id, SUM(quantity)
		 FROM reservations
		 WHERE event_id = $1 AND status = 'pending' AND expires_at > now()
		 GROUP BY ticket_type_id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var (
			id  int64
			qty int
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ListEventSeats lists seats for an event. Holds past their expiry are
// reported as available.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - eventID: unique identifier of the event.
//   - onlyAvailable: flag to filter only available seats.
//   - limit, offset: pagination parameters.
//
// Returns:
//   - []domain.SeatMap: list of seats with their status.
//   - error: if the query fails.
func (r *QueryRepo) ListEventSeats(
	ctx context.Context,
	eventID int64,
	onlyAvailable bool,
	limit, offset int,
) ([]domain.SeatMap, error) {
	const op = "postgresrepo.QueryRepo.ListEventSeats"

	rows, err := r.handle().Query(ctx,
		`SELECT id, event_id, row_label, seat_number, status, reservation_id, hold_expires_at
		 FROM (
			SELECT id, event_id, row_label, seat_number,
			       CASE WHEN status = 'pending' AND hold_expires_at <= now()
			            THEN 'available' ELSE status END AS status,
			       CASE WHEN status = 'pending' AND hold_expires_at <= now()
			            THEN NULL ELSE reservation_id END AS reservation_id,
			       CASE WHEN status = 'pending' AND hold_expires_at <= now()
			            THEN NULL ELSE hold_expires_at END AS hold_expires_at
			FROM seat_maps
			WHERE event_id = $1
		 ) s
		 WHERE NOT $2 OR s.status = 'available'
		 ORDER BY row_label, seat_number, id
		 LIMIT $3 OFFSET $4`,
		eventID, onlyAvailable, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.SeatMap
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *seat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
