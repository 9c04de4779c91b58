package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

const defaultHoldTTL = 30 * time.Second

// InventoryRepo hands out and takes back leases on ticket type capacity and
// seats. Every mutation locks the ticket type row first.
type InventoryRepo struct {
	store *Store
	db    DB
}

func (r *InventoryRepo) With(db DB) *InventoryRepo {
	cp := *r
	cp.db = db
	return &cp
}

// Reserve takes quantity units of a ticket type and moves the requested
// seats to pending for the lease window.
//
// Returns:
//   - *domain.Reservation: the pending reservation.
//   - error: repository.ErrInsufficientInventory if capacity is short.
//   - error: repository.SeatsUnavailableError if some seats are taken.
func (r *InventoryRepo) Reserve(ctx context.Context, req domain.ReserveRequest) (*domain.Reservation, error) {
	const op = "postgresrepo.InventoryRepo.Reserve"

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrInvalidState)
	}

	var out *domain.Reservation
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		res, err := reserveCore(ctx, tx, req)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func reserveCore(ctx context.Context, db DB, req domain.ReserveRequest) (*domain.Reservation, error) {
	var eventID int64
	var remaining int
	if err := db.QueryRow(ctx,
		`SELECT event_id, remaining_capacity
		 FROM ticket_types
		 WHERE id = $1
		 FOR UPDATE`,
		req.TicketTypeID,
	).Scan(&eventID, &remaining); err != nil {
		return nil, err
	}

	if eventID != req.EventID {
		return nil, repository.ErrNotFound
	}

	restored, err := sweepTicketType(ctx, db, req.TicketTypeID)
	if err != nil {
		return nil, err
	}
	remaining += restored

	if remaining < req.Quantity {
		return nil, repository.ErrInsufficientInventory
	}

	seatIDs := sortedUnique(req.SeatIDs)
	if len(seatIDs) > 0 {
		unavailable, err := lockFreeSeats(ctx, db, req.EventID, seatIDs)
		if err != nil {
			return nil, err
		}
		if len(unavailable) > 0 {
			return nil, repository.SeatsUnavailableError{SeatIDs: unavailable}
		}
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = defaultHoldTTL
	}

	res := &domain.Reservation{
		ID:           uuid.New(),
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		Quantity:     req.Quantity,
		SeatIDs:      seatIDs,
		Status:       domain.ReservationPending,
		ExpiresAt:    time.Now().Add(ttl),
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO reservations(id, event_id, ticket_type_id, quantity, seat_ids, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		 RETURNING created_at`,
		res.ID, res.EventID, res.TicketTypeID, res.Quantity, seatIDs, res.ExpiresAt,
	).Scan(&res.CreatedAt); err != nil {
		return nil, err
	}

	if _, err := db.Exec(ctx,
		`UPDATE ticket_types
		 SET remaining_capacity = remaining_capacity - $2
		 WHERE id = $1`,
		req.TicketTypeID, req.Quantity,
	); err != nil {
		return nil, err
	}

	if len(seatIDs) > 0 {
		if _, err := db.Exec(ctx,
			`UPDATE seat_maps
			 SET status = 'pending', reservation_id = $2, hold_expires_at = $3
			 WHERE id = ANY($1)`,
			seatIDs, res.ID, res.ExpiresAt,
		); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// lockFreeSeats locks the seats in ID order and returns the ones that cannot
// be taken. A pending hold past its expiry does not block.
func lockFreeSeats(ctx context.Context, db DB, eventID int64, seatIDs []int64) ([]int64, error) {
	rows, err := db.Query(ctx,
		`SELECT id, event_id,
		        status = 'available' OR (status = 'pending' AND hold_expires_at <= now())
		 FROM seat_maps
		 WHERE id = ANY($1)
		 ORDER BY id
		 FOR UPDATE`,
		seatIDs,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	found := make(map[int64]struct{}, len(seatIDs))
	var unavailable []int64
	for rows.Next() {
		var id, seatEvent int64
		var free bool
		if err := rows.Scan(&id, &seatEvent, &free); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
		if seatEvent != eventID || !free {
			unavailable = append(unavailable, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range seatIDs {
		if _, ok := found[id]; !ok {
			unavailable = append(unavailable, id)
		}
	}
	slices.Sort(unavailable)

	return unavailable, nil
}

// sweepTicketType releases expired pending leases of a ticket type whose row
// the caller has locked, and returns the capacity given back.
func sweepTicketType(ctx context.Context, db DB, ticketTypeID int64) (int, error) {
	rows, err := db.Query(ctx,
		`UPDATE reservations
		 SET status = 'released'
		 WHERE ticket_type_id = $1 AND status = 'pending' AND expires_at <= now()
		 RETURNING id, quantity`,
		ticketTypeID,
	)
	if err != nil {
		return 0, err
	}

	ids, restored, err := collectReleased(rows)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	if err := releaseHolds(ctx, db, ticketTypeID, ids, restored); err != nil {
		return 0, err
	}

	return restored, nil
}

func collectReleased(rows pgx.Rows) ([]uuid.UUID, int, error) {
	defer rows.Close()

	var ids []uuid.UUID
	var total int
	for rows.Next() {
		var id uuid.UUID
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
		total += qty
	}

	return ids, total, rows.Err()
}

func releaseHolds(ctx context.Context, db DB, ticketTypeID int64, ids []uuid.UUID, quantity int) error {
	if _, err := db.Exec(ctx,
		`UPDATE seat_maps
		 SET status = 'available', reservation_id = NULL, hold_expires_at = NULL
		 WHERE reservation_id = ANY($1::uuid[]) AND status = 'pending'`,
		ids,
	); err != nil {
		return err
	}

	_, err := db.Exec(ctx,
		`UPDATE ticket_types
		 SET remaining_capacity = remaining_capacity + $2
		 WHERE id = $1`,
		ticketTypeID, quantity,
	)
	return err
}

// Release gives a pending reservation back. Unknown, released and committed
// reservations are left alone.
func (r *InventoryRepo) Release(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.InventoryRepo.Release"

	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		var ticketTypeID int64
		err := tx.QueryRow(ctx,
			`SELECT ticket_type_id FROM reservations WHERE id = $1`,
			id,
		).Scan(&ticketTypeID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM ticket_types WHERE id = $1 FOR UPDATE`,
			ticketTypeID,
		); err != nil {
			return err
		}

		rows, err := tx.Query(ctx,
			`UPDATE reservations
			 SET status = 'released'
			 WHERE id = $1 AND status = 'pending'
			 RETURNING id, quantity`,
			id,
		)
		if err != nil {
			return err
		}

		ids, qty, err := collectReleased(rows)
		if err != nil || len(ids) == 0 {
			return err
		}

		return releaseHolds(ctx, tx, ticketTypeID, ids, qty)
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ExpireReservations releases every expired pending lease, one ticket type
// per transaction.
//
// Returns:
//   - int64: the number of leases released.
//   - error: if any error occurs while releasing.
func (r *InventoryRepo) ExpireReservations(ctx context.Context) (int64, error) {
	const op = "postgresrepo.InventoryRepo.ExpireReservations"

	db := r.db
	if db == nil {
		db = r.store.pool
	}

	rows, err := db.Query(ctx,
		`SELECT DISTINCT ticket_type_id
		 FROM reservations
		 WHERE status = 'pending' AND expires_at <= now()
		 ORDER BY ticket_type_id`,
	)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	ticketTypeIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	var released int64
	for _, ttID := range ticketTypeIDs {
		var n int
		err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
			if _, err := tx.Exec(ctx,
				`SELECT 1 FROM ticket_types WHERE id = $1 FOR UPDATE`,
				ttID,
			); err != nil {
				return err
			}

			rows, err := tx.Query(ctx,
				`UPDATE reservations
				 SET status = 'released'
				 WHERE ticket_type_id = $1 AND status = 'pending' AND expires_at <= now()
				 RETURNING id, quantity`,
				ttID,
			)
			if err != nil {
				return err
			}

			ids, qty, err := collectReleased(rows)
			if err != nil || len(ids) == 0 {
				return err
			}

			if err := releaseHolds(ctx, tx, ttID, ids, qty); err != nil {
				return err
			}

			n = len(ids)
			return nil
		})
		if err != nil {
			return released, wrapDBErr(op, err)
		}
		released += int64(n)
	}

	return released, nil
}

func sortedUnique(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}
