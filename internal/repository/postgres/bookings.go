package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

// BookingRepo persists bookings and drives their payment transitions.
type BookingRepo struct {
	store *Store
	db    DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.store.pool
}

// Create persists the booking, its details and tickets, links the discount
// usage and commits every reservation in one transaction.
//
// Returns:
//   - *domain.Booking: the stored booking.
//   - error: repository.ErrReservationExpired or repository.ErrReservationNotPending
//     when a lease can no longer be committed.
//   - error: repository.ErrCodeCollision when an issued code is already taken.
func (r *BookingRepo) Create(ctx context.Context, draft domain.BookingDraft) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Create"

	b := draft.Booking
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		if err := commitReservations(ctx, tx, draft.ReservationIDs); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO bookings(
				id, user_id, event_id, subtotal_cents, discount_cents, total_cents,
				discount_id, payment_status, qr_code)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING created_at`,
			b.ID, b.UserID, b.EventID, b.SubtotalCents, b.DiscountCents, b.TotalCents,
			b.DiscountID, b.PaymentStatus, b.QRCode,
		).Scan(&b.CreatedAt); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, d := range b.Details {
			batch.Queue(
				`INSERT INTO booking_details(id, booking_id, ticket_type_id, seat_map_id, unit_price_cents, quantity)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				d.ID, b.ID, d.TicketTypeID, d.SeatMapID, d.UnitPriceCents, d.Quantity,
			)
		}
		for _, t := range b.Tickets {
			batch.Queue(
				`INSERT INTO attendee_tickets(code, booking_id, booking_detail_id, ticket_type_id, event_id, user_id, status)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				t.Code, b.ID, t.BookingDetailID, t.TicketTypeID, t.EventID, t.UserID, t.Status,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		if draft.RedemptionID != nil {
			if err := linkRedemption(ctx, tx, *draft.RedemptionID, b); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

// commitReservations locks ticket types then seats in ID order, checks every
// lease is still live and moves leases to committed and seats to booked.
func commitReservations(ctx context.Context, tx DB, ids []uuid.UUID) error {
	if _, err := tx.Exec(ctx,
		`SELECT 1 FROM ticket_types
		 WHERE id IN (SELECT ticket_type_id FROM reservations WHERE id = ANY($1::uuid[]))
		 ORDER BY id
		 FOR UPDATE`,
		ids,
	); err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT id, status, expires_at <= now(), seat_ids
		 FROM reservations
		 WHERE id = ANY($1::uuid[])
		 FOR UPDATE`,
		ids,
	)
	if err != nil {
		return err
	}

	type lease struct {
		status  domain.ReservationStatus
		expired bool
		seatIDs []int64
	}

	var leases []lease
	var seatIDs []int64
	for rows.Next() {
		var id uuid.UUID
		var l lease
		if err := rows.Scan(&id, &l.status, &l.expired, &l.seatIDs); err != nil {
			rows.Close()
			return err
		}
		leases = append(leases, l)
		seatIDs = append(seatIDs, l.seatIDs...)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(leases) != len(ids) {
		return repository.ErrReservationNotPending
	}
	for _, l := range leases {
		if l.status != domain.ReservationPending {
			return repository.ErrReservationNotPending
		}
		if l.expired {
			return repository.ErrReservationExpired
		}
	}

	if len(seatIDs) > 0 {
		seatIDs = sortedUnique(seatIDs)

		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM seat_maps WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
			seatIDs,
		); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE seat_maps
			 SET status = 'booked', reservation_id = NULL, hold_expires_at = NULL
			 WHERE id = ANY($1) AND status = 'pending' AND reservation_id = ANY($2::uuid[])`,
			seatIDs, ids,
		)
		if err != nil {
			return err
		}
		if int(tag.RowsAffected()) != len(seatIDs) {
			return repository.ErrReservationExpired
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE reservations SET status = 'committed' WHERE id = ANY($1::uuid[])`,
		ids,
	)
	return err
}

func linkRedemption(ctx context.Context, tx DB, redemptionID uuid.UUID, b domain.Booking) error {
	if b.DiscountID == nil {
		return repository.ErrInvalidState
	}

	if _, err := tx.Exec(ctx,
		`SELECT 1 FROM discounts WHERE id = $1 FOR UPDATE`,
		*b.DiscountID,
	); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE discount_usages
		 SET booking_id = $2
		 WHERE id = $1 AND user_id = $3 AND discount_id = $4 AND booking_id IS NULL`,
		redemptionID, b.ID, b.UserID, *b.DiscountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return repository.ErrInvalidState
	}

	return nil
}

// GetBooking retrieves a booking with its details and tickets.
//
// Returns:
//   - *domain.Booking: the booking when found.
//   - error: repository.ErrNotFound if the booking is not found.
func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetBooking"

	b, err := getBooking(ctx, r.handle(), id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func getBooking(ctx context.Context, db DB, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.QueryRow(ctx,
		`SELECT id, user_id, event_id, subtotal_cents, discount_cents, total_cents,
		        discount_id, payment_status, qr_code, created_at
		 FROM bookings WHERE id = $1`,
		id,
	).Scan(
		&b.ID,
		&b.UserID,
		&b.EventID,
		&b.SubtotalCents,
		&b.DiscountCents,
		&b.TotalCents,
		&b.DiscountID,
		&b.PaymentStatus,
		&b.QRCode,
		&b.CreatedAt,
	); err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx,
		`SELECT id, booking_id, ticket_type_id, seat_map_id, unit_price_cents, quantity
		 FROM booking_details
		 WHERE booking_id = $1
		 ORDER BY ticket_type_id, seat_map_id NULLS FIRST, id`,
		id,
	)
	if err != nil {
		return nil, err
	}

	b.Details, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BookingDetail, error) {
		var d domain.BookingDetail
		err := row.Scan(&d.ID, &d.BookingID, &d.TicketTypeID, &d.SeatMapID, &d.UnitPriceCents, &d.Quantity)
		return d, err
	})
	if err != nil {
		return nil, err
	}

	rows, err = db.Query(ctx,
		`SELECT code, booking_id, booking_detail_id, ticket_type_id, event_id, user_id, status, used_at
		 FROM attendee_tickets
		 WHERE booking_id = $1
		 ORDER BY code`,
		id,
	)
	if err != nil {
		return nil, err
	}

	b.Tickets, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AttendeeTicket, error) {
		return scanTicketRow(row)
	})
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// MarkPaid moves a pending booking to paid. A paid booking is returned
// unchanged.
func (r *BookingRepo) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.MarkPaid"

	var out *domain.Booking
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		var status domain.PaymentStatus
		if err := tx.QueryRow(ctx,
			`SELECT payment_status FROM bookings WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&status); err != nil {
			return err
		}

		switch status {
		case domain.PaymentPending:
			if _, err := tx.Exec(ctx,
				`UPDATE bookings SET payment_status = 'paid' WHERE id = $1`,
				id,
			); err != nil {
				return err
			}
		case domain.PaymentPaid:
		default:
			return repository.ErrInvalidState
		}

		b, err := getBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// MarkFailed moves a pending booking to failed, gives its capacity and seats
// back, expires its tickets and reverses its discount usage with an audit
// row. A failed booking is returned unchanged.
func (r *BookingRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.MarkFailed"

	var out *domain.Booking
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM ticket_types
			 WHERE id IN (SELECT ticket_type_id FROM booking_details WHERE booking_id = $1)
			 ORDER BY id
			 FOR UPDATE`,
			id,
		); err != nil {
			return err
		}

		var status domain.PaymentStatus
		if err := tx.QueryRow(ctx,
			`SELECT payment_status FROM bookings WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&status); err != nil {
			return err
		}

		switch status {
		case domain.PaymentFailed:
			b, err := getBooking(ctx, tx, id)
			out = b
			return err
		case domain.PaymentPaid:
			return repository.ErrInvalidState
		}

		if _, err := tx.Exec(ctx,
			`UPDATE ticket_types t
			 SET remaining_capacity = t.remaining_capacity + d.qty
			 FROM (
				SELECT ticket_type_id, SUM(quantity) AS qty
				FROM booking_details
				WHERE booking_id = $1
				GROUP BY ticket_type_id
			 ) d
			 WHERE t.id = d.ticket_type_id`,
			id,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE seat_maps
			 SET status = 'available'
			 WHERE status = 'booked'
			   AND id IN (
				SELECT seat_map_id FROM booking_details
				WHERE booking_id = $1 AND seat_map_id IS NOT NULL
			 )`,
			id,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE attendee_tickets SET status = 'expired'
			 WHERE booking_id = $1 AND status = 'valid'`,
			id,
		); err != nil {
			return err
		}

		if err := reverseUsage(ctx, tx, id, reason); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE bookings SET payment_status = 'failed' WHERE id = $1`,
			id,
		); err != nil {
			return err
		}

		b, err := getBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func reverseUsage(ctx context.Context, tx DB, bookingID uuid.UUID, reason string) error {
	rows, err := tx.Query(ctx,
		`DELETE FROM discount_usages
		 WHERE booking_id = $1
		 RETURNING discount_id, user_id`,
		bookingID,
	)
	if err != nil {
		return err
	}

	type usage struct{ discountID, userID int64 }
	usages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (usage, error) {
		var u usage
		err := row.Scan(&u.discountID, &u.userID)
		return u, err
	})
	if err != nil {
		return err
	}

	for _, u := range usages {
		if _, err := tx.Exec(ctx,
			`UPDATE discounts SET used_count = used_count - 1 WHERE id = $1`,
			u.discountID,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO discount_usage_reversals(discount_id, user_id, booking_id, reason)
			 VALUES ($1, $2, $3, $4)`,
			u.discountID, u.userID, bookingID, reason,
		); err != nil {
			return fmt.Errorf("reversal audit: %w", err)
		}
	}

	return nil
}
