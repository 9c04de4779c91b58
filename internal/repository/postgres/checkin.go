package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

// CheckInRepo redeems attendee tickets and tracks attendee check-in state.
type CheckInRepo struct {
	store *Store
	db    DB
}

func (r *CheckInRepo) With(db DB) *CheckInRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CheckInRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.store.pool
}

const ticketColumns = `code, booking_id, booking_detail_id, ticket_type_id, event_id, user_id, status, used_at`

func scanTicketRow(row scanner) (domain.AttendeeTicket, error) {
	var t domain.AttendeeTicket
	err := row.Scan(
		&t.Code,
		&t.BookingID,
		&t.BookingDetailID,
		&t.TicketTypeID,
		&t.EventID,
		&t.UserID,
		&t.Status,
		&t.UsedAt,
	)
	return t, err
}

func (r *CheckInRepo) GetTicket(ctx context.Context, code string) (*domain.AttendeeTicket, error) {
	const op = "postgresrepo.CheckInRepo.GetTicket"

	t, err := scanTicketRow(r.handle().QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM attendee_tickets WHERE code = $1`,
		code,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &t, nil
}

// RedeemTicket marks a valid ticket of a paid booking as used.
//
// Returns:
//   - error: repository.ErrNotFound for an unknown code.
//   - error: domain.AlreadyRedeemedError for used or expired tickets.
//   - error: repository.ErrNotPaid when the booking is not paid.
func (r *CheckInRepo) RedeemTicket(ctx context.Context, code string, now time.Time) (*domain.AttendeeTicket, error) {
	const op = "postgresrepo.CheckInRepo.RedeemTicket"

	var out domain.AttendeeTicket
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		var t domain.AttendeeTicket
		var paid domain.PaymentStatus
		if err := tx.QueryRow(ctx,
			`SELECT t.code, t.booking_id, t.booking_detail_id, t.ticket_type_id,
			        t.event_id, t.user_id, t.status, t.used_at, b.payment_status
			 FROM attendee_tickets t
			 JOIN bookings b ON b.id = t.booking_id
			 WHERE t.code = $1
			 FOR UPDATE OF t`,
			code,
		).Scan(
			&t.Code,
			&t.BookingID,
			&t.BookingDetailID,
			&t.TicketTypeID,
			&t.EventID,
			&t.UserID,
			&t.Status,
			&t.UsedAt,
			&paid,
		); err != nil {
			return err
		}

		if t.Status.Terminal() {
			return domain.AlreadyRedeemedError{Code: t.Code, Status: t.Status}
		}
		if paid != domain.PaymentPaid {
			return repository.ErrNotPaid
		}

		next, err := t.Redeem(now)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE attendee_tickets SET status = $2, used_at = $3 WHERE code = $1`,
			code, next.Status, next.UsedAt,
		); err != nil {
			return err
		}

		out = next
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &out, nil
}

func (r *CheckInRepo) ExpireTicket(ctx context.Context, code string) (*domain.AttendeeTicket, error) {
	const op = "postgresrepo.CheckInRepo.ExpireTicket"

	var out domain.AttendeeTicket
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		t, err := scanTicketRow(tx.QueryRow(ctx,
			`SELECT `+ticketColumns+` FROM attendee_tickets WHERE code = $1 FOR UPDATE`,
			code,
		))
		if err != nil {
			return err
		}

		next, err := t.Expire()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE attendee_tickets SET status = $2 WHERE code = $1`,
			code, next.Status,
		); err != nil {
			return err
		}

		out = next
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &out, nil
}

func scanAttendee(row scanner) (*domain.Attendee, error) {
	var a domain.Attendee
	if err := row.Scan(&a.ID, &a.EventID, &a.UserID, &a.CheckInStatus, &a.CheckInTime); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *CheckInRepo) CreateAttendee(ctx context.Context, a domain.Attendee) (*domain.Attendee, error) {
	const op = "postgresrepo.CheckInRepo.CreateAttendee"

	if a.CheckInStatus == "" {
		a.CheckInStatus = domain.CheckInPending
	}

	out, err := scanAttendee(r.handle().QueryRow(ctx,
		`INSERT INTO attendees(event_id, user_id, check_in_status, check_in_time)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, event_id, user_id, check_in_status, check_in_time`,
		a.EventID, a.UserID, a.CheckInStatus, a.CheckInTime,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CheckInRepo) GetAttendee(ctx context.Context, id int64) (*domain.Attendee, error) {
	const op = "postgresrepo.CheckInRepo.GetAttendee"

	a, err := scanAttendee(r.handle().QueryRow(ctx,
		`SELECT id, event_id, user_id, check_in_status, check_in_time
		 FROM attendees WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return a, nil
}

// UpdateAttendee applies the patch to the locked attendee row.
func (r *CheckInRepo) UpdateAttendee(ctx context.Context, id int64, p domain.AttendeePatch, now time.Time) (*domain.Attendee, error) {
	const op = "postgresrepo.CheckInRepo.UpdateAttendee"

	var out *domain.Attendee
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		a, err := scanAttendee(tx.QueryRow(ctx,
			`SELECT id, event_id, user_id, check_in_status, check_in_time
			 FROM attendees WHERE id = $1
			 FOR UPDATE`,
			id,
		))
		if err != nil {
			return err
		}

		next, err := a.Apply(p, now)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE attendees SET check_in_status = $2, check_in_time = $3 WHERE id = $1`,
			id, next.CheckInStatus, next.CheckInTime,
		); err != nil {
			return err
		}

		out = &next
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CheckInRepo) AttendeeCounts(ctx context.Context, eventID int64) (map[domain.CheckInStatus]int, error) {
	const op = "postgresrepo.CheckInRepo.AttendeeCounts"

	rows, err := r.handle().Query(ctx,
		`SELECT check_in_status, COUNT(*)
		 FROM attendees
		 WHERE event_id = $1
		 GROUP BY check_in_status`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make(map[domain.CheckInStatus]int)
	for rows.Next() {
		var status domain.CheckInStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (r *CheckInRepo) ListAttendees(ctx context.Context, eventID int64) ([]domain.Attendee, error) {
	const op = "postgresrepo.CheckInRepo.ListAttendees"

	rows, err := r.handle().Query(ctx,
		`SELECT id, event_id, user_id, check_in_status, check_in_time
		 FROM attendees
		 WHERE event_id = $1
		 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Attendee, error) {
		a, err := scanAttendee(row)
		if err != nil {
			return domain.Attendee{}, err
		}
		return *a, nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
