package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

type AdminRepo struct {
	store *Store
	db    DB
}

func (r *AdminRepo) With(db DB) *AdminRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AdminRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.store.pool
}

func (r *AdminRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	const op = "postgresrepo.AdminRepo.CreateUser"

	if u.Role == "" {
		u.Role = domain.RoleAttendee
	}

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO users(email, role)
		 VALUES ($1, $2)
		 RETURNING id`,
		u.Email, u.Role,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *AdminRepo) CreateEvent(ctx context.Context, e domain.Event) (int64, error) {
	const op = "postgresrepo.AdminRepo.CreateEvent"

	if e.Status == "" {
		e.Status = domain.EventDraft
	}

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO events(organizer_id, title, location, starts_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.OrganizerID, e.Title, e.Location, e.StartsAt, e.Status,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *AdminRepo) SetEventStatus(ctx context.Context, id int64, status domain.EventStatus) (*domain.Event, error) {
	const op = "postgresrepo.AdminRepo.SetEventStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrInvalidEventStatus)
	}

	var e domain.Event
	err := r.handle().QueryRow(ctx,
		`UPDATE events SET status = $2
		 WHERE id = $1
		 RETURNING id, organizer_id, title, location, starts_at, status`,
		id, status,
	).Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Location, &e.StartsAt, &e.Status)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

func (r *AdminRepo) CreateTicketType(ctx context.Context, tt domain.TicketType) (int64, error) {
	const op = "postgresrepo.AdminRepo.CreateTicketType"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO ticket_types(event_id, name, unit_price_cents, total_capacity, remaining_capacity)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING id`,
		tt.EventID, tt.Name, tt.UnitPriceCents, tt.TotalCapacity,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// UpdateTicketType applies the patch to the locked ticket type row after
// releasing its expired leases.
func (r *AdminRepo) UpdateTicketType(ctx context.Context, id int64, p domain.TicketTypePatch) (*domain.TicketType, error) {
	const op = "postgresrepo.AdminRepo.UpdateTicketType"

	var out *domain.TicketType
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		if _, err := tx.Exec(ctx, `SELECT 1 FROM ticket_types WHERE id = $1 FOR UPDATE`, id); err != nil {
			return err
		}

		if _, err := sweepTicketType(ctx, tx, id); err != nil {
			return err
		}

		tt, err := scanTicketType(tx.QueryRow(ctx,
			`SELECT id, event_id, name, unit_price_cents, total_capacity, remaining_capacity
			 FROM ticket_types WHERE id = $1`,
			id,
		))
		if err != nil {
			return err
		}

		next, err := tt.Apply(p)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE ticket_types
			 SET name = $2, unit_price_cents = $3, total_capacity = $4, remaining_capacity = $5
			 WHERE id = $1`,
			id, next.Name, next.UnitPriceCents, next.TotalCapacity, next.RemainingCapacity,
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

// DeleteTicketType removes a ticket type no booking or live lease refers to.
func (r *AdminRepo) DeleteTicketType(ctx context.Context, id int64) error {
	const op = "postgresrepo.AdminRepo.DeleteTicketType"

	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		if err := tx.QueryRow(ctx,
			`SELECT id FROM ticket_types WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&id); err != nil {
			return err
		}

		var referenced bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM booking_details WHERE ticket_type_id = $1)
			     OR EXISTS (SELECT 1 FROM reservations WHERE ticket_type_id = $1 AND status = 'pending')`,
			id,
		).Scan(&referenced); err != nil {
			return err
		}
		if referenced {
			return repository.ErrReferenced
		}

		if _, err := tx.Exec(ctx, `DELETE FROM reservations WHERE ticket_type_id = $1`, id); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `DELETE FROM ticket_types WHERE id = $1`, id)
		if isForeignKeyViolation(err) {
			return repository.ErrReferenced
		}
		return err
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// CreateSeats adds seats to an event, skipping ones already present.
func (r *AdminRepo) CreateSeats(ctx context.Context, eventID int64, seats []domain.SeatMap) ([]int64, error) {
	const op = "postgresrepo.AdminRepo.CreateSeats"

	rowLabels := make([]string, 0, len(seats))
	numbers := make([]string, 0, len(seats))
	for _, s := range seats {
		rowLabels = append(rowLabels, s.Row)
		numbers = append(numbers, s.SeatNumber)
	}

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`,
		eventID,
	).Scan(&exists); err != nil {
		return nil, wrapDBErr(op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	rows, err := r.handle().Query(ctx,
		`INSERT INTO seat_maps(event_id, row_label, seat_number, status)
		 SELECT $1, r, n, 'available'
		 FROM unnest($2::text[], $3::text[]) AS t(r, n)
		 ON CONFLICT (event_id, row_label, seat_number) DO NOTHING
		 RETURNING id`,
		eventID, rowLabels, numbers,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}

func (r *AdminRepo) CreateDiscount(ctx context.Context, d domain.Discount) (int64, error) {
	const op = "postgresrepo.AdminRepo.CreateDiscount"

	if d.Status == "" {
		d.Status = domain.DiscountActive
	}

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO discounts(event_id, code, type, value, max_usage, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		d.EventID, strings.ToUpper(strings.TrimSpace(d.Code)), d.Type, d.Value, d.MaxUsage, d.Status,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}
