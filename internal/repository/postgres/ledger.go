package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/tix-booking/internal/domain"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

// LedgerRepo records discount usages. The discount row lock serializes
// redemptions of one code.
type LedgerRepo struct {
	store *Store
	db    DB
}

func (r *LedgerRepo) With(db DB) *LedgerRepo {
	cp := *r
	cp.db = db
	return &cp
}

// TryRedeem records one usage of the discount by the user.
//
// Returns:
//   - *domain.Redemption: the usage, not yet linked to a booking.
//   - error: repository.ErrDiscountAlreadyUsed, repository.ErrDiscountExhausted
//     or repository.ErrDiscountInactive when the usage is refused.
func (r *LedgerRepo) TryRedeem(ctx context.Context, userID, discountID int64) (*domain.Redemption, error) {
	const op = "postgresrepo.LedgerRepo.TryRedeem"

	var out *domain.Redemption
	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		var status domain.DiscountStatus
		var maxUsage, usedCount int
		if err := tx.QueryRow(ctx,
			`SELECT status, max_usage, used_count
			 FROM discounts
			 WHERE id = $1
			 FOR UPDATE`,
			discountID,
		).Scan(&status, &maxUsage, &usedCount); err != nil {
			return err
		}

		if status != domain.DiscountActive {
			return repository.ErrDiscountInactive
		}

		var used bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM discount_usages WHERE user_id = $1 AND discount_id = $2
			 )`,
			userID, discountID,
		).Scan(&used); err != nil {
			return err
		}
		if used {
			return repository.ErrDiscountAlreadyUsed
		}

		if usedCount >= maxUsage {
			return repository.ErrDiscountExhausted
		}

		red := &domain.Redemption{
			ID:         uuid.New(),
			DiscountID: discountID,
			UserID:     userID,
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO discount_usages(id, discount_id, user_id)
			 VALUES ($1, $2, $3)
			 RETURNING used_at`,
			red.ID, discountID, userID,
		).Scan(&red.UsedAt); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE discounts SET used_count = used_count + 1 WHERE id = $1`,
			discountID,
		); err != nil {
			return err
		}

		out = red
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Cancel drops a usage not yet linked to a booking. Unknown redemptions are a
// no-op; linked ones are refused with repository.ErrInvalidState.
func (r *LedgerRepo) Cancel(ctx context.Context, redemptionID uuid.UUID) error {
	const op = "postgresrepo.LedgerRepo.Cancel"

	err := r.store.atomic(ctx, r.db, func(ctx context.Context, tx DB) error {
		var discountID int64
		err := tx.QueryRow(ctx,
			`SELECT discount_id FROM discount_usages WHERE id = $1`,
			redemptionID,
		).Scan(&discountID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`SELECT 1 FROM discounts WHERE id = $1 FOR UPDATE`,
			discountID,
		); err != nil {
			return err
		}

		var bookingID *uuid.UUID
		err = tx.QueryRow(ctx,
			`SELECT booking_id FROM discount_usages WHERE id = $1 FOR UPDATE`,
			redemptionID,
		).Scan(&bookingID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if bookingID != nil {
			return repository.ErrInvalidState
		}

		if _, err := tx.Exec(ctx, `DELETE FROM discount_usages WHERE id = $1`, redemptionID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE discounts SET used_count = used_count - 1 WHERE id = $1`,
			discountID,
		)
		return err
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Reversals returns the audit trail of undone usages of a discount.
func (r *LedgerRepo) Reversals(ctx context.Context, discountID int64) ([]domain.DiscountReversal, error) {
	const op = "postgresrepo.LedgerRepo.Reversals"

	db := r.db
	if db == nil {
		db = r.store.pool
	}

	rows, err := db.Query(ctx,
		`SELECT discount_id, user_id, booking_id, reason, reversed_at
		 FROM discount_usage_reversals
		 WHERE discount_id = $1
		 ORDER BY reversed_at, id`,
		discountID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DiscountReversal, error) {
		var rv domain.DiscountReversal
		err := row.Scan(&rv.DiscountID, &rv.UserID, &rv.BookingID, &rv.Reason, &rv.ReversedAt)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
