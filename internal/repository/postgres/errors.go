package postgresrepo

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/tix-booking/internal/repository"
)

// Unique indexes whose violation means a freshly issued code was taken.
var codeConstraints = map[string]struct{}{
	"bookings_qr_code_key":      {},
	"attendee_tickets_code_key": {},
}

const usageConstraint = "discount_usages_user_discount_key"

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return true
		}
	}

	return false
}

func isForeignKeyViolation(err error) bool {
	var pge *pgconn.PgError
	return errors.As(err, &pge) && pge.Code == pgerrcode.ForeignKeyViolation
}

// translateDBErr maps driver errors to repository errors. Errors it does not
// recognize are returned unchanged so retry checks still see them.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case pgerrcode.UniqueViolation:
			if _, ok := codeConstraints[pge.ConstraintName]; ok {
				return repository.ErrCodeCollision
			}
			if pge.ConstraintName == usageConstraint {
				return repository.ErrDiscountAlreadyUsed
			}
			return repository.ErrConflict
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w: %s", repository.ErrInvariantViolation, pge.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return repository.ErrNotFound
		}
	}

	return err
}

// wrapDBErr maps common DB errors to repository-level errors and wraps them with
// the provided operation name.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}
