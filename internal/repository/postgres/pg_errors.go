package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yuriwinchest/arena-courts/internal/repository"
)

// IsRetryable reports whether the error is a serialization failure or a
// deadlock, both safe to retry from the top of the transaction.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return repository.ErrTimeout
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case "23505": // unique_violation
			return repository.ErrConflict
		case "55P03": // lock_not_available
			return repository.ErrTimeout
		}
	}

	return err
}
