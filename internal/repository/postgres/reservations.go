package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
)

const reservationColumns = `id, client_id, court_id, date::text, slot_starts, slot_minutes,
	amount_cents, status, payment_intent, starts_at, ends_at, created_at, updated_at`

func scanReservation(row interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	var r domain.Reservation
	err := row.Scan(
		&r.ID, &r.ClientID, &r.CourtID, &r.Date, &r.SlotStarts, &r.SlotMinutes,
		&r.AmountCents, &r.Status, &r.PaymentIntent, &r.StartsAt, &r.EndsAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "postgres.Store.GetReservation"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	r, err := scanReservation(s.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return r, nil
}

func (s *Store) ListByCourtAndDate(ctx context.Context, courtID, date string) ([]domain.Reservation, error) {
	const op = "postgres.Store.ListByCourtAndDate"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	out, err := listByCourtAndDate(ctx, s.pool, courtID, date)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func listByCourtAndDate(ctx context.Context, db DB, courtID, date string) ([]domain.Reservation, error) {
	rows, err := db.Query(ctx,
		`SELECT `+reservationColumns+`
		   FROM reservations
		  WHERE court_id = $1 AND date = $2
		  ORDER BY starts_at`,
		courtID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) ListByClient(ctx context.Context, clientID string) ([]domain.Reservation, error) {
	const op = "postgres.Store.ListByClient"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+reservationColumns+`
		   FROM reservations
		  WHERE client_id = $1
		  ORDER BY starts_at DESC`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// UpdateReservationStatus is the CAS transition: the WHERE clause carries
// the expected status, so a concurrent transition makes this affect zero
// rows, reported as repository.ErrConflict.
func (s *Store) UpdateReservationStatus(
	ctx context.Context,
	id uuid.UUID,
	next, expected domain.ReservationStatus,
) (*domain.Reservation, error) {
	const op = "postgres.Store.UpdateReservationStatus"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	r, err := scanReservation(s.pool.QueryRow(ctx,
		`UPDATE reservations
		    SET status = $2, updated_at = now()
		  WHERE id = $1 AND status = $3
		  RETURNING `+reservationColumns,
		id, next, expected,
	))
	if err != nil {
		err = translateDBErr(err)
		if errors.Is(err, repository.ErrNotFound) {
			// Distinguish a missing row from a lost CAS race.
			var exists bool
			if scanErr := s.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, id,
			).Scan(&exists); scanErr == nil && exists {
				err = repository.ErrConflict
			}
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return r, nil
}

// InCourtDateScope serializes concurrent reservation attempts for one
// court and date with a transaction-scoped advisory lock. The lock wait is
// bounded by lock_timeout; exceeding it surfaces repository.ErrTimeout.
func (s *Store) InCourtDateScope(
	ctx context.Context,
	courtID, date string,
	fn func(ctx context.Context, scope repository.ScopedStore) error,
) error {
	const op = "postgres.Store.InCourtDateScope"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	err := s.runTx(ctx, func(ctx context.Context, tx DB) error {
		if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '4s'`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			courtID+"|"+date,
		); err != nil {
			return err
		}
		return fn(ctx, &txScope{tx: tx})
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

type txScope struct {
	tx DB
}

func (t *txScope) ListByCourtAndDate(ctx context.Context, courtID, date string) ([]domain.Reservation, error) {
	return listByCourtAndDate(ctx, t.tx, courtID, date)
}

func (t *txScope) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	return scanCreatedReservation(ctx, t.tx, r)
}

func scanCreatedReservation(ctx context.Context, db DB, r *domain.Reservation) error {
	return db.QueryRow(ctx,
		`INSERT INTO reservations (
			id, client_id, court_id, date, slot_starts, slot_minutes,
			amount_cents, status, payment_intent, starts_at, ends_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		r.ID, r.ClientID, r.CourtID, r.Date, r.SlotStarts, r.SlotMinutes,
		r.AmountCents, r.Status, r.PaymentIntent, r.StartsAt, r.EndsAt,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
}
