package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/yuriwinchest/arena-courts/internal/domain"
)

// Revenue counts confirmed and completed reservations; pending money is
// not booked yet and cancelled money is never booked.
func (s *Store) TotalRevenue(ctx context.Context, from, to string) (*domain.RevenueSummary, error) {
	const op = "postgres.Store.TotalRevenue"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	sum := &domain.RevenueSummary{From: from, To: to}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0)
		   FROM reservations
		  WHERE date BETWEEN $1 AND $2
		    AND status IN ('confirmed', 'completed')`,
		from, to,
	).Scan(&sum.Reservations, &sum.TotalCents)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return sum, nil
}

func (s *Store) CountByStatus(ctx context.Context, from, to string) (*domain.StatusCounts, error) {
	const op = "postgres.Store.CountByStatus"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	counts := &domain.StatusCounts{}
	err := s.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*)
		   FROM reservations
		  WHERE date BETWEEN $1 AND $2`,
		from, to,
	).Scan(&counts.Pending, &counts.Confirmed, &counts.Cancelled, &counts.Completed, &counts.Total)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return counts, nil
}

func (s *Store) Upcoming(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	const op = "postgres.Store.Upcoming"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+reservationColumns+`
		   FROM reservations
		  WHERE status IN ('pending', 'confirmed') AND starts_at > $1
		  ORDER BY starts_at
		  LIMIT $2`,
		now, limit,
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

func (s *Store) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	const op = "postgres.Store.CompleteElapsed"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE reservations
		    SET status = 'completed', updated_at = now()
		  WHERE status = 'confirmed' AND ends_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

func (s *Store) CancelStalePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	const op = "postgres.Store.CancelStalePending"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE reservations
		    SET status = 'cancelled', updated_at = now()
		  WHERE status = 'pending' AND created_at < $1`,
		createdBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}
