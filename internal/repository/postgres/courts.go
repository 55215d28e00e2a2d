package postgres

import (
	"context"
	"fmt"

	"github.com/yuriwinchest/arena-courts/internal/domain"
)

func (s *Store) CreateCourt(ctx context.Context, c *domain.Court) error {
	const op = "postgres.Store.CreateCourt"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO courts (id, name, category, hourly_rate_cents)
		 VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Category, c.HourlyRateCents,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (s *Store) GetCourt(ctx context.Context, id string) (*domain.Court, error) {
	const op = "postgres.Store.GetCourt"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var c domain.Court
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, category, hourly_rate_cents FROM courts WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Category, &c.HourlyRateCents)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &c, nil
}

func (s *Store) ListCourts(ctx context.Context) ([]domain.Court, error) {
	const op = "postgres.Store.ListCourts"

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, hourly_rate_cents FROM courts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}
	defer rows.Close()

	var out []domain.Court
	for rows.Next() {
		var c domain.Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.HourlyRateCents); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}
