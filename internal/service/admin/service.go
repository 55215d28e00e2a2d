// Package admin handles venue configuration: the court inventory. Courts
// are created here and never mutated by bookings.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
	redisrepo "github.com/yuriwinchest/arena-courts/internal/repository/redis"
)

type Service struct {
	store repository.Store
	cache *redisrepo.Cache // optional
}

func New(store repository.Store, cache *redisrepo.Cache) *Service {
	return &Service{
		store: store,
		cache: cache,
	}
}

// CreateCourt adds a court to the inventory. The id is derived from the
// name when not supplied.
func (s *Service) CreateCourt(
	ctx context.Context,
	id, name string,
	category domain.CourtCategory,
	hourlyRateCents int64,
) (*domain.Court, error) {
	const op = "service.admin.CreateCourt"

	if name == "" {
		return nil, fmt.Errorf("%s: missing court name", op)
	}

	if !category.Valid() {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidCategory)
	}

	if hourlyRateCents <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidRate)
	}

	if id == "" {
		id = slugify(name)
	}

	court := &domain.Court{
		ID:              id,
		Name:            name,
		Category:        category,
		HourlyRateCents: hourlyRateCents,
	}

	if err := s.store.CreateCourt(ctx, court); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrCourtConflict)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateCourts(ctx)
	}

	return court, nil
}

func (s *Service) ListCourts(ctx context.Context) ([]domain.Court, error) {
	const op = "service.admin.ListCourts"

	out, err := s.store.ListCourts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
