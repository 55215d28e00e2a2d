// Package query is the read-only facade over the reservation store:
// dashboard aggregates plus the portal reads. It never mutates anything,
// and empty ranges come back as zeros, not errors.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
	redisrepo "github.com/yuriwinchest/arena-courts/internal/repository/redis"
	redisx "github.com/yuriwinchest/arena-courts/internal/redis"
)

type Config struct {
	RevenueTTL   time.Duration
	DefaultLimit int
	MaxLimit     int
}

type Service struct {
	store repository.Store
	cache *redisrepo.Cache // optional
	clock domain.Clock
	cfg   Config
}

func New(store repository.Store, cache *redisrepo.Cache, clock domain.Clock, cfg Config) *Service {
	if cfg.RevenueTTL <= 0 {
		cfg.RevenueTTL = 60 * time.Second
	}

	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}

	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}

	if clock == nil {
		clock = domain.SystemClock{}
	}

	return &Service{
		store: store,
		cache: cache,
		clock: clock,
		cfg:   cfg,
	}
}

func (s *Service) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "service.query.GetReservation"

	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return r, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID string) ([]domain.Reservation, error) {
	const op = "service.query.ListByClient"

	out, err := s.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) ListCourts(ctx context.Context) ([]domain.Court, error) {
	const op = "service.query.ListCourts"

	load := func(ctx context.Context) ([]domain.Court, error) {
		return s.store.ListCourts(ctx)
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return out, nil
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyCourts(), s.cfg.RevenueTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// TotalRevenue sums confirmed and completed reservation amounts over the
// inclusive date range.
func (s *Service) TotalRevenue(ctx context.Context, from, to string) (*domain.RevenueSummary, error) {
	const op = "service.query.TotalRevenue"

	if err := validateRange(from, to); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	load := func(ctx context.Context) (domain.RevenueSummary, error) {
		sum, err := s.store.TotalRevenue(ctx, from, to)
		if err != nil {
			return domain.RevenueSummary{}, err
		}
		return *sum, nil
	}

	if s.cache == nil {
		sum, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return &sum, nil
	}

	sum, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyRevenue(from, to), s.cfg.RevenueTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &sum, nil
}

func (s *Service) CountByStatus(ctx context.Context, from, to string) (*domain.StatusCounts, error) {
	const op = "service.query.CountByStatus"

	if err := validateRange(from, to); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	counts, err := s.store.CountByStatus(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return counts, nil
}

func (s *Service) Upcoming(ctx context.Context, limit int) ([]domain.Reservation, error) {
	const op = "service.query.Upcoming"

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	out, err := s.store.Upcoming(ctx, s.clock.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func validateRange(from, to string) error {
	f, err := time.Parse(domain.DateLayout, from)
	if err != nil {
		return ErrInvalidRange
	}
	t, err := time.Parse(domain.DateLayout, to)
	if err != nil {
		return ErrInvalidRange
	}
	if t.Before(f) {
		return ErrInvalidRange
	}
	return nil
}
