// Package memory holds an in-memory Store implementation. It backs the
// service tests and small single-node deployments; semantics mirror the
// Postgres store, including the per-(court, date) serialization scope and
// bounded lock waits.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
)

const lockWait = 5 * time.Second

type Store struct {
	mu           sync.RWMutex
	courts       map[string]domain.Court
	reservations map[uuid.UUID]*domain.Reservation

	scopeMu sync.Mutex
	scopes  map[string]chan struct{} // (courtID|date) -> held token
}

func New() *Store {
	return &Store{
		courts:       make(map[string]domain.Court),
		reservations: make(map[uuid.UUID]*domain.Reservation),
		scopes:       make(map[string]chan struct{}),
	}
}

func (s *Store) CreateCourt(ctx context.Context, c *domain.Court) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courts[c.ID]; ok {
		return repository.ErrConflict
	}
	s.courts[c.ID] = *c
	return nil
}

func (s *Store) GetCourt(ctx context.Context, id string) (*domain.Court, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListCourts(ctx context.Context) ([]domain.Court, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Court, 0, len(s.courts))
	for _, c := range s.courts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListByCourtAndDate(ctx context.Context, courtID, date string) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByCourtAndDateLocked(courtID, date), nil
}

func (s *Store) listByCourtAndDateLocked(courtID, date string) []domain.Reservation {
	var out []domain.Reservation
	for _, r := range s.reservations {
		if r.CourtID == courtID && r.Date == date {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (s *Store) ListByClient(ctx context.Context, clientID string) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Reservation
	for _, r := range s.reservations {
		if r.ClientID == clientID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}

func (s *Store) UpdateReservationStatus(ctx context.Context, id uuid.UUID, next, expected domain.ReservationStatus) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != expected {
		return nil, repository.ErrConflict
	}
	r.Status = next
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

// InCourtDateScope acquires the per-key token with a bounded wait, then
// runs fn against a scope whose writes are staged and applied only when fn
// succeeds.
func (s *Store) InCourtDateScope(ctx context.Context, courtID, date string, fn func(ctx context.Context, scope repository.ScopedStore) error) error {
	key := courtID + "|" + date

	s.scopeMu.Lock()
	ch, ok := s.scopes[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.scopes[key] = ch
	}
	s.scopeMu.Unlock()

	timer := time.NewTimer(lockWait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-timer.C:
		return repository.ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-ch }()

	scope := &txScope{store: s, courtID: courtID, date: date}
	if err := fn(ctx, scope); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range scope.staged {
		r := scope.staged[i]
		s.reservations[r.ID] = &r
	}
	s.mu.Unlock()
	return nil
}

type txScope struct {
	store   *Store
	courtID string
	date    string
	staged  []domain.Reservation
}

func (t *txScope) ListByCourtAndDate(ctx context.Context, courtID, date string) ([]domain.Reservation, error) {
	t.store.mu.RLock()
	out := t.store.listByCourtAndDateLocked(courtID, date)
	t.store.mu.RUnlock()
	out = append(out, t.staged...)
	return out, nil
}

func (t *txScope) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	if r.CourtID != t.courtID || r.Date != t.date {
		return repository.ErrConflict
	}
	t.staged = append(t.staged, *r)
	return nil
}

func (s *Store) TotalRevenue(ctx context.Context, from, to string) (*domain.RevenueSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &domain.RevenueSummary{From: from, To: to}
	for _, r := range s.reservations {
		if r.Date < from || r.Date > to {
			continue
		}
		if r.Status != domain.StatusConfirmed && r.Status != domain.StatusCompleted {
			continue
		}
		sum.Reservations++
		sum.TotalCents += r.AmountCents
	}
	return sum, nil
}

func (s *Store) CountByStatus(ctx context.Context, from, to string) (*domain.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := &domain.StatusCounts{}
	for _, r := range s.reservations {
		if r.Date < from || r.Date > to {
			continue
		}
		switch r.Status {
		case domain.StatusPending:
			counts.Pending++
		case domain.StatusConfirmed:
			counts.Confirmed++
		case domain.StatusCancelled:
			counts.Cancelled++
		case domain.StatusCompleted:
			counts.Completed++
		}
		counts.Total++
	}
	return counts, nil
}

func (s *Store) Upcoming(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Reservation
	for _, r := range s.reservations {
		if r.Status.Active() && r.StartsAt.After(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.reservations {
		if r.Status == domain.StatusConfirmed && !r.EndsAt.After(now) {
			r.Status = domain.StatusCompleted
			r.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (s *Store) CancelStalePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.reservations {
		if r.Status == domain.StatusPending && r.CreatedAt.Before(createdBefore) {
			r.Status = domain.StatusCancelled
			r.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}
