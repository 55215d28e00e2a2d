// Package booking is the coordinator that commits reservation requests.
// The availability check and the create run inside the store's
// (court, date) scope, so no two overlapping requests can both succeed.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yuriwinchest/arena-courts/internal/calendar"
	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
	redisrepo "github.com/yuriwinchest/arena-courts/internal/repository/redis"
	redisx "github.com/yuriwinchest/arena-courts/internal/redis"
	"github.com/yuriwinchest/arena-courts/internal/service/availability"
)

// SlotRequest is one requested slot in HH:MM wall-clock form, as the
// presentation layer submits it.
type SlotRequest struct {
	Start string
	End   string
}

type Config struct {
	// PendingTTL is how long a pending reservation may wait for payment
	// before the sweep cancels it.
	PendingTTL time.Duration
}

type Service struct {
	store   repository.Store
	cal     *calendar.Calendar
	cache   *redisrepo.Cache                 // optional
	pubsub  *redisx.AvailabilityPubSub       // optional
	limiter *redisrepo.SlidingWindowLimiter  // optional
	clock   domain.Clock
	cfg     Config
}

func New(
	store repository.Store,
	cal *calendar.Calendar,
	cache *redisrepo.Cache,
	pubsub *redisx.AvailabilityPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	clock domain.Clock,
	cfg Config,
) *Service {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 15 * time.Minute
	}

	if clock == nil {
		clock = domain.SystemClock{}
	}

	return &Service{
		store:   store,
		cal:     cal,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		clock:   clock,
		cfg:     cfg,
	}
}

// Reserve validates and commits a reservation request, returning the
// created pending reservation. The amount is always computed here from
// the court's hourly rate; nothing client-supplied is trusted.
func (s *Service) Reserve(
	ctx context.Context,
	clientID, courtID, date string,
	slots []SlotRequest,
	paymentIntent string,
	rlKey string,
) (*domain.Reservation, error) {
	const op = "service.booking.Reserve"

	if len(slots) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrEmptySelection)
	}

	if clientID == "" {
		return nil, fmt.Errorf("%s: missing client id", op)
	}

	if _, err := domain.ParseDate(date, s.cal.Location()); err != nil {
		return nil, fmt.Errorf("%s:%w", op, InvalidTimeError{Value: date})
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: retry in %s: %w", op, retry, ErrRateLimited)
		}
	}

	starts, err := s.parseSlots(slots)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	court, err := s.store.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrCourtNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	res := s.buildReservation(clientID, court, date, starts, paymentIntent)

	err = s.store.InCourtDateScope(ctx, courtID, date, func(ctx context.Context, scope repository.ScopedStore) error {
		existing, err := scope.ListByCourtAndDate(ctx, courtID, date)
		if err != nil {
			return err
		}
		if conflicts := s.unavailable(starts, date, existing); len(conflicts) > 0 {
			return SlotUnavailableError{Slots: conflicts}
		}
		return scope.CreateReservation(ctx, res)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.afterWrite(ctx, courtID, date)

	return res, nil
}

// parseSlots validates the request against the calendar grid and returns
// deduplicated slot start minutes, sorted.
func (s *Service) parseSlots(slots []SlotRequest) ([]int, error) {
	seen := make(map[int]bool, len(slots))
	var starts []int
	var invalid []string

	for _, sl := range slots {
		startMin, err := domain.ParseClock(sl.Start)
		if err != nil {
			return nil, InvalidTimeError{Value: sl.Start}
		}
		endMin, err := domain.ParseClock(sl.End)
		if err != nil {
			return nil, InvalidTimeError{Value: sl.End}
		}
		if !s.cal.Contains(startMin, endMin) {
			invalid = append(invalid, sl.Start+"-"+sl.End)
			continue
		}
		if !seen[startMin] {
			seen[startMin] = true
			starts = append(starts, startMin)
		}
	}

	if len(invalid) > 0 {
		return nil, InvalidSlotError{Slots: invalid}
	}

	sort.Ints(starts)
	return starts, nil
}

// unavailable re-checks the requested slots against committed state. It
// runs inside the court/date scope, which is what makes the answer
// authoritative.
func (s *Service) unavailable(starts []int, date string, existing []domain.Reservation) []string {
	slotMin := s.cal.SlotMinutes()
	requested := make([]domain.Slot, 0, len(starts))
	for _, st := range starts {
		requested = append(requested, domain.Slot{Date: date, Start: st, End: st + slotMin})
	}

	var conflicts []string
	for _, sw := range availability.MapStates(requested, existing, s.clock.Now(), s.cal.Location()) {
		if sw.State != domain.SlotAvailable {
			conflicts = append(conflicts, domain.FormatClock(sw.Start)+"-"+domain.FormatClock(sw.End))
		}
	}
	return conflicts
}

func (s *Service) buildReservation(
	clientID string,
	court *domain.Court,
	date string,
	starts []int,
	paymentIntent string,
) *domain.Reservation {
	slotMin := s.cal.SlotMinutes()
	now := s.clock.Now()

	first := starts[0]
	last := starts[len(starts)-1] + slotMin
	startsAt, _ := domain.SlotEndTime(date, first, s.cal.Location())
	endsAt, _ := domain.SlotEndTime(date, last, s.cal.Location())

	return &domain.Reservation{
		ID:            uuid.New(),
		ClientID:      clientID,
		CourtID:       court.ID,
		Date:          date,
		SlotStarts:    starts,
		SlotMinutes:   slotMin,
		AmountCents:   int64(len(starts)) * court.HourlyRateCents * int64(slotMin) / 60,
		Status:        domain.StatusPending,
		PaymentIntent: paymentIntent,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Confirm moves a reservation from pending to confirmed after the payment
// collaborator signals success.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "service.booking.Confirm"

	r, err := s.transition(ctx, id, domain.StatusConfirmed, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return r, nil
}

// Cancel cancels a pending or confirmed reservation. A confirmed
// reservation can only be cancelled before its start time; the refund
// flow is an external concern signaled by this transition.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "service.booking.Cancel"

	cur, err := s.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	switch cur.Status {
	case domain.StatusPending:
	case domain.StatusConfirmed:
		if !s.clock.Now().Before(cur.StartsAt) {
			return nil, fmt.Errorf("%s:%w", op, ErrCancelAfterStart)
		}
	default:
		return nil, fmt.Errorf("%s:%w", op, InvalidTransitionError{From: cur.Status, To: domain.StatusCancelled})
	}

	r, err := s.transition(ctx, id, domain.StatusCancelled, cur.Status)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// Cancelling frees occupancy; readers should see it promptly.
	s.afterWrite(ctx, r.CourtID, r.Date)

	return r, nil
}

// CheckIn completes a confirmed reservation explicitly, without waiting
// for the sweep.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	const op = "service.booking.CheckIn"

	r, err := s.transition(ctx, id, domain.StatusCompleted, domain.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return r, nil
}

// Sweep completes elapsed confirmed reservations and cancels pending ones
// older than the payment timeout. Run periodically by the app.
func (s *Service) Sweep(ctx context.Context) (completed, cancelled int64, err error) {
	const op = "service.booking.Sweep"

	now := s.clock.Now()

	completed, err = s.store.CompleteElapsed(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("%s:%w", op, err)
	}

	cancelled, err = s.store.CancelStalePending(ctx, now.Add(-s.cfg.PendingTTL))
	if err != nil {
		return completed, 0, fmt.Errorf("%s:%w", op, err)
	}

	return completed, cancelled, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return r, nil
}

// transition is the CAS update. The state machine is validated on the
// (expected, next) pair; a mismatch of the stored status against expected
// is a concurrency race, surfaced as ErrStatusConflict for the caller to
// re-read and retry.
func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	next, expected domain.ReservationStatus,
) (*domain.Reservation, error) {
	if !expected.CanTransition(next) {
		return nil, InvalidTransitionError{From: expected, To: next}
	}

	r, err := s.store.UpdateReservationStatus(ctx, id, next, expected)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrStatusConflict
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	return r, nil
}

func (s *Service) afterWrite(ctx context.Context, courtID, date string) {
	if s.cache != nil {
		_ = s.cache.InvalidateAvailability(ctx, courtID, date)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishChanged(ctx, courtID, date)
	}
}
