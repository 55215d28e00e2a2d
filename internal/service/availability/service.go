// Package availability is the single point that computes slot occupancy.
// Presentation reads it; the booking coordinator reuses MapStates inside
// its transaction scope for the authoritative re-check.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuriwinchest/arena-courts/internal/calendar"
	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
	redisrepo "github.com/yuriwinchest/arena-courts/internal/repository/redis"
	redisx "github.com/yuriwinchest/arena-courts/internal/redis"
)

// AllCourts selects every court in Resolve.
const AllCourts = "all"

var ErrCourtNotFound = errors.New("court not found")

type InvalidTimeError struct {
	Value string
}

func (e InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid time input: %q", e.Value)
}

type CourtAvailability struct {
	Court domain.Court
	Slots []domain.SlotWithState
}

type Config struct {
	CacheTTL time.Duration
}

type Service struct {
	store repository.Store
	cal   *calendar.Calendar
	cache *redisrepo.Cache // optional
	clock domain.Clock
	cfg   Config
}

func New(
	store repository.Store,
	cal *calendar.Calendar,
	cache *redisrepo.Cache,
	clock domain.Clock,
	cfg Config,
) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Second
	}

	if clock == nil {
		clock = domain.SystemClock{}
	}

	return &Service{
		store: store,
		cal:   cal,
		cache: cache,
		clock: clock,
		cfg:   cfg,
	}
}

// Resolve maps every calendar slot of the date to available, occupied or
// past. courtID may be a single court or AllCourts. The selected overlay
// is the caller's concern and is never produced here.
func (s *Service) Resolve(ctx context.Context, courtID, date string) ([]CourtAvailability, error) {
	const op = "service.availability.Resolve"

	if _, err := domain.ParseDate(date, s.cal.Location()); err != nil {
		return nil, fmt.Errorf("%s:%w", op, InvalidTimeError{Value: date})
	}

	var courts []domain.Court
	if courtID == AllCourts {
		list, err := s.store.ListCourts(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		courts = list
	} else {
		c, err := s.store.GetCourt(ctx, courtID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, ErrCourtNotFound)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		courts = []domain.Court{*c}
	}

	out := make([]CourtAvailability, 0, len(courts))
	for _, court := range courts {
		slots, err := s.resolveCourt(ctx, court.ID, date)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		out = append(out, CourtAvailability{Court: court, Slots: slots})
	}

	return out, nil
}

func (s *Service) resolveCourt(ctx context.Context, courtID, date string) ([]domain.SlotWithState, error) {
	if s.cache == nil {
		return s.loadCourt(ctx, courtID, date)
	}

	return redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyAvailability(courtID, date),
		s.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.SlotWithState, error) {
			return s.loadCourt(ctx, courtID, date)
		},
	)
}

func (s *Service) loadCourt(ctx context.Context, courtID, date string) ([]domain.SlotWithState, error) {
	slots, err := s.cal.SlotsFor(courtID, date)
	if err != nil {
		return nil, err
	}

	reservations, err := s.store.ListByCourtAndDate(ctx, courtID, date)
	if err != nil {
		return nil, err
	}

	return MapStates(slots, reservations, s.clock.Now(), s.cal.Location()), nil
}

// MapStates marks each slot occupied when an active reservation holds it,
// past when its end precedes now, available otherwise. Pure; also run by
// the booking coordinator inside the court/date scope.
func MapStates(
	slots []domain.Slot,
	reservations []domain.Reservation,
	now time.Time,
	loc *time.Location,
) []domain.SlotWithState {
	out := make([]domain.SlotWithState, 0, len(slots))
	for _, slot := range slots {
		state := domain.SlotAvailable

		end, err := domain.SlotEndTime(slot.Date, slot.End, loc)
		if err == nil && !end.After(now) {
			state = domain.SlotPast
		}

		if state == domain.SlotAvailable && anyOverlap(reservations, slot.Start, slot.End) {
			state = domain.SlotOccupied
		}

		out = append(out, domain.SlotWithState{Slot: slot, State: state})
	}
	return out
}

// anyOverlap checks interval overlap rather than exact slot identity, so
// reservations created under an older slot-duration configuration still
// block the grid correctly.
func anyOverlap(reservations []domain.Reservation, startMin, endMin int) bool {
	for i := range reservations {
		r := &reservations[i]
		if !r.Status.Active() {
			continue
		}
		for _, s := range r.SlotStarts {
			if s < endMin && s+r.SlotMinutes > startMin {
				return true
			}
		}
	}
	return false
}
