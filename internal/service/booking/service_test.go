package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuriwinchest/arena-courts/internal/calendar"
	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newFixture(t *testing.T) (*Service, *memory.Store, *fakeClock) {
	t.Helper()

	cal, err := calendar.New(calendar.Config{
		OpenMinute:  8 * 60,
		CloseMinute: 22 * 60,
		SlotMinutes: 60,
		Location:    time.UTC,
	})
	require.NoError(t, err)

	store := memory.New()
	require.NoError(t, store.CreateCourt(context.Background(), &domain.Court{
		ID:              "quadra-1",
		Name:            "Quadra 1",
		Category:        domain.CategoryBeachTennis,
		HourlyRateCents: 9000,
	}))

	clock := &fakeClock{now: time.Date(2024, 10, 25, 9, 0, 0, 0, time.UTC)}
	svc := New(store, cal, nil, nil, nil, clock, Config{PendingTTL: 15 * time.Minute})

	return svc, store, clock
}

func TestReserveCreatesPendingWithComputedAmount(t *testing.T) {
	svc, _, _ := newFixture(t)

	r, err := svc.Reserve(context.Background(), "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, r.Status)
	assert.Equal(t, []int{1080}, r.SlotStarts)
	assert.EqualValues(t, 9000, r.AmountCents)
	assert.Equal(t, "ana", r.ClientID)
	assert.Equal(t, time.Date(2024, 10, 25, 18, 0, 0, 0, time.UTC), r.StartsAt)
	assert.Equal(t, time.Date(2024, 10, 25, 19, 0, 0, 0, time.UTC), r.EndsAt)
}

func TestReserveMultipleSlotsSumsAmount(t *testing.T) {
	svc, _, _ := newFixture(t)

	r, err := svc.Reserve(context.Background(), "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{
			{Start: "19:00", End: "20:00"},
			{Start: "18:00", End: "19:00"},
			{Start: "18:00", End: "19:00"}, // duplicate, collapsed
		}, "", "")
	require.NoError(t, err)

	assert.Equal(t, []int{1080, 1140}, r.SlotStarts, "sorted and deduplicated")
	assert.EqualValues(t, 18000, r.AmountCents)
}

func TestReserveInputValidation(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25", nil, "", "")
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = svc.Reserve(ctx, "ana", "quadra-1", "not-a-date",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	var badTime InvalidTimeError
	assert.ErrorAs(t, err, &badTime)

	_, err = svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "07:00", End: "08:00"}}, "", "")
	var badSlot InvalidSlotError
	require.ErrorAs(t, err, &badSlot)
	assert.Equal(t, []string{"07:00-08:00"}, badSlot.Slots)

	_, err = svc.Reserve(ctx, "ana", "nope", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	assert.ErrorIs(t, err, ErrCourtNotFound)
}

func TestReserveRejectsPastSlots(t *testing.T) {
	svc, _, clock := newFixture(t)
	clock.Set(time.Date(2024, 10, 25, 19, 30, 0, 0, time.UTC))

	_, err := svc.Reserve(context.Background(), "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")

	var unavailable SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"18:00-19:00"}, unavailable.Slots)
}

func TestReserveRejectsOccupiedSlots(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "bruno", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")

	var unavailable SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"18:00-19:00"}, unavailable.Slots)
}

func TestReserveSameSlotOtherCourtSucceeds(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCourt(ctx, &domain.Court{
		ID: "quadra-2", Name: "Quadra 2", Category: domain.CategoryVolleyball, HourlyRateCents: 8000,
	}))

	_, err := svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	require.NoError(t, err)

	r, err := svc.Reserve(ctx, "bruno", "quadra-2", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 8000, r.AmountCents)
}

func TestReserveConcurrentDuplicatesOneWinner(t *testing.T) {
	svc, _, _ := newFixture(t)

	const racers = 8
	var wg sync.WaitGroup
	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), "ana", "quadra-1", "2024-10-25",
				[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		var unavailable SlotUnavailableError
		assert.ErrorAs(t, err, &unavailable)
	}

	assert.Equal(t, 1, wins, "exactly one request may hold the slot")
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	r, err := svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "pi_123", "")
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)

	// the payment signal may be delivered twice; the second one loses the CAS
	_, err = svc.Confirm(ctx, r.ID)
	assert.ErrorIs(t, err, ErrStatusConflict)

	done, err := svc.CheckIn(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)

	_, err = svc.Cancel(ctx, r.ID)
	var badTransition InvalidTransitionError
	assert.ErrorAs(t, err, &badTransition)
}

func TestCancelPending(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	r, err := svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// the slot is free again
	_, err = svc.Reserve(ctx, "bruno", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	require.NoError(t, err)
}

func TestCancelConfirmedOnlyBeforeStart(t *testing.T) {
	svc, _, clock := newFixture(t)
	ctx := context.Background()

	r, err := svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "18:00", End: "19:00"}}, "", "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, r.ID)
	require.NoError(t, err)

	clock.Set(time.Date(2024, 10, 25, 18, 0, 0, 0, time.UTC))
	_, err = svc.Cancel(ctx, r.ID)
	assert.ErrorIs(t, err, ErrCancelAfterStart)

	clock.Set(time.Date(2024, 10, 25, 17, 59, 0, 0, time.UTC))
	cancelled, err := svc.Cancel(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
}

func TestTransitionUnknownReservation(t *testing.T) {
	svc, _, _ := newFixture(t)

	_, err := svc.Confirm(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestSweep(t *testing.T) {
	svc, _, clock := newFixture(t)
	ctx := context.Background()

	elapsed, err := svc.Reserve(ctx, "ana", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "10:00", End: "11:00"}}, "", "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, elapsed.ID)
	require.NoError(t, err)

	stale, err := svc.Reserve(ctx, "bruno", "quadra-1", "2024-10-25",
		[]SlotRequest{{Start: "20:00", End: "21:00"}}, "", "")
	require.NoError(t, err)

	clock.Set(time.Date(2024, 10, 25, 11, 30, 0, 0, time.UTC))

	completed, cancelled, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, completed)
	assert.EqualValues(t, 1, cancelled)

	got, err := svc.get(ctx, elapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	got, err = svc.get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}
