package mq

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuriwinchest/arena-courts/internal/calendar"
	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository/memory"
	"github.com/yuriwinchest/arena-courts/internal/service/booking"
)

func newBookingService(t *testing.T) (*booking.Service, *domain.Reservation) {
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
		ID: "quadra-1", Name: "Quadra 1", Category: domain.CategoryBeachTennis, HourlyRateCents: 9000,
	}))

	svc := booking.New(store, cal, nil, nil, nil, nil, booking.Config{})

	tomorrow := time.Now().Add(24 * time.Hour).UTC().Format(domain.DateLayout)
	r, err := svc.Reserve(context.Background(), "ana", "quadra-1", tomorrow,
		[]booking.SlotRequest{{Start: "18:00", End: "19:00"}}, "pi_123", "")
	require.NoError(t, err)

	return svc, r
}

func eventBody(t *testing.T, event, reservationID string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"event":   event,
		"version": 1,
		"data": map[string]any{
			"payment_id":     "pay_1",
			"reservation_id": reservationID,
			"amount_cents":   9000,
		},
	})
	require.NoError(t, err)
	return b
}

func newTestConsumer(svc *booking.Service) *PaymentConsumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPaymentConsumer(svc, nil, logger)
}

func TestPaymentSucceededConfirms(t *testing.T) {
	svc, r := newBookingService(t)
	pc := newTestConsumer(svc)

	var acked, requeued bool
	pc.handle(context.Background(), KeyPaymentSucceeded, eventBody(t, "payment", r.ID.String()),
		func() { acked = true }, func() { requeued = true })

	assert.True(t, acked)
	assert.False(t, requeued)

	// confirming again must lose the CAS, proving the first confirm landed
	_, err := svc.Confirm(context.Background(), r.ID)
	assert.ErrorIs(t, err, booking.ErrStatusConflict)
}

func TestPaymentFailedCancels(t *testing.T) {
	svc, r := newBookingService(t)
	pc := newTestConsumer(svc)

	var acked bool
	pc.handle(context.Background(), KeyPaymentFailed, eventBody(t, "payment", r.ID.String()),
		func() { acked = true }, func() {})

	assert.True(t, acked)

	_, err := svc.Confirm(context.Background(), r.ID)
	assert.ErrorIs(t, err, booking.ErrStatusConflict)
}

func TestDuplicateDeliveryIsAcked(t *testing.T) {
	svc, r := newBookingService(t)
	pc := newTestConsumer(svc)

	pc.handle(context.Background(), KeyPaymentSucceeded, eventBody(t, "payment", r.ID.String()),
		func() {}, func() {})

	var acked, requeued bool
	pc.handle(context.Background(), KeyPaymentSucceeded, eventBody(t, "payment", r.ID.String()),
		func() { acked = true }, func() { requeued = true })

	assert.True(t, acked, "redelivery of a decided outcome is dropped")
	assert.False(t, requeued)
}

func TestUnknownKeyAndBadPayloadAreAcked(t *testing.T) {
	svc, _ := newBookingService(t)
	pc := newTestConsumer(svc)

	var acked bool
	pc.handle(context.Background(), "payment.refunded", []byte("{}"),
		func() { acked = true }, func() {})
	assert.True(t, acked)

	acked = false
	pc.handle(context.Background(), KeyPaymentSucceeded, []byte("not json"),
		func() { acked = true }, func() {})
	assert.True(t, acked)

	acked = false
	pc.handle(context.Background(), KeyPaymentSucceeded, eventBody(t, "payment", "not-a-uuid"),
		func() { acked = true }, func() {})
	assert.True(t, acked)
}

func TestUnknownReservationIsAcked(t *testing.T) {
	svc, _ := newBookingService(t)
	pc := newTestConsumer(svc)

	var acked, requeued bool
	pc.handle(context.Background(), KeyPaymentSucceeded,
		eventBody(t, "payment", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		func() { acked = true }, func() { requeued = true })

	assert.True(t, acked)
	assert.False(t, requeued)
}
