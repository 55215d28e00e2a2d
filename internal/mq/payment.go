package mq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yuriwinchest/arena-courts/internal/service/booking"
)

const (
	KeyPaymentSucceeded = "payment.succeeded"
	KeyPaymentFailed    = "payment.failed"
)

// PaymentEvent is the wire shape published by the payment collaborator.
type PaymentEvent struct {
	Event   string `json:"event"`
	Version int    `json:"version"`
	Data    struct {
		PaymentID     string `json:"payment_id"`
		ReservationID string `json:"reservation_id"`
		AmountCents   int64  `json:"amount_cents"`
	} `json:"data"`
}

// PaymentConsumer drives pending -> confirmed on payment.succeeded and
// pending -> cancelled on payment.failed.
type PaymentConsumer struct {
	svc    *booking.Service
	cons   *Consumer
	logger *slog.Logger
}

func NewPaymentConsumer(svc *booking.Service, cons *Consumer, logger *slog.Logger) *PaymentConsumer {
	return &PaymentConsumer{svc: svc, cons: cons, logger: logger}
}

// Run blocks consuming deliveries until ctx is cancelled. A lost CAS race
// (the reservation already transitioned) acks the message: the outcome is
// already decided and redelivery cannot change it.
func (pc *PaymentConsumer) Run(ctx context.Context) error {
	msgs, err := pc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			pc.handle(ctx, d.RoutingKey, d.Body, func() { _ = d.Ack(false) }, func() { _ = d.Nack(false, true) })
		}
	}
}

func (pc *PaymentConsumer) handle(ctx context.Context, key string, body []byte, ack, requeue func()) {
	if key != KeyPaymentSucceeded && key != KeyPaymentFailed {
		ack()
		return
	}

	var evt PaymentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		pc.logger.Error("payment event unmarshal failed", "error", err)
		ack()
		return
	}

	id, err := uuid.Parse(evt.Data.ReservationID)
	if err != nil {
		pc.logger.Error("payment event with bad reservation id", "reservation_id", evt.Data.ReservationID)
		ack()
		return
	}

	switch key {
	case KeyPaymentSucceeded:
		_, err = pc.svc.Confirm(ctx, id)
	case KeyPaymentFailed:
		_, err = pc.svc.Cancel(ctx, id)
	}

	if err != nil {
		var transition booking.InvalidTransitionError
		if errors.Is(err, booking.ErrStatusConflict) ||
			errors.Is(err, booking.ErrReservationNotFound) ||
			errors.As(err, &transition) {
			pc.logger.Warn("payment event ignored", "key", key, "reservation_id", id, "error", err)
			ack()
			return
		}
		pc.logger.Error("payment event failed, requeueing", "key", key, "reservation_id", id, "error", err)
		requeue()
		return
	}

	ack()
}
