package httpgin

import (
	"time"

	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/service/availability"
)

type SlotInput struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// ReserveRequest carries no amount on purpose: the engine computes it and
// echoes it back, never accepting a client-supplied price.
type ReserveRequest struct {
	ClientID      string      `json:"client_id" binding:"required"`
	CourtID       string      `json:"court_id" binding:"required"`
	Date          string      `json:"date" binding:"required"`
	Slots         []SlotInput `json:"slots" binding:"required,min=1,dive"`
	PaymentIntent string      `json:"payment_intent"`
}

type CreateCourtRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name" binding:"required"`
	Category        string `json:"category" binding:"required"`
	HourlyRateCents int64  `json:"hourly_rate_cents" binding:"required,gt=0"`
}

type CourtResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
}

type SlotTimes struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ReservationResponse struct {
	ID            string      `json:"id"`
	ClientID      string      `json:"client_id"`
	CourtID       string      `json:"court_id"`
	Date          string      `json:"date"`
	Slots         []SlotTimes `json:"slots"`
	AmountCents   int64       `json:"amount_cents"`
	Status        string      `json:"status"`
	PaymentIntent string      `json:"payment_intent,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type SlotStateResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	State string `json:"state"`
}

type CourtAvailabilityResponse struct {
	Court CourtResponse       `json:"court"`
	Date  string              `json:"date"`
	Slots []SlotStateResponse `json:"slots"`
}

type RevenueResponse struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Reservations int64  `json:"reservations"`
	TotalCents   int64  `json:"total_cents"`
}

type StatusCountsResponse struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Cancelled int64 `json:"cancelled"`
	Completed int64 `json:"completed"`
	Total     int64 `json:"total"`
}

// ErrorResponse carries enough structure (offending slots, current vs
// expected status) for the UI to render a precise message.
type ErrorResponse struct {
	Error string   `json:"error"`
	Slots []string `json:"slots,omitempty"`
}

func toCourtResponse(c domain.Court) CourtResponse {
	return CourtResponse{
		ID:              c.ID,
		Name:            c.Name,
		Category:        string(c.Category),
		HourlyRateCents: c.HourlyRateCents,
	}
}

func toReservationResponse(r *domain.Reservation) ReservationResponse {
	slots := make([]SlotTimes, 0, len(r.SlotStarts))
	for _, s := range r.SlotStarts {
		slots = append(slots, SlotTimes{
			Start: domain.FormatClock(s),
			End:   domain.FormatClock(s + r.SlotMinutes),
		})
	}

	return ReservationResponse{
		ID:            r.ID.String(),
		ClientID:      r.ClientID,
		CourtID:       r.CourtID,
		Date:          r.Date,
		Slots:         slots,
		AmountCents:   r.AmountCents,
		Status:        string(r.Status),
		PaymentIntent: r.PaymentIntent,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toReservationResponses(rs []domain.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(rs))
	for i := range rs {
		out = append(out, toReservationResponse(&rs[i]))
	}
	return out
}

func toAvailabilityResponse(date string, in []availability.CourtAvailability) []CourtAvailabilityResponse {
	out := make([]CourtAvailabilityResponse, 0, len(in))
	for _, ca := range in {
		slots := make([]SlotStateResponse, 0, len(ca.Slots))
		for _, sw := range ca.Slots {
			slots = append(slots, SlotStateResponse{
				Start: domain.FormatClock(sw.Start),
				End:   domain.FormatClock(sw.End),
				State: string(sw.State),
			})
		}
		out = append(out, CourtAvailabilityResponse{
			Court: toCourtResponse(ca.Court),
			Date:  date,
			Slots: slots,
		})
	}
	return out
}
