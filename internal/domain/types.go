package domain

import (
	"time"

	"github.com/google/uuid"
)

type CourtCategory string

const (
	CategoryBeachTennis CourtCategory = "beach_tennis"
	CategoryVolleyball  CourtCategory = "volleyball"
	CategoryFootvolley  CourtCategory = "footvolley"
)

func (c CourtCategory) Valid() bool {
	switch c {
	case CategoryBeachTennis, CategoryVolleyball, CategoryFootvolley:
		return true
	}
	return false
}

// Court is an immutable inventory entry. Courts are created by admin
// configuration, never by bookings.
type Court struct {
	ID              string
	Name            string
	Category        CourtCategory
	HourlyRateCents int64
}

type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotOccupied  SlotState = "occupied"
	SlotPast      SlotState = "past"
)

// Slot is a computed coordinate, not a stored entity. Start and End are
// minutes from midnight in the venue time zone.
type Slot struct {
	CourtID string
	Date    string // YYYY-MM-DD
	Start   int
	End     int
}

type SlotWithState struct {
	Slot
	State SlotState
}

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// CanTransition reports whether the lifecycle state machine permits
// moving from the receiver to the given status. Pending is initial;
// cancelled and completed are terminal.
func (s ReservationStatus) CanTransition(to ReservationStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted
	}
	return false
}

func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Reservation is the persisted entity and the single source of truth for
// occupancy. SlotStarts holds the start minute of every held slot; the
// slots need not be contiguous. AmountCents is always server-computed.
type Reservation struct {
	ID            uuid.UUID
	ClientID      string
	CourtID       string
	Date          string // YYYY-MM-DD
	SlotStarts    []int
	SlotMinutes   int
	AmountCents   int64
	Status        ReservationStatus
	PaymentIntent string
	StartsAt      time.Time // instant of the earliest held slot
	EndsAt        time.Time // instant of the latest held slot's end
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Holds reports whether the reservation holds the slot starting at the
// given minute.
func (r *Reservation) Holds(startMin int) bool {
	for _, s := range r.SlotStarts {
		if s == startMin {
			return true
		}
	}
	return false
}

// EndMinute returns the end of the latest held slot.
func (r *Reservation) EndMinute() int {
	end := 0
	for _, s := range r.SlotStarts {
		if s+r.SlotMinutes > end {
			end = s + r.SlotMinutes
		}
	}
	return end
}

type StatusCounts struct {
	Pending   int64
	Confirmed int64
	Cancelled int64
	Completed int64
	Total     int64
}

type RevenueSummary struct {
	From         string
	To           string
	Reservations int64
	TotalCents   int64
}
