package booking

import (
	"errors"
	"fmt"

	"github.com/yuriwinchest/arena-courts/internal/domain"
)

var (
	ErrEmptySelection      = errors.New("no slots selected")
	ErrCourtNotFound       = errors.New("court not found")
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrStatusConflict is the lost CAS race: the reservation changed
	// between read and update. Callers re-read and retry.
	ErrStatusConflict   = errors.New("reservation status changed")
	ErrCancelAfterStart = errors.New("confirmed reservation can only be cancelled before its start time")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

type InvalidTimeError struct {
	Value string
}

func (e InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid time input: %q", e.Value)
}

// InvalidSlotError names request slots that are not part of the calendar
// grid for the court and date.
type InvalidSlotError struct {
	Slots []string
}

func (e InvalidSlotError) Error() string {
	return fmt.Sprintf("slots not in calendar: %v", e.Slots)
}

// SlotUnavailableError names the conflicting slots so the caller can
// re-render availability.
type SlotUnavailableError struct {
	Slots []string
}

func (e SlotUnavailableError) Error() string {
	return fmt.Sprintf("slots unavailable: %v", e.Slots)
}

type InvalidTransitionError struct {
	From domain.ReservationStatus
	To   domain.ReservationStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
