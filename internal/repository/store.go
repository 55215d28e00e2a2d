// Package repository defines the reservation store contract. The booking
// coordinator and the read services depend on this interface only, so the
// Postgres store and the in-memory store are interchangeable.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yuriwinchest/arena-courts/internal/domain"
)

// ScopedStore is the view handed to a function running inside the
// (courtID, date) serialization scope. Reads through it see every
// previously committed write for that key.
type ScopedStore interface {
	ListByCourtAndDate(ctx context.Context, courtID, date string) ([]domain.Reservation, error)
	CreateReservation(ctx context.Context, r *domain.Reservation) error
}

// Store is the single source of truth for courts and reservations.
//
// UpdateReservationStatus is a compare-and-swap: it fails with ErrConflict
// when the current status differs from expected, and bumps UpdatedAt on
// success. Reservations are never deleted; cancelled and completed rows
// are kept for reporting.
type Store interface {
	CreateCourt(ctx context.Context, c *domain.Court) error
	GetCourt(ctx context.Context, id string) (*domain.Court, error)
	ListCourts(ctx context.Context) ([]domain.Court, error)

	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	ListByCourtAndDate(ctx context.Context, courtID, date string) ([]domain.Reservation, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, next, expected domain.ReservationStatus) (*domain.Reservation, error)

	// InCourtDateScope serializes fn against every other caller holding the
	// same (courtID, date) key and commits its writes atomically: fn
	// returning an error leaves no partial state, and InCourtDateScope only
	// returns nil after the commit. This is the double-booking critical
	// section.
	InCourtDateScope(ctx context.Context, courtID, date string, fn func(ctx context.Context, scope ScopedStore) error) error

	TotalRevenue(ctx context.Context, from, to string) (*domain.RevenueSummary, error)
	CountByStatus(ctx context.Context, from, to string) (*domain.StatusCounts, error)
	Upcoming(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)

	// CompleteElapsed moves confirmed reservations whose end time has
	// passed to completed. CancelStalePending cancels pending reservations
	// created before the deadline (payment timeout). Both return the number
	// of rows changed.
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
	CancelStalePending(ctx context.Context, createdBefore time.Time) (int64, error)
}
