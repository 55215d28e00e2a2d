// Package calendar derives the bookable slot grid from venue
// configuration. Slots are a computed coordinate space; nothing here is
// persisted and nothing here has side effects.
package calendar

import (
	"fmt"
	"time"

	"github.com/yuriwinchest/arena-courts/internal/domain"
)

// ConfigurationError signals bad venue setup. It is fatal at startup.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "calendar configuration: " + e.Reason
}

type Config struct {
	OpenMinute  int // minutes from midnight, inclusive
	CloseMinute int // minutes from midnight, exclusive
	SlotMinutes int
	Location    *time.Location
}

type Calendar struct {
	cfg Config
}

func New(cfg Config) (*Calendar, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SlotMinutes <= 0 {
		return nil, ConfigurationError{Reason: "slot duration must be positive"}
	}
	if cfg.OpenMinute < 0 || cfg.CloseMinute > 24*60 {
		return nil, ConfigurationError{Reason: "operating hours outside of a day"}
	}
	if cfg.OpenMinute >= cfg.CloseMinute {
		return nil, ConfigurationError{Reason: "opening time must precede closing time"}
	}
	window := cfg.CloseMinute - cfg.OpenMinute
	if window%cfg.SlotMinutes != 0 {
		return nil, ConfigurationError{
			Reason: fmt.Sprintf("slot duration %dm does not evenly divide the %dm operating window", cfg.SlotMinutes, window),
		}
	}
	return &Calendar{cfg: cfg}, nil
}

func (c *Calendar) Location() *time.Location { return c.cfg.Location }

func (c *Calendar) SlotMinutes() int { return c.cfg.SlotMinutes }

// SlotsFor enumerates the slots of one court on one date, ordered by start
// time, non-overlapping, covering exactly the operating window. The result
// is deterministic given the configuration.
func (c *Calendar) SlotsFor(courtID, date string) ([]domain.Slot, error) {
	if _, err := domain.ParseDate(date, c.cfg.Location); err != nil {
		return nil, err
	}

	n := (c.cfg.CloseMinute - c.cfg.OpenMinute) / c.cfg.SlotMinutes
	slots := make([]domain.Slot, 0, n)
	for start := c.cfg.OpenMinute; start < c.cfg.CloseMinute; start += c.cfg.SlotMinutes {
		slots = append(slots, domain.Slot{
			CourtID: courtID,
			Date:    date,
			Start:   start,
			End:     start + c.cfg.SlotMinutes,
		})
	}
	return slots, nil
}

// Contains reports whether a (start, end) pair is a slot of the grid.
func (c *Calendar) Contains(startMin, endMin int) bool {
	if endMin-startMin != c.cfg.SlotMinutes {
		return false
	}
	if startMin < c.cfg.OpenMinute || endMin > c.cfg.CloseMinute {
		return false
	}
	return (startMin-c.cfg.OpenMinute)%c.cfg.SlotMinutes == 0
}
