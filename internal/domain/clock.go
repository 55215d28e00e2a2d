package domain

import "time"

// Clock abstracts "now" so slot-state decisions are testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
