package ledger

import "time"

// =============================================================================
// CLOCK - Injected time source
// =============================================================================

// Clock supplies the current time to anything that needs it, so the
// window floor default and run timestamps are testable with a fixed
// clock instead of the wall clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// FixedYear is a convenience for tests that only care about the year.
func FixedYear(year int) Clock {
	return FixedClock{At: time.Date(year, time.June, 15, 0, 0, 0, 0, time.UTC)}
}
