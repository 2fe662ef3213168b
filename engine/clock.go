package engine

import "time"

// Clock supplies "now" to assembly and settlement so that date arithmetic is
// injectable and deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a Clock pinned to a single instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
