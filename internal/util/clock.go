package util

import "time"

// A Clock for retrieving the current time in Unix nanoseconds, which can be
// swapped out for testing.
type Clock interface {
	CurrentUnixNano() int64
}

// NewClock returns a Clock backed by the wall clock.
func NewClock() Clock {
	return &wallClock{}
}

type wallClock struct{}

func (c *wallClock) CurrentUnixNano() int64 {
	return time.Now().UnixNano()
}
