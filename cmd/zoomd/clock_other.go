//go:build !linux

package main

import "time"

// monotonicClock measures nanoseconds since construction using the runtime's
// monotonic clock reading.
type monotonicClock struct {
	start time.Time
}

func newMonotonicClock() monotonicClock { return monotonicClock{start: time.Now()} }

func (c monotonicClock) Now() uint64 {
	return uint64(time.Since(c.start))
}
