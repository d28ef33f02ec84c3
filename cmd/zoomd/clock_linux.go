//go:build linux

package main

import (
	"golang.org/x/sys/unix"
)

// monotonicClock reads CLOCK_MONOTONIC in nanoseconds.
type monotonicClock struct{}

func newMonotonicClock() monotonicClock { return monotonicClock{} }

func (monotonicClock) Now() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Nano())
}
