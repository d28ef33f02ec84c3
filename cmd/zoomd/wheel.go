package main

// wheelAccel turns scroll detents into click steps. A streak of
// same-direction detents, each within rotaryWindowMS of the previous one,
// counts as fast spinning once it reaches rotaryFastThreshold.
//
// Owned by DaemonState; timestamps are monotonic nanoseconds.
type wheelAccel struct {
	dir    int
	last   uint64
	streak int
}

// clicks returns the signed number of click steps for one detent at time at.
func (w *wheelAccel) clicks(direction int, at uint64) int {
	if direction == 0 {
		return 0
	}

	window := uint64(rotaryWindowMS) * 1_000_000
	if direction == w.dir && w.streak > 0 && at >= w.last && at-w.last < window {
		w.streak++
	} else {
		w.streak = 1
	}
	w.dir = direction
	w.last = at

	if w.streak >= rotaryFastThreshold {
		return direction * rotaryFastMultiplier
	}
	return direction
}
