package zoomfilter

// Time units. All engine timestamps and durations are nanoseconds.
const (
	nsPerMs     = 1_000_000
	nsPerSecond = 1e9
)

// Defaults applied when a settings key is missing.
const (
	defaultScaleFactor     = 1.0
	defaultSingleClickStep = 0.1
	defaultContinuousStep  = 0.01
	defaultResponseTimeMS  = 50
	defaultAnimationTimeMS = 400
	defaultAutoResetTimeMS = 0 // disabled
	defaultSmoothness      = 0.6
	defaultTrackSmoothness = 0.6
	defaultStartSpeed      = 1.0
	defaultEndDeceleration = 1.0
	defaultOvershoot       = 0.0

	// Upper bound for any millisecond setting (one minute).
	maxSettingTimeMS = 60_000
)

// Milliseconds converts a millisecond count to engine nanoseconds.
// Negative values become zero.
func Milliseconds(ms int64) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64(ms) * nsPerMs
}
