package zoomfilter

import (
	"maps"
	"math"
	"strconv"
)

// Recognized settings keys.
const (
	KeyScaleFactor           = "scale_factor"
	KeySingleClickStep       = "single_click_step"
	KeyContinuousStep        = "continuous_step"
	KeyTrackingMode          = "tracking_mode"
	KeyTrackingSmoothEnabled = "tracking_smooth_enabled"
	KeyTrackingSmoothness    = "tracking_smoothness"
	KeySmoothEnabled         = "smooth_enabled"
	KeySmoothness            = "smoothness"
	KeySmoothingMode         = "smoothing_mode"
	KeyResponseTime          = "response_time"
	KeyAnimationTime         = "animation_time"
	KeyAutoResetTime         = "auto_reset_time"
	KeyStartSpeed            = "start_speed"
	KeyEndDeceleration       = "end_deceleration"
	KeyOvershoot             = "overshoot"
)

// Settings is a key/value snapshot of filter settings, as loaded from a
// settings file or sent by a host. Missing or malformed values fall back to
// defaults; out-of-range values are clamped when converted to a Config.
type Settings map[string]any

// DefaultSettings returns a snapshot holding every key at its default.
func DefaultSettings() Settings {
	return Settings{
		KeyScaleFactor:           defaultScaleFactor,
		KeySingleClickStep:       defaultSingleClickStep,
		KeyContinuousStep:        defaultContinuousStep,
		KeyTrackingMode:          int(TrackingDisabled),
		KeyTrackingSmoothEnabled: true,
		KeyTrackingSmoothness:    defaultTrackSmoothness,
		KeySmoothEnabled:         true,
		KeySmoothness:            defaultSmoothness,
		KeySmoothingMode:         int(CurveExponential),
		KeyResponseTime:          defaultResponseTimeMS,
		KeyAnimationTime:         defaultAnimationTimeMS,
		KeyAutoResetTime:         defaultAutoResetTimeMS,
		KeyStartSpeed:            defaultStartSpeed,
		KeyEndDeceleration:       defaultEndDeceleration,
		KeyOvershoot:             defaultOvershoot,
	}
}

// Clone returns a shallow copy.
func (s Settings) Clone() Settings {
	if s == nil {
		return Settings{}
	}
	return maps.Clone(s)
}

// Merge returns a copy of s with every key of o applied on top.
func (s Settings) Merge(o Settings) Settings {
	out := s.Clone()
	maps.Copy(out, o)
	return out
}

func (s Settings) Float(key string, def float64) float64 {
	v, ok := s[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return def
		}
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

func (s Settings) Int(key string, def int64) int64 {
	v, ok := s[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		if n > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(n)
	case float64:
		switch {
		case math.IsNaN(n):
			return def
		case n >= 1<<63:
			return math.MaxInt64
		case n < -(1 << 63):
			return math.MinInt64
		}
		return int64(math.Round(n))
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return def
		}
		return i
	default:
		return def
	}
}

func (s Settings) Bool(key string, def bool) bool {
	v, ok := s[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		p, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}
		return p
	default:
		return def
	}
}

// Config is the fully resolved filter configuration.
type Config struct {
	ScaleFactor float64
	Smoothing   SmoothingConfig
	Tracking    TrackingConfig
	Control     ControlConfig
}

// DefaultConfig is equivalent to DefaultSettings().Config().
func DefaultConfig() Config {
	return Config{
		ScaleFactor: defaultScaleFactor,
		Smoothing:   DefaultSmoothingConfig(),
		Tracking:    DefaultTrackingConfig(),
		Control:     DefaultControlConfig(),
	}
}

// Config resolves the snapshot. Millisecond settings become nanoseconds.
func (s Settings) Config() Config {
	return Config{
		ScaleFactor: ClampScale(s.Float(KeyScaleFactor, defaultScaleFactor)),
		Smoothing: SmoothingConfig{
			Enabled:  s.Bool(KeySmoothEnabled, true),
			Curve:    Curve(s.Int(KeySmoothingMode, int64(CurveExponential))),
			Duration: s.millis(KeyAnimationTime, defaultAnimationTimeMS),
			Shape: Shape{
				Smoothness:      s.Float(KeySmoothness, defaultSmoothness),
				StartSpeed:      s.Float(KeyStartSpeed, defaultStartSpeed),
				EndDeceleration: s.Float(KeyEndDeceleration, defaultEndDeceleration),
				Overshoot:       s.Float(KeyOvershoot, defaultOvershoot),
			},
		}.Normalize(),
		Tracking: TrackingConfig{
			Mode:             TrackingMode(s.Int(KeyTrackingMode, int64(TrackingDisabled))),
			SmoothingEnabled: s.Bool(KeyTrackingSmoothEnabled, true),
			Smoothness:       s.Float(KeyTrackingSmoothness, defaultTrackSmoothness),
		}.Normalize(),
		Control: ControlConfig{
			SingleClickStep:  s.Float(KeySingleClickStep, defaultSingleClickStep),
			ContinuousStep:   s.Float(KeyContinuousStep, defaultContinuousStep),
			ResponseInterval: s.millis(KeyResponseTime, defaultResponseTimeMS),
			IdleReset:        s.millis(KeyAutoResetTime, defaultAutoResetTimeMS),
		}.Normalize(),
	}
}

func (s Settings) millis(key string, def int64) uint64 {
	ms := s.Int(key, def)
	if ms > maxSettingTimeMS {
		ms = maxSettingTimeMS
	}
	return Milliseconds(ms)
}

// Settings renders c back into a snapshot with millisecond times.
func (c Config) Settings() Settings {
	return Settings{
		KeyScaleFactor:           c.ScaleFactor,
		KeySingleClickStep:       c.Control.SingleClickStep,
		KeyContinuousStep:        c.Control.ContinuousStep,
		KeyTrackingMode:          int(c.Tracking.Mode),
		KeyTrackingSmoothEnabled: c.Tracking.SmoothingEnabled,
		KeyTrackingSmoothness:    c.Tracking.Smoothness,
		KeySmoothEnabled:         c.Smoothing.Enabled,
		KeySmoothness:            c.Smoothing.Shape.Smoothness,
		KeySmoothingMode:         int(c.Smoothing.Curve),
		KeyResponseTime:          int(c.Control.ResponseInterval / nsPerMs),
		KeyAnimationTime:         int(c.Smoothing.Duration / nsPerMs),
		KeyAutoResetTime:         int(c.Control.IdleReset / nsPerMs),
		KeyStartSpeed:            c.Smoothing.Shape.StartSpeed,
		KeyEndDeceleration:       c.Smoothing.Shape.EndDeceleration,
		KeyOvershoot:             c.Smoothing.Shape.Overshoot,
	}
}
