package zoomfilter

import (
	"fmt"
	"math"
	"strings"
)

// ============================================================================
// Smoothing Engine
// ============================================================================
// The smoother owns the rendered zoom scale. A target change starts a
// transition from the live scale; each frame the elapsed time is mapped to a
// fraction of the distance through one of a small closed set of curves.
//
// Timestamps are monotonic nanoseconds supplied by the caller.
// ============================================================================

const (
	MinScale = 1.0
	MaxScale = 5.0

	// scaleEpsilon is the smallest target change that starts a transition.
	scaleEpsilon = 0.001
)

// Curve selects the easing family used while a transition is in flight.
type Curve int

const (
	CurveLinear Curve = iota
	CurveExponential
	CurveLogarithmic
)

func (c Curve) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveExponential:
		return "exponential"
	case CurveLogarithmic:
		return "logarithmic"
	default:
		return "unknown"
	}
}

// ParseCurve accepts the names produced by Curve.String.
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return CurveLinear, nil
	case "exponential", "":
		return CurveExponential, nil
	case "logarithmic":
		return CurveLogarithmic, nil
	default:
		return CurveExponential, fmt.Errorf("invalid smoothing mode: %q (must be linear, exponential, or logarithmic)", s)
	}
}

// Shape carries the per-curve tuning knobs.
type Shape struct {
	Smoothness      float64 // (0,1]
	StartSpeed      float64 // [0.1,2]
	EndDeceleration float64 // [0.1,2]
	Overshoot       float64 // [0,0.5]
}

// EaseFraction maps progress in [0,1] to the fraction of the total distance
// covered. It is pure; callers clamp shape parameters beforehand.
func EaseFraction(curve Curve, progress float64, shape Shape) float64 {
	adjusted := math.Pow(progress, 2.0/shape.StartSpeed)

	var f float64
	switch curve {
	case CurveExponential:
		f = 1.0 - math.Exp(-adjusted*2.0/(shape.Smoothness*shape.EndDeceleration))
	case CurveLogarithmic:
		f = math.Log(1.0+9.0*adjusted) / math.Ln10
	default:
		f = adjusted
	}

	if shape.Overshoot > 0 && progress > 0.5 {
		f += shape.Overshoot * math.Sin((progress-0.5)*2*math.Pi) * (1.0 - progress) * 2.0
		if f > 1.0+shape.Overshoot {
			f = 1.0 + shape.Overshoot
		}
	}
	return f
}

// SmoothingConfig is the user-facing smoothing configuration.
type SmoothingConfig struct {
	Enabled  bool
	Curve    Curve
	Duration uint64 // animation window in ns; 0 means instant
	Shape    Shape
}

// DefaultSmoothingConfig returns the stock smoothing settings.
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		Enabled:  true,
		Curve:    CurveExponential,
		Duration: Milliseconds(defaultAnimationTimeMS),
		Shape: Shape{
			Smoothness:      defaultSmoothness,
			StartSpeed:      defaultStartSpeed,
			EndDeceleration: defaultEndDeceleration,
			Overshoot:       defaultOvershoot,
		},
	}
}

// Normalize clamps every field into its valid range.
func (c SmoothingConfig) Normalize() SmoothingConfig {
	switch c.Curve {
	case CurveLinear, CurveExponential, CurveLogarithmic:
	default:
		c.Curve = CurveExponential
	}
	if c.Shape.Smoothness <= 0 {
		c.Shape.Smoothness = defaultSmoothness
	}
	c.Shape.Smoothness = clamp(c.Shape.Smoothness, 0.01, 1.0)
	c.Shape.StartSpeed = clamp(c.Shape.StartSpeed, 0.1, 2.0)
	c.Shape.EndDeceleration = clamp(c.Shape.EndDeceleration, 0.1, 2.0)
	c.Shape.Overshoot = clamp(c.Shape.Overshoot, 0.0, 0.5)
	return c
}

// Smoother holds the current and target scale and the in-flight transition.
// It is not safe for concurrent use.
type Smoother struct {
	cfg SmoothingConfig

	current float64
	target  float64

	// Transition bookkeeping. from is the scale the transition started at.
	active bool
	start  uint64
	from   float64
}

// NewSmoother returns a smoother resting at scale 1.0.
func NewSmoother(cfg SmoothingConfig) *Smoother {
	return &Smoother{
		cfg:     cfg.Normalize(),
		current: MinScale,
		target:  MinScale,
	}
}

// Configure replaces the smoothing parameters. An in-flight transition keeps
// running under the new parameters; disabling smoothing snaps to the target.
func (s *Smoother) Configure(cfg SmoothingConfig) {
	s.cfg = cfg.Normalize()
	if !s.cfg.Enabled {
		s.finish()
	}
}

func (s *Smoother) Config() SmoothingConfig { return s.cfg }

func (s *Smoother) Current() float64 { return s.current }

func (s *Smoother) Target() float64 { return s.target }

// SetTarget requests a new target scale at time now. It reports whether the
// target changed; changes of 0.001 or less are ignored.
func (s *Smoother) SetTarget(target float64, now uint64) bool {
	target = ClampScale(target)
	if math.Abs(target-s.target) <= scaleEpsilon {
		return false
	}

	if !s.cfg.Enabled {
		s.target = target
		s.finish()
		return true
	}

	// Rebase on the live value so a retarget never jumps.
	if s.active {
		s.Advance(now)
	}

	s.target = target
	s.from = s.current
	s.start = now
	s.active = true
	return true
}

// Advance computes the scale for time now, stores it and returns it.
func (s *Smoother) Advance(now uint64) float64 {
	if !s.cfg.Enabled || !s.active || s.cfg.Duration == 0 {
		s.finish()
		return s.current
	}

	progress := s.progress(now)
	if progress >= 1.0 {
		s.finish()
		return s.current
	}

	diff := s.target - s.from
	if math.Abs(diff) < scaleEpsilon {
		s.finish()
		return s.current
	}

	f := EaseFraction(s.cfg.Curve, progress, s.cfg.Shape)
	s.current = ClampScale(s.from + diff*f)
	return s.current
}

// IsFinished reports whether no transition is in flight at time now.
func (s *Smoother) IsFinished(now uint64) bool {
	if !s.cfg.Enabled || !s.active || s.cfg.Duration == 0 {
		return true
	}
	return s.progress(now) >= 1.0
}

func (s *Smoother) progress(now uint64) float64 {
	if now <= s.start {
		return 0
	}
	return float64(now-s.start) / float64(s.cfg.Duration)
}

func (s *Smoother) finish() {
	s.current = s.target
	s.active = false
}

// ClampScale clamps v into [MinScale, MaxScale].
func ClampScale(v float64) float64 {
	return clamp(v, MinScale, MaxScale)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
