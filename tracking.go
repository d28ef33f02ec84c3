package zoomfilter

import (
	"fmt"
	"math"
	"strings"
)

// TrackingMode selects when the zoom centre follows the pointer.
type TrackingMode int

const (
	TrackingDisabled TrackingMode = iota
	TrackingRealtime
	TrackingOnZoomChange
)

func (m TrackingMode) String() string {
	switch m {
	case TrackingDisabled:
		return "disabled"
	case TrackingRealtime:
		return "realtime"
	case TrackingOnZoomChange:
		return "on_zoom_change"
	default:
		return "unknown"
	}
}

// ParseTrackingMode accepts the names produced by TrackingMode.String.
func ParseTrackingMode(s string) (TrackingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "":
		return TrackingDisabled, nil
	case "realtime", "real_time":
		return TrackingRealtime, nil
	case "on_zoom_change", "zoom_change":
		return TrackingOnZoomChange, nil
	default:
		return TrackingDisabled, fmt.Errorf("invalid tracking mode: %q (must be disabled, realtime, or on_zoom_change)", s)
	}
}

// PointerSource reports the pointer position in screen pixels.
// Implementations return (0,0) when the position is unavailable.
type PointerSource interface {
	PointerPosition() (x, y float64)
}

// PointerFunc adapts a plain function to PointerSource.
type PointerFunc func() (x, y float64)

func (f PointerFunc) PointerPosition() (float64, float64) { return f() }

// TrackingConfig is the user-facing pointer tracking configuration.
type TrackingConfig struct {
	Mode             TrackingMode
	SmoothingEnabled bool
	Smoothness       float64 // (0,1]
}

func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		Mode:             TrackingDisabled,
		SmoothingEnabled: true,
		Smoothness:       defaultTrackSmoothness,
	}
}

// Normalize clamps every field into its valid range.
func (c TrackingConfig) Normalize() TrackingConfig {
	switch c.Mode {
	case TrackingDisabled, TrackingRealtime, TrackingOnZoomChange:
	default:
		c.Mode = TrackingDisabled
	}
	if c.Smoothness <= 0 {
		c.Smoothness = defaultTrackSmoothness
	}
	c.Smoothness = clamp(c.Smoothness, 0.01, 1.0)
	return c
}

// Tracker keeps a smoothed, normalized pointer position.
type Tracker struct {
	cfg     TrackingConfig
	pointer PointerSource

	x, y       float64
	lastUpdate uint64
}

// NewTracker returns a tracker centred on the frame. A nil pointer source is
// treated as one that always reports (0,0).
func NewTracker(cfg TrackingConfig, pointer PointerSource, now uint64) *Tracker {
	return &Tracker{
		cfg:        cfg.Normalize(),
		pointer:    pointer,
		x:          0.5,
		y:          0.5,
		lastUpdate: now,
	}
}

func (t *Tracker) Configure(cfg TrackingConfig) { t.cfg = cfg.Normalize() }

func (t *Tracker) Config() TrackingConfig { return t.cfg }

// Position returns the normalized tracked position.
func (t *Tracker) Position() (x, y float64) { return t.x, t.y }

// Update samples the pointer according to the tracking mode and moves the
// tracked position toward it.
func (t *Tracker) Update(width, height uint32, scale, prevScale float64, now uint64) {
	defer func() { t.lastUpdate = now }()

	if !t.shouldSample(scale, prevScale) || width == 0 || height == 0 {
		return
	}

	px, py := t.sample()
	nx := clamp(px/float64(width), 0, 1)
	ny := clamp(py/float64(height), 0, 1)

	if !t.cfg.SmoothingEnabled {
		t.x, t.y = nx, ny
		return
	}

	var dt float64
	if now > t.lastUpdate {
		dt = float64(now-t.lastUpdate) / nsPerSecond
	}
	rate := math.Min(t.cfg.Smoothness*10.0*dt, 1.0)
	t.x += (nx - t.x) * rate
	t.y += (ny - t.y) * rate
}

// Center returns the zoom centre in frame pixels.
func (t *Tracker) Center(width, height uint32) (x, y float64) {
	if t.cfg.Mode == TrackingDisabled {
		return float64(width) / 2, float64(height) / 2
	}
	return t.x * float64(width), t.y * float64(height)
}

func (t *Tracker) shouldSample(scale, prevScale float64) bool {
	switch t.cfg.Mode {
	case TrackingRealtime:
		return true
	case TrackingOnZoomChange:
		return math.Abs(scale-prevScale) > scaleEpsilon
	default:
		return false
	}
}

func (t *Tracker) sample() (float64, float64) {
	if t.pointer == nil {
		return 0, 0
	}
	x, y := t.pointer.PointerPosition()
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0
	}
	return x, y
}
