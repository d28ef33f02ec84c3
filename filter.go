package zoomfilter

import (
	"io"
	"log/slog"
)

// ============================================================================
// Filter - composition of the zoom engine parts
// ============================================================================
//
// Per rendered frame:
//   - Controller.Tick     (hold repeat, idle reset)
//   - Smoother.Advance    (interpolated scale)
//   - Tracker.Update      (pointer sample, uses current and previous scale)
//   - Tracker.Center      (zoom centre in frame pixels)
//   - Compositor          (receives one Frame with the affine transform)
//
// A Filter is not safe for concurrent use. The owner serializes Render,
// Update and hotkey calls.
// ============================================================================

// Host bundles the collaborators a Filter depends on. Every field is optional.
type Host struct {
	Source     FrameSource
	Compositor Compositor
	Pointer    PointerSource
	Clock      Clock

	// Persist is called once for each target change made by the controller.
	Persist PersistFunc

	Logger *slog.Logger
}

type Filter struct {
	host   Host
	logger *slog.Logger

	smoother   *Smoother
	tracker    *Tracker
	controller *Controller

	prevScale float64
	settings  Settings
}

// New builds a filter from a settings snapshot at time now.
func New(settings Settings, host Host, now uint64) *Filter {
	logger := host.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg := settings.Config()

	f := &Filter{
		host:      host,
		logger:    logger,
		prevScale: MinScale,
		settings:  settings.Clone(),
	}
	f.smoother = NewSmoother(cfg.Smoothing)
	f.tracker = NewTracker(cfg.Tracking, host.Pointer, now)
	f.controller = NewController(cfg.Control, f.smoother, f.persist, now)

	// The stored scale is where the user left off; show it without animating.
	f.smoother.SetTarget(cfg.ScaleFactor, now)
	f.smoother.finish()
	f.prevScale = f.smoother.Current()

	return f
}

// Update applies a new settings snapshot. A changed scale_factor animates
// toward the new value; it is not echoed back through Persist.
func (f *Filter) Update(settings Settings, now uint64) {
	cfg := settings.Config()
	f.settings = settings.Clone()

	f.smoother.Configure(cfg.Smoothing)
	f.tracker.Configure(cfg.Tracking)
	f.controller.Configure(cfg.Control)

	if f.smoother.SetTarget(cfg.ScaleFactor, now) {
		f.logger.Debug("scale target from settings", "target", f.smoother.Target())
	}

	f.logger.Debug("settings applied",
		"curve", cfg.Smoothing.Curve.String(),
		"smoothing", cfg.Smoothing.Enabled,
		"animation_ns", cfg.Smoothing.Duration,
		"tracking_mode", cfg.Tracking.Mode.String(),
		"idle_reset_ns", cfg.Control.IdleReset)
}

// Settings returns a copy of the last applied snapshot, with scale_factor
// reflecting the current target.
func (f *Filter) Settings() Settings {
	s := f.settings.Clone()
	s[KeyScaleFactor] = f.smoother.Target()
	return s
}

// Render runs one frame at time now. It reports false, leaving all state
// untouched, when the source is absent or has no size yet.
func (f *Filter) Render(now uint64) bool {
	if f.host.Source == nil {
		return false
	}
	w, h := f.host.Source.Dimensions()
	if w == 0 || h == 0 {
		return false
	}

	f.controller.Tick(now)
	scale := f.smoother.Advance(now)
	f.tracker.Update(w, h, scale, f.prevScale, now)
	f.prevScale = scale

	cx, cy := f.tracker.Center(w, h)
	frame := Frame{
		Width:     w,
		Height:    h,
		Scale:     scale,
		CenterX:   cx,
		CenterY:   cy,
		Transform: ZoomTransform(scale, cx, cy),
		At:        now,
	}
	if f.host.Compositor != nil {
		f.host.Compositor.Composite(frame)
	}
	return true
}

func (f *Filter) now() uint64 {
	if f.host.Clock == nil {
		return 0
	}
	return f.host.Clock.Now()
}

// Controller input. These take explicit timestamps; the Hotkeys adapter uses
// the host clock.

func (f *Filter) ZoomIn(pressed bool, now uint64)  { f.controller.ZoomIn(pressed, now) }
func (f *Filter) ZoomOut(pressed bool, now uint64) { f.controller.ZoomOut(pressed, now) }
func (f *Filter) Reset(now uint64)                 { f.controller.Reset(now) }

// Nudge steps the target by clicks single-click steps.
func (f *Filter) Nudge(clicks int, now uint64) { f.controller.Nudge(clicks, now) }

// SetScale sets an absolute target scale, persisting it like any other
// controller change.
func (f *Filter) SetScale(scale float64, now uint64) { f.controller.SetScale(scale, now) }

// SetTrackingMode switches the tracking policy, keeping the other tracking settings.
func (f *Filter) SetTrackingMode(mode TrackingMode) {
	cfg := f.tracker.Config()
	cfg.Mode = mode
	f.tracker.Configure(cfg)
	f.settings[KeyTrackingMode] = int(f.tracker.Config().Mode)
}

// State is a read-only view of the engine for observers.
type State struct {
	Scale        float64
	Target       float64
	Finished     bool
	TrackingMode TrackingMode
	PointerX     float64 // normalized
	PointerY     float64 // normalized
	ZoomInHeld   bool
	ZoomOutHeld  bool
}

// Snapshot reports the engine state at time now without advancing it.
func (f *Filter) Snapshot(now uint64) State {
	px, py := f.tracker.Position()
	in, out := f.controller.Held()
	return State{
		Scale:        f.smoother.Current(),
		Target:       f.smoother.Target(),
		Finished:     f.smoother.IsFinished(now),
		TrackingMode: f.tracker.Config().Mode,
		PointerX:     px,
		PointerY:     py,
		ZoomInHeld:   in,
		ZoomOutHeld:  out,
	}
}

// Hotkeys returns handlers bound to the host clock.
func (f *Filter) Hotkeys() Hotkeys { return filterHotkeys{f} }

type filterHotkeys struct{ f *Filter }

func (h filterHotkeys) OnZoomIn(pressed bool)  { h.f.ZoomIn(pressed, h.f.now()) }
func (h filterHotkeys) OnZoomOut(pressed bool) { h.f.ZoomOut(pressed, h.f.now()) }

// OnReset fires on key down only.
func (h filterHotkeys) OnReset(pressed bool) {
	if pressed {
		h.f.Reset(h.f.now())
	}
}

func (f *Filter) persist(scale float64) {
	f.settings[KeyScaleFactor] = scale
	f.logger.Debug("scale target changed", "target", scale)
	if f.host.Persist != nil {
		f.host.Persist(scale)
	}
}
