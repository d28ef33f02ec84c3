package zoomfilter

// ============================================================================
// Zoom Controller
// ============================================================================
// Translates discrete input (press, hold, release, reset) and the passage of
// time (idle auto-reset) into target scale changes on the smoother.
//
// Hold repeat is rate-limited by ResponseInterval. A press applies one
// single-click step immediately; every further interval while the key stays
// down applies one continuous step.
// ============================================================================

// ControlConfig is the user-facing controller configuration.
type ControlConfig struct {
	SingleClickStep  float64
	ContinuousStep   float64
	ResponseInterval uint64 // ns between continuous steps
	IdleReset        uint64 // ns of inactivity before returning to 1.0; 0 disables
}

func DefaultControlConfig() ControlConfig {
	return ControlConfig{
		SingleClickStep:  defaultSingleClickStep,
		ContinuousStep:   defaultContinuousStep,
		ResponseInterval: Milliseconds(defaultResponseTimeMS),
		IdleReset:        Milliseconds(defaultAutoResetTimeMS),
	}
}

// Normalize clamps negative steps to zero.
func (c ControlConfig) Normalize() ControlConfig {
	if c.SingleClickStep < 0 {
		c.SingleClickStep = 0
	}
	if c.ContinuousStep < 0 {
		c.ContinuousStep = 0
	}
	return c
}

// PersistFunc receives every accepted target scale so the host can store it.
type PersistFunc func(scale float64)

// Controller drives a Smoother's target scale.
type Controller struct {
	cfg      ControlConfig
	smoother *Smoother
	persist  PersistFunc

	inPressed  bool
	outPressed bool
	lastEvent  uint64
}

// NewController binds a controller to smoother. persist may be nil.
func NewController(cfg ControlConfig, smoother *Smoother, persist PersistFunc, now uint64) *Controller {
	return &Controller{
		cfg:       cfg.Normalize(),
		smoother:  smoother,
		persist:   persist,
		lastEvent: now,
	}
}

func (c *Controller) Configure(cfg ControlConfig) { c.cfg = cfg.Normalize() }

func (c *Controller) Config() ControlConfig { return c.cfg }

// Held reports the pressed state of the zoom-in and zoom-out inputs.
func (c *Controller) Held() (in, out bool) { return c.inPressed, c.outPressed }

// ZoomIn handles a zoom-in press (pressed=true) or release (pressed=false).
func (c *Controller) ZoomIn(pressed bool, now uint64) {
	c.inPressed = pressed
	if !pressed {
		return
	}
	c.lastEvent = now
	c.step(c.cfg.SingleClickStep, now)
}

// ZoomOut handles a zoom-out press (pressed=true) or release (pressed=false).
func (c *Controller) ZoomOut(pressed bool, now uint64) {
	c.outPressed = pressed
	if !pressed {
		return
	}
	c.lastEvent = now
	c.step(-c.cfg.SingleClickStep, now)
}

// Nudge moves the target by clicks single-click steps (negative zooms out),
// as a scroll wheel would. It does not touch the held state.
func (c *Controller) Nudge(clicks int, now uint64) {
	if clicks == 0 {
		return
	}
	c.lastEvent = now
	c.step(float64(clicks)*c.cfg.SingleClickStep, now)
}

// Reset drives the target back to 1.0.
func (c *Controller) Reset(now uint64) {
	c.lastEvent = now
	c.apply(MinScale, now)
}

// SetScale sets an absolute target, as a settings change or remote command would.
func (c *Controller) SetScale(scale float64, now uint64) {
	c.lastEvent = now
	c.apply(scale, now)
}

// Tick runs the time-driven part of the controller for one frame.
func (c *Controller) Tick(now uint64) {
	if c.inPressed || c.outPressed {
		if now < c.lastEvent || now-c.lastEvent < c.cfg.ResponseInterval {
			return
		}
		c.lastEvent = now
		if c.inPressed {
			c.step(c.cfg.ContinuousStep, now)
		} else {
			c.step(-c.cfg.ContinuousStep, now)
		}
		return
	}

	if c.cfg.IdleReset == 0 || now < c.lastEvent {
		return
	}
	if now-c.lastEvent > c.cfg.IdleReset {
		c.lastEvent = now
		c.apply(MinScale, now)
	}
}

func (c *Controller) step(delta float64, now uint64) {
	c.apply(c.smoother.Target()+delta, now)
}

func (c *Controller) apply(scale float64, now uint64) {
	if !c.smoother.SetTarget(scale, now) {
		return
	}
	if c.persist != nil {
		c.persist(c.smoother.Target())
	}
}

// ============================================================================
// Hotkey binding
// ============================================================================

// Hotkeys is the set of handlers an external binder wires to platform input.
// pressed is true on key down and false on key up.
type Hotkeys interface {
	OnZoomIn(pressed bool)
	OnZoomOut(pressed bool)
	OnReset(pressed bool)
}
