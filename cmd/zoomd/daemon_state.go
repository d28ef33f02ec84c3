package main

import (
	"log/slog"

	"zoomfilter"
)

// DaemonState is the top-level, daemon-owned state container.
//
// It is touched only by the daemon goroutine. Other goroutines (IPC, HTTP,
// input readers) talk to it exclusively through Events.
type DaemonState struct {
	// Filter is the zoom engine. It is driven by Reduce.
	Filter *zoomfilter.Filter

	// Pointer is the virtual pointer accumulated from relative input motion.
	// It is the filter's pointer source.
	Pointer *virtualPointer

	// Wheel tracks scroll wheel velocity.
	Wheel *wheelAccel

	// Frame is the most recently composited frame.
	Frame      zoomfilter.Frame
	FrameKnown bool

	// Now is the latest monotonic timestamp seen by the reducer.
	Now uint64

	// Published is what observers were last told (rounded values).
	Published PublishedState

	// Intent contains changes that should be applied by the effects stage.
	Intent DaemonIntent
}

// PublishedState tracks the last broadcast values so that broadcasts are
// emitted only on change.
type PublishedState struct {
	Known        bool // target and tracking mode
	Target       float64
	TrackingMode string

	FrameKnown bool // scale and centre
	Scale      float64
	CenterX    float64
	CenterY    float64
}

// DaemonIntent captures pending side effects produced by the filter callbacks.
type DaemonIntent struct {
	// PersistScale, if non-nil, is the latest target scale to store.
	// Multiple changes within one reduction collapse into one write.
	PersistScale *float64

	// PersistKeys holds other settings keys to store.
	PersistKeys map[string]any
}

// NewDaemonState builds the daemon state and its filter.
func NewDaemonState(
	settings zoomfilter.Settings,
	source zoomfilter.FrameSource,
	screenW, screenH uint32,
	frames *frameStore,
	clock zoomfilter.Clock,
	logger *slog.Logger,
) *DaemonState {
	s := &DaemonState{
		Pointer: newVirtualPointer(screenW, screenH),
		Wheel:   &wheelAccel{},
	}
	if clock != nil {
		s.Now = clock.Now()
	}

	s.Filter = zoomfilter.New(settings, zoomfilter.Host{
		Source: source,
		Compositor: zoomfilter.CompositorFunc(func(f zoomfilter.Frame) {
			s.Frame = f
			s.FrameKnown = true
			if frames != nil {
				frames.Store(f)
			}
		}),
		Pointer: s.Pointer,
		Clock:   clock,
		Persist: func(scale float64) {
			v := scale
			s.Intent.PersistScale = &v
		},
		Logger: logger,
	}, s.Now)

	return s
}

// persistKey records a settings key to store in the next effects pass.
func (s *DaemonState) persistKey(key string, value any) {
	if s.Intent.PersistKeys == nil {
		s.Intent.PersistKeys = make(map[string]any)
	}
	s.Intent.PersistKeys[key] = value
}

// Snapshot builds a coherent snapshot for external consumers.
func (s *DaemonState) Snapshot() StateSnapshot {
	st := s.Filter.Snapshot(s.Now)
	snap := StateSnapshot{
		Scale:        st.Scale,
		Target:       st.Target,
		Animating:    !st.Finished,
		TrackingMode: st.TrackingMode.String(),
	}
	if s.FrameKnown {
		snap.CenterX = s.Frame.CenterX
		snap.CenterY = s.Frame.CenterY
		snap.Width = s.Frame.Width
		snap.Height = s.Frame.Height
	}
	return snap
}

// ============================================================================
// Virtual pointer
// ============================================================================

// virtualPointer integrates relative motion into an absolute position clamped
// to the screen.
type virtualPointer struct {
	x, y float64
	w, h float64
}

func newVirtualPointer(w, h uint32) *virtualPointer {
	return &virtualPointer{
		x: float64(w) / 2,
		y: float64(h) / 2,
		w: float64(w),
		h: float64(h),
	}
}

func (p *virtualPointer) Move(dx, dy int32) {
	p.x = clampF(p.x+float64(dx), 0, p.w)
	p.y = clampF(p.y+float64(dy), 0, p.h)
}

func (p *virtualPointer) PointerPosition() (float64, float64) { return p.x, p.y }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
