package zoomfilter

import (
	"math"
	"testing"
)

type fakeSource struct{ w, h uint32 }

func (s *fakeSource) Dimensions() (uint32, uint32) { return s.w, s.h }

type recordingCompositor struct {
	frames []Frame
}

func (c *recordingCompositor) Composite(f Frame) { c.frames = append(c.frames, f) }

type manualClock struct{ now uint64 }

func (c *manualClock) Now() uint64 { return c.now }

func newTestFilter(t *testing.T, settings Settings, src *fakeSource) (*Filter, *recordingCompositor, *persistRecorder) {
	t.Helper()
	comp := &recordingCompositor{}
	rec := &persistRecorder{}
	host := Host{
		Compositor: comp,
		Persist:    rec.persist,
	}
	if src != nil {
		host.Source = src
	}
	return New(settings, host, 0), comp, rec
}

func TestFilter_SkipsFrameWithoutDimensions(t *testing.T) {
	src := &fakeSource{}
	f, comp, _ := newTestFilter(t, DefaultSettings(), src)

	f.ZoomIn(true, 0)
	before := f.Snapshot(0)

	if f.Render(100 * ms) {
		t.Fatalf("expected Render to skip a zero-size source")
	}
	if len(comp.frames) != 0 {
		t.Fatalf("expected no frames composited, got %d", len(comp.frames))
	}
	if after := f.Snapshot(0); after != before {
		t.Fatalf("expected no state mutation, before=%+v after=%+v", before, after)
	}
}

func TestFilter_SkipsFrameWithoutSource(t *testing.T) {
	f, comp, _ := newTestFilter(t, DefaultSettings(), nil)

	if f.Render(0) {
		t.Fatalf("expected Render to skip without a source")
	}
	if len(comp.frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(comp.frames))
	}
}

func TestFilter_RenderEmitsCenteredTransform(t *testing.T) {
	s := DefaultSettings()
	s[KeySmoothEnabled] = false
	f, comp, _ := newTestFilter(t, s, &fakeSource{w: 1920, h: 1080})

	f.SetScale(2.0, 0)
	if !f.Render(16 * ms) {
		t.Fatalf("expected frame to render")
	}

	fr := comp.frames[len(comp.frames)-1]
	if fr.Scale != 2.0 || fr.CenterX != 960 || fr.CenterY != 540 {
		t.Fatalf("unexpected frame %+v", fr)
	}

	// The centre is a fixed point of the transform; the origin maps to -centre.
	tr := fr.Transform
	x := tr[0]*960 + tr[1]*540 + tr[2]
	y := tr[3]*960 + tr[4]*540 + tr[5]
	if x != 960 || y != 540 {
		t.Fatalf("expected centre to be fixed, got (%v,%v)", x, y)
	}
	if tr[2] != -960 || tr[5] != -540 {
		t.Fatalf("expected origin to map to (-960,-540), got (%v,%v)", tr[2], tr[5])
	}
}

func TestFilter_ScaleFactorRestoredWithoutAnimation(t *testing.T) {
	s := DefaultSettings()
	s[KeyScaleFactor] = 3.0
	f, comp, rec := newTestFilter(t, s, &fakeSource{w: 100, h: 100})

	f.Render(0)
	if got := comp.frames[0].Scale; got != 3.0 {
		t.Fatalf("expected restored scale 3.0 on first frame, got %v", got)
	}
	if len(rec.values) != 0 {
		t.Fatalf("expected restore not to persist, got %d", len(rec.values))
	}
}

func TestFilter_UpdateAnimatesWithoutPersisting(t *testing.T) {
	f, comp, rec := newTestFilter(t, DefaultSettings(), &fakeSource{w: 100, h: 100})

	s := DefaultSettings()
	s[KeyScaleFactor] = 2.0
	s[KeyAnimationTime] = 100
	f.Update(s, 0)

	f.Render(50 * ms)
	f.Render(100 * ms)

	if len(comp.frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(comp.frames))
	}
	if mid := comp.frames[0].Scale; mid <= 1.0 || mid >= 2.0 {
		t.Fatalf("expected mid-animation scale, got %v", mid)
	}
	if end := comp.frames[1].Scale; end != 2.0 {
		t.Fatalf("expected 2.0 at end of animation, got %v", end)
	}
	if len(rec.values) != 0 {
		t.Fatalf("expected settings update not to persist, got %d", len(rec.values))
	}
}

func TestFilter_HoldOverFramesPersistsEachStep(t *testing.T) {
	s := DefaultSettings()
	s[KeySingleClickStep] = 0.0
	f, _, rec := newTestFilter(t, s, &fakeSource{w: 100, h: 100})

	f.ZoomIn(true, 0)
	for now := uint64(10); now <= 500; now += 10 {
		f.Render(now * ms)
	}

	if len(rec.values) != 10 {
		t.Fatalf("expected 10 persisted steps, got %d", len(rec.values))
	}
	if got := f.Settings()[KeyScaleFactor].(float64); math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("expected scale_factor 1.1 in settings, got %v", got)
	}
}

func TestFilter_TrackingFollowsPointerOnZoomChange(t *testing.T) {
	s := DefaultSettings()
	s[KeyTrackingMode] = int(TrackingOnZoomChange)
	s[KeyTrackingSmoothEnabled] = false
	s[KeyAnimationTime] = 100

	comp := &recordingCompositor{}
	ptr := &fakePointer{x: 25, y: 75}
	f := New(s, Host{Source: &fakeSource{w: 100, h: 100}, Compositor: comp, Pointer: ptr}, 0)

	// No zoom change yet: centre stays at the initial (0.5,0.5).
	f.Render(10 * ms)
	if fr := comp.frames[0]; fr.CenterX != 50 || fr.CenterY != 50 {
		t.Fatalf("expected initial centre (50,50), got (%v,%v)", fr.CenterX, fr.CenterY)
	}

	f.SetScale(2.0, 10*ms)
	f.Render(60 * ms)
	if fr := comp.frames[1]; fr.CenterX != 25 || fr.CenterY != 75 {
		t.Fatalf("expected centre to follow pointer (25,75), got (%v,%v)", fr.CenterX, fr.CenterY)
	}
}

func TestFilter_HotkeysUseHostClock(t *testing.T) {
	clk := &manualClock{now: 5 * ms}
	s := DefaultSettings()
	s[KeySmoothEnabled] = false
	f := New(s, Host{Clock: clk}, 0)

	hk := f.Hotkeys()
	hk.OnZoomIn(true)
	hk.OnZoomIn(false)
	if got := f.Snapshot(clk.now).Target; math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("expected target 1.1, got %v", got)
	}

	hk.OnReset(false)
	if got := f.Snapshot(clk.now).Target; math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("expected reset key-up to be ignored, got %v", got)
	}
	hk.OnReset(true)
	if got := f.Snapshot(clk.now).Target; got != 1.0 {
		t.Fatalf("expected reset to 1.0, got %v", got)
	}
}

func TestFilter_SetTrackingModeKeepsSettingsInSync(t *testing.T) {
	f, _, _ := newTestFilter(t, DefaultSettings(), &fakeSource{w: 10, h: 10})

	f.SetTrackingMode(TrackingRealtime)

	if got := f.Snapshot(0).TrackingMode; got != TrackingRealtime {
		t.Fatalf("expected realtime, got %v", got)
	}
	if got := f.Settings()[KeyTrackingMode]; got != int(TrackingRealtime) {
		t.Fatalf("expected settings tracking_mode %d, got %v", TrackingRealtime, got)
	}
}
