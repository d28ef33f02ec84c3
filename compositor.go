package zoomfilter

import (
	"golang.org/x/image/math/f64"
)

// Clock supplies monotonic nanosecond timestamps.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// FrameSource is the upstream video source being zoomed.
// A source reporting zero width or height is not ready.
type FrameSource interface {
	Dimensions() (width, height uint32)
}

// Frame is everything the host compositor needs to draw one zoomed frame.
type Frame struct {
	Width, Height    uint32
	Scale            float64
	CenterX, CenterY float64

	// Transform maps source pixel coordinates to output coordinates:
	// translate(center) * scale * translate(-center).
	Transform f64.Aff3

	At uint64
}

// Compositor draws a frame. It is called once per rendered frame.
type Compositor interface {
	Composite(f Frame)
}

// CompositorFunc adapts a plain function to Compositor.
type CompositorFunc func(f Frame)

func (fn CompositorFunc) Composite(f Frame) { fn(f) }

// ZoomTransform builds the affine transform that scales about (cx, cy).
func ZoomTransform(scale, cx, cy float64) f64.Aff3 {
	return f64.Aff3{
		scale, 0, cx * (1 - scale),
		0, scale, cy * (1 - scale),
	}
}
