package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"zoomfilter"
)

// ============================================================================
// Raster output
// ============================================================================
// zoomd has no video pipeline of its own. The source is a still image (or a
// generated checkerboard) and the compositor output is kept as the latest
// Frame. GET /frame.png renders that frame on demand.
// ============================================================================

// frameStore holds the latest composited frame. It is written by the daemon
// goroutine and read by HTTP handlers.
type frameStore struct {
	p atomic.Pointer[zoomfilter.Frame]
}

func (s *frameStore) Store(f zoomfilter.Frame) {
	s.p.Store(&f)
}

// Load returns the latest frame, or false if nothing was rendered yet.
func (s *frameStore) Load() (zoomfilter.Frame, bool) {
	f := s.p.Load()
	if f == nil {
		return zoomfilter.Frame{}, false
	}
	return *f, true
}

// imageSource is a FrameSource backed by an immutable image.
type imageSource struct {
	img image.Image
}

func (s *imageSource) Dimensions() (uint32, uint32) {
	if s == nil || s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return uint32(b.Dx()), uint32(b.Dy())
}

// loadImageSource decodes a PNG, JPEG, BMP or WebP file.
func loadImageSource(path string) (*imageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode source image %s: %w", path, err)
	}
	return &imageSource{img: img}, nil
}

// checkerboardSource generates a w x h test pattern with the given cell size.
func checkerboardSource(w, h, cell int) *imageSource {
	if cell <= 0 {
		cell = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	light := color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	dark := color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if ((x/cell)+(y/cell))%2 == 0 {
				img.SetRGBA(x, y, light)
			} else {
				img.SetRGBA(x, y, dark)
			}
		}
	}
	return &imageSource{img: img}
}

// renderFrame draws src through the frame transform into a new image of the
// frame's size.
func renderFrame(src image.Image, f zoomfilter.Frame) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, int(f.Width), int(f.Height)))
	draw.ApproxBiLinear.Transform(dst, f.Transform, src, src.Bounds(), draw.Src, nil)
	return dst
}

// frameHandler serves the latest frame as PNG.
func frameHandler(src *imageSource, frames *frameStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		f, ok := frames.Load()
		if !ok || src == nil || src.img == nil {
			http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
			return
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, renderFrame(src.img, f)); err != nil {
			logger.Error("frame encode failed", "error", err)
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Zoom-Scale", fmt.Sprintf("%.3f", f.Scale))
		_, _ = w.Write(buf.Bytes())
	}
}
