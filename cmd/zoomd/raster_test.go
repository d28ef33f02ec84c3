package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"zoomfilter"
)

func testFrame(w, h uint32, scale, cx, cy float64) zoomfilter.Frame {
	return zoomfilter.Frame{
		Width:     w,
		Height:    h,
		Scale:     scale,
		CenterX:   cx,
		CenterY:   cy,
		Transform: zoomfilter.ZoomTransform(scale, cx, cy),
	}
}

func TestCheckerboardSource(t *testing.T) {
	src := checkerboardSource(128, 64, 32)
	if w, h := src.Dimensions(); w != 128 || h != 64 {
		t.Fatalf("expected 128x64, got %dx%d", w, h)
	}

	a := src.img.At(0, 0)
	b := src.img.At(32, 0)
	c := src.img.At(32, 32)
	if a == b {
		t.Fatalf("expected adjacent cells to differ")
	}
	if a != c {
		t.Fatalf("expected diagonal cells to match")
	}
}

func TestImageSource_NilIsEmpty(t *testing.T) {
	var src *imageSource
	if w, h := src.Dimensions(); w != 0 || h != 0 {
		t.Fatalf("expected 0x0, got %dx%d", w, h)
	}
}

func TestRenderFrame_IdentityAtScaleOne(t *testing.T) {
	src := checkerboardSource(64, 64, 16)
	out := renderFrame(src.img, testFrame(64, 64, 1, 32, 32))

	for _, p := range []image.Point{{4, 4}, {20, 4}, {40, 40}} {
		want := color.RGBAModel.Convert(src.img.At(p.X, p.Y))
		if got := out.At(p.X, p.Y); got != want {
			t.Fatalf("pixel %v: expected %v, got %v", p, want, got)
		}
	}
}

func TestRenderFrame_ZoomMagnifiesAroundCentre(t *testing.T) {
	// Left half dark, right half light.
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	dark := color.RGBA{A: 0xff}
	light := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				img.SetRGBA(x, y, dark)
			} else {
				img.SetRGBA(x, y, light)
			}
		}
	}

	// Scale 4 around (45,50): output x shows source x 45+(x-45)/4.
	out := renderFrame(img, testFrame(100, 100, 4, 45, 50))

	if got := out.RGBAAt(40, 50); got != dark {
		t.Fatalf("expected dark at x=40 (source x=43.75), got %v", got)
	}
	if got := out.RGBAAt(80, 50); got != light {
		t.Fatalf("expected light at x=80 (source x=53.75), got %v", got)
	}
}

func TestLoadImageSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 30, 20))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := loadImageSource(path)
	if err != nil {
		t.Fatalf("loadImageSource: %v", err)
	}
	if w, h := src.Dimensions(); w != 30 || h != 20 {
		t.Fatalf("expected 30x20, got %dx%d", w, h)
	}

	if _, err := loadImageSource(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadImageSource(bad); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFrameHandler(t *testing.T) {
	src := checkerboardSource(40, 30, 10)
	frames := &frameStore{}
	h := frameHandler(src, frames, discardLogger())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/frame.png", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first frame, got %d", rec.Code)
	}

	frames.Store(testFrame(40, 30, 2, 20, 15))

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/frame.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if s := rec.Header().Get("X-Zoom-Scale"); s != "2.000" {
		t.Fatalf("expected X-Zoom-Scale 2.000, got %q", s)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("expected 40x30 frame, got %v", b)
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/frame.png", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
