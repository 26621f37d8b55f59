package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"jordanella.com/auto-clicker/internal/geometry"
)

// ErrCaptureUnavailable is returned when no backend produced a usable frame
var ErrCaptureUnavailable = errors.New("screen capture unavailable")

// Backend grabs the desktop in one particular way
type Backend interface {
	Name() string
	Grab() (*image.RGBA, geometry.VirtualDesktopGeometry, error)
}

// CaptureResult is one desktop frame and the geometry it was taken under.
// Image bounds always start at (0,0); Geometry places it on the desktop.
type CaptureResult struct {
	Image    *image.RGBA
	Geometry geometry.VirtualDesktopGeometry
	Backend  string
}

// Chain tries backends in order and returns the first usable frame
type Chain []Backend

// NewDesktopCapture returns the platform's backend chain
func NewDesktopCapture() Chain {
	return Chain(defaultBackends())
}

// Names lists backend names in priority order
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, b := range c {
		names[i] = b.Name()
	}
	return names
}

// Capture grabs a fresh frame. A backend succeeds only when it returns a
// raster wider and taller than one pixel.
func (c Chain) Capture(ctx context.Context) (*CaptureResult, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", ErrCaptureUnavailable)
	}

	var failures []string
	for _, backend := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, geom, err := backend.Grab()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", backend.Name(), err))
			continue
		}
		if img == nil {
			failures = append(failures, fmt.Sprintf("%s: no image", backend.Name()))
			continue
		}

		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		if w <= 1 || h <= 1 {
			failures = append(failures, fmt.Sprintf("%s: unusable %dx%d raster", backend.Name(), w, h))
			continue
		}

		// Backends that cannot report extent get the raster size
		if geom.Width <= 0 || geom.Height <= 0 {
			geom.Width, geom.Height = w, h
		}

		return &CaptureResult{
			Image:    normalize(img),
			Geometry: geom,
			Backend:  backend.Name(),
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrCaptureUnavailable, strings.Join(failures, "; "))
}

// normalize moves the raster origin to (0,0)
func normalize(img *image.RGBA) *image.RGBA {
	if img.Bounds().Min == (image.Point{}) {
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
