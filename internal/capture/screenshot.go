package capture

import (
	"errors"
	"image"

	"github.com/kbinani/screenshot"

	"jordanella.com/auto-clicker/internal/geometry"
)

// MonitorUnion captures the bounding box of every active display in
// one snapshot.
type MonitorUnion struct{}

func (MonitorUnion) Name() string { return "monitor-union" }

func (MonitorUnion) Grab() (*image.RGBA, geometry.VirtualDesktopGeometry, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, geometry.VirtualDesktopGeometry{}, errors.New("no active displays")
	}

	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, screenshot.GetDisplayBounds(i))
	}
	union := geometry.Union(bounds)
	if union.Degenerate() {
		return nil, union, errors.New("empty display bounds")
	}

	img, err := screenshot.CaptureRect(union.Rectangle())
	if err != nil {
		return nil, union, err
	}
	return img, union, nil
}

// PrimaryDisplay captures only display 0 and reports it at the origin.
type PrimaryDisplay struct{}

func (PrimaryDisplay) Name() string { return "primary-display" }

func (PrimaryDisplay) Grab() (*image.RGBA, geometry.VirtualDesktopGeometry, error) {
	if screenshot.NumActiveDisplays() <= 0 {
		return nil, geometry.VirtualDesktopGeometry{}, errors.New("no active displays")
	}

	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return nil, geometry.VirtualDesktopGeometry{}, err
	}
	b := img.Bounds()
	return img, geometry.VirtualDesktopGeometry{Width: b.Dx(), Height: b.Dy()}, nil
}
