package cv

import (
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// Resizer scales a template raster to an exact size
type Resizer interface {
	Resize(img *image.RGBA, width, height int) *image.RGBA
}

// LanczosResizer resamples with a Lanczos3 kernel
type LanczosResizer struct{}

// Resize implements Resizer
func (LanczosResizer) Resize(img *image.RGBA, width, height int) *image.RGBA {
	out := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	return toRGBA(out)
}

// scaledSize applies scale to both axes, rounding to the nearest pixel
// with a floor of 1
func scaledSize(bounds image.Rectangle, scale float64) (int, int) {
	w := int(math.Round(float64(bounds.Dx()) * scale))
	h := int(math.Round(float64(bounds.Dy()) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// toRGBA converts any image to an RGBA raster anchored at (0,0)
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
