package geometry

import (
	"fmt"
	"image"
)

// Point is a pixel coordinate in some desktop frame. Coordinates can be
// negative when a monitor sits left of or above the primary one.
type Point struct {
	X, Y int
}

// String returns "(x,y)"
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Add offsets a point by another point
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// VirtualDesktopGeometry describes a desktop region by origin and extent.
type VirtualDesktopGeometry struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// FromRectangle converts an image.Rectangle to a geometry
func FromRectangle(r image.Rectangle) VirtualDesktopGeometry {
	return VirtualDesktopGeometry{
		Left:   r.Min.X,
		Top:    r.Min.Y,
		Width:  r.Dx(),
		Height: r.Dy(),
	}
}

// Rectangle returns the geometry as an image.Rectangle
func (g VirtualDesktopGeometry) Rectangle() image.Rectangle {
	return image.Rect(g.Left, g.Top, g.Left+g.Width, g.Top+g.Height)
}

// Origin returns the top-left corner
func (g VirtualDesktopGeometry) Origin() Point {
	return Point{X: g.Left, Y: g.Top}
}

// Right returns the last addressable column
func (g VirtualDesktopGeometry) Right() int {
	return g.Left + g.Width - 1
}

// Bottom returns the last addressable row
func (g VirtualDesktopGeometry) Bottom() int {
	return g.Top + g.Height - 1
}

// Degenerate reports whether the geometry is too small to map coordinates into.
func (g VirtualDesktopGeometry) Degenerate() bool {
	return g.Width <= 1 || g.Height <= 1
}

// Contains checks if a point is within the geometry (edges inclusive)
func (g VirtualDesktopGeometry) Contains(p Point) bool {
	return p.X >= g.Left && p.X <= g.Right() && p.Y >= g.Top && p.Y <= g.Bottom()
}

// Clamp pulls a point inside [origin, origin+extent-1] on each axis.
func (g VirtualDesktopGeometry) Clamp(p Point) Point {
	return Point{
		X: clampInt(p.X, g.Left, g.Right()),
		Y: clampInt(p.Y, g.Top, g.Bottom()),
	}
}

// String returns a compact representation used in logs
func (g VirtualDesktopGeometry) String() string {
	return fmt.Sprintf("{left=%d top=%d width=%d height=%d}", g.Left, g.Top, g.Width, g.Height)
}

// Union returns the smallest geometry covering every rectangle. An empty
// list yields the zero geometry.
func Union(rects []image.Rectangle) VirtualDesktopGeometry {
	var all image.Rectangle
	for _, r := range rects {
		all = all.Union(r)
	}
	return FromRectangle(all)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
