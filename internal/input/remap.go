package input

import (
	"math"

	"jordanella.com/auto-clicker/internal/geometry"
)

// Remap projects p from the source frame into the target frame, axis by
// axis, so that the first and last pixel of each frame line up. Identical
// frames pass p through. An axis whose source extent is 1 or less is
// copied unchanged.
func Remap(p geometry.Point, source, target geometry.VirtualDesktopGeometry) geometry.Point {
	if source == target {
		return p
	}
	return geometry.Point{
		X: remapAxis(p.X, source.Left, source.Width, target.Left, target.Width),
		Y: remapAxis(p.Y, source.Top, source.Height, target.Top, target.Height),
	}
}

func remapAxis(c, srcOrigin, srcExtent, dstOrigin, dstExtent int) int {
	if srcExtent <= 1 {
		return c
	}
	fraction := float64(c-srcOrigin) / float64(srcExtent-1)
	return int(math.Round(float64(dstOrigin) + fraction*float64(dstExtent-1)))
}

// Normalize maps p into the 0..65535 absolute input range of geom
func Normalize(p geometry.Point, geom geometry.VirtualDesktopGeometry) (int32, int32) {
	return normalizeAxis(p.X, geom.Left, geom.Width), normalizeAxis(p.Y, geom.Top, geom.Height)
}

func normalizeAxis(c, origin, extent int) int32 {
	if extent <= 1 {
		return 0
	}
	v := math.Round(float64(c-origin) * 65535 / float64(extent-1))
	if v < 0 {
		v = 0
	}
	if v > 65535 {
		v = 65535
	}
	return int32(v)
}
