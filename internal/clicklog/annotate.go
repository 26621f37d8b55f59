package clicklog

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"jordanella.com/auto-clicker/internal/geometry"
)

var (
	markerColor = color.RGBA{R: 255, A: 255}
	labelColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelBox    = color.RGBA{A: 255}
)

const (
	markerRadius = 18
	markerWidth  = 3
	borderWidth  = 6
	labelPad     = 6
	maxNameLen   = 80
)

// ClickInfo describes one click to annotate
type ClickInfo struct {
	Target string
	Screen geometry.Point // desktop coordinates of the click
	Scale  float64        // matched scale, 0 when unknown
}

// Annotate returns a copy of frame with the click marked. Clicks outside
// the frame get a thick border instead of a crosshair.
func Annotate(frame *image.RGBA, geom geometry.VirtualDesktopGeometry, info ClickInfo) *image.RGBA {
	b := frame.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), frame, b.Min, draw.Src)

	local := image.Point{X: info.Screen.X - geom.Left, Y: info.Screen.Y - geom.Top}
	inside := local.In(img.Bounds())

	if inside {
		drawRing(img, local, markerRadius, markerWidth)
		fillRect(img, image.Rect(local.X-2*markerRadius, local.Y-1, local.X+2*markerRadius+1, local.Y+markerWidth-1), markerColor)
		fillRect(img, image.Rect(local.X-1, local.Y-2*markerRadius, local.X+markerWidth-1, local.Y+2*markerRadius+1), markerColor)
	} else {
		drawBorder(img, img.Bounds().Inset(2), borderWidth)
	}

	drawLabel(img, Label(info, geom, local, inside))
	return img
}

// Label is the text stamped on an annotated screenshot
func Label(info ClickInfo, geom geometry.VirtualDesktopGeometry, local image.Point, inside bool) string {
	label := fmt.Sprintf("target=%s  screen=(%d,%d)  img=(%d,%d)  vd_left_top=(%d,%d)",
		info.Target, info.Screen.X, info.Screen.Y, local.X, local.Y, geom.Left, geom.Top)
	if info.Scale > 0 {
		label += "  scale=" + formatScale(info.Scale)
	}
	if !inside {
		label += "  OUT_OF_BOUNDS"
	}
	return label
}

// FileName builds "<YYYYMMDD-HHMMSS>-<ms>_<target>[_s<scale>].png"
func FileName(now time.Time, target string, scale float64) string {
	scalePart := ""
	if scale > 0 && scale != 1.0 {
		scalePart = "_s" + strings.ReplaceAll(fmt.Sprintf("%.3f", scale), ".", "p")
	}
	return fmt.Sprintf("%s-%03d_%s%s.png", now.Format("20060102-150405"), now.Nanosecond()/int(time.Millisecond), SafeName(target), scalePart)
}

// SafeName keeps letters, digits, '-', '_' and '.', replaces everything
// else with '_' and truncates to 80 characters.
func SafeName(s string) string {
	var sb strings.Builder
	n := 0
	for _, r := range s {
		if n == maxNameLen {
			break
		}
		if isAlnum(r) || r == '-' || r == '_' || r == '.' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
		n++
	}
	if sb.Len() == 0 {
		return "target"
	}
	return sb.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func formatScale(s float64) string {
	if s == math.Trunc(s) {
		return strconv.FormatFloat(s, 'f', 1, 64)
	}
	return strconv.FormatFloat(s, 'f', -1, 64)
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func drawBorder(img *image.RGBA, r image.Rectangle, width int) {
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), markerColor)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), markerColor)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), markerColor)
	fillRect(img, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), markerColor)
}

// drawRing paints pixels whose distance from c is within width of radius
func drawRing(img *image.RGBA, c image.Point, radius, width int) {
	outer := float64(radius)
	inner := float64(radius - width)
	for y := c.Y - radius; y <= c.Y+radius; y++ {
		for x := c.X - radius; x <= c.X+radius; x++ {
			d := math.Hypot(float64(x-c.X), float64(y-c.Y))
			if d <= outer && d > inner && (image.Point{X: x, Y: y}).In(img.Bounds()) {
				img.SetRGBA(x, y, markerColor)
			}
		}
	}
}

func drawLabel(img *image.RGBA, label string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(10, 10+face.Ascent),
	}

	width := d.MeasureString(label).Ceil()
	box := image.Rect(10-labelPad, 10-labelPad, 10+width+labelPad, 10+face.Height+labelPad)
	fillRect(img, box, labelBox)
	d.DrawString(label)
}
