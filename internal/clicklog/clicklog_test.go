package clicklog

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/auto-clicker/internal/events"
	"jordanella.com/auto-clicker/internal/geometry"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "ok_button.png", SafeName("ok_button.png"))
	assert.Equal(t, "a_b_c", SafeName("a b/c"))
	assert.Equal(t, "target", SafeName(""))
	assert.Len(t, SafeName(strings.Repeat("x", 200)), 80)
}

func TestFileName(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 89*int(time.Millisecond), time.UTC)

	assert.Equal(t, "20260304-050607-089_ok.png.png", FileName(now, "ok.png", 1.0))
	assert.Equal(t, "20260304-050607-089_ok_s0p500.png", FileName(now, "ok", 0.5))
	assert.Equal(t, "20260304-050607-089_target.png", FileName(now, "", 0))
}

func TestLabel(t *testing.T) {
	geom := geometry.VirtualDesktopGeometry{Left: -1920, Top: 0, Width: 3840, Height: 1080}
	info := ClickInfo{Target: "ok", Screen: geometry.Point{X: 10, Y: 20}, Scale: 1.0}

	label := Label(info, geom, image.Point{X: 1930, Y: 20}, true)
	assert.Equal(t, "target=ok  screen=(10,20)  img=(1930,20)  vd_left_top=(-1920,0)  scale=1.0", label)

	info.Scale = 0.75
	label = Label(info, geom, image.Point{X: 1930, Y: 20}, false)
	assert.True(t, strings.HasSuffix(label, "scale=0.75  OUT_OF_BOUNDS"))
}

func TestAnnotateMarksClickWithoutTouchingFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 200, 120))
	geom := geometry.VirtualDesktopGeometry{Left: 100, Top: 50, Width: 200, Height: 120}

	out := Annotate(frame, geom, ClickInfo{Target: "ok", Screen: geometry.Point{X: 200, Y: 110}})

	// Crosshair centre at image (100,60)
	assert.Equal(t, markerColor, out.RGBAAt(100, 60))
	assert.Equal(t, markerColor, out.RGBAAt(100+2*markerRadius, 60))
	assert.Equal(t, color.RGBA{}, frame.RGBAAt(100, 60))
	// Far corner stays untouched
	assert.Equal(t, color.RGBA{}, out.RGBAAt(199, 119))
}

func TestAnnotateOutOfBoundsDrawsBorder(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 200, 120))
	geom := geometry.VirtualDesktopGeometry{Width: 200, Height: 120}

	out := Annotate(frame, geom, ClickInfo{Target: "ok", Screen: geometry.Point{X: 500, Y: 10}})

	assert.Equal(t, markerColor, out.RGBAAt(199-3, 60))
	assert.Equal(t, markerColor, out.RGBAAt(100, 119-3))
}

func TestRecorderSavesOnClickEvent(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewEventBus(4)

	recorder, err := NewRecorder(bus, dir, nil)
	require.NoError(t, err)
	recorder.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))
	bus.Publish(events.NewTargetClickedEvent(events.ClickDetails{
		Target:        "accept",
		Scale:         0.5,
		ScreenX:       30,
		ScreenY:       20,
		DesktopWidth:  64,
		DesktopHeight: 48,
		Frame:         frame,
	}))
	bus.Stop()
	recorder.Close()

	path := filepath.Join(dir, "20260102-030405-000_accept_s0p500.png")
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
}
