package capture

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/auto-clicker/internal/geometry"
)

type fakeBackend struct {
	name  string
	img   *image.RGBA
	geom  geometry.VirtualDesktopGeometry
	err   error
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Grab() (*image.RGBA, geometry.VirtualDesktopGeometry, error) {
	f.calls++
	return f.img, f.geom, f.err
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	first := &fakeBackend{name: "union", err: errors.New("not supported")}
	second := &fakeBackend{
		name: "virtual",
		img:  image.NewRGBA(image.Rect(0, 0, 3840, 1080)),
		geom: geometry.VirtualDesktopGeometry{Left: -1920, Top: 0, Width: 3840, Height: 1080},
	}
	third := &fakeBackend{name: "primary", img: image.NewRGBA(image.Rect(0, 0, 1920, 1080))}

	result, err := Chain{first, second, third}.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "virtual", result.Backend)
	assert.Equal(t, -1920, result.Geometry.Left)
	assert.Equal(t, 3840, result.Image.Bounds().Dx())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
}

func TestChainRejectsTinyRasters(t *testing.T) {
	tiny := &fakeBackend{name: "tiny", img: image.NewRGBA(image.Rect(0, 0, 1, 1))}
	empty := &fakeBackend{name: "empty"}
	good := &fakeBackend{name: "primary", img: image.NewRGBA(image.Rect(0, 0, 800, 600))}

	result, err := Chain{tiny, empty, good}.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "primary", result.Backend)
	assert.Equal(t, geometry.VirtualDesktopGeometry{Width: 800, Height: 600}, result.Geometry)
}

func TestChainAllFail(t *testing.T) {
	chain := Chain{
		&fakeBackend{name: "union", err: errors.New("no displays")},
		&fakeBackend{name: "primary", img: image.NewRGBA(image.Rect(0, 0, 1, 600))},
	}

	_, err := chain.Capture(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCaptureUnavailable))
	assert.Contains(t, err.Error(), "union: no displays")
	assert.Contains(t, err.Error(), "primary: unusable 1x600 raster")

	_, err = Chain{}.Capture(context.Background())
	assert.ErrorIs(t, err, ErrCaptureUnavailable)
}

func TestChainNormalizesImageOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(-100, -50, 100, 50))
	b := &fakeBackend{
		name: "offset",
		img:  img,
		geom: geometry.VirtualDesktopGeometry{Left: -100, Top: -50, Width: 200, Height: 100},
	}

	result, err := Chain{b}.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), result.Image.Bounds())
	assert.Equal(t, -100, result.Geometry.Left)
}

func TestChainHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &fakeBackend{name: "primary", img: image.NewRGBA(image.Rect(0, 0, 10, 10))}
	_, err := Chain{b}.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.calls)
}

func TestDefaultChainOrder(t *testing.T) {
	names := NewDesktopCapture().Names()
	require.NotEmpty(t, names)
	assert.Equal(t, "monitor-union", names[0])
	assert.Equal(t, "primary-display", names[len(names)-1])
}
