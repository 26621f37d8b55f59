package cv

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/auto-clicker/internal/geometry"
)

// memorySource serves templates from memory
type memorySource struct {
	images map[string]*image.RGBA
	err    error
	calls  int
}

func (s *memorySource) Image(id string) (*image.RGBA, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	img, ok := s.images[id]
	if !ok {
		return nil, errors.New("unknown template")
	}
	return img, nil
}

// countingResizer resizes with nearest-neighbour sampling and records calls
type countingResizer struct {
	calls []image.Point
}

func (r *countingResizer) Resize(img *image.RGBA, width, height int) *image.RGBA {
	r.calls = append(r.calls, image.Point{X: width, Y: height})
	return nearest(img, width, height)
}

func nearest(img *image.RGBA, width, height int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.SetRGBA(x, y, img.RGBAAt(b.Min.X+x*b.Dx()/width, b.Min.Y+y*b.Dy()/height))
		}
	}
	return out
}

// pattern builds a non-periodic test image
func pattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x*7 + y*13) % 256),
				G: uint8((x*x + 3*y) % 256),
				B: uint8((x*y*5 + 40) % 256),
				A: 255,
			})
		}
	}
	return img
}

func flat(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{v, v, v, 255}}, image.Point{}, draw.Src)
	return img
}

func paste(dst, src *image.RGBA, at image.Point) {
	draw.Draw(dst, src.Bounds().Add(at), src, src.Bounds().Min, draw.Src)
}

func TestLocateFallsBackToLaterScale(t *testing.T) {
	base := pattern(20, 20)
	resizer := &countingResizer{}
	source := &memorySource{images: map[string]*image.RGBA{"ok": base}}

	matcher := NewMatcher(source, Options{
		Confidence: 0.9,
		Scales:     []float64{1.0, 0.5},
		Resizer:    resizer,
	})

	// Haystack smaller than the base template, so only 0.5 can fit
	haystack := flat(16, 16, 128)
	paste(haystack, nearest(base, 10, 10), image.Point{X: 3, Y: 4})

	result, err := matcher.Locate("ok", haystack)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 0.5, result.Scale)
	assert.Equal(t, geometry.Point{X: 8, Y: 9}, result.Center)
	assert.GreaterOrEqual(t, result.Score, 0.9)
	assert.Equal(t, []image.Point{{X: 10, Y: 10}}, resizer.calls)
}

func TestLocateReturnsEarliestListedScale(t *testing.T) {
	base := pattern(20, 20)

	haystack := flat(40, 40, 128)
	paste(haystack, base, image.Point{})
	paste(haystack, nearest(base, 10, 10), image.Point{X: 25, Y: 25})

	source := &memorySource{images: map[string]*image.RGBA{"ok": base}}

	full := NewMatcher(source, Options{Confidence: 0.9, Scales: []float64{1.0, 0.5}, Resizer: &countingResizer{}})
	result, err := full.Locate("ok", haystack)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1.0, result.Scale)
	assert.Equal(t, geometry.Point{X: 10, Y: 10}, result.Center)

	half := NewMatcher(source, Options{Confidence: 0.9, Scales: []float64{0.5, 1.0}, Resizer: &countingResizer{}})
	result, err = half.Locate("ok", haystack)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0.5, result.Scale)
	assert.Equal(t, geometry.Point{X: 30, Y: 30}, result.Center)
}

func TestScaledTemplatesAreResizedOnce(t *testing.T) {
	resizer := &countingResizer{}
	source := &memorySource{images: map[string]*image.RGBA{
		"a": pattern(12, 12),
		"b": pattern(8, 6),
	}}
	matcher := NewMatcher(source, Options{Confidence: 0.95, Scales: []float64{1.0, 0.75, 1.5}, Resizer: resizer})

	haystack := flat(30, 30, 10)
	for i := 0; i < 3; i++ {
		_, err := matcher.Locate("a", haystack)
		require.NoError(t, err)
		_, err = matcher.Locate("b", haystack)
		require.NoError(t, err)
	}

	// One resize per (template, non-unit scale)
	assert.Len(t, resizer.calls, 4)
	assert.Contains(t, resizer.calls, image.Point{X: 9, Y: 9})
	assert.Contains(t, resizer.calls, image.Point{X: 18, Y: 18})
	assert.Contains(t, resizer.calls, image.Point{X: 6, Y: 5})
	assert.Contains(t, resizer.calls, image.Point{X: 12, Y: 9})
}

func TestUnitScaleNeverResizes(t *testing.T) {
	resizer := &countingResizer{}
	base := pattern(6, 6)
	source := &memorySource{images: map[string]*image.RGBA{"ok": base}}
	matcher := NewMatcher(source, Options{Confidence: 0.9, Resizer: resizer})

	haystack := flat(20, 20, 0)
	paste(haystack, base, image.Point{X: 7, Y: 2})

	result, err := matcher.Locate("ok", haystack)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, geometry.Point{X: 10, Y: 5}, result.Center)
	assert.Empty(t, resizer.calls)
}

func TestLocateNotFoundIsNotAnError(t *testing.T) {
	source := &memorySource{images: map[string]*image.RGBA{"ok": pattern(8, 8)}}
	matcher := NewMatcher(source, Options{Confidence: 0.9})

	result, err := matcher.Locate("ok", flat(32, 32, 200))
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Template larger than the haystack
	result, err = matcher.Locate("ok", flat(4, 4, 200))
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestLocateEngineErrors(t *testing.T) {
	source := &memorySource{err: errors.New("failed to decode template")}
	matcher := NewMatcher(source, Options{Confidence: 0.9})

	_, err := matcher.Locate("broken", flat(10, 10, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMatchEngine))
	assert.Contains(t, err.Error(), "failed to decode template")

	_, err = matcher.Locate("broken", nil)
	assert.ErrorIs(t, err, ErrMatchEngine)
}

func TestLocateGrayscale(t *testing.T) {
	base := pattern(10, 10)
	source := &memorySource{images: map[string]*image.RGBA{"ok": base}}
	matcher := NewMatcher(source, Options{Confidence: 0.9, Grayscale: true})
	assert.True(t, matcher.Grayscale())

	haystack := flat(30, 20, 50)
	paste(haystack, base, image.Point{X: 12, Y: 6})

	result, err := matcher.Locate("ok", haystack)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, geometry.Point{X: 17, Y: 11}, result.Center)
}

func TestOptionNormalization(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
	assert.Equal(t, 0.85, ClampConfidence(0.85))

	assert.Equal(t, []float64{1.0}, NormalizeScales(nil))
	assert.Equal(t, []float64{1.0}, NormalizeScales([]float64{0, -1, math.NaN()}))
	assert.Equal(t, []float64{1.25, 1.0, 0.8}, NormalizeScales([]float64{1.25, 0, 1.0, 1.25, 0.8, 1.0}))

	matcher := NewMatcher(&memorySource{}, Options{Confidence: 3, Scales: []float64{-2}})
	assert.Equal(t, 1.0, matcher.Confidence())
	assert.Equal(t, []float64{1.0}, matcher.Scales())
}

func TestLanczosResizerSize(t *testing.T) {
	out := LanczosResizer{}.Resize(pattern(20, 10), 7, 3)
	assert.Equal(t, image.Rect(0, 0, 7, 3), out.Bounds())

	w, h := scaledSize(image.Rect(0, 0, 3, 1), 0.1)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	w, h = scaledSize(image.Rect(0, 0, 25, 15), 0.5)
	assert.Equal(t, 13, w)
	assert.Equal(t, 8, h)
}

func TestLocatePreparesEachHaystackOnce(t *testing.T) {
	source := &memorySource{images: map[string]*image.RGBA{
		"a": pattern(6, 6),
		"b": pattern(5, 7),
	}}
	matcher := NewMatcher(source, Options{Confidence: 0.9, Scales: []float64{1.0, 0.5}, Resizer: &countingResizer{}})

	first := flat(30, 30, 40)
	paste(first, pattern(5, 7), image.Point{X: 11, Y: 3})
	for _, id := range []string{"a", "b", "a"} {
		_, err := matcher.Locate(id, first)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, matcher.frame.gen)

	second := flat(30, 30, 40)
	paste(second, pattern(6, 6), image.Point{X: 2, Y: 20})
	result, err := matcher.Locate("a", second)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, matcher.frame.gen)
	assert.Equal(t, geometry.Point{X: 5, Y: 23}, result.Center)
}
