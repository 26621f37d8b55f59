package cv

import (
	"errors"
	"fmt"
	"image"
	"math"

	"jordanella.com/auto-clicker/internal/geometry"
)

// ErrMatchEngine marks a search that could not run, such as an
// unreadable or corrupt template. Not finding a template is not an error.
var ErrMatchEngine = errors.New("match engine failure")

// TemplateSource provides decoded base images by template id.
// Defined here to avoid import cycles with pkg/templates.
type TemplateSource interface {
	Image(id string) (*image.RGBA, error)
}

// MatchResult is a hit in haystack pixel coordinates
type MatchResult struct {
	Center geometry.Point
	Scale  float64
	Score  float64
}

// Options configures a Matcher
type Options struct {
	Confidence float64 // clamped to [0,1]
	Grayscale  bool
	Scales     []float64 // tried in order; defaults to [1.0]
	Resizer    Resizer   // defaults to LanczosResizer
}

type scaleKey struct {
	TemplateID string
	Scale      float64
}

// Matcher locates templates at a fixed list of scales. Resized
// templates are cached per (template, scale) for the matcher's lifetime,
// and the last haystack is prepared once for every template searched in it.
// Not safe for concurrent use.
type Matcher struct {
	source     TemplateSource
	confidence float64
	grayscale  bool
	scales     []float64
	resizer    Resizer

	scaled   map[scaleKey]*needle
	frame    *frame
	frameSrc *image.RGBA
}

// NewMatcher creates a matcher over source
func NewMatcher(source TemplateSource, opts Options) *Matcher {
	resizer := opts.Resizer
	if resizer == nil {
		resizer = LanczosResizer{}
	}

	return &Matcher{
		source:     source,
		confidence: ClampConfidence(opts.Confidence),
		grayscale:  opts.Grayscale,
		scales:     NormalizeScales(opts.Scales),
		resizer:    resizer,
		scaled:     make(map[scaleKey]*needle),
		frame:      newFrame(),
	}
}

// Confidence returns the effective threshold
func (m *Matcher) Confidence() float64 {
	return m.confidence
}

// Scales returns the effective scale list
func (m *Matcher) Scales() []float64 {
	out := make([]float64, len(m.scales))
	copy(out, m.scales)
	return out
}

// Grayscale reports whether matching runs on luminance
func (m *Matcher) Grayscale() bool {
	return m.grayscale
}

// Locate searches haystack for the template at each configured scale in
// order and returns the first hit. A nil result with a nil error means
// the template is not on screen. A haystack must not be modified once
// passed in; it is recognised by identity on the next call.
func (m *Matcher) Locate(templateID string, haystack *image.RGBA) (*MatchResult, error) {
	if haystack == nil {
		return nil, fmt.Errorf("%w: no haystack image", ErrMatchEngine)
	}

	base, err := m.source.Image(templateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatchEngine, err)
	}

	if m.frameSrc != haystack {
		m.frame.load(haystack, m.grayscale)
		m.frameSrc = haystack
	}

	for _, scale := range m.scales {
		nd := m.scaledTemplate(templateID, base, scale)

		hit, ok := m.frame.find(nd, m.confidence)
		if !ok {
			continue
		}

		// Relative to the haystack origin
		return &MatchResult{
			Center: geometry.Point{X: hit.x + nd.src.w/2, Y: hit.y + nd.src.h/2},
			Scale:  scale,
			Score:  hit.score,
		}, nil
	}

	return nil, nil
}

// scaledTemplate returns the cached prepared template, resizing on first use
func (m *Matcher) scaledTemplate(id string, base *image.RGBA, scale float64) *needle {
	key := scaleKey{TemplateID: id, Scale: scale}
	if nd, ok := m.scaled[key]; ok {
		return nd
	}

	img := base
	if scale != 1.0 {
		w, h := scaledSize(base.Bounds(), scale)
		img = m.resizer.Resize(base, w, h)
	}
	nd := newNeedle(img, m.grayscale)
	m.scaled[key] = nd
	return nd
}

// ClampConfidence pulls c into [0,1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// NormalizeScales drops non-positive, NaN and infinite values and
// duplicates, keeping first-seen order. Empty input yields [1.0].
func NormalizeScales(scales []float64) []float64 {
	seen := make(map[float64]bool, len(scales))
	out := make([]float64, 0, len(scales))
	for _, s := range scales {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return []float64{1.0}
	}
	return out
}
