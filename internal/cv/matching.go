package cv

import (
	"image"
	"math"
	"sort"
)

const (
	// Coarsest pyramid step per axis, and the fewest template pixels a
	// coarse level may keep along that axis.
	maxFactor     = 16
	minCoarseSide = 6

	// Coarse peaks carried into refinement
	maxCandidates = 32
)

// Box is a thresholded search hit in haystack coordinates
type Box struct {
	Rect  image.Rectangle
	Score float64
}

// Center returns the box centre, floored on each axis
func (b Box) Center() image.Point {
	return image.Point{
		X: b.Rect.Min.X + b.Rect.Dx()/2,
		Y: b.Rect.Min.Y + b.Rect.Dy()/2,
	}
}

// SearchConfig configures a single template search
type SearchConfig struct {
	Threshold float64 // 0.0-1.0, minimum score for a hit
	Grayscale bool    // compare luminance instead of RGB
}

// factor is a pyramid step: each level pixel sums an x*y block
type factor struct{ x, y int }

var unitFactor = factor{1, 1}

func (k factor) finer() factor {
	return factor{max(k.x/2, 1), max(k.y/2, 1)}
}

// pyramidFactor picks the coarsest power-of-two step that still leaves
// minCoarseSide samples of a template side
func pyramidFactor(side int) int {
	f := 1
	for f*2 <= maxFactor && side/(f*2) >= minCoarseSide {
		f *= 2
	}
	return f
}

// level is one resolution of an image with summed-area tables over it
type level struct {
	fx, fy   int
	w, h, ch int
	pix      []float32 // channel-interleaved block sums
	sum      []int64   // per-channel integral, (w+1)*(h+1)*ch
	sumSq    []int64   // integral of squares pooled across channels
	gen      int
}

func grow[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}

// loadRGBA extracts RGB or luminance samples at full resolution
func (l *level) loadRGBA(img *image.RGBA, gray bool) {
	b := img.Bounds()
	l.fx, l.fy = 1, 1
	l.w, l.h, l.ch = b.Dx(), b.Dy(), 3
	if gray {
		l.ch = 1
	}
	l.pix = grow(l.pix, l.w*l.h*l.ch)

	i := 0
	for y := 0; y < l.h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+l.w*4]
		for x := 0; x < l.w; x++ {
			r, g, bl := int(row[x*4]), int(row[x*4+1]), int(row[x*4+2])
			if gray {
				// Luminance formula
				l.pix[i] = float32((r*299 + g*587 + bl*114) / 1000)
				i++
				continue
			}
			l.pix[i], l.pix[i+1], l.pix[i+2] = float32(r), float32(g), float32(bl)
			i += 3
		}
	}
}

// downsample fills l with fx*fy block sums of src. Partial blocks at the
// right and bottom edges are dropped.
func (l *level) downsample(src *level, fx, fy int) {
	l.fx, l.fy, l.ch = fx, fy, src.ch
	l.w, l.h = src.w/fx, src.h/fy
	l.pix = grow(l.pix, l.w*l.h*l.ch)
	clear(l.pix)

	for y := 0; y < l.h*fy; y++ {
		dst := (y / fy) * l.w * l.ch
		srow := y * src.w * src.ch
		for x := 0; x < l.w*fx; x++ {
			d := dst + (x/fx)*l.ch
			s := srow + x*src.ch
			for c := 0; c < l.ch; c++ {
				l.pix[d+c] += src.pix[s+c]
			}
		}
	}
}

func (l *level) integrate() {
	stride := (l.w + 1) * l.ch
	sqStride := l.w + 1
	l.sum = grow(l.sum, stride*(l.h+1))
	l.sumSq = grow(l.sumSq, sqStride*(l.h+1))
	clear(l.sum[:stride])
	clear(l.sumSq[:sqStride])

	rowSum := make([]int64, l.ch)
	for y := 0; y < l.h; y++ {
		clear(rowSum)
		var rowSq int64
		base, prev := (y+1)*stride, y*stride
		clear(l.sum[base : base+l.ch])
		l.sumSq[(y+1)*sqStride] = 0

		for x := 0; x < l.w; x++ {
			p := (y*l.w + x) * l.ch
			for c := 0; c < l.ch; c++ {
				v := int64(l.pix[p+c])
				rowSum[c] += v
				rowSq += v * v
				idx := (x+1)*l.ch + c
				l.sum[base+idx] = l.sum[prev+idx] + rowSum[c]
			}
			sq := (y+1)*sqStride + x + 1
			l.sumSq[sq] = l.sumSq[sq-sqStride] + rowSq
		}
	}
}

// window fills sums with the per-channel sums of the w*h block at (x,y)
// and returns its pooled sum of squares
func (l *level) window(x, y, w, h int, sums []int64) int64 {
	stride := (l.w + 1) * l.ch
	a := y*stride + x*l.ch
	b := y*stride + (x+w)*l.ch
	c := (y+h)*stride + x*l.ch
	d := (y+h)*stride + (x+w)*l.ch
	for ch := 0; ch < l.ch; ch++ {
		sums[ch] = l.sum[d+ch] - l.sum[b+ch] - l.sum[c+ch] + l.sum[a+ch]
	}

	sq := l.w + 1
	return l.sumSq[(y+h)*sq+x+w] - l.sumSq[y*sq+x+w] - l.sumSq[(y+h)*sq+x] + l.sumSq[y*sq+x]
}

// needleLevel is a template at one pyramid step, centred per channel
type needleLevel struct {
	w, h, ch int
	centered []float64
	sums     []int64
	norm2    float64
	flat     bool
}

func newNeedleLevel(l *level) *needleLevel {
	nl := &needleLevel{
		w: l.w, h: l.h, ch: l.ch,
		centered: make([]float64, len(l.pix)),
		sums:     make([]int64, l.ch),
	}

	var sumSq int64
	for i, v := range l.pix {
		nl.sums[i%l.ch] += int64(v)
		sumSq += int64(v) * int64(v)
	}
	var s2 int64
	for _, s := range nl.sums {
		s2 += s * s
	}
	n := int64(l.w * l.h)
	nl.flat = n*sumSq == s2

	for i, v := range l.pix {
		c := i % l.ch
		d := float64(v) - float64(nl.sums[c])/float64(n)
		nl.centered[i] = d
		nl.norm2 += d * d
	}
	return nl
}

// needle is a prepared template with its pyramid levels built on demand
type needle struct {
	src    level
	levels map[factor]*needleLevel
}

func newNeedle(img *image.RGBA, gray bool) *needle {
	n := &needle{levels: make(map[factor]*needleLevel)}
	n.src.loadRGBA(img, gray)
	return n
}

func (n *needle) at(k factor) *needleLevel {
	if nl, ok := n.levels[k]; ok {
		return nl
	}
	src := &n.src
	if k != unitFactor {
		src = &level{}
		src.downsample(&n.src, k.x, k.y)
	}
	nl := newNeedleLevel(src)
	n.levels[k] = nl
	return nl
}

// frame is a prepared haystack. Coarse levels are derived lazily and
// keep their buffers across loads.
type frame struct {
	full   level
	coarse map[factor]*level
	gen    int
	scores []float64

	// multiply-adds spent on correlation since the frame was created
	products int64
}

func newFrame() *frame {
	return &frame{coarse: make(map[factor]*level)}
}

func (f *frame) load(img *image.RGBA, gray bool) {
	f.full.loadRGBA(img, gray)
	f.full.integrate()
	f.gen++
}

func (f *frame) at(k factor) *level {
	if k == unitFactor {
		return &f.full
	}
	l, ok := f.coarse[k]
	if !ok {
		l = &level{}
		f.coarse[k] = l
	}
	if l.gen != f.gen {
		l.downsample(&f.full, k.x, k.y)
		l.integrate()
		l.gen = f.gen
	}
	return l
}

type candidate struct {
	x, y  int
	score float64
}

// before orders by score, then row-major position
func (c candidate) before(o candidate) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	if c.y != o.y {
		return c.y < o.y
	}
	return c.x < o.x
}

// find locates nd in the frame with normalized cross-correlation. Small
// templates are searched exhaustively. Larger ones are scored on a
// coarse level first and only the best local peaks are refined toward
// full resolution.
func (f *frame) find(nd *needle, threshold float64) (candidate, bool) {
	nw, nh := nd.src.w, nd.src.h
	if nw <= 0 || nh <= 0 || nw > f.full.w || nh > f.full.h || nd.src.ch != f.full.ch {
		return candidate{}, false
	}

	k := factor{pyramidFactor(nw), pyramidFactor(nh)}
	for k != unitFactor && nd.at(k).flat {
		k = k.finer()
	}

	var cands []candidate
	if k == unitFactor {
		cands = []candidate{f.exhaustive(nd)}
	} else {
		cands = f.peaks(k, nd)
		for k != unitFactor {
			next := k.finer()
			cands = f.refine(k, next, nd, cands)
			k = next
		}
	}
	if len(cands) == 0 {
		return candidate{}, false
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if c.before(best) {
			best = c
		}
	}
	if best.score < threshold {
		return candidate{}, false
	}
	return best, true
}

// exhaustive scores every full-resolution placement; ties keep the first
// in row-major order
func (f *frame) exhaustive(nd *needle) candidate {
	l, nl := &f.full, nd.at(unitFactor)
	sums := make([]int64, l.ch)

	best := candidate{score: -1}
	for y := 0; y+nl.h <= l.h; y++ {
		for x := 0; x+nl.w <= l.w; x++ {
			if s := f.scoreAt(l, nl, x, y, sums); s > best.score {
				best = candidate{x: x, y: y, score: s}
			}
		}
	}
	return best
}

// peaks scores every placement on level k and returns its strongest
// local maxima
func (f *frame) peaks(k factor, nd *needle) []candidate {
	l, nl := f.at(k), nd.at(k)
	cols, rows := l.w-nl.w+1, l.h-nl.h+1
	f.scores = grow(f.scores, cols*rows)
	sums := make([]int64, l.ch)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			f.scores[y*cols+x] = f.scoreAt(l, nl, x, y, sums)
		}
	}

	var out []candidate
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if s := f.scores[y*cols+x]; f.isPeak(x, y, cols, rows, s) {
				out = append(out, candidate{x: x, y: y, score: s})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

func (f *frame) isPeak(x, y, cols, rows int, s float64) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= cols || ny >= rows {
				continue
			}
			if f.scores[ny*cols+nx] > s {
				return false
			}
		}
	}
	return true
}

// refine moves each candidate from level `from` to the finer level `to`,
// keeping the best placement in a window around its projected position
func (f *frame) refine(from, to factor, nd *needle, cands []candidate) []candidate {
	l, nl := f.at(to), nd.at(to)
	rx, ry := from.x/to.x, from.y/to.y
	maxX, maxY := l.w-nl.w, l.h-nl.h
	sums := make([]int64, l.ch)

	seen := make(map[image.Point]bool, len(cands))
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		best := candidate{score: -1}
		for y := max(c.y*ry-ry, 0); y <= min(c.y*ry+ry, maxY); y++ {
			for x := max(c.x*rx-rx, 0); x <= min(c.x*rx+rx, maxX); x++ {
				if s := f.scoreAt(l, nl, x, y, sums); s > best.score {
					best = candidate{x: x, y: y, score: s}
				}
			}
		}
		if best.score < 0 {
			continue
		}

		p := image.Point{X: best.x, Y: best.y}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, best)
	}
	return out
}

// scoreAt is the correlation coefficient of the placement at (x,y) with
// each channel centred on its own mean, mapped into [0,1]. Negative
// correlation scores 0. Two flat patches score by closeness of their
// channel means.
func (f *frame) scoreAt(l *level, nl *needleLevel, x, y int, sums []int64) float64 {
	n := int64(nl.w * nl.h)
	sumSq := l.window(x, y, nl.w, nl.h, sums)

	var s2 int64
	for _, s := range sums {
		s2 += s * s
	}
	varH := n*sumSq - s2

	if nl.flat {
		if varH != 0 {
			return 0
		}
		var diff float64
		for c, s := range sums {
			diff += math.Abs(float64(s - nl.sums[c]))
		}
		return 1 - diff/(float64(n*int64(l.ch*l.fx*l.fy))*255)
	}
	if varH == 0 {
		return 0
	}

	corr := f.dot(l, nl, x, y) / math.Sqrt(float64(varH)/float64(n)*nl.norm2)
	switch {
	case corr < 0:
		return 0
	case corr > 1:
		return 1
	}
	return corr
}

// dot correlates the centred template with the raw window. The window
// mean needs no subtraction since each centred channel sums to zero.
func (f *frame) dot(l *level, nl *needleLevel, x, y int) float64 {
	rowLen := nl.w * nl.ch
	var acc float64
	for ny := 0; ny < nl.h; ny++ {
		off := ((y+ny)*l.w + x) * l.ch
		hrow := l.pix[off : off+rowLen]
		nrow := nl.centered[ny*rowLen : (ny+1)*rowLen]
		for i, v := range nrow {
			acc += float64(hrow[i]) * v
		}
	}
	f.products += int64(rowLen * nl.h)
	return acc
}

// FindTemplate searches the haystack with normalized cross-correlation.
// The best placement wins if its score reaches the threshold; ties keep
// the first placement in row-major order. Returns nil when nothing
// qualifies or the needle does not fit.
func FindTemplate(haystack, needleImg *image.RGBA, config SearchConfig) *Box {
	fr := newFrame()
	fr.load(haystack, config.Grayscale)

	nd := newNeedle(needleImg, config.Grayscale)
	best, ok := fr.find(nd, config.Threshold)
	if !ok {
		return nil
	}

	origin := haystack.Bounds().Min.Add(image.Point{X: best.x, Y: best.y})
	return &Box{
		Rect:  image.Rectangle{Min: origin, Max: origin.Add(image.Point{X: nd.src.w, Y: nd.src.h})},
		Score: best.score,
	}
}
