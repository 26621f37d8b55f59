package cv

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestFindTemplateExactMatch(t *testing.T) {
	needle := pattern(5, 4)
	haystack := flat(40, 30, 90)
	paste(haystack, needle, image.Point{X: 21, Y: 13})

	box := FindTemplate(haystack, needle, SearchConfig{Threshold: 0.99})
	if box == nil {
		t.Fatal("Expected a match")
	}
	if box.Rect != image.Rect(21, 13, 26, 17) {
		t.Errorf("Expected rect (21,13)-(26,17), got %v", box.Rect)
	}
	if c := box.Center(); c != (image.Point{X: 23, Y: 15}) {
		t.Errorf("Expected floored centre (23,15), got %v", c)
	}
}

func TestFindTemplateTiesPickFirstRowMajor(t *testing.T) {
	needle := pattern(4, 4)
	haystack := flat(30, 20, 0)
	paste(haystack, needle, image.Point{X: 20, Y: 2})
	paste(haystack, needle, image.Point{X: 3, Y: 9})

	box := FindTemplate(haystack, needle, SearchConfig{Threshold: 0.9})
	if box == nil {
		t.Fatal("Expected a match")
	}
	if box.Rect.Min != (image.Point{X: 20, Y: 2}) {
		t.Errorf("Expected first placement in row-major order, got %v", box.Rect.Min)
	}
}

func TestFindTemplateBelowThreshold(t *testing.T) {
	needle := pattern(6, 6)
	if box := FindTemplate(flat(20, 20, 30), needle, SearchConfig{Threshold: 0.5}); box != nil {
		t.Errorf("Expected no match on a flat haystack, got %+v", box)
	}
	if box := FindTemplate(flat(5, 20, 30), needle, SearchConfig{Threshold: 0}); box != nil {
		t.Errorf("Expected no match for oversized needle, got %+v", box)
	}
}

func TestFindTemplateFlatNeedle(t *testing.T) {
	needle := flat(3, 3, 200)
	haystack := pattern(20, 20)
	paste(haystack, needle, image.Point{X: 10, Y: 10})

	box := FindTemplate(haystack, needle, SearchConfig{Threshold: 0.99})
	if box == nil || box.Rect.Min != (image.Point{X: 10, Y: 10}) {
		t.Errorf("Expected flat needle at (10,10), got %+v", box)
	}
}

func TestFindTemplateOffsetHaystack(t *testing.T) {
	needle := pattern(4, 4)
	haystack := flat(20, 20, 0)
	paste(haystack, needle, image.Point{X: 6, Y: 6})

	sub := haystack.SubImage(image.Rect(5, 5, 15, 15)).(*image.RGBA)
	box := FindTemplate(sub, needle, SearchConfig{Threshold: 0.99})
	if box == nil || box.Rect.Min != (image.Point{X: 6, Y: 6}) {
		t.Errorf("Expected match at (6,6) in haystack coordinates, got %+v", box)
	}
}

// backdrop builds a smooth desktop-like background
func backdrop(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(128 + 70*math.Sin(fx*0.013+fy*0.021) + 40*math.Sin(fx*0.047-fy*0.009)),
				G: uint8(128 + 70*math.Cos(fx*0.017-fy*0.011) + 40*math.Sin(fy*0.05+fx*0.002)),
				B: uint8(128 + 100*math.Sin((fx+2*fy)*0.007)),
				A: 255,
			})
		}
	}
	return img
}

// button builds a framed widget with a gradient face and a dark label
func button(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: uint8(30 + x*2), G: uint8(60 + y*4), B: uint8(200 - x), A: 255}
			switch {
			case x < 6 || x >= w-6 || y < 5 || y >= h-5:
				c = color.RGBA{R: 230, G: 200, B: 40, A: 255}
			case x >= w/3 && x < 2*w/3 && y >= h/3 && y < 2*h/3:
				c = color.RGBA{R: 20, G: 20, B: 20, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestFindTemplateFullHDBoundedCost(t *testing.T) {
	haystack := backdrop(1920, 1080)
	needle := button(80, 30)
	paste(haystack, needle, image.Point{X: 1203, Y: 641})

	for _, gray := range []bool{false, true} {
		fr := newFrame()
		fr.load(haystack, gray)
		nd := newNeedle(needle, gray)

		hit, ok := fr.find(nd, 0.95)
		if !ok {
			t.Fatalf("gray=%v: expected a match", gray)
		}
		if hit.x != 1203 || hit.y != 641 {
			t.Errorf("gray=%v: expected match at (1203,641), got (%d,%d)", gray, hit.x, hit.y)
		}
		if hit.score < 0.999 {
			t.Errorf("gray=%v: expected near-perfect score, got %f", gray, hit.score)
		}

		exhaustive := int64(1920-80+1) * int64(1080-30+1) * int64(80*30*nd.src.ch)
		if fr.products*100 > exhaustive {
			t.Errorf("gray=%v: correlation cost %d exceeds 1%% of an exhaustive search (%d)", gray, fr.products, exhaustive)
		}
	}
}

func TestFindTemplatePyramidTiesPickFirstRowMajor(t *testing.T) {
	haystack := backdrop(400, 300)
	needle := button(64, 24)
	paste(haystack, needle, image.Point{X: 300, Y: 41})
	paste(haystack, needle, image.Point{X: 53, Y: 203})

	box := FindTemplate(haystack, needle, SearchConfig{Threshold: 0.99})
	if box == nil {
		t.Fatal("Expected a match")
	}
	if box.Rect.Min != (image.Point{X: 300, Y: 41}) {
		t.Errorf("Expected first placement in row-major order, got %v", box.Rect.Min)
	}
}

func TestFindTemplateChannelTintKeepsScore(t *testing.T) {
	needle := pattern(8, 8)
	tinted := image.NewRGBA(needle.Bounds())
	copy(tinted.Pix, needle.Pix)
	for i := 0; i < len(tinted.Pix); i += 4 {
		tinted.Pix[i] += 100
	}

	box := FindTemplate(tinted, needle, SearchConfig{Threshold: 0.99})
	if box == nil {
		t.Fatal("Expected a match under a uniform red tint")
	}
	if math.Abs(box.Score-1) > 1e-9 {
		t.Errorf("Expected score 1 under a uniform red tint, got %f", box.Score)
	}
}

func TestFindTemplateFlatCoarseNeedleFallsBack(t *testing.T) {
	// Detail finer than one coarse block averages out to a flat coarse level
	needle := flat(24, 24, 100)
	for y := 0; y < 24; y += 4 {
		for x := 0; x < 24; x += 4 {
			needle.SetRGBA(x, y, color.RGBA{R: 180, G: 180, B: 180, A: 255})
			needle.SetRGBA(x+1, y+1, color.RGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}
	haystack := backdrop(60, 50)
	paste(haystack, needle, image.Point{X: 17, Y: 9})

	box := FindTemplate(haystack, needle, SearchConfig{Threshold: 0.99})
	if box == nil || box.Rect.Min != (image.Point{X: 17, Y: 9}) {
		t.Errorf("Expected match at (17,9), got %+v", box)
	}
}

func BenchmarkFindTemplateFullHD(b *testing.B) {
	haystack := backdrop(1920, 1080)
	needle := button(80, 30)
	paste(haystack, needle, image.Point{X: 1203, Y: 641})

	for _, gray := range []bool{false, true} {
		name := "color"
		if gray {
			name = "gray"
		}
		b.Run(name, func(b *testing.B) {
			fr := newFrame()
			nd := newNeedle(needle, gray)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				fr.load(haystack, gray)
				if _, ok := fr.find(nd, 0.9); !ok {
					b.Fatal("expected a match")
				}
			}
		})
	}
}
