package segment

import (
	"context"
	"image"
)

// edgeSegmenter is the weightless fallback strategy. It samples the image's
// border pixels, averages their color, and classifies every pixel by its
// distance from that average. This is deliberately crude: it assumes a
// roughly uniform background color touching the image edges and will
// misclassify images without that property. Color distance is the mean
// absolute per-channel difference in [0,255], compared against
// threshold*255, so a higher threshold is always a stricter foreground
// test.
type edgeSegmenter struct{}

func (edgeSegmenter) Segment(ctx context.Context, img image.Image, threshold float64) (*Mask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if threshold < 0 {
		threshold = 0
	} else if threshold > 1 {
		threshold = 1
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	avgR, avgG, avgB := borderAverage(img)

	mask := NewMask(w, h)
	limit := threshold * 255
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			dist := (absDiff(float64(r>>8), avgR) +
				absDiff(float64(g>>8), avgG) +
				absDiff(float64(b>>8), avgB)) / 3
			if dist >= limit {
				mask.SetAlpha(x, y, 255)
			}
		}
	}
	return mask, nil
}

// borderAverage averages the color of every pixel touching the image edge.
func borderAverage(img image.Image) (r, g, b float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	var sumR, sumG, sumB, n float64

	add := func(x, y int) {
		pr, pg, pb, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
		sumR += float64(pr >> 8)
		sumG += float64(pg >> 8)
		sumB += float64(pb >> 8)
		n++
	}

	for x := 0; x < w; x++ {
		add(x, 0)
		if h > 1 {
			add(x, h-1)
		}
	}
	for y := 1; y < h-1; y++ {
		add(0, y)
		if w > 1 {
			add(w-1, y)
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	return sumR / n, sumG / n, sumB / n
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
