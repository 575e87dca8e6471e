package segment

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// PortraitOptions controls the optional pre-colored plane the portrait
// strategy can emit alongside the alpha mask. The zero value disables
// rendering.
type PortraitOptions struct {
	// Foreground and Background are the two plane colors.
	Foreground color.NRGBA
	Background color.NRGBA
	// EdgeBlur is the radius, in pixels, of the antialiasing applied to
	// the mask boundary before the colors are interpolated.
	EdgeBlur float64
	// BackgroundBlur is the radius applied to the background side of the
	// plane before interpolation. Visible only for non-flat backgrounds;
	// kept so a plane rendered here matches one composited downstream.
	BackgroundBlur float64
	// Render enables plane emission.
	Render bool
}

// portraitSegmenter thresholds a single-channel probability map from a
// matting model tuned for one dominant subject.
type portraitSegmenter struct {
	model     inferencer
	inputSize int
	mean      [3]float32
	std       [3]float32
	opts      PortraitOptions
}

func (p *portraitSegmenter) Segment(ctx context.Context, img image.Image, threshold float64) (*Mask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	input := chwInput(img, p.inputSize, p.mean, p.std)

	output, err := p.model.Run(input)
	if err != nil {
		return nil, err
	}

	// Logits to probabilities, then threshold into a binary plane at model
	// resolution.
	plane := image.NewGray(image.Rect(0, 0, p.inputSize, p.inputSize))
	for i, v := range output[:p.inputSize*p.inputSize] {
		prob := 1.0 / (1.0 + math.Exp(-float64(v)))
		if prob >= threshold {
			plane.Pix[i] = 255
		}
	}

	alpha := resizeAlpha(plane, bounds.Dx(), bounds.Dy())
	mask := MaskFromGray(alpha)
	if p.opts.Render {
		mask.rendered = renderPlane(alpha, p.opts)
	}
	return mask, nil
}

// renderPlane paints the mask as a two-color RGBA plane. The alpha plane is
// blurred by EdgeBlur first, so boundary pixels interpolate between the two
// colors instead of stepping.
func renderPlane(alpha *image.Gray, opts PortraitOptions) *image.NRGBA {
	softAlpha := func(x, y int) float64 { return float64(alpha.GrayAt(x, y).Y) / 255 }
	if opts.EdgeBlur > 0 {
		blurred := imaging.Blur(alpha, opts.EdgeBlur)
		softAlpha = func(x, y int) float64 { return float64(blurred.NRGBAAt(x, y).R) / 255 }
	}

	b := alpha.Bounds()
	w, h := b.Dx(), b.Dy()
	bg := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bg.SetNRGBA(x, y, opts.Background)
		}
	}
	if opts.BackgroundBlur > 0 {
		bg = imaging.Blur(bg, opts.BackgroundBlur)
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := softAlpha(x, y)
			bgc := bg.NRGBAAt(x, y)
			out.SetNRGBA(x, y, color.NRGBA{
				R: lerp8(bgc.R, opts.Foreground.R, a),
				G: lerp8(bgc.G, opts.Foreground.G, a),
				B: lerp8(bgc.B, opts.Foreground.B, a),
				A: lerp8(bgc.A, opts.Foreground.A, a),
			})
		}
	}
	return out
}

func lerp8(from, to uint8, t float64) uint8 {
	return uint8(float64(from)*(1-t) + float64(to)*t + 0.5)
}
