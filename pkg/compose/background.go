package compose

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/pixelform/studio/pkg/segment"
	"github.com/pixelform/studio/pkg/types"
)

// ReplaceBackground extracts the foreground cutout, renders the requested
// background onto a same-size canvas and draws the cutout on top. The
// cutout is applied with a single straight-alpha interpolation against the
// rendered background, so edge pixels are never alpha-multiplied twice.
// A background spec that needs an auxiliary image fails the whole composite
// if that image cannot be loaded; partial results are never returned.
func (c *Compositor) ReplaceBackground(ctx context.Context, img image.Image, mask *segment.Mask, spec types.BackgroundSpec) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	canvas, err := c.renderBackground(ctx, img, w, h, spec)
	if err != nil {
		return nil, err
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := float64(mask.Alpha(x, y)) / 255
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			src := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
			out.SetNRGBA(x, y, lerpNRGBA(canvas.NRGBAAt(x, y), src, a))
		}
	}
	return out, nil
}

func (c *Compositor) renderBackground(ctx context.Context, original image.Image, w, h int, spec types.BackgroundSpec) (*image.NRGBA, error) {
	switch s := spec.(type) {
	case nil:
		return flatCanvas(w, h, types.DefaultSolid().Color), nil
	case types.SolidBackground:
		col := s.Color
		if col.A == 0 {
			col = types.DefaultSolid().Color
		}
		return flatCanvas(w, h, col), nil
	case types.GradientBackground:
		stops := s.Stops
		if len(stops) == 0 {
			stops = types.DefaultGradient().Stops
		}
		return gradientCanvas(w, h, stops, s.Direction), nil
	case types.ImageBackground:
		return c.imageCanvas(ctx, w, h, s)
	case types.BlurBackground:
		return c.blurCanvas(ctx, original, w, h, s)
	default:
		return nil, fmt.Errorf("unsupported background spec %T", spec)
	}
}

func flatCanvas(w, h int, col color.NRGBA) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			canvas.SetNRGBA(x, y, col)
		}
	}
	return canvas
}

// gradientCanvas renders a linear gradient with stops spaced evenly along
// the direction axis. Interpolation is linear in 8-bit space; the first and
// last stops land exactly on the canvas edges.
func gradientCanvas(w, h int, stops []color.NRGBA, direction types.GradientDirection) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			canvas.SetNRGBA(x, y, gradientAt(gradientT(x, y, w, h, direction), stops))
		}
	}
	return canvas
}

// gradientT projects a pixel position onto the gradient axis, in [0,1].
func gradientT(x, y, w, h int, direction types.GradientDirection) float64 {
	fx, fy := 0.0, 0.0
	if w > 1 {
		fx = float64(x) / float64(w-1)
	}
	if h > 1 {
		fy = float64(y) / float64(h-1)
	}
	switch direction {
	case types.GradientToTop:
		return 1 - fy
	case types.GradientToRight:
		return fx
	case types.GradientToLeft:
		return 1 - fx
	case types.GradientToBottomRight:
		return (fx + fy) / 2
	default: // to bottom
		return fy
	}
}

func gradientAt(t float64, stops []color.NRGBA) color.NRGBA {
	if len(stops) == 1 {
		return stops[0]
	}
	if t <= 0 {
		return stops[0]
	}
	if t >= 1 {
		return stops[len(stops)-1]
	}
	pos := t * float64(len(stops)-1)
	i := int(pos)
	return lerpNRGBA(stops[i], stops[i+1], pos-float64(i))
}

// imageCanvas scales the background image to cover the canvas ("cover" fit)
// anchored at a fractional position, with an extra user scale on top.
func (c *Compositor) imageCanvas(ctx context.Context, w, h int, spec types.ImageBackground) (*image.NRGBA, error) {
	if c.loader == nil {
		return nil, &types.ImageDecodeError{
			Role:   types.RoleBackground,
			Source: spec.Source,
			Err:    fmt.Errorf("no image loader configured"),
		}
	}
	bg, err := c.loader.Load(ctx, spec.Source, types.RoleBackground)
	if err != nil {
		return nil, err
	}

	scale := spec.Scale
	if scale <= 0 {
		scale = 1
	}
	anchor := spec.Anchor
	if anchor == (types.Anchor{}) {
		anchor = types.AnchorCenter
	}

	bb := bg.Bounds()
	cover := maxf(float64(w)/float64(bb.Dx()), float64(h)/float64(bb.Dy())) * scale
	scaledW := int(float64(bb.Dx())*cover + 0.5)
	scaledH := int(float64(bb.Dy())*cover + 0.5)
	if scaledW < w {
		scaledW = w
	}
	if scaledH < h {
		scaledH = h
	}
	scaled := imaging.Resize(bg, scaledW, scaledH, imaging.Lanczos)

	offX := int(clamp01(anchor.X) * float64(scaledW-w))
	offY := int(clamp01(anchor.Y) * float64(scaledH-h))
	cropped := imaging.Crop(scaled, image.Rect(offX, offY, offX+w, offY+h))

	return imaging.Clone(cropped), nil
}

// blurCanvas renders a blurred copy of the original source image blended at
// the requested opacity over an opaque white base, keeping the canvas fully
// opaque.
func (c *Compositor) blurCanvas(ctx context.Context, original image.Image, w, h int, spec types.BlurBackground) (*image.NRGBA, error) {
	src := original
	if spec.Source != "" {
		if c.loader == nil {
			return nil, &types.ImageDecodeError{
				Role:   types.RoleOriginal,
				Source: spec.Source,
				Err:    fmt.Errorf("no image loader configured"),
			}
		}
		loaded, err := c.loader.Load(ctx, spec.Source, types.RoleOriginal)
		if err != nil {
			return nil, err
		}
		src = loaded
	}

	radius := spec.Radius
	if radius <= 0 {
		radius = types.DefaultBlur().Radius
	}
	opacity := clamp01(spec.Opacity)
	if spec.Opacity == 0 {
		opacity = 1
	}

	fitted := imaging.Resize(src, w, h, imaging.Lanczos)
	blurred := imaging.Blur(fitted, radius)

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := blurred.NRGBAAt(x, y)
			px.A = 255
			canvas.SetNRGBA(x, y, lerpNRGBA(white, px, opacity))
		}
	}
	return canvas, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
