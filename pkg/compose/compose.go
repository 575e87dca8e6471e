// Package compose combines a source image with a foreground mask into
// processed product photos: background removal, mask-driven auto-cropping
// and background replacement. All color math is straight 8-bit-per-channel
// RGBA with linear interpolation and no gamma correction.
package compose

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/pixelform/studio/pkg/segment"
	"github.com/pixelform/studio/pkg/types"
)

// DefaultPadding is the auto-crop margin: 10% of the bounding box on each
// axis.
const DefaultPadding = 0.1

// ImageLoader resolves an auxiliary image source (background image, original
// for blur) into a decoded bitmap. The role tags decode errors so the caller
// can show a targeted message.
type ImageLoader interface {
	Load(ctx context.Context, source string, role types.ImageRole) (image.Image, error)
}

// Compositor performs mask-based image composition. The zero-ish value from
// New works without a loader as long as no BackgroundSpec needs an auxiliary
// image.
type Compositor struct {
	log    zerolog.Logger
	warn   func(message string)
	loader ImageLoader
}

// Option customizes a Compositor.
type Option func(*Compositor)

// WithLogger sets the compositor logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Compositor) { c.log = log }
}

// WithWarnHandler registers a callback for non-fatal warnings such as a
// degenerate mask during auto-crop.
func WithWarnHandler(warn func(message string)) Option {
	return func(c *Compositor) { c.warn = warn }
}

// WithImageLoader supplies the loader used for image and blur background
// sources.
func WithImageLoader(loader ImageLoader) Option {
	return func(c *Compositor) { c.loader = loader }
}

// New creates a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RemoveBackground keeps source pixels where the mask says foreground and
// paints background pixels with bg. A transparent bg (alpha 0) produces a
// transparent-background cutout; any visible bg is flattened onto an opaque
// backing of the same color so consumers that ignore transparency still get
// a sane image. A visible fg replaces foreground pixels with a flat
// silhouette color instead of the source photo.
func (c *Compositor) RemoveBackground(img image.Image, mask *segment.Mask, fg, bg color.NRGBA) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	opaque := bg.A > 0
	backing := color.NRGBA{R: bg.R, G: bg.G, B: bg.B, A: 255}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := float64(mask.Alpha(x, y)) / 255

			var src color.NRGBA
			if fg.A > 0 {
				src = fg
			} else {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				src = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
			}

			if opaque {
				out.SetNRGBA(x, y, lerpNRGBA(backing, src, a))
			} else {
				src.A = uint8(a*255 + 0.5)
				if src.A == 0 {
					src = color.NRGBA{}
				}
				out.SetNRGBA(x, y, src)
			}
		}
	}
	return out
}

// AutoCrop crops img to the mask's bounding box expanded by paddingFraction
// of the box's own width and height per axis, clamped to the image. A mask
// with no foreground pixels cannot produce a crop region; the original image
// is returned unmodified and a degenerate-mask warning is surfaced.
func (c *Compositor) AutoCrop(img image.Image, mask *segment.Mask, paddingFraction float64) image.Image {
	if paddingFraction < 0 {
		paddingFraction = DefaultPadding
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	box := mask.BoundingBox()
	if box.Empty() {
		c.warnf("auto-crop found no foreground pixels, keeping the full image")
		return img
	}

	padded := box.Pad(paddingFraction, w, h)
	return imaging.Crop(img, padded.Rect().Add(bounds.Min))
}

// AutoCropAligned crops both the image and its mask to the padded bounding
// box, keeping the two pixel-aligned for later compositing stages. The
// degenerate-mask fallback matches AutoCrop: both come back unmodified.
func (c *Compositor) AutoCropAligned(img image.Image, mask *segment.Mask, paddingFraction float64) (image.Image, *segment.Mask) {
	if paddingFraction < 0 {
		paddingFraction = DefaultPadding
	}
	bounds := img.Bounds()

	box := mask.BoundingBox()
	if box.Empty() {
		c.warnf("auto-crop found no foreground pixels, keeping the full image")
		return img, mask
	}

	padded := box.Pad(paddingFraction, bounds.Dx(), bounds.Dy())
	return imaging.Crop(img, padded.Rect().Add(bounds.Min)), mask.Crop(padded)
}

func (c *Compositor) warnf(message string) {
	c.log.Warn().Msg(message)
	if c.warn != nil {
		c.warn(message)
	}
}

// lerpNRGBA interpolates linearly between two colors in 8-bit space.
func lerpNRGBA(from, to color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: lerp8(from.R, to.R, t),
		G: lerp8(from.G, to.G, t),
		B: lerp8(from.B, to.B, t),
		A: lerp8(from.A, to.A, t),
	}
}

func lerp8(from, to uint8, t float64) uint8 {
	return uint8(float64(from)*(1-t) + float64(to)*t + 0.5)
}
