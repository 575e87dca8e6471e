package segment

import (
	"image"
	"image/color"
)

// Mask is a per-pixel foreground classification aligned exactly to a source
// image's pixel grid. Values are alpha-like: 255 is foreground, 0 is
// background, intermediate values appear along blurred edges. A mask
// produced by the portrait strategy may additionally carry a pre-rendered
// color plane.
type Mask struct {
	gray     *image.Gray
	rendered *image.NRGBA
}

// NewMask returns an all-background mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{gray: image.NewGray(image.Rect(0, 0, width, height))}
}

// MaskFromGray wraps an alpha plane as a mask.
func MaskFromGray(gray *image.Gray) *Mask {
	return &Mask{gray: gray}
}

// Width returns the mask width in pixels.
func (m *Mask) Width() int { return m.gray.Bounds().Dx() }

// Height returns the mask height in pixels.
func (m *Mask) Height() int { return m.gray.Bounds().Dy() }

// Bounds returns the mask's pixel rectangle.
func (m *Mask) Bounds() image.Rectangle { return m.gray.Bounds() }

// Alpha returns the foreground strength at (x, y).
func (m *Mask) Alpha(x, y int) uint8 { return m.gray.GrayAt(x, y).Y }

// SetAlpha sets the foreground strength at (x, y).
func (m *Mask) SetAlpha(x, y int, v uint8) {
	m.gray.SetGray(x, y, color.Gray{Y: v})
}

// Foreground reports whether (x, y) counts as foreground.
func (m *Mask) Foreground(x, y int) bool { return m.Alpha(x, y) >= 128 }

// Gray exposes the underlying alpha plane.
func (m *Mask) Gray() *image.Gray { return m.gray }

// Rendered returns the pre-colored plane emitted by the portrait strategy,
// or nil when the mask was produced without rendering options.
func (m *Mask) Rendered() *image.NRGBA { return m.rendered }

// Crop returns a copy of the mask restricted to box, re-based at the origin.
// The pre-rendered plane, if any, is cropped the same way so image and mask
// stay pixel-aligned through a crop stage.
func (m *Mask) Crop(box BoundingBox) *Mask {
	if box.Empty() {
		return m
	}
	rect := box.Rect()
	out := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		src := (rect.Min.Y+y)*m.gray.Stride + rect.Min.X
		copy(out.Pix[y*out.Stride:y*out.Stride+rect.Dx()], m.gray.Pix[src:src+rect.Dx()])
	}
	cropped := &Mask{gray: out}
	if m.rendered != nil {
		plane := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
		for y := 0; y < rect.Dy(); y++ {
			src := (rect.Min.Y+y)*m.rendered.Stride + rect.Min.X*4
			copy(plane.Pix[y*plane.Stride:y*plane.Stride+rect.Dx()*4], m.rendered.Pix[src:src+rect.Dx()*4])
		}
		cropped.rendered = plane
	}
	return cropped
}

// BoundingBox is an axis-aligned rectangle in source-image pixel
// coordinates. Min and Max are inclusive pixel indices; an Empty box means
// the scan found no foreground pixel and Min/Max still hold their sentinel
// initial values.
type BoundingBox struct {
	MinX, MinY int
	MaxX, MaxY int
}

// BoundingBox scans every foreground pixel and returns the enclosing box.
// With no foreground pixels the box stays at its sentinel values
// {MinX=width, MinY=height, MaxX=0, MaxY=0}; callers must check Empty
// before cropping.
func (m *Mask) BoundingBox() BoundingBox {
	b := m.gray.Bounds()
	box := BoundingBox{MinX: b.Dx(), MinY: b.Dy(), MaxX: 0, MaxY: 0}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := m.gray.Pix[(y-b.Min.Y)*m.gray.Stride : (y-b.Min.Y)*m.gray.Stride+b.Dx()]
		for x, v := range row {
			if v < 128 {
				continue
			}
			if x < box.MinX {
				box.MinX = x
			}
			if x > box.MaxX {
				box.MaxX = x
			}
			if y-b.Min.Y < box.MinY {
				box.MinY = y - b.Min.Y
			}
			if y-b.Min.Y > box.MaxY {
				box.MaxY = y - b.Min.Y
			}
		}
	}
	return box
}

// Empty reports whether the box never saw a foreground pixel.
func (b BoundingBox) Empty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Width returns the box width in pixels (inclusive coordinates).
func (b BoundingBox) Width() int { return b.MaxX - b.MinX + 1 }

// Height returns the box height in pixels (inclusive coordinates).
func (b BoundingBox) Height() int { return b.MaxY - b.MinY + 1 }

// Rect converts the inclusive box to a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX+1, b.MaxY+1)
}

// Pad expands the box by fraction of its own width and height on each axis,
// clamped to the [0,width)×[0,height) pixel grid. Padding an Empty box is a
// no-op.
func (b BoundingBox) Pad(fraction float64, width, height int) BoundingBox {
	if b.Empty() || fraction <= 0 {
		return b
	}
	padX := int(float64(b.Width()) * fraction)
	padY := int(float64(b.Height()) * fraction)
	out := BoundingBox{
		MinX: b.MinX - padX,
		MinY: b.MinY - padY,
		MaxX: b.MaxX + padX,
		MaxY: b.MaxY + padY,
	}
	if out.MinX < 0 {
		out.MinX = 0
	}
	if out.MinY < 0 {
		out.MinY = 0
	}
	if out.MaxX > width-1 {
		out.MaxX = width - 1
	}
	if out.MaxY > height-1 {
		out.MaxY = height - 1
	}
	return out
}
