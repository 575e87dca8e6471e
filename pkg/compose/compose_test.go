package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelform/studio/pkg/segment"
)

// testScene builds a 20x20 image with a 6x6 red square at (7,7) and the
// matching binary mask.
func testScene() (image.Image, *segment.Mask) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	mask := segment.NewMask(20, 20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	for y := 7; y < 13; y++ {
		for x := 7; x < 13; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
			mask.SetAlpha(x, y, 255)
		}
	}
	return img, mask
}

func TestRemoveBackgroundOpaque(t *testing.T) {
	img, mask := testScene()
	c := New()

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	out := c.RemoveBackground(img, mask, color.NRGBA{}, white)

	assert.Equal(t, color.NRGBA{R: 200, G: 30, B: 30, A: 255}, out.NRGBAAt(9, 9), "foreground keeps source")
	assert.Equal(t, white, out.NRGBAAt(1, 1), "background painted")
	assert.EqualValues(t, 255, out.NRGBAAt(1, 1).A, "flattened output is opaque")
}

func TestRemoveBackgroundTransparent(t *testing.T) {
	img, mask := testScene()
	c := New()

	out := c.RemoveBackground(img, mask, color.NRGBA{}, color.NRGBA{})

	assert.EqualValues(t, 0, out.NRGBAAt(1, 1).A, "background fully transparent")
	assert.Equal(t, color.NRGBA{R: 200, G: 30, B: 30, A: 255}, out.NRGBAAt(9, 9))
}

func TestRemoveBackgroundSilhouette(t *testing.T) {
	img, mask := testScene()
	c := New()

	fg := color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	bg := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	out := c.RemoveBackground(img, mask, fg, bg)

	assert.Equal(t, fg, out.NRGBAAt(9, 9), "visible fg paints a silhouette")
	assert.Equal(t, bg, out.NRGBAAt(1, 1))
}

func TestRemoveBackgroundIdempotent(t *testing.T) {
	img, mask := testScene()
	c := New()

	bg := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	once := c.RemoveBackground(img, mask, color.NRGBA{}, bg)
	twice := c.RemoveBackground(once, mask, color.NRGBA{}, bg)

	require.Equal(t, once.Bounds(), twice.Bounds())
	assert.Equal(t, once.Pix, twice.Pix, "re-applying with the same mask and colors is a no-op")
}

func TestAutoCropBoundsSubject(t *testing.T) {
	img, mask := testScene()
	c := New()

	out := c.AutoCrop(img, mask, 0)
	b := out.Bounds()
	assert.Equal(t, 6, b.Dx())
	assert.Equal(t, 6, b.Dy())
}

func TestAutoCropPaddingClampsToImage(t *testing.T) {
	img, mask := testScene()
	c := New()

	out := c.AutoCrop(img, mask, 0.5)
	b := out.Bounds()
	// 6px box + 50% padding on each side = 12, still inside the image.
	assert.Equal(t, 12, b.Dx())
	assert.Equal(t, 12, b.Dy())

	huge := c.AutoCrop(img, mask, 10)
	assert.LessOrEqual(t, huge.Bounds().Dx(), 20, "never exceeds source width")
	assert.LessOrEqual(t, huge.Bounds().Dy(), 20, "never exceeds source height")
}

func TestAutoCropNeverDegenerate(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	mask := segment.NewMask(10, 10)
	mask.SetAlpha(4, 4, 255)
	c := New()

	out := c.AutoCrop(img, mask, 0.1)
	assert.Greater(t, out.Bounds().Dx(), 0)
	assert.Greater(t, out.Bounds().Dy(), 0)
}

func TestAutoCropAlignedKeepsMaskInSync(t *testing.T) {
	img, mask := testScene()
	c := New()

	cropped, croppedMask := c.AutoCropAligned(img, mask, 0)
	require.Equal(t, cropped.Bounds().Dx(), croppedMask.Width())
	require.Equal(t, cropped.Bounds().Dy(), croppedMask.Height())
	// The subject fills the cropped mask completely.
	assert.True(t, croppedMask.Foreground(0, 0))
	assert.True(t, croppedMask.Foreground(5, 5))
}

func TestAutoCropDegenerateMaskFallsBack(t *testing.T) {
	img, _ := testScene()
	empty := segment.NewMask(20, 20)

	var warned []string
	c := New(WithWarnHandler(func(msg string) { warned = append(warned, msg) }))

	out := c.AutoCrop(img, empty, 0.1)
	assert.Equal(t, img.Bounds(), out.Bounds(), "full image fallback")
	require.Len(t, warned, 1, "degenerate mask must be observable")
}
