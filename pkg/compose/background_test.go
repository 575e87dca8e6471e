package compose

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelform/studio/pkg/segment"
	"github.com/pixelform/studio/pkg/types"
)

func flatImage(w, h int, col color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, col)
		}
	}
	return img
}

// fakeLoader serves a fixed image, or a fixed error.
type fakeLoader struct {
	img   image.Image
	err   error
	roles []types.ImageRole
}

func (f *fakeLoader) Load(_ context.Context, _ string, role types.ImageRole) (image.Image, error) {
	f.roles = append(f.roles, role)
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

func TestReplaceBackgroundSolid(t *testing.T) {
	img, mask := testScene()
	c := New()

	blue := color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	out, err := c.ReplaceBackground(context.Background(), img, mask, types.SolidBackground{Color: blue})
	require.NoError(t, err)

	assert.Equal(t, blue, out.NRGBAAt(1, 1), "background replaced")
	assert.Equal(t, color.NRGBA{R: 200, G: 30, B: 30, A: 255}, out.NRGBAAt(9, 9), "cutout kept")
	assert.EqualValues(t, 255, out.NRGBAAt(1, 1).A, "output is fully opaque")
}

func TestReplaceBackgroundNilSpecDefaultsToWhite(t *testing.T) {
	img, mask := testScene()
	c := New()

	out, err := c.ReplaceBackground(context.Background(), img, mask, nil)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(0, 0))
}

func TestReplaceBackgroundGradientEdges(t *testing.T) {
	img := flatImage(4, 9, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	empty := segment.NewMask(4, 9)
	c := New()

	spec := types.GradientBackground{
		Stops: []color.NRGBA{
			{R: 0, G: 0, B: 0, A: 255},
			{R: 255, G: 255, B: 255, A: 255},
		},
		Direction: types.GradientToBottom,
	}
	out, err := c.ReplaceBackground(context.Background(), img, empty, spec)
	require.NoError(t, err)

	for x := 0; x < 4; x++ {
		assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(x, 0), "top row pure black")
		assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(x, 8), "bottom row pure white")
	}
	// Linear in between: the middle row sits halfway.
	mid := out.NRGBAAt(0, 4)
	assert.InDelta(t, 128, int(mid.R), 1)
	assert.Equal(t, mid.R, mid.G)
	assert.Equal(t, mid.R, mid.B)
}

func TestReplaceBackgroundGradientDirections(t *testing.T) {
	empty := segment.NewMask(9, 9)
	img := flatImage(9, 9, color.NRGBA{A: 255})
	black := color.NRGBA{A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	c := New()

	spec := types.GradientBackground{Stops: []color.NRGBA{black, white}, Direction: types.GradientToRight}
	out, err := c.ReplaceBackground(context.Background(), img, empty, spec)
	require.NoError(t, err)
	assert.Equal(t, black, out.NRGBAAt(0, 4))
	assert.Equal(t, white, out.NRGBAAt(8, 4))

	spec.Direction = types.GradientToTop
	out, err = c.ReplaceBackground(context.Background(), img, empty, spec)
	require.NoError(t, err)
	assert.Equal(t, white, out.NRGBAAt(4, 0))
	assert.Equal(t, black, out.NRGBAAt(4, 8))
}

func TestReplaceBackgroundImageCover(t *testing.T) {
	img, mask := testScene()
	green := color.NRGBA{R: 0, G: 180, B: 0, A: 255}
	loader := &fakeLoader{img: flatImage(4, 4, green)}
	c := New(WithImageLoader(loader))

	out, err := c.ReplaceBackground(context.Background(), img, mask, types.ImageBackground{Source: "bg.png"})
	require.NoError(t, err)

	require.Equal(t, []types.ImageRole{types.RoleBackground}, loader.roles)
	got := out.NRGBAAt(1, 1)
	assert.InDelta(t, int(green.G), int(got.G), 3, "background image covers the canvas")
	assert.Equal(t, color.NRGBA{R: 200, G: 30, B: 30, A: 255}, out.NRGBAAt(9, 9), "cutout on top")
}

func TestReplaceBackgroundImageLoadFailure(t *testing.T) {
	img, mask := testScene()
	boom := &types.ImageDecodeError{Role: types.RoleBackground, Source: "bg.png", Err: errors.New("corrupt")}
	c := New(WithImageLoader(&fakeLoader{err: boom}))

	_, err := c.ReplaceBackground(context.Background(), img, mask, types.ImageBackground{Source: "bg.png"})
	var decodeErr *types.ImageDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, types.RoleBackground, decodeErr.Role)
}

func TestReplaceBackgroundImageWithoutLoader(t *testing.T) {
	img, mask := testScene()
	c := New()

	_, err := c.ReplaceBackground(context.Background(), img, mask, types.ImageBackground{Source: "bg.png"})
	var decodeErr *types.ImageDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, types.RoleBackground, decodeErr.Role)
}

func TestReplaceBackgroundBlurUsesOriginal(t *testing.T) {
	gray := color.NRGBA{R: 90, G: 90, B: 90, A: 255}
	img := flatImage(12, 12, gray)
	empty := segment.NewMask(12, 12)
	c := New()

	out, err := c.ReplaceBackground(context.Background(), img, empty, types.BlurBackground{Radius: 3})
	require.NoError(t, err)

	// Blurring a flat image keeps it flat.
	got := out.NRGBAAt(6, 6)
	assert.InDelta(t, int(gray.R), int(got.R), 2)
	assert.EqualValues(t, 255, got.A)
}

func TestReplaceBackgroundBlurOpacity(t *testing.T) {
	img := flatImage(8, 8, color.NRGBA{A: 255}) // black source
	empty := segment.NewMask(8, 8)
	c := New()

	out, err := c.ReplaceBackground(context.Background(), img, empty, types.BlurBackground{Radius: 2, Opacity: 0.5})
	require.NoError(t, err)

	// Half-opacity black over the white base lands mid-gray.
	got := out.NRGBAAt(4, 4)
	assert.InDelta(t, 128, int(got.R), 3)
	assert.EqualValues(t, 255, got.A)
}

func TestReplaceBackgroundCanceledContext(t *testing.T) {
	img, mask := testScene()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ReplaceBackground(ctx, img, mask, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
