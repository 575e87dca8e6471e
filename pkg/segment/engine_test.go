package segment

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// subjectImage returns a solid-color image with a centered square subject.
func subjectImage(width, height int, bg, fg color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	return img
}

func TestEdgeSegmenterFindsCenteredSubject(t *testing.T) {
	img := subjectImage(60, 60, color.RGBA{32, 32, 32, 255}, color.RGBA{240, 240, 240, 255})

	mask, err := edgeSegmenter{}.Segment(context.Background(), img, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 60, mask.Width())
	assert.Equal(t, 60, mask.Height())
	assert.True(t, mask.Foreground(30, 30), "center of the subject")
	assert.False(t, mask.Foreground(1, 1), "background corner")

	box := mask.BoundingBox()
	require.False(t, box.Empty())
	assert.InDelta(t, 20, box.MinX, 2)
	assert.InDelta(t, 39, box.MaxX, 2)
}

func TestEdgeSegmenterThresholdExtremes(t *testing.T) {
	img := subjectImage(30, 30, color.RGBA{10, 10, 10, 255}, color.RGBA{200, 200, 200, 255})

	// threshold 0: every pixel passes the distance test.
	mask, err := edgeSegmenter{}.Segment(context.Background(), img, 0)
	require.NoError(t, err)
	assert.True(t, mask.Foreground(0, 0))
	assert.True(t, mask.Foreground(15, 15))

	// threshold 1: almost nothing passes.
	mask, err = edgeSegmenter{}.Segment(context.Background(), img, 1)
	require.NoError(t, err)
	assert.True(t, mask.BoundingBox().Empty())
}

func TestEdgeSegmenterMonotonicInThreshold(t *testing.T) {
	img := subjectImage(40, 40, color.RGBA{30, 30, 30, 255}, color.RGBA{220, 220, 220, 255})

	count := func(threshold float64) int {
		mask, err := edgeSegmenter{}.Segment(context.Background(), img, threshold)
		require.NoError(t, err)
		n := 0
		for y := 0; y < mask.Height(); y++ {
			for x := 0; x < mask.Width(); x++ {
				if mask.Foreground(x, y) {
					n++
				}
			}
		}
		return n
	}

	prev := count(0.1)
	for _, threshold := range []float64{0.3, 0.5, 0.7, 0.9} {
		cur := count(threshold)
		assert.LessOrEqual(t, cur, prev, "threshold %v", threshold)
		prev = cur
	}
}

// fakeModel replays a fixed output vector.
type fakeModel struct {
	output []float32
	err    error
	calls  int
}

func (f *fakeModel) Run(input []float32) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestPortraitSegmenterThresholdsLogits(t *testing.T) {
	const size = 4
	// Logit +4 is ~0.98 probability, -4 is ~0.02. Foreground in the left
	// half only.
	output := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < size/2 {
				output[y*size+x] = 4
			} else {
				output[y*size+x] = -4
			}
		}
	}
	s := &portraitSegmenter{
		model:     &fakeModel{output: output},
		inputSize: size,
		mean:      [3]float32{0.485, 0.456, 0.406},
		std:       [3]float32{0.229, 0.224, 0.225},
	}

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	mask, err := s.Segment(context.Background(), img, 0.5)
	require.NoError(t, err)

	// Mask always matches the source dimensions, not the model plane.
	assert.Equal(t, 8, mask.Width())
	assert.Equal(t, 8, mask.Height())
	assert.True(t, mask.Foreground(1, 4))
	assert.False(t, mask.Foreground(6, 4))
}

func TestPortraitSegmenterRendersColoredPlane(t *testing.T) {
	const size = 4
	output := make([]float32, size*size)
	for i := range output {
		output[i] = 4 // everything foreground
	}
	fg := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	bg := color.NRGBA{R: 200, G: 210, B: 220, A: 255}
	s := &portraitSegmenter{
		model:     &fakeModel{output: output},
		inputSize: size,
		opts:      PortraitOptions{Render: true, Foreground: fg, Background: bg},
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	mask, err := s.Segment(context.Background(), img, 0.5)
	require.NoError(t, err)

	rendered := mask.Rendered()
	require.NotNil(t, rendered)
	assert.Equal(t, fg, rendered.NRGBAAt(2, 2))
}

func TestObjectSegmenterArgmaxLabelMap(t *testing.T) {
	const size, labels = 4, 3
	stride := size * size
	output := make([]float32, labels*stride)
	for i := 0; i < stride; i++ {
		x := i % size
		if x >= size/2 {
			// Right half: label 2 wins over background.
			output[2*stride+i] = 5
		} else {
			// Left half: background label 0 wins.
			output[i] = 5
		}
	}
	s := &objectSegmenter{
		model:     &fakeModel{output: output},
		inputSize: size,
		labels:    labels,
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	mask, err := s.Segment(context.Background(), img, 0.5)
	require.NoError(t, err)

	assert.False(t, mask.Foreground(0, 2), "background label")
	assert.True(t, mask.Foreground(3, 2), "non-background label")
}

func TestSegmentCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := edgeSegmenter{}.Segment(ctx, image.NewRGBA(image.Rect(0, 0, 4, 4)), 0.5)
	assert.ErrorIs(t, err, context.Canceled)
}
