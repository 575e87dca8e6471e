package segment

import (
	"context"
	"image"
)

// objectSegmenter reads a general-object model's per-pixel label map.
// Foreground is any label other than 0, the designated background label.
// The strategy is discrete, so the probability threshold is ignored.
type objectSegmenter struct {
	model     inferencer
	inputSize int
	labels    int
	mean      [3]float32
	std       [3]float32
}

func (o *objectSegmenter) Segment(ctx context.Context, img image.Image, _ float64) (*Mask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	input := chwInput(img, o.inputSize, o.mean, o.std)

	output, err := o.model.Run(input)
	if err != nil {
		return nil, err
	}

	// Output is CHW logits per label; argmax over the channel axis gives
	// the label map.
	plane := image.NewGray(image.Rect(0, 0, o.inputSize, o.inputSize))
	stride := o.inputSize * o.inputSize
	for i := 0; i < stride; i++ {
		best := 0
		bestVal := output[i]
		for c := 1; c < o.labels; c++ {
			if v := output[c*stride+i]; v > bestVal {
				bestVal = v
				best = c
			}
		}
		if best != 0 {
			plane.Pix[i] = 255
		}
	}

	return MaskFromGray(resizeAlpha(plane, bounds.Dx(), bounds.Dy())), nil
}
