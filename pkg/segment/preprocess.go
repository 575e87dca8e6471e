package segment

import (
	"image"

	"github.com/nfnt/resize"
)

// chwInput resizes an image to a square model plane and converts it to a
// normalized CHW float32 tensor.
func chwInput(img image.Image, size int, mean, std [3]float32) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	data := make([]float32, 3*size*size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			i := y*size + x
			data[i] = (float32(r>>8)/255.0 - mean[0]) / std[0]
			data[plane+i] = (float32(g>>8)/255.0 - mean[1]) / std[1]
			data[2*plane+i] = (float32(b>>8)/255.0 - mean[2]) / std[2]
		}
	}
	return data
}

// resizeAlpha scales a model-resolution alpha plane back to the source
// image's dimensions. Nearest neighbor keeps label boundaries crisp; the
// caller re-thresholds afterwards anyway.
func resizeAlpha(plane *image.Gray, width, height int) *image.Gray {
	scaled := resize.Resize(uint(width), uint(height), plane, resize.NearestNeighbor)
	if g, ok := scaled.(*image.Gray); ok {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := scaled.At(x, y).RGBA()
			out.Pix[y*out.Stride+x] = uint8(r >> 8)
		}
	}
	return out
}
