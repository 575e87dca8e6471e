// Package segment turns an image into a per-pixel foreground mask. Three
// interchangeable strategies sit behind one entry point keyed by model kind:
// a portrait model tuned for a single dominant subject, a general-object
// model producing a label map, and a fast weightless fallback built on a
// border-color heuristic. Callers never need to know which algorithm ran.
package segment

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/pixelform/studio/pkg/model"
	"github.com/pixelform/studio/pkg/types"
)

// Segmenter is one segmentation strategy: image plus threshold in, mask out.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image, threshold float64) (*Mask, error)
}

// inferencer is the slice of a model handle the weighted strategies need.
type inferencer interface {
	Run(input []float32) ([]float32, error)
}

// Engine resolves model kinds to strategies through the model cache.
type Engine struct {
	cache *model.Cache
	log   zerolog.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates a segmentation engine backed by the given model cache.
func NewEngine(cache *model.Cache, opts ...EngineOption) *Engine {
	e := &Engine{cache: cache, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Segment produces a foreground mask for img using the named strategy.
// Threshold is in [0,1]: 0 marks everything foreground, 1 almost nothing.
// The object strategy produces discrete labels and ignores the threshold.
func (e *Engine) Segment(ctx context.Context, img image.Image, kind types.ModelKind, threshold float64) (*Mask, error) {
	s, err := e.strategy(ctx, kind, PortraitOptions{})
	if err != nil {
		return nil, err
	}
	return s.Segment(ctx, img, threshold)
}

// SegmentPortrait runs the portrait strategy with rendering options: the
// returned mask carries a pre-colored RGBA plane with the requested edge
// antialiasing.
func (e *Engine) SegmentPortrait(ctx context.Context, img image.Image, threshold float64, opts PortraitOptions) (*Mask, error) {
	s, err := e.strategy(ctx, types.ModelPortrait, opts)
	if err != nil {
		return nil, err
	}
	return s.Segment(ctx, img, threshold)
}

func (e *Engine) strategy(ctx context.Context, kind types.ModelKind, opts PortraitOptions) (Segmenter, error) {
	switch kind {
	case types.ModelPortrait:
		h, err := e.cache.Get(ctx, kind, nil)
		if err != nil {
			return nil, err
		}
		return &portraitSegmenter{
			model:     h,
			inputSize: h.InputSize,
			mean:      h.Mean,
			std:       h.Std,
			opts:      opts,
		}, nil
	case types.ModelObject:
		h, err := e.cache.Get(ctx, kind, nil)
		if err != nil {
			return nil, err
		}
		return &objectSegmenter{
			model:     h,
			inputSize: h.InputSize,
			labels:    h.Channels,
			mean:      h.Mean,
			std:       h.Std,
		}, nil
	case types.ModelFast:
		return &edgeSegmenter{}, nil
	default:
		return nil, fmt.Errorf("no segmentation strategy for model kind %q", kind)
	}
}
