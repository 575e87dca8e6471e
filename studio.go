// Package studio turns raw product photos into styled studio shots: it
// segments the subject with pretrained models, removes or replaces the
// background, auto-crops to the subject, classifies the product category and
// optionally hands the processed image to a generation backend with a
// templated prompt.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/pixelform/studio"
//		"github.com/pixelform/studio/pkg/pipeline"
//		"github.com/pixelform/studio/pkg/types"
//	)
//
//	func main() {
//		s, warning, err := studio.New(types.DefaultProfile())
//		if err != nil {
//			log.Fatal(err)
//		}
//		if warning != "" {
//			fmt.Println("warning:", warning)
//		}
//
//		result, err := s.Process(context.Background(), pipeline.Request{
//			Source:     "product.jpg",
//			Strategy:   types.ModelPortrait,
//			Threshold:  0.5,
//			AutoCrop:   true,
//			Background: types.DefaultGradient(),
//			Classify:   true,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("category: %s (%.2f)\n",
//			result.Category.BestCategory, result.Category.BestConfidence)
//		if err := s.Save(result.Image, "product_studio.png", "png", 90); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of six main components:
//
// 1. Backend selector (pkg/backend): compute target, precision and memory policy
// 2. Model cache (pkg/model): lazy, de-duplicated model loading
// 3. Segmentation engine (pkg/segment): three strategies behind one entry point
// 4. Compositing engine (pkg/compose): removal, auto-crop, background replacement
// 5. Product classifier (pkg/classify): category mapping and aggregation
// 6. Pipeline (pkg/pipeline): the end-to-end orchestration used above
package studio

import (
	"context"
	"image"

	"github.com/rs/zerolog"

	"github.com/pixelform/studio/pkg/backend"
	"github.com/pixelform/studio/pkg/classify"
	"github.com/pixelform/studio/pkg/compose"
	"github.com/pixelform/studio/pkg/generate"
	"github.com/pixelform/studio/pkg/model"
	"github.com/pixelform/studio/pkg/pipeline"
	"github.com/pixelform/studio/pkg/processing"
	"github.com/pixelform/studio/pkg/segment"
	"github.com/pixelform/studio/pkg/types"
)

// Version of the studio library
const Version = "1.0.0"

// Studio is the high-level entry point wiring every component together.
type Studio struct {
	selector   *backend.Selector
	cache      *model.Cache
	engine     *segment.Engine
	classifier *classify.Classifier
	processor  *processing.Processor
	pipeline   *pipeline.Pipeline
	log        zerolog.Logger
}

// Option customizes a Studio.
type Option func(*options)

type options struct {
	log       zerolog.Logger
	modelDir  string
	generator generate.Generator
}

// WithLogger sets the logger shared by every component.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithModelDir overrides the directory model weights are cached in.
func WithModelDir(dir string) Option {
	return func(o *options) { o.modelDir = dir }
}

// WithGenerator supplies the generation backend used by Process requests
// that set a GenerateModel.
func WithGenerator(g generate.Generator) Option {
	return func(o *options) { o.generator = g }
}

// New builds a Studio configured for the given performance profile. The
// returned warning is non-empty when the requested compute backend was
// unavailable and the portable fallback was used instead; that situation is
// not an error.
func New(profile types.PerformanceProfile, opts ...Option) (*Studio, string, error) {
	o := &options{log: zerolog.Nop(), modelDir: "models"}
	for _, opt := range opts {
		opt(o)
	}

	selector := backend.New(backend.WithLogger(o.log))
	warning, err := selector.Configure(profile)
	if err != nil {
		return nil, "", err
	}

	cache := model.NewCache(o.modelDir, selector, profile, model.WithLogger(o.log))
	engine := segment.NewEngine(cache, segment.WithLogger(o.log))
	processor := processing.NewProcessor()
	classifier := classify.New(cache,
		classify.WithLogger(o.log),
		classify.WithImageLoader(processor),
	)

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(o.log),
		pipeline.WithEncoder(processor),
	}
	if o.generator != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithGenerator(o.generator))
	}

	return &Studio{
		selector:   selector,
		cache:      cache,
		engine:     engine,
		classifier: classifier,
		processor:  processor,
		pipeline:   pipeline.New(processor, engine, classifier, pipelineOpts...),
		log:        o.log,
	}, warning, nil
}

// Process runs the full pipeline for one request.
func (s *Studio) Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	return s.pipeline.Process(ctx, req)
}

// Load resolves an image source (file path or URL) into a decoded bitmap.
func (s *Studio) Load(ctx context.Context, source string) (image.Image, error) {
	return s.processor.Load(ctx, source, types.RoleSource)
}

// Save writes an image to path in the given format.
func (s *Studio) Save(img image.Image, path, format string, quality int) error {
	return s.processor.Save(img, path, format, quality, false)
}

// DataURL exports an image as a base64 PNG data URL.
func (s *Studio) DataURL(img image.Image) (string, error) {
	return s.processor.DataURL(img)
}

// Segment produces a foreground mask using the named strategy.
func (s *Studio) Segment(ctx context.Context, img image.Image, kind types.ModelKind, threshold float64) (*segment.Mask, error) {
	return s.engine.Segment(ctx, img, kind, threshold)
}

// Compositor returns a compositor wired with the studio's image loader, for
// callers that want the compositing operations without the full pipeline.
func (s *Studio) Compositor() *compose.Compositor {
	return compose.New(
		compose.WithLogger(s.log),
		compose.WithImageLoader(s.processor),
	)
}

// Classify runs the product classifier over a decoded image.
func (s *Studio) Classify(ctx context.Context, img image.Image, confidenceThreshold float64) (*types.ProductCategoryResult, error) {
	return s.classifier.Classify(ctx, img, confidenceThreshold)
}

// ClassifyBatch classifies image sources sequentially, isolating per-item
// failures.
func (s *Studio) ClassifyBatch(ctx context.Context, sources []string, confidenceThreshold float64, progress types.Progress) ([]*types.ProductCategoryResult, []*types.BatchItemError, error) {
	return s.classifier.ClassifyBatch(ctx, sources, confidenceThreshold, progress)
}

// ClearModelCache evicts every cached model handle. Handles already captured
// by in-flight calls stay valid.
func (s *Studio) ClearModelCache() {
	s.cache.Clear()
}

// ActiveBackend reports the compute backend actually in use after fallback.
func (s *Studio) ActiveBackend() types.Backend {
	return s.selector.Active()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
