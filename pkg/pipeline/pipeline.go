// Package pipeline sequences the studio stages for one product photo: load,
// segment, auto-crop, background removal or replacement, classification and
// the external generation hand-off. Each stage's output feeds the next, so
// stages run strictly in order; cancellation is honored at every suspension
// point.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/pixelform/studio/pkg/compose"
	"github.com/pixelform/studio/pkg/generate"
	"github.com/pixelform/studio/pkg/prompt"
	"github.com/pixelform/studio/pkg/segment"
	"github.com/pixelform/studio/pkg/types"
)

// Segmenter is the slice of the segmentation engine the pipeline needs.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image, kind types.ModelKind, threshold float64) (*segment.Mask, error)
}

// Classifier is the slice of the product classifier the pipeline needs.
type Classifier interface {
	Classify(ctx context.Context, img image.Image, confidenceThreshold float64) (*types.ProductCategoryResult, error)
}

// Loader resolves image sources for the pipeline and the compositor.
type Loader interface {
	Load(ctx context.Context, source string, role types.ImageRole) (image.Image, error)
}

// Encoder prepares the processed bitmap for the generation request.
type Encoder interface {
	EncodeForModel(img image.Image, format string, maxDim, quality int) ([]byte, error)
}

// Request describes one pipeline invocation.
type Request struct {
	// Source is the product photo, as a file path or URL.
	Source string
	// Strategy selects the segmentation model kind.
	Strategy types.ModelKind
	// Threshold is the segmentation foreground threshold in [0,1].
	Threshold float64
	// AutoCrop trims the result to the subject's padded bounding box.
	AutoCrop bool
	// Padding is the auto-crop margin as a fraction of the bounding box;
	// negative means the default 10%.
	Padding float64
	// Background is the replacement background. Nil keeps a transparent
	// cutout from plain background removal.
	Background types.BackgroundSpec
	// Classify runs the product classifier on the processed image.
	Classify bool
	// ConfidenceThreshold filters classifier predictions.
	ConfidenceThreshold float64
	// GenerateModel, when set, hands the processed image and a templated
	// prompt to the generation backend under this model name. Implies
	// classification for category-aware prompting.
	GenerateModel string
	// Style feeds the {style} prompt placeholder.
	Style string
	// Progress receives stage-scoped completion callbacks.
	Progress types.Progress
}

// Result is the outcome of one pipeline invocation.
type Result struct {
	// JobID uniquely identifies this invocation in logs.
	JobID string
	// Image is the processed product photo.
	Image image.Image
	// Category is the classification outcome, nil when classification was
	// not requested or failed (see Warnings).
	Category *types.ProductCategoryResult
	// Generated is the generation backend's response, nil when no
	// generation was requested.
	Generated *generate.Result
	// Warnings collects the non-fatal warnings raised along the way:
	// backend fallback, degenerate mask, isolated classification failure.
	Warnings []string
}

// Pipeline wires the studio components into one Process entry point.
type Pipeline struct {
	loader    Loader
	segmenter Segmenter
	classify  Classifier
	generator generate.Generator
	encoder   Encoder
	log       zerolog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithGenerator supplies the generation backend client.
func WithGenerator(g generate.Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

// WithEncoder supplies the image encoder for generation requests.
func WithEncoder(e Encoder) Option {
	return func(p *Pipeline) { p.encoder = e }
}

// New creates a Pipeline from its stage implementations.
func New(loader Loader, segmenter Segmenter, classifier Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:    loader,
		segmenter: segmenter,
		classify:  classifier,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stage progress milestones, fractions of the whole invocation.
const (
	progressLoaded     = 0.15
	progressSegmented  = 0.45
	progressCropped    = 0.55
	progressComposited = 0.75
	progressClassified = 0.85
	progressDone       = 1.0
)

// Process runs the full pipeline for one request. Segmentation failure and
// classification failure are independent: a broken classifier model turns
// into a warning unless generation explicitly depends on it, and never
// poisons the compositing result.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	jobID := ksuid.New().String()
	log := p.log.With().Str("job_id", jobID).Str("source", req.Source).Logger()
	result := &Result{JobID: jobID}

	report := func(fraction float64, message string) {
		if req.Progress != nil {
			req.Progress(fraction, message)
		}
	}

	img, err := p.loader.Load(ctx, req.Source, types.RoleSource)
	if err != nil {
		return nil, fmt.Errorf("load stage: %w", err)
	}
	report(progressLoaded, "image loaded")

	strategy := req.Strategy
	if strategy == "" {
		strategy = types.ModelPortrait
	}
	mask, err := p.segmenter.Segment(ctx, img, strategy, req.Threshold)
	if err != nil {
		return nil, fmt.Errorf("segmentation stage: %w", err)
	}
	report(progressSegmented, "foreground mask ready")

	comp := compose.New(
		compose.WithLogger(log),
		compose.WithImageLoader(p.loader),
		compose.WithWarnHandler(func(msg string) {
			result.Warnings = append(result.Warnings, msg)
		}),
	)

	if req.AutoCrop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, mask = comp.AutoCropAligned(img, mask, req.Padding)
	}
	report(progressCropped, "auto-crop done")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Background != nil {
		processed, err := comp.ReplaceBackground(ctx, img, mask, req.Background)
		if err != nil {
			return nil, fmt.Errorf("compositing stage: %w", err)
		}
		result.Image = processed
	} else {
		result.Image = comp.RemoveBackground(img, mask, color.NRGBA{}, color.NRGBA{})
	}
	report(progressComposited, "background processed")

	needCategory := req.Classify || req.GenerateModel != ""
	if needCategory {
		category, err := p.classifyStage(ctx, result.Image, req.ConfidenceThreshold)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// Classification is its own failure domain: the composited
			// image is still good, so keep going with a warning.
			log.Warn().Err(err).Msg("classification failed, continuing without category")
			result.Warnings = append(result.Warnings, fmt.Sprintf("classification failed: %v", err))
		} else {
			result.Category = category
		}
	}
	report(progressClassified, "classification done")

	if req.GenerateModel != "" {
		generated, err := p.generateStage(ctx, req, result)
		if err != nil {
			return nil, fmt.Errorf("generation stage: %w", err)
		}
		result.Generated = generated
	}
	report(progressDone, "pipeline complete")

	log.Info().
		Bool("cropped", req.AutoCrop).
		Bool("classified", result.Category != nil).
		Bool("generated", result.Generated != nil).
		Int("warnings", len(result.Warnings)).
		Msg("pipeline finished")
	return result, nil
}

func (p *Pipeline) classifyStage(ctx context.Context, img image.Image, threshold float64) (*types.ProductCategoryResult, error) {
	if p.classify == nil {
		return nil, fmt.Errorf("no classifier configured")
	}
	return p.classify.Classify(ctx, img, threshold)
}

func (p *Pipeline) generateStage(ctx context.Context, req Request, result *Result) (*generate.Result, error) {
	if p.generator == nil {
		return nil, fmt.Errorf("no generation backend configured")
	}
	if p.encoder == nil {
		return nil, fmt.Errorf("no image encoder configured")
	}

	category := types.CategoryCustom
	product := ""
	if result.Category != nil {
		category = result.Category.BestCategory
		product = result.Category.SuggestedName
	}

	encoded, err := p.encoder.EncodeForModel(result.Image, "png", 1024, 0)
	if err != nil {
		return nil, fmt.Errorf("encoding processed image: %w", err)
	}

	return p.generator.Generate(ctx, generate.Request{
		Model: req.GenerateModel,
		Prompt: prompt.Build(category, prompt.Vars{
			Product:    product,
			Style:      req.Style,
			Background: backgroundDescription(req.Background),
		}),
		Image: encoded,
	})
}

// backgroundDescription renders the request's background as a short fragment
// for the {background} prompt placeholder.
func backgroundDescription(spec types.BackgroundSpec) string {
	switch spec.(type) {
	case types.SolidBackground:
		return "clean solid-color backdrop"
	case types.GradientBackground:
		return "smooth gradient backdrop"
	case types.ImageBackground:
		return "styled scene backdrop"
	case types.BlurBackground:
		return "softly blurred backdrop"
	default:
		return "transparent background"
	}
}
