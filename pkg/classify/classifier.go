// Package classify maps a product photo to a small closed set of product
// categories. The classification model yields raw labels with probabilities;
// those are ranked, threshold-filtered and folded through a static label
// table into per-category confidence scores.
package classify

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pixelform/studio/pkg/model"
	"github.com/pixelform/studio/pkg/types"
)

// TopK is how many raw predictions survive ranking before threshold
// filtering.
const TopK = 10

// ImageLoader resolves a batch item's source string into a decoded bitmap.
type ImageLoader interface {
	Load(ctx context.Context, source string, role types.ImageRole) (image.Image, error)
}

// PredictFunc runs the classification model over a decoded image and returns
// raw predictions in model output order.
type PredictFunc func(ctx context.Context, img image.Image) ([]types.ClassificationPrediction, error)

// Classifier ranks and aggregates raw model predictions into product
// categories.
type Classifier struct {
	cache   *model.Cache
	log     zerolog.Logger
	loader  ImageLoader
	predict PredictFunc
	titler  cases.Caser
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithLogger sets the classifier logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Classifier) { c.log = log }
}

// WithImageLoader supplies the loader used to decode batch item sources.
func WithImageLoader(loader ImageLoader) Option {
	return func(c *Classifier) { c.loader = loader }
}

// WithPredictFunc replaces the model-backed prediction step.
func WithPredictFunc(fn PredictFunc) Option {
	return func(c *Classifier) { c.predict = fn }
}

// New creates a Classifier backed by the given model cache.
func New(cache *model.Cache, opts ...Option) *Classifier {
	c := &Classifier{
		cache:  cache,
		log:    zerolog.Nop(),
		titler: cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.predict == nil {
		c.predict = c.modelPredict
	}
	return c
}

// Classify runs the classification model over img and aggregates the top
// predictions into a ProductCategoryResult. Predictions below
// confidenceThreshold are excluded from aggregation; the suggested name is
// derived from the single best raw prediction before thresholding.
func (c *Classifier) Classify(ctx context.Context, img image.Image, confidenceThreshold float64) (*types.ProductCategoryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	preds, err := c.predict(ctx, img)
	if err != nil {
		return nil, err
	}
	top := topPredictions(preds, TopK)

	result := Aggregate(top, confidenceThreshold)
	if len(top) > 0 {
		result.SuggestedName = c.suggestedName(top[0].Label)
	}
	c.log.Debug().
		Str("category", result.BestCategory).
		Float64("confidence", result.BestConfidence).
		Int("evidence", len(result.EvidenceLabels)).
		Msg("classified image")
	return &result, nil
}

// ClassifyBatch classifies sources one at a time. A failed item leaves a nil
// result at its index and is recorded in the returned failure list; the batch
// never aborts for one bad image. Progress is reported once per item with a
// non-decreasing fraction. Cancellation is honored between items.
func (c *Classifier) ClassifyBatch(ctx context.Context, sources []string, confidenceThreshold float64, progress types.Progress) ([]*types.ProductCategoryResult, []*types.BatchItemError, error) {
	results := make([]*types.ProductCategoryResult, len(sources))
	var failures []*types.BatchItemError

	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return results, failures, err
		}

		result, err := c.classifySource(ctx, source, confidenceThreshold)
		if err != nil {
			failures = append(failures, &types.BatchItemError{Index: i, Err: err})
			c.log.Warn().Err(err).Int("index", i).Str("source", source).
				Msg("batch item failed, continuing")
		} else {
			results[i] = result
		}

		if progress != nil {
			progress(float64(i+1)/float64(len(sources)),
				fmt.Sprintf("classified %d/%d", i+1, len(sources)))
		}
	}
	return results, failures, nil
}

func (c *Classifier) classifySource(ctx context.Context, source string, confidenceThreshold float64) (*types.ProductCategoryResult, error) {
	if c.loader == nil {
		return nil, &types.ImageDecodeError{
			Role:   types.RoleSource,
			Source: source,
			Err:    fmt.Errorf("no image loader configured"),
		}
	}
	img, err := c.loader.Load(ctx, source, types.RoleSource)
	if err != nil {
		return nil, err
	}
	return c.Classify(ctx, img, confidenceThreshold)
}

// modelPredict is the default prediction step: preprocess, run the cached
// classifier model and pair the softmaxed output with its label list.
func (c *Classifier) modelPredict(ctx context.Context, img image.Image) ([]types.ClassificationPrediction, error) {
	h, err := c.cache.Get(ctx, types.ModelClassifier, nil)
	if err != nil {
		return nil, err
	}

	output, err := h.Run(modelInput(img, h.InputSize, h.Mean, h.Std))
	if err != nil {
		return nil, err
	}

	probs := softmax(output)
	n := len(probs)
	if len(h.Classes) < n {
		n = len(h.Classes)
	}
	preds := make([]types.ClassificationPrediction, n)
	for i := 0; i < n; i++ {
		preds[i] = types.ClassificationPrediction{
			Label:       h.Classes[i],
			Probability: probs[i],
		}
	}
	return preds, nil
}

// Aggregate folds raw predictions into a category result. Predictions below
// threshold are dropped entirely; surviving labels land in EvidenceLabels
// whether or not they map to a category. Category confidence is the
// arithmetic mean of its contributing probabilities, so a pile of weak labels
// cannot outrank one strong one.
func Aggregate(preds []types.ClassificationPrediction, threshold float64) types.ProductCategoryResult {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string
	var evidence []string

	for _, p := range preds {
		if p.Probability < threshold {
			continue
		}
		evidence = append(evidence, p.Label)
		cat, ok := CategoryFor(p.Label)
		if !ok {
			continue
		}
		if counts[cat] == 0 {
			order = append(order, cat)
		}
		sums[cat] += p.Probability
		counts[cat]++
	}

	scores := make([]types.CategoryScore, 0, len(order))
	for _, cat := range order {
		scores = append(scores, types.CategoryScore{
			Category:   cat,
			Confidence: sums[cat] / float64(counts[cat]),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})

	result := types.ProductCategoryResult{
		BestCategory:   types.CategoryCustom,
		EvidenceLabels: evidence,
	}
	if len(scores) > 0 {
		result.BestCategory = scores[0].Category
		result.BestConfidence = scores[0].Confidence
		result.Alternatives = scores[1:]
	}
	return result
}

// topPredictions ranks predictions by probability descending and keeps the
// first k. The sort is stable so ties keep model output order.
func topPredictions(preds []types.ClassificationPrediction, k int) []types.ClassificationPrediction {
	ranked := make([]types.ClassificationPrediction, len(preds))
	copy(ranked, preds)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// suggestedName turns the best raw label into a user-editable default
// product name: synonym suffix stripped, each word title-cased.
func (c *Classifier) suggestedName(label string) string {
	return c.titler.String(primaryName(label))
}

func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - max))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// modelInput resizes an image to the model's square input plane and converts
// it to a normalized CHW float32 tensor.
func modelInput(img image.Image, size int, mean, std [3]float32) []float32 {
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
