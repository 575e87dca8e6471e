package classify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelform/studio/pkg/types"
)

func pred(label string, probability float64) types.ClassificationPrediction {
	return types.ClassificationPrediction{Label: label, Probability: probability}
}

func TestAggregateMeanConfidence(t *testing.T) {
	preds := []types.ClassificationPrediction{
		pred("jersey", 0.9),
		pred("cardigan", 0.3),
	}
	result := Aggregate(preds, 0)

	assert.Equal(t, "clothing", result.BestCategory)
	assert.InDelta(t, 0.6, result.BestConfidence, 1e-9, "mean, not sum")
	assert.Empty(t, result.Alternatives)
	assert.Equal(t, []string{"jersey", "cardigan"}, result.EvidenceLabels)
}

func TestAggregateManyWeakLabelsDoNotOutrankOneStrong(t *testing.T) {
	preds := []types.ClassificationPrediction{
		pred("laptop", 0.8),
		pred("jersey", 0.2),
		pred("cardigan", 0.2),
		pred("kimono", 0.2),
	}
	result := Aggregate(preds, 0)

	assert.Equal(t, "electronics", result.BestCategory)
	assert.InDelta(t, 0.8, result.BestConfidence, 1e-9)
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, "clothing", result.Alternatives[0].Category)
	assert.InDelta(t, 0.2, result.Alternatives[0].Confidence, 1e-9)
}

func TestAggregateUnmappedLabelsStayAsEvidence(t *testing.T) {
	preds := []types.ClassificationPrediction{
		pred("laptop", 0.7),
		pred("orangutan", 0.6),
	}
	result := Aggregate(preds, 0)

	assert.Equal(t, "electronics", result.BestCategory)
	assert.Contains(t, result.EvidenceLabels, "orangutan", "unmapped but above threshold")
}

func TestAggregateNothingMappedIsCustom(t *testing.T) {
	preds := []types.ClassificationPrediction{
		pred("orangutan", 0.9),
		pred("volcano", 0.5),
	}
	result := Aggregate(preds, 0)

	assert.Equal(t, types.CategoryCustom, result.BestCategory)
	assert.Zero(t, result.BestConfidence)
	assert.Empty(t, result.Alternatives)
	assert.Len(t, result.EvidenceLabels, 2)
}

func TestAggregateThresholdNeverAddsAlternatives(t *testing.T) {
	preds := []types.ClassificationPrediction{
		pred("jersey", 0.9),
		pred("laptop", 0.5),
		pred("basketball", 0.3),
		pred("teddy", 0.25),
	}

	low := Aggregate(preds, 0.2)
	high := Aggregate(preds, 0.8)

	assert.LessOrEqual(t, len(high.Alternatives), len(low.Alternatives))
	assert.Equal(t, "clothing", low.BestCategory)
	assert.Equal(t, "clothing", high.BestCategory, "surviving best evidence keeps the best category")
}

func TestTopPredictionsStableRanking(t *testing.T) {
	preds := []types.ClassificationPrediction{
		pred("first", 0.5),
		pred("second", 0.5),
		pred("third", 0.9),
	}
	top := topPredictions(preds, 2)

	require.Len(t, top, 2)
	assert.Equal(t, "third", top[0].Label)
	assert.Equal(t, "first", top[1].Label, "ties keep model output order")
}

func TestCategoryForStripsSynonyms(t *testing.T) {
	cat, ok := CategoryFor("running shoe, sneaker")
	require.True(t, ok)
	assert.Equal(t, "footwear", cat)

	_, ok = CategoryFor("orangutan, orang, orangutang")
	assert.False(t, ok)
}

func TestClassifySuggestedName(t *testing.T) {
	c := New(nil, WithPredictFunc(func(context.Context, image.Image) ([]types.ClassificationPrediction, error) {
		return []types.ClassificationPrediction{
			pred("running shoe, sneaker", 0.85),
			pred("loafer", 0.1),
		}, nil
	}))

	result, err := c.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)), 0.5)
	require.NoError(t, err)

	assert.Equal(t, "footwear", result.BestCategory)
	assert.Equal(t, "Running Shoe", result.SuggestedName, "synonyms stripped, title-cased")
}

func TestClassifySuggestedNameIgnoresThreshold(t *testing.T) {
	c := New(nil, WithPredictFunc(func(context.Context, image.Image) ([]types.ClassificationPrediction, error) {
		return []types.ClassificationPrediction{pred("teddy, teddy bear", 0.2)}, nil
	}))

	result, err := c.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)), 0.9)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryCustom, result.BestCategory, "all evidence filtered out")
	assert.Equal(t, "Teddy", result.SuggestedName, "name comes from the raw best prediction")
}

// flakyLoader fails for sources it was told to fail.
type flakyLoader struct {
	fail map[string]bool
}

func (f *flakyLoader) Load(_ context.Context, source string, role types.ImageRole) (image.Image, error) {
	if f.fail[source] {
		return nil, &types.ImageDecodeError{Role: role, Source: source, Err: errors.New("corrupt data")}
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func TestClassifyBatchIsolatesFailures(t *testing.T) {
	loader := &flakyLoader{fail: map[string]bool{"img3.png": true}}
	c := New(nil,
		WithImageLoader(loader),
		WithPredictFunc(func(context.Context, image.Image) ([]types.ClassificationPrediction, error) {
			return []types.ClassificationPrediction{pred("laptop", 0.9)}, nil
		}),
	)

	sources := []string{"img1.png", "img2.png", "img3.png", "img4.png", "img5.png"}
	var fractions []float64
	results, failures, err := c.ClassifyBatch(context.Background(), sources, 0.2,
		func(fraction float64, _ string) { fractions = append(fractions, fraction) })
	require.NoError(t, err)

	require.Len(t, results, 5)
	assert.Nil(t, results[2], "corrupt image leaves a gap at its index")
	for _, i := range []int{0, 1, 3, 4} {
		require.NotNil(t, results[i], "index %d", i)
		assert.Equal(t, "electronics", results[i].BestCategory)
	}

	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].Index)
	var decodeErr *types.ImageDecodeError
	assert.ErrorAs(t, failures[0], &decodeErr)

	require.Len(t, fractions, 5, "one progress call per item")
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.InDelta(t, 1.0, fractions[4], 1e-9)
}

func TestClassifyBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	c := New(nil,
		WithImageLoader(&flakyLoader{}),
		WithPredictFunc(func(context.Context, image.Image) ([]types.ClassificationPrediction, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return []types.ClassificationPrediction{pred("laptop", 0.9)}, nil
		}),
	)

	sources := make([]string, 6)
	for i := range sources {
		sources[i] = fmt.Sprintf("img%d.png", i)
	}
	_, _, err := c.ClassifyBatch(ctx, sources, 0.2, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls, "stops at the next item boundary")
}
