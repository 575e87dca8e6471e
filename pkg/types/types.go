package types

import "image/color"

// Backend identifies the numeric compute target used for model inference.
type Backend string

const (
	// BackendGPU runs inference through the CUDA execution provider.
	BackendGPU Backend = "gpu"
	// BackendPortable runs inference on the CPU and is always available.
	BackendPortable Backend = "portable"
	// BackendExperimental runs inference through the TensorRT execution
	// provider where present.
	BackendExperimental Backend = "experimental"
)

// Precision is a quality/speed tradeoff affecting model internal resolution
// and weight variants.
type Precision string

const (
	PrecisionHigh   Precision = "high"
	PrecisionMedium Precision = "medium"
	PrecisionLow    Precision = "low"
)

// MemoryPolicy controls how aggressively inference buffers are released.
type MemoryPolicy string

const (
	// MemoryAggressive frees buffers immediately after each inference.
	MemoryAggressive MemoryPolicy = "aggressive"
	// MemoryBalanced keeps a moderate amount of buffers warm.
	MemoryBalanced MemoryPolicy = "balanced"
	// MemoryThroughput retains buffers for repeated inference at the cost
	// of a larger resident footprint.
	MemoryThroughput MemoryPolicy = "throughput"
)

// PerformanceProfile bundles the compute backend choice with precision and
// memory policies. A profile is captured when a model is loaded; changing it
// afterwards does not reconfigure already-loaded models.
type PerformanceProfile struct {
	Backend      Backend      `json:"backend"`
	Precision    Precision    `json:"precision"`
	MemoryPolicy MemoryPolicy `json:"memory_policy"`
}

// DefaultProfile returns the profile used when the caller does not care:
// portable backend, medium precision, balanced memory.
func DefaultProfile() PerformanceProfile {
	return PerformanceProfile{
		Backend:      BackendPortable,
		Precision:    PrecisionMedium,
		MemoryPolicy: MemoryBalanced,
	}
}

// ModelKind selects one of the interchangeable segmentation models or the
// product classifier.
type ModelKind string

const (
	// ModelPortrait is tuned for a single dominant subject.
	ModelPortrait ModelKind = "portrait"
	// ModelObject is a general-object segmentation model producing a
	// per-pixel label map.
	ModelObject ModelKind = "object"
	// ModelFast is the lightweight fallback. It has no weights; the
	// segmentation engine synthesizes a mask from a border-color heuristic.
	ModelFast ModelKind = "fast"
	// ModelClassifier is the product-category classification model.
	ModelClassifier ModelKind = "classifier"
)

// Progress reports fractional completion of a long-running operation.
// Fraction is in [0,1] and never decreases within one operation.
type Progress func(fraction float64, message string)

// Anchor is a fractional position inside an image, (0.5, 0.5) being the
// center.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AnchorCenter is the default anchor for cover-fit backgrounds.
var AnchorCenter = Anchor{X: 0.5, Y: 0.5}

// GradientDirection names the axis a linear gradient runs along.
type GradientDirection string

const (
	GradientToBottom      GradientDirection = "to bottom"
	GradientToTop         GradientDirection = "to top"
	GradientToRight       GradientDirection = "to right"
	GradientToLeft        GradientDirection = "to left"
	GradientToBottomRight GradientDirection = "to bottom right"
)

// BackgroundSpec describes the replacement background for a composite. It is
// a closed set of variants; each variant carries only the fields that make
// sense for it, so invalid combinations cannot be expressed.
type BackgroundSpec interface {
	backgroundSpec()
}

// SolidBackground fills the background with a single color.
type SolidBackground struct {
	Color color.NRGBA
}

// GradientBackground fills the background with a linear gradient. Stops are
// spaced evenly along Direction; at least one stop is required.
type GradientBackground struct {
	Stops     []color.NRGBA
	Direction GradientDirection
}

// ImageBackground fills the background with an image scaled to cover the
// canvas, anchored at a fractional position.
type ImageBackground struct {
	Source string
	Scale  float64
	Anchor Anchor
}

// BlurBackground fills the background with a blurred copy of the original
// source image, blended at Opacity. Source is optional; when empty the
// in-hand source image is used.
type BlurBackground struct {
	Source  string
	Radius  float64
	Opacity float64
}

func (SolidBackground) backgroundSpec()    {}
func (GradientBackground) backgroundSpec() {}
func (ImageBackground) backgroundSpec()    {}
func (BlurBackground) backgroundSpec()     {}

// DefaultSolid is the default solid background (white).
func DefaultSolid() SolidBackground {
	return SolidBackground{Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255}}
}

// DefaultGradient is the default two-stop blue-to-purple gradient.
func DefaultGradient() GradientBackground {
	return GradientBackground{
		Stops: []color.NRGBA{
			{R: 59, G: 130, B: 246, A: 255},
			{R: 139, G: 92, B: 246, A: 255},
		},
		Direction: GradientToBottom,
	}
}

// DefaultBlur is the default blurred-original background: 10px radius at
// full opacity.
func DefaultBlur() BlurBackground {
	return BlurBackground{Radius: 10, Opacity: 1}
}

// ClassificationPrediction is one raw model output: a label and its
// probability in [0,1].
type ClassificationPrediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// CategoryScore pairs a product category with its aggregated confidence.
type CategoryScore struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// CategoryCustom is the sentinel category used when no raw label maps to a
// known product category.
const CategoryCustom = "custom"

// ProductCategoryResult is the outcome of one classification call.
// Alternatives excludes BestCategory and is sorted by confidence descending.
// EvidenceLabels lists every raw label that survived threshold filtering,
// mapped or not.
type ProductCategoryResult struct {
	BestCategory   string          `json:"best_category"`
	BestConfidence float64         `json:"best_confidence"`
	Alternatives   []CategoryScore `json:"alternatives"`
	EvidenceLabels []string        `json:"evidence_labels"`
	SuggestedName  string          `json:"suggested_name"`
}
