package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/pixelform/studio/pkg/types"
)

// Handle is an opaque reference to a loaded model. Handles are created by
// the Cache, never mutated afterwards, and stay valid even if the cache
// entry that produced them is cleared.
type Handle struct {
	// Kind identifies which model this handle wraps.
	Kind types.ModelKind
	// InputSize is the square side length of the model's input plane,
	// chosen from the performance profile active at load time.
	InputSize int
	// Channels is the number of output channels: 1 for the portrait
	// matte, the label count for the object model, the class count for
	// the classifier.
	Channels int
	// Classes holds the classifier's raw output labels, index-aligned
	// with the output vector. Empty for segmentation models.
	Classes []string
	// Mean and Std are the per-channel input normalization constants.
	Mean [3]float32
	Std  [3]float32

	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// Run copies inputData into the model's input tensor, executes one
// inference and returns a copy of the output vector. The copy keeps the
// handle's tensors private so concurrent callers cannot observe each
// other's results.
func (h *Handle) Run(inputData []float32) ([]float32, error) {
	if h.session == nil {
		return nil, fmt.Errorf("model %s has no inference session", h.Kind)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	in := h.input.GetData()
	if len(inputData) != len(in) {
		return nil, fmt.Errorf("model %s: expected %d input values, got %d",
			h.Kind, len(in), len(inputData))
	}
	copy(in, inputData)

	if err := h.session.Run(); err != nil {
		return nil, fmt.Errorf("model %s: inference failed: %w", h.Kind, err)
	}

	out := h.output.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

// Close releases the handle's session and tensors. Safe on weightless
// handles.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.input != nil {
		h.input.Destroy()
		h.input = nil
	}
	if h.output != nil {
		h.output.Destroy()
		h.output = nil
	}
	if h.session != nil {
		h.session.Destroy()
		h.session = nil
	}
}
