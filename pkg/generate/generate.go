// Package generate hands a processed product photo and a templated prompt to
// a remote image-capable model. The protocol internals are the backend's
// business; this package only carries the call contract the pipeline needs.
package generate

import "context"

// Request is one generation hand-off: the processed image plus the prompt
// built from the classifier's category.
type Request struct {
	// Model names the remote model to run.
	Model string
	// Prompt is the fully templated prompt string.
	Prompt string
	// Image is the processed product photo, PNG or JPEG encoded.
	Image []byte
}

// Result is the backend's response.
type Result struct {
	// Text is the model's textual output.
	Text string
}

// Generator ships a Request to a generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
