package types

import "fmt"

// ImageRole names the part an image played in an operation, so decode
// failures can point at the right input.
type ImageRole string

const (
	RoleSource     ImageRole = "source"
	RoleBackground ImageRole = "background"
	RoleOriginal   ImageRole = "original"
)

// ModelLoadError reports that a named model failed to download or
// initialize. It is fatal for the operation that requested the model but
// must not take down operations on other model kinds.
type ModelLoadError struct {
	Kind ModelKind
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model %s: load failed: %v", e.Kind, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// ImageDecodeError reports that an image could not be loaded into a drawable
// bitmap. Role tells the caller which input failed.
type ImageDecodeError struct {
	Role   ImageRole
	Source string
	Err    error
}

func (e *ImageDecodeError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s image %q: decode failed: %v", e.Role, e.Source, e.Err)
	}
	return fmt.Sprintf("%s image: decode failed: %v", e.Role, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

// BatchItemError records the failure of a single element in a batch call.
// It is isolated: the batch continues past it.
type BatchItemError struct {
	Index int
	Err   error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("batch item %d: %v", e.Index, e.Err)
}

func (e *BatchItemError) Unwrap() error { return e.Err }
