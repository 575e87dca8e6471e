// Package backend selects and initializes the numeric compute target used
// for model inference. The requested backend is probed once; if it is not
// available on this machine the selector falls back to the portable CPU
// target and surfaces a warning instead of failing, so the segmentation
// pipeline degrades rather than crashes.
package backend

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/pixelform/studio/pkg/types"
)

// Buffer retention thresholds per memory policy, in bytes. Aggressive frees
// everything immediately; throughput keeps inference buffers warm.
const (
	retentionAggressive = 0
	retentionBalanced   = 64 << 20
	retentionThroughput = 512 << 20
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// ensureRuntime forces the shared ONNX runtime environment to initialize
// exactly once for the process.
func ensureRuntime() error {
	runtimeOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		runtimeErr = ort.InitializeEnvironment()
	})
	return runtimeErr
}

// Selector holds the active backend choice and the numeric policies derived
// from the last applied PerformanceProfile.
type Selector struct {
	mu               sync.Mutex
	log              zerolog.Logger
	requested        types.Backend
	active           types.Backend
	reducedPrecision bool
	retentionBytes   int64
	configured       bool

	probe func(types.Backend) error
	warm  func() error
}

// Option customizes a Selector.
type Option func(*Selector)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Selector) { s.log = log }
}

// WithProbe replaces the backend availability check. Used by tests to
// simulate machines without GPU support.
func WithProbe(probe func(types.Backend) error) Option {
	return func(s *Selector) { s.probe = probe }
}

// WithWarmup replaces the post-configuration warm-up computation.
func WithWarmup(warm func() error) Option {
	return func(s *Selector) { s.warm = warm }
}

// New returns a Selector in its unconfigured state. The portable backend is
// assumed until Configure is called.
func New(opts ...Option) *Selector {
	s := &Selector{
		log:            zerolog.Nop(),
		active:         types.BackendPortable,
		retentionBytes: retentionBalanced,
	}
	s.probe = s.probeProvider
	s.warm = warmup
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure applies a performance profile. It is idempotent per backend
// choice: a repeated call with the same backend skips re-registration and
// only refreshes the precision and memory flags. An unavailable backend is
// never an error; the selector falls back to the portable target and
// returns a non-empty warning.
func (s *Selector) Configure(profile types.PerformanceProfile) (warning string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reducedPrecision = profile.Precision == types.PrecisionLow
	switch profile.MemoryPolicy {
	case types.MemoryAggressive:
		s.retentionBytes = retentionAggressive
	case types.MemoryThroughput:
		s.retentionBytes = retentionThroughput
	default:
		s.retentionBytes = retentionBalanced
	}

	if s.configured && profile.Backend == s.requested {
		return "", nil
	}

	s.requested = profile.Backend
	s.active = profile.Backend
	if probeErr := s.probe(profile.Backend); probeErr != nil {
		s.active = types.BackendPortable
		warning = fmt.Sprintf("backend %s unavailable, falling back to %s: %v",
			profile.Backend, types.BackendPortable, probeErr)
		s.log.Warn().
			Str("requested", string(profile.Backend)).
			Str("active", string(s.active)).
			Err(probeErr).
			Msg("compute backend unavailable, using portable fallback")
	}
	s.configured = true

	// Force lazy backend initialization now instead of on the first real
	// inference.
	if warmErr := s.warm(); warmErr != nil {
		s.log.Warn().Err(warmErr).Msg("backend warm-up failed")
	}

	return warning, nil
}

// Active returns the backend actually in use, which differs from the
// requested one after a fallback.
func (s *Selector) Active() types.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ReducedPrecision reports whether low-precision numeric mode is on.
func (s *Selector) ReducedPrecision() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reducedPrecision
}

// RetentionBytes returns the buffer retention threshold derived from the
// memory policy.
func (s *Selector) RetentionBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retentionBytes
}

// SessionOptions builds ONNX session options for the active backend. The
// caller owns the returned options and must destroy them after session
// creation.
func (s *Selector) SessionOptions() (*ort.SessionOptions, error) {
	s.mu.Lock()
	active := s.active
	retention := s.retentionBytes
	reduced := s.reducedPrecision
	s.mu.Unlock()

	if err := ensureRuntime(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}

	switch active {
	case types.BackendGPU:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return nil, fmt.Errorf("create CUDA provider options: %w", err)
		}
		defer cudaOpts.Destroy()
		if retention > 0 {
			if err := cudaOpts.Update(map[string]string{
				"gpu_mem_limit": fmt.Sprintf("%d", retention),
			}); err != nil {
				options.Destroy()
				return nil, fmt.Errorf("set CUDA memory limit: %w", err)
			}
		}
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("register CUDA provider: %w", err)
		}
	case types.BackendExperimental:
		trtOpts, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			options.Destroy()
			return nil, fmt.Errorf("create TensorRT provider options: %w", err)
		}
		defer trtOpts.Destroy()
		settings := map[string]string{}
		if reduced {
			settings["trt_fp16_enable"] = "1"
		}
		if len(settings) > 0 {
			if err := trtOpts.Update(settings); err != nil {
				options.Destroy()
				return nil, fmt.Errorf("set TensorRT options: %w", err)
			}
		}
		if err := options.AppendExecutionProviderTensorRT(trtOpts); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("register TensorRT provider: %w", err)
		}
	}

	return options, nil
}

// probeProvider checks that the requested execution provider can actually be
// registered on this machine.
func (s *Selector) probeProvider(b types.Backend) error {
	if b == types.BackendPortable {
		return nil
	}
	if err := ensureRuntime(); err != nil {
		return err
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		return err
	}
	defer options.Destroy()

	switch b {
	case types.BackendGPU:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cudaOpts.Destroy()
		return options.AppendExecutionProviderCUDA(cudaOpts)
	case types.BackendExperimental:
		trtOpts, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return err
		}
		defer trtOpts.Destroy()
		return options.AppendExecutionProviderTensorRT(trtOpts)
	default:
		return fmt.Errorf("unknown backend %q", b)
	}
}

// warmup allocates and immediately frees a small zero-filled tensor.
func warmup() error {
	if err := ensureRuntime(); err != nil {
		return err
	}
	tensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 8, 8))
	if err != nil {
		return err
	}
	return tensor.Destroy()
}
