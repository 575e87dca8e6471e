// Package model lazily loads and memoizes the segmentation models and the
// product classifier. Each kind is downloaded and initialized at most once;
// concurrent requests for the same kind coalesce onto a single load. The
// segmentation kinds and the classifier are independent failure domains: a
// failed classifier download never poisons a segmentation load.
package model

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sync/singleflight"

	"github.com/pixelform/studio/pkg/backend"
	"github.com/pixelform/studio/pkg/types"
)

// LoadFunc produces a handle for one model kind. Replaceable for tests.
type LoadFunc func(ctx context.Context, kind types.ModelKind, profile types.PerformanceProfile, progress types.Progress) (*Handle, error)

// Cache memoizes model handles per kind. The performance profile is captured
// at construction; a model loaded under it keeps its numeric configuration
// until Clear evicts it and a later Get reloads under the then-current
// profile.
type Cache struct {
	dir      string
	profile  types.PerformanceProfile
	selector *backend.Selector
	log      zerolog.Logger
	load     LoadFunc

	// mu guards group, gen and handles. Clear swaps the group pointer and
	// bumps gen; a load started before the swap checks gen before caching,
	// so a stale in-flight load never lands in the fresh map.
	mu      sync.RWMutex
	group   *singleflight.Group
	gen     uint64
	handles map[types.ModelKind]*Handle

	httpClient *http.Client
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(log zerolog.Logger) CacheOption {
	return func(c *Cache) { c.log = log }
}

// WithLoader replaces the real download-and-initialize path. Used by tests
// to count loads and to avoid touching the network.
func WithLoader(load LoadFunc) CacheOption {
	return func(c *Cache) { c.load = load }
}

// NewCache creates a cache storing downloaded weights under dir. The
// selector supplies per-backend session options at load time; it may be nil,
// in which case models run on the runtime's default target.
func NewCache(dir string, selector *backend.Selector, profile types.PerformanceProfile, opts ...CacheOption) *Cache {
	c := &Cache{
		dir:        dir,
		profile:    profile,
		selector:   selector,
		log:        zerolog.Nop(),
		group:      new(singleflight.Group),
		handles:    make(map[types.ModelKind]*Handle),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
	c.load = c.loadModel
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached handle for kind, loading it on first request.
// Progress is reported at three milestones at least: ~10% when the load
// starts, ~30% mid-load and 100% when the handle is ready. When several
// callers race for an uncached kind, only the winning call's progress
// callback fires.
func (c *Cache) Get(ctx context.Context, kind types.ModelKind, progress types.Progress) (*Handle, error) {
	c.mu.RLock()
	if h, ok := c.handles[kind]; ok {
		c.mu.RUnlock()
		if progress != nil {
			progress(1, fmt.Sprintf("%s model cached", kind))
		}
		return h, nil
	}
	group, gen := c.group, c.gen
	c.mu.RUnlock()

	// The shared load runs detached from the winning caller's context, so
	// one caller canceling never fails the coalesced waiters. Each caller
	// still observes its own cancellation through the select below.
	loadCtx := context.WithoutCancel(ctx)
	ch := group.DoChan(string(kind), func() (any, error) {
		h, err := c.load(loadCtx, kind, c.profile, progress)
		if err != nil {
			return nil, &types.ModelLoadError{Kind: kind, Err: err}
		}
		c.mu.Lock()
		if c.gen == gen {
			c.handles[kind] = h
		}
		c.mu.Unlock()
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	}
}

// Clear evicts every cached handle. Safe to call while Gets are in flight:
// handles already held by callers remain valid, loads started before the
// call complete for their waiters but are not re-cached, and the next Get
// for any kind reloads.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.handles = make(map[types.ModelKind]*Handle)
	c.group = new(singleflight.Group)
	c.gen++
	c.mu.Unlock()
}

// loadModel is the real load path: resolve the weight variant for the
// captured precision, download if absent, then build the inference session.
func (c *Cache) loadModel(ctx context.Context, kind types.ModelKind, profile types.PerformanceProfile, progress types.Progress) (*Handle, error) {
	report := func(fraction float64, message string) {
		if progress != nil {
			progress(fraction, message)
		}
	}
	report(0.10, fmt.Sprintf("preparing %s model", kind))

	// The fast strategy carries no weights; its handle only tags the kind.
	if kind == types.ModelFast {
		report(1, "fast model ready")
		return &Handle{Kind: kind}, nil
	}

	spec, ok := specs[kind]
	if !ok {
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}

	report(0.30, fmt.Sprintf("fetching %s weights", kind))
	weightsPath, err := c.ensureFile(ctx, spec.weightsFor(profile.Precision))
	if err != nil {
		return nil, fmt.Errorf("fetch weights: %w", err)
	}

	var classes []string
	if spec.labels != "" {
		labelsPath, err := c.ensureFile(ctx, spec.labels)
		if err != nil {
			return nil, fmt.Errorf("fetch labels: %w", err)
		}
		classes, err = readLabels(labelsPath)
		if err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		if len(classes) != spec.channels {
			return nil, fmt.Errorf("label count %d does not match output size %d", len(classes), spec.channels)
		}
	}

	inputSize := spec.inputSizeFor(profile.Precision)
	handle, err := c.newSession(kind, spec, weightsPath, inputSize, classes)
	if err != nil {
		return nil, err
	}

	report(1, fmt.Sprintf("%s model ready", kind))
	c.log.Info().
		Str("kind", string(kind)).
		Str("precision", string(profile.Precision)).
		Int("input_size", inputSize).
		Msg("model loaded")
	return handle, nil
}

func (c *Cache) newSession(kind types.ModelKind, spec modelSpec, weightsPath string, inputSize int, classes []string) (*Handle, error) {
	var options *ort.SessionOptions
	if c.selector != nil {
		var err error
		options, err = c.selector.SessionOptions()
		if err != nil {
			return nil, err
		}
		defer options.Destroy()
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputSize), int64(inputSize)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(spec.channels), int64(inputSize), int64(inputSize))
	if kind == types.ModelClassifier {
		outputShape = ort.NewShape(1, int64(spec.channels))
	}
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(weightsPath,
		[]string{spec.inputName}, []string{spec.outputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		options)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Handle{
		Kind:      kind,
		InputSize: inputSize,
		Channels:  spec.channels,
		Classes:   classes,
		Mean:      spec.mean,
		Std:       spec.std,
		session:   session,
		input:     input,
		output:    output,
	}, nil
}

// ensureFile downloads url into the cache directory unless already present
// and returns the local path.
func (c *Cache) ensureFile(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, filepath.Base(url))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(c.dir, "download-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// readLabels parses a synset-style label file: one label per line, an
// optional identifier before the first space.
func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if i := strings.IndexByte(line, ' '); i > 0 && strings.HasPrefix(line, "n") {
			line = line[i+1:]
		}
		labels = append(labels, line)
	}
	return labels, scanner.Err()
}
