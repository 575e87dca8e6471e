// Package processing is the image I/O boundary: loading sources from files
// or URLs (with WebP support), encoding results back to disk, and preparing
// bitmaps for the generation hand-off and the UI.
package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/pixelform/studio/pkg/types"
)

// Processor handles image loading, saving and export.
type Processor struct {
	client *http.Client
}

// NewProcessor creates an image processor with a 30s download timeout.
func NewProcessor() *Processor {
	return &Processor{client: &http.Client{Timeout: 30 * time.Second}}
}

// Load resolves a source string (file path or http/https URL) into a decoded
// bitmap. Failures come back as ImageDecodeError tagged with the role the
// image plays in the operation, so callers can show a targeted message.
func (p *Processor) Load(ctx context.Context, source string, role types.ImageRole) (image.Image, error) {
	var img image.Image
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		img, err = p.loadFromURL(ctx, source)
	} else {
		img, err = p.loadFromFile(source)
	}
	if err != nil {
		return nil, &types.ImageDecodeError{Role: role, Source: source, Err: err}
	}
	return img, nil
}

func (p *Processor) loadFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "product-studio/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return decodeBytes(data)
}

// loadFromFile opens a local image, falling back to an explicit WebP decode
// for files imaging.Open cannot handle.
func (p *Processor) loadFromFile(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.Contains(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unknown image format for %s", path)
}

// decodeBytes decodes an image from memory, trying the registered decoders
// first and chai2010's WebP decoder as a fallback.
func decodeBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("unknown or unsupported image format")
}

// Save writes an image to path in the given format. quality applies to jpg
// and webp; lossless applies to webp only.
func (p *Processor) Save(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// EncodeForModel shrinks an image so its longest side fits maxDim, encodes
// it as png or jpg, and returns the raw bytes for the generation request.
func (p *Processor) EncodeForModel(img image.Image, format string, maxDim, quality int) ([]byte, error) {
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			if b.Dx() >= b.Dy() {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DataURL encodes an image as a base64 PNG data URL for the UI boundary.
func (p *Processor) DataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
