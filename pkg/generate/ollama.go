package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// defaultTimeout bounds a generation call when the caller's context carries
// no deadline. Vision models on CPU are slow.
const defaultTimeout = 300 * time.Second

// OllamaGenerator sends generation requests through the Ollama chat API.
type OllamaGenerator struct {
	client *api.Client
	log    zerolog.Logger
}

// NewOllama creates a generator talking to the Ollama server at rawURL. Any
// path on the URL is discarded; only scheme and host are used.
func NewOllama(rawURL string, log zerolog.Logger) (*OllamaGenerator, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaGenerator{
		client: api.NewClient(base, http.DefaultClient),
		log:    log,
	}, nil
}

// Generate sends the image and prompt as a single user message and collects
// the non-streamed response.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	message := api.Message{Role: "user", Content: req.Prompt}
	if len(req.Image) > 0 {
		message.Images = []api.ImageData{api.ImageData(req.Image)}
	}

	streamFalse := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: []api.Message{message},
		Stream:   &streamFalse,
	}

	g.log.Debug().Str("model", req.Model).Int("image_bytes", len(req.Image)).
		Msg("sending generation request")

	var content string
	err := g.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}
	if content == "" {
		return nil, fmt.Errorf("generation backend returned an empty response")
	}
	return &Result{Text: content}, nil
}
