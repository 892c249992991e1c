// Package ollama provides a multimodal generation adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.GenerationService = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llava"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the vision-capable model to use (default: llava).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Generator answers questions with an Ollama chat model.
type Generator struct {
	client *api.Client
	model  string
}

// NewGenerator creates a new Ollama generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL %q: %w", cfg.BaseURL, err)
	}

	return &Generator{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:  cfg.Model,
	}, nil
}

// Generate sends the rendered prompt and every image in a single user message.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest, opts driven.GenerateOptions) (string, error) {
	msg := api.Message{
		Role:    "user",
		Content: domain.BuildAnswerPrompt(req),
	}
	for _, img := range req.Images {
		msg.Images = append(msg.Images, api.ImageData(img.Data))
	}

	options := map[string]any{}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    g.model,
		Messages: []api.Message{msg},
		Stream:   &stream,
	}
	if len(options) > 0 {
		chatReq.Options = options
	}

	var out strings.Builder
	err := g.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: chat: %w", err)
	}

	return strings.TrimSpace(out.String()), nil
}

// ModelName returns the name of the model being used.
func (g *Generator) ModelName() string {
	return g.model
}

// Ping validates the server is reachable without running inference.
func (g *Generator) Ping(ctx context.Context) error {
	if err := g.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (g *Generator) Close() error {
	return nil
}
