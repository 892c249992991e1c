// Package ollama provides a multimodal embedder backed by a local Ollama server.
//
// Ollama embedding models are text-only, so images are first described by a
// vision model and the description is embedded. Text and images therefore land
// in the same vector space.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure Embedder implements the interface.
var _ driven.MultimodalEmbedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 768 // nomic-embed-text default
)

// CaptionPrompt asks the vision model for a retrieval-friendly description.
const CaptionPrompt = "Describe this image for a search index. " +
	"Transcribe any visible text, numbers, axis labels and legends, then summarise what it shows."

// Config holds configuration for the Ollama embedder.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// VisionModel captions images. Empty disables image encoding.
	VisionModel string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int
}

// Embedder generates embeddings using Ollama.
type Embedder struct {
	client      *api.Client
	model       string
	visionModel string
	dimensions  int
}

// NewEmbedder creates a new Ollama embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL %q: %w", cfg.BaseURL, err)
	}

	return &Embedder{
		client:      api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		dimensions:  cfg.Dimensions,
	}, nil
}

// EncodeText embeds all texts in a single request.
func (e *Embedder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// EncodeImage captions each image with the vision model and embeds the captions.
func (e *Embedder) EncodeImage(ctx context.Context, imagePaths []string) ([][]float32, error) {
	if len(imagePaths) == 0 {
		return [][]float32{}, nil
	}
	if e.visionModel == "" {
		return nil, domain.ErrImageEncodingUnsupported
	}

	captions := make([]string, len(imagePaths))
	for i, path := range imagePaths {
		caption, err := e.caption(ctx, path)
		if err != nil {
			return nil, err
		}
		captions[i] = caption
	}
	return e.EncodeText(ctx, captions)
}

// caption asks the vision model to describe one image.
func (e *Embedder) caption(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.ImageLoadError{Path: path, Err: err}
	}

	stream := false
	var out strings.Builder
	err = e.client.Chat(ctx, &api.ChatRequest{
		Model:  e.visionModel,
		Stream: &stream,
		Messages: []api.Message{{
			Role:    "user",
			Content: CaptionPrompt,
			Images:  []api.ImageData{data},
		}},
	}, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: caption %s: %w", path, err)
	}

	caption := strings.TrimSpace(out.String())
	logger.Debug("Captioned %s (%d chars)", path, len(caption))
	return caption, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string {
	return e.model
}

// Ping validates the server is reachable without running inference.
func (e *Embedder) Ping(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (e *Embedder) Close() error {
	return nil
}
