// Package jina provides a multimodal embedder using the Jina embeddings API.
//
// jina-clip models encode text and images natively into one space, so no
// captioning step is involved.
package jina

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.MultimodalEmbedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.jina.ai/v1"
	DefaultModel      = "jina-clip-v2"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 1024
)

// Config holds configuration for the Jina embedder.
type Config struct {
	// APIKey is the Jina API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.jina.ai/v1).
	BaseURL string

	// Model is the embedding model (default: jina-clip-v2).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions truncates the output vectors (jina-clip-v2 supports 64 to 1024).
	Dimensions int
}

// Embedder generates text and image embeddings using Jina.
type Embedder struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

// input is one element of the request's input array; exactly one field is set.
type input struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// MarshalJSON writes an image input as {"image": ...} and anything else as
// {"text": ...}, keeping the text field even when the text is empty.
func (in input) MarshalJSON() ([]byte, error) {
	if in.Image != "" {
		return json.Marshal(struct {
			Image string `json:"image"`
		}{in.Image})
	}
	return json.Marshal(struct {
		Text string `json:"text"`
	}{in.Text})
}

type embeddingRequest struct {
	Model      string  `json:"model"`
	Input      []input `json:"input"`
	Normalized bool    `json:"normalized"`
	Dimensions int     `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// NewEmbedder creates a new Jina embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("jina: API key is required")
	}
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

	return &Embedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// EncodeText embeds each text.
func (e *Embedder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := make([]input, len(texts))
	for i, t := range texts {
		inputs[i] = input{Text: t}
	}
	return e.embed(ctx, inputs)
}

// EncodeImage embeds each image file, sent inline as base64.
func (e *Embedder) EncodeImage(ctx context.Context, imagePaths []string) ([][]float32, error) {
	inputs := make([]input, len(imagePaths))
	for i, path := range imagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &domain.ImageLoadError{Path: path, Err: err}
		}
		inputs[i] = input{Image: base64.StdEncoding.EncodeToString(data)}
	}
	return e.embed(ctx, inputs)
}

func (e *Embedder) embed(ctx context.Context, inputs []input) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	reqBody := embeddingRequest{
		Model:      e.model,
		Input:      inputs,
		Normalized: true,
		Dimensions: e.dimensions,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([][]float32, len(inputs))
	for _, d := range embedResp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("jina: embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("jina: no embedding returned for input %d", i)
		}
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string {
	return e.model
}

// Ping embeds a single short string. Jina has no cheaper authenticated endpoint.
func (e *Embedder) Ping(ctx context.Context) error {
	if _, err := e.EncodeText(ctx, []string{"ping"}); err != nil {
		return fmt.Errorf("jina: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (e *Embedder) Close() error {
	return nil
}
