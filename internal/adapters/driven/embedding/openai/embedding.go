// Package openai provides a multimodal embedder using the OpenAI API.
//
// Images are described by a vision chat model and the description is embedded
// with the same text embedding model used for queries.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// captionPrompt asks the vision model for a retrieval-friendly description.
const captionPrompt = "Describe this image for a search index. " +
	"Transcribe any visible text, numbers, axis labels and legends, then summarise what it shows."

// Model dimensions for OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedder.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// VisionModel captions images, e.g. gpt-4o-mini. Empty disables image encoding.
	VisionModel string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int
}

// Embedder generates embeddings using OpenAI API.
type Embedder struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	visionModel string
	dimensions  int
}

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// captionRequest is a chat completion carrying one image.
type captionRequest struct {
	Model     string           `json:"model"`
	Messages  []captionMessage `json:"messages"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

type captionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type captionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// NewEmbedder creates a new OpenAI embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
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

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		var ok bool
		dimensions, ok = modelDimensions[cfg.Model]
		if !ok {
			dimensions = 1536
		}
	}

	return &Embedder{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		dimensions:  dimensions,
	}, nil
}

// EncodeText embeds all texts in one request, in input order.
func (e *Embedder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	reqBody := embeddingRequest{
		Model: e.model,
		Input: texts,
	}

	// Only include dimensions for text-embedding-3-* models
	if strings.HasPrefix(e.model, "text-embedding-3-") && e.dimensions > 0 {
		reqBody.Dimensions = e.dimensions
	}

	var embedResp embeddingResponse
	if err := e.post(ctx, "/embeddings", reqBody, &embedResp, func() *apiError { return embedResp.Error }); err != nil {
		return nil, err
	}

	// Convert float64 to float32 and order by index
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", data.Index)
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}

	return embeddings, nil
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

func (e *Embedder) caption(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &domain.ImageLoadError{Path: path, Err: err}
	}

	reqBody := captionRequest{
		Model:     e.visionModel,
		MaxTokens: 300,
		Messages: []captionMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: captionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: DataURI(data)}},
			},
		}},
	}

	var resp captionResponse
	if err := e.post(ctx, "/chat/completions", reqBody, &resp, func() *apiError { return resp.Error }); err != nil {
		return "", fmt.Errorf("caption %s: %w", path, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no caption returned for %s", path)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// DataURI encodes image bytes as a base64 data URI with a sniffed MIME type.
func DataURI(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// post sends a JSON request and decodes the JSON response into out.
// apiErr reports an error object embedded in the decoded body.
func (e *Embedder) post(ctx context.Context, path string, in, out any, apiErr func() *apiError) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if ae := apiErr(); ae != nil {
		return fmt.Errorf("openai error: %s", ae.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string {
	return e.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (e *Embedder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (e *Embedder) Close() error {
	return nil
}
