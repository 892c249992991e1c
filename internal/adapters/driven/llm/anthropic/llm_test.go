package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := NewGenerator(Config{APIKey: "sk-ant", BaseURL: srv.URL})
	require.NoError(t, err)
	return g
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(Config{})
	require.Error(t, err)

	g, err := NewGenerator(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.ModelName())
	assert.NoError(t, g.Close())
}

func TestGenerate(t *testing.T) {
	var got messagesRequest
	g := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Revenue "},{"type":"text","text":"grew."}],"stop_reason":"end_turn"}`))
	})

	text, err := g.Generate(context.Background(), domain.GenerationRequest{
		Query:       "What happened?",
		TextContext: "[Text]: revenue grew",
		Images: []domain.ImagePayload{
			{Path: "a.png", MIMEType: "image/png", Data: []byte("png")},
			{Path: "b.tiff", MIMEType: "image/tiff", Data: []byte("tiff")},
		},
	}, driven.GenerateOptions{Temperature: 0.3})

	require.NoError(t, err)
	assert.Equal(t, "Revenue grew.", text)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	blocks := got.Messages[0].Content
	require.Len(t, blocks, 2, "unsupported image types are skipped")
	assert.Equal(t, "image", blocks[0].Type)
	assert.Equal(t, "image/png", blocks[0].Source.MediaType)
	assert.Equal(t, "cG5n", blocks[0].Source.Data)
	assert.Equal(t, "text", blocks[1].Type)
	assert.Contains(t, blocks[1].Text, "What happened?")
}

func TestGenerate_APIError(t *testing.T) {
	g := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	})

	_, err := g.Generate(context.Background(), domain.GenerationRequest{Query: "q"}, driven.GenerateOptions{MaxTokens: 1 << 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens too large")
}

func TestGenerate_EmptyContent(t *testing.T) {
	g := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})

	_, err := g.Generate(context.Background(), domain.GenerationRequest{Query: "q"}, driven.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response content")
}

func TestPing(t *testing.T) {
	g := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	})

	err := g.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401: bad key")
}
