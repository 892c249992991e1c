package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".txt"}, New().Extensions())
}

func TestExtract_SingleChunk(t *testing.T) {
	path := writeFile(t, "hello.txt", []byte("hello world"))

	chunks, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, domain.DocumentID(path), c.DocID)
	assert.Equal(t, 1, c.Page)
	assert.Equal(t, domain.KindText, c.Kind)
	assert.Equal(t, "hello world", c.Content)
	assert.Equal(t, path, c.Metadata.Source)
	assert.Equal(t, 1, c.Metadata.PageNumber)
	assert.Equal(t, domain.KindText, c.Metadata.ContentType)
	assert.NoError(t, c.Validate())
}

func TestExtract_EmptyFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "whitespace only", data: []byte("  \n\t\n")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "empty.txt", tc.data)
			chunks, err := New().Extract(context.Background(), path)
			require.NoError(t, err)
			assert.Empty(t, chunks)
		})
	}
}

func TestExtract_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "bad.txt", []byte{'o', 'k', 0xff, 0xfe, '!'})

	chunks, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ok�!", chunks[0].Content)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtract_Cancelled(t *testing.T) {
	path := writeFile(t, "hello.txt", []byte("hello"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.ContentExtractor = (*Extractor)(nil)
}
