package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("index.backend", "sqlite"))
	require.NoError(t, store.Set("index.backend", "memory"))

	val, ok := store.Get("index.backend")
	assert.True(t, ok)
	assert.Equal(t, "memory", val)

	_, ok = store.Get("index.addr")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("embedding.model", "nomic-embed-text")
	_ = store.Set("ingest.batch_size", 50)
	_ = store.Set("index.max_batch_size", int64(1000))
	_ = store.Set("embedding.dimensions", float64(768))
	_ = store.Set("generation.temperature", 0.2)
	_ = store.Set("ingest.ocr", true)
	_ = store.Set("ingest.upsert_backoff", "250ms")
	_ = store.Set("ingest.include", []any{"**/*.pdf", 3, "**/*.png"})

	assert.Equal(t, "nomic-embed-text", store.GetString("embedding.model"))
	assert.Equal(t, 50, store.GetInt("ingest.batch_size"))
	assert.Equal(t, 1000, store.GetInt("index.max_batch_size"))
	assert.Equal(t, 768, store.GetInt("embedding.dimensions"))
	assert.InDelta(t, 0.2, store.GetFloat("generation.temperature"), 1e-9)
	assert.InDelta(t, 50.0, store.GetFloat("ingest.batch_size"), 1e-9)
	assert.True(t, store.GetBool("ingest.ocr"))
	assert.Equal(t, 250*time.Millisecond, store.GetDuration("ingest.upsert_backoff"))
	assert.Equal(t, []string{"**/*.pdf", "**/*.png"}, store.GetStringSlice("ingest.include"))
}

func TestConfigStore_WrongTypesReturnZero(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("ingest.batch_size", "fifty")
	_ = store.Set("ingest.ocr", "yes")
	_ = store.Set("ingest.upsert_backoff", "soon")
	_ = store.Set("embedding.model", 12)

	assert.Zero(t, store.GetInt("ingest.batch_size"))
	assert.Zero(t, store.GetFloat("ingest.batch_size"))
	assert.False(t, store.GetBool("ingest.ocr"))
	assert.Zero(t, store.GetDuration("ingest.upsert_backoff"))
	assert.Empty(t, store.GetString("embedding.model"))
	assert.Nil(t, store.GetStringSlice("embedding.model"))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key.%d", id)
			_ = store.Set(key, id)
			_ = store.GetInt(key)
		}(i)
	}
	wg.Wait()

	for i := range 50 {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key.%d", i)))
	}
}
