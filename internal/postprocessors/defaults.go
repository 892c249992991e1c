package postprocessors

import (
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/postprocessors/chunker"
	"github.com/custodia-labs/mmrag/internal/postprocessors/dedupe"
)

// DefaultProcessors lists the processors run on every extracted file, in order.
var DefaultProcessors = []string{"chunker", "dedupe"}

// RegisterDefaults registers the built-in processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("dedupe", func(map[string]any) (driven.PostProcessor, error) {
		return dedupe.New(), nil
	})
}

// NewDefaultRegistry returns a registry holding the built-in processors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// FromSettings builds the default pipeline configured by the ingest settings.
func FromSettings(settings domain.IngestSettings) (*Pipeline, error) {
	return NewDefaultRegistry().BuildPipeline(DefaultProcessors, map[string]map[string]any{
		"chunker": {
			"chunk_size": settings.ChunkSize,
			"overlap":    settings.ChunkOverlap,
		},
	})
}

// buildChunker creates a chunker from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 2000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if _, ok := cfg["overlap"]; ok {
		opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig reads an int that may have been decoded as int64 or
// float64 by TOML, YAML or JSON.
func getIntFromConfig(cfg map[string]any, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
