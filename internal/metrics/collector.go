// Package metrics exports pipeline counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "mmrag"

// Ensure Collector implements the interface.
var _ driven.PipelineMetrics = (*Collector)(nil)

// Collector records ingestion and query metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	chunksEncoded     *prometheus.CounterVec
	chunkEncodeFailed *prometheus.CounterVec
	batchesUpserted   prometheus.Counter
	recordsUpserted   prometheus.Counter
	batchUpsertTime   prometheus.Histogram
	batchesFailed     prometheus.Counter
	recordsDropped    prometheus.Counter
	filesProcessed    *prometheus.CounterVec
	fileDuration      prometheus.Histogram
	queriesServed     prometheus.Counter
	queryResults      prometheus.Histogram
	queryDuration     prometheus.Histogram
}

// NewCollector creates a collector. An empty namespace uses DefaultNamespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{registry: reg}

	c.chunksEncoded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_encoded_total",
			Help:      "Chunks embedded successfully",
		},
		[]string{"kind"},
	)

	c.chunkEncodeFailed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_encode_failures_total",
			Help:      "Chunks skipped because encoding failed",
		},
		[]string{"kind"},
	)

	c.batchesUpserted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_upserted_total",
		Help:      "Batches committed to the vector index",
	})

	c.recordsUpserted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_upserted_total",
		Help:      "Records committed to the vector index",
	})

	c.batchUpsertTime = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_upsert_duration_seconds",
		Help:      "Time to embed and upsert one batch",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	c.batchesFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_failed_total",
		Help:      "Batches dropped after exhausting upsert retries",
	})

	c.recordsDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_dropped_total",
		Help:      "Records lost with failed batches",
	})

	c.filesProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Files that reached a terminal ingestion status",
		},
		[]string{"status"},
	)

	c.fileDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "file_duration_seconds",
		Help:      "Time to ingest one file",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	c.queriesServed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_served_total",
		Help:      "Retrieval requests served",
	})

	c.queryResults = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_results",
		Help:      "Items returned per retrieval",
		Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
	})

	c.queryDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Retrieval latency",
		Buckets:   prometheus.DefBuckets,
	})

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ChunksEncoded(kind string, n int) {
	if n <= 0 {
		return
	}
	c.chunksEncoded.WithLabelValues(kind).Add(float64(n))
}

func (c *Collector) ChunkEncodeFailed(kind string) {
	c.chunkEncodeFailed.WithLabelValues(kind).Inc()
}

func (c *Collector) BatchUpserted(size int, took time.Duration) {
	c.batchesUpserted.Inc()
	c.recordsUpserted.Add(float64(size))
	c.batchUpsertTime.Observe(took.Seconds())
}

func (c *Collector) BatchFailed(size int) {
	c.batchesFailed.Inc()
	c.recordsDropped.Add(float64(size))
}

func (c *Collector) FileProcessed(status string, took time.Duration) {
	c.filesProcessed.WithLabelValues(status).Inc()
	c.fileDuration.Observe(took.Seconds())
}

func (c *Collector) QueryServed(results int, took time.Duration) {
	c.queriesServed.Inc()
	c.queryResults.Observe(float64(results))
	c.queryDuration.Observe(took.Seconds())
}
