package services

import (
	"time"

	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure NopMetrics implements the interface.
var _ driven.PipelineMetrics = NopMetrics{}

// NopMetrics discards every counter. It is the default when no metrics sink is configured.
type NopMetrics struct{}

func (NopMetrics) ChunksEncoded(string, int) {}
func (NopMetrics) ChunkEncodeFailed(string) {}
func (NopMetrics) BatchUpserted(int, time.Duration) {}
func (NopMetrics) BatchFailed(int) {}
func (NopMetrics) FileProcessed(string, time.Duration) {}
func (NopMetrics) QueryServed(int, time.Duration) {}
