package domain

import (
	"fmt"
	"time"
)

// IngestStatus is the terminal status of a file within an ingestion run.
type IngestStatus string

// Available ingest statuses.
const (
	// IngestPending means the file is accepted but not yet processed.
	IngestPending IngestStatus = "pending"

	// IngestRunning means the file is being processed.
	IngestRunning IngestStatus = "running"

	// IngestSucceeded means at least one record from the file reached the index.
	IngestSucceeded IngestStatus = "succeeded"

	// IngestSkipped means the file produced no chunks or has no extractor.
	IngestSkipped IngestStatus = "skipped"

	// IngestFailed means extraction failed or no batch could be written.
	IngestFailed IngestStatus = "failed"
)

// IsTerminal returns true once the status will no longer change.
func (s IngestStatus) IsTerminal() bool {
	return s == IngestSucceeded || s == IngestSkipped || s == IngestFailed
}

// String returns the string representation.
func (s IngestStatus) String() string {
	return string(s)
}

// IngestStage names a step of the per-file state machine.
type IngestStage string

// Stages in processing order.
const (
	StageQueued    IngestStage = "queued"
	StageExtracted IngestStage = "extracted"
	StageChunked   IngestStage = "chunked"
	StageEmbedded  IngestStage = "embedded"
	StageUpserted  IngestStage = "upserted"
	StageDone      IngestStage = "done"
)

// BatchStage formats a stage for batch i, e.g. "upserted(2)".
func BatchStage(stage IngestStage, i int) IngestStage {
	return IngestStage(fmt.Sprintf("%s(%d)", stage, i))
}

// FailedStage formats the failure state for a stage, e.g. "failed(extracted)".
func FailedStage(stage IngestStage) IngestStage {
	return IngestStage(fmt.Sprintf("failed(%s)", stage))
}

// FileOutcome reports what happened to one file.
type FileOutcome struct {
	// File is the path as submitted.
	File string `json:"file"`

	// Status is the file's current or terminal status.
	Status IngestStatus `json:"status"`

	// ChunkCount is the number of chunks the extractor produced.
	ChunkCount int `json:"chunkCount"`

	// RecordCount is the number of records that reached the index.
	RecordCount int `json:"recordCount"`

	// FailedChunks counts chunks skipped for encoding errors.
	FailedChunks int `json:"failedChunks,omitempty"`

	// FailedBatches counts batches dropped after upsert retries.
	FailedBatches int `json:"failedBatches,omitempty"`

	// Stage is the last state-machine stage the file reached.
	Stage IngestStage `json:"stage"`

	// Error describes the failure or skip reason.
	Error string `json:"error,omitempty"`

	// Duration is the wall time spent on the file.
	Duration time.Duration `json:"duration"`
}

// IngestRun groups the outcomes of one ingestion request.
type IngestRun struct {
	// ID is unique per run.
	ID string `json:"runId"`

	// Status is running until every file is terminal.
	Status IngestStatus `json:"status"`

	// Outcomes are in submission order.
	Outcomes []FileOutcome `json:"outcomes"`

	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Files returns the submitted file paths in order.
func (r *IngestRun) Files() []string {
	files := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		files[i] = o.File
	}
	return files
}

// Counts tallies outcomes by status.
func (r *IngestRun) Counts() map[IngestStatus]int {
	counts := make(map[IngestStatus]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Summarise derives the run status from its outcomes.
// A run with any non-terminal outcome is still running.
func (r *IngestRun) Summarise() IngestStatus {
	failed := 0
	for _, o := range r.Outcomes {
		if !o.Status.IsTerminal() {
			return IngestRunning
		}
		if o.Status == IngestFailed {
			failed++
		}
	}
	if failed > 0 && failed == len(r.Outcomes) {
		return IngestFailed
	}
	return IngestSucceeded
}
