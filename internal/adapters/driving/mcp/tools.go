package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Files []string `json:"files" jsonschema:"files or directories to ingest"`
	Wait  bool     `json:"wait,omitempty" jsonschema:"block until every file has an outcome"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	RunID    string               `json:"runId"`
	Status   string               `json:"status"`
	Files    []string             `json:"files"`
	Outcomes []domain.FileOutcome `json:"outcomes,omitempty"`
}

// QueryInput is the input schema for the query and retrieve tools.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question or search text"`
	K     int    `json:"k,omitempty" jsonschema:"number of items to retrieve (default 5)"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer  string          `json:"answer"`
	Sources []domain.Source `json:"sources"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Items []domain.RetrievedItem `json:"items"`
	Count int                    `json:"count"`
}

// StatusInput is the empty input of the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool.
type StatusOutput struct {
	Ready         bool   `json:"ready"`
	DocumentCount int    `json:"documentCount"`
	Backend       string `json:"backend,omitempty"`
	Status        string `json:"status"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Ingest PDF, image and text files into the multimodal index",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question using retrieved text, tables and images as context",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the indexed items most similar to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "status",
		Description: "Report whether the index is ready and how many records it holds",
	}, s.handleStatus)
}

// handleIngest expands the requested paths and ingests them, in the
// background unless the caller asks to wait.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if len(input.Files) == 0 {
		return nil, IngestOutput{}, fmt.Errorf("%w: files are required", domain.ErrInvalidInput)
	}

	files := input.Files
	if s.ports.Files != nil {
		found, err := s.ports.Files.Find(files...)
		if err != nil {
			return nil, IngestOutput{}, err
		}
		files = found
	}
	if len(files) == 0 {
		return nil, IngestOutput{}, fmt.Errorf("%w: no valid documents found", domain.ErrInvalidInput)
	}

	var (
		run *domain.IngestRun
		err error
	)
	switch {
	case input.Wait && s.ports.Ingest != nil:
		run, err = s.ports.Ingest.Ingest(ctx, files)
	case s.ports.Queue != nil:
		run, err = s.ports.Queue.Submit(ctx, files)
		if err == nil && input.Wait {
			run, err = s.ports.Queue.Wait(ctx, run.ID)
		}
	case s.ports.Ingest != nil:
		run, err = s.ports.Ingest.Ingest(ctx, files)
	default:
		return nil, IngestOutput{}, fmt.Errorf("ingest: %w", ErrNotConfigured)
	}
	if err != nil {
		return nil, IngestOutput{}, err
	}

	output := IngestOutput{
		RunID:  run.ID,
		Status: string(run.Status),
		Files:  run.Files(),
	}
	if run.Status.IsTerminal() {
		output.Outcomes = run.Outcomes
	}
	return nil, output, nil
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if s.ports.Answer == nil {
		return nil, QueryOutput{}, fmt.Errorf("query: %w", ErrNotConfigured)
	}

	answer, err := s.ports.Answer.Answer(ctx, input.Query, resultCount(input.K))
	if err != nil {
		return nil, QueryOutput{}, err
	}
	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, QueryOutput{Answer: answer.Text, Sources: sources}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	items, err := s.ports.Retrieval.Retrieve(ctx, input.Query, resultCount(input.K))
	if err != nil {
		return nil, RetrieveOutput{}, err
	}
	if items == nil {
		items = []domain.RetrievedItem{}
	}
	return nil, RetrieveOutput{Items: items, Count: len(items)}, nil
}

// handleStatus handles the status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Status == nil {
		return nil, StatusOutput{}, fmt.Errorf("status: %w", ErrNotConfigured)
	}
	status, err := s.ports.Status.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Ready:         status.Ready,
		DocumentCount: status.DocumentCount,
		Backend:       status.Backend,
		Status:        "Ready",
	}, nil
}

// resultCount applies the default k. Negative values pass through so the
// retriever rejects them.
func resultCount(k int) int {
	if k == 0 {
		return domain.DefaultResultCount
	}
	return k
}
