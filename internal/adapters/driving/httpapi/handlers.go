package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

type rootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{Message: readyMessage, Status: "Ready"})
}

type ingestRequest struct {
	Files []string `json:"files"`
}

type ingestResponse struct {
	RunID   string   `json:"runId,omitempty"`
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Files   []string `json:"files,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	paths := req.Files
	if len(paths) == 0 {
		if s.ports.DefaultDir == "" {
			writeJSON(w, http.StatusOK, ingestResponse{Status: "error", Message: "No files given and no default directory configured"})
			return
		}
		paths = []string{s.ports.DefaultDir}
	}

	files := paths
	if s.ports.Files != nil {
		found, err := s.ports.Files.Find(paths...)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		files = found
	}
	if len(files) == 0 {
		writeJSON(w, http.StatusOK, ingestResponse{
			Status:  "error",
			Message: fmt.Sprintf("No valid documents found in %v", paths),
		})
		return
	}

	run, err := s.ports.Queue.Submit(r.Context(), files)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{
		RunID:   run.ID,
		Status:  string(domain.IngestRunning),
		Message: fmt.Sprintf("Ingestion started for %d files.", len(files)),
		Files:   run.Files(),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.ports.Queue.Run(r.Context(), r.PathValue("runID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput))
			return
		}
		limit = n
	}
	runs, err := s.ports.Queue.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if runs == nil {
		runs = []domain.IngestRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// queryRequest accepts n_results as an alias for k.
type queryRequest struct {
	Query    *string `json:"query"`
	K        *int    `json:"k"`
	NResults *int    `json:"n_results"`
}

func (q queryRequest) limit() int {
	switch {
	case q.K != nil:
		return *q.K
	case q.NResults != nil:
		return *q.NResults
	default:
		return domain.DefaultResultCount
	}
}

// parseQuery decodes and validates a query body, writing the error response itself.
func parseQuery(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	var req queryRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", 0, false
	}
	if req.Query == nil {
		writeError(w, http.StatusUnprocessableEntity, errors.New("field 'query' is required"))
		return "", 0, false
	}
	k := req.limit()
	if k <= 0 {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("%w: got %d", domain.ErrInvalidK, k))
		return "", 0, false
	}
	return *req.Query, k, true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query, k, ok := parseQuery(w, r)
	if !ok {
		return
	}
	answer, err := s.ports.Answer.Answer(r.Context(), query, k)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type retrieveResponse struct {
	Query string                 `json:"query"`
	Items []domain.RetrievedItem `json:"items"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	query, k, ok := parseQuery(w, r)
	if !ok {
		return
	}
	items, err := s.ports.Retrieval.Retrieve(r.Context(), query, k)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if items == nil {
		items = []domain.RetrievedItem{}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Query: query, Items: items})
}

type statusResponse struct {
	*domain.IndexStatus
	Status string `json:"status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.ports.Status.Status(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{IndexStatus: status, Status: "Ready"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
