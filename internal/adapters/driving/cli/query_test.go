package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

func TestQueryCmd_PrintsAnswerAndSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "query", "How did revenue change?")
	require.NoError(t, err)

	assert.Equal(t, "How did revenue change?", ts.answer.query)
	assert.Equal(t, domain.DefaultResultCount, ts.answer.k)
	assert.Contains(t, out, "Revenue grew 12% in Q3.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] report.pdf, page 3 (text)")
	assert.Contains(t, out, "[2] report.pdf, page 4 (image)")
	assert.Contains(t, out, "/data/p4.png")
}

func TestQueryCmd_ResultsFlag(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCLI(t, "query", "-k", "9", "q")
	require.NoError(t, err)
	assert.Equal(t, 9, ts.answer.k)
}

func TestQueryCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "query", "--json", "q")
	require.NoError(t, err)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal([]byte(out), &answer))
	assert.Equal(t, "Revenue grew 12% in Q3.", answer.Text)
	assert.Len(t, answer.Sources, 2)
}

func TestQueryCmd_Errors(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	ts.answer.err = domain.ErrGenerationUnavailable
	_, err := runCLI(t, "query", "q")
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.Contains(t, err.Error(), "query failed")

	answerService = nil
	_, err = runCLI(t, "query", "q")
	assert.EqualError(t, err, "answer service not configured")

	_, err = runCLI(t, "query")
	assert.Error(t, err)
}

func TestRetrieveCmd_PrintsResults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "retrieve", "-k", "2", "revenue")
	require.NoError(t, err)

	assert.Equal(t, 2, ts.retrieval.k)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] report.pdf, page 3 (text) (0.91)")
	assert.Contains(t, out, "Revenue grew 12% year over year.")
	assert.Contains(t, out, "[2] chart.png, page 1 (image) (0.74)")
	assert.Contains(t, out, "Image: /data/chart.png")
}

func TestRetrieveCmd_NoResults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.items = nil

	out, err := runCLI(t, "retrieve", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")

	out, err = runCLI(t, "retrieve", "--json", "nothing")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRetrieveCmd_InvalidK(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCLI(t, "retrieve", "-k", "0", "q")
	assert.ErrorIs(t, err, domain.ErrInvalidK)
}

func TestRetrieveCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	retrievalService = nil

	_, err := runCLI(t, "retrieve", "q")
	assert.EqualError(t, err, "retrieval service not configured")
}

func TestDescribeSource(t *testing.T) {
	assert.Equal(t, "a.pdf, page 2 (table)", describeSource("a.pdf", 2, domain.KindTable))
	assert.Equal(t, "a.txt (text)", describeSource("a.txt", 0, domain.KindText))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"collapses whitespace", "a\n\n  b\tc", 10, "a b c"},
		{"cuts with ellipsis", "abcdefghij", 6, "abc..."},
		{"rune safe", "ééééééé", 5, "éé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.n))
		})
	}
}
