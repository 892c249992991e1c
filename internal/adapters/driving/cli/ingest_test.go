package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetErr(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestIngestCmd_Flags(t *testing.T) {
	for _, name := range []string{"async", "json", "no-progress", "include"} {
		assert.NotNil(t, ingestCmd.Flags().Lookup(name), name)
	}
}

func TestIngestCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	ingestService = nil

	_, err := runCLI(t, "ingest", "a.txt")
	assert.EqualError(t, err, "ingestion service not configured")
}

func TestIngestCmd_Sync(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "ingest", "notes.txt", "scan.pdf")
	require.NoError(t, err)

	require.Len(t, ts.ingest.paths, 1)
	assert.Equal(t, []string{"notes.txt", "scan.pdf"}, ts.ingest.paths[0])
	assert.Contains(t, out, "Run run-sync: 2 files, 1 succeeded, 0 skipped, 1 failed")
	assert.Contains(t, out, "[succeeded] notes.txt")
	assert.Contains(t, out, "2 chunks, 2 records")
	assert.Contains(t, out, "[failed] scan.pdf")
	assert.Contains(t, out, "unsupported format")
	assert.Empty(t, ts.queue.submitted)
}

func TestIngestCmd_DefaultsToRawDataDir(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	fileFinder = &stubFinder{files: []string{"sample_documents/a.txt"}}

	_, err := runCLI(t, "ingest")
	require.NoError(t, err)
	require.Len(t, ts.ingest.paths, 1)
	assert.Equal(t, []string{"sample_documents/a.txt"}, ts.ingest.paths[0])
}

func TestIngestCmd_NoRawDataDir(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	rawDataDir = ""

	_, err := runCLI(t, "ingest")
	assert.EqualError(t, err, "no paths given and no raw data directory configured")
}

func TestIngestCmd_NoFilesFound(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	fileFinder = &stubFinder{}

	out, err := runCLI(t, "ingest", "empty")
	require.NoError(t, err)
	assert.Contains(t, out, "No valid documents found in empty")
	assert.Empty(t, ts.ingest.paths)

	out, err = runCLI(t, "ingest", "--json", "empty")
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "error", payload["status"])
}

func TestIngestCmd_IncludeOverridesFinder(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	fileFinder = &stubFinder{files: []string{"never-used.txt"}}

	dir := t.TempDir()
	for _, name := range []string{"keep.txt", "skip.md", "blob.bin", "nested/deep.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}

	_, err := runCLI(t, "ingest", "--include", "**/*.txt", dir)
	require.NoError(t, err)
	require.Len(t, ts.ingest.paths, 1)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "keep.txt"),
		filepath.Join(dir, "nested", "deep.txt"),
	}, ts.ingest.paths[0])
}

func TestIngestCmd_InvalidInclude(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCLI(t, "ingest", "--include", "[oops", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --include")
}

func TestIngestCmd_Async(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCLI(t, "ingest", "--async", "--json", "notes.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, ts.queue.started)
	assert.Equal(t, 1, ts.queue.stopped)
	assert.Equal(t, [][]string{{"notes.txt"}}, ts.queue.submitted)
	assert.Empty(t, ts.ingest.paths)

	var run domain.IngestRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "run-async", run.ID)
	assert.Equal(t, domain.IngestSucceeded, run.Status)
}

func TestIngestCmd_AsyncQueueFull(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.queue.submitErr = domain.ErrQueueFull

	_, err := runCLI(t, "ingest", "--async", "notes.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQueueFull)
	assert.Equal(t, 1, ts.queue.stopped)
}

func TestIngestCmd_SyncError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.err = errBoom

	_, err := runCLI(t, "ingest", "notes.txt")
	assert.ErrorIs(t, err, errBoom)
}
