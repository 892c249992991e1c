package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden")
	Info("hidden too")

	assert.Empty(t, buf.String())
}

func TestWarnAndError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("batch %d dropped", 3)
	Error("index unavailable")

	assert.Equal(t, "[WARN] batch 3 dropped\n[ERROR] index unavailable\n", buf.String())
}

func TestInfo_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Info("ingested %d files", 2)

	assert.Equal(t, "[INFO] ingested 2 files\n", buf.String())
}

func TestNamed_WithFields(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Named("batcher").Info("upserted", zap.Int("size", 50))

	out := buf.String()
	assert.Contains(t, out, "[INFO] batcher upserted")
	assert.Contains(t, out, `"size": 50`)
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Section("Hidden")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Section("Retrieval")
	assert.Equal(t, "\n=== Retrieval ===\n", buf.String())
}

func TestWith_CarriesFields(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	With(zap.String("run", "r1")).Warn("queue full")

	out := buf.String()
	assert.Contains(t, out, "[WARN] queue full")
	assert.Contains(t, out, `"run": "r1"`)
}
