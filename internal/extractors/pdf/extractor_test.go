package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// mockRunner is a scripted test double for cmdrun.Runner.
type mockRunner struct {
	mu    sync.Mutex
	calls []string

	info      string
	infoErr   error
	pages     map[string]string
	textErr   error
	images    map[string][]byte
	imagesErr error
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch name {
	case toolInfo:
		return []byte(m.info), m.infoErr
	case toolText:
		if m.textErr != nil {
			return nil, m.textErr
		}
		// args: -layout -enc UTF-8 -f N -l N path -
		return []byte(m.pages[args[4]]), nil
	case toolImages:
		if m.imagesErr != nil {
			return nil, m.imagesErr
		}
		root := args[len(args)-1]
		for suffix, data := range m.images {
			if err := os.WriteFile(root+suffix, data, 0o600); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected command %s", name)
}

func samplePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake pdf content"), 0o600))
	return path
}

func twoPageRunner() *mockRunner {
	return &mockRunner{
		info: "Title:          Report\nPages:          2\nEncrypted:      no\n",
		pages: map[string]string{
			"1": "Quarterly Report\nrevenue grew\n\n   Name      Qty\n   Apple     3\n   Pear      10\n\f",
			"2": "Closing paragraph.\n\f",
		},
	}
}

func TestNewWithRunner(t *testing.T) {
	runner := &mockRunner{}
	extractor := NewWithRunner(runner, "/data/processed")
	require.NotNil(t, extractor)
	assert.Equal(t, runner, extractor.runner)
	assert.Equal(t, filepath.Join("/data/processed", "images"), extractor.imageDir)
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".pdf"}, New(t.TempDir()).Extensions())
}

func TestExtract_TextAndTables(t *testing.T) {
	path := samplePDF(t)
	extractor := NewWithRunner(twoPageRunner(), t.TempDir())

	chunks, err := extractor.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, domain.KindText, chunks[0].Kind)
	assert.Equal(t, "Quarterly Report revenue grew", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].Page)

	assert.Equal(t, domain.KindTable, chunks[1].Kind)
	assert.Equal(t, "Name      Qty\nApple     3\nPear      10", chunks[1].Content)
	assert.Equal(t, 1, chunks[1].Page)

	assert.Equal(t, "Closing paragraph.", chunks[2].Content)
	assert.Equal(t, 2, chunks[2].Page)

	docID := domain.DocumentID(path)
	for i, c := range chunks {
		assert.Equal(t, docID, c.DocID)
		assert.Equal(t, path, c.Metadata.Source)
		assert.Equal(t, fmt.Sprintf("%s_el_%d", docID, i), c.Metadata.ElementID)
		assert.NoError(t, c.Validate())
	}
}

func TestExtract_Images(t *testing.T) {
	path := samplePDF(t)
	processed := t.TempDir()
	runner := &mockRunner{
		info: "Pages: 2\n",
		images: map[string][]byte{
			"-001-000.png": []byte("first"),
			"-001-001.png": []byte("second"),
			"-002-002.png": []byte("third"),
		},
	}
	extractor := NewWithRunner(runner, processed)

	chunks, err := extractor.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	pattern := regexp.MustCompile(`^report_pdf-[0-9a-f]{8}_p(\d)_img(\d)_[0-9a-f]{8}\.png$`)
	wantPages := []string{"1", "1", "2"}
	wantIdx := []string{"0", "1", "0"}
	for i, c := range chunks {
		assert.Equal(t, domain.KindImage, c.Kind)
		assert.Equal(t, c.Content, c.Metadata.ImagePath)
		assert.Equal(t, filepath.Join(processed, "images"), filepath.Dir(c.Content))

		m := pattern.FindStringSubmatch(filepath.Base(c.Content))
		require.NotNil(t, m, "unexpected image name %s", c.Content)
		assert.Equal(t, wantPages[i], m[1])
		assert.Equal(t, wantIdx[i], m[2])
		assert.FileExists(t, c.Content)
		assert.NoError(t, c.Validate())
	}

	data, err := os.ReadFile(chunks[2].Content)
	require.NoError(t, err)
	assert.Equal(t, "third", string(data))
}

func TestExtract_ImageNamesAreStable(t *testing.T) {
	path := samplePDF(t)
	processed := t.TempDir()
	runner := &mockRunner{info: "Pages: 1\n", images: map[string][]byte{"-001-000.png": []byte("logo")}}
	extractor := NewWithRunner(runner, processed)

	first, err := extractor.Extract(context.Background(), path)
	require.NoError(t, err)
	second, err := extractor.Extract(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Content, second[0].Content)
}

func TestExtract_OCROnImages(t *testing.T) {
	path := samplePDF(t)
	runner := &mockRunner{info: "Pages: 1\n", images: map[string][]byte{"-001-000.png": []byte("chart")}}
	extractor := NewWithRunner(runner, t.TempDir())
	extractor.SetOCR(ocrForAny("sales by region"))

	chunks, err := extractor.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "sales by region", chunks[0].AuxText)
	assert.Equal(t, "sales by region", chunks[0].Metadata.OCRText)
}

type ocrForAny string

func (o ocrForAny) Recognise(context.Context, string) string { return string(o) }

func TestExtract_TextFailureKeepsImages(t *testing.T) {
	path := samplePDF(t)
	runner := twoPageRunner()
	runner.textErr = errors.New("pdftotext crashed")
	runner.images = map[string][]byte{"-002-000.png": []byte("img")}

	chunks, err := NewWithRunner(runner, t.TempDir()).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.KindImage, chunks[0].Kind)
	assert.Equal(t, 2, chunks[0].Page)
}

func TestExtract_ImageFailureKeepsText(t *testing.T) {
	path := samplePDF(t)
	runner := twoPageRunner()
	runner.imagesErr = errors.New("pdfimages crashed")

	chunks, err := NewWithRunner(runner, t.TempDir()).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestExtract_BothPassesFail(t *testing.T) {
	path := samplePDF(t)
	runner := &mockRunner{
		infoErr:   errors.New("not a pdf"),
		imagesErr: errors.New("not a pdf"),
	}

	chunks, err := NewWithRunner(runner, t.TempDir()).Extract(context.Background(), path)
	require.Error(t, err)
	assert.Nil(t, chunks)
	assert.Contains(t, err.Error(), "pdfinfo failed")
	assert.Contains(t, err.Error(), "pdfimages failed")
}

func TestExtract_RunnerErrorOnPage(t *testing.T) {
	path := samplePDF(t)
	runner := twoPageRunner()
	runner.textErr = errors.New("pdftotext crashed")
	runner.imagesErr = errors.New("pdfimages crashed")

	_, err := NewWithRunner(runner, t.TempDir()).Extract(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestExtract_ToolsMissing(t *testing.T) {
	path := samplePDF(t)
	runner := twoPageRunner()
	extractor := NewWithRunner(runner, t.TempDir())
	extractor.check = func() error { return ErrPDFToolNotFound }

	_, err := extractor.Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
	assert.Empty(t, runner.calls)
}

func TestExtract_MissingFile(t *testing.T) {
	extractor := NewWithRunner(twoPageRunner(), t.TempDir())
	_, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtract_Cancelled(t *testing.T) {
	path := samplePDF(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWithRunner(twoPageRunner(), t.TempDir()).Extract(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePageCount(t *testing.T) {
	tests := []struct {
		name    string
		info    string
		want    int
		wantErr bool
	}{
		{name: "padded", info: "Producer: x\nPages:          12\n", want: 12},
		{name: "missing", info: "Producer: x\n", wantErr: true},
		{name: "garbage", info: "Pages: many\n", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePageCount(tc.info)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitElements(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		expected []element
	}{
		{
			name:     "empty page",
			page:     "\f",
			expected: nil,
		},
		{
			name: "paragraphs reflowed",
			page: "First line\n  continues here\n\nSecond para\n",
			expected: []element{
				{kind: domain.KindText, content: "First line continues here"},
				{kind: domain.KindText, content: "Second para"},
			},
		},
		{
			name: "single aligned line is prose",
			page: "Total      42\n",
			expected: []element{
				{kind: domain.KindText, content: "Total 42"},
			},
		},
		{
			name: "column block is a table",
			page: "  a    b\n  1    2\n",
			expected: []element{
				{kind: domain.KindTable, content: "a    b\n1    2"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, splitElements(tc.page))
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Error(t, ErrPDFToolNotFound)
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.ContentExtractor = (*Extractor)(nil)
}
