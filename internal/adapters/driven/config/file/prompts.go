package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// promptSpec is a built-in template and the placeholders an edited copy must keep.
type promptSpec struct {
	fallback string
	required []string
}

var prompts = map[string]promptSpec{
	driven.PromptAnswer: {
		fallback: domain.DefaultAnswerPrompt,
		required: []string{domain.PromptContextPlaceholder, domain.PromptQueryPlaceholder},
	},
}

type loadedPrompt struct {
	text    string
	modTime time.Time
}

// PromptStore serves prompt templates from <dir>/<name>.txt.
//
// The first Load writes the built-in template when the file is missing. A file
// is re-read whenever its modification time changes, so a running server picks
// up edits. A file that drops a required placeholder, or cannot be read, is
// ignored in favour of the built-in template.
type PromptStore struct {
	dir string

	mu     sync.Mutex
	loaded map[string]loadedPrompt
}

// NewPromptStore creates a store rooted at dir, or ~/.mmrag/prompts when dir is empty.
// Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".mmrag", "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]loadedPrompt)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	spec, ok := prompts[name]
	if !ok {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	path := filepath.Join(s.dir, name+".txt")

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.writeDefault(path, spec.fallback); err != nil {
			logger.Warn("Cannot create prompt file %s: %v", path, err)
		}
		return spec.fallback, nil
	}
	if err != nil {
		logger.Warn("Cannot stat prompt file %s: %v", path, err)
		return spec.fallback, nil
	}

	if cached, ok := s.loaded[name]; ok && cached.modTime.Equal(info.ModTime()) {
		return cached.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Cannot read prompt file %s: %v", path, err)
		return spec.fallback, nil
	}
	text := strings.TrimSpace(string(data))
	if missing := missingPlaceholders(text, spec.required); len(missing) > 0 {
		logger.Warn("Prompt file %s lacks %s; using the built-in template", path, strings.Join(missing, ", "))
		text = spec.fallback
	}

	s.loaded[name] = loadedPrompt{text: text, modTime: info.ModTime()}
	return text, nil
}

func (s *PromptStore) writeDefault(path, content string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content+"\n"), 0600)
}

func missingPlaceholders(text string, required []string) []string {
	var missing []string
	for _, p := range required {
		if !strings.Contains(text, p) {
			missing = append(missing, p)
		}
	}
	return missing
}
