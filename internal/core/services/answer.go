package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/core/ports/driving"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// AnswerService runs retrieve, fuse and generate for a question.
type AnswerService struct {
	retriever driving.RetrievalService
	fusion    *ContextFusion
	generator driven.GenerationService
	opts      driven.GenerateOptions
	prompts   driven.PromptStore
}

// NewAnswerService creates an answer service.
// generator may be nil; questions then fail with domain.ErrGenerationUnavailable.
func NewAnswerService(
	retriever driving.RetrievalService,
	fusion *ContextFusion,
	generator driven.GenerationService,
	opts driven.GenerateOptions,
) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		fusion:    fusion,
		generator: generator,
		opts:      opts,
	}
}

// SetPromptStore makes answers use the stored answer template.
// A nil store, or a failed load, falls back to domain.DefaultAnswerPrompt.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Answer retrieves up to k items, fuses them and asks the generator for an answer.
//
// With nothing retrieved the answer is domain.NoContextAnswer and generation is
// skipped. A generation failure is reported in the answer text, with sources kept.
func (s *AnswerService) Answer(ctx context.Context, query string, k int) (*domain.Answer, error) {
	items, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{Query: query, Sources: []domain.Source{}}
	if len(items) == 0 {
		answer.Text = domain.NoContextAnswer
		return answer, nil
	}
	if s.generator == nil {
		return nil, domain.ErrGenerationUnavailable
	}

	fused := s.fusion.Fuse(ctx, items)
	for _, meta := range fused.Sources {
		answer.Sources = append(answer.Sources, domain.SourceFromMetadata(meta))
	}

	logger.Section("Generation")
	logger.Debug("Model: %s, text context %d bytes, %d images",
		s.generator.ModelName(), len(fused.Text), len(fused.Images))

	text, err := s.generator.Generate(ctx, domain.GenerationRequest{
		Query:       query,
		TextContext: fused.Text,
		Images:      fused.Images,
		Template:    s.template(),
	}, s.opts)
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		answer.Text = fmt.Sprintf("Error: generation failed to produce a response. %v", err)
		return answer, nil
	}

	answer.Text = text
	return answer, nil
}

func (s *AnswerService) template() string {
	if s.prompts == nil {
		return ""
	}
	tmpl, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		logger.Warn("Using default answer prompt: %v", err)
		return ""
	}
	return tmpl
}
