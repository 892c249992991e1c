package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator builds a throwaway provider client and pings it.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator that waits up to the ping timeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the embedder described by config.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	svc, err := CreateEmbedder(config)
	if err != nil {
		return err
	}
	return ping(svc, v.timeout)
}

// ValidateGeneration pings the generator described by config.
func (v *ConfigValidator) ValidateGeneration(config *domain.GenerationSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	svc, err := CreateGenerator(config)
	if err != nil {
		return err
	}
	return ping(svc, v.timeout)
}

// ValidateEmbeddingConfig pings an embedder with the default timeout.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	return NewConfigValidator().ValidateEmbedding(settings)
}

// ValidateGenerationConfig pings a generator with the default timeout.
func ValidateGenerationConfig(settings *domain.GenerationSettings) error {
	return NewConfigValidator().ValidateGeneration(settings)
}

type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// ping checks svc and closes it.
func ping(svc pinger, timeout time.Duration) error {
	defer svc.Close()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svc.Ping(ctx)
}
