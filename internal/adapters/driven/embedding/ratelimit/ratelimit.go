// Package ratelimit throttles calls to a MultimodalEmbedder.
//
// Cloud embedding APIs enforce per-key quotas. The decorator spaces calls with
// a token bucket and, after a response that reports HTTP 429, holds every
// caller back for a cool-down period.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.MultimodalEmbedder = (*Embedder)(nil)

// DefaultCooldown is the pause applied after a rate limit response.
const DefaultCooldown = 30 * time.Second

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size (default: 1).
	BurstSize int
	// Cooldown is the pause after a 429 response (default: 30s).
	Cooldown time.Duration
}

// Embedder wraps another embedder and limits how often it is called.
type Embedder struct {
	inner    driven.MultimodalEmbedder
	limiter  *rate.Limiter
	cooldown time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// Wrap returns inner unchanged when cfg.RequestsPerSecond is not positive.
func Wrap(inner driven.MultimodalEmbedder, cfg Config) driven.MultimodalEmbedder {
	if cfg.RequestsPerSecond <= 0 {
		return inner
	}
	return New(inner, cfg)
}

// New creates a rate limited embedder.
func New(inner driven.MultimodalEmbedder, cfg Config) *Embedder {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Embedder{
		inner:    inner,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		cooldown: cfg.Cooldown,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any cool-down set after a 429 response.
func (e *Embedder) Wait(ctx context.Context) error {
	e.mu.Lock()
	retryAt := e.retryAt
	e.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return e.limiter.Wait(ctx)
}

// observe starts a cool-down when err reports a rate limit response.
func (e *Embedder) observe(err error) {
	if err == nil || !IsRateLimited(err) {
		return
	}
	e.mu.Lock()
	e.retryAt = time.Now().Add(e.cooldown)
	e.mu.Unlock()
}

// IsRateLimited reports whether an adapter error carries an HTTP 429 status.
func IsRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status 429") || strings.Contains(msg, "Too Many Requests")
}

// EncodeText waits for a token, then delegates.
func (e *Embedder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := e.inner.EncodeText(ctx, texts)
	e.observe(err)
	return out, err
}

// EncodeImage waits for a token, then delegates.
func (e *Embedder) EncodeImage(ctx context.Context, imagePaths []string) ([][]float32, error) {
	if err := e.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := e.inner.EncodeImage(ctx, imagePaths)
	e.observe(err)
	return out, err
}

// Dimensions returns the wrapped embedder's dimension.
func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }

// ModelName returns the wrapped embedder's model.
func (e *Embedder) ModelName() string { return e.inner.ModelName() }

// Ping is not rate limited.
func (e *Embedder) Ping(ctx context.Context) error { return e.inner.Ping(ctx) }

// Close closes the wrapped embedder.
func (e *Embedder) Close() error { return e.inner.Close() }
