// Package guard wraps an LLMService with the call policy shared by every
// provider: a per-attempt timeout, one retry after a fixed backoff,
// a token-bucket rate limit and per-call metrics.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.LLMService = (*Service)(nil)

// maxAttempts is the first call plus one retry.
const maxAttempts = 2

// Config holds the guard policy.
type Config struct {
	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	// RetryBackoff is the pause before the retry.
	RetryBackoff time.Duration

	// RequestsPerSecond limits outbound calls. Zero disables limiting.
	RequestsPerSecond float64
}

// Service is a guarded LLMService.
type Service struct {
	inner   driven.LLMService
	cfg     Config
	limiter *rate.Limiter
	metrics driven.MetricsRecorder
}

// New wraps inner. metrics may be nil.
func New(inner driven.LLMService, cfg Config, metrics driven.MetricsRecorder) *Service {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	s := &Service{inner: inner, cfg: cfg, metrics: metrics}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s
}

// Generate calls the wrapped service, retrying once on failure.
// Cancellation of ctx is never retried.
func (s *Service) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	op := opts.Operation
	if op == "" {
		op = "generate"
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.cfg.RetryBackoff); err != nil {
				return "", err
			}
			logger.Debug("LLM %s: retrying after %v", op, lastErr)
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("llm rate limit: %w", err)
			}
		}

		reply, err := s.attempt(ctx, prompt, opts, op)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: %s failed after %d attempts: %w", domain.ErrLLMUnavailable, op, maxAttempts, lastErr)
}

func (s *Service) attempt(ctx context.Context, prompt string, opts driven.GenerateOptions, op string) (string, error) {
	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.inner.Generate(callCtx, prompt, opts)
	s.metrics.LLMCall(op, err == nil, time.Since(start))
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return "", fmt.Errorf("attempt timed out after %v: %w", s.cfg.Timeout, err)
	}
	return reply, err
}

// ModelName returns the wrapped model name.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service once, bounded by the attempt timeout.
func (s *Service) Ping(ctx context.Context) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.inner.Ping(ctx)
}

// Close releases the wrapped service.
func (s *Service) Close() error {
	return s.inner.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
