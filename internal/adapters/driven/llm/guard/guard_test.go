package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

// scriptedLLM returns results in order, then repeats the last one.
type scriptedLLM struct {
	mu      sync.Mutex
	results []error
	delay   time.Duration
	calls   int
	closed  bool
}

func (s *scriptedLLM) Generate(ctx context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	s.mu.Lock()
	i := min(s.calls, len(s.results)-1)
	s.calls++
	err := s.results[i]
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if err != nil {
		return "", err
	}
	return "ok", nil
}

func (s *scriptedLLM) ModelName() string { return "scripted" }

func (s *scriptedLLM) Ping(context.Context) error { return nil }

func (s *scriptedLLM) Close() error {
	s.closed = true
	return nil
}

type recordingMetrics struct {
	driven.NopMetrics
	mu      sync.Mutex
	results []bool
}

func (m *recordingMetrics) LLMCall(_ string, success bool, _ time.Duration) {
	m.mu.Lock()
	m.results = append(m.results, success)
	m.mu.Unlock()
}

func TestService_Generate_Success(t *testing.T) {
	inner := &scriptedLLM{results: []error{nil}}
	metrics := &recordingMetrics{}
	s := New(inner, Config{}, metrics)

	reply, err := s.Generate(context.Background(), "p", driven.GenerateOptions{Operation: "extract"})

	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, []bool{true}, metrics.results)
}

func TestService_Generate_RetriesOnce(t *testing.T) {
	inner := &scriptedLLM{results: []error{errors.New("503"), nil}}
	metrics := &recordingMetrics{}
	s := New(inner, Config{RetryBackoff: time.Millisecond}, metrics)

	reply, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, []bool{false, true}, metrics.results)
}

func TestService_Generate_GivesUpAfterRetry(t *testing.T) {
	inner := &scriptedLLM{results: []error{errors.New("503")}}
	s := New(inner, Config{}, nil)

	_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestService_Generate_AttemptTimeout(t *testing.T) {
	inner := &scriptedLLM{results: []error{nil}, delay: 200 * time.Millisecond}
	s := New(inner, Config{Timeout: 10 * time.Millisecond}, nil)

	start := time.Now()
	_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, inner.calls)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestService_Generate_CancelledContextNotRetried(t *testing.T) {
	inner := &scriptedLLM{results: []error{errors.New("boom")}}
	s := New(inner, Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Generate(ctx, "p", driven.GenerateOptions{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, inner.calls, 1)
}

func TestService_Generate_RateLimited(t *testing.T) {
	inner := &scriptedLLM{results: []error{nil}}
	s := New(inner, Config{RequestsPerSecond: 20}, nil)

	start := time.Now()
	for i := 0; i < 22; i++ {
		_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestService_Delegates(t *testing.T) {
	inner := &scriptedLLM{results: []error{nil}}
	s := New(inner, Config{Timeout: time.Second}, nil)

	assert.Equal(t, "scripted", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
	assert.True(t, inner.closed)
}
