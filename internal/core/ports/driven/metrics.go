package driven

import "time"

// MetricsRecorder receives operational measurements from the core.
// A nil recorder is never passed to services; use NopMetrics instead.
type MetricsRecorder interface {
	// TurnHandled records one handled turn.
	TurnHandled(scenario, state string, duration time.Duration)

	// LLMCall records one completion attempt.
	LLMCall(operation string, success bool, duration time.Duration)

	// Recommendations records the size of a candidate set.
	Recommendations(candidates int)

	// SessionsExpired records sessions removed by expiry.
	SessionsExpired(count int)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

// TurnHandled implements MetricsRecorder.
func (NopMetrics) TurnHandled(string, string, time.Duration) {}

// LLMCall implements MetricsRecorder.
func (NopMetrics) LLMCall(string, bool, time.Duration) {}

// Recommendations implements MetricsRecorder.
func (NopMetrics) Recommendations(int) {}

// SessionsExpired implements MetricsRecorder.
func (NopMetrics) SessionsExpired(int) {}
