// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TermStore: Standard vocabulary per slot category
//   - RecordStore: Historical work orders used for recommendations
//   - SessionStore: Conversation session persistence (memory or redis)
//   - WorkOrderStore: Finalised work order persistence
//   - ConfigStore: Application configuration
//   - SchedulerStore: Background task state
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Without it, extraction falls back to keyword and lexical matching.
//   - PromptStore: Without it, built-in prompt templates are used.
//   - MetricsRecorder: Use NopMetrics when metrics are not exported.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
