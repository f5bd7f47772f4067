// Package domain defines the core business entities for the work-order assistant.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ParsedInput: The slots extracted from one user turn
//   - NormalizedSlot: A raw phrase mapped onto the standard vocabulary
//   - Session: Accumulated conversation state
//   - HistoricalRecord: A past work order used for recommendations
//   - Recommendation: A scored reference to a HistoricalRecord
//   - WorkOrder: A finalised work request
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
