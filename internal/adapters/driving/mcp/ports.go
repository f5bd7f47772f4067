package mcp

import (
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Assistant handles turns, lookups and sessions.
	Assistant driving.AssistantService

	// WorkOrders drafts and finalizes work orders. Optional.
	WorkOrders driving.WorkOrderService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistantService
	}
	return nil
}
