package httpapi

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
)

// ErrMissingAssistantService is returned when the assistant service is not provided.
var ErrMissingAssistantService = errors.New("httpapi: assistant service is required")

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	// Assistant handles conversation turns and session operations.
	Assistant driving.AssistantService

	// WorkOrders is optional. Work-order routes answer 501 without it.
	WorkOrders driving.WorkOrderService

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistantService
	}
	return nil
}
