// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// work-order assistant. It lets AI clients drive conversations, look up
// historical work and read the standard vocabulary.
package mcp

import "errors"

// ErrMissingAssistantService is returned when the assistant service is not provided.
var ErrMissingAssistantService = errors.New("mcp: assistant service is required")
