package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for assistant resources.
	uriScheme = "workorder://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing the vocabulary categories.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "vocabulary",
		Name:        "vocabulary-categories",
		Description: "Slot categories with a standard vocabulary",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)

	// Template for the terms of one category.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "vocabulary/{category}",
		Name:        "vocabulary",
		Description: "Standard terms and aliases for a category (location, equipment_type, status_code, priority)",
		MIMEType:    "application/json",
	}, s.handleVocabularyResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sessions/stats",
		Name:        "session-stats",
		Description: "Live conversation count, state breakdown and average turns",
		MIMEType:    "application/json",
	}, s.handleStatsResource)
}

func (s *Server) handleCategoriesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type categoryInfo struct {
		Name     string `json:"name"`
		Label    string `json:"label"`
		Critical bool   `json:"critical"`
	}

	infos := make([]categoryInfo, len(domain.AllCategories))
	for i, c := range domain.AllCategories {
		infos[i] = categoryInfo{Name: string(c), Label: c.Label(), Critical: slices.Contains(domain.CriticalCategories, c)}
	}
	return jsonResult(req.Params.URI, infos)
}

// handleVocabularyResource returns the terms of one category.
func (s *Server) handleVocabularyResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	category := extractCategory(req.Params.URI)
	if !category.IsValid() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	terms, err := s.ports.Assistant.Vocabulary(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}

	type termInfo struct {
		Value   string   `json:"value"`
		Aliases []string `json:"aliases,omitempty"`
	}
	infos := make([]termInfo, len(terms))
	for i, t := range terms {
		infos[i] = termInfo{Value: t.Value, Aliases: t.Aliases}
	}
	return jsonResult(req.Params.URI, infos)
}

func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Assistant.SessionStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading session stats: %w", err)
	}
	return jsonResult(req.Params.URI, stats)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCategory extracts the category from a URI like workorder://vocabulary/{category}.
func extractCategory(uri string) domain.Category {
	const prefix = uriScheme + "vocabulary/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return domain.Category(strings.TrimPrefix(uri, prefix))
}
