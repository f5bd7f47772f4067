package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// TurnInput is the input schema for the handle_turn tool.
type TurnInput struct {
	Message   string `json:"message" jsonschema:"the user's message, e.g. 'No.1 PE 압력베젤 고장'"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to continue; omit to start a new conversation"`
}

// TurnOutput is the output schema for the handle_turn tool.
type TurnOutput struct {
	Message         string                 `json:"message"`
	SessionID       string                 `json:"session_id"`
	State           string                 `json:"state"`
	Recommendations []RecommendationOutput `json:"recommendations"`
	MissingFields   []string               `json:"missing_fields"`
	NeedsMoreInput  bool                   `json:"needs_more_input"`
	Record          *RecordOutput          `json:"record,omitempty"`
}

// RecommendationOutput represents a single ranked recommendation.
type RecommendationOutput struct {
	ItemID  string  `json:"item_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Percent int     `json:"percent"`
}

// LookupInput is the input schema for the lookup_item tool.
type LookupInput struct {
	ItemID string `json:"item_id" jsonschema:"the work target identifier (ITEMNO), e.g. PE-SE1304B"`
}

// RecordOutput is a historical work record.
type RecordOutput struct {
	ItemID        string `json:"item_id"`
	Process       string `json:"process"`
	Location      string `json:"location"`
	EquipmentType string `json:"equipment_type"`
	StatusCode    string `json:"status_code"`
	Priority      string `json:"priority"`
	WorkTitle     string `json:"work_title,omitempty"`
	WorkDetails   string `json:"work_details,omitempty"`
}

// SessionInput identifies a session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session identifier"`
}

// SessionOutput is the output schema for the get_session tool.
type SessionOutput struct {
	SessionID      string            `json:"session_id"`
	State          string            `json:"state"`
	Slots          map[string]string `json:"slots"`
	TurnCount      int               `json:"turn_count"`
	SelectedItemID string            `json:"selected_item_id,omitempty"`
}

// DeleteOutput is the output schema for the delete_session tool.
type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

// SuggestInput is the input schema for the suggest tool.
type SuggestInput struct {
	Input string `json:"input" jsonschema:"partial text typed so far (at least two characters)"`
}

// SuggestOutput is the output schema for the suggest tool.
type SuggestOutput struct {
	Suggestions []string `json:"suggestions"`
}

// WorkDetailsInput is the input schema for the generate_work_details tool.
type WorkDetailsInput struct {
	SessionID string `json:"session_id" jsonschema:"the conversation the work order belongs to"`
	ItemID    string `json:"item_id" jsonschema:"the selected recommendation's item ID"`
}

// WorkDetailsOutput is the output schema for the generate_work_details tool.
type WorkDetailsOutput struct {
	WorkTitle   string `json:"work_title"`
	WorkDetails string `json:"work_details"`
	Generated   bool   `json:"generated"`
}

// FinalizeInput is the input schema for the finalize_work_order tool.
type FinalizeInput struct {
	SessionID   string `json:"session_id" jsonschema:"the conversation the work order belongs to"`
	ItemID      string `json:"item_id" jsonschema:"the selected recommendation's item ID"`
	WorkTitle   string `json:"work_title,omitempty" jsonschema:"title; defaults to the record's title"`
	WorkDetails string `json:"work_details,omitempty" jsonschema:"details; defaults to the record's details"`
}

// WorkOrderOutput is the output schema for the finalize_work_order tool.
type WorkOrderOutput struct {
	WorkOrderID string `json:"work_order_id"`
	ItemID      string `json:"item_id"`
	WorkTitle   string `json:"work_title"`
	WorkDetails string `json:"work_details"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "handle_turn",
		Description: "Send one message of a maintenance work request conversation and get recommendations",
	}, s.handleTurn)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lookup_item",
		Description: "Look up a historical work record by its item identifier (ITEMNO)",
	}, s.handleLookup)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_session",
		Description: "Show the information collected so far in a conversation",
	}, s.handleGetSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_session",
		Description: "End a conversation and discard its state",
	}, s.handleDeleteSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "suggest",
		Description: "Autocomplete standard terms and item identifiers for partial input",
	}, s.handleSuggest)

	if s.ports.WorkOrders == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_work_details",
		Description: "Draft a work title and details for a selected recommendation",
	}, s.handleWorkDetails)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "finalize_work_order",
		Description: "Create a work order from a selected recommendation",
	}, s.handleFinalize)
}

func (s *Server) handleTurn(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TurnInput,
) (*mcp.CallToolResult, TurnOutput, error) {
	result, err := s.ports.Assistant.HandleTurn(ctx, input.Message, input.SessionID)
	if err != nil {
		return nil, TurnOutput{}, err
	}

	output := TurnOutput{
		Message:         result.Message,
		SessionID:       result.SessionID,
		State:           string(result.State),
		Recommendations: make([]RecommendationOutput, len(result.Recommendations)),
		MissingFields:   make([]string, len(result.MissingFields)),
		NeedsMoreInput:  result.NeedsMoreInput,
	}
	for i, r := range result.Recommendations {
		output.Recommendations[i] = RecommendationOutput{
			ItemID:  r.ItemID,
			Title:   r.Record.WorkTitle,
			Score:   r.Score,
			Percent: r.Percent(),
		}
	}
	for i, c := range result.MissingFields {
		output.MissingFields[i] = string(c)
	}
	if result.Record != nil {
		rec := toRecordOutput(result.Record)
		output.Record = &rec
	}
	return nil, output, nil
}

func (s *Server) handleLookup(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LookupInput,
) (*mcp.CallToolResult, RecordOutput, error) {
	record, err := s.ports.Assistant.LookupByIdentifier(ctx, input.ItemID)
	if err != nil {
		return nil, RecordOutput{}, err
	}
	return nil, toRecordOutput(record), nil
}

func (s *Server) handleGetSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	session, err := s.ports.Assistant.GetSession(ctx, input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}

	slots := make(map[string]string, len(session.AccumulatedSlots))
	for c, v := range session.SlotValues() {
		slots[string(c)] = v
	}
	return nil, SessionOutput{
		SessionID:      session.ID,
		State:          string(session.State),
		Slots:          slots,
		TurnCount:      session.TurnCount,
		SelectedItemID: session.SelectedItemID,
	}, nil
}

func (s *Server) handleDeleteSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := s.ports.Assistant.DeleteSession(ctx, input.SessionID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: true}, nil
}

func (s *Server) handleSuggest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SuggestInput,
) (*mcp.CallToolResult, SuggestOutput, error) {
	suggestions, err := s.ports.Assistant.Suggest(ctx, input.Input)
	if err != nil {
		return nil, SuggestOutput{}, err
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return nil, SuggestOutput{Suggestions: suggestions}, nil
}

func (s *Server) handleWorkDetails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input WorkDetailsInput,
) (*mcp.CallToolResult, WorkDetailsOutput, error) {
	details, err := s.ports.WorkOrders.GenerateDetails(ctx, input.SessionID, input.ItemID)
	if err != nil {
		return nil, WorkDetailsOutput{}, fmt.Errorf("generating work details: %w", err)
	}
	return nil, WorkDetailsOutput{
		WorkTitle:   details.WorkTitle,
		WorkDetails: details.WorkDetails,
		Generated:   details.Generated,
	}, nil
}

func (s *Server) handleFinalize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FinalizeInput,
) (*mcp.CallToolResult, WorkOrderOutput, error) {
	order, err := s.ports.WorkOrders.Finalize(ctx, input.SessionID, input.ItemID, input.WorkTitle, input.WorkDetails)
	if err != nil {
		return nil, WorkOrderOutput{}, fmt.Errorf("finalizing work order: %w", err)
	}
	return nil, WorkOrderOutput{
		WorkOrderID: order.ID,
		ItemID:      order.ItemID,
		WorkTitle:   order.WorkTitle,
		WorkDetails: order.WorkDetails,
	}, nil
}

func toRecordOutput(r *domain.HistoricalRecord) RecordOutput {
	process := r.CostCenter
	if process == "" {
		process = r.Process
	}
	return RecordOutput{
		ItemID:        r.ItemID,
		Process:       process,
		Location:      r.Location,
		EquipmentType: r.EquipmentType,
		StatusCode:    r.StatusCode,
		Priority:      r.Priority,
		WorkTitle:     r.WorkTitle,
		WorkDetails:   r.WorkDetails,
	}
}
