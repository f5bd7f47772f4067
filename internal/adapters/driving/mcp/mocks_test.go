package mcp

import (
	"context"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
)

// mockAssistant is a mock implementation of driving.AssistantService.
type mockAssistant struct {
	result      *domain.TurnResult
	record      *domain.HistoricalRecord
	session     *domain.Session
	stats       domain.SessionStats
	suggestions []string
	terms       []domain.Term
	err         error

	gotMessage   string
	gotSessionID string
	gotCategory  domain.Category
	gotItemID    string
}

func (m *mockAssistant) HandleTurn(_ context.Context, message, sessionID string) (*domain.TurnResult, error) {
	m.gotMessage, m.gotSessionID = message, sessionID
	return m.result, m.err
}

func (m *mockAssistant) LookupByIdentifier(_ context.Context, identifier string) (*domain.HistoricalRecord, error) {
	m.gotItemID = identifier
	return m.record, m.err
}

func (m *mockAssistant) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	m.gotSessionID = sessionID
	return m.session, m.err
}

func (m *mockAssistant) DeleteSession(_ context.Context, sessionID string) error {
	m.gotSessionID = sessionID
	return m.err
}

func (m *mockAssistant) ResetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	m.gotSessionID = sessionID
	return m.session, m.err
}

func (m *mockAssistant) SessionStats(_ context.Context) (domain.SessionStats, error) {
	return m.stats, m.err
}

func (m *mockAssistant) ExpireSessions(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockAssistant) Suggest(_ context.Context, input string) ([]string, error) {
	m.gotMessage = input
	return m.suggestions, m.err
}

func (m *mockAssistant) Vocabulary(_ context.Context, category domain.Category) ([]domain.Term, error) {
	m.gotCategory = category
	return m.terms, m.err
}

// mockWorkOrders is a mock implementation of driving.WorkOrderService.
type mockWorkOrders struct {
	details *driving.WorkDetails
	order   *domain.WorkOrder
	orders  []domain.WorkOrder
	err     error

	gotTitle string
}

func (m *mockWorkOrders) GenerateDetails(_ context.Context, _, _ string) (*driving.WorkDetails, error) {
	return m.details, m.err
}

func (m *mockWorkOrders) Finalize(_ context.Context, _, _, title, _ string) (*domain.WorkOrder, error) {
	m.gotTitle = title
	return m.order, m.err
}

func (m *mockWorkOrders) Get(_ context.Context, _ string) (*domain.WorkOrder, error) {
	return m.order, m.err
}

func (m *mockWorkOrders) List(_ context.Context) ([]domain.WorkOrder, error) {
	return m.orders, m.err
}
