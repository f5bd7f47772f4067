package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/workorder-assistant/internal/app"
	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
)

var errBackend = errors.New("backend unavailable")

var testRecord = domain.HistoricalRecord{
	ItemID:        "PE-SE1304B",
	Process:       "No.1 PE",
	Location:      "No.1 PE",
	EquipmentType: "Pressure Vessel",
	StatusCode:    "고장",
	Priority:      "긴급작업",
	WorkTitle:     "압력용기 긴급 점검",
	WorkDetails:   "압력용기 고장 부위 점검 및 수리",
}

// MockAssistantService implements driving.AssistantService for tests.
type MockAssistantService struct {
	HandleTurnFunc func(ctx context.Context, message, sessionID string) (*domain.TurnResult, error)
	Err            error

	messages []string
	sessions []string
}

func (m *MockAssistantService) HandleTurn(ctx context.Context, message, sessionID string) (*domain.TurnResult, error) {
	m.messages = append(m.messages, message)
	m.sessions = append(m.sessions, sessionID)
	if m.HandleTurnFunc != nil {
		return m.HandleTurnFunc(ctx, message, sessionID)
	}
	if sessionID == "" {
		sessionID = "session-1"
	}
	return &domain.TurnResult{
		Message:         "reply to " + message,
		SessionID:       sessionID,
		State:           domain.StateRecommending,
		Recommendations: []domain.Recommendation{{ItemID: testRecord.ItemID, Record: testRecord, Score: 0.9}},
		MissingFields:   []domain.Category{},
	}, nil
}

func (m *MockAssistantService) Welcome() string {
	return "welcome"
}

func (m *MockAssistantService) LookupByIdentifier(_ context.Context, identifier string) (*domain.HistoricalRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if !strings.EqualFold(identifier, testRecord.ItemID) {
		return nil, fmt.Errorf("item %s: %w", identifier, domain.ErrRecordNotFound)
	}
	r := testRecord
	return &r, nil
}

func (m *MockAssistantService) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if sessionID != "session-1" {
		return nil, domain.ErrSessionNotFound
	}
	return &domain.Session{
		ID:        sessionID,
		State:     domain.StateRecommending,
		TurnCount: 2,
		AccumulatedSlots: map[domain.Category]domain.SlotValue{
			domain.CategoryLocation:      {Value: "No.1 PE", Confidence: 1},
			domain.CategoryEquipmentType: {Value: "Pressure Vessel", Confidence: 0.9},
		},
		LastActivityAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (m *MockAssistantService) DeleteSession(_ context.Context, sessionID string) error {
	if m.Err != nil {
		return m.Err
	}
	if sessionID != "session-1" {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (m *MockAssistantService) ResetSession(_ context.Context, _ string) (*domain.Session, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.Session{ID: "session-2", State: domain.StateCollectingInfo}, nil
}

func (m *MockAssistantService) SessionStats(_ context.Context) (domain.SessionStats, error) {
	if m.Err != nil {
		return domain.SessionStats{}, m.Err
	}
	return domain.SessionStats{
		Total:        3,
		ByState:      map[domain.SessionState]int{domain.StateCollectingInfo: 1, domain.StateRecommending: 2},
		AverageTurns: 2.5,
	}, nil
}

func (m *MockAssistantService) ExpireSessions(_ context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return 4, nil
}

func (m *MockAssistantService) Suggest(_ context.Context, _ string) ([]string, error) {
	return []string{"Pump"}, m.Err
}

func (m *MockAssistantService) Vocabulary(_ context.Context, _ domain.Category) ([]domain.Term, error) {
	return []domain.Term{{Value: "Pump"}}, m.Err
}

// MockWorkOrderService implements driving.WorkOrderService for tests.
type MockWorkOrderService struct {
	Orders []domain.WorkOrder
	Err    error

	gotTitle   string
	gotDetails string
}

func (m *MockWorkOrderService) GenerateDetails(_ context.Context, _, itemID string) (*driving.WorkDetails, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &driving.WorkDetails{WorkTitle: "draft " + itemID, WorkDetails: "inspect and repair"}, nil
}

func (m *MockWorkOrderService) Finalize(
	_ context.Context, sessionID, itemID, title, details string,
) (*domain.WorkOrder, error) {
	m.gotTitle, m.gotDetails = title, details
	if m.Err != nil {
		return nil, m.Err
	}
	if title == "" {
		title = testRecord.WorkTitle
	}
	return &domain.WorkOrder{
		ID:          "wo-1",
		SessionID:   sessionID,
		ItemID:      itemID,
		Location:    testRecord.Location,
		WorkTitle:   title,
		WorkDetails: details,
	}, nil
}

func (m *MockWorkOrderService) Get(_ context.Context, id string) (*domain.WorkOrder, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Orders {
		if m.Orders[i].ID == id {
			o := m.Orders[i]
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockWorkOrderService) List(_ context.Context) ([]domain.WorkOrder, error) {
	return m.Orders, m.Err
}

// MockSettingsService implements driving.SettingsService for tests.
type MockSettingsService struct {
	Settings    domain.Settings
	ValidateErr error
	LLMErr      error
}

func newMockSettingsService() *MockSettingsService {
	return &MockSettingsService{Settings: domain.DefaultSettings()}
}

func (m *MockSettingsService) Get() (*domain.Settings, error) {
	s := m.Settings
	return &s, nil
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	m.Settings.LLM.Provider = provider
	m.Settings.LLM.Model = model
	m.Settings.LLM.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) SetSessionBackend(backend domain.SessionBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid session backend: %s", backend)
	}
	m.Settings.Session.Backend = backend
	return nil
}

func (m *MockSettingsService) Validate() error { return m.ValidateErr }

func (m *MockSettingsService) ValidateLLMConfig() error { return m.LLMErr }

func (m *MockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

// MockReseeder records reseed requests.
type MockReseeder struct {
	Err   error
	paths []string
}

func (m *MockReseeder) Reseed(_ context.Context, path string) (driven.ReferenceData, error) {
	m.paths = append(m.paths, path)
	if m.Err != nil {
		return driven.ReferenceData{}, m.Err
	}
	return driven.ReferenceData{
		Terms: map[domain.Category][]domain.Term{
			domain.CategoryLocation:      {{Value: "No.1 PE"}, {Value: "RFCC"}},
			domain.CategoryEquipmentType: {{Value: "Pump"}},
		},
		Records: []domain.HistoricalRecord{testRecord},
	}, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	assistant  *MockAssistantService
	workOrders *MockWorkOrderService
	settings   *MockSettingsService
	reference  *MockReseeder
}

var errAppOpened = errors.New("application must not be opened in this test")

// setupTestServices installs mocks and returns a function restoring the
// previous services.
func setupTestServices() (*testServices, func()) {
	oldAssistant := assistantService
	oldWorkOrders := workOrderService
	oldSettings := settingsService
	oldReference := referenceService
	oldOpen := openApp

	ts := &testServices{
		assistant:  &MockAssistantService{},
		workOrders: &MockWorkOrderService{},
		settings:   newMockSettingsService(),
		reference:  &MockReseeder{},
	}
	assistantService = ts.assistant
	workOrderService = ts.workOrders
	settingsService = ts.settings
	referenceService = ts.reference
	openApp = func(context.Context, app.Options) (*app.App, error) {
		return nil, errAppOpened
	}

	return ts, func() {
		assistantService = oldAssistant
		workOrderService = oldWorkOrders
		settingsService = oldSettings
		referenceService = oldReference
		openApp = oldOpen
	}
}

// runCommand executes the root command with args and stdin, returning
// everything written to stdout and stderr.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	verbose = false
	logLevel = "warn"
	configDir = ""
	envFile = ".env"
	inMemory = false
	lookupJSON = false
	sessionJSON = false
	workOrderJSON = false
	workOrderTitle = ""
	workOrderDetails = ""
	chatSessionID = ""
	serveAddr = ""
}
