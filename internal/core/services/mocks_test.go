package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

var errStoreDown = errors.New("store unavailable")

// --- LLM ---

// mockLLM answers prompts through reply and counts calls.
type mockLLM struct {
	mu      sync.Mutex
	reply   func(prompt string) (string, error)
	prompts []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	return m.reply(prompt)
}

func (m *mockLLM) ModelName() string { return "mock" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) promptsContaining(s string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.prompts {
		if strings.Contains(p, s) {
			n++
		}
	}
	return n
}

// isNormalizePrompt reports whether a prompt asks for term disambiguation.
func isNormalizePrompt(prompt string) bool {
	return strings.Contains(prompt, "normalized_term")
}

// isStrictPrompt reports whether a prompt is the strict extraction retry.
func isStrictPrompt(prompt string) bool {
	return strings.Contains(prompt, "could not be parsed")
}

// --- Prompt store ---

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// --- Reference data ---

type mockTermStore struct {
	mu    sync.Mutex
	terms map[domain.Category][]domain.Term
	err   error
	reads int
}

func (m *mockTermStore) Terms(_ context.Context, category domain.Category) ([]domain.Term, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return m.terms[category], nil
}

type mockRecordStore struct {
	records []domain.HistoricalRecord
	err     error
}

func (m *mockRecordStore) List(_ context.Context) ([]domain.HistoricalRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.HistoricalRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *mockRecordStore) Get(_ context.Context, itemID string) (*domain.HistoricalRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].ItemID == itemID {
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// --- Session store ---

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	saveErr  error
	saves    int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *mockSessionStore) Save(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *mockSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStore) List(_ context.Context) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s.Clone())
	}
	return out, nil
}

// touch moves a stored session's activity time.
func (m *mockSessionStore) touch(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id].LastActivityAt = at
}

// --- Work order store ---

type mockWorkOrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.WorkOrder
	err    error
}

func newMockWorkOrderStore() *mockWorkOrderStore {
	return &mockWorkOrderStore{orders: make(map[string]domain.WorkOrder)}
}

func (m *mockWorkOrderStore) Save(_ context.Context, order *domain.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *mockWorkOrderStore) Get(_ context.Context, id string) (*domain.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (m *mockWorkOrderStore) List(_ context.Context) ([]domain.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WorkOrder, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Metrics ---

type mockMetrics struct {
	mu              sync.Mutex
	turns           int
	recommendations []int
	expired         int
}

func (m *mockMetrics) TurnHandled(string, string, time.Duration) {
	m.mu.Lock()
	m.turns++
	m.mu.Unlock()
}

func (m *mockMetrics) LLMCall(string, bool, time.Duration) {}

func (m *mockMetrics) Recommendations(n int) {
	m.mu.Lock()
	m.recommendations = append(m.recommendations, n)
	m.mu.Unlock()
}

func (m *mockMetrics) SessionsExpired(n int) {
	m.mu.Lock()
	m.expired += n
	m.mu.Unlock()
}

// --- Fixtures ---

func testVocabulary() map[domain.Category][]domain.Term {
	return map[domain.Category][]domain.Term{
		domain.CategoryLocation: {
			{Value: "No.1 PE"},
			{Value: "No.2 PE"},
			{Value: "석유제품배합/저장"},
			{Value: "RFCC"},
		},
		domain.CategoryEquipmentType: {
			{Value: "Pressure Vessel", Aliases: []string{"압력용기", "압력베젤"}},
			{Value: "Pump", Aliases: []string{"펌프"}},
			{Value: "Heat Exchanger", Aliases: []string{"열교환기"}},
			{Value: "Control Valve", Aliases: []string{"제어밸브"}},
			{Value: "Tank", Aliases: []string{"탱크"}},
		},
		domain.CategoryStatusCode: {
			{Value: "고장"},
			{Value: "누설"},
			{Value: "작동불량"},
			{Value: "소음"},
		},
		domain.CategoryPriority: {
			{Value: "긴급작업"},
			{Value: "우선작업"},
			{Value: "일반작업"},
			{Value: "주기작업"},
		},
	}
}

func testRecords() []domain.HistoricalRecord {
	return []domain.HistoricalRecord{
		{
			ItemID: "PE-SE1304B", Process: "No.1 PE", Location: "No.1 PE",
			EquipmentType: "Pressure Vessel", StatusCode: "고장", Priority: "긴급작업",
			WorkTitle: "압력용기 긴급 점검", WorkDetails: "압력용기 고장 부위 점검 및 수리",
		},
		{
			ItemID: "44043-CA1-6\"-P", Process: "RFCC", Location: "RFCC",
			EquipmentType: "Pump", StatusCode: "누설", Priority: "우선작업",
			WorkTitle: "펌프 누설 수리", WorkDetails: "메커니컬 씰 교체",
		},
		{
			ItemID: "SW-CV1307-02", Process: "No.2 PE", Location: "No.2 PE",
			EquipmentType: "Control Valve", StatusCode: "작동불량", Priority: "일반작업",
			WorkTitle: "제어밸브 작동불량 조치", WorkDetails: "포지셔너 점검",
		},
	}
}

func testSettings() domain.AssistantSettings {
	return domain.DefaultAssistantSettings()
}

// steppedClock returns each time in turn, then keeps returning the last one.
func steppedClock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at := times[min(i, len(times)-1)]
		i++
		return at
	}
}

func strPtr(s string) *string {
	return &s
}
