package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// Ensure WorkOrderService implements the interface.
var _ driving.WorkOrderService = (*WorkOrderService)(nil)

// workDetailsReply is the strict grammar of a work details answer.
type workDetailsReply struct {
	WorkTitle   *string `json:"work_title"`
	WorkDetails *string `json:"work_details"`
}

// WorkOrderService drafts and records work orders for selected recommendations.
type WorkOrderService struct {
	sessions    *SessionService
	recommender *RecommendationEngine
	store       driven.WorkOrderStore
	llm         driven.LLMService
	promptStore driven.PromptStore
	now         func() time.Time
}

// NewWorkOrderService creates a work order service. llm is optional (can be nil).
func NewWorkOrderService(
	sessions *SessionService,
	recommender *RecommendationEngine,
	store driven.WorkOrderStore,
	llm driven.LLMService,
) *WorkOrderService {
	return &WorkOrderService{
		sessions:    sessions,
		recommender: recommender,
		store:       store,
		llm:         llm,
		now:         time.Now,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *WorkOrderService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// GenerateDetails drafts a title and details for itemID. The record's own
// text is returned when no model is configured or generation fails.
func (s *WorkOrderService) GenerateDetails(ctx context.Context, sessionID, itemID string) (*driving.WorkDetails, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	record, err := s.recommender.LookupByIdentifier(ctx, itemID)
	if err != nil {
		return nil, err
	}

	fallback := &driving.WorkDetails{
		WorkTitle:   record.WorkTitle,
		WorkDetails: record.WorkDetails,
	}
	if s.llm == nil {
		return fallback, nil
	}

	prompt := fmt.Sprintf(loadPrompt(s.promptStore, driven.PromptWorkDetails),
		requestSummary(session), recordSummaryBlock(record))
	reply, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   600,
		Temperature: 0.3,
		Operation:   "work_details",
	})
	if err != nil {
		logger.Warn("Work details generation failed, using record text: %v", err)
		return fallback, nil
	}

	var parsed workDetailsReply
	if err := decodeStrict(reply, &parsed); err != nil {
		logger.Warn("Work details reply malformed, using record text: %v", err)
		return fallback, nil
	}
	title := cleanSlot(parsed.WorkTitle)
	details := cleanSlot(parsed.WorkDetails)
	if title == nil || details == nil {
		return fallback, nil
	}

	return &driving.WorkDetails{
		WorkTitle:   *title,
		WorkDetails: *details,
		Generated:   true,
	}, nil
}

// Finalize creates a work order from the selected record and moves the
// session to finalizing. Session slots take precedence over record fields.
// The session is finalized before the order is stored, both under the
// session lock, so a vanished session never leaves an orphan order.
func (s *WorkOrderService) Finalize(
	ctx context.Context, sessionID, itemID, title, details string,
) (*domain.WorkOrder, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	record, err := s.recommender.LookupByIdentifier(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var order *domain.WorkOrder
	err = s.sessions.WithLock(ctx, sessionID, func() error {
		session, err := s.sessions.finalize(ctx, sessionID, record.ItemID)
		if err != nil {
			return err
		}
		order = s.buildOrder(session, record, title, details)
		if err := s.store.Save(ctx, order); err != nil {
			return fmt.Errorf("save work order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Created work order %s from %s", order.ID, record.ItemID)
	return order, nil
}

func (s *WorkOrderService) buildOrder(
	session *domain.Session, record *domain.HistoricalRecord, title, details string,
) *domain.WorkOrder {
	pick := func(c domain.Category) string {
		if v, ok := session.Slot(c); ok && v.Value != "" {
			return v.Value
		}
		return record.Field(c)
	}

	return &domain.WorkOrder{
		ID:            newWorkOrderID(),
		SessionID:     session.ID,
		ItemID:        record.ItemID,
		Location:      pick(domain.CategoryLocation),
		EquipmentType: pick(domain.CategoryEquipmentType),
		StatusCode:    pick(domain.CategoryStatusCode),
		Priority:      pick(domain.CategoryPriority),
		WorkTitle:     firstNonEmpty(title, record.WorkTitle),
		WorkDetails:   firstNonEmpty(details, record.WorkDetails),
		CreatedAt:     s.now(),
	}
}

// Get retrieves a work order by ID.
func (s *WorkOrderService) Get(ctx context.Context, id string) (*domain.WorkOrder, error) {
	return s.store.Get(ctx, id)
}

// List returns all work orders, newest first.
func (s *WorkOrderService) List(ctx context.Context) ([]domain.WorkOrder, error) {
	return s.store.List(ctx)
}

// newWorkOrderID returns "WO" followed by 8 upper-case hex characters.
func newWorkOrderID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "WO" + strings.ToUpper(hex[:8])
}

func requestSummary(session *domain.Session) string {
	var b strings.Builder
	for _, c := range domain.AllCategories {
		if v, ok := session.Slot(c); ok {
			fmt.Fprintf(&b, "- %s: %s\n", c.Label(), v.Value)
		}
	}
	for _, m := range session.History {
		if m.Role == domain.RoleUser {
			fmt.Fprintf(&b, "- 사용자 요청: %s\n", m.Content)
		}
	}
	if b.Len() == 0 {
		return "(none)\n"
	}
	return b.String()
}

func recordSummaryBlock(r *domain.HistoricalRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- ITEMNO: %s\n", r.ItemID)
	fmt.Fprintf(&b, "- 위치: %s\n", r.Location)
	fmt.Fprintf(&b, "- 설비유형: %s\n", r.EquipmentType)
	fmt.Fprintf(&b, "- 현상코드: %s\n", r.StatusCode)
	fmt.Fprintf(&b, "- 우선순위: %s\n", r.Priority)
	fmt.Fprintf(&b, "- 작업명: %s\n", r.WorkTitle)
	fmt.Fprintf(&b, "- 작업상세: %s\n", r.WorkDetails)
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
