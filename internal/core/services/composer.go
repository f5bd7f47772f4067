package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// missingHints are the prompts shown for each missing critical slot.
var missingHints = map[domain.Category]string{
	domain.CategoryLocation:      "위치/공정 (예: No.1 PE, No.2 PE, 석유제품배합/저장)",
	domain.CategoryEquipmentType: "설비유형 (예: 압력베젤, 펌프, 열교환기, 탱크, 밸브)",
	domain.CategoryStatusCode:    "현상코드 (예: 고장, 누설, 작동불량, 소음, 진동)",
}

const msgRephrase = "입력하신 내용을 이해하지 못했습니다. 설비와 현상을 포함해 다시 말씀해주세요.\n" +
	"예시: \"No.1 PE 압력베젤 고장\""

const msgNeedsIdentifier = "🔎 **유사한 작업이 너무 많습니다 (%d건).**\n\n" +
	"작업대상(ITEMNO)을 직접 입력하시거나 위치와 현상을 더 구체적으로 알려주세요."

const (
	msgNoMatch   = "유사한 작업을 찾지 못했습니다. 다른 표현으로 설명하시거나 작업대상(ITEMNO)을 입력해주세요."
	msgTipItemNo = "\n💡 **또는 작업대상(ITEMNO)과 현상코드를 직접 입력하셔도 됩니다.**"
)

// ResponseComposer renders a turn into a user-facing message and decides
// the next session state.
type ResponseComposer struct{}

// NewResponseComposer creates a composer.
func NewResponseComposer() *ResponseComposer {
	return &ResponseComposer{}
}

// Compose builds the response for a turn. session must already hold the
// merged slots of this turn.
func (c *ResponseComposer) Compose(
	parsed domain.ParsedInput, session *domain.Session, batch domain.RecommendationBatch,
) domain.Composition {
	missing := session.MissingCritical()
	shown := len(batch.Recommendations) > 0

	out := domain.Composition{
		MissingFields:  missing,
		NeedsMoreInput: len(missing) > 0 || !shown || batch.MoreAvailable || batch.NeedsIdentifier,
		State:          nextState(session, shown, len(missing) == 0),
	}
	if out.MissingFields == nil {
		out.MissingFields = []domain.Category{}
	}

	switch {
	case parsed.ExtractionFailed && !shown:
		out.Message = msgRephrase
	case shown:
		out.Message = recommendationsMessage(session, batch)
	case batch.NeedsIdentifier:
		out.Message = fmt.Sprintf(msgNeedsIdentifier, batch.TotalCandidates)
	case len(missing) > 0:
		out.Message = collectingMessage(session, missing)
	default:
		out.Message = msgNoMatch
	}
	return out
}

// ComposeLookup renders the result of an identifier lookup.
func (c *ResponseComposer) ComposeLookup(identifier string, record *domain.HistoricalRecord) string {
	if record == nil {
		return fmt.Sprintf("ITEMNO %s에 해당하는 작업을 찾을 수 없습니다.", identifier)
	}

	process := record.CostCenter
	if process == "" {
		process = record.Process
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ITEMNO %s에 대한 작업 정보입니다:\n\n", record.ItemID)
	fmt.Fprintf(&b, "• 공정: %s\n", process)
	fmt.Fprintf(&b, "• 위치: %s\n", record.Location)
	fmt.Fprintf(&b, "• 설비유형: %s\n", record.EquipmentType)
	fmt.Fprintf(&b, "• 현상코드: %s\n", record.StatusCode)
	fmt.Fprintf(&b, "• 우선순위: %s\n", record.Priority)
	if record.WorkTitle != "" {
		fmt.Fprintf(&b, "\n작업명: %s\n", record.WorkTitle)
	}
	if record.WorkDetails != "" {
		fmt.Fprintf(&b, "작업상세: %s\n", record.WorkDetails)
	}
	return b.String()
}

// Welcome returns the greeting shown when a conversation starts.
func (c *ResponseComposer) Welcome() string {
	var b strings.Builder
	b.WriteString("안녕하세요! 설비관리 작업요청을 도와드리겠습니다.\n\n")
	b.WriteString("다음과 같은 형식으로 입력해주세요:\n")
	b.WriteString("• \"1PE 압력베젤 고장\" - 자연어로 작업 요청\n")
	b.WriteString("• \"ITEMNO 12345\" - 특정 작업 상세 조회\n\n")
	b.WriteString("**위치 정보를 포함하면 더 정확한 추천을 받을 수 있습니다.**\n")
	b.WriteString("예시: \"No.1 PE 압력베젤 고장\", \"석유제품배합/저장 탱크 누설\"\n\n")
	b.WriteString("어떤 작업을 도와드릴까요?")
	return b.String()
}

// nextState applies the session state machine. Finalizing is terminal.
func nextState(session *domain.Session, shown, complete bool) domain.SessionState {
	if session.State == domain.StateFinalizing {
		return domain.StateFinalizing
	}
	if shown || complete {
		return domain.StateRecommending
	}
	return domain.StateCollectingInfo
}

func recommendationsMessage(session *domain.Session, batch domain.RecommendationBatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 **%d개의 유사한 작업을 찾았습니다!**\n\n", len(batch.Recommendations))

	if session.HasSlots() {
		b.WriteString("📋 **수집된 정보:**\n")
		for _, c := range domain.AllCategories {
			if v, ok := session.Slot(c); ok {
				fmt.Fprintf(&b, "• %s: %s\n", c.Label(), v.Value)
			}
		}
		b.WriteString("\n")
	}

	for i, r := range batch.Recommendations {
		fmt.Fprintf(&b, "%d. [%s] %s (%d%%)\n", i+1, r.ItemID, recordSummary(&r.Record), r.Percent())
	}

	if batch.MoreAvailable {
		fmt.Fprintf(&b, "\n외 %d건의 유사한 작업이 더 있습니다. 작업대상(ITEMNO)이나 추가 정보로 범위를 좁혀주세요.\n",
			batch.TotalCandidates-len(batch.Recommendations))
	}

	if session.TurnCount > 0 {
		fmt.Fprintf(&b, "\n💡 **턴 %d**: 아래 추천 목록에서 가장 적합한 작업을 선택해주세요.", session.TurnCount)
	} else {
		b.WriteString("\n아래 추천 목록에서 가장 적합한 작업을 선택해주세요.")
	}
	return b.String()
}

func recordSummary(r *domain.HistoricalRecord) string {
	if r.WorkTitle != "" {
		return r.WorkTitle
	}
	return strings.Join([]string{r.Location, r.EquipmentType, r.StatusCode}, " / ")
}

func collectingMessage(session *domain.Session, missing []domain.Category) string {
	var b strings.Builder
	b.WriteString("📝 **작업 정보를 수집하고 있습니다.**\n\n")

	for _, c := range domain.AllCategories {
		if v, ok := session.Slot(c); ok {
			fmt.Fprintf(&b, "• %s: %s ✅\n", c.Label(), v.Value)
		}
	}

	b.WriteString("\n❗ **추가로 필요한 정보:**\n")
	for _, c := range missing {
		fmt.Fprintf(&b, "• %s\n", missingHints[c])
	}
	b.WriteString(msgTipItemNo)
	return b.String()
}
