package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// identifierPatterns recognise direct record keys, most specific first.
// The first capture group, when present, is the identifier.
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bITEMNO\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9"\-]*)`),
	regexp.MustCompile(`(?i)\b\d{5,}-[A-Z0-9"\-]+`),
	regexp.MustCompile(`(?i)\b[A-Z]{2,4}-[A-Z0-9]*\d[A-Z0-9]*(?:-[A-Z0-9]+)*\b`),
}

// candidatePattern finds looser tags, such as single-letter prefixes,
// which count as identifiers only when a stored record confirms them.
var candidatePattern = regexp.MustCompile(`(?i)\b[A-Z]{1,4}-[A-Z0-9"\-]*\d[A-Z0-9"\-]*`)

// identifierSimilarity is the edit-distance ratio above which a candidate
// is taken to mean a stored item ID.
const identifierSimilarity = 0.8

// priorityKeywords maps the priority vocabulary to trigger words, checked in order.
var priorityKeywords = []struct {
	priority string
	words    []string
}{
	{"긴급작업", []string{"긴급", "최우선", "urgent", "emergency", "즉시", "바로"}},
	{"우선작업", []string{"우선", "priority", "high", "먼저", "중요"}},
	{"일반작업", []string{"일반", "normal", "regular", "보통"}},
	{"주기작업", []string{"주기", "TA", "PM", "정기", "점검"}},
}

// extractionReply is the strict grammar of a slot extraction answer.
type extractionReply struct {
	Location      *string  `json:"location"`
	EquipmentType *string  `json:"equipment_type"`
	StatusCode    *string  `json:"status_code"`
	Priority      *string  `json:"priority"`
	Confidence    *float64 `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
}

func (r *extractionReply) slots() map[domain.Category]*string {
	return map[domain.Category]*string{
		domain.CategoryLocation:      cleanSlot(r.Location),
		domain.CategoryEquipmentType: cleanSlot(r.EquipmentType),
		domain.CategoryStatusCode:    cleanSlot(r.StatusCode),
		domain.CategoryPriority:      cleanSlot(r.Priority),
	}
}

// InputParser turns one user message into a ParsedInput.
type InputParser struct {
	terms       driven.TermStore
	records     driven.RecordStore
	normalizer  SlotNormalizer
	llm         driven.LLMService
	promptStore driven.PromptStore
	cfg         domain.AssistantSettings
}

// NewInputParser creates a parser. llm is optional (can be nil); without it
// slots are found by scanning the text for vocabulary terms.
func NewInputParser(
	terms driven.TermStore,
	normalizer SlotNormalizer,
	llm driven.LLMService,
	cfg domain.AssistantSettings,
) *InputParser {
	return &InputParser{
		terms:      terms,
		normalizer: normalizer,
		llm:        llm,
		cfg:        cfg,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (p *InputParser) SetPromptStore(store driven.PromptStore) {
	p.promptStore = store
}

// SetRecordStore enables confirming identifier candidates against the
// stored item IDs before falling back to the identifier patterns.
func (p *InputParser) SetRecordStore(records driven.RecordStore) {
	p.records = records
}

// MatchIdentifier returns the record identifier embedded in text, if any.
func MatchIdentifier(text string) string {
	for _, re := range identifierPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return m[1]
		}
		return m[0]
	}
	return ""
}

// identifierCandidates lists every tag in text that could be an item ID.
func identifierCandidates(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, re := range identifierPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) > 1 && m[1] != "" {
				add(m[1])
			} else {
				add(m[0])
			}
		}
	}
	for _, m := range candidatePattern.FindAllString(text, -1) {
		add(m)
	}
	return out
}

// storedIdentifier returns the stored item ID that a candidate in text
// names, matched case-insensitively or by close spelling. Store failures
// leave detection to the patterns.
func (p *InputParser) storedIdentifier(ctx context.Context, text string) string {
	if p.records == nil {
		return ""
	}
	candidates := identifierCandidates(text)
	if len(candidates) == 0 {
		return ""
	}
	records, err := p.records.List(ctx)
	if err != nil {
		logger.Warn("Identifier check skipped: %v", err)
		return ""
	}

	for _, c := range candidates {
		for i := range records {
			if strings.EqualFold(records[i].ItemID, c) {
				return records[i].ItemID
			}
		}
	}

	best, bestScore := "", identifierSimilarity
	for _, c := range candidates {
		for i := range records {
			if score := Similarity(c, records[i].ItemID); score > bestScore {
				best, bestScore = records[i].ItemID, score
			}
		}
	}
	return best
}

// DetectScenario classifies a turn. The identifier is returned for lookups.
func DetectScenario(text string, session *domain.Session, shortInputRunes int) (domain.Scenario, string) {
	if id := MatchIdentifier(text); id != "" {
		return domain.ScenarioIdentifierLookup, id
	}
	if session != nil && session.HasSlots() && utf8.RuneCountInString(text) <= shortInputRunes {
		return domain.ScenarioContextContinuation, ""
	}
	return domain.ScenarioFreeText, ""
}

// DetectPriority returns the priority implied by keywords in text, or "".
func DetectPriority(text string) string {
	lower := strings.ToLower(text)
	for _, group := range priorityKeywords {
		for _, w := range group.words {
			if isASCII(w) {
				if containsWord(text, w) {
					return group.priority
				}
				continue
			}
			if strings.Contains(lower, w) {
				return group.priority
			}
		}
	}
	return ""
}

// Parse extracts and normalizes the slots of one turn, back-filling
// anything not mentioned from the session. Only reference data failures
// are returned as errors; model failures produce an empty low-confidence result.
func (p *InputParser) Parse(
	ctx context.Context, raw string, history []domain.Message, session *domain.Session,
) (domain.ParsedInput, error) {
	logger.Section("Parse")
	text := strings.TrimSpace(raw)

	scenario, identifier := DetectScenario(text, session, p.cfg.ShortInputRunes)
	if stored := p.storedIdentifier(ctx, text); stored != "" {
		scenario, identifier = domain.ScenarioIdentifierLookup, stored
	}
	logger.Debug("Scenario: %s", scenario)

	if scenario == domain.ScenarioIdentifierLookup {
		logger.Debug("Identifier: %q", identifier)
		return domain.ParsedInput{
			Scenario:   scenario,
			Identifier: identifier,
			Confidence: 1.0,
		}, nil
	}

	rawSlots, err := p.extract(ctx, text, history)
	if err != nil {
		if isReferenceError(err) {
			return domain.ParsedInput{}, err
		}
		logger.Warn("Extraction failed: %v", err)
		return domain.ParsedInput{Scenario: scenario, ExtractionFailed: true}, nil
	}

	if rawSlots[domain.CategoryPriority] == nil {
		if prio := DetectPriority(text); prio != "" {
			rawSlots[domain.CategoryPriority] = &prio
		}
	}

	normalized, err := p.normalizeAll(ctx, rawSlots)
	if err != nil {
		return domain.ParsedInput{}, err
	}

	parsed := domain.ParsedInput{
		Scenario: scenario,
		Slots:    normalized,
	}

	var total float64
	var present int
	for _, c := range domain.AllCategories {
		if slot, ok := normalized[c]; ok {
			v := slot.Normalized
			parsed.Set(c, &v)
			total += slot.Confidence
			present++
			continue
		}
		if session == nil {
			continue
		}
		if acc, ok := session.Slot(c); ok {
			v := acc.Value
			parsed.Set(c, &v)
			total += acc.Confidence
			present++
		}
	}
	if present > 0 {
		parsed.Confidence = total / float64(present)
	}

	logger.Debug("Parsed %d slot(s), confidence %.2f", present, parsed.Confidence)
	return parsed, nil
}

// normalizeAll normalizes every present raw slot concurrently.
func (p *InputParser) normalizeAll(
	ctx context.Context, rawSlots map[domain.Category]*string,
) (map[domain.Category]domain.NormalizedSlot, error) {
	results := make([]domain.NormalizedSlot, len(domain.AllCategories))
	found := make([]bool, len(domain.AllCategories))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range domain.AllCategories {
		v := rawSlots[c]
		if v == nil {
			continue
		}
		g.Go(func() error {
			slot, err := p.normalizer.Normalize(gctx, *v, c)
			if err != nil {
				return err
			}
			results[i] = slot
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[domain.Category]domain.NormalizedSlot)
	for i, c := range domain.AllCategories {
		if found[i] {
			out[c] = results[i]
		}
	}
	return out, nil
}

// extract returns the raw slot phrases found in text.
func (p *InputParser) extract(
	ctx context.Context, text string, history []domain.Message,
) (map[domain.Category]*string, error) {
	vocab, err := p.vocabulary(ctx)
	if err != nil {
		return nil, err
	}

	if p.llm == nil {
		return scanVocabulary(text, vocab), nil
	}

	vocabBlock := formatVocabulary(vocab)
	historyBlock := formatHistory(history, p.cfg.HistoryWindow)

	reply, err := p.askExtraction(ctx, driven.PromptExtraction, vocabBlock, historyBlock, text)
	if err == nil {
		return reply.slots(), nil
	}
	logger.Debug("Extraction attempt failed, retrying with strict prompt: %v", err)

	reply, err = p.askExtraction(ctx, driven.PromptExtractionStrict, vocabBlock, historyBlock, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}
	return reply.slots(), nil
}

func (p *InputParser) askExtraction(
	ctx context.Context, promptName, vocab, history, text string,
) (*extractionReply, error) {
	prompt := fmt.Sprintf(loadPrompt(p.promptStore, promptName), vocab, history, text)
	out, err := p.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   300,
		Temperature: 0,
		Operation:   "extract",
	})
	if err != nil {
		return nil, err
	}

	var reply extractionReply
	if err := decodeStrict(out, &reply); err != nil {
		return nil, err
	}
	if reply.Confidence != nil && !validConfidence(*reply.Confidence) {
		return nil, fmt.Errorf("%w: confidence %v out of range", domain.ErrMalformedOutput, *reply.Confidence)
	}
	return &reply, nil
}

// vocabulary loads the terms of every category.
func (p *InputParser) vocabulary(ctx context.Context) (map[domain.Category][]domain.Term, error) {
	out := make(map[domain.Category][]domain.Term, len(domain.AllCategories))
	for _, c := range domain.AllCategories {
		terms, err := p.terms.Terms(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%w: loading %s terms: %w", domain.ErrReferenceData, c, err)
		}
		out[c] = terms
	}
	return out, nil
}

// scanVocabulary finds, per category, the longest term or alias contained in text.
func scanVocabulary(text string, vocab map[domain.Category][]domain.Term) map[domain.Category]*string {
	lower := strings.ToLower(text)
	out := make(map[domain.Category]*string, len(domain.AllCategories))
	for _, c := range domain.AllCategories {
		best := ""
		for _, t := range vocab[c] {
			for _, form := range append([]string{t.Value}, t.Aliases...) {
				if form != "" && strings.Contains(lower, strings.ToLower(form)) && len(form) > len(best) {
					best = form
				}
			}
		}
		if best != "" {
			out[c] = &best
		}
	}
	return out
}

func formatVocabulary(vocab map[domain.Category][]domain.Term) string {
	var b strings.Builder
	for _, c := range domain.AllCategories {
		values := make([]string, 0, len(vocab[c]))
		for _, t := range vocab[c] {
			entry := t.Value
			if len(t.Aliases) > 0 {
				entry += " (" + strings.Join(t.Aliases, ", ") + ")"
			}
			values = append(values, entry)
		}
		fmt.Fprintf(&b, "- %s: %s\n", c, strings.Join(values, "; "))
	}
	return b.String()
}

func formatHistory(history []domain.Message, window int) string {
	if len(history) == 0 || window <= 0 {
		return "(none)\n"
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// containsWord matches an ASCII keyword on word boundaries. Upper-case
// keywords (TA, PM) match case-sensitively; others ignore case.
func containsWord(text, word string) bool {
	pattern := `\b` + regexp.QuoteMeta(word) + `\b`
	if strings.ToUpper(word) != word {
		pattern = `(?i)` + pattern
	}
	return regexp.MustCompile(pattern).MatchString(text)
}
