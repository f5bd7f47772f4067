package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// unknownTerm is the model's answer when no candidate fits.
const unknownTerm = "UNKNOWN"

// SlotNormalizer maps a raw phrase onto the standard vocabulary.
type SlotNormalizer interface {
	Normalize(ctx context.Context, raw string, category domain.Category) (domain.NormalizedSlot, error)
}

// Ensure TermNormalizer implements SlotNormalizer.
var _ SlotNormalizer = (*TermNormalizer)(nil)

// termCandidate is a vocabulary entry with its lexical similarity to a phrase.
type termCandidate struct {
	value string
	score float64
}

// normalizeReply is the strict grammar of a disambiguation answer.
type normalizeReply struct {
	NormalizedTerm *string  `json:"normalized_term"`
	Confidence     *float64 `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
}

type cacheKey struct {
	category domain.Category
	phrase   string
}

// TermNormalizer resolves raw phrases against the TermStore, using the
// LLM only when lexical similarity is inconclusive. Results are cached
// per (category, phrase) until Invalidate is called.
type TermNormalizer struct {
	terms       driven.TermStore
	llm         driven.LLMService
	promptStore driven.PromptStore
	cfg         domain.AssistantSettings

	mu    sync.RWMutex
	cache map[cacheKey]domain.NormalizedSlot
	group singleflight.Group
}

// NewTermNormalizer creates a normalizer. llm is optional (can be nil).
func NewTermNormalizer(terms driven.TermStore, llm driven.LLMService, cfg domain.AssistantSettings) *TermNormalizer {
	return &TermNormalizer{
		terms: terms,
		llm:   llm,
		cfg:   cfg,
		cache: make(map[cacheKey]domain.NormalizedSlot),
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (n *TermNormalizer) SetPromptStore(store driven.PromptStore) {
	n.promptStore = store
}

// Invalidate drops all cached results. Call after the vocabulary changes.
func (n *TermNormalizer) Invalidate() {
	n.mu.Lock()
	n.cache = make(map[cacheKey]domain.NormalizedSlot)
	n.mu.Unlock()
}

// Normalize maps raw onto a standard term of the category.
// Only a TermStore failure is returned as an error; an inconclusive
// match passes the phrase through with a confidence below the threshold.
func (n *TermNormalizer) Normalize(
	ctx context.Context, raw string, category domain.Category,
) (domain.NormalizedSlot, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !category.IsValid() {
		return domain.NormalizedSlot{}, fmt.Errorf("normalize %q (%s): %w", raw, category, domain.ErrInvalidInput)
	}

	key := cacheKey{category: category, phrase: strings.ToLower(raw)}
	n.mu.RLock()
	cached, ok := n.cache[key]
	n.mu.RUnlock()
	if ok {
		cached.Original = raw
		return cached, nil
	}

	v, err, _ := n.group.Do(string(category)+"\x00"+key.phrase, func() (any, error) {
		slot, cacheable, err := n.normalize(ctx, raw, category)
		if err != nil {
			return nil, err
		}
		if cacheable {
			n.mu.Lock()
			n.cache[key] = slot
			n.mu.Unlock()
		}
		return slot, nil
	})
	if err != nil {
		return domain.NormalizedSlot{}, err
	}

	slot := v.(domain.NormalizedSlot)
	slot.Original = raw
	return slot, nil
}

// normalize performs the uncached resolution. cacheable is false when
// the outcome was shaped by a transient model failure.
func (n *TermNormalizer) normalize(
	ctx context.Context, raw string, category domain.Category,
) (slot domain.NormalizedSlot, cacheable bool, err error) {
	terms, err := n.terms.Terms(ctx, category)
	if err != nil {
		return domain.NormalizedSlot{}, false, fmt.Errorf("%w: loading %s terms: %w", domain.ErrReferenceData, category, err)
	}

	candidates := rankTerms(raw, terms)
	if len(candidates) == 0 {
		logger.Debug("No %s vocabulary, passing %q through", category, raw)
		return passThrough(raw, 0, n.cfg.NormalizeThreshold), true, nil
	}

	best := candidates[0]
	if best.score >= n.cfg.NormalizeThreshold {
		logger.Debug("Normalized %s %q -> %q (lexical %.2f)", category, raw, best.value, best.score)
		return domain.NormalizedSlot{
			Original:   raw,
			Normalized: best.value,
			Confidence: best.score,
			Matched:    true,
		}, true, nil
	}

	if n.llm == nil {
		return passThrough(raw, best.score, n.cfg.NormalizeThreshold), true, nil
	}

	limit := n.cfg.DisambiguationCandidates
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	top := candidates[:limit]

	term, confidence, err := n.disambiguate(ctx, raw, category, top)
	if errors.Is(err, domain.ErrNormalizationAmbiguous) {
		logger.Debug("Model found no %s match for %q", category, raw)
		return passThrough(raw, best.score, n.cfg.NormalizeThreshold), true, nil
	}
	if err != nil {
		logger.Warn("Disambiguation of %s %q failed: %v", category, raw, err)
		return passThrough(raw, best.score, n.cfg.NormalizeThreshold), false, nil
	}

	logger.Debug("Normalized %s %q -> %q (model %.2f)", category, raw, term, confidence)
	return domain.NormalizedSlot{
		Original:   raw,
		Normalized: term,
		Confidence: confidence,
		Matched:    true,
	}, true, nil
}

// disambiguate asks the model to choose among the lexical candidates.
// ErrNormalizationAmbiguous means the model declared no match.
func (n *TermNormalizer) disambiguate(
	ctx context.Context, raw string, category domain.Category, candidates []termCandidate,
) (string, float64, error) {
	var list strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d. %s\n", i+1, c.value)
	}

	prompt := fmt.Sprintf(loadPrompt(n.promptStore, driven.PromptNormalize), category.Label(), raw, list.String())
	reply, err := n.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   100,
		Temperature: 0,
		Operation:   "normalize",
	})
	if err != nil {
		return "", 0, fmt.Errorf("normalize: %w", err)
	}

	var parsed normalizeReply
	if err := decodeStrict(reply, &parsed); err != nil {
		return "", 0, err
	}
	if parsed.NormalizedTerm == nil {
		return "", 0, fmt.Errorf("%w: missing normalized_term", domain.ErrMalformedOutput)
	}

	picked := strings.TrimSpace(*parsed.NormalizedTerm)
	if strings.EqualFold(picked, unknownTerm) || picked == "" {
		return "", 0, domain.ErrNormalizationAmbiguous
	}

	for _, c := range candidates {
		if strings.EqualFold(c.value, picked) {
			confidence := 0.0
			if parsed.Confidence != nil {
				confidence = clamp01(*parsed.Confidence)
			}
			return c.value, confidence, nil
		}
	}
	return "", 0, fmt.Errorf("%w: %q is not a presented candidate", domain.ErrMalformedOutput, picked)
}

// rankTerms scores every term (and its aliases) against raw, best first.
// Ties keep vocabulary order.
func rankTerms(raw string, terms []domain.Term) []termCandidate {
	out := make([]termCandidate, 0, len(terms))
	for _, t := range terms {
		score := Similarity(raw, t.Value)
		for _, alias := range t.Aliases {
			score = max(score, Similarity(raw, alias))
		}
		out = append(out, termCandidate{value: t.Value, score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

// passThrough returns raw unchanged with a confidence kept below the threshold.
func passThrough(raw string, best, threshold float64) domain.NormalizedSlot {
	return domain.NormalizedSlot{
		Original:   raw,
		Normalized: raw,
		Confidence: max(0, min(best, threshold-0.01)),
	}
}

// isReferenceError reports whether err is a fatal reference data failure.
func isReferenceError(err error) bool {
	return errors.Is(err, domain.ErrReferenceData)
}
